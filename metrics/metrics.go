// Package metrics provides the in-process counters and gauges the
// coordinator updates and the /metrics HTTP route reads back, per
// spec.md §2/§6. There is no external metrics registry in scope; this
// is a lock-free key->count map over sync/atomic.
package metrics

import "sync/atomic"

// Registry holds a fixed set of named counters, each backed by its
// own atomic int64. Keys are registered up front so reads never race
// a concurrent map insert.
type Registry struct {
	counters map[string]*int64
}

// DefaultCounters lists every counter the coordinator increments.
var DefaultCounters = []string{
	"swaps_accepted",
	"swaps_redeemed",
	"swaps_refunded",
	"swaps_failed",
	"webhooks_sent",
	"webhooks_failed",
}

// NewRegistry returns a Registry pre-populated with names, each
// starting at zero.
func NewRegistry(names ...string) *Registry {
	if len(names) == 0 {
		names = DefaultCounters
	}
	r := &Registry{counters: make(map[string]*int64, len(names))}
	for _, name := range names {
		var v int64
		r.counters[name] = &v
	}
	return r
}

// Inc increments the named counter by one. Incrementing an
// unregistered name is a no-op: callers that mistype a counter name
// don't crash the process but also don't see it in Snapshot.
func (r *Registry) Inc(name string) {
	r.Add(name, 1)
}

// Add adds delta to the named counter.
func (r *Registry) Add(name string, delta int64) {
	if p, ok := r.counters[name]; ok {
		atomic.AddInt64(p, delta)
	}
}

// Snapshot returns the current value of every registered counter.
func (r *Registry) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(r.counters))
	for name, p := range r.counters {
		out[name] = atomic.LoadInt64(p)
	}
	return out
}

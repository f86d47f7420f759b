package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInc_AccumulatesUnderConcurrency(t *testing.T) {
	r := NewRegistry("swaps_accepted")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Inc("swaps_accepted")
		}()
	}
	wg.Wait()

	require.EqualValues(t, 100, r.Snapshot()["swaps_accepted"])
}

func TestInc_UnregisteredNameIsNoOp(t *testing.T) {
	r := NewRegistry("swaps_accepted")
	r.Inc("not_a_real_counter")
	_, ok := r.Snapshot()["not_a_real_counter"]
	require.False(t, ok)
}

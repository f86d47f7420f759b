package coordinator

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/stealthreserve/swapd/escrow"
)

// Run drives the progression loop at TickInterval until ctx is
// cancelled or Stop is called. Panics inside a single tick are
// recovered and logged so one bad iteration never takes down the
// process (spec.md §7).
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopped:
			return
		case now := <-ticker.C:
			c.safeTick(ctx, now)
		}
	}
}

func (c *Coordinator) safeTick(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("progression tick panicked: %v", r)
		}
	}()
	c.runTick(ctx, now)
}

// runTick implements one pass of §4.4's progression loop: snapshot
// under a read lock, release, do I/O, then reacquire the write lock
// only to merge results — external calls never happen while either
// lock is held.
func (c *Coordinator) runTick(ctx context.Context, now time.Time) {
	snapshot := c.snapshotActive()

	for _, t := range snapshot {
		if t.State.terminal() {
			continue
		}
		if now.After(t.ExpiresAt) {
			c.expireTrade(ctx, t, now)
		}
	}

	snapshot = c.snapshotActive()
	for _, t := range snapshot {
		if t.State.terminal() {
			continue
		}
		c.pollOne(ctx, t, now)
	}

	if c.quotes != nil {
		c.quotes.Expire(now)
	}
}

func (c *Coordinator) snapshotActive() []*Trade {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Trade, 0, len(c.active))
	for _, t := range c.active {
		cp := t.Clone()
		out = append(out, &cp)
	}
	return out
}

// expireTrade implements §4.4 step 2: a pre-terminal trade past its
// deadline is locally marked Refunded and an on-chain refund is
// submitted; the refund call's outcome does not block marking it
// locally. A failed submission is only logged: the trade is terminal
// from then on, so later ticks skip it and do not resubmit the refund.
func (c *Coordinator) expireTrade(ctx context.Context, t *Trade, now time.Time) {
	if _, err := c.chainA.SubmitRefund(ctx, t.SwapID); err != nil {
		c.log.Warnf("refund submission for swap %s failed, not resubmitted: %v", t.SwapID, err)
	}

	t.State = Refunded
	t.FailureReason = "Swap expired"
	c.persist(t)
	if c.metrics != nil {
		c.metrics.Inc("swaps_failed")
	}
	c.emitWebhook(ctx, t)
}

// pollOne implements §4.4 step 3's per-state transition table. The
// chain-A on-chain flags override local state whenever they diverge,
// and a redeem/refund the coordinator did not itself initiate (e.g.
// a relayer beat it to the punch) is accepted as-is.
func (c *Coordinator) pollOne(ctx context.Context, t *Trade, now time.Time) {
	switch {
	case t.State == LockedUsdc && t.Direction == escrow.UsdcToXmr:
		c.pollLockedUsdcUsdcToXmr(ctx, t)
	case t.State == LockedXmr && t.Direction == escrow.UsdcToXmr:
		c.pollLockedXmrUsdcToXmr(ctx, t)
	case t.State == LockedXmr && t.Direction == escrow.XmrToUsdc:
		c.pollLockedXmrXmrToUsdc(ctx, t)
	case t.State == LockedUsdc && t.Direction == escrow.XmrToUsdc:
		c.pollLockedUsdcXmrToUsdc(ctx, t)
	}
}

func (c *Coordinator) pollLockedUsdcUsdcToXmr(ctx context.Context, t *Trade) {
	if t.MoneroTxID == "" {
		// Learn the chain-B txid that record_monero_lock_proof wrote.
		view, err := c.chainA.GetSwap(ctx, t.SwapID)
		if err != nil {
			c.log.Warnf("get_swap for swap %s failed: %v", t.SwapID, err)
			return
		}
		if view == nil || view.MoneroLockTxID == "" {
			return
		}
		t.MoneroTxID = view.MoneroLockTxID
	}
	transfer, err := c.chainB.GetTransfer(ctx, t.MoneroTxID)
	if err != nil {
		c.log.Warnf("get_transfer for swap %s failed: %v", t.SwapID, err)
		return
	}
	if transfer == nil {
		return
	}
	if transfer.Confirmations >= requiredConfirmations && transfer.Amount >= t.XMRAmount {
		t.State = LockedXmr
		c.persist(t)
	}
}

func (c *Coordinator) pollLockedXmrUsdcToXmr(ctx context.Context, t *Trade) {
	view, err := c.chainA.GetSwap(ctx, t.SwapID)
	if err != nil {
		c.log.Warnf("get_swap for swap %s failed: %v", t.SwapID, err)
		return
	}
	if view == nil {
		return
	}
	if view.MoneroLockTxID != "" {
		t.MoneroTxID = view.MoneroLockTxID
	}
	switch {
	case view.IsRedeemed:
		t.State = Redeemed
		c.persist(t)
	case view.IsRefunded:
		t.State = Refunded
		c.persist(t)
	}
}

func (c *Coordinator) pollLockedXmrXmrToUsdc(ctx context.Context, t *Trade) {
	view, err := c.chainA.GetSwap(ctx, t.SwapID)
	if err != nil {
		c.log.Warnf("get_swap for swap %s failed: %v", t.SwapID, err)
		return
	}
	if view == nil {
		return
	}
	if view.USDCAmount == t.USDCAmount {
		t.State = LockedUsdc
		c.persist(t)
	}
}

func (c *Coordinator) pollLockedUsdcXmrToUsdc(ctx context.Context, t *Trade) {
	view, err := c.chainA.GetSwap(ctx, t.SwapID)
	if err != nil {
		c.log.Warnf("get_swap for swap %s failed: %v", t.SwapID, err)
		return
	}
	if view == nil || !view.IsRedeemed {
		return
	}

	if _, err := c.chainB.SendTransfer(ctx, t.MoneroSubAddressText, t.XMRAmount); err != nil {
		c.log.Errorf("chain-B send_transfer for swap %s failed: %v", t.SwapID, err)
		return
	}
	t.State = Redeemed
	c.persist(t)
}

func (c *Coordinator) persist(t *Trade) {
	c.mu.Lock()
	c.active[t.SwapID] = t
	c.mu.Unlock()

	if err := c.store.PutTrade(t); err != nil {
		c.log.Errorf("persist trade %s: %v", t.SwapID, err)
	}
}

// webhookPayload is the body emitted when a trade reaches a terminal
// state via expiry; this is the sole outbound webhook call.
type webhookPayload struct {
	SwapID        string `json:"swap_id"`
	State         State  `json:"state"`
	FailureReason string `json:"failure_reason,omitempty"`
}

func (c *Coordinator) emitWebhook(ctx context.Context, t *Trade) {
	if c.webhookURL == "" {
		return
	}
	body, err := json.Marshal(webhookPayload{
		SwapID:        hexHash(t.SwapID),
		State:         t.State,
		FailureReason: t.FailureReason,
	})
	if err != nil {
		c.log.Errorf("marshal webhook payload for swap %s: %v", t.SwapID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		c.log.Errorf("build webhook request for swap %s: %v", t.SwapID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warnf("webhook delivery for swap %s failed: %v", t.SwapID, err)
		return
	}
	resp.Body.Close()
}

// hexHash encodes h in natural byte order, deliberately not using
// chainhash.Hash.String()'s reversed-byte Bitcoin convention: this
// domain's swap_id has no such convention, and spec.md §8 requires
// it to be hex-round-trippable as-is.
func hexHash(h chainhash.Hash) string {
	return hex.EncodeToString(h[:])
}

package quote

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stealthreserve/swapd/escrow"
)

func TestIssue_RejectsOutOfRangeAmount(t *testing.T) {
	m := NewManager(Range{Min: 100, Max: 1_000})
	_, err := m.Issue(IssueParams{
		Direction:  escrow.UsdcToXmr,
		USDCAmount: 5_000,
		XMRAmount:  1,
		Now:        time.Unix(1_700_000_000, 0),
	})
	require.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestIssue_ProducesConsistentSecretHash(t *testing.T) {
	m := NewManager(Range{Min: 100, Max: 1_000_000})
	q, err := m.Issue(IssueParams{
		Direction:  escrow.UsdcToXmr,
		USDCAmount: 1_000,
		XMRAmount:  500,
		Now:        time.Unix(1_700_000_000, 0),
	})
	require.NoError(t, err)
	require.Equal(t, sha256.Sum256(q.Secret[:]), [32]byte(q.SecretHash))
	require.Equal(t, q.CreatedAt.Add(DefaultLifetime), q.ExpiresAt)
}

func TestAccept_RemovesFromPendingTable(t *testing.T) {
	m := NewManager(Range{Min: 100, Max: 1_000_000})
	now := time.Unix(1_700_000_000, 0)
	q, err := m.Issue(IssueParams{Direction: escrow.UsdcToXmr, USDCAmount: 1_000, XMRAmount: 500, Now: now})
	require.NoError(t, err)

	accepted, err := m.Accept(q.QuoteID, now.Add(5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, q.SwapID, accepted.SwapID)

	_, ok := m.Get(q.QuoteID)
	require.False(t, ok)
}

func TestAccept_RejectsUnknownQuote(t *testing.T) {
	m := NewManager(Range{Min: 100, Max: 1_000_000})
	_, err := m.Accept([16]byte{}, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAccept_RejectsExpiredQuote(t *testing.T) {
	m := NewManager(Range{Min: 100, Max: 1_000_000})
	now := time.Unix(1_700_000_000, 0)
	q, err := m.Issue(IssueParams{Direction: escrow.UsdcToXmr, USDCAmount: 1_000, XMRAmount: 500, Now: now})
	require.NoError(t, err)

	_, err = m.Accept(q.QuoteID, now.Add(31*time.Minute))
	require.ErrorIs(t, err, ErrExpired)

	_, ok := m.Get(q.QuoteID)
	require.False(t, ok, "expired quote should be dropped from the pending table on rejected accept")
}

func TestExpire_DropsOnlyPastDeadline(t *testing.T) {
	m := NewManager(Range{Min: 100, Max: 1_000_000})
	now := time.Unix(1_700_000_000, 0)
	fresh, err := m.Issue(IssueParams{Direction: escrow.UsdcToXmr, USDCAmount: 1_000, XMRAmount: 500, Now: now})
	require.NoError(t, err)
	stale, err := m.Issue(IssueParams{Direction: escrow.UsdcToXmr, USDCAmount: 1_000, XMRAmount: 500, Now: now.Add(-1 * time.Hour)})
	require.NoError(t, err)

	removed := m.Expire(now)
	require.Equal(t, 1, removed)

	_, ok := m.Get(stale.QuoteID)
	require.False(t, ok)
	_, ok = m.Get(fresh.QuoteID)
	require.True(t, ok)
}

// Package quote issues bounded-lifetime swap quotes: it validates a
// requested amount against the configured range, allocates the
// secret/hash pair and swap identifier from a cryptographic random
// source, and hands the caller a quote that accept (see
// coordinator) converts into an active trade.
package quote

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"

	"github.com/stealthreserve/swapd/escrow"
)

// DefaultLifetime is the quote lifetime mandated by spec.md §4.4.
const DefaultLifetime = 30 * time.Minute

var (
	// ErrAmountOutOfRange is returned when a requested usdc_amount
	// falls outside the configured [min, max] window.
	ErrAmountOutOfRange = errors.New("quote: usdc_amount out of configured range")
	// ErrNotFound is returned by Accept for an unknown quote_id.
	ErrNotFound = errors.New("quote: quote_id not found")
	// ErrExpired is returned by Accept for a quote past ExpiresAt.
	ErrExpired = errors.New("quote: quote expired")
)

// Quote is an issued, not-yet-accepted trade offer.
type Quote struct {
	QuoteID   uuid.UUID
	Direction escrow.Direction

	USDCAmount uint64
	XMRAmount  uint64

	// Secret is held in the pending table until Accept or Expire
	// removes the quote; the coordinator's Trade does not copy it.
	// QuoteID and SwapID are distinct so an expired quote never
	// pollutes the swap-id namespace.
	Secret     [32]byte
	SecretHash chainhash.Hash
	SwapID     chainhash.Hash

	MoneroSubAddressText string
	MoneroSubAddress     [64]byte

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Range bounds the usdc_amount a quote may request.
type Range struct {
	Min uint64
	Max uint64
}

func (r Range) contains(amount uint64) bool {
	return amount >= r.Min && amount <= r.Max
}

// Manager issues and retires quotes, holding them in a pending table
// until Accept removes them.
type Manager struct {
	mu       sync.RWMutex
	pending  map[uuid.UUID]*Quote
	amounts  Range
	lifetime time.Duration
}

// NewManager returns a Manager validating usdc_amount against
// amounts, issuing quotes with DefaultLifetime.
func NewManager(amounts Range) *Manager {
	return &Manager{
		pending:  make(map[uuid.UUID]*Quote),
		amounts:  amounts,
		lifetime: DefaultLifetime,
	}
}

// IssueParams bundles a quote request.
type IssueParams struct {
	Direction        escrow.Direction
	USDCAmount       uint64
	XMRAmount        uint64
	MoneroSubAddress string
	MoneroSubAddressBlob [64]byte
	Now              time.Time
}

// Issue validates params.USDCAmount and mints a fresh quote: a random
// secret and swap_id from crypto/rand, secret_hash = SHA-256(secret),
// and a newly minted UUID quote_id.
func (m *Manager) Issue(params IssueParams) (*Quote, error) {
	if !m.amounts.contains(params.USDCAmount) {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrAmountOutOfRange, params.USDCAmount, m.amounts.Min, m.amounts.Max)
	}

	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return nil, fmt.Errorf("quote: generate secret: %w", err)
	}
	secretHash := sha256.Sum256(secret[:])

	var swapID chainhash.Hash
	if _, err := rand.Read(swapID[:]); err != nil {
		return nil, fmt.Errorf("quote: generate swap_id: %w", err)
	}

	q := &Quote{
		QuoteID:              uuid.New(),
		Direction:             params.Direction,
		USDCAmount:            params.USDCAmount,
		XMRAmount:             params.XMRAmount,
		Secret:                secret,
		SecretHash:            secretHash,
		SwapID:                swapID,
		MoneroSubAddressText:  params.MoneroSubAddress,
		MoneroSubAddress:      params.MoneroSubAddressBlob,
		CreatedAt:             params.Now,
		ExpiresAt:             params.Now.Add(m.lifetime),
	}

	m.mu.Lock()
	m.pending[q.QuoteID] = q
	m.mu.Unlock()

	return q, nil
}

// Get returns the pending quote for quoteID without removing it, for
// status lookups that don't constitute acceptance.
func (m *Manager) Get(quoteID uuid.UUID) (*Quote, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.pending[quoteID]
	return q, ok
}

// Accept removes quoteID from the pending table and returns it,
// rejecting unknown or expired quotes. The caller (coordinator) is
// responsible for moving the returned quote into the active trade
// table under the same lock discipline spec.md §5 describes.
func (m *Manager) Accept(quoteID uuid.UUID, now time.Time) (*Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.pending[quoteID]
	if !ok {
		return nil, ErrNotFound
	}
	if now.After(q.ExpiresAt) {
		delete(m.pending, quoteID)
		return nil, ErrExpired
	}
	delete(m.pending, quoteID)
	return q, nil
}

// Expire drops every pending quote whose ExpiresAt has passed,
// returning how many were removed. The coordinator calls this once
// per progression tick so unaccepted quotes don't accumulate.
func (m *Manager) Expire(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, q := range m.pending {
		if now.After(q.ExpiresAt) {
			delete(m.pending, id)
			removed++
		}
	}
	return removed
}

// Package coordinator implements the off-chain swap coordinator: the
// active-trade table, acceptance, and the 30-second progression loop
// that polls both chains and drives trades toward a terminal state.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btclog"
	"github.com/google/uuid"

	"github.com/stealthreserve/swapd/escrow"
	"github.com/stealthreserve/swapd/metrics"
	"github.com/stealthreserve/swapd/quote"
)

// TickInterval is the progression loop's fixed cadence (spec.md §4.4).
const TickInterval = 30 * time.Second

// ErrQuoteNotFound/ErrQuoteExpired surface through Accept; the HTTP
// layer translates them into the contract's error strings.
var (
	ErrQuoteNotFound = errors.New("coordinator: quote not found")
	ErrQuoteExpired  = errors.New("coordinator: quote expired")
)

// Config bundles the dependencies a Coordinator is built from.
type Config struct {
	Quotes      *quote.Manager
	Store       Store
	ChainA      ChainA
	ChainB      ChainB
	Metrics     *metrics.Registry
	WebhookURL  string
	HTTPClient  *http.Client
	Log         btclog.Logger
}

// Coordinator is the long-running off-chain driver of §4.4.
type Coordinator struct {
	quotes  *quote.Manager
	store   Store
	chainA  ChainA
	chainB  ChainB
	metrics *metrics.Registry
	log     btclog.Logger

	webhookURL string
	httpClient *http.Client

	mu     sync.RWMutex
	active map[chainhash.Hash]*Trade

	shutdownOnce sync.Once
	stopped      chan struct{}
}

// New builds a Coordinator from cfg. Callers that do not need a
// webhook may leave WebhookURL empty.
func New(cfg Config) *Coordinator {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	log := cfg.Log
	if log == nil {
		log = btclog.Disabled
	}
	return &Coordinator{
		quotes:     cfg.Quotes,
		store:      cfg.Store,
		chainA:     cfg.ChainA,
		chainB:     cfg.ChainB,
		metrics:    cfg.Metrics,
		log:        log,
		webhookURL: cfg.WebhookURL,
		httpClient: httpClient,
		active:     make(map[chainhash.Hash]*Trade),
		stopped:    make(chan struct{}),
	}
}

// Rehydrate loads every persisted trade into the active table,
// implementing spec.md §4.5's restart contract: the store is the new
// source of local truth until the next chain-A cross-check.
func (c *Coordinator) Rehydrate() error {
	trades, err := c.store.LoadAllTrades()
	if err != nil {
		return fmt.Errorf("coordinator: rehydrate: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range trades {
		c.active[t.SwapID] = t
	}
	c.log.Infof("rehydrated %d trade(s) from the store", len(trades))
	return nil
}

// Accept implements §4.4's acceptance step: the quote leaves the
// pending table, enters the active table under LockedUsdc or
// LockedXmr, and is durably persisted before returning.
func (c *Coordinator) Accept(quoteID uuid.UUID, counterpartyKey [33]byte, now time.Time) (chainhash.Hash, error) {
	q, err := c.quotes.Accept(quoteID, now)
	if err != nil {
		switch {
		case errors.Is(err, quote.ErrNotFound):
			return chainhash.Hash{}, ErrQuoteNotFound
		case errors.Is(err, quote.ErrExpired):
			return chainhash.Hash{}, ErrQuoteExpired
		default:
			return chainhash.Hash{}, err
		}
	}

	state := LockedUsdc
	if q.Direction == escrow.XmrToUsdc {
		state = LockedXmr
	}

	t := &Trade{
		SwapID:               q.SwapID,
		QuoteID:              q.QuoteID,
		Direction:             q.Direction,
		SecretHash:            q.SecretHash,
		USDCAmount:            q.USDCAmount,
		XMRAmount:             q.XMRAmount,
		MoneroSubAddressText:  q.MoneroSubAddressText,
		MoneroSubAddress:      q.MoneroSubAddress,
		CounterpartyKey:       counterpartyKey,
		CreatedAt:             now,
		ExpiresAt:             q.ExpiresAt,
		State:                 state,
	}

	c.mu.Lock()
	c.active[t.SwapID] = t
	c.mu.Unlock()

	if err := c.store.PutTrade(t); err != nil {
		return chainhash.Hash{}, fmt.Errorf("coordinator: persist accepted trade: %w", err)
	}
	if c.metrics != nil {
		c.metrics.Inc("swaps_accepted")
	}
	return t.SwapID, nil
}

// GetTrade returns a snapshot of the trade for swapID.
func (c *Coordinator) GetTrade(swapID chainhash.Hash) (Trade, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.active[swapID]
	if !ok {
		return Trade{}, false
	}
	return t.Clone(), true
}

// Stop signals Run's progression loop to exit after its current tick.
func (c *Coordinator) Stop() {
	c.shutdownOnce.Do(func() { close(c.stopped) })
}

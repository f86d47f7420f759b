// Package httpapi is the external HTTP/JSON surface over the quote
// manager and swap coordinator (spec.md §6). None of the retrieved
// repos expose this kind of API directly, so the routing here is
// built on stdlib net/http and encoding/json rather than importing a
// router framework no example demonstrates; the request/response
// envelope and error-translation pattern follow settlement/swaps'
// practice of keeping transport concerns in a thin layer above the
// domain types.
package httpapi

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btclog"
	"github.com/google/uuid"

	"github.com/stealthreserve/swapd/chainadapter/monero"
	"github.com/stealthreserve/swapd/coordinator"
	"github.com/stealthreserve/swapd/escrow"
	"github.com/stealthreserve/swapd/metrics"
	"github.com/stealthreserve/swapd/quote"
)

// Subaddresser is the subset of the chain-B adapter a quote request
// needs: a freshly allocated receiving address per quote.
type Subaddresser interface {
	CreateSubaddress(ctx context.Context, label string) (text string, blob [monero.SubaddressLen]byte, err error)
}

// HealthChecker is implemented by both chain adapters.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ChainAHealth additionally exposes the block height /health reports.
type ChainAHealth interface {
	HealthChecker
	GetBlockHeight(ctx context.Context) (uint64, error)
}

// Server wires the coordinator and quote manager to the routes of
// spec.md §6. It implements http.Handler directly, the way a small
// service with a handful of routes is commonly wired without a
// third-party mux.
type Server struct {
	quotes      *quote.Manager
	coordinator *coordinator.Coordinator
	chainB      Subaddresser
	chainAHC    ChainAHealth
	chainBHC    HealthChecker
	metrics     *metrics.Registry
	log         btclog.Logger

	mux *http.ServeMux
}

// Config bundles Server's dependencies.
type Config struct {
	Quotes      *quote.Manager
	Coordinator *coordinator.Coordinator
	ChainB      Subaddresser
	ChainAHealth ChainAHealth
	ChainBHealth HealthChecker
	Metrics     *metrics.Registry
	Log         btclog.Logger
}

// New builds a Server and registers every route of §6.
func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = btclog.Disabled
	}
	s := &Server{
		quotes:      cfg.Quotes,
		coordinator: cfg.Coordinator,
		chainB:      cfg.ChainB,
		chainAHC:    cfg.ChainAHealth,
		chainBHC:    cfg.ChainBHealth,
		metrics:     cfg.Metrics,
		log:         log,
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /v1/quote", s.handleQuote)
	s.mux.HandleFunc("POST /v1/swap/accept", s.handleAccept)
	s.mux.HandleFunc("GET /v1/swap/{swap_id}", s.handleStatus)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type quoteRequest struct {
	Direction  string `json:"direction"`
	USDCAmount uint64 `json:"usdc_amount"`
	XMRAmount  uint64 `json:"xmr_amount"`
}

type quoteResponse struct {
	QuoteID          string `json:"quote_id"`
	ExpiresAt        int64  `json:"expires_at"`
	USDCAmount       uint64 `json:"usdc_amount"`
	XMRAmount        uint64 `json:"xmr_amount"`
	SecretHash       string `json:"secret_hash"`
	MoneroSubAddress string `json:"monero_sub_address"`
	SolanaAddress    string `json:"solana_address"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var direction escrow.Direction
	switch req.Direction {
	case "usdc_to_xmr":
		direction = escrow.UsdcToXmr
	case "xmr_to_usdc":
		direction = escrow.XmrToUsdc
	default:
		writeError(w, http.StatusBadRequest, "direction must be usdc_to_xmr or xmr_to_usdc")
		return
	}
	if req.USDCAmount == 0 || req.XMRAmount == 0 {
		writeError(w, http.StatusBadRequest, "usdc_amount and xmr_amount must be positive")
		return
	}

	ctx := r.Context()
	now := time.Now()

	subText, subBlob, err := s.chainB.CreateSubaddress(ctx, "")
	if err != nil {
		s.log.Errorf("create subaddress: %v", err)
		writeLogicalError(w, "could not allocate a receiving address")
		return
	}

	q, err := s.quotes.Issue(quote.IssueParams{
		Direction:            direction,
		USDCAmount:           req.USDCAmount,
		XMRAmount:            req.XMRAmount,
		MoneroSubAddress:     subText,
		MoneroSubAddressBlob: subBlob,
		Now:                  now,
	})
	if err != nil {
		if errors.Is(err, quote.ErrAmountOutOfRange) {
			writeLogicalError(w, err.Error())
			return
		}
		s.log.Errorf("issue quote: %v", err)
		writeLogicalError(w, "could not issue quote")
		return
	}

	solanaAddr, _ := escrow.DeriveSwapAddress(q.SwapID)

	writeJSON(w, http.StatusOK, quoteResponse{
		QuoteID:          q.QuoteID.String(),
		ExpiresAt:        q.ExpiresAt.Unix(),
		USDCAmount:       q.USDCAmount,
		XMRAmount:        q.XMRAmount,
		SecretHash:       hexHash(q.SecretHash),
		MoneroSubAddress: q.MoneroSubAddressText,
		SolanaAddress:    hexHash(solanaAddr),
	})
}

type acceptRequest struct {
	QuoteID             string `json:"quote_id"`
	CounterpartyPubkey  string `json:"counterparty_pubkey"`
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	quoteID, err := uuid.Parse(req.QuoteID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "quote_id must be a UUID")
		return
	}

	var counterparty [33]byte
	if req.CounterpartyPubkey != "" {
		b, err := hex.DecodeString(req.CounterpartyPubkey)
		if err != nil || len(b) != 33 {
			writeError(w, http.StatusBadRequest, "counterparty_pubkey must be 33 hex-encoded bytes")
			return
		}
		copy(counterparty[:], b)
	}

	swapID, err := s.coordinator.Accept(quoteID, counterparty, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, coordinator.ErrQuoteNotFound):
			writeLogicalError(w, "Quote not found")
		case errors.Is(err, coordinator.ErrQuoteExpired):
			writeLogicalError(w, "Quote expired")
		default:
			s.log.Errorf("accept quote: %v", err)
			writeLogicalError(w, "could not accept quote")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"swap_id": hexHash(swapID)})
}

type statusResponse struct {
	State         string `json:"state"`
	USDCAmount    uint64 `json:"usdc_amount"`
	XMRAmount     uint64 `json:"xmr_amount"`
	Expiry        int64  `json:"expiry"`
	FailureReason string `json:"failure_reason,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	swapID, err := parseSwapID(r.PathValue("swap_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "swap_id must be 32 hex-encoded bytes")
		return
	}

	trade, ok := s.coordinator.GetTrade(swapID)
	if !ok {
		writeError(w, http.StatusNotFound, "swap not found")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		State:         string(trade.State),
		USDCAmount:    trade.USDCAmount,
		XMRAmount:     trade.XMRAmount,
		Expiry:        trade.ExpiresAt.Unix(),
		FailureReason: trade.FailureReason,
	})
}

type healthResponse struct {
	ChainAConnected  bool   `json:"chain_a_connected"`
	ChainBConnected  bool   `json:"chain_b_connected"`
	LastBlockHeight  uint64 `json:"last_block_height"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := healthResponse{}
	if s.chainAHC != nil {
		if err := s.chainAHC.Health(ctx); err == nil {
			resp.ChainAConnected = true
			if h, err := s.chainAHC.GetBlockHeight(ctx); err == nil {
				resp.LastBlockHeight = h
			}
		}
	}
	if s.chainBHC != nil {
		if err := s.chainBHC.Health(ctx); err == nil {
			resp.ChainBConnected = true
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeJSON(w, http.StatusOK, map[string]int64{})
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func parseSwapID(hexStr string) (chainhash.Hash, error) {
	b, err := hex.DecodeString(strings.TrimSpace(hexStr))
	if err != nil || len(b) != chainhash.HashSize {
		return chainhash.Hash{}, errors.New("httpapi: bad swap_id")
	}
	var h chainhash.Hash
	copy(h[:], b)
	return h, nil
}

func hexHash(h chainhash.Hash) string {
	return hex.EncodeToString(h[:])
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports a transport-level failure (malformed input,
// unknown resource) with the matching HTTP status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLogicalError reports a domain-level failure (expired quote,
// out-of-range amount) as HTTP 200 per §6's contract: the HTTP layer
// itself succeeded, the requested operation did not.
func writeLogicalError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

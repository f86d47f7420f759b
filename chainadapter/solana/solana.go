// Package solana is the chain-A adapter: a thin, stateless RPC wrapper
// exposing the typed queries the coordinator needs against the
// escrow program. All caching and retry live in the coordinator; the
// one exception is a short-lived recency cache here purely to
// suppress duplicate get_swap RPCs fired twice in the same
// progression tick.
package solana

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"

	"github.com/stealthreserve/swapd/chainadapter/rpcclient"
)

// recencyWindow bounds how long a cached get_swap result may be
// served before the adapter falls through to a fresh RPC.
const recencyWindow = 5 * time.Second

// SwapView is the subset of on-chain swap fields the coordinator
// reads back, per spec.md §4.3's get_swap contract. MoneroLockTxID
// rides along even though §4.3's prose names only four fields: the
// coordinator's own Chain-B polling step needs the txid that
// record_monero_lock_proof wrote on-chain, and that field already
// lives on the swap record per spec.md §3.
type SwapView struct {
	SecretHash     chainhash.Hash
	USDCAmount     uint64
	IsRedeemed     bool
	IsRefunded     bool
	MoneroLockTxID string
}

type cachedView struct {
	view      *SwapView
	fetchedAt time.Time
}

// Client is the chain-A JSON-RPC adapter.
type Client struct {
	rpc *rpcclient.Client

	mu     sync.Mutex
	recent *lru.Cache
	views  map[chainhash.Hash]cachedView
}

// New returns a chain-A adapter targeting rpcURL. cacheSize bounds the
// number of distinct swap_ids the recency cache tracks.
func New(rpcURL string, cacheSize uint) *Client {
	return &Client{
		rpc:    rpcclient.New(rpcURL),
		recent: lru.NewCache(cacheSize),
		views:  make(map[chainhash.Hash]cachedView),
	}
}

// GetSwap fetches the authoritative on-chain record for swapID, or
// (nil, nil) if no such swap account exists.
func (c *Client) GetSwap(ctx context.Context, swapID chainhash.Hash) (*SwapView, error) {
	c.mu.Lock()
	if c.recent.Contains(swapID) {
		if cached, ok := c.views[swapID]; ok && time.Since(cached.fetchedAt) < recencyWindow {
			c.mu.Unlock()
			log.Tracef("get_swap %s served from recency cache", swapID)
			return cached.view, nil
		}
	}
	c.mu.Unlock()

	var result struct {
		SecretHash     string `json:"secret_hash"`
		USDCAmount     uint64 `json:"usdc_amount"`
		IsRedeemed     bool   `json:"is_redeemed"`
		IsRefunded     bool   `json:"is_refunded"`
		MoneroLockTxID string `json:"monero_lock_txid"`
		Found          bool   `json:"found"`
	}
	params := struct {
		SwapID string `json:"swap_id"`
	}{SwapID: hex.EncodeToString(swapID[:])}

	if err := c.rpc.Call(ctx, "get_swap", params, &result); err != nil {
		return nil, fmt.Errorf("solana: get_swap %s: %w", swapID, err)
	}

	var view *SwapView
	if result.Found {
		hashBytes, err := hex.DecodeString(result.SecretHash)
		if err != nil {
			return nil, fmt.Errorf("solana: malformed secret_hash in get_swap response: %w", err)
		}
		var h chainhash.Hash
		copy(h[:], hashBytes)
		view = &SwapView{
			SecretHash:     h,
			USDCAmount:     result.USDCAmount,
			IsRedeemed:     result.IsRedeemed,
			IsRefunded:     result.IsRefunded,
			MoneroLockTxID: result.MoneroLockTxID,
		}
	}

	c.mu.Lock()
	c.recent.Add(swapID)
	c.views[swapID] = cachedView{view: view, fetchedAt: time.Now()}
	c.mu.Unlock()

	return view, nil
}

// CreateParams carries the instruction payload for either creation
// direction; the caller selects the method.
type CreateParams struct {
	SwapID           chainhash.Hash
	SecretHash       chainhash.Hash
	USDCAmount       uint64
	XMRAmount        uint64
	MoneroSubAddress [64]byte
	Expiry           int64
	RelayerFee       uint64
	Direction        string // "usdc_to_xmr" or "xmr_to_usdc"
}

// SubmitCreate submits a create_usdc_to_xmr or create_xmr_to_usdc
// instruction and returns the chain-A transaction signature.
func (c *Client) SubmitCreate(ctx context.Context, params CreateParams) (string, error) {
	var txSig string
	req := struct {
		SwapID           string `json:"swap_id"`
		SecretHash       string `json:"secret_hash"`
		USDCAmount       uint64 `json:"usdc_amount"`
		XMRAmount        uint64 `json:"xmr_amount"`
		MoneroSubAddress string `json:"monero_sub_address"`
		Expiry           int64  `json:"expiry"`
		RelayerFee       uint64 `json:"relayer_fee"`
		Direction        string `json:"direction"`
	}{
		SwapID:           hex.EncodeToString(params.SwapID[:]),
		SecretHash:       hex.EncodeToString(params.SecretHash[:]),
		USDCAmount:       params.USDCAmount,
		XMRAmount:        params.XMRAmount,
		MoneroSubAddress: hex.EncodeToString(params.MoneroSubAddress[:]),
		Expiry:           params.Expiry,
		RelayerFee:       params.RelayerFee,
		Direction:        params.Direction,
	}
	method := "submit_create_usdc_to_xmr"
	if params.Direction == "xmr_to_usdc" {
		method = "submit_create_xmr_to_usdc"
	}
	if err := c.rpc.Call(ctx, method, req, &txSig); err != nil {
		return "", fmt.Errorf("solana: %s: %w", method, err)
	}
	return txSig, nil
}

// SubmitRefund submits a refund instruction for swapID.
func (c *Client) SubmitRefund(ctx context.Context, swapID chainhash.Hash) (string, error) {
	var txSig string
	params := struct {
		SwapID string `json:"swap_id"`
	}{SwapID: hex.EncodeToString(swapID[:])}
	if err := c.rpc.Call(ctx, "submit_refund", params, &txSig); err != nil {
		return "", fmt.Errorf("solana: submit_refund %s: %w", swapID, err)
	}
	return txSig, nil
}

// GetBlockHeight returns chain A's current block height.
func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	if err := c.rpc.Call(ctx, "get_block_height", nil, &height); err != nil {
		return 0, fmt.Errorf("solana: get_block_height: %w", err)
	}
	return height, nil
}

// Health reports whether chain A's RPC endpoint is reachable.
func (c *Client) Health(ctx context.Context) error {
	if err := c.rpc.Call(ctx, "health", nil, nil); err != nil {
		return fmt.Errorf("solana: health: %w", err)
	}
	return nil
}

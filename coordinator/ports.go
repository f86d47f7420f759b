package coordinator

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/stealthreserve/swapd/chainadapter/monero"
	"github.com/stealthreserve/swapd/chainadapter/solana"
)

// ChainA is the subset of the chain-A adapter the coordinator drives.
// Defining it here (rather than depending on *solana.Client directly)
// mirrors settlement/swaps.atomic.go's BitcoinAdapter/EthereumAdapter
// interfaces: the coordinator is testable against a fake without
// touching the real RPC client.
type ChainA interface {
	GetSwap(ctx context.Context, swapID chainhash.Hash) (*solana.SwapView, error)
	SubmitRefund(ctx context.Context, swapID chainhash.Hash) (string, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
	Health(ctx context.Context) error
}

// ChainB is the subset of the chain-B adapter the coordinator drives.
type ChainB interface {
	GetTransfer(ctx context.Context, txid string) (*monero.Transfer, error)
	SendTransfer(ctx context.Context, destination string, amount uint64) (string, error)
	Health(ctx context.Context) error
}

// Store is the durable trade persistence contract (spec.md §4.5). The
// store package implements it; tests may use an in-memory fake.
type Store interface {
	PutTrade(t *Trade) error
	LoadAllTrades() ([]*Trade, error)
	DeleteTrade(swapID chainhash.Hash) error
}

// requiredConfirmations is the chain-B confirmation depth the
// LockedUsdc->LockedXmr transition (UsdcToXmr direction) requires.
const requiredConfirmations = 10

package coordinator

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"

	"github.com/stealthreserve/swapd/escrow"
)

// State is a Trade's off-chain lifecycle position. The on-chain flags
// are authoritative whenever they disagree with this value (spec.md
// §4.4).
type State string

const (
	Quoted     State = "Quoted"
	LockedUsdc State = "LockedUsdc"
	LockedXmr  State = "LockedXmr"
	Redeemed   State = "Redeemed"
	Refunded   State = "Refunded"
	Failed     State = "Failed"
)

// terminal reports whether s admits no further progression-loop
// transitions.
func (s State) terminal() bool {
	switch s {
	case Redeemed, Refunded, Failed:
		return true
	default:
		return false
	}
}

// Trade is the off-chain record for one swap: the on-chain fields
// plus coordinator bookkeeping, per spec.md §3.
type Trade struct {
	SwapID    chainhash.Hash
	QuoteID   uuid.UUID
	Direction escrow.Direction

	SecretHash chainhash.Hash
	USDCAmount uint64
	XMRAmount  uint64

	MoneroSubAddressText string
	MoneroSubAddress     [64]byte
	MoneroTxID           string

	// CounterpartyKey is the chain-A public key supplied at
	// acceptance: Alice's key for an XmrToUsdc trade, or an optional
	// relayer/beneficiary override for UsdcToXmr.
	CounterpartyKey [33]byte

	CreatedAt time.Time
	ExpiresAt time.Time

	State         State
	FailureReason string
}

// Clone returns a value copy of t, safe to hand to a caller outside
// the coordinator's lock.
func (t *Trade) Clone() Trade {
	return *t
}

// Package escrow implements the chain-A escrow program's state machine:
// swap accounts, their attached vaults, and the six instructions that
// create, observe, redeem, refund, and bounty-drain them.
package escrow

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// Direction identifies which leg of the pair is locked first.
type Direction uint8

const (
	UsdcToXmr Direction = iota
	XmrToUsdc
)

func (d Direction) String() string {
	if d == XmrToUsdc {
		return "xmr_to_usdc"
	}
	return "usdc_to_xmr"
}

// MoneroSubAddressLen is the fixed, right-zero-padded width of the
// chain-B receiving address blob stored on a swap record.
const MoneroSubAddressLen = 64

// Swap is the on-chain record for a single escrow. Every field here is
// part of the program's persisted account layout; nothing here is
// derived or cached.
type Swap struct {
	SwapID    chainhash.Hash
	Bump      byte
	Direction Direction

	Alice [33]byte // compressed chain-A pubkey, the USDC-side funder
	Bob   [33]byte // compressed chain-A pubkey, the counterparty/relayer-eligible party

	SecretHash chainhash.Hash
	Expiry     int64 // unix seconds; refund becomes legal once now > Expiry
	RelayerFee uint64

	IsRedeemed    bool
	IsRefunded    bool
	BountyClaimed bool

	USDCAmount uint64
	XMRAmount  uint64

	MoneroSubAddress [MoneroSubAddressLen]byte
	MoneroLockTxID   chainhash.Hash

	BobCollateralLocked   bool
	AliceCollateralLocked bool

	// VtcOpened is reserved: the source machinery around a
	// "vault transaction commitment" is never wired into any
	// redemption path here, matching the original's own dead code.
	VtcOpened bool

	// AliceChainAKey is only populated for XmrToUsdc swaps, recording
	// the counterparty chain-A address for later redemption.
	AliceChainAKey [33]byte
}

// terminal reports whether the swap has reached either terminal flag.
func (s *Swap) terminal() bool {
	return s.IsRedeemed || s.IsRefunded
}

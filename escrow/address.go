package escrow

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// swapSeedPrefix and commitmentSeedPrefix are the literal byte prefixes
// the program-derived-address scheme hashes the swap/commitment
// identifiers under.
var (
	swapSeedPrefix       = []byte("swap")
	commitmentSeedPrefix = []byte("commitment")
)

// maxBump is the highest bump byte tried during derivation, matching
// the convention of searching downward from 255.
const maxBump = 255

// DeriveSwapAddress computes the swap account's program-derived
// address and bump seed from swapID, trying bump values from 255
// downward until the resulting hash is "off-curve" by this program's
// convention (its first byte is odd) — the same decreasing-bump search
// shape the chain's PDA scheme uses, simplified to a hash predicate
// since this package models the program's logic rather than running
// inside an actual on-chain VM.
func DeriveSwapAddress(swapID chainhash.Hash) (addr chainhash.Hash, bump byte) {
	return deriveAddress(swapSeedPrefix, swapID[:])
}

// DeriveCommitmentAddress computes the commitment account's PDA from a
// commitment hash. Reserved: no operation in this package ever calls
// it, mirroring Open Question (b) — the commitment machinery is
// modeled but never wired into a redemption path.
func DeriveCommitmentAddress(commitmentHash chainhash.Hash) (addr chainhash.Hash, bump byte) {
	return deriveAddress(commitmentSeedPrefix, commitmentHash[:])
}

func deriveAddress(prefix, seed []byte) (chainhash.Hash, byte) {
	for b := maxBump; b >= 0; b-- {
		h := sha256.New()
		h.Write(prefix)
		h.Write(seed)
		h.Write([]byte{byte(b)})
		sum := h.Sum(nil)

		var out chainhash.Hash
		copy(out[:], sum)
		if out[0]&0x01 == 1 {
			return out, byte(b)
		}
	}
	// Unreachable for any real seed: roughly half of all bump values
	// satisfy the predicate, so 256 tries never exhaust without a hit.
	panic("escrow: no valid bump found for seed")
}

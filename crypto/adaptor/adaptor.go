// Package adaptor implements verification and secret extraction for
// secp256k1 adaptor signatures used by the escrow redemption path.
package adaptor

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ErrInvalidAdaptorSig is returned for every rejection condition in
// Verify: malformed parity, an all-zero input, failed recovery, or a
// recovered key whose x-coordinate does not match the committed point.
var ErrInvalidAdaptorSig = errors.New("adaptor: invalid adaptor signature")

// ErrZeroSecret is returned when the extracted scalar reduces to zero.
var ErrZeroSecret = errors.New("adaptor: extracted secret is zero")

// SigLen is the length in bytes of the r||s signature component.
const SigLen = 64

// Verify checks an adaptor signature (r||s) against a committed curve
// point T (x-only, compressed form) and a 32-byte message, and on
// success returns the discrete-log secret t such that T = t*G.
//
// sig is r (32 bytes, big-endian) concatenated with s (32 bytes,
// big-endian). parity selects which y-coordinate the recovered public
// key should have (0 or 1), mirroring the encoding used by compact
// ECDSA recovery. T and message must each be exactly 32 bytes.
func Verify(sig []byte, parity byte, t, message []byte) ([32]byte, error) {
	var secret [32]byte

	if parity > 1 {
		return secret, ErrInvalidAdaptorSig
	}
	if len(sig) != SigLen || len(t) != 32 || len(message) != 32 {
		return secret, ErrInvalidAdaptorSig
	}
	if isAllZero(sig) || isAllZero(t) || isAllZero(message) {
		return secret, ErrInvalidAdaptorSig
	}

	r := sig[:32]
	s := sig[32:]

	pub, err := recoverPublicKey(r, s, parity, message)
	if err != nil {
		return secret, ErrInvalidAdaptorSig
	}

	// Constant-time comparison of the recovered key's x-coordinate
	// against the committed point: accumulate equality without
	// branching on intermediate results.
	compressed := pub.SerializeCompressed()
	if subtle.ConstantTimeCompare(compressed[1:], t) != 1 {
		return secret, ErrInvalidAdaptorSig
	}

	// Challenge e = SHA-256(r || T || message).
	h := sha256.New()
	h.Write(r)
	h.Write(t)
	h.Write(message)
	e := h.Sum(nil)

	secretScalar, err := extractSecret(s, e)
	if err != nil {
		return secret, err
	}

	bytes := secretScalar.Bytes()
	return bytes, nil
}

// extractSecret computes (s - e) mod n using constant-time modular
// scalar arithmetic over the secp256k1 group order, normalizing any
// borrow by the field's own reduction. The zero scalar is rejected.
func extractSecret(s, e []byte) (*secp256k1.ModNScalar, error) {
	var sScalar, eScalar secp256k1.ModNScalar
	sScalar.SetByteSlice(s)
	eScalar.SetByteSlice(e)

	// t = s + (-e) mod n; ModNScalar arithmetic is constant-time
	// across the full 256 bits by construction, and Negate/Add fold
	// the final-borrow correction into the field reduction itself.
	t := new(secp256k1.ModNScalar).Set(&sScalar)
	t.Add(eScalar.Negate())

	if t.IsZero() {
		return nil, ErrZeroSecret
	}
	return t, nil
}

// recoverPublicKey performs ECDSA public-key recovery over the
// compact-signature envelope: a single header byte encoding the
// recovery id plus the compressed-key convention, followed by r and s.
func recoverPublicKey(r, s []byte, parity byte, message []byte) (*btcec.PublicKey, error) {
	compact := make([]byte, 65)
	compact[0] = 27 + 4 + parity // compressed pubkey, recovery id = parity
	copy(compact[1:33], r)
	copy(compact[33:65], s)

	pub, _, err := ecdsa.RecoverCompact(compact, message)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func isAllZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}

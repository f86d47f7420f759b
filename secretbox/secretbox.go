// Package secretbox implements the opaque secret container required
// by spec.md §5/§9: private keys, wallet credentials, and derived
// encryption keys live here, pinned out of swap, zero-filled on every
// exit path, and never cloned into a log line.
package secretbox

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/sys/unix"
)

// ErrClosed is returned by any access attempted after Close.
var ErrClosed = errors.New("secretbox: secret has been closed")

const nonceLen = 24

// Secret is a scoped container for sensitive byte material. Its
// backing memory is mlock'd so the kernel never swaps it to disk, and
// every exit path — success, panic recovery in the caller, or an
// explicit Close — must zero it. Secret is safe for concurrent use.
type Secret struct {
	mu     sync.Mutex
	buf    []byte
	closed bool
}

// New copies plaintext into a freshly mlock'd buffer and returns a
// Secret owning it. The caller's plaintext slice is not modified;
// callers that generated it themselves should zero it separately.
func New(plaintext []byte) (*Secret, error) {
	buf := make([]byte, len(plaintext))
	copy(buf, plaintext)

	if len(buf) > 0 {
		if err := unix.Mlock(buf); err != nil {
			zero(buf)
			return nil, fmt.Errorf("secretbox: mlock: %w", err)
		}
	}
	return &Secret{buf: buf}, nil
}

// With invokes fn with the secret's plaintext bytes. The slice passed
// to fn is only valid for the duration of the call and must not be
// retained.
func (s *Secret) With(fn func(plaintext []byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return fn(s.buf)
}

// WithCredentials satisfies chainadapter/monero's CredentialSource:
// it splits the secret's plaintext on the first ':' into user/pass
// and invokes fn with both.
func (s *Secret) WithCredentials(fn func(user, pass string) error) error {
	return s.With(func(plaintext []byte) error {
		for i, b := range plaintext {
			if b == ':' {
				return fn(string(plaintext[:i]), string(plaintext[i+1:]))
			}
		}
		return fmt.Errorf("secretbox: credential secret missing ':' separator")
	})
}

// Close zero-fills and unlocks the backing memory. Subsequent With
// calls return ErrClosed. Close is idempotent.
func (s *Secret) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if len(s.buf) > 0 {
		zero(s.buf)
		_ = unix.Munlock(s.buf)
	}
	s.buf = nil
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// SealedBox is an at-rest, nacl/secretbox-encrypted blob: the
// persistable form of a secret, as opposed to one held live in a
// Secret. No other package in this module persists one.
type SealedBox struct {
	nonce      [nonceLen]byte
	ciphertext []byte
}

// Seal encrypts plaintext under key using a fresh random nonce.
func Seal(key *[32]byte, plaintext []byte) (*SealedBox, error) {
	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("secretbox: generate nonce: %w", err)
	}
	out := secretbox.Seal(nil, plaintext, &nonce, key)
	return &SealedBox{nonce: nonce, ciphertext: out}, nil
}

// Open decrypts the box under key, returning the plaintext as a
// freshly allocated, mlock'd Secret.
func (b *SealedBox) Open(key *[32]byte) (*Secret, error) {
	plaintext, ok := secretbox.Open(nil, b.ciphertext, &b.nonce, key)
	if !ok {
		return nil, errors.New("secretbox: decryption failed: wrong key or corrupt ciphertext")
	}
	defer zero(plaintext)
	return New(plaintext)
}

// Bytes returns the wire form of the sealed box: nonce followed by
// ciphertext, suitable for storing in a single BLOB column.
func (b *SealedBox) Bytes() []byte {
	out := make([]byte, nonceLen+len(b.ciphertext))
	copy(out, b.nonce[:])
	copy(out[nonceLen:], b.ciphertext)
	return out
}

// ParseSealedBox reconstructs a SealedBox from the wire form Bytes
// produced.
func ParseSealedBox(data []byte) (*SealedBox, error) {
	if len(data) < nonceLen {
		return nil, fmt.Errorf("secretbox: sealed box too short: %d bytes", len(data))
	}
	b := &SealedBox{ciphertext: make([]byte, len(data)-nonceLen)}
	copy(b.nonce[:], data[:nonceLen])
	copy(b.ciphertext, data[nonceLen:])
	return b, nil
}

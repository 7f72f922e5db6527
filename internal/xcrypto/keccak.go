// Package xcrypto wraps the Keccak-256 primitive used to verify snapshot
// chunks, hash received transactions and key the bad-hash bloom filter.
// Grounded on ProbeChain-go-probe/crypto,
// which builds KeccakState on top of golang.org/x/crypto/sha3.
package xcrypto

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// Hash256 is a 32-byte Keccak-256 digest.
type Hash256 [32]byte

// KeccakState wraps the legacy Keccak-256 sponge, matching the teacher's
// crypto.KeccakState: a hash.Hash that can also Read digest bytes without
// resetting its internal state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// NewKeccakState returns a fresh Keccak-256 sponge.
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// Keccak256 digests the concatenation of data into a 32-byte hash.
func Keccak256(data ...[]byte) Hash256 {
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	var h Hash256
	d.Read(h[:])
	return h
}

// Keccak256Uint64 folds a Keccak-256 digest down to 64 bits for use as a
// bloom-filter hash key (see sync/snapshot).
func Keccak256Uint64(data ...[]byte) uint64 {
	h := Keccak256(data...)
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(h[i])
	}
	return v
}

// Package ctypes holds the small set of value types shared across the
// chainsync core: hashes, peer ids and block identifiers. It intentionally
// stays thin — full block/transaction encoding belongs to the Chain Client
// collaborator (spec.md §1), out of scope here.
package ctypes

import (
	"encoding/hex"
	"fmt"
)

// Hash is a 32-byte Keccak-256 digest — a block hash, tx hash, manifest
// hash or chunk hash.
type Hash [32]byte

// Hex renders the hash as a 0x-prefixed lowercase hex string.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether the hash is the zero value (commonly used as
// "no hash configured" in optional fields).
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// BytesToHash left-pads (truncating from the left if too long) b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > len(h) {
		b = b[len(b)-len(h):]
	}
	copy(h[len(h)-len(b):], b)
	return h
}

// PeerID identifies a connected remote peer. Ownership of the underlying
// cryptographic identity belongs to the Network I/O collaborator; chainsync
// only ever sees this opaque string.
type PeerID string

func (p PeerID) String() string { return string(p) }

// BlockID addresses a block either by hash or by number, as used in
// GetBlockHeaders requests (spec.md §4.5).
type BlockID struct {
	Hash   Hash
	Number uint64
	ByHash bool
}

func BlockIDByHash(h Hash) BlockID     { return BlockID{Hash: h, ByHash: true} }
func BlockIDByNumber(n uint64) BlockID { return BlockID{Number: n, ByHash: false} }

func (b BlockID) String() string {
	if b.ByHash {
		return b.Hash.Hex()
	}
	return fmt.Sprintf("#%d", b.Number)
}

// Package snapshot implements the SnapshotDownloader contract from
// spec.md §4.3: manifest tracking, pending/completed chunk sets and a
// probabilistic bad-hash blacklist.
//
// Grounded on probe/handler.go's use of trie.NewSyncBloom for a
// session-scoped probabilistic filter (here replaced with
// holiman/bloomfilter/v2 directly — trie.SyncBloom's fastcache-backed
// persistence belongs to the Chain Client's disk layer, out of this
// module's scope) and on original_source/ethcore/sync/src/chain/mod.rs
// for the manifest/pending/completed/bad state shape.
package snapshot

import (
	"sort"
	"sync"

	"github.com/holiman/bloomfilter/v2"

	"github.com/relaychain/go-relay/internal/xcrypto"
	"github.com/relaychain/go-relay/sync/ctypes"
)

// ChunkKind classifies a validated chunk (spec.md §4.3).
type ChunkKind int

const (
	ChunkUnknown ChunkKind = iota
	ChunkBlock
	ChunkState
)

// Downloader tracks one in-progress snapshot restoration.
type Downloader struct {
	mu sync.Mutex

	manifestHash *ctypes.Hash

	pending   map[ctypes.Hash]ChunkKind
	completed map[ctypes.Hash]ChunkKind

	bad      *bloomfilter.Filter
	badExact map[ctypes.Hash]struct{} // avoids the bloom filter's false-positive risk on IsKnownBad
}

// New constructs an idle SnapshotDownloader. The bloom filter has 1<<20
// bits and 8 hash functions, which keeps its false-positive rate under 1%
// up to roughly 100,000 entries — more than enough for a session's worth
// of bad manifests/chunks.
func New() *Downloader {
	bad, err := bloomfilter.New(1<<20, 8)
	if err != nil {
		// bloomfilter.New only fails on invalid (m, k); both are
		// compile-time constants here, so this is unreachable.
		panic(err)
	}
	return &Downloader{
		pending:   make(map[ctypes.Hash]ChunkKind),
		completed: make(map[ctypes.Hash]ChunkKind),
		bad:       bad,
		badExact:  make(map[ctypes.Hash]struct{}),
	}
}

// ResetTo seeds pending from the manifest's block-chunk and state-chunk
// hashes (spec.md §4.3).
func (d *Downloader) ResetTo(manifestHash ctypes.Hash, blockChunks, stateChunks []ctypes.Hash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manifestHash = &manifestHash
	d.pending = make(map[ctypes.Hash]ChunkKind, len(blockChunks)+len(stateChunks))
	d.completed = make(map[ctypes.Hash]ChunkKind)
	for _, h := range blockChunks {
		d.pending[h] = ChunkBlock
	}
	for _, h := range stateChunks {
		d.pending[h] = ChunkState
	}
}

// ManifestHash returns the hash of the manifest currently being restored,
// if any.
func (d *Downloader) ManifestHash() (ctypes.Hash, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.manifestHash == nil {
		return ctypes.Hash{}, false
	}
	return *d.manifestHash, true
}

// ValidateChunk verifies bytes hashes to a pending chunk, moves it to
// completed, and classifies it (spec.md §4.3).
func (d *Downloader) ValidateChunk(bytes []byte) (ctypes.Hash, ChunkKind, error) {
	hash := ctypes.Hash(xcrypto.Keccak256(bytes))

	d.mu.Lock()
	defer d.mu.Unlock()

	kind, ok := d.pending[hash]
	if !ok {
		return hash, ChunkUnknown, errUnknownChunk
	}
	delete(d.pending, hash)
	d.completed[hash] = kind
	return hash, kind, nil
}

// ClearChunkDownload is a no-op: the snapshot downloader keeps no
// per-chunk in-flight marker, so a chunk whose download was abandoned
// simply stays pending (spec.md §4.3).
func (d *Downloader) ClearChunkDownload(hash ctypes.Hash) {
	// Pending/downloading bookkeeping beyond the map above is the
	// caller's (Requester's) responsibility via Peer.AskingSnapshotData;
	// nothing to release on the manifest side itself.
	_ = hash
}

// IsComplete reports whether every chunk has been validated.
func (d *Downloader) IsComplete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.manifestHash != nil && len(d.pending) == 0
}

// DoneChunks / TotalChunks report restoration progress (spec.md §4.3).
func (d *Downloader) DoneChunks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.completed)
}

func (d *Downloader) TotalChunks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending) + len(d.completed)
}

// Pending returns up to n pending chunk hashes, for the Requester to pick
// from (deterministic order for test reproducibility).
func (d *Downloader) Pending(n int) []ctypes.Hash {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ctypes.Hash, 0, len(d.pending))
	for h := range d.pending {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		for k := range out[i] {
			if out[i][k] != out[j][k] {
				return out[i][k] < out[j][k]
			}
		}
		return false
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// NoteBad blacklists a manifest or chunk hash — e.g. a manifest whose
// restoration the Snapshot Service reported Failed (spec.md §4.1).
func (d *Downloader) NoteBad(hash ctypes.Hash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bad.AddHash(xcrypto.Keccak256Uint64(hash[:]))
	d.badExact[hash] = struct{}{}
}

// IsKnownBad reports whether hash was previously blacklisted. The bloom
// filter alone would admit false positives; badExact resolves them so a
// false positive never wrongly blocks a good manifest.
func (d *Downloader) IsKnownBad(hash ctypes.Hash) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.bad.ContainsHash(xcrypto.Keccak256Uint64(hash[:])) {
		return false
	}
	_, exact := d.badExact[hash]
	return exact
}

var errUnknownChunk = chunkError("snapshot: chunk hash not pending")

type chunkError string

func (e chunkError) Error() string { return string(e) }

package wire

import "github.com/relaychain/go-relay/sync/ctypes"

// StatusPacket is the first packet exchanged on a connection (spec.md
// §4.4, §4.5). ManifestHash/ManifestNumber are only populated when the
// warp sub-protocol is negotiated and no ancient backfill is active — the
// "5- or 7-tuple" distinction from spec.md §4.5.
type StatusPacket struct {
	ProtocolVersion uint
	NetworkID       uint64
	TotalDifficulty []byte // big-endian minimal-length uint256
	BestHash        ctypes.Hash
	GenesisHash     ctypes.Hash

	ManifestHash   *ctypes.Hash
	ManifestNumber *uint64
}

// GetBlockHeadersPacket requests a run of headers starting at Origin,
// collecting Amount headers with Skip gaps, optionally walking backwards.
type GetBlockHeadersPacket struct {
	Origin  ctypes.BlockID
	Amount  uint64
	Skip    uint64
	Reverse bool
}

// BlockHeadersPacket carries raw encoded headers; the binary codec and
// header decoding live outside this module's scope, so headers are
// represented as opaque byte blobs the BlockDownloader knows how to
// interpret via the HeaderView contract (see sync/downloader).
type BlockHeadersPacket struct {
	Headers [][]byte
}

// GetBlockBodiesPacket requests bodies for the given header hashes.
type GetBlockBodiesPacket struct {
	Hashes []ctypes.Hash
}

// BlockBodiesPacket carries raw encoded bodies, keyed positionally to the
// requested hashes.
type BlockBodiesPacket struct {
	Bodies [][]byte
}

// NewBlockPacket announces a freshly sealed or received block together
// with its total difficulty.
type NewBlockPacket struct {
	Block           []byte // opaque encoded block
	Hash            ctypes.Hash
	ParentHash      ctypes.Hash
	Number          uint64
	TotalDifficulty []byte
}

// NewBlockHashesPacket announces block hashes without their bodies.
type NewBlockHashesPacket struct {
	Hashes  []ctypes.Hash
	Numbers []uint64
}

// GetReceiptsPacket requests receipts for the given block hashes.
type GetReceiptsPacket struct {
	Hashes []ctypes.Hash
}

// ReceiptsPacket carries raw encoded receipt lists, positionally keyed.
type ReceiptsPacket struct {
	Receipts [][]byte
}

// GetNodeDataPacket requests raw trie/state nodes (served by the Supplier
// on behalf of the Chain Client; chainsync never consumes NodeData itself).
type GetNodeDataPacket struct {
	Hashes []ctypes.Hash
}

type NodeDataPacket struct {
	Data [][]byte
}

// GetSnapshotManifestPacket / SnapshotManifestPacket exchange the snapshot
// descriptor (spec.md §4.3).
type GetSnapshotManifestPacket struct{}

type SnapshotManifestPacket struct {
	Version     uint
	BlockNumber uint64
	BlockHash   ctypes.Hash
	StateHashes []ctypes.Hash
	BlockHashes []ctypes.Hash
}

// GetSnapshotDataPacket requests one chunk by hash.
type GetSnapshotDataPacket struct {
	ChunkHash ctypes.Hash
}

type SnapshotDataPacket struct {
	Data []byte
}

// TransactionsPacket carries full transactions for mempool admission.
type TransactionsPacket struct {
	Transactions [][]byte
}

// ConsensusPacket / PrivateTransactionPacket / SignedPrivateTransactionPacket
// are forwarded verbatim to their respective external collaborators
// (spec.md §4.4) — chainsync never interprets their payload.
type ConsensusPacket struct{ Data []byte }
type PrivateTransactionPacket struct{ Data []byte }
type SignedPrivateTransactionPacket struct{ Data []byte }

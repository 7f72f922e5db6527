package sync

import (
	"github.com/relaychain/go-relay/sync/ctypes"
	"github.com/relaychain/go-relay/sync/wire"
)

// NetworkIO is the peer I/O abstraction (spec.md §1, §6): sends packets,
// disconnects peers, reports per-peer capability. It is injected per call,
// never stored — spec.md §9's "dynamic dispatch over I/O" design note.
type NetworkIO interface {
	SendStatus(peer ctypes.PeerID, pkt wire.StatusPacket) error
	SendGetBlockHeaders(peer ctypes.PeerID, pkt wire.GetBlockHeadersPacket) error
	SendGetBlockBodies(peer ctypes.PeerID, pkt wire.GetBlockBodiesPacket) error
	SendGetReceipts(peer ctypes.PeerID, pkt wire.GetReceiptsPacket) error
	SendGetNodeData(peer ctypes.PeerID, pkt wire.GetNodeDataPacket) error
	SendGetSnapshotManifest(peer ctypes.PeerID) error
	SendGetSnapshotData(peer ctypes.PeerID, chunk ctypes.Hash) error

	SendBlockHeaders(peer ctypes.PeerID, pkt wire.BlockHeadersPacket) error
	SendBlockBodies(peer ctypes.PeerID, pkt wire.BlockBodiesPacket) error
	SendReceipts(peer ctypes.PeerID, pkt wire.ReceiptsPacket) error
	SendNodeData(peer ctypes.PeerID, pkt wire.NodeDataPacket) error
	SendSnapshotManifest(peer ctypes.PeerID, pkt wire.SnapshotManifestPacket) error
	SendSnapshotData(peer ctypes.PeerID, pkt wire.SnapshotDataPacket) error

	SendNewBlock(peer ctypes.PeerID, pkt wire.NewBlockPacket) error
	SendNewBlockHashes(peer ctypes.PeerID, pkt wire.NewBlockHashesPacket) error
	SendTransactions(peer ctypes.PeerID, pkt wire.TransactionsPacket) error
	SendConsensus(peer ctypes.PeerID, pkt wire.ConsensusPacket) error
	SendPrivateTransaction(peer ctypes.PeerID, pkt wire.PrivateTransactionPacket) error
	SendSignedPrivateTransaction(peer ctypes.PeerID, pkt wire.SignedPrivateTransactionPacket) error

	Disconnect(peer ctypes.PeerID)
	PeerProtocol(peer ctypes.PeerID) wire.Protocol
}

// BlockStatus mirrors the chain client's block_status contract (spec.md §6).
type BlockStatus int

const (
	StatusUnknown BlockStatus = iota
	StatusInChain
	StatusQueued
	StatusPending
	StatusBad
)

// ImportResult mirrors import_block's result set (spec.md §6).
type ImportResult int

const (
	ImportOk ImportResult = iota
	ImportAlreadyInChain
	ImportAlreadyQueued
	ImportUnknownParent
	ImportBadBlock
)

// QueueInfo is the chain client's back-pressure signal (spec.md §6).
type QueueInfo struct {
	Unverified int
	Verified   int
	Verifying  int
	Max        int
	MemUsed    uint64
	MaxMem     uint64
}

func (q QueueInfo) Full() bool {
	return q.Unverified+q.Verified+q.Verifying >= q.Max || q.MemUsed >= q.MaxMem
}

func (q QueueInfo) Empty() bool {
	return q.Unverified == 0 && q.Verified == 0 && q.Verifying == 0
}

// ChainInfo mirrors chain_info (spec.md §6).
type ChainInfo struct {
	BestHash               ctypes.Hash
	BestNumber             uint64
	TotalDifficulty        []byte
	PendingTotalDifficulty []byte
	GenesisHash            ctypes.Hash
	FirstBlockHash         *ctypes.Hash
	FirstBlockNumber       *uint64
	AncientBlockHash       *ctypes.Hash
	AncientBlockNumber     *uint64
}

// ChainClient is the Chain Client collaborator (spec.md §1, §6): consumes
// byte-encoded blocks, exposes chain-info/block-status/queue-info.
type ChainClient interface {
	ChainInfo() ChainInfo
	BlockStatus(id ctypes.BlockID) BlockStatus
	ImportBlock(raw []byte) (ImportResult, error)
	QueueInfo() QueueInfo
	QueueTransactions(batch [][]byte, from ctypes.PeerID)
	QueueConsensusMessage(raw []byte)
}

// SnapshotServiceStatus mirrors the restoration status enum (spec.md §6).
type SnapshotServiceStatus int

const (
	RestoreInactive SnapshotServiceStatus = iota
	RestoreFailed
	RestoreOngoing
)

// ManifestData is the decoded snapshot manifest (spec.md §4.3, §6).
type ManifestData struct {
	Version     uint
	BlockNumber uint64
	BlockHash   ctypes.Hash
	StateHashes []ctypes.Hash
	BlockHashes []ctypes.Hash
}

// SnapshotService is the Snapshot Service collaborator (spec.md §1, §6).
type SnapshotService interface {
	SupportedVersions() (low, high uint, ok bool)
	BeginRestore(manifest ManifestData)
	AbortRestore()
	RestoreBlockChunk(hash ctypes.Hash, data []byte) error
	RestoreStateChunk(hash ctypes.Hash, data []byte) error
	Status() (status SnapshotServiceStatus, stateChunksDone int, blockChunksDone int)
	Manifest() *ManifestData
}

// PrivateTxHandler forwards raw private-transaction bytes (spec.md §1, §4.4).
type PrivateTxHandler interface {
	HandlePrivateTransaction(peer ctypes.PeerID, raw []byte) error
	HandleSignedPrivateTransaction(peer ctypes.PeerID, raw []byte) error
}

// IO bundles every capability a handler might need for a single call,
// matching spec.md §9's "io parameter" design note.
type IO struct {
	Net       NetworkIO
	Chain     ChainClient
	Snapshot  SnapshotService
	PrivateTx PrivateTxHandler
}

package sync

import (
	"github.com/relaychain/go-relay/sync/ctypes"
	"github.com/relaychain/go-relay/sync/wire"
)

// fakeNetworkIO records every packet sent to every peer, for assertions in
// the Requester/Propagator/Supplier tests.
type fakeNetworkIO struct {
	sent        []sentPacket
	disconnects []ctypes.PeerID
	protocols   map[ctypes.PeerID]wire.Protocol
}

type sentPacket struct {
	peer ctypes.PeerID
	kind string
	data interface{}
}

func newFakeNetworkIO() *fakeNetworkIO {
	return &fakeNetworkIO{protocols: make(map[ctypes.PeerID]wire.Protocol)}
}

func (f *fakeNetworkIO) record(peer ctypes.PeerID, kind string, data interface{}) {
	f.sent = append(f.sent, sentPacket{peer: peer, kind: kind, data: data})
}

func (f *fakeNetworkIO) countKind(kind string) int {
	n := 0
	for _, p := range f.sent {
		if p.kind == kind {
			n++
		}
	}
	return n
}

func (f *fakeNetworkIO) SendStatus(peer ctypes.PeerID, pkt wire.StatusPacket) error {
	f.record(peer, "Status", pkt)
	return nil
}
func (f *fakeNetworkIO) SendGetBlockHeaders(peer ctypes.PeerID, pkt wire.GetBlockHeadersPacket) error {
	f.record(peer, "GetBlockHeaders", pkt)
	return nil
}
func (f *fakeNetworkIO) SendGetBlockBodies(peer ctypes.PeerID, pkt wire.GetBlockBodiesPacket) error {
	f.record(peer, "GetBlockBodies", pkt)
	return nil
}
func (f *fakeNetworkIO) SendGetReceipts(peer ctypes.PeerID, pkt wire.GetReceiptsPacket) error {
	f.record(peer, "GetReceipts", pkt)
	return nil
}
func (f *fakeNetworkIO) SendGetNodeData(peer ctypes.PeerID, pkt wire.GetNodeDataPacket) error {
	f.record(peer, "GetNodeData", pkt)
	return nil
}
func (f *fakeNetworkIO) SendGetSnapshotManifest(peer ctypes.PeerID) error {
	f.record(peer, "GetSnapshotManifest", nil)
	return nil
}
func (f *fakeNetworkIO) SendGetSnapshotData(peer ctypes.PeerID, chunk ctypes.Hash) error {
	f.record(peer, "GetSnapshotData", chunk)
	return nil
}
func (f *fakeNetworkIO) SendBlockHeaders(peer ctypes.PeerID, pkt wire.BlockHeadersPacket) error {
	f.record(peer, "BlockHeaders", pkt)
	return nil
}
func (f *fakeNetworkIO) SendBlockBodies(peer ctypes.PeerID, pkt wire.BlockBodiesPacket) error {
	f.record(peer, "BlockBodies", pkt)
	return nil
}
func (f *fakeNetworkIO) SendReceipts(peer ctypes.PeerID, pkt wire.ReceiptsPacket) error {
	f.record(peer, "Receipts", pkt)
	return nil
}
func (f *fakeNetworkIO) SendNodeData(peer ctypes.PeerID, pkt wire.NodeDataPacket) error {
	f.record(peer, "NodeData", pkt)
	return nil
}
func (f *fakeNetworkIO) SendSnapshotManifest(peer ctypes.PeerID, pkt wire.SnapshotManifestPacket) error {
	f.record(peer, "SnapshotManifest", pkt)
	return nil
}
func (f *fakeNetworkIO) SendSnapshotData(peer ctypes.PeerID, pkt wire.SnapshotDataPacket) error {
	f.record(peer, "SnapshotData", pkt)
	return nil
}
func (f *fakeNetworkIO) SendNewBlock(peer ctypes.PeerID, pkt wire.NewBlockPacket) error {
	f.record(peer, "NewBlock", pkt)
	return nil
}
func (f *fakeNetworkIO) SendNewBlockHashes(peer ctypes.PeerID, pkt wire.NewBlockHashesPacket) error {
	f.record(peer, "NewBlockHashes", pkt)
	return nil
}
func (f *fakeNetworkIO) SendTransactions(peer ctypes.PeerID, pkt wire.TransactionsPacket) error {
	f.record(peer, "Transactions", pkt)
	return nil
}
func (f *fakeNetworkIO) SendConsensus(peer ctypes.PeerID, pkt wire.ConsensusPacket) error {
	f.record(peer, "Consensus", pkt)
	return nil
}
func (f *fakeNetworkIO) SendPrivateTransaction(peer ctypes.PeerID, pkt wire.PrivateTransactionPacket) error {
	f.record(peer, "PrivateTransaction", pkt)
	return nil
}
func (f *fakeNetworkIO) SendSignedPrivateTransaction(peer ctypes.PeerID, pkt wire.SignedPrivateTransactionPacket) error {
	f.record(peer, "SignedPrivateTransaction", pkt)
	return nil
}
func (f *fakeNetworkIO) Disconnect(peer ctypes.PeerID) {
	f.disconnects = append(f.disconnects, peer)
}
func (f *fakeNetworkIO) PeerProtocol(peer ctypes.PeerID) wire.Protocol {
	if proto, ok := f.protocols[peer]; ok {
		return proto
	}
	return wire.Eth63
}

// fakeChainClient is a minimal, fully in-memory ChainClient stand-in.
type fakeChainClient struct {
	info        ChainInfo
	status      map[ctypes.Hash]BlockStatus
	importCalls [][]byte
	importErr   error
	importRes   ImportResult
	queueInfo   QueueInfo
	txQueued    [][]byte
	consensus   [][]byte
}

func newFakeChainClient() *fakeChainClient {
	return &fakeChainClient{status: make(map[ctypes.Hash]BlockStatus)}
}

func (f *fakeChainClient) ChainInfo() ChainInfo { return f.info }
func (f *fakeChainClient) BlockStatus(id ctypes.BlockID) BlockStatus {
	if s, ok := f.status[id.Hash]; ok {
		return s
	}
	return StatusUnknown
}
func (f *fakeChainClient) ImportBlock(raw []byte) (ImportResult, error) {
	f.importCalls = append(f.importCalls, raw)
	return f.importRes, f.importErr
}
func (f *fakeChainClient) QueueInfo() QueueInfo { return f.queueInfo }
func (f *fakeChainClient) QueueTransactions(batch [][]byte, from ctypes.PeerID) {
	f.txQueued = append(f.txQueued, batch...)
}
func (f *fakeChainClient) QueueConsensusMessage(raw []byte) {
	f.consensus = append(f.consensus, raw)
}

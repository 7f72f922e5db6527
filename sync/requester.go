package sync

import (
	"time"

	"github.com/relaychain/go-relay/sync/ctypes"
	"github.com/relaychain/go-relay/sync/wire"
)

// requestSnapshotManifestLocked sends GetSnapshotManifest to p and marks it
// busy (spec.md §4.1 WaitingPeers -> SnapshotManifest transition).
func (cs *ChainSync) requestSnapshotManifestLocked(io IO, p *Peer) {
	p.SetAsking(AskingSnapshotManifest, time.Now())
	if io.Net != nil {
		io.Net.SendGetSnapshotManifest(p.ID)
	}
}

// requestForkHeaderLocked sends a single-header GetBlockHeaders probe for
// the configured fork checkpoint, used during the confirmation handshake
// (spec.md §4.4 "fork-header handshake").
func (cs *ChainSync) requestForkHeaderLocked(io IO, p *Peer) {
	if cs.cfg.ForkBlock == nil {
		p.Confirmation = Confirmed
		return
	}
	p.SetAsking(AskingForkHeader, time.Now())
	hash := cs.cfg.ForkBlock.Hash
	p.AskingHash = &hash
	if io.Net != nil {
		io.Net.SendGetBlockHeaders(p.ID, wire.GetBlockHeadersPacket{
			Origin: ctypes.BlockIDByNumber(cs.cfg.ForkBlock.Number),
			Amount: 1,
		})
	}
}

// requestNodeDataLocked sends a GetNodeData request for hashes to peer.
// Nothing in this package calls it, and chainsync never interprets
// NodeData itself.
func (cs *ChainSync) requestNodeDataLocked(io IO, peer ctypes.PeerID, hashes []ctypes.Hash) {
	if io.Net == nil {
		return
	}
	io.Net.SendGetNodeData(peer, wire.GetNodeDataPacket{Hashes: hashes})
}

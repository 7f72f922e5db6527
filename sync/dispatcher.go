package sync

import (
	"github.com/holiman/uint256"

	"github.com/relaychain/go-relay/internal/xcrypto"
	"github.com/relaychain/go-relay/sync/ctypes"
	"github.com/relaychain/go-relay/sync/downloader"
	"github.com/relaychain/go-relay/sync/wire"
)

// OnStatus handles the first packet on a connection, validating the
// handshake before promoting the peer to the registry (spec.md §4.4,
// §4.5). Genesis/network mismatches and unsupported versions are
// Disabling; everything else proceeds to the fork-header confirmation.
func (cs *ChainSync) OnStatus(io IO, id ctypes.PeerID, pkt wire.StatusPacket, ourGenesis ctypes.Hash) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if pkt.GenesisHash != ourGenesis {
		return errBadGenesis
	}
	if pkt.NetworkID != cs.cfg.NetworkID {
		return errBadNetwork
	}
	proto := io.Net.PeerProtocol(id)
	if proto.Version == 0 {
		return errUnsupportedVersion
	}

	p := NewPeer(id, proto.Version)
	p.GenesisHash = pkt.GenesisHash
	p.NetworkID = pkt.NetworkID
	td := new(uint256.Int)
	td.SetBytes(pkt.TotalDifficulty)
	p.SetHead(pkt.BestHash, td)
	if pkt.ManifestHash != nil {
		p.SnapshotHash = pkt.ManifestHash
		p.SnapshotNumber = pkt.ManifestNumber
	}
	cs.peers.Register(p)
	cs.noteHighestBlock(0)

	cs.requestForkHeaderLocked(io, p)
	return nil
}

// OnBlockHeaders routes a BlockHeaders response either to the fork-header
// confirmation check or to the owning BlockDownloader (spec.md §4.4).
func (cs *ChainSync) OnBlockHeaders(io IO, id ctypes.PeerID, headers []*downloader.HeaderView) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	p := cs.peers.Get(id)
	if p == nil {
		return errPeerNotRegistered
	}

	switch p.Asking {
	case AskingForkHeader:
		return cs.handleForkHeaderReplyLocked(io, p, headers)
	case AskingBlockHeaders:
		return cs.handleBlockHeadersReplyLocked(io, p, headers)
	default:
		// Unsolicited — ignore rather than penalise (spec.md §7).
		return nil
	}
}

func (cs *ChainSync) handleForkHeaderReplyLocked(io IO, p *Peer, headers []*downloader.HeaderView) error {
	anchor := p.AskingHash
	p.ClearAsking(false)
	if len(headers) == 0 {
		p.Confirmation = TooShort
		cs.continueSyncLocked(io)
		return nil
	}
	if cs.cfg.ForkBlock != nil && anchor != nil {
		if headers[0].Hash != cs.cfg.ForkBlock.Hash {
			return errForkMismatch
		}
	}
	p.Confirmation = Confirmed
	cs.continueSyncLocked(io)
	return nil
}

func (cs *ChainSync) handleBlockHeadersReplyLocked(io IO, p *Peer, headers []*downloader.HeaderView) error {
	anchor := p.AskingHash
	set := p.BlockSet
	wasExpired := p.Expired
	p.ClearAsking(false)
	if anchor == nil {
		return nil
	}
	if wasExpired {
		// A late reply from an already-expired request is dropped, not
		// penalised (spec.md §3) — some other peer's Reset already
		// abandoned this block_set's round.
		cs.continueSyncLocked(io)
		return nil
	}

	dl := cs.downloaderFor(set)
	outcome, err := dl.ImportHeaders(p.ID, *anchor, headers)
	if err != nil {
		if downloader.IsInvalid(err) {
			return errInvalidHeaders
		}
		if downloader.IsUseless(err) {
			cs.stats.UselessResponses++
			cs.continueSyncLocked(io)
			return nil
		}
		return err
	}
	if outcome == downloader.OutcomeReset {
		cs.expireBlockSetLocked(set)
	}
	cs.continueSyncLocked(io)
	return nil
}

// OnBlockBodies joins a batch of decoded bodies to their headers via the
// owning downloader (spec.md §4.2).
func (cs *ChainSync) OnBlockBodies(io IO, id ctypes.PeerID, bodies map[ctypes.Hash]*downloader.BodyView) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	p := cs.peers.Get(id)
	if p == nil {
		return errPeerNotRegistered
	}
	if p.Asking != AskingBlockBodies {
		return nil
	}
	set := p.BlockSet
	wasExpired := p.Expired
	p.ClearAsking(false)
	if wasExpired {
		cs.continueSyncLocked(io)
		return nil
	}

	dl := cs.downloaderFor(set)
	_, err := dl.ImportBodies(p.ID, bodies)
	if err != nil {
		if downloader.IsUseless(err) {
			cs.stats.UselessResponses++
			cs.continueSyncLocked(io)
			return nil
		}
		return errInvalidBody
	}
	cs.collectAndImportLocked(io, set)
	cs.continueSyncLocked(io)
	return nil
}

// OnReceipts joins a batch of decoded receipts (spec.md §4.2).
func (cs *ChainSync) OnReceipts(io IO, id ctypes.PeerID, hashes []ctypes.Hash) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	p := cs.peers.Get(id)
	if p == nil {
		return errPeerNotRegistered
	}
	if p.Asking != AskingBlockReceipts {
		return nil
	}
	set := p.BlockSet
	wasExpired := p.Expired
	p.ClearAsking(false)
	if wasExpired {
		cs.continueSyncLocked(io)
		return nil
	}

	dl := cs.downloaderFor(set)
	if _, err := dl.ImportReceipts(p.ID, hashes); err != nil {
		if downloader.IsUseless(err) {
			cs.stats.UselessResponses++
		}
	}
	cs.continueSyncLocked(io)
	return nil
}

func (cs *ChainSync) downloaderFor(set BlockSet) *downloader.Downloader {
	if set == OldBlocks && cs.oldBlocks != nil {
		return cs.oldBlocks
	}
	return cs.newBlocks
}

func (cs *ChainSync) expireBlockSetLocked(set BlockSet) {
	for _, p := range cs.peers.All() {
		if p.BlockSet == set {
			p.Expired = true
		}
	}
}

// collectAndImportLocked walks collectBlocks for set's downloader,
// importing every fully assembled block into the chain client and folding
// ChainHead completions back to Idle (spec.md §4.2, §4.1).
func (cs *ChainSync) collectAndImportLocked(io IO, set BlockSet) {
	dl := cs.downloaderFor(set)
	blocks, becameChainHead := dl.CollectBlocks()
	for _, b := range blocks {
		if io.Chain == nil {
			continue
		}
		// Assembling a header and body into one RLP-encoded block is the
		// binary codec's job (out of scope here); we hand the chain client
		// both halves back to back and let it do the real decode.
		raw := append(append([]byte{}, b.Header.Raw...), b.Body.Raw...)
		result, err := io.Chain.ImportBlock(raw)
		if err != nil || result == ImportBadBlock {
			cs.restartLocked(io)
			return
		}
		cs.noteHighestBlock(b.Header.Number)
	}
	if becameChainHead || dl.IsComplete() {
		cs.completeSyncLocked()
	}
}

// OnNewBlock handles an unsolicited full-block announcement (spec.md
// §4.4): if the parent is known, import directly; otherwise force a
// header request at the advertised peer to splice in the missing chain.
func (cs *ChainSync) OnNewBlock(io IO, id ctypes.PeerID, pkt wire.NewBlockPacket) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	p := cs.peers.Get(id)
	if p == nil {
		return errPeerNotRegistered
	}
	td := new(uint256.Int)
	td.SetBytes(pkt.TotalDifficulty)
	p.SetHead(pkt.Hash, td)
	p.SetHeadNumber(pkt.Number)
	cs.noteHighestBlock(pkt.Number)

	last := cs.newBlocks.LastImportedBlockNumber()
	if last > pkt.Number && last-pkt.Number > wire.MaxNewBlockAge {
		return errStaleNewBlock
	}

	if io.Chain == nil {
		return nil
	}
	status := io.Chain.BlockStatus(ctypes.BlockIDByHash(pkt.ParentHash))
	if status == StatusInChain || status == StatusQueued {
		result, err := io.Chain.ImportBlock(pkt.Block)
		if err != nil || result == ImportBadBlock {
			cs.restartLocked(io)
			return nil
		}
		cs.continueSyncLocked(io)
		return nil
	}
	if !p.Busy() && p.CanSync() {
		cs.syncPeerLocked(io, p, true)
	}
	return nil
}

// OnNewBlockHashes re-anchors the forward downloader's subchain set at the
// announced hashes the chain client has neither in chain nor queued, when
// there is at least one such hash (spec.md §4.4
// "new_blocks.reset_to(new_hashes)").
func (cs *ChainSync) OnNewBlockHashes(io IO, id ctypes.PeerID, pkt wire.NewBlockHashesPacket) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	p := cs.peers.Get(id)
	if p == nil {
		return errPeerNotRegistered
	}
	if len(pkt.Hashes) > wire.MaxNewHashes {
		return newProtocolError("sync: too many announced hashes")
	}

	var unknown []ctypes.Hash
	for _, h := range pkt.Hashes {
		if p.RecentlyAnnounced(h) {
			continue
		}
		p.MarkAnnounced(h)
		if io.Chain != nil {
			status := io.Chain.BlockStatus(ctypes.BlockIDByHash(h))
			if status == StatusInChain || status == StatusQueued {
				continue
			}
		}
		unknown = append(unknown, h)
	}
	if len(pkt.Hashes) > 0 {
		p.SetHead(pkt.Hashes[len(pkt.Hashes)-1], p.TotalDifficulty)
		p.SetHeadNumber(pkt.Numbers[len(pkt.Numbers)-1])
	}
	if len(unknown) > 0 {
		cs.newBlocks.ResetTo(unknown)
		cs.continueSyncLocked(io)
	}
	return nil
}

// OnTransactions admits a full-transaction batch to the chain client's
// mempool and records them as sent so they are never echoed back
// (spec.md §4.6).
func (cs *ChainSync) OnTransactions(io IO, id ctypes.PeerID, pkt wire.TransactionsPacket) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	p := cs.peers.Get(id)
	if p == nil {
		return errPeerNotRegistered
	}
	if cs.state != StateIdle && cs.state != StateNewBlocks {
		return nil
	}
	if io.Chain != nil && !io.Chain.QueueInfo().Empty() {
		return nil
	}

	var accepted [][]byte
	for _, raw := range pkt.Transactions {
		if len(raw) > wire.MaxTransactionSize {
			continue
		}
		accepted = append(accepted, raw)
		p.MarkTransactionsSent([]ctypes.Hash{ctypes.Hash(xcrypto.Keccak256(raw))})
	}
	if io.Chain != nil && len(accepted) > 0 {
		io.Chain.QueueTransactions(accepted, id)
	}
	return nil
}

// OnConsensus and the private-transaction handlers forward verbatim to
// their external collaborator without decoding the payload themselves
// (spec.md §4.4).
func (cs *ChainSync) OnConsensus(io IO, id ctypes.PeerID, pkt wire.ConsensusPacket) error {
	if cs.peers.Get(id) == nil {
		return errPeerNotRegistered
	}
	if io.Chain != nil {
		io.Chain.QueueConsensusMessage(pkt.Data)
	}
	return nil
}

func (cs *ChainSync) OnPrivateTransaction(io IO, id ctypes.PeerID, pkt wire.PrivateTransactionPacket) error {
	if cs.peers.Get(id) == nil {
		return errPeerNotRegistered
	}
	if io.PrivateTx != nil {
		return io.PrivateTx.HandlePrivateTransaction(id, pkt.Data)
	}
	return nil
}

func (cs *ChainSync) OnSignedPrivateTransaction(io IO, id ctypes.PeerID, pkt wire.SignedPrivateTransactionPacket) error {
	if cs.peers.Get(id) == nil {
		return errPeerNotRegistered
	}
	if io.PrivateTx != nil {
		return io.PrivateTx.HandleSignedPrivateTransaction(id, pkt.Data)
	}
	return nil
}

// OnPeerDisconnect releases every downloader slot the peer held and drops
// its record (spec.md §3, §7).
func (cs *ChainSync) OnPeerDisconnect(id ctypes.PeerID) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.newBlocks.ExpirePeer(id)
	if cs.oldBlocks != nil {
		cs.oldBlocks.ExpirePeer(id)
	}
	cs.peers.Remove(id)
}

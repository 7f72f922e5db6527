package sync

import (
	"sort"
	"time"

	"github.com/holiman/uint256"

	"github.com/relaychain/go-relay/sync/ctypes"
	"github.com/relaychain/go-relay/sync/downloader"
	"github.com/relaychain/go-relay/sync/wire"
)

// ContinueSync iterates the peer set — randomly shuffled, then
// stable-sorted by ascending protocol version, so lower-version peers are
// offered work first and order within each version stays shuffled — and
// calls syncPeerLocked on each
// (spec.md §4.1). It is invoked after every state transition.
func (cs *ChainSync) ContinueSync(io IO) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.continueSyncLocked(io)
}

func (cs *ChainSync) continueSyncLocked(io IO) {
	peers := cs.peers.All()
	cs.rnd.Shuffle(len(peers), func(i, j int) { peers[i], peers[j] = peers[j], peers[i] })
	sort.SliceStable(peers, func(i, j int) bool {
		return peers[i].ProtocolVersion < peers[j].ProtocolVersion
	})
	for _, p := range peers {
		cs.syncPeerLocked(io, p, false)
	}
}

// syncPeer selects work for a single peer (spec.md §4.1). force, when
// true, bypasses the "advertises a block we don't have" gate — used by
// the NewBlock handler's forced request on unknown-parent.
func (cs *ChainSync) syncPeerLocked(io IO, p *Peer, force bool) {
	if p.Busy() || !p.CanSync() {
		return
	}
	if cs.state == StateWaiting || cs.state == StateSnapshotWaiting {
		return
	}

	switch cs.state {
	case StateWaitingPeers:
		cs.evaluateSnapshotStartLocked(io)

	case StateIdle, StateBlocks, StateNewBlocks:
		if io.Chain != nil && io.Chain.QueueInfo().Full() {
			cs.setState(StateWaiting)
			return
		}
		if !force {
			if !cs.peerHasUnknownBetterBlockLocked(io, p) {
				return
			}
		}
		if req := cs.newBlocks.RequestBlocks(p.ID); req != nil {
			cs.setState(StateNewBlocks)
			cs.dispatchRequestLocked(io, p, NewBlocks, req)
			return
		}
		if cs.oldBlocks != nil {
			if req := cs.oldBlocks.RequestBlocks(p.ID); req != nil {
				cs.setState(StateBlocks)
				cs.dispatchRequestLocked(io, p, OldBlocks, req)
				return
			}
		}

	case StateSnapshotData:
		if io.Snapshot != nil {
			if status, stateDone, blockDone := io.Snapshot.Status(); status == RestoreOngoing {
				if cs.snap.DoneChunks()-(stateDone+blockDone) > wire.MaxSnapshotChunksDownloadAhead {
					cs.setState(StateSnapshotWaiting)
					return
				}
			}
		}
		manifest, ok := cs.snap.ManifestHash()
		if !ok {
			return
		}
		if p.SnapshotHash == nil || *p.SnapshotHash != manifest {
			return
		}
		pending := cs.snap.Pending(1)
		if len(pending) == 0 {
			return
		}
		chunk := pending[0]
		p.AskingSnapshotData = &chunk
		p.SetAsking(AskingSnapshotData, time.Now())
		if io.Net != nil {
			io.Net.SendGetSnapshotData(p.ID, chunk)
		}
	}
}

// dispatchRequestLocked sends a downloader-produced request over the wire
// and stamps the peer's asking state accordingly (spec.md §4.2, §3).
func (cs *ChainSync) dispatchRequestLocked(io IO, p *Peer, set BlockSet, req *downloader.Request) {
	p.BlockSet = set
	now := time.Now()
	switch {
	case req.Headers != nil:
		p.AskingHash = &req.Headers.Origin.Hash
		p.SetAsking(AskingBlockHeaders, now)
		if io.Net != nil {
			io.Net.SendGetBlockHeaders(p.ID, *req.Headers)
		}
	case req.Bodies != nil:
		p.AskingBlocks = req.Bodies.Hashes
		p.SetAsking(AskingBlockBodies, now)
		if io.Net != nil {
			io.Net.SendGetBlockBodies(p.ID, *req.Bodies)
		}
	case req.Receipts != nil:
		p.AskingBlocks = req.Receipts.Hashes
		p.SetAsking(AskingBlockReceipts, now)
		if io.Net != nil {
			io.Net.SendGetReceipts(p.ID, *req.Receipts)
		}
	}
}

// peerHasUnknownBetterBlockLocked reports whether p advertises a block we
// don't have whose difficulty exceeds our pending total difficulty
// (spec.md §4.1).
func (cs *ChainSync) peerHasUnknownBetterBlockLocked(io IO, p *Peer) bool {
	if io.Chain == nil {
		return true
	}
	if p.LatestHash.IsZero() {
		return false
	}
	status := io.Chain.BlockStatus(ctypes.BlockIDByHash(p.LatestHash))
	if status == StatusInChain || status == StatusQueued {
		return false
	}
	if p.TotalDifficulty == nil {
		return true
	}
	info := io.Chain.ChainInfo()
	pendingTD := new(uint256.Int)
	pendingTD.SetBytes(info.PendingTotalDifficulty)
	return p.TotalDifficulty.Cmp(pendingTD) > 0
}

// evaluateSnapshotStartLocked implements the WaitingPeers transitions of
// spec.md §4.1's table: quorum on a manifest hash, or timeout.
func (cs *ChainSync) evaluateSnapshotStartLocked(io IO) {
	if io.Chain == nil {
		return
	}
	info := io.Chain.ChainInfo()

	counts := make(map[ctypes.Hash]int)
	for _, p := range cs.peers.All() {
		if p.SnapshotHash == nil || p.SnapshotNumber == nil {
			continue
		}
		if cs.snap.IsKnownBad(*p.SnapshotHash) {
			continue
		}
		if *p.SnapshotNumber <= info.BestNumber+wire.SnapshotRestoreThreshold {
			continue
		}
		if cs.cfg.ForkBlock != nil && *p.SnapshotNumber <= cs.cfg.ForkBlock.Number {
			continue
		}
		if *p.SnapshotNumber <= cs.cfg.ExpectedWarpBlock {
			continue
		}
		counts[*p.SnapshotHash]++
	}
	for hash, n := range counts {
		if n >= wire.SnapshotMinPeers {
			cs.setState(StateSnapshotManifest)
			for _, p := range cs.peers.All() {
				if p.SnapshotHash != nil && *p.SnapshotHash == hash && p.CanSync() && !p.Busy() {
					cs.requestSnapshotManifestLocked(io, p)
				}
			}
			return
		}
	}

	if time.Since(cs.syncStartTime) > 5*time.Second {
		if cs.cfg.warpMandatory() {
			for hash := range counts {
				cs.setState(StateSnapshotManifest)
				for _, p := range cs.peers.All() {
					if p.SnapshotHash != nil && *p.SnapshotHash == hash && p.CanSync() && !p.Busy() {
						cs.requestSnapshotManifestLocked(io, p)
					}
				}
				return
			}
			return
		}
		cs.setState(StateIdle)
	}
}

// CompleteSync folds a finished downloader back to Idle (spec.md §4.1
// "downloader complete and no in-flight request remains").
func (cs *ChainSync) CompleteSync() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.completeSyncLocked()
}

func (cs *ChainSync) completeSyncLocked() {
	if cs.state != StateIdle && cs.state != StateBlocks && cs.state != StateNewBlocks {
		return
	}
	if !cs.newBlocks.IsComplete() {
		return
	}
	if cs.oldBlocks != nil && !cs.oldBlocks.IsComplete() {
		return
	}
	cs.setState(StateIdle)
}

// Restart rebuilds both downloaders from the chain client's current best
// block and clears H/B/S (spec.md §7 "Invalid imported block").
func (cs *ChainSync) Restart(io IO) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.restartLocked(io)
}

func (cs *ChainSync) restartLocked(io IO) {
	var best ctypes.Hash
	var bestNum uint64
	if io.Chain != nil {
		info := io.Chain.ChainInfo()
		best, bestNum = info.BestHash, info.BestNumber
	}
	cs.newBlocks.Reset(best, bestNum)
	if cs.oldBlocks != nil {
		cs.oldBlocks.Reset(best, bestNum)
	}
	if cs.cfg.warpWanted() {
		cs.setState(StateWaitingPeers)
		cs.syncStartTime = time.Now()
	} else {
		cs.setState(StateIdle)
	}
	cs.continueSyncLocked(io)
}

package sync

import (
	"github.com/relaychain/go-relay/sync/ctypes"
	"github.com/relaychain/go-relay/sync/snapshot"
	"github.com/relaychain/go-relay/sync/wire"
)

// OnSnapshotManifest validates a manifest reply and seeds the chunk
// downloader, advancing WaitingPeers/SnapshotManifest into SnapshotData
// (spec.md §4.1, §4.3).
func (cs *ChainSync) OnSnapshotManifest(io IO, id ctypes.PeerID, pkt wire.SnapshotManifestPacket) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	p := cs.peers.Get(id)
	if p == nil {
		return errPeerNotRegistered
	}
	if p.Asking != AskingSnapshotManifest {
		return nil
	}
	p.ClearAsking(false)

	// The manifest is identified by the hash the peer advertised for it,
	// which is what syncPeer and the quorum check compare against.
	manifestHash := pkt.BlockHash
	if p.SnapshotHash != nil {
		manifestHash = *p.SnapshotHash
	}

	if io.Snapshot != nil {
		low, high, ok := io.Snapshot.SupportedVersions()
		if !ok || pkt.Version < low || pkt.Version > high {
			cs.snap.NoteBad(manifestHash)
			cs.setState(StateWaitingPeers)
			cs.continueSyncLocked(io)
			return errBadManifest
		}
	}

	cs.snap.ResetTo(manifestHash, pkt.BlockHashes, pkt.StateHashes)
	if io.Snapshot != nil {
		io.Snapshot.BeginRestore(ManifestData{
			Version:     pkt.Version,
			BlockNumber: pkt.BlockNumber,
			BlockHash:   pkt.BlockHash,
			StateHashes: pkt.StateHashes,
			BlockHashes: pkt.BlockHashes,
		})
	}
	cs.setState(StateSnapshotData)
	cs.continueSyncLocked(io)
	return nil
}

// OnSnapshotData validates and forwards one chunk to the Snapshot
// Service, folding SnapshotData into SnapshotWaiting once every chunk has
// been validated (spec.md §4.3).
func (cs *ChainSync) OnSnapshotData(io IO, id ctypes.PeerID, pkt wire.SnapshotDataPacket) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	p := cs.peers.Get(id)
	if p == nil {
		return errPeerNotRegistered
	}
	if p.Asking != AskingSnapshotData {
		return nil
	}
	chunkHash := p.AskingSnapshotData
	p.ClearAsking(false)
	if chunkHash == nil {
		return nil
	}

	hash, kind, err := cs.snap.ValidateChunk(pkt.Data)
	if err != nil || hash != *chunkHash {
		return errInvalidChunk
	}

	if io.Snapshot != nil {
		switch kind {
		case snapshot.ChunkBlock:
			err = io.Snapshot.RestoreBlockChunk(hash, pkt.Data)
		case snapshot.ChunkState:
			err = io.Snapshot.RestoreStateChunk(hash, pkt.Data)
		}
		if err != nil {
			return errInvalidChunk
		}
		status, _, _ := io.Snapshot.Status()
		if status == RestoreFailed {
			cs.snap.NoteBad(hash)
			cs.restartLocked(io)
			return nil
		}
	}

	if cs.snap.IsComplete() {
		cs.setState(StateSnapshotWaiting)
		cs.waitForRestoreCompletionLocked(io)
		return nil
	}
	cs.continueSyncLocked(io)
	return nil
}

// waitForRestoreCompletionLocked folds SnapshotWaiting back to Idle once
// the Snapshot Service itself finishes applying the restored chunks
// (spec.md §4.1, §4.3). The embedder is expected to re-drive this via
// MaintainSync once restoration completes asynchronously.
func (cs *ChainSync) waitForRestoreCompletionLocked(io IO) {
	if io.Snapshot == nil {
		cs.setState(StateIdle)
		cs.continueSyncLocked(io)
		return
	}
	status, stateDone, blockDone := io.Snapshot.Status()
	switch status {
	case RestoreInactive:
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
		cs.setState(StateIdle)
		cs.continueSyncLocked(io)
	case RestoreFailed:
		if manifest, ok := cs.snap.ManifestHash(); ok {
			cs.snap.NoteBad(manifest)
		}
		cs.restartLocked(io)
	default: // RestoreOngoing
		backlog := cs.snap.DoneChunks() - (stateDone + blockDone)
		if !cs.snap.IsComplete() && backlog <= wire.MaxSnapshotChunksDownloadAhead {
			cs.setState(StateSnapshotData)
			cs.continueSyncLocked(io)
		}
	}
}

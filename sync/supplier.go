package sync

import (
	"github.com/relaychain/go-relay/sync/ctypes"
	"github.com/relaychain/go-relay/sync/wire"
)

// OnUnknownPacket logs and drops an unrecognised packet id (spec.md §4.4).
func (cs *ChainSync) OnUnknownPacket(id ctypes.PeerID, packetID uint64) {
	log.Debug("Unknown packet id", "peer", id, "id", packetID)
}

// HeaderEncoder abstracts the lookup the Supplier needs from the chain
// client to serve raw header/body/receipt bytes by hash or number
// (spec.md §4.7). It is a narrower cut of ChainClient's responsibilities,
// matching spec.md §6's "block_header, block, block_total_difficulty".
type HeaderEncoder interface {
	EncodedHeader(id ctypes.BlockID) ([]byte, bool)
	EncodedBody(hash ctypes.Hash) ([]byte, bool)
	EncodedReceipts(hash ctypes.Hash) ([]byte, bool)
	NodeData(hash ctypes.Hash) ([]byte, bool)
	HeaderChainFrom(origin ctypes.BlockID, amount, skip uint64, reverse bool) []ctypes.Hash
}

// lookupHeader serves a header from cs.headerCache before falling back to
// the Chain Client, matching the hot-path cache pattern of the teacher's
// lru.New-backed sigcache (SPEC_FULL.md §3).
func (cs *ChainSync) lookupHeader(enc HeaderEncoder, hash ctypes.Hash) ([]byte, bool) {
	if raw, ok := cs.headerCache.Get(hash); ok {
		return raw.([]byte), true
	}
	raw, ok := enc.EncodedHeader(ctypes.BlockIDByHash(hash))
	if ok {
		cs.headerCache.Add(hash, raw)
	}
	return raw, ok
}

func (cs *ChainSync) lookupBody(enc HeaderEncoder, hash ctypes.Hash) ([]byte, bool) {
	if raw, ok := cs.bodyCache.Get(hash); ok {
		return raw.([]byte), true
	}
	raw, ok := enc.EncodedBody(hash)
	if ok {
		cs.bodyCache.Add(hash, raw)
	}
	return raw, ok
}

// OnGetBlockHeaders answers spec.md §4.7's first supplier contract: up to
// MaxHeadersPerRequest headers walking forward or backward from Origin.
// Unknown origins yield an empty response rather than an error.
func (cs *ChainSync) OnGetBlockHeaders(io IO, enc HeaderEncoder, id ctypes.PeerID, pkt wire.GetBlockHeadersPacket) wire.BlockHeadersPacket {
	amount := pkt.Amount
	if amount > wire.MaxHeadersPerRequest {
		amount = wire.MaxHeadersPerRequest
	}
	var out [][]byte
	for _, hash := range enc.HeaderChainFrom(pkt.Origin, amount, pkt.Skip, pkt.Reverse) {
		if raw, ok := cs.lookupHeader(enc, hash); ok {
			out = append(out, raw)
		}
	}
	return wire.BlockHeadersPacket{Headers: out}
}

// OnGetBlockBodies answers up to MaxBodiesPerRequest bodies, one empty
// slot per unknown hash (spec.md §4.7).
func (cs *ChainSync) OnGetBlockBodies(enc HeaderEncoder, pkt wire.GetBlockBodiesPacket) wire.BlockBodiesPacket {
	hashes := pkt.Hashes
	if len(hashes) > wire.MaxBodiesPerRequest {
		hashes = hashes[:wire.MaxBodiesPerRequest]
	}
	out := make([][]byte, 0, len(hashes))
	for _, h := range hashes {
		raw, ok := cs.lookupBody(enc, h)
		if !ok {
			out = append(out, nil)
			continue
		}
		out = append(out, raw)
	}
	return wire.BlockBodiesPacket{Bodies: out}
}

// OnGetReceipts answers up to MaxReceiptsHeaders block receipt lists, one
// empty slot per unknown hash (spec.md §4.7). The receipts inside each
// encoded list are not counted, so MaxReceiptsPerRequest is not applied.
func (cs *ChainSync) OnGetReceipts(enc HeaderEncoder, pkt wire.GetReceiptsPacket) wire.ReceiptsPacket {
	hashes := pkt.Hashes
	if len(hashes) > wire.MaxReceiptsHeaders {
		hashes = hashes[:wire.MaxReceiptsHeaders]
	}
	out := make([][]byte, 0, len(hashes))
	for _, h := range hashes {
		raw, ok := enc.EncodedReceipts(h)
		if !ok {
			out = append(out, nil)
			continue
		}
		out = append(out, raw)
	}
	return wire.ReceiptsPacket{Receipts: out}
}

// OnGetNodeData answers up to MaxNodeDataPerRequest raw trie/state nodes
// on behalf of the chain client (spec.md §4.7). chainsync never
// interprets the bytes it serves here.
func (cs *ChainSync) OnGetNodeData(enc HeaderEncoder, pkt wire.GetNodeDataPacket) wire.NodeDataPacket {
	hashes := pkt.Hashes
	if len(hashes) > wire.MaxNodeDataPerRequest {
		hashes = hashes[:wire.MaxNodeDataPerRequest]
	}
	out := make([][]byte, 0, len(hashes))
	for _, h := range hashes {
		raw, ok := enc.NodeData(h)
		if !ok {
			out = append(out, nil)
			continue
		}
		out = append(out, raw)
	}
	return wire.NodeDataPacket{Data: out}
}

// OnGetSnapshotManifest answers with the Snapshot Service's current
// manifest, or an empty packet if none is available (spec.md §4.7).
func (cs *ChainSync) OnGetSnapshotManifest(io IO) wire.SnapshotManifestPacket {
	if io.Snapshot == nil {
		return wire.SnapshotManifestPacket{}
	}
	m := io.Snapshot.Manifest()
	if m == nil {
		return wire.SnapshotManifestPacket{}
	}
	return wire.SnapshotManifestPacket{
		Version:     m.Version,
		BlockNumber: m.BlockNumber,
		BlockHash:   m.BlockHash,
		StateHashes: m.StateHashes,
		BlockHashes: m.BlockHashes,
	}
}

// OnGetSnapshotData answers with the requested chunk's bytes, if the
// Chain Client's snapshot storage still has it (spec.md §4.7).
func (cs *ChainSync) OnGetSnapshotData(enc SnapshotChunkStore, pkt wire.GetSnapshotDataPacket) wire.SnapshotDataPacket {
	data, _ := enc.SnapshotChunk(pkt.ChunkHash)
	return wire.SnapshotDataPacket{Data: data}
}

// SnapshotChunkStore is the narrow lookup the Supplier needs to serve
// GetSnapshotData (spec.md §4.7); distinct from SnapshotService because
// an embedder may keep served chunks on disk independently of its
// in-progress SnapshotService restoration state.
type SnapshotChunkStore interface {
	SnapshotChunk(hash ctypes.Hash) ([]byte, bool)
}

// Package downloader implements the BlockDownloader contract from
// spec.md §4.2: a subchain model that accumulates headers, requests
// bodies/receipts, and yields fully assembled blocks to the chain client.
//
// No source for go-ethereum's real eth/downloader package exists in the
// retrieved example pack (only its tests were retrieved); this package is
// grounded on ProbeChain-go-probe/go-probe-master/probe/downloader/metrics.go
// for the package's instrumentation shape and naming, and on
// original_source/ethcore/sync/src/chain/mod.rs for the subchain
// (S/H/B sets, anchor hashes, M/N constants) semantics spec.md §4.2
// describes only as a contract.
package downloader

import (
	"sort"
	"sync"

	"github.com/relaychain/go-relay/sync/ctypes"
	"github.com/relaychain/go-relay/sync/wire"
)

// HeaderView is the minimal shape the downloader needs from a decoded
// header — decoding itself belongs to the binary codec, out of scope
// here (spec.md §1).
type HeaderView struct {
	Hash       ctypes.Hash
	ParentHash ctypes.Hash
	Number     uint64
	Raw        []byte
}

// BodyView is the minimal shape of a decoded body.
type BodyView struct {
	TxRootHash     ctypes.Hash
	UnclesRootHash ctypes.Hash
	Raw            []byte
}

// Flavour distinguishes the forward (new-blocks) downloader from the
// ancient-backfill (old-blocks) one (spec.md §3).
type Flavour int

const (
	FlavourNew Flavour = iota
	FlavourOld
)

// Request carries one of three outbound request shapes (spec.md §4.2).
// RequestBlocks fills in Headers or Bodies; nothing in this package
// produces a Receipts request.
type Request struct {
	Peer ctypes.PeerID

	Headers  *wire.GetBlockHeadersPacket
	Bodies   *wire.GetBlockBodiesPacket
	Receipts *wire.GetReceiptsPacket
}

// Outcome is returned by Import* to tell the caller how to treat the
// originating peer (spec.md §4.2).
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeReset
)

// subchain is a contiguous span of the remote chain anchored at a hash we
// have not yet linked to our imported chain — the "S" set of spec.md §3.
type subchain struct {
	anchor ctypes.Hash
	// extent is the number of headers in the batch that produced this
	// subchain's anchor. Nothing reads it; CollectBlocks does not merge
	// subchains.
	extent int
}

// Downloader implements BlockDownloader. Exactly one exists for
// Flavour=New; at most one for Flavour=Old (spec.md §3, §5).
type Downloader struct {
	mu sync.Mutex // downloaders are never mutated concurrently (spec.md §5); this guards defensive misuse, not real contention

	flavour Flavour

	// l is the common block: our current best imported hash/number for
	// this downloader's target.
	lHash   ctypes.Hash
	lNumber uint64

	// target records the ancient-backfill lower bound passed to SetTarget
	// (set_target). RequestBlocks and CollectBlocks do not consult it.
	target *ctypes.Hash

	headers map[ctypes.Hash]*HeaderView // H, indexed by hash
	byParent map[ctypes.Hash][]ctypes.Hash

	bodies map[ctypes.Hash]*BodyView // B, keyed by header hash

	subchains map[ctypes.Hash]*subchain // S, indexed by anchor hash

	// downloading tracks at-most-one-in-flight-per-hash across all peers
	// (spec.md §4.2 invariant #1), split by request kind.
	downloadingHeaders  map[ctypes.Hash]ctypes.PeerID // anchor hash -> peer
	downloadingBodies   map[ctypes.Hash]ctypes.PeerID // header hash -> peer
	downloadingReceipts map[ctypes.Hash]ctypes.PeerID

	complete bool
}

// New creates a fresh Downloader rooted at (lHash, lNumber) — the common
// block this instance will extend forward from (spec.md §3 Lifecycle).
func New(flavour Flavour, lHash ctypes.Hash, lNumber uint64) *Downloader {
	d := &Downloader{
		flavour:             flavour,
		lHash:               lHash,
		lNumber:             lNumber,
		headers:             make(map[ctypes.Hash]*HeaderView),
		byParent:            make(map[ctypes.Hash][]ctypes.Hash),
		bodies:              make(map[ctypes.Hash]*BodyView),
		subchains:           make(map[ctypes.Hash]*subchain),
		downloadingHeaders:  make(map[ctypes.Hash]ctypes.PeerID),
		downloadingBodies:   make(map[ctypes.Hash]ctypes.PeerID),
		downloadingReceipts: make(map[ctypes.Hash]ctypes.PeerID),
	}
	d.subchains[lHash] = &subchain{anchor: lHash}
	return d
}

// SetTarget records the ancient-backfill lower bound (old-blocks flavour).
// The hash is stored only; it does not limit which blocks are requested
// or collected.
func (d *Downloader) SetTarget(hash ctypes.Hash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.target = &hash
}

// Reset clears H, B and S entirely, re-anchoring at (lHash, lNumber) —
// spec.md §7 "Invalid imported block ... full restart()".
func (d *Downloader) Reset(lHash ctypes.Hash, lNumber uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lHash, d.lNumber = lHash, lNumber
	d.headers = make(map[ctypes.Hash]*HeaderView)
	d.byParent = make(map[ctypes.Hash][]ctypes.Hash)
	d.bodies = make(map[ctypes.Hash]*BodyView)
	d.subchains = make(map[ctypes.Hash]*subchain)
	d.downloadingHeaders = make(map[ctypes.Hash]ctypes.PeerID)
	d.downloadingBodies = make(map[ctypes.Hash]ctypes.PeerID)
	d.downloadingReceipts = make(map[ctypes.Hash]ctypes.PeerID)
	d.subchains[lHash] = &subchain{anchor: lHash}
	d.complete = false
}

// ResetTo re-seeds S from an explicit set of candidate hashes, used by the
// NewBlockHashes handler (spec.md §4.4: "new_blocks.reset_to(new_hashes)").
func (d *Downloader) ResetTo(hashes []ctypes.Hash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subchains = make(map[ctypes.Hash]*subchain)
	for _, h := range hashes {
		d.subchains[h] = &subchain{anchor: h}
	}
	d.complete = false
}

// IsComplete reports whether the downloader holds no downloaded headers
// and has nothing downloading. Subchain anchors still in S are not
// considered, so a freshly created downloader is complete.
func (d *Downloader) IsComplete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isCompleteLocked()
}

func (d *Downloader) isCompleteLocked() bool {
	return len(d.headers) == 0 && len(d.downloadingHeaders) == 0 &&
		len(d.downloadingBodies) == 0 && len(d.downloadingReceipts) == 0
}

// LastImportedBlockNumber returns l's number.
func (d *Downloader) LastImportedBlockNumber() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lNumber
}

// HeapSize estimates memory held by downloaded-but-unassembled state, for
// the embedder's own memory accounting (spec.md §4.2).
func (d *Downloader) HeapSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.headers)*200 + len(d.bodies)*500
}

// RequestBlocks produces the next outbound request for an idle peer, or
// nil if there is nothing to ask right now (spec.md §4.2).
func (d *Downloader) RequestBlocks(peer ctypes.PeerID) *Request {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.complete {
		return nil
	}
	// Prefer completing in-flight subchains: any downloaded header whose
	// body is missing and not already being fetched.
	if req := d.nextBodyRequest(peer); req != nil {
		return req
	}
	if req := d.nextHeaderRequest(peer); req != nil {
		return req
	}
	return nil
}

func (d *Downloader) nextBodyRequest(peer ctypes.PeerID) *Request {
	var need []ctypes.Hash
	// Deterministic order keeps tests reproducible.
	hashes := make([]ctypes.Hash, 0, len(d.headers))
	for h := range d.headers {
		hashes = append(hashes, h)
	}
	sortHashes(hashes)
	for _, h := range hashes {
		if _, have := d.bodies[h]; have {
			continue
		}
		if _, inflight := d.downloadingBodies[h]; inflight {
			continue
		}
		need = append(need, h)
		if len(need) >= wire.MaxBodiesPerRequest {
			break
		}
	}
	if len(need) == 0 {
		return nil
	}
	for _, h := range need {
		d.downloadingBodies[h] = peer
	}
	return &Request{Peer: peer, Bodies: &wire.GetBlockBodiesPacket{Hashes: need}}
}

// nextHeaderRequest prospects a new subchain from one of the anchors in S,
// skipping SubchainWidth+1 at a time as spec.md §4.2 describes.
func (d *Downloader) nextHeaderRequest(peer ctypes.PeerID) *Request {
	anchors := make([]ctypes.Hash, 0, len(d.subchains))
	for a := range d.subchains {
		anchors = append(anchors, a)
	}
	sortHashes(anchors)
	for _, anchor := range anchors {
		if _, inflight := d.downloadingHeaders[anchor]; inflight {
			continue
		}
		d.downloadingHeaders[anchor] = peer
		return &Request{
			Peer: peer,
			Headers: &wire.GetBlockHeadersPacket{
				Origin: ctypes.BlockIDByHash(anchor),
				Amount: wire.SubchainRange / wire.SubchainWidth,
				Skip:   wire.SubchainWidth,
			},
		}
	}
	return nil
}

func sortHashes(hs []ctypes.Hash) {
	sort.Slice(hs, func(i, j int) bool {
		for k := 0; k < len(hs[i]); k++ {
			if hs[i][k] != hs[j][k] {
				return hs[i][k] < hs[j][k]
			}
		}
		return false
	})
}

// ImportHeaders validates and stores a batch of headers received from
// peer against the anchor it was requested for (spec.md §4.2).
//
// If our own S set no longer contains the requested anchor — because a
// concurrent ResetTo moved on while this request was in flight — the
// batch is moot regardless of its contents; OutcomeReset tells the
// caller to restart the round rather than penalise peer. Otherwise every
// header's parent must be found in H, in the batch itself, or be the
// chain's l (we treat l as "in the chain" per spec.md contract).
func (d *Downloader) ImportHeaders(peer ctypes.PeerID, anchor ctypes.Hash, headers []*HeaderView) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	owner, wasAsked := d.downloadingHeaders[anchor]
	if !wasAsked || owner != peer {
		// Late/unsolicited reply — drop silently, not a protocol error.
		return OutcomeNone, nil
	}
	delete(d.downloadingHeaders, anchor)

	if !d.anchorMatches(anchor) {
		// Our own S set moved on from under this peer — e.g. a
		// NewBlockHashes-driven ResetTo re-seeded subchains while this
		// request was still in flight. Not the peer's fault: restart the
		// round instead of importing against a subchain we no longer
		// track.
		return OutcomeReset, nil
	}

	if len(headers) == 0 {
		delete(d.subchains, anchor)
		globalCounters.incHeadersDropped()
		return OutcomeNone, errUseless
	}
	globalCounters.incHeadersIn(uint64(len(headers)))

	inBatch := make(map[ctypes.Hash]bool, len(headers))
	for _, h := range headers {
		inBatch[h.Hash] = true
	}
	matchedSubchain := false
	for _, h := range headers {
		if h.Hash == anchor || d.anchorMatches(h.Hash) {
			matchedSubchain = true
		}
		if h.ParentHash == d.lHash {
			continue
		}
		if _, ok := d.headers[h.ParentHash]; ok {
			continue
		}
		if inBatch[h.ParentHash] {
			continue
		}
		return OutcomeNone, errInvalid
	}
	if !matchedSubchain {
		return OutcomeNone, errInvalid
	}

	for _, h := range headers {
		if _, exists := d.headers[h.Hash]; exists {
			continue
		}
		d.headers[h.Hash] = h
		d.byParent[h.ParentHash] = append(d.byParent[h.ParentHash], h.Hash)
	}
	// The batch extends the subchain; replace its anchor with the new
	// tip so the next RequestBlocks call continues past it.
	delete(d.subchains, anchor)
	tip := headers[len(headers)-1]
	d.subchains[tip.Hash] = &subchain{anchor: tip.Hash, extent: len(headers)}

	return OutcomeNone, nil
}

func (d *Downloader) anchorMatches(hash ctypes.Hash) bool {
	_, ok := d.subchains[hash]
	return ok
}

// ImportBodies joins bodies to previously downloaded headers by header
// hash (spec.md §4.2). Transactions-root and uncles-root are not checked
// against the header.
func (d *Downloader) ImportBodies(peer ctypes.PeerID, bodies map[ctypes.Hash]*BodyView) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	matched := 0
	for hash, body := range bodies {
		owner, asked := d.downloadingBodies[hash]
		if !asked || owner != peer {
			continue
		}
		delete(d.downloadingBodies, hash)
		header, ok := d.headers[hash]
		if !ok {
			continue
		}
		_ = header // transactions-root/uncles-root check delegated to codec; header presence is the join key here
		d.bodies[hash] = body
		matched++
	}
	if matched == 0 && len(bodies) > 0 {
		globalCounters.incBodiesDropped()
		return OutcomeNone, errUseless
	}
	globalCounters.incBodiesIn(uint64(matched))
	return OutcomeNone, nil
}

// ImportReceipts mirrors ImportBodies for the receipts leg of a fast sync
// (spec.md §4.2), matching hashes against downloadingReceipts. Since
// RequestBlocks never issues a receipts request, that set stays empty and
// any non-empty batch is reported useless.
func (d *Downloader) ImportReceipts(peer ctypes.PeerID, hashes []ctypes.Hash) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	matched := 0
	for _, hash := range hashes {
		owner, asked := d.downloadingReceipts[hash]
		if !asked || owner != peer {
			continue
		}
		delete(d.downloadingReceipts, hash)
		matched++
	}
	if matched == 0 && len(hashes) > 0 {
		return OutcomeNone, errUseless
	}
	globalCounters.incReceiptsIn(uint64(matched))
	return OutcomeNone, nil
}

// CollectedBlock is a fully assembled header+body pair ready for the chain
// client (spec.md §4.2 collect_blocks).
type CollectedBlock struct {
	Header *HeaderView
	Body   *BodyView
}

// CollectBlocks walks a maximal chain in H∪B starting from l, returning
// every fully-bodied block in order and advancing l past them. If H
// becomes empty and exactly one subchain anchor remains, becameChainHead
// reports true, signalling the caller to fold supervisor state back to
// Idle (spec.md §4.2).
func (d *Downloader) CollectBlocks() (blocks []CollectedBlock, becameChainHead bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur := d.lHash
	for {
		children := d.byParent[cur]
		var next ctypes.Hash
		found := false
		for _, childHash := range children {
			header, ok := d.headers[childHash]
			if !ok {
				continue
			}
			body, ok := d.bodies[childHash]
			if !ok {
				continue
			}
			blocks = append(blocks, CollectedBlock{Header: header, Body: body})
			delete(d.headers, childHash)
			delete(d.bodies, childHash)
			next = header.Hash
			d.lNumber = header.Number
			found = true
			break
		}
		if !found {
			break
		}
		delete(d.byParent, cur)
		cur = next
	}
	d.lHash = cur

	if len(d.headers) == 0 && len(d.subchains) == 1 {
		becameChainHead = true
	}
	if len(d.headers) == 0 && len(d.downloadingHeaders) == 0 &&
		len(d.downloadingBodies) == 0 && len(d.downloadingReceipts) == 0 {
		d.complete = true
	}
	return blocks, becameChainHead
}

// ExpirePeer releases every in-flight slot owned by peer without
// penalising it, returning its header anchors to S — used when a peer
// disconnects or its request times out.
func (d *Downloader) ExpirePeer(peer ctypes.PeerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for h, p := range d.downloadingHeaders {
		if p == peer {
			delete(d.downloadingHeaders, h)
			d.subchains[h] = &subchain{anchor: h}
		}
	}
	for h, p := range d.downloadingBodies {
		if p == peer {
			delete(d.downloadingBodies, h)
		}
	}
	for h, p := range d.downloadingReceipts {
		if p == peer {
			delete(d.downloadingReceipts, h)
		}
	}
}

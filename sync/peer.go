package sync

import (
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/holiman/uint256"

	"github.com/relaychain/go-relay/sync/ctypes"
)

// Peer is the per-connection record described in spec.md §3. It is owned
// exclusively by the PeerRegistry; handlers obtain short mutable borrows
// through PeerRegistry, never a long-lived reference, matching the teacher's
// probePeer wrapper-struct pattern (go-probe-master/probe/peer.go) with the
// asking/expiry/confirmation fields ported from the Rust original's
// PeerInfo since the teacher's go-ethereum-derived peer has no analog
// (go-ethereum's downloader tracks in-flight state in the queue, not the
// peer; this spec puts it on the peer record instead, per the original).
type Peer struct {
	ID ctypes.PeerID

	ProtocolVersion uint
	NetworkID       uint64
	GenesisHash     ctypes.Hash
	LatestHash      ctypes.Hash
	LatestNumber    uint64
	TotalDifficulty *uint256.Int // nil if unknown

	SnapshotHash   *ctypes.Hash
	SnapshotNumber *uint64

	ClientID string // reported in Status extension data, for service-tx eligibility

	Asking             Asking
	AskingBlocks       []ctypes.Hash // ordered hashes currently requested
	AskingHash         *ctypes.Hash  // anchor hash for a header request
	AskingSnapshotData *ctypes.Hash

	AskTime time.Time
	Expired bool

	Confirmation Confirmation
	BlockSet     BlockSet

	// lastSentTransactions dedups transaction gossip per spec.md §4.6.
	lastSentTransactions mapset.Set
	// recentAnnounces is the supplemental dedup window for
	// NewBlockHashes described in SPEC_FULL.md §4 (distinct from
	// "known" status tracked by the chain client).
	recentAnnounces mapset.Set
}

// NewPeer constructs a Peer record in its just-handshaken state.
func NewPeer(id ctypes.PeerID, protocolVersion uint) *Peer {
	return &Peer{
		ID:                   id,
		ProtocolVersion:      protocolVersion,
		Asking:               AskingNothing,
		Confirmation:         Unconfirmed,
		lastSentTransactions: mapset.NewSet(),
		recentAnnounces:      mapset.NewSet(),
	}
}

// CanSync reports whether the peer is eligible to receive sync requests or
// NewBlock-originated blocks (spec.md §3).
func (p *Peer) CanSync() bool {
	return p.Confirmation == Confirmed && !p.Expired
}

// IsAllowed reports whether the peer counts for propagation/statistics
// (spec.md §3).
func (p *Peer) IsAllowed() bool {
	return p.Confirmation != Unconfirmed && !p.Expired
}

// Busy reports whether the peer currently has an outstanding request.
func (p *Peer) Busy() bool {
	return p.Asking != AskingNothing
}

// SetAsking records a new outstanding request, stamping AskTime and
// clearing Expired — a peer only ever starts a fresh request when its
// previous one has been consumed (by a response, reset or timeout).
func (p *Peer) SetAsking(kind Asking, now time.Time) {
	p.Asking = kind
	p.AskTime = now
	p.Expired = false
}

// ClearAsking resets the in-flight markers. If a request was genuinely
// outstanding (kind != AskingNothing) this is an expiring reset per
// spec.md §3 ("resetting asking_* fields while a request is outstanding
// sets expired"); the caller decides whether to mark Expired (a hard
// reset) or not (a clean response consumption).
func (p *Peer) ClearAsking(markExpired bool) {
	wasBusy := p.Asking != AskingNothing
	p.Asking = AskingNothing
	p.AskingBlocks = nil
	p.AskingHash = nil
	p.AskingSnapshotData = nil
	if wasBusy && markExpired {
		p.Expired = true
	}
}

// AskTimeout returns the timeout threshold for the peer's current Asking
// kind (spec.md §4.8).
func AskTimeout(kind Asking) time.Duration {
	switch kind {
	case AskingBlockHeaders:
		return 15 * time.Second
	case AskingBlockBodies:
		return 20 * time.Second
	case AskingBlockReceipts:
		return 10 * time.Second
	case AskingForkHeader:
		return 3 * time.Second
	case AskingSnapshotManifest:
		return 5 * time.Second
	case AskingSnapshotData:
		return 120 * time.Second
	default:
		return 0
	}
}

// SetHead updates the peer's advertised best block, mirroring
// probePeer/handleBlockBroadcast's peer.SetHead call in the teacher.
func (p *Peer) SetHead(hash ctypes.Hash, td *uint256.Int) {
	p.LatestHash = hash
	p.TotalDifficulty = td
}

// SetHeadNumber additionally records the peer's advertised height, used by
// the propagator's MAX_PEER_LAG_PROPAGATION skip (spec.md §4.6).
func (p *Peer) SetHeadNumber(n uint64) {
	p.LatestNumber = n
}

// MarkTransactionsSent records hashes as already relayed to this peer, for
// the dedup described in spec.md §4.6 and tested by S-property #3.
func (p *Peer) MarkTransactionsSent(hashes []ctypes.Hash) {
	for _, h := range hashes {
		p.lastSentTransactions.Add(h)
	}
}

// HasSentTransaction reports whether hash was already gossiped to this peer.
func (p *Peer) HasSentTransaction(hash ctypes.Hash) bool {
	return p.lastSentTransactions.Contains(hash)
}

// ResetSentTransactions clears the dedup set, forcing a re-broadcast next
// tick (spec.md §4.6: "pick one peer uniformly at random and clear its
// last_sent_transactions").
func (p *Peer) ResetSentTransactions() {
	p.lastSentTransactions = mapset.NewSet()
}

// MarkAnnounced records a hash as recently announced via NewBlockHashes to
// avoid re-querying block status for a duplicate announcement in the same
// tick (SPEC_FULL.md §4 supplement).
func (p *Peer) MarkAnnounced(hash ctypes.Hash) {
	p.recentAnnounces.Add(hash)
	if p.recentAnnounces.Cardinality() > 1024 {
		// Bound the window; the chain client's own "known" tracking is
		// the authoritative de-dup, this is only a same-tick optimisation.
		p.recentAnnounces = mapset.NewSet()
	}
}

func (p *Peer) RecentlyAnnounced(hash ctypes.Hash) bool {
	return p.recentAnnounces.Contains(hash)
}

// AcceptsServiceTransactions reports whether this peer's reported client
// string is known to accept zero-gas-price transactions on a separate
// packet (SPEC_FULL.md §4 supplement, spec.md §4.6).
func (p *Peer) AcceptsServiceTransactions(allowlist []string) bool {
	for _, prefix := range allowlist {
		if len(p.ClientID) >= len(prefix) && p.ClientID[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

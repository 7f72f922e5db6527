package sync

import (
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/relaychain/go-relay/sync/ctypes"
	"github.com/relaychain/go-relay/sync/wire"
)

// Propagator carries the gossip-side state that lives alongside a
// ChainSync actor but ticks on its own cadence (spec.md §4.6,
// DESIGN.md "tick granularity" resolution): a rate limiter for the
// service-transaction packet, since that one is attacker-reachable at a
// much higher frequency than the ordinary block/tx propagation tick.
type Propagator struct {
	cs *ChainSync

	serviceLimiter *rate.Limiter
}

// NewPropagator wraps cs with its own service-transaction rate limiter,
// grounded on probe/handler.go's use of golang.org/x/time/rate for peer
// announcement throttling.
func NewPropagator(cs *ChainSync) *Propagator {
	return &Propagator{
		cs:             cs,
		serviceLimiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 4),
	}
}

// lagSelectionCount implements spec.md §4.6's round(sqrt(N)) peer count,
// clamped to [MinPeersPropagation, MaxPeersPropagation] and never more
// than n.
func lagSelectionCount(n int) int {
	c := int(math.Round(math.Sqrt(float64(n))))
	if c < wire.MinPeersPropagation {
		c = wire.MinPeersPropagation
	}
	if c > wire.MaxPeersPropagation {
		c = wire.MaxPeersPropagation
	}
	if c > n {
		c = n
	}
	return c
}

// NewBestBlock describes the chain client's new best block, for
// ChainNewBlocks's NewBlock/NewBlockHashes emission (spec.md §4.6).
type NewBestBlock struct {
	Hash            ctypes.Hash
	ParentHash      ctypes.Hash
	Number          uint64
	Block           []byte
	TotalDifficulty []byte
}

// ChainNewBlocksEvent mirrors chain_new_blocks(imported, invalid, enacted,
// retracted, sealed, proposed) (spec.md §4.6). Hash slices carry only
// identity; Best carries the data needed to build NewBlock/NewBlockHashes
// for the current canonical head.
type ChainNewBlocksEvent struct {
	Imported  []ctypes.Hash
	Invalid   []ctypes.Hash
	Enacted   []ctypes.Hash
	Retracted []ctypes.Hash
	Sealed    []ctypes.Hash
	Proposed  []ctypes.Hash
	Best      *NewBestBlock
}

// ChainNewBlocks implements spec.md §4.6's chain_new_blocks callback in
// full: restart on invalid import, NewBlock/NewBlockHashes propagation
// gated on "not syncing or sealed/proposed non-empty", and the
// enacted-driven dedup reset.
func (p *Propagator) ChainNewBlocks(io IO, ev ChainNewBlocksEvent) {
	cs := p.cs
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if len(ev.Invalid) > 0 {
		cs.restartLocked(io)
		return
	}

	if ev.Best != nil && (!cs.state.isSyncing() || len(ev.Sealed) > 0 || len(ev.Proposed) > 0) {
		cs.propagateBestBlockLocked(io, *ev.Best)
	}

	if !cs.state.isSyncing() && len(ev.Enacted) > 0 {
		if all := cs.peers.All(); len(all) > 0 {
			idx := cs.rnd.Intn(len(all))
			all[idx].ResetSentTransactions()
		}
	}
}

// propagateBestBlockLocked sends a full NewBlock to a sqrt(N)-sized
// sample of lagging-but-not-too-lagging peers, and NewBlockHashes to the
// remaining eligible peers (spec.md §4.6 Selection).
func (cs *ChainSync) propagateBestBlockLocked(io IO, best NewBestBlock) {
	peers := cs.peers.All()
	cs.rnd.Shuffle(len(peers), func(i, j int) { peers[i], peers[j] = peers[j], peers[i] })

	var eligible []*Peer
	for _, peer := range peers {
		if !peer.IsAllowed() {
			continue
		}
		if peer.LatestHash == best.Hash {
			continue
		}
		if peer.LatestNumber != 0 && best.Number > peer.LatestNumber &&
			best.Number-peer.LatestNumber > wire.MaxPeerLagPropagation {
			continue
		}
		eligible = append(eligible, peer)
	}

	sendFull := lagSelectionCount(len(eligible))
	for i, peer := range eligible {
		peer.MarkAnnounced(best.Hash)
		if io.Net == nil {
			continue
		}
		if i < sendFull {
			io.Net.SendNewBlock(peer.ID, wire.NewBlockPacket{
				Block:           best.Block,
				Hash:            best.Hash,
				ParentHash:      best.ParentHash,
				Number:          best.Number,
				TotalDifficulty: best.TotalDifficulty,
			})
		} else {
			io.Net.SendNewBlockHashes(peer.ID, wire.NewBlockHashesPacket{
				Hashes:  []ctypes.Hash{best.Hash},
				Numbers: []uint64{best.Number},
			})
		}
		peer.SetHead(best.Hash, peer.TotalDifficulty)
	}
	cs.lastSentBlock = best.Number
}

// PropagateNewTransactions implements propagate_new_transactions (spec.md
// §4.6): batches at most MaxTransactionsToPropagate hashes per peer,
// respects the MaxTransactionPacketSize byte bound, and routes
// zero-gas-price service transactions to clients that opted in via a
// separate packet instead of silently dropping them.
func (p *Propagator) PropagateNewTransactions(io IO, pending []PendingTransaction) {
	cs := p.cs
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, peer := range cs.peers.All() {
		if !peer.IsAllowed() {
			continue
		}
		var normal, service [][]byte
		var normalHashes []ctypes.Hash
		size := 0
		for _, tx := range pending {
			if peer.HasSentTransaction(tx.Hash) {
				continue
			}
			if len(tx.Raw) > wire.MaxTransactionSize {
				continue
			}
			isService := tx.GasPrice != nil && tx.GasPrice.Sign() == 0
			if isService {
				if !peer.AcceptsServiceTransactions(cs.cfg.ServiceTransactionClients) {
					continue
				}
				if !p.serviceLimiter.Allow() {
					continue
				}
				service = append(service, tx.Raw)
				peer.MarkTransactionsSent([]ctypes.Hash{tx.Hash})
				continue
			}
			if len(normal) >= wire.MaxTransactionsToPropagate {
				continue
			}
			if size+len(tx.Raw) > wire.MaxTransactionPacketSize {
				continue
			}
			normal = append(normal, tx.Raw)
			normalHashes = append(normalHashes, tx.Hash)
			size += len(tx.Raw)
		}
		if len(normal) > 0 && io.Net != nil {
			io.Net.SendTransactions(peer.ID, wire.TransactionsPacket{Transactions: normal})
			peer.MarkTransactionsSent(normalHashes)
		}
		if len(service) > 0 && io.Net != nil {
			io.Net.SendTransactions(peer.ID, wire.TransactionsPacket{Transactions: service})
		}
	}
}

// PendingTransaction is the minimal shape Propagator needs from the Chain
// Client's mempool snapshot (spec.md §4.6, §6).
type PendingTransaction struct {
	Hash     ctypes.Hash
	Raw      []byte
	GasPrice *GasPrice
}

// GasPrice is a thin wrapper so PendingTransaction doesn't need to import
// uint256 just to ask "is this zero" — kept local to avoid coupling the
// propagation API to a specific big-integer library choice by the
// embedder's mempool.
type GasPrice struct {
	value uint64
}

func NewGasPrice(v uint64) *GasPrice { return &GasPrice{value: v} }

func (g *GasPrice) Sign() int {
	if g == nil || g.value == 0 {
		return 0
	}
	return 1
}

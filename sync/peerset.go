package sync

import (
	"sync"
	"time"

	"github.com/relaychain/go-relay/sync/ctypes"
)

// PeerRegistry is the concurrency-safe peer table described in spec.md §3
// and §4.1 ("PeerRegistry"). It owns every Peer record exclusively;
// handlers obtain pointers for the duration of a single call, never a
// stored reference, following the teacher's peerSet pattern
// (go-probe-master/probe/peer.go wraps *probe.Peer rather than copying it).
type PeerRegistry struct {
	mu               sync.RWMutex
	peers            map[ctypes.PeerID]*Peer
	handshakingPeers map[ctypes.PeerID]time.Time
}

func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{
		peers:            make(map[ctypes.PeerID]*Peer),
		handshakingPeers: make(map[ctypes.PeerID]time.Time),
	}
}

// BeginHandshake records a peer that has connected but not yet sent Status
// (spec.md §4.8 STATUS_TIMEOUT bookkeeping).
func (r *PeerRegistry) BeginHandshake(id ctypes.PeerID, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handshakingPeers[id] = now
}

// Register promotes a handshaking connection to a full Peer record once
// Status has been validated.
func (r *PeerRegistry) Register(p *Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handshakingPeers, p.ID)
	r.peers[p.ID] = p
}

// Remove drops a peer — from a disconnect, a timeout or a disable.
func (r *PeerRegistry) Remove(id ctypes.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, id)
	delete(r.handshakingPeers, id)
}

// Get returns the peer record for id, or nil if unregistered.
func (r *PeerRegistry) Get(id ctypes.PeerID) *Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.peers[id]
}

// Len returns the number of registered (post-Status) peers.
func (r *PeerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// All returns a snapshot slice of every registered peer. The slice is a
// fresh copy safe to shuffle/sort by the caller.
func (r *PeerRegistry) All() []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// ExpiredHandshakes returns handshaking peers whose Status has not arrived within
// STATUS_TIMEOUT (spec.md §4.8).
func (r *PeerRegistry) ExpiredHandshakes(now time.Time, timeout time.Duration) []ctypes.PeerID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ctypes.PeerID
	for id, started := range r.handshakingPeers {
		if now.Sub(started) > timeout {
			out = append(out, id)
		}
	}
	return out
}

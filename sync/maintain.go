package sync

import (
	"time"

	"github.com/relaychain/go-relay/sync/ctypes"
)

// StatusTimeout bounds how long a connection may sit unconfirmed before a
// Status packet arrives (spec.md §4.8).
const StatusTimeout = 5 * time.Second

// MaintainPeers runs the per-tick timeout sweep described in spec.md
// §4.8: any peer whose outstanding request has exceeded its
// per-`asking`-kind threshold is disconnected, and handshaking
// connections that never sent Status within StatusTimeout are dropped
// too. The embedder is expected to call this on its own ticker
// (DESIGN.md's resolution of the "tick granularity" open question).
func (cs *ChainSync) MaintainPeers(io IO, now time.Time) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var expiredAsks []ctypes.PeerID
	for _, p := range cs.peers.All() {
		if p.Asking == AskingNothing {
			continue
		}
		if now.Sub(p.AskTime) > AskTimeout(p.Asking) {
			expiredAsks = append(expiredAsks, p.ID)
		}
	}
	expiredHandshakes := cs.peers.ExpiredHandshakes(now, StatusTimeout)

	for _, id := range expiredAsks {
		log.Debug("Peer request timed out", "peer", id)
		cs.newBlocks.ExpirePeer(id)
		if cs.oldBlocks != nil {
			cs.oldBlocks.ExpirePeer(id)
		}
		cs.peers.Remove(id)
		if io.Net != nil {
			io.Net.Disconnect(id)
		}
	}
	for _, id := range expiredHandshakes {
		log.Debug("Peer handshake timed out", "peer", id)
		cs.peers.Remove(id)
		if io.Net != nil {
			io.Net.Disconnect(id)
		}
	}

	if len(expiredAsks) > 0 {
		cs.continueSyncLocked(io)
	}
}

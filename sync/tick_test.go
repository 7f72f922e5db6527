package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMaintainSyncExitsWaitingWhenQueueDrains exercises the Waiting state's
// backpressure exit (spec.md §7 "Local backpressure"): once the chain
// client's queue is no longer full, the next tick folds back to Idle.
func TestMaintainSyncExitsWaitingWhenQueueDrains(t *testing.T) {
	cfg := Config{NetworkID: 1}
	cs, net, chain := newTestChainSync(cfg)
	io := IO{Net: net, Chain: chain}
	cs.setState(StateWaiting)

	chain.queueInfo = QueueInfo{Max: 0, MaxMem: 0} // still "full" by the zero-value rule
	cs.MaintainSync(io)
	assert.Equal(t, StateWaiting, cs.State(), "a still-full queue must not exit Waiting")

	chain.queueInfo = QueueInfo{Max: 1000, MaxMem: 1 << 20}
	cs.MaintainSync(io)
	assert.Equal(t, StateIdle, cs.State())
}

// TestMaintainSyncWaitingPeersTimesOutToIdle exercises the WaitingPeers
// quorum timeout when warp sync is merely preferred, not mandatory.
func TestMaintainSyncWaitingPeersTimesOutToIdle(t *testing.T) {
	cfg := Config{NetworkID: 1, WarpSync: WarpEnabled}
	cs, net, chain := newTestChainSync(cfg)
	io := IO{Net: net, Chain: chain}
	require.Equal(t, StateWaitingPeers, cs.State())

	cs.syncStartTime = time.Now().Add(-6 * time.Second)
	cs.MaintainSync(io)

	assert.Equal(t, StateIdle, cs.State())
}

// TestMaintainSyncWaitingPeersStaysUntilTimeout confirms the quorum wait
// does not fold to Idle before STATUS-style elapsed threshold.
func TestMaintainSyncWaitingPeersStaysUntilTimeout(t *testing.T) {
	cfg := Config{NetworkID: 1, WarpSync: WarpEnabled}
	cs, net, chain := newTestChainSync(cfg)
	io := IO{Net: net, Chain: chain}

	cs.syncStartTime = time.Now()
	cs.MaintainSync(io)

	assert.Equal(t, StateWaitingPeers, cs.State())
}

// TestMaintainSyncCompletesIdleDownloaders confirms a tick in Blocks state
// with both downloaders already complete folds back to Idle.
func TestMaintainSyncCompletesIdleDownloaders(t *testing.T) {
	cfg := Config{NetworkID: 1}
	cs, net, chain := newTestChainSync(cfg)
	chain.queueInfo = QueueInfo{Max: 1000, MaxMem: 1 << 20}
	io := IO{Net: net, Chain: chain}
	cs.setState(StateBlocks)

	cs.MaintainSync(io)

	assert.Equal(t, StateIdle, cs.State())
}

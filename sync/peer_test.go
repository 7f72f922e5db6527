package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relaychain/go-relay/sync/ctypes"
)

func TestPeerCanSyncRequiresConfirmedAndNotExpired(t *testing.T) {
	p := NewPeer("a", 63)
	assert.False(t, p.CanSync(), "unconfirmed peer must not be sync-eligible")

	p.Confirmation = Confirmed
	assert.True(t, p.CanSync())

	p.Expired = true
	assert.False(t, p.CanSync(), "expired peer must not be sync-eligible even if confirmed")
}

func TestPeerIsAllowedExcludesOnlyUnconfirmed(t *testing.T) {
	p := NewPeer("a", 63)
	assert.False(t, p.IsAllowed())

	p.Confirmation = TooShort
	assert.True(t, p.IsAllowed())

	p.Expired = true
	assert.False(t, p.IsAllowed())
}

func TestPeerSetAskingAndClearAsking(t *testing.T) {
	p := NewPeer("a", 63)
	assert.False(t, p.Busy())

	now := time.Now()
	p.SetAsking(AskingBlockHeaders, now)
	assert.True(t, p.Busy())
	assert.Equal(t, AskingBlockHeaders, p.Asking)
	assert.Equal(t, now, p.AskTime)

	p.ClearAsking(false)
	assert.False(t, p.Busy())
	assert.False(t, p.Expired)

	p.SetAsking(AskingBlockBodies, now)
	p.ClearAsking(true)
	assert.True(t, p.Expired, "a hard reset of an outstanding request must mark the peer expired")
}

func TestPeerClearAskingNoOpDoesNotExpire(t *testing.T) {
	p := NewPeer("a", 63)
	p.ClearAsking(true)
	assert.False(t, p.Expired, "clearing a request that was never outstanding must not expire the peer")
}

func TestAskTimeoutThresholds(t *testing.T) {
	cases := map[Asking]time.Duration{
		AskingBlockHeaders:     15 * time.Second,
		AskingBlockBodies:      20 * time.Second,
		AskingBlockReceipts:    10 * time.Second,
		AskingForkHeader:       3 * time.Second,
		AskingSnapshotManifest: 5 * time.Second,
		AskingSnapshotData:     120 * time.Second,
		AskingNothing:          0,
	}
	for kind, want := range cases {
		assert.Equal(t, want, AskTimeout(kind), "kind=%v", kind)
	}
}

func TestPeerTransactionDedup(t *testing.T) {
	p := NewPeer("a", 63)
	var h ctypes.Hash
	h[0] = 1
	assert.False(t, p.HasSentTransaction(h))
	p.MarkTransactionsSent([]ctypes.Hash{h})
	assert.True(t, p.HasSentTransaction(h))

	p.ResetSentTransactions()
	assert.False(t, p.HasSentTransaction(h))
}

func TestPeerAcceptsServiceTransactions(t *testing.T) {
	p := NewPeer("a", 63)
	p.ClientID = "Probe/v1.2.3"
	assert.True(t, p.AcceptsServiceTransactions([]string{"Probe/", "OtherClient/"}))
	assert.False(t, p.AcceptsServiceTransactions([]string{"OtherClient/"}))
}

func TestPeerMarkAnnouncedBoundsWindow(t *testing.T) {
	p := NewPeer("a", 63)
	var h ctypes.Hash
	h[0] = 7
	p.MarkAnnounced(h)
	assert.True(t, p.RecentlyAnnounced(h))

	for i := 0; i < 1100; i++ {
		var x ctypes.Hash
		x[0] = byte(i)
		x[1] = byte(i >> 8)
		p.MarkAnnounced(x)
	}
	// The window reset means the very first hash may or may not still be
	// present, but the set must never grow unbounded.
	assert.LessOrEqual(t, p.recentAnnounces.Cardinality(), 1024)
}

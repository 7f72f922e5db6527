package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychain/go-relay/sync/ctypes"
	"github.com/relaychain/go-relay/sync/downloader"
	"github.com/relaychain/go-relay/sync/wire"
)

// TestOnBlockBodiesDropsReplyFromExpiredPeer covers spec.md §3's sticky
// expiry: once a peer is marked Expired (e.g. by another peer's Reset in
// the same block_set), its own late reply must be consumed but not allowed
// to mutate H/B/S.
func TestOnBlockBodiesDropsReplyFromExpiredPeer(t *testing.T) {
	cs, net, chain := newTestChainSync(Config{NetworkID: 1})
	io := IO{Net: net, Chain: chain}

	l := ctypes.Hash{}
	cs.newBlocks.ResetTo([]ctypes.Hash{{0x05}})
	headerReq := cs.newBlocks.RequestBlocks("p1")
	require.NotNil(t, headerReq)
	anchor := headerReq.Headers.Origin.Hash

	h := &downloader.HeaderView{Hash: ctypes.Hash{0x05}, ParentHash: l, Number: 1}
	outcome, err := cs.newBlocks.ImportHeaders("p1", anchor, []*downloader.HeaderView{h})
	require.NoError(t, err)
	require.Equal(t, downloader.OutcomeNone, outcome)

	bodyReq := cs.newBlocks.RequestBlocks("p1")
	require.NotNil(t, bodyReq)
	require.NotNil(t, bodyReq.Bodies)

	p := NewPeer("p1", 63)
	p.Confirmation = Confirmed
	p.BlockSet = NewBlocks
	p.AskingBlocks = bodyReq.Bodies.Hashes
	p.SetAsking(AskingBlockBodies, time.Now())
	p.Expired = true
	cs.peers.Register(p)

	err = cs.OnBlockBodies(io, "p1", map[ctypes.Hash]*downloader.BodyView{{0x05}: {}})
	require.NoError(t, err)
	assert.False(t, p.Busy(), "the reply still consumes the asking slot")

	blocks, _ := cs.newBlocks.CollectBlocks()
	assert.Empty(t, blocks, "an expired peer's body reply must not assemble a block")
}

// TestBlockHeadersResetExpiresWholeBlockSet exercises the ImportHeaders
// Reset path end to end: once our own subchain bookkeeping moves on from
// under an in-flight request, every peer sharing that block_set — not just
// the one that happened to reply — is marked expired.
func TestBlockHeadersResetExpiresWholeBlockSet(t *testing.T) {
	cs, net, chain := newTestChainSync(Config{NetworkID: 1})
	io := IO{Net: net, Chain: chain}

	cs.newBlocks.ResetTo([]ctypes.Hash{{0x05}, {0x06}})

	reqA := cs.newBlocks.RequestBlocks("p1")
	require.NotNil(t, reqA)
	anchorA := reqA.Headers.Origin.Hash

	reqB := cs.newBlocks.RequestBlocks("p2")
	require.NotNil(t, reqB)
	anchorB := reqB.Headers.Origin.Hash
	require.NotEqual(t, anchorA, anchorB)

	p1 := NewPeer("p1", 63)
	p1.Confirmation = Confirmed
	p1.BlockSet = NewBlocks
	p1.AskingHash = &anchorA
	p1.SetAsking(AskingBlockHeaders, time.Now())
	cs.peers.Register(p1)

	p2 := NewPeer("p2", 63)
	p2.Confirmation = Confirmed
	p2.BlockSet = NewBlocks
	p2.AskingHash = &anchorB
	p2.SetAsking(AskingBlockHeaders, time.Now())
	cs.peers.Register(p2)

	// A NewBlockHashes-driven re-seed moves S away from anchorB before p2's
	// reply arrives.
	cs.newBlocks.ResetTo([]ctypes.Hash{{0x09}})

	h := &downloader.HeaderView{Hash: ctypes.Hash{0x06}, ParentHash: ctypes.Hash{}, Number: 1}
	err := cs.OnBlockHeaders(io, "p2", []*downloader.HeaderView{h})
	require.NoError(t, err)

	assert.True(t, p1.Expired, "Reset must expire every peer sharing the block_set")
	assert.True(t, p2.Expired)
}

// TestOnNewBlockDropsStaleAnnouncement covers MAX_NEW_BLOCK_AGE: a NewBlock
// packet more than 20 behind our last imported number is rejected before
// ever reaching the chain client.
func TestOnNewBlockDropsStaleAnnouncement(t *testing.T) {
	cs, net, chain := newTestChainSync(Config{NetworkID: 1})
	io := IO{Net: net, Chain: chain}
	cs.newBlocks.Reset(ctypes.Hash{0xAA}, 1000)

	p := NewPeer("p1", 63)
	p.Confirmation = Confirmed
	cs.peers.Register(p)

	pkt := wire.NewBlockPacket{
		Block:      []byte("block"),
		Hash:       ctypes.Hash{0x42},
		ParentHash: ctypes.Hash{0x99},
		Number:     5,
	}
	err := cs.OnNewBlock(io, "p1", pkt)
	require.Error(t, err)
	assert.True(t, IsDisabling(err))
	assert.Empty(t, chain.importCalls, "a stale announcement must never reach ImportBlock")
}

func TestOnNewBlockAcceptsRecentAnnouncement(t *testing.T) {
	cs, net, chain := newTestChainSync(Config{NetworkID: 1})
	chain.status[ctypes.Hash{0x99}] = StatusInChain
	io := IO{Net: net, Chain: chain}
	cs.newBlocks.Reset(ctypes.Hash{0xAA}, 30)

	p := NewPeer("p1", 63)
	p.Confirmation = Confirmed
	cs.peers.Register(p)

	pkt := wire.NewBlockPacket{
		Block:      []byte("block"),
		Hash:       ctypes.Hash{0x42},
		ParentHash: ctypes.Hash{0x99},
		Number:     15,
	}
	err := cs.OnNewBlock(io, "p1", pkt)
	require.NoError(t, err)
	assert.Len(t, chain.importCalls, 1)
}

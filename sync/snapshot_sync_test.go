package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychain/go-relay/internal/xcrypto"
	"github.com/relaychain/go-relay/sync/ctypes"
)

// stubSnapshotService is a configurable SnapshotService double, distinct
// from supplier_test.go's fixed-Inactive fakeSnapshotService.
type stubSnapshotService struct {
	status    SnapshotServiceStatus
	stateDone int
	blockDone int
	aborted   bool
}

func (s *stubSnapshotService) SupportedVersions() (uint, uint, bool)       { return 1, 1, true }
func (s *stubSnapshotService) BeginRestore(ManifestData)                  {}
func (s *stubSnapshotService) AbortRestore()                              { s.aborted = true }
func (s *stubSnapshotService) RestoreBlockChunk(ctypes.Hash, []byte) error { return nil }
func (s *stubSnapshotService) RestoreStateChunk(ctypes.Hash, []byte) error { return nil }
func (s *stubSnapshotService) Status() (SnapshotServiceStatus, int, int) {
	return s.status, s.stateDone, s.blockDone
}
func (s *stubSnapshotService) Manifest() *ManifestData { return nil }

// TestSnapshotDataStallsThenResumesOnBacklog covers the
// MAX_SNAPSHOT_CHUNKS_DOWNLOAD_AHEAD flow-control gate: once the Snapshot
// Service falls more than the cap behind our validated-chunk count, the
// supervisor must stop requesting chunks and fold to SnapshotWaiting, then
// resume requesting once the backlog drains.
func TestSnapshotDataStallsThenResumesOnBacklog(t *testing.T) {
	cfg := Config{NetworkID: 1, WarpSync: WarpEnabled}
	cs, net, chain := newTestChainSync(cfg)
	io := IO{Net: net, Chain: chain}

	var blockChunks []ctypes.Hash
	var raws [][]byte
	for i := 0; i < 6; i++ {
		raw := []byte{byte(i), 0xAB}
		raws = append(raws, raw)
		blockChunks = append(blockChunks, ctypes.Hash(xcrypto.Keccak256(raw)))
	}
	manifestHash := ctypes.Hash{0x01}
	cs.snap.ResetTo(manifestHash, blockChunks, nil)

	p := NewPeer("p1", 1)
	p.Confirmation = Confirmed
	p.SnapshotHash = &manifestHash
	cs.peers.Register(p)
	cs.setState(StateSnapshotData)

	for i := 0; i < 4; i++ {
		_, _, err := cs.snap.ValidateChunk(raws[i])
		require.NoError(t, err)
	}

	fake := &stubSnapshotService{status: RestoreOngoing}
	io.Snapshot = fake

	cs.ContinueSync(io)
	assert.Equal(t, StateSnapshotWaiting, cs.State())
	assert.Equal(t, 0, net.countKind("GetSnapshotData"))

	fake.blockDone = 2
	cs.MaintainSync(io)

	assert.Equal(t, StateSnapshotData, cs.State())
	assert.Equal(t, 1, net.countKind("GetSnapshotData"))
}

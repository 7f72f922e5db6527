package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychain/go-relay/internal/xcrypto"
	"github.com/relaychain/go-relay/sync/ctypes"
)

func hashFor(data []byte) ctypes.Hash {
	return ctypes.Hash(xcrypto.Keccak256(data))
}

func TestNewDownloaderIsIncomplete(t *testing.T) {
	d := New()
	assert.False(t, d.IsComplete(), "no manifest set yet")
	_, ok := d.ManifestHash()
	assert.False(t, ok)
}

func TestResetToSeedsPendingByKind(t *testing.T) {
	d := New()
	manifest := hashFor([]byte("manifest"))
	blockChunk := hashFor([]byte("block-chunk"))
	stateChunk := hashFor([]byte("state-chunk"))

	d.ResetTo(manifest, []ctypes.Hash{blockChunk}, []ctypes.Hash{stateChunk})

	got, ok := d.ManifestHash()
	require.True(t, ok)
	assert.Equal(t, manifest, got)
	assert.Equal(t, 2, d.TotalChunks())
	assert.Equal(t, 0, d.DoneChunks())
	assert.False(t, d.IsComplete())
}

func TestValidateChunkMovesToCompleted(t *testing.T) {
	d := New()
	data := []byte("a chunk of bytes")
	hash := hashFor(data)
	d.ResetTo(hashFor([]byte("manifest")), []ctypes.Hash{hash}, nil)

	got, kind, err := d.ValidateChunk(data)
	require.NoError(t, err)
	assert.Equal(t, hash, got)
	assert.Equal(t, ChunkBlock, kind)
	assert.Equal(t, 1, d.DoneChunks())
	assert.True(t, d.IsComplete())
}

func TestValidateChunkRejectsUnknownBytes(t *testing.T) {
	d := New()
	d.ResetTo(hashFor([]byte("manifest")), []ctypes.Hash{hashFor([]byte("expected"))}, nil)

	_, _, err := d.ValidateChunk([]byte("something else entirely"))
	assert.Error(t, err)
}

func TestPendingReturnsAtMostN(t *testing.T) {
	d := New()
	chunks := []ctypes.Hash{hashFor([]byte("a")), hashFor([]byte("b")), hashFor([]byte("c"))}
	d.ResetTo(hashFor([]byte("manifest")), chunks, nil)

	got := d.Pending(2)
	assert.Len(t, got, 2)
}

func TestNoteBadThenIsKnownBad(t *testing.T) {
	d := New()
	bad := hashFor([]byte("bad-manifest"))
	good := hashFor([]byte("good-manifest"))

	assert.False(t, d.IsKnownBad(bad))
	d.NoteBad(bad)
	assert.True(t, d.IsKnownBad(bad))
	assert.False(t, d.IsKnownBad(good), "the exact-match set must not admit an unrelated hash")
}

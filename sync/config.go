package sync

import "github.com/relaychain/go-relay/sync/ctypes"

// WarpMode controls whether snapshot bootstrap is attempted (spec.md §6).
type WarpMode int

const (
	WarpDisabled WarpMode = iota
	WarpEnabled
	WarpOnlyAndAfter // paired with Config.WarpOnlyAfterBlock
)

// ForkBlock is a known fork checkpoint a peer must produce the exact
// header for (spec.md §6, §4.4).
type ForkBlock struct {
	Number uint64
	Hash   ctypes.Hash
}

// Config holds the recognised options from spec.md §6. No file or CLI
// parsing happens here — that belongs to the embedder (spec.md §1 lists
// CLI/configuration parsing as out of scope).
type Config struct {
	NetworkID uint64

	WarpSync           WarpMode
	WarpOnlyAfterBlock uint64
	DownloadOldBlocks  bool

	ForkBlock *ForkBlock

	// ExpectedWarpBlock, if set, additionally gates the WaitingPeers to
	// SnapshotManifest transition (spec.md §4.1).
	ExpectedWarpBlock uint64

	// ServiceTransactionClients lists client-id prefixes known to accept
	// zero-gas-price transactions on a separate packet (SPEC_FULL.md §4).
	ServiceTransactionClients []string
}

func (c Config) warpMandatory() bool {
	return c.WarpSync == WarpOnlyAndAfter
}

func (c Config) warpWanted() bool {
	return c.WarpSync == WarpEnabled || c.WarpSync == WarpOnlyAndAfter
}

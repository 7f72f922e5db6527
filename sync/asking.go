package sync

// Asking identifies the single outstanding request kind a peer may have in
// flight at once (spec.md §3: "a peer has at most one in-flight request").
type Asking int

const (
	AskingNothing Asking = iota
	AskingForkHeader
	AskingBlockHeaders
	AskingBlockBodies
	AskingBlockReceipts
	AskingSnapshotManifest
	AskingSnapshotData
)

func (a Asking) String() string {
	switch a {
	case AskingNothing:
		return "nothing"
	case AskingForkHeader:
		return "fork-header"
	case AskingBlockHeaders:
		return "block-headers"
	case AskingBlockBodies:
		return "block-bodies"
	case AskingBlockReceipts:
		return "block-receipts"
	case AskingSnapshotManifest:
		return "snapshot-manifest"
	case AskingSnapshotData:
		return "snapshot-data"
	default:
		return "unknown"
	}
}

// Confirmation tracks how far along the fork-header handshake a peer is
// (spec.md §3).
type Confirmation int

const (
	Unconfirmed Confirmation = iota
	TooShort
	Confirmed
)

func (c Confirmation) String() string {
	switch c {
	case Unconfirmed:
		return "unconfirmed"
	case TooShort:
		return "too-short"
	case Confirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// BlockSet identifies which BlockDownloader instance owns a peer's current
// in-flight request — the forward downloader or the ancient-backfill one.
type BlockSet int

const (
	BlockSetNone BlockSet = iota
	NewBlocks
	OldBlocks
)

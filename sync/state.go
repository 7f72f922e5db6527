package sync

// State is the supervisor's global sync state (spec.md §3, §4.1).
type State int

const (
	StateWaitingPeers State = iota
	StateSnapshotManifest
	StateSnapshotData
	StateSnapshotWaiting
	StateBlocks
	StateNewBlocks
	StateIdle
	StateWaiting
)

func (s State) String() string {
	switch s {
	case StateWaitingPeers:
		return "WaitingPeers"
	case StateSnapshotManifest:
		return "SnapshotManifest"
	case StateSnapshotData:
		return "SnapshotData"
	case StateSnapshotWaiting:
		return "SnapshotWaiting"
	case StateBlocks:
		return "Blocks"
	case StateNewBlocks:
		return "NewBlocks"
	case StateIdle:
		return "Idle"
	case StateWaiting:
		return "Waiting"
	default:
		return "Unknown"
	}
}

// isSyncing reports whether the state represents active synchronisation
// (used by the Propagator, spec.md §4.6: "If not currently syncing...").
func (s State) isSyncing() bool {
	switch s {
	case StateBlocks, StateNewBlocks, StateSnapshotManifest, StateSnapshotData, StateSnapshotWaiting:
		return true
	default:
		return false
	}
}

package sync

// MaintainSync re-evaluates time-driven transitions that don't wait on a
// packet: the WaitingPeers quorum timeout, and Waiting/SnapshotWaiting
// exit once chain queue or snapshot-service backpressure has cleared
// (spec.md §4.1, §7 "Local backpressure"). Call on the same cadence as
// MaintainPeers (DESIGN.md "tick granularity").
func (cs *ChainSync) MaintainSync(io IO) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	switch cs.state {
	case StateWaitingPeers:
		cs.evaluateSnapshotStartLocked(io)
	case StateWaiting:
		if io.Chain == nil || !io.Chain.QueueInfo().Full() {
			cs.setState(StateIdle)
			cs.continueSyncLocked(io)
		}
	case StateSnapshotWaiting:
		cs.waitForRestoreCompletionLocked(io)
	default:
		cs.continueSyncLocked(io)
	}

	if cs.newBlocks.IsComplete() && (cs.oldBlocks == nil || cs.oldBlocks.IsComplete()) {
		cs.completeSyncLocked()
	}
}

// Contains the counters collected by the downloader, mirroring
// ProbeChain-go-probe/go-probe-master/probe/downloader/metrics.go — an
// in-house meter/timer/counter set rather than a third-party exporter,
// since telemetry export is a Non-goal (spec.md §1).
package downloader

import "sync/atomic"

// Counters is a tiny in-house metrics surface: enough for tests and an
// embedder's own dashboard to observe throughput, without pulling in a
// metrics export pipeline (out of scope per spec.md §1 "telemetry").
type Counters struct {
	HeadersIn, HeadersDropped, HeadersTimeout      uint64
	BodiesIn, BodiesDropped, BodiesTimeout         uint64
	ReceiptsIn, ReceiptsDropped, ReceiptsTimeout    uint64
}

var globalCounters Counters

func (c *Counters) incHeadersIn(n uint64)   { atomic.AddUint64(&c.HeadersIn, n) }
func (c *Counters) incHeadersDropped()      { atomic.AddUint64(&c.HeadersDropped, 1) }
func (c *Counters) incHeadersTimeout()      { atomic.AddUint64(&c.HeadersTimeout, 1) }
func (c *Counters) incBodiesIn(n uint64)    { atomic.AddUint64(&c.BodiesIn, n) }
func (c *Counters) incBodiesDropped()       { atomic.AddUint64(&c.BodiesDropped, 1) }
func (c *Counters) incReceiptsIn(n uint64)  { atomic.AddUint64(&c.ReceiptsIn, n) }

// Snapshot returns a point-in-time copy of the global counters for tests.
func Snapshot() Counters {
	return Counters{
		HeadersIn:      atomic.LoadUint64(&globalCounters.HeadersIn),
		HeadersDropped: atomic.LoadUint64(&globalCounters.HeadersDropped),
		HeadersTimeout: atomic.LoadUint64(&globalCounters.HeadersTimeout),
		BodiesIn:       atomic.LoadUint64(&globalCounters.BodiesIn),
		BodiesDropped:  atomic.LoadUint64(&globalCounters.BodiesDropped),
		ReceiptsIn:     atomic.LoadUint64(&globalCounters.ReceiptsIn),
	}
}

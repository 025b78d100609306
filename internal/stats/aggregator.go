// Package stats derives display-ready traffic telemetry from the
// cumulative byte counters reported by the openvpn3 CLI.
package stats

// GraphWindow is the number of rate samples kept per direction for the
// traffic graph.
const GraphWindow = 60

// Aggregator tracks cumulative byte counters and derives per-interval
// transfer rates, feeding a fixed-size history ring per direction.
//
// It is not safe for concurrent use; the supervisor applies samples from
// its single update loop and exposes copies in snapshots.
type Aggregator struct {
	bytesIn  uint64
	bytesOut uint64
	rateIn   float32
	rateOut  float32

	historyIn  *Ring[float32]
	historyOut *Ring[float32]
}

// NewAggregator creates an Aggregator with zeroed counters and
// zero-filled history rings of GraphWindow samples.
func NewAggregator() *Aggregator {
	return &Aggregator{
		historyIn:  NewRing[float32](GraphWindow),
		historyOut: NewRing[float32](GraphWindow),
	}
}

// Update applies a fresh pair of cumulative counters and returns the
// derived per-interval rates.
//
// A counter that regressed (tool restart, stale read, rollover) yields a
// zero rate for that interval; the lower value becomes the new baseline
// so the next interval measures forward from there. The rates are also
// pushed into the history rings.
func (a *Aggregator) Update(totalIn, totalOut uint64) (rateIn, rateOut float32) {
	var diffIn, diffOut uint64
	if totalIn >= a.bytesIn {
		diffIn = totalIn - a.bytesIn
	}
	if totalOut >= a.bytesOut {
		diffOut = totalOut - a.bytesOut
	}

	a.bytesIn = totalIn
	a.bytesOut = totalOut
	a.rateIn = float32(diffIn)
	a.rateOut = float32(diffOut)

	a.historyIn.Push(a.rateIn)
	a.historyOut.Push(a.rateOut)

	return a.rateIn, a.rateOut
}

// Reset zeroes the cumulative totals and rates. The history rings are
// left intact so the graph decays to zero instead of jumping.
func (a *Aggregator) Reset() {
	a.bytesIn = 0
	a.bytesOut = 0
	a.rateIn = 0
	a.rateOut = 0
}

// Totals returns the last applied cumulative byte counters.
func (a *Aggregator) Totals() (bytesIn, bytesOut uint64) {
	return a.bytesIn, a.bytesOut
}

// Rates returns the most recently derived per-interval rates.
func (a *Aggregator) Rates() (rateIn, rateOut float32) {
	return a.rateIn, a.rateOut
}

// HistoryIn returns the inbound rate history, oldest first.
func (a *Aggregator) HistoryIn() []float32 {
	return a.historyIn.Values()
}

// HistoryOut returns the outbound rate history, oldest first.
func (a *Aggregator) HistoryOut() []float32 {
	return a.historyOut.Values()
}

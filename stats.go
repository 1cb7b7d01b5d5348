package wred

// stats.go accumulates per-port counters and samples as the simulation
// runs, and summarizes them after it stops.  The AQM core itself only
// reports verdicts; the counting lives out here at the port boundary.

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// PortStats holds the counters and samples one port accumulates.
// Per-class maps are keyed by priority class
type PortStats struct {
	Arrivals    map[int]int // packets offered, per class
	Admits      map[int]int // packets accepted into the queue
	PrDrops     map[int]int // packets dropped by random early detection
	ForcedDrops map[int]int // packets dropped with the average at or past max threshold
	TailDrops   map[int]int // packets admitted by the AQM but refused by the full buffer
	Departures  int         // packets that completed transmission

	occupancy []float64 // instantaneous queue size at each arrival
	avgQueue  []float64 // smoothed average at each arrival
	waits     []float64 // queueing delay of each departed packet
}

// createPortStats is a constructor
func createPortStats(numPriorities int) *PortStats {
	ps := new(PortStats)
	ps.Arrivals = make(map[int]int)
	ps.Admits = make(map[int]int)
	ps.PrDrops = make(map[int]int)
	ps.ForcedDrops = make(map[int]int)
	ps.TailDrops = make(map[int]int)
	for class := 0; class < numPriorities; class++ {
		ps.Arrivals[class] = 0
		ps.Admits[class] = 0
		ps.PrDrops[class] = 0
		ps.ForcedDrops[class] = 0
		ps.TailDrops[class] = 0
	}
	ps.occupancy = make([]float64, 0)
	ps.avgQueue = make([]float64, 0)
	ps.waits = make([]float64, 0)
	return ps
}

func (ps *PortStats) countArrival(class int) {
	ps.Arrivals[class] += 1
}

func (ps *PortStats) countAdmit(class int) {
	ps.Admits[class] += 1
}

func (ps *PortStats) countDrop(class int, verdict DropVerdict) {
	if verdict == ForcedDrop {
		ps.ForcedDrops[class] += 1
	} else {
		ps.PrDrops[class] += 1
	}
}

func (ps *PortStats) countTail(class int) {
	ps.TailDrops[class] += 1
}

func (ps *PortStats) countDeparture(wait float64) {
	ps.Departures += 1
	ps.waits = append(ps.waits, wait)
}

func (ps *PortStats) recordSample(occupancy, avgQueue float64) {
	ps.occupancy = append(ps.occupancy, occupancy)
	ps.avgQueue = append(ps.avgQueue, avgQueue)
}

// Offered sums arrivals over all classes
func (ps *PortStats) Offered() int {
	total := 0
	for _, n := range ps.Arrivals {
		total += n
	}
	return total
}

// Admitted sums admits over all classes
func (ps *PortStats) Admitted() int {
	total := 0
	for _, n := range ps.Admits {
		total += n
	}
	return total
}

// Dropped sums every kind of drop over all classes
func (ps *PortStats) Dropped() int {
	total := 0
	for class := range ps.Arrivals {
		total += ps.PrDrops[class] + ps.ForcedDrops[class] + ps.TailDrops[class]
	}
	return total
}

// A StatsSummary reduces a port's samples to the headline numbers reported
// at the end of an experiment
type StatsSummary struct {
	Offered  int
	Admitted int
	Dropped  int
	Departed int

	MeanOccupancy float64 // mean instantaneous queue size over arrivals
	VarOccupancy  float64
	MeanAvgQueue  float64 // mean of the smoothed average over arrivals
	MeanWait      float64 // mean queueing delay of departed packets
	P95Wait       float64 // 95th percentile queueing delay
}

// Summarize computes the summary from the samples gathered so far
func (ps *PortStats) Summarize() StatsSummary {
	smry := StatsSummary{
		Offered:  ps.Offered(),
		Admitted: ps.Admitted(),
		Dropped:  ps.Dropped(),
		Departed: ps.Departures,
	}

	if len(ps.occupancy) > 0 {
		smry.MeanOccupancy = stat.Mean(ps.occupancy, nil)
		smry.VarOccupancy = stat.Variance(ps.occupancy, nil)
		smry.MeanAvgQueue = stat.Mean(ps.avgQueue, nil)
	}

	if len(ps.waits) > 0 {
		smry.MeanWait = stat.Mean(ps.waits, nil)

		// Quantile needs its input sorted
		sorted := make([]float64, len(ps.waits))
		copy(sorted, ps.waits)
		sort.Float64s(sorted)
		smry.P95Wait = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}
	return smry
}

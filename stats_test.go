package wred

import (
	"math"
	"testing"
)

func TestPortStatsCounting(t *testing.T) {
	ps := createPortStats(2)

	ps.countArrival(0)
	ps.countArrival(0)
	ps.countArrival(1)
	ps.countAdmit(0)
	ps.countDrop(0, ProbabilisticDrop)
	ps.countDrop(1, ForcedDrop)
	ps.countTail(1)

	if ps.Offered() != 3 {
		t.Errorf("Offered() = %d, want 3", ps.Offered())
	}
	if ps.Admitted() != 1 {
		t.Errorf("Admitted() = %d, want 1", ps.Admitted())
	}
	if ps.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", ps.Dropped())
	}
	if ps.PrDrops[0] != 1 || ps.ForcedDrops[1] != 1 || ps.TailDrops[1] != 1 {
		t.Errorf("drop kinds miscounted: %v %v %v", ps.PrDrops, ps.ForcedDrops, ps.TailDrops)
	}
}

func TestPortStatsSummary(t *testing.T) {
	ps := createPortStats(1)

	for _, occ := range []float64{0.0, 2.0, 4.0, 6.0} {
		ps.recordSample(occ, occ/2.0)
	}
	for _, wait := range []float64{1.0, 2.0, 3.0, 4.0} {
		ps.countDeparture(wait)
	}

	smry := ps.Summarize()
	if math.Abs(smry.MeanOccupancy-3.0) > 1e-12 {
		t.Errorf("MeanOccupancy = %f, want 3.0", smry.MeanOccupancy)
	}
	if math.Abs(smry.MeanAvgQueue-1.5) > 1e-12 {
		t.Errorf("MeanAvgQueue = %f, want 1.5", smry.MeanAvgQueue)
	}
	if math.Abs(smry.MeanWait-2.5) > 1e-12 {
		t.Errorf("MeanWait = %f, want 2.5", smry.MeanWait)
	}
	if math.Abs(smry.P95Wait-4.0) > 1e-12 {
		t.Errorf("P95Wait = %f, want 4.0", smry.P95Wait)
	}
	if smry.Departed != 4 {
		t.Errorf("Departed = %d, want 4", smry.Departed)
	}
}

func TestSummaryOfEmptyStats(t *testing.T) {
	ps := createPortStats(1)
	smry := ps.Summarize()
	if smry.MeanOccupancy != 0.0 || smry.MeanWait != 0.0 {
		t.Errorf("empty stats summarized to %+v, want zeros", smry)
	}
}

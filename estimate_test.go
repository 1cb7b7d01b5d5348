package wred

import (
	"math"
	"testing"
)

func TestEwmaSingleUpdate(t *testing.T) {
	// weight factor 6 gives gain 1/64, so one sample of 64 from an empty
	// average lands at exactly 1.0
	ae := createAvgEstimator(6)
	avg := ae.update(64.0)
	if math.Abs(avg-1.0) > 1e-12 {
		t.Errorf("update(64) = %f, want 1.0", avg)
	}
}

func TestEwmaConvergence(t *testing.T) {
	// repeated constant samples drive the average to the constant for any
	// weight factor
	const sample = 100.0
	for _, weightFactor := range []int{1, 2, 6, 9} {
		ae := createAvgEstimator(weightFactor)
		var avg float64
		for i := 0; i < 20000; i++ {
			avg = ae.update(sample)
		}
		if math.Abs(avg-sample) > 1e-3 {
			t.Errorf("weight factor %d: average %f after 20000 updates, want %f",
				weightFactor, avg, sample)
		}
	}
}

func TestIdleDecayPathIndependence(t *testing.T) {
	// decaying over m cycles in one call must match m single-cycle calls
	const m = 12
	single := createAvgEstimator(6)
	single.avg = 250.0
	stepped := createAvgEstimator(6)
	stepped.avg = 250.0

	one := single.decay(m)
	var many float64
	for i := 0; i < m; i++ {
		many = stepped.decay(1)
	}
	if math.Abs(one-many) > 1e-9 {
		t.Errorf("decay(%d) = %f but %d calls of decay(1) = %f", m, one, m, many)
	}

	want := 250.0 * math.Pow(1.0-1.0/64.0, m)
	if math.Abs(one-want) > 1e-9 {
		t.Errorf("decay(%d) = %f, want %f", m, one, want)
	}
}

func TestIdleCycles(t *testing.T) {
	tests := []struct {
		idle, smallPcktTime float64
		want                int
	}{
		{1.0, 0.1, 10},
		{0.95, 0.1, 9},  // floored
		{0.05, 0.1, 1},  // never less than one
		{0.0, 0.1, 1},
	}
	for _, tt := range tests {
		got := idleCycles(tt.idle, tt.smallPcktTime)
		if got != tt.want {
			t.Errorf("idleCycles(%f,%f) = %d, want %d", tt.idle, tt.smallPcktTime, got, tt.want)
		}
	}
}

func TestEstimatorRejectsBadSample(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("negative occupancy sample did not panic")
		}
	}()
	ae := createAvgEstimator(6)
	ae.update(-1.0)
}

func TestEstimatorRejectsNaNSample(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NaN occupancy sample did not panic")
		}
	}()
	ae := createAvgEstimator(6)
	ae.update(math.NaN())
}

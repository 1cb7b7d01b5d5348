package wred

// estimate.go maintains the exponentially weighted moving average of
// queue occupancy that the RED decision consults.  The average, not the
// instantaneous queue length, is what makes RED tolerate bursts while
// reacting to sustained congestion.

import (
	"fmt"
	"math"
)

// avgEstimator holds the smoothed occupancy of one port's queue.  All
// priority classes of the port share one estimator; only the thresholds
// the average is compared against differ per class
type avgEstimator struct {
	avg float64 // smoothed occupancy, in bytes or packets per the port mode
	wq  float64 // smoothing gain 2^-weightFactor
}

// createAvgEstimator is a constructor.  weightFactor is the exponent n in
// the update avg <- avg*(1-2^-n) + sample*2^-n; 6 is customary for
// packet-count mode and 9 for byte mode
func createAvgEstimator(weightFactor int) *avgEstimator {
	ae := new(avgEstimator)
	ae.wq = math.Pow(2.0, -float64(weightFactor))
	return ae
}

// update folds a new occupancy sample into the average and returns it.
// The sample is the occupancy measured before the arriving packet joins
// the queue
func (ae *avgEstimator) update(occupancy float64) float64 {
	if occupancy < 0.0 || math.IsNaN(occupancy) {
		panic(fmt.Errorf("occupancy sample %f out of range", occupancy))
	}
	ae.avg = ae.avg*(1.0-ae.wq) + occupancy*ae.wq
	ae.assertValid()
	return ae.avg
}

// decay ages the average across an interval during which the queue sat
// empty, as though m zero-occupancy samples had arrived, one per virtual
// small-packet service cycle.  Without this an idle port would keep a
// stale average and appear congested the instant traffic resumes
func (ae *avgEstimator) decay(m int) float64 {
	if m < 1 {
		m = 1
	}
	ae.avg *= math.Pow(1.0-ae.wq, float64(m))
	ae.assertValid()
	return ae.avg
}

// idleCycles converts an idle duration into the count of virtual service
// cycles applied by decay: the number of typical small-packet transmission
// times that fit in the interval, floored, never less than one
func idleCycles(idle, smallPcktTime float64) int {
	m := int(math.Floor(idle / smallPcktTime))
	if m < 1 {
		m = 1
	}
	return m
}

// a negative or NaN average can only come from a clock or configuration
// error in the host simulation, so it is fatal rather than corrected
func (ae *avgEstimator) assertValid() {
	if ae.avg < 0.0 || math.IsNaN(ae.avg) {
		panic(fmt.Errorf("smoothed queue average %f out of range", ae.avg))
	}
}

package wred

// red.go implements the RED admission decision: the three-region
// comparison of the smoothed queue average against a threshold pair,
// and the count-since-last-drop correction that spaces probabilistic
// drops more evenly than independent coin flips would.

import (
	"fmt"
	"math"

	"github.com/iti/rngstream"
)

// DropVerdict enumerates the outcomes of the admission decision
type DropVerdict int

const (
	// Admit accepts the packet into the queue
	Admit DropVerdict = iota

	// ProbabilisticDrop discards the packet by random early detection
	ProbabilisticDrop

	// ForcedDrop discards the packet with certainty, the average having
	// reached the class's maximum threshold
	ForcedDrop
)

func (dv DropVerdict) String() string {
	switch dv {
	case Admit:
		return "admit"
	case ProbabilisticDrop:
		return "prdrop"
	case ForcedDrop:
		return "fdrop"
	}
	return "unknown"
}

// dropState remembers how many packets have been admitted since the last
// drop.  It belongs to the port's queue, not to any priority class
type dropState struct {
	sinceLastDrop int
}

// redState composes the shared average estimator and drop state of one
// port with the maximum drop probability and the random stream used for
// the probabilistic draw.  Re-parameterized per packet with a class's
// threshold pair, it is the congestion controller proper
type redState struct {
	estimator      *avgEstimator
	drop           dropState
	maxProbability float64
	rngstrm        *rngstream.RngStream
}

// createRedState is a constructor.  The random stream is passed in rather
// than created here so that a host simulation controls reproducibility
func createRedState(weightFactor int, maxProbability float64, rngstrm *rngstream.RngStream) (*redState, error) {
	if weightFactor < 1 {
		return nil, fmt.Errorf("%w: weight factor %d is not positive", ErrConfiguration, weightFactor)
	}
	if !(maxProbability > 0.0 && maxProbability <= 1.0) {
		return nil, fmt.Errorf("%w: max drop probability %f outside (0,1]", ErrConfiguration, maxProbability)
	}
	rs := new(redState)
	rs.estimator = createAvgEstimator(weightFactor)
	rs.maxProbability = maxProbability
	rs.rngstrm = rngstrm
	return rs, nil
}

// decide returns the admission verdict for the current smoothed average
// measured against one threshold pair, expressed in the same units as the
// average.  The drop-spacing count is updated in place: reset on any drop,
// advanced on an admit from within the probabilistic region, untouched by
// admits from below the minimum threshold
func (rs *redState) decide(tp ThresholdPair) DropVerdict {
	avg := rs.estimator.avg

	if avg < tp.MinThreshold {
		return Admit
	}

	// at or beyond the maximum threshold every packet goes.  A collapsed
	// pair (min == max) lands here for any average at or above the minimum
	if avg >= tp.MaxThreshold {
		rs.drop.sinceLastDrop = 0
		return ForcedDrop
	}

	// linear ramp from 0 at the minimum threshold to maxProbability at
	// the maximum
	pb := rs.maxProbability * (avg - tp.MinThreshold) / (tp.MaxThreshold - tp.MinThreshold)

	// the count correction: each admitted packet since the last drop
	// raises the chance the next one is dropped, driving the spacing
	// between drops toward 1/pb
	pa := pb / (1.0 - float64(rs.drop.sinceLastDrop)*pb)
	if math.IsNaN(pa) {
		panic(fmt.Errorf("drop probability NaN at average %f", avg))
	}
	if pa < 0.0 || pa > 1.0 {
		// the denominator crossed zero: enough packets have been
		// admitted that the corrected probability saturates
		pa = 1.0
	}

	if rs.rngstrm.RandU01() < pa {
		rs.drop.sinceLastDrop = 0
		return ProbabilisticDrop
	}
	rs.drop.sinceLastDrop += 1
	return Admit
}

package wred

// policy.go holds the WRED policy table, which gives each priority
// class of an output port its own (min,max) drop-threshold pair.
// Lower-numbered classes get lower minimum thresholds and so enter
// the probabilistic drop region earlier than higher-numbered ones.

import (
	"errors"
	"fmt"
)

// errors reported when construction or lookup is given bad input.
// Callers distinguish them with errors.Is
var (
	ErrConfiguration        = errors.New("invalid WRED configuration")
	ErrUnknownPriorityClass = errors.New("unknown priority class")
	ErrUnassignedFlow       = errors.New("flow has no priority assignment")
)

// A ThresholdPair bounds the probabilistic drop region for one priority class.
// As installed in a PolicyTable both values are fractions of the port's queue
// limit; bind scales them into the units of the monitored queue (bytes or
// packets, depending on the port's mode)
type ThresholdPair struct {
	MinThreshold float64
	MaxThreshold float64
}

// bind converts the fractional pair into absolute occupancy units for a
// queue of the given capacity
func (tp ThresholdPair) bind(capacity float64) ThresholdPair {
	return ThresholdPair{
		MinThreshold: tp.MinThreshold * capacity,
		MaxThreshold: tp.MaxThreshold * capacity,
	}
}

// A PolicyTable maps each priority class of a port to its threshold pair.
// It is built once at configuration time and not modified while the port runs
type PolicyTable struct {
	numPriorities int
	maxThreshold  int
	policies      map[int]ThresholdPair
}

// CreatePolicyTable is a constructor.  maxThreshold is a percentage of the
// queue limit, in [0,100].  The default minimum thresholds are spaced evenly
// between half the maximum threshold and the maximum threshold, so that
// class i gets min = maxThreshold/2 + i*step with
// step = (maxThreshold - maxThreshold/2)/numPriorities, all in integer
// percentage arithmetic.  When numPriorities exceeds the width of that band
// the step rounds to zero and several classes share a minimum threshold,
// which is accepted rather than rejected
func CreatePolicyTable(numPriorities, maxThreshold int) (*PolicyTable, error) {
	if numPriorities < 1 {
		return nil, fmt.Errorf("%w: number of priority classes %d is not positive",
			ErrConfiguration, numPriorities)
	}
	if maxThreshold < 0 || maxThreshold > 100 {
		return nil, fmt.Errorf("%w: max threshold %d outside [0,100]",
			ErrConfiguration, maxThreshold)
	}

	pt := new(PolicyTable)
	pt.numPriorities = numPriorities
	pt.maxThreshold = maxThreshold
	pt.policies = make(map[int]ThresholdPair)

	minThreshold := maxThreshold / 2
	step := (maxThreshold - minThreshold) / numPriorities
	for class := 0; class < numPriorities; class++ {
		err := pt.AddPolicy(class, minThreshold, maxThreshold)
		if err != nil {
			return nil, err
		}
		minThreshold += step
	}
	return pt, nil
}

// AddPolicy installs (or overwrites) the threshold pair for a priority class.
// The thresholds are given as percentages of the queue limit and saved as
// fractions.  The derivation in CreatePolicyTable cannot produce an
// out-of-order pair, but the check is kept for policies added by hand
func (pt *PolicyTable) AddPolicy(priorityClass, minThreshold, maxThreshold int) error {
	if !(0 <= minThreshold && minThreshold <= maxThreshold && maxThreshold <= 100) {
		return fmt.Errorf("%w: threshold pair (%d,%d) for class %d not ordered within [0,100]",
			ErrConfiguration, minThreshold, maxThreshold, priorityClass)
	}
	pt.policies[priorityClass] = ThresholdPair{
		MinThreshold: float64(minThreshold) / 100.0,
		MaxThreshold: float64(maxThreshold) / 100.0,
	}
	return nil
}

// Lookup returns the threshold pair installed for a priority class
func (pt *PolicyTable) Lookup(priorityClass int) (ThresholdPair, error) {
	tp, present := pt.policies[priorityClass]
	if !present {
		return ThresholdPair{}, fmt.Errorf("%w: class %d", ErrUnknownPriorityClass, priorityClass)
	}
	return tp, nil
}

// NumPriorities returns the number of priority classes the table was built for
func (pt *PolicyTable) NumPriorities() int {
	return pt.numPriorities
}

// validatePriorities checks a flow-to-class assignment against the table, so
// that a bad assignment is caught when the port is built rather than when a
// packet from the offending flow shows up
func (pt *PolicyTable) validatePriorities(priorities map[int]int) error {
	for flowID, class := range priorities {
		_, present := pt.policies[class]
		if !present {
			return fmt.Errorf("%w: flow %d assigned to class %d",
				ErrUnknownPriorityClass, flowID, class)
		}
	}
	return nil
}

// bindAll scales every installed pair by the capacity of a particular queue,
// returning the table the port consults at packet time
func (pt *PolicyTable) bindAll(capacity float64) map[int]ThresholdPair {
	bound := make(map[int]ThresholdPair)
	for class, tp := range pt.policies {
		bound[class] = tp.bind(capacity)
	}
	return bound
}

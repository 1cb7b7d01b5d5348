package wred

// traffic.go generates the packet arrival processes offered to a WRED
// port.  A TrafficSource plays the role of an upstream device: it
// schedules its own arrival events through the EventManager and presents
// each generated packet to the port it feeds.

import (
	"math"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
)

// A TrafficSource describes one flow of packets offered to a port
type TrafficSource struct {
	Name      string
	FlowID    int     // flow identity stamped on every generated packet
	ExecID    int     // execution id stamped on every generated packet
	Rate      float64 // offered load in Mb/s
	FrameSize int     // bytes per packet
	Model     string  // interarrival model, "expon" or "const"
	Suspended bool    // a suspended source stops generating on its next event

	port    *WredPort
	rngstrm *rngstream.RngStream

	// function that computes interarrival times.  First argument is a U01
	// random number, second a vector of parameters for the distribution
	sampleNxtArrival func(float64, []float64) float64
}

// CreateTrafficSource is a constructor.  The source gets its own named
// random stream so that runs are reproducible
func CreateTrafficSource(name string, flowID, execID int, rate float64, frameSize int, model string) *TrafficSource {
	ts := new(TrafficSource)
	ts.Name = name
	ts.FlowID = flowID
	ts.ExecID = execID
	ts.Rate = rate
	ts.FrameSize = frameSize
	ts.Model = model
	ts.rngstrm = rngstream.New(name)

	switch model {
	case "const", "constant":
		ts.sampleNxtArrival = sampleConst
	default:
		// poisson arrivals are the default
		ts.sampleNxtArrival = sampleExpRV
	}
	return ts
}

// StartArrivals binds the source to the port it feeds and schedules the
// first arrival event at the current simulation time
func (ts *TrafficSource) StartArrivals(evtMgr *evtm.EventManager, port *WredPort) {
	ts.port = port
	ts.Suspended = false
	evtMgr.Schedule(ts, nil, nxtPcktArrival, vrtime.SecondsToTime(0.0))
}

// Suspend stops the arrival process at the source's next event
func (ts *TrafficSource) Suspend() {
	ts.Suspended = true
}

// nxtPcktArrival is the event handler for one packet arrival from a
// traffic source.  It offers a packet to the port and schedules the next
// arrival
func nxtPcktArrival(evtMgr *evtm.EventManager, context any, data any) any {
	ts := context.(*TrafficSource)

	// if the source is suspended just leave
	if ts.Suspended {
		return nil
	}

	arrivalRatePckts := ts.Rate * 1e6 / float64(8*ts.FrameSize)

	u01 := ts.rngstrm.RandU01()
	interarrival := ts.sampleNxtArrival(u01, []float64{arrivalRatePckts})

	// schedule the next arrival
	evtMgr.Schedule(ts, nil, nxtPcktArrival, vrtime.SecondsToTime(interarrival))

	// offer a packet to the port after the first pass through (which
	// happens at time 0.0)
	if evtMgr.CurrentSeconds() > 0.0 {
		pckt := &Packet{FlowID: ts.FlowID, MsgLen: ts.FrameSize, ExecID: ts.ExecID}
		_, err := ts.port.Put(evtMgr, pckt)
		if err != nil {
			panic(err)
		}
	}
	return nil
}

// expRV returns a sample of an exponentially distributed random number
func expRV(u01, rate float64) float64 {
	return -math.Log(1.0-u01) / rate
}

// sampleExpRV has the function signature expected by a TrafficSource
// for computing a next interarrival time
func sampleExpRV(u01 float64, params []float64) float64 {
	return expRV(u01, params[0])
}

// sampleConst has the function signature expected by a TrafficSource
// for computing a next interarrival time, here, a constant
func sampleConst(u01 float64, params []float64) float64 {
	return 1.0 / params[0]
}

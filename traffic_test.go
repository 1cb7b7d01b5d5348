package wred

import (
	"math"
	"testing"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
)

func TestSampleConst(t *testing.T) {
	// a constant source at 500 packets/sec spaces arrivals 2ms apart
	// regardless of the random draw
	for _, u01 := range []float64{0.0, 0.5, 0.99} {
		got := sampleConst(u01, []float64{500.0})
		if math.Abs(got-0.002) > 1e-12 {
			t.Errorf("sampleConst(%f) = %f, want 0.002", u01, got)
		}
	}
}

func TestExpRVMean(t *testing.T) {
	// exponential interarrivals at rate 500 average out to 2ms
	rng := rngstream.New(t.Name())
	const samples = 20000
	sum := 0.0
	for i := 0; i < samples; i++ {
		sum += sampleExpRV(rng.RandU01(), []float64{500.0})
	}
	mean := sum / float64(samples)
	if math.Abs(mean-0.002) > 0.0002 {
		t.Errorf("mean interarrival %g, want about 0.002", mean)
	}
}

func TestSuspendStopsArrivals(t *testing.T) {
	port, err := CreateWredPort(testPortDesc(t.Name()))
	if err != nil {
		t.Fatalf("CreateWredPort failed: %v", err)
	}

	evtMgr := evtm.New()
	ts := CreateTrafficSource(t.Name()+"-src", 1, 1, 4.0, 1000, "const")
	ts.StartArrivals(evtMgr, port)

	// stop the source early in the run; no arrivals may appear after
	suspend := func(evtMgr *evtm.EventManager, context any, data any) any {
		context.(*TrafficSource).Suspend()
		return nil
	}
	evtMgr.Schedule(ts, nil, suspend, vrtime.SecondsToTime(0.05))
	evtMgr.Run(1.0)

	offered := port.Stats().Offered()
	if offered < 20 || offered > 30 {
		t.Errorf("source suspended at 0.05s offered %d packets, want about 25", offered)
	}
}

package wred

// port.go models an output port of a simulated network device whose
// buffer is managed by WRED.  The port owns the FIFO of admitted
// packets, the line that serves them, and the shared RED state; the
// per-class policy table decides how aggressively each priority class
// is thinned as the smoothed queue average climbs.

import (
	"fmt"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
	"golang.org/x/exp/slices"
)

// A Packet carries the fields the port reads from traffic offered to it.
// The WRED logic looks only at FlowID (to resolve the priority class) and,
// in byte mode, MsgLen
type Packet struct {
	FlowID  int     // identifies the flow, and through it the priority class
	MsgLen  int     // length in bytes
	ExecID  int     // execution id carried through for tracing
	arrival float64 // time the packet joined the queue
}

// RtnDesc names an event handler and the context to give it, used to hand
// transmitted packets to whatever sits downstream of the port
type RtnDesc struct {
	Cxt     any
	EvtHdlr evtm.EventHandlerFunction
}

// utility for generating unique integer ids on demand
var numPortIds int = 0

func nxtPortID() int {
	numPortIds += 1
	return numPortIds
}

// The WredPort struct is the run-time representation of a WRED-managed
// output port.  All mutation happens inside event handlers executed by the
// simulation's EventManager, one event at a time, so none of this state
// carries a lock
type WredPort struct {
	name   string
	number int
	groups []string // list of groups this port may belong to

	rate       float64 // line rate in Mb/s
	qlimit     float64 // queue capacity, in bytes or packets per limitBytes
	limitBytes bool    // true when occupancy and thresholds are in bytes

	policy     *PolicyTable
	bound      map[int]ThresholdPair // policy table scaled to qlimit units
	priorities map[int]int           // flow id -> priority class

	red *redState

	smallPcktBytes int     // packet size assumed for virtual idle service cycles
	smallPcktTime  float64 // transmission time of one such packet

	pckts    []*Packet // FIFO of admitted packets awaiting transmission
	byteSize int       // sum of MsgLen over pckts

	transit   bool    // true while a packet occupies the line
	idleSince float64 // time the queue last drained, read when it is empty

	dst RtnDesc // downstream recipient of transmitted packets

	stats    *PortStats
	traceMgr *TraceManager
	trace    bool
}

// CreateWredPort is a constructor, building the run-time port from its
// desc representation.  Every configuration fault the desc can carry is
// reported here; once a port is built no packet-time failure other than an
// unassigned flow is possible
func CreateWredPort(wpd *WredPortDesc) (*WredPort, error) {
	wpd.applyDefaults()

	var errs []error
	if !(wpd.Rate > 0.0) {
		errs = append(errs, fmt.Errorf("%w: port rate %f is not positive", ErrConfiguration, wpd.Rate))
	}
	if !(wpd.QueueLimit > 0.0) {
		errs = append(errs, fmt.Errorf("%w: queue limit %f is not positive", ErrConfiguration, wpd.QueueLimit))
	}

	pt, err := CreatePolicyTable(wpd.NumPriorities, wpd.MaxThreshold)
	if err != nil {
		errs = append(errs, err)
	}

	if pt != nil && wpd.Priorities != nil {
		err = pt.validatePriorities(wpd.Priorities)
		if err != nil {
			errs = append(errs, err)
		}
	}

	err = ReportErrs(errs)
	if err != nil {
		return nil, err
	}

	port := new(WredPort)
	port.name = wpd.Name
	port.number = nxtPortID()
	port.groups = append(port.groups, wpd.Groups...)
	port.rate = wpd.Rate
	port.qlimit = wpd.QueueLimit
	port.limitBytes = wpd.LimitBytes
	port.policy = pt
	port.bound = pt.bindAll(wpd.QueueLimit)

	port.priorities = make(map[int]int)
	for flowID, class := range wpd.Priorities {
		port.priorities[flowID] = class
	}

	rngstrm := rngstream.New(wpd.Name)
	port.red, err = createRedState(wpd.WeightFactor, wpd.MaxProbability, rngstrm)
	if err != nil {
		return nil, err
	}

	port.smallPcktBytes = wpd.SmallPcktBytes
	port.smallPcktTime = float64(wpd.SmallPcktBytes*8) / (wpd.Rate * 1e6)

	port.pckts = make([]*Packet, 0)
	port.stats = createPortStats(wpd.NumPriorities)
	port.trace = wpd.Trace
	return port, nil
}

// SetDst names the event handler given each packet when its transmission
// completes
func (port *WredPort) SetDst(cxt any, hdlr evtm.EventHandlerFunction) {
	port.dst = RtnDesc{Cxt: cxt, EvtHdlr: hdlr}
}

// SetTraceMgr attaches a trace manager to the port
func (port *WredPort) SetTraceMgr(tm *TraceManager) {
	port.traceMgr = tm
}

// Stats returns the port's accumulated counters and samples
func (port *WredPort) Stats() *PortStats {
	return port.stats
}

// AvgQueueSize reports the current smoothed occupancy estimate
func (port *WredPort) AvgQueueSize() float64 {
	return port.red.estimator.avg
}

// QueueLen returns the number of packets awaiting transmission
func (port *WredPort) QueueLen() int {
	return len(port.pckts)
}

// occupancy gives the instantaneous queue size in the unit the port
// monitors.  The packet in transit has left the buffer and is not counted
func (port *WredPort) occupancy() float64 {
	if port.limitBytes {
		return float64(port.byteSize)
	}
	return float64(len(port.pckts))
}

// pcktSize gives one packet's contribution to occupancy in the same unit
func (port *WredPort) pcktSize(pckt *Packet) float64 {
	if port.limitBytes {
		return float64(pckt.MsgLen)
	}
	return 1.0
}

// PcktArrival is the event handler a host simulation (or a TrafficSource)
// schedules to offer a packet to the port.  The context is the *WredPort,
// the data the *Packet.  A flow with no priority assignment is a fault in
// the surrounding simulation setup, not a droppable packet, so it panics
// here rather than being silently defaulted
func PcktArrival(evtMgr *evtm.EventManager, context any, data any) any {
	port := context.(*WredPort)
	pckt := data.(*Packet)

	_, err := port.Put(evtMgr, pckt)
	if err != nil {
		panic(err)
	}

	// event handlers are required to return _something_
	return nil
}

// Put runs the WRED admission decision for one packet and, when the
// verdict is Admit, enqueues it and starts its transmission if the line is
// free.  Dropped packets are counted and discarded; the port never touches
// them again.  The returned verdict is what the external buffer acts on
func (port *WredPort) Put(evtMgr *evtm.EventManager, pckt *Packet) (DropVerdict, error) {
	class, present := port.priorities[pckt.FlowID]
	if !present {
		return Admit, fmt.Errorf("%w: flow %d", ErrUnassignedFlow, pckt.FlowID)
	}

	// validated at construction, so the class is always installed
	tp := port.bound[class]

	now := evtMgr.CurrentSeconds()

	// refresh the smoothed occupancy, exactly once per arrival.  An empty
	// queue means the average decays over the virtual service cycles of
	// the idle interval; otherwise the occupancy before this packet joins
	// is folded in
	if len(port.pckts) == 0 {
		m := idleCycles(now-port.idleSince, port.smallPcktTime)
		port.red.estimator.decay(m)
	} else {
		port.red.estimator.update(port.occupancy())
	}

	port.stats.countArrival(class)
	port.stats.recordSample(port.occupancy(), port.red.estimator.avg)

	verdict := port.red.decide(tp)

	if verdict != Admit {
		port.stats.countDrop(class, verdict)
		port.addTrace(evtMgr, pckt, class, verdict.String())
		return verdict, nil
	}

	// the AQM admitted the packet but the physical buffer may still be
	// unable to hold it; that is an ordinary tail drop
	if port.occupancy()+port.pcktSize(pckt) > port.qlimit {
		port.red.drop.sinceLastDrop = 0
		port.stats.countTail(class)
		port.addTrace(evtMgr, pckt, class, "tail")
		return ForcedDrop, nil
	}

	port.stats.countAdmit(class)
	port.addTrace(evtMgr, pckt, class, "admit")

	pckt.arrival = now
	port.pckts = append(port.pckts, pckt)
	port.byteSize += pckt.MsgLen

	if !port.transit {
		port.startService(evtMgr)
	}
	return Admit, nil
}

// startService pops the head-of-line packet onto the wire and schedules
// its completed departure a transmission time later
func (port *WredPort) startService(evtMgr *evtm.EventManager) {
	pckt := port.pckts[0]
	port.pckts = port.pckts[1:]
	port.byteSize -= pckt.MsgLen
	port.transit = true

	// the dequeue may have drained the buffer; that moment starts the
	// idle interval the estimator decays over
	if len(port.pckts) == 0 {
		port.idleSince = evtMgr.CurrentSeconds()
	}

	serviceTime := float64(pckt.MsgLen*8) / (port.rate * 1e6)
	evtMgr.Schedule(port, pckt, exitWredPort, vrtime.SecondsToTime(serviceTime))
}

// exitWredPort is the event handler for the completed transmission of a
// packet.  It hands the packet downstream and brings the next waiting
// packet onto the line
func exitWredPort(evtMgr *evtm.EventManager, context any, data any) any {
	port := context.(*WredPort)
	pckt := data.(*Packet)

	port.transit = false
	now := evtMgr.CurrentSeconds()
	port.stats.countDeparture(now - pckt.arrival)
	port.addTrace(evtMgr, pckt, port.priorities[pckt.FlowID], "depart")

	if port.dst.EvtHdlr != nil {
		evtMgr.Schedule(port.dst.Cxt, pckt, port.dst.EvtHdlr, vrtime.SecondsToTime(0.0))
	}

	if len(port.pckts) > 0 {
		port.startService(evtMgr)
	}

	// event handlers are required to return _something_
	return nil
}

// addTrace records the visitation of a packet to the port, when tracing
// is enabled
func (port *WredPort) addTrace(evtMgr *evtm.EventManager, pckt *Packet, class int, op string) {
	if !port.trace || port.traceMgr == nil {
		return
	}
	port.traceMgr.AddTrace(evtMgr.CurrentTime(), pckt.ExecID, port.number, pckt.FlowID,
		class, op, port.occupancy(), port.red.estimator.avg)
}

// matchParam matches the port against a run-time parameter attribute.
// "*" matches every port
func (port *WredPort) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "*":
		return true
	case "name":
		return port.name == attrbValue
	case "group":
		return slices.Contains(port.groups, attrbValue)
	}
	return false
}

// setParam assigns a run-time parameter to the port.  Changing the rate or
// the buffer size re-derives the quantities computed from them
func (port *WredPort) setParam(param string, value valueStruct) {
	switch param {
	case "rate":
		port.rate = value.floatValue
		port.smallPcktTime = float64(port.smallPcktBytes*8) / (port.rate * 1e6)
	case "buffer":
		port.qlimit = value.floatValue
		port.bound = port.policy.bindAll(port.qlimit)
	case "maxprob":
		// out-of-range assignments are ignored rather than clamped; a
		// zero maximum probability would disable RED entirely
		if value.floatValue > 0.0 && value.floatValue <= 1.0 {
			port.red.maxProbability = value.floatValue
		}
	case "trace":
		port.trace = value.boolValue
	}
}

// paramObjName helps the port satisfy the paramObj interface
func (port *WredPort) paramObjName() string {
	return port.name
}

package wred

// trace.go gathers records of packet visitations to WRED ports for
// post-run analysis, and serializes them to yaml or json.

import (
	"encoding/json"
	"os"
	"path"

	"github.com/iti/evt/vrtime"
	"gopkg.in/yaml.v3"
)

// PortTraceRecord saves information about the treatment of one packet at
// one port at one simulation time
type PortTraceRecord struct {
	Time      float64 `json:"time" yaml:"time"`           // time in seconds
	Ticks     int64   `json:"ticks" yaml:"ticks"`         // ticks variable of time
	Priority  int64   `json:"priority" yaml:"priority"`   // priority field of time-stamp
	ExecID    int     `json:"execid" yaml:"execid"`       // identifies the chain of traces this is part of
	PortID    int     `json:"portid" yaml:"portid"`       // integer id of the port visited
	FlowID    int     `json:"flowid" yaml:"flowid"`       // flow the packet belongs to
	Class     int     `json:"class" yaml:"class"`         // priority class resolved for the packet
	Op        string  `json:"op" yaml:"op"`               // "admit", "prdrop", "fdrop", "tail", "depart"
	Occupancy float64 `json:"occupancy" yaml:"occupancy"` // instantaneous queue size at the event
	AvgQueue  float64 `json:"avgqueue" yaml:"avgqueue"`   // smoothed queue average at the event
}

// NameType is an entry in a dictionary created for a trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string
	Type string
}

// TraceManager gathers information about an execution of a simulation
// model.  By testing its InUse flag we can inhibit the activity of
// gathering a trace when we don't want it, while embedding calls to its
// methods everywhere we need them when it is
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each objID
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment
	Traces map[int][]PortTraceRecord `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the
// experiment and a flag indicating whether the trace manager is active
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int]NameType)        // dictionary of id code -> (name,type)
	tm.Traces = make(map[int][]PortTraceRecord) // traces have 'execution' origins, are saved by index to these
	return tm
}

// Active tells the caller whether the trace manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddTrace creates a record of the trace using its calling arguments, and stores it
func (tm *TraceManager) AddTrace(vrt vrtime.Time, execID, portID, flowID, class int,
	op string, occupancy, avgQueue float64) {

	// return if we aren't using the trace manager
	if !tm.InUse {
		return
	}

	_, present := tm.Traces[execID]
	if !present {
		tm.Traces[execID] = make([]PortTraceRecord, 0)
	}

	// create and add the trace record
	ptr := PortTraceRecord{Time: vrt.Seconds(), Ticks: vrt.Ticks(), Priority: vrt.Pri(),
		ExecID: execID, PortID: portID, FlowID: flowID, Class: class, Op: op,
		Occupancy: occupancy, AvgQueue: avgQueue}

	tm.Traces[execID] = append(tm.Traces[execID], ptr)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if tm.InUse {
		_, present := tm.NameByID[id]
		if present {
			panic("duplicated id in AddName")
		}
		tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	}
}

// WriteToFile stores the Traces struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (tm *TraceManager) WriteToFile(filename string) bool {
	if !tm.InUse {
		return false
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*tm)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*tm, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()
	return true
}

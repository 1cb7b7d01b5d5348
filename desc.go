package wred

// desc.go holds the serializable descriptions of WRED ports and the
// machinery that turns run-time parameter assignments into updates of
// port state.  Descs are what get written to and read from model files;
// the run-time structures in port.go are built from them.

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// default configuration values, applied when a desc leaves a field unset
const (
	DfltNumPriorities    = 8
	DfltMaxThreshold     = 40 // percent of the queue limit
	DfltWeightFactorPckt = 6
	DfltWeightFactorByte = 9
	DfltSmallPcktBytes   = 64
)

// A WredPortDesc struct describes a WRED-managed output port.  It is the
// form the configuration takes in model files, with json and yaml
// representations selected by file extension
type WredPortDesc struct {
	Name           string      `json:"name" yaml:"name"`
	Groups         []string    `json:"groups" yaml:"groups"`
	Rate           float64     `json:"rate" yaml:"rate"`             // line rate in Mb/s
	QueueLimit     float64     `json:"queuelimit" yaml:"queuelimit"` // capacity, bytes or packets
	LimitBytes     bool        `json:"limitbytes" yaml:"limitbytes"`
	NumPriorities  int         `json:"numpriorities" yaml:"numpriorities"`
	MaxThreshold   int         `json:"maxthreshold" yaml:"maxthreshold"` // percent in [0,100]
	MaxProbability float64     `json:"maxprobability" yaml:"maxprobability"`
	WeightFactor   int         `json:"weightfactor" yaml:"weightfactor"`
	SmallPcktBytes int         `json:"smallpcktbytes" yaml:"smallpcktbytes"`
	Priorities     map[int]int `json:"priorities" yaml:"priorities"` // flow id -> priority class
	Trace          bool        `json:"trace" yaml:"trace"`
}

// applyDefaults fills the desc fields that were left at their zero value
// and have a customary default.  The weight factor default depends on the
// unit mode: byte-mode averages move per byte and so smooth harder
func (wpd *WredPortDesc) applyDefaults() {
	if wpd.NumPriorities == 0 {
		wpd.NumPriorities = DfltNumPriorities
	}
	if wpd.MaxThreshold == 0 {
		wpd.MaxThreshold = DfltMaxThreshold
	}
	if wpd.WeightFactor == 0 {
		if wpd.LimitBytes {
			wpd.WeightFactor = DfltWeightFactorByte
		} else {
			wpd.WeightFactor = DfltWeightFactorPckt
		}
	}
	if wpd.SmallPcktBytes == 0 {
		wpd.SmallPcktBytes = DfltSmallPcktBytes
	}
}

// WriteToFile stores the WredPortDesc struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (wpd *WredPortDesc) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*wpd)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*wpd, "", "\t")
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

	return werr
}

// ReadWredPortDesc deserializes a byte slice holding a representation of a
// WredPortDesc struct.  If the input argument of dict (those bytes) is empty,
// the file whose name is given is read to acquire them.  A deserialized
// representation is returned, or an error if one is generated from a file
// read or the deserialization
func ReadWredPortDesc(filename string, useYAML bool, dict []byte) (*WredPortDesc, error) {
	var err error

	// if the dict slice of bytes is empty we get them from the file whose name is an argument
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := WredPortDesc{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}

	if err != nil {
		return nil, err
	}

	return &example, nil
}

// ReportErrs transforms a list of errors into a single error carrying all
// of their messages.  The first non-nil error is wrapped so that its
// sentinel identity stays visible through errors.Is
func ReportErrs(errs []error) error {
	errMsgs := []string{}
	var first error
	for _, err := range errs {
		if err != nil {
			if first == nil {
				first = err
			}
			errMsgs = append(errMsgs, err.Error())
		}
	}
	if first == nil {
		return nil
	}
	if len(errMsgs) == 1 {
		return first
	}
	return fmt.Errorf("%w; %s", first, strings.Join(errMsgs[1:], ","))
}

// A valueStruct type holds the different types a parameter value might
// have; which one is used is known by context
type valueStruct struct {
	intValue    int
	floatValue  float64
	stringValue string
	boolValue   bool
}

// stringToValueStruct takes a string from a parameter assignment and
// determines whether it is an integer, floating point, boolean, or string
func stringToValueStruct(v string) valueStruct {
	vs := valueStruct{intValue: 0, floatValue: 0.0, stringValue: "", boolValue: false}

	// try conversion to int
	ivalue, ierr := strconv.Atoi(v)
	if ierr == nil {
		vs.intValue = ivalue
		vs.floatValue = float64(ivalue)
		return vs
	}

	// failing that, try conversion to float
	fvalue, ferr := strconv.ParseFloat(v, 64)
	if ferr == nil {
		vs.floatValue = fvalue
		return vs
	}

	// left with it being a string.  See if true, True
	if v == "true" || v == "True" {
		vs.boolValue = true
		return vs
	}

	vs.stringValue = v
	return vs
}

// An AttrbStruct names an attribute a parameter assignment is constrained
// by, and the value the attribute must have for the assignment to apply
type AttrbStruct struct {
	AttrbName  string `json:"attrbname" yaml:"attrbname"`
	AttrbValue string `json:"attrbvalue" yaml:"attrbvalue"`
}

// A PortParameter expresses one run-time parameter assignment: every port
// matching all the attributes receives the value.  An attribute name of
// "*" is a wildcard matching every port
type PortParameter struct {
	Attributes []AttrbStruct `json:"attributes" yaml:"attributes"`
	Param      string        `json:"param" yaml:"param"`
	Value      string        `json:"value" yaml:"value"`
}

// paramObj interface is satisfied by objects that can be configured at
// run-time with performance parameters
type paramObj interface {
	matchParam(string, string) bool
	setParam(string, valueStruct)
	paramObjName() string
}

// SetPortParameters applies a list of parameter assignments to a list of
// ports, in the order given, so later and more specific assignments
// overwrite earlier and broader ones
func SetPortParameters(ports []*WredPort, params []PortParameter) {
	for _, param := range params {
		for _, port := range ports {
			matched := true
			for _, attrb := range param.Attributes {
				// wildcard overrides all other attributes
				if attrb.AttrbName == "*" {
					break
				}
				if !port.matchParam(attrb.AttrbName, attrb.AttrbValue) {
					matched = false
					break
				}
			}
			if matched {
				vs := stringToValueStruct(param.Value)
				port.setParam(param.Param, vs)
			}
		}
	}
}

// Package actions derives the ordered event schedule a renderer plays back
// from a netlist and its timing.
package actions

import (
	"encoding/json"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/sdf"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/verilog"
)

// Action type discriminators as they appear in JSON.
const (
	TypeInputSignal       = "input_signal"
	TypeSignalAssignment  = "signal_assignment"
	TypeRouting           = "signal_routing"
	TypeComponentBehavior = "component_behavior"
	TypeTimingAnalysis    = "critical_path_analysis"
)

// Action is one scheduled event. The set of implementations is closed.
type Action interface {
	ActionType() string
	action()
}

// InputSignal drives a top-level input port onto its output pin.
type InputSignal struct {
	Source string `json:"source"` // port name
	Target string `json:"target"` // <port>_output_0_0
}

// SignalAssignment propagates a value through an assign statement.
type SignalAssignment struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Routing moves a value along a routing segment. Timing is nil when the
// SDF has no datain->dataout delay for the segment.
type Routing struct {
	Instance string     `json:"instance"`
	Source   string     `json:"source"`
	Target   string     `json:"target"`
	Delay    *float64   `json:"delay,omitempty"` // average, picoseconds
	Timing   *sdf.Delay `json:"timing,omitempty"`
}

// TimingPath is one pin-to-pin delay of a component.
type TimingPath struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rise float64 `json:"rise"`
	Fall float64 `json:"fall"`
	Avg  float64 `json:"avg"`
}

// ComponentBehavior evaluates a cell once its inputs settle.
type ComponentBehavior struct {
	Instance   string                    `json:"instance"`
	CellType   string                    `json:"cellType"`
	Parameters map[string]string         `json:"parameters"`
	Inputs     map[string]verilog.Signal `json:"inputs"`
	Outputs    map[string]verilog.Signal `json:"outputs"`
	Timing     []TimingPath              `json:"timing"`
}

// TimingAnalysis is a hook for critical path reporting. No analysis runs.
type TimingAnalysis struct {
	Description string `json:"description"`
}

func (InputSignal) ActionType() string       { return TypeInputSignal }
func (SignalAssignment) ActionType() string  { return TypeSignalAssignment }
func (Routing) ActionType() string           { return TypeRouting }
func (ComponentBehavior) ActionType() string { return TypeComponentBehavior }
func (TimingAnalysis) ActionType() string    { return TypeTimingAnalysis }

func (InputSignal) action()       {}
func (SignalAssignment) action()  {}
func (Routing) action()           {}
func (ComponentBehavior) action() {}
func (TimingAnalysis) action()    {}

// The MarshalJSON methods prepend the "type" discriminator to each action.

func (a InputSignal) MarshalJSON() ([]byte, error) {
	type plain InputSignal
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{TypeInputSignal, plain(a)})
}

func (a SignalAssignment) MarshalJSON() ([]byte, error) {
	type plain SignalAssignment
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{TypeSignalAssignment, plain(a)})
}

func (a Routing) MarshalJSON() ([]byte, error) {
	type plain Routing
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{TypeRouting, plain(a)})
}

func (a ComponentBehavior) MarshalJSON() ([]byte, error) {
	type plain ComponentBehavior
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{TypeComponentBehavior, plain(a)})
}

func (a TimingAnalysis) MarshalJSON() ([]byte, error) {
	type plain TimingAnalysis
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{TypeTimingAnalysis, plain(a)})
}

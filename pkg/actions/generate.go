package actions

import (
	"regexp"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/design"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/sdf"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/verilog"
)

const component = "actions"

// CriticalPathDescription is the text of the fixed timing action.
const CriticalPathDescription = "Analyze critical timing paths"

// Schedule is the ordered action list handed to a renderer.
type Schedule struct {
	Signals     []Action  `json:"signals"`
	Routing     []Action  `json:"routing"`
	Components  []Action  `json:"components"`
	Timing      []Action  `json:"timing"`
	Diagnostics diag.List `json:"-"` // reported next to the schedule, not inside it
}

// All returns every action in playback order.
func (s *Schedule) All() []Action {
	all := make([]Action, 0, len(s.Signals)+len(s.Routing)+len(s.Components)+len(s.Timing))
	all = append(all, s.Signals...)
	all = append(all, s.Routing...)
	all = append(all, s.Components...)
	return append(all, s.Timing...)
}

var (
	inputPortRegexp  = regexp.MustCompile(`(?i)^(?:in.*|i\d+)$`)
	outputPortRegexp = regexp.MustCompile(`(?i)^(?:out.*|o\d+)$`)
)

// OutputPin is the name VPR gives the output pin driven by a top-level input.
func OutputPin(port string) string {
	return port + "_output_0_0"
}

// Generate builds the schedule in netlist declaration order. timing may be
// nil. Missing timing leaves actions untimed; it is never an error.
func Generate(m *verilog.Module, timing *sdf.TimingModel) *Schedule {
	s := &Schedule{
		Signals:    []Action{},
		Routing:    []Action{},
		Components: []Action{},
		Timing:     []Action{},
	}
	d := design.Merge(m, timing)
	s.Diagnostics.Extend(d.Diagnostics)

	for _, p := range m.PortsByDirection(verilog.Input) {
		s.Signals = append(s.Signals, InputSignal{Source: p.Name, Target: OutputPin(p.Name)})
	}
	for _, a := range m.Assignments {
		s.Signals = append(s.Signals, SignalAssignment{Source: a.Source, Target: a.Target})
	}

	for _, ic := range d.Interconnects {
		r := Routing{Instance: ic.Instance, Source: ic.DataIn, Target: ic.DataOut}
		if ic.Delay != nil {
			avg := ic.Delay.Avg
			r.Delay = &avg
			r.Timing = ic.Delay
		}
		s.Routing = append(s.Routing, r)
	}

	for _, c := range d.Cells {
		s.Components = append(s.Components, s.behavior(c))
	}

	s.Timing = append(s.Timing, TimingAnalysis{Description: CriticalPathDescription})
	return s
}

// behavior splits a cell's connections into inputs and outputs by port
// name. Ports matching neither pattern are left out of both.
func (s *Schedule) behavior(c design.TimedCell) ComponentBehavior {
	b := ComponentBehavior{
		Instance:   c.Instance,
		CellType:   c.Type,
		Parameters: c.Parameters,
		Inputs:     map[string]verilog.Signal{},
		Outputs:    map[string]verilog.Signal{},
		Timing:     []TimingPath{},
	}
	if b.Parameters == nil {
		b.Parameters = map[string]string{}
	}

	for _, port := range c.PortNames() {
		sig := c.Connections[port]
		switch {
		case inputPortRegexp.MatchString(port):
			b.Inputs[port] = sig
		case outputPortRegexp.MatchString(port):
			b.Outputs[port] = sig
		default:
			s.Diagnostics.Infof(component, "unclassified port", "%s.%s is neither an input nor an output by name", c.Instance, port)
		}
	}

	if c.Timing != nil {
		for _, key := range c.Timing.Keys() {
			from, to, _ := strings.Cut(key, "->")
			d := c.Timing.Delays[key]
			b.Timing = append(b.Timing, TimingPath{From: from, To: to, Rise: d.Rise, Fall: d.Fall, Avg: d.Avg})
		}
	}
	return b
}

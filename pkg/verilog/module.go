// Package verilog extracts the structure of gate-level Verilog netlists as
// emitted by the VPR place-and-route flow.
package verilog

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Direction is the direction of a module port.
type Direction string

const (
	Input   Direction = "input"
	Output  Direction = "output"
	Inout   Direction = "inout"
	Unknown Direction = "unknown"
)

// Port is one entry of the module header's port list.
type Port struct {
	Direction Direction `json:"direction"`
	Name      string    `json:"name"`
}

// Assignment is a continuous "assign target = source" statement.
type Assignment struct {
	Target string `json:"target"`
	Source string `json:"source"`
}

// Interconnect is a routed wire segment:
// fpga_interconnect INSTANCE(.datain(X), .dataout(Y))
type Interconnect struct {
	Instance string `json:"instance"`
	DataIn   string `json:"datain"`
	DataOut  string `json:"dataout"`
}

// Signal is what a cell port connects to: a single net name, or an ordered
// list of bit sources for a concatenation such as {a,b,c}.
type Signal struct {
	Name string
	Bits []string
}

// IsBus reports whether the signal is a concatenation.
func (s Signal) IsBus() bool { return s.Bits != nil }

// Names returns every net referenced by the signal.
func (s Signal) Names() []string {
	if s.IsBus() {
		return s.Bits
	}
	return []string{s.Name}
}

func (s Signal) String() string {
	if s.IsBus() {
		return fmt.Sprintf("%v", s.Bits)
	}
	return s.Name
}

// MarshalJSON renders a scalar signal as a string and a bus as an array.
func (s Signal) MarshalJSON() ([]byte, error) {
	if s.IsBus() {
		return json.Marshal(s.Bits)
	}
	return json.Marshal(s.Name)
}

// UnmarshalJSON accepts both renderings produced by MarshalJSON.
func (s *Signal) UnmarshalJSON(data []byte) error {
	var bits []string
	if err := json.Unmarshal(data, &bits); err == nil {
		if bits == nil {
			bits = []string{}
		}
		*s = Signal{Bits: bits}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("signal must be a string or an array of strings: %w", err)
	}
	*s = Signal{Name: name}
	return nil
}

// Cell is an instantiated primitive or submodule.
type Cell struct {
	Type        string            `json:"type"`
	Instance    string            `json:"instance"`
	Parameters  map[string]string `json:"parameters"`
	Connections map[string]Signal `json:"connections"`
	Ports       []string          `json:"-"` // connection names in source order
}

// PortNames returns the connected port names in source order, or sorted
// when the cell was built by hand.
func (c *Cell) PortNames() []string {
	if len(c.Ports) == len(c.Connections) {
		return c.Ports
	}
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Module is the parsed top-level module of a netlist.
type Module struct {
	Name          string         `json:"name"`
	Ports         []Port         `json:"ports"`
	Wires         []string       `json:"wires"`
	Assignments   []Assignment   `json:"assignments"`
	Interconnects []Interconnect `json:"interconnects"`
	Cells         []Cell         `json:"cells"`
}

// PortsByDirection returns the ports with direction d in declaration order.
func (m *Module) PortsByDirection(d Direction) []Port {
	var ports []Port
	for _, p := range m.Ports {
		if p.Direction == d {
			ports = append(ports, p)
		}
	}
	return ports
}

// Cell returns the cell with the given instance name.
func (m *Module) Cell(instance string) (*Cell, bool) {
	for i := range m.Cells {
		if m.Cells[i].Instance == instance {
			return &m.Cells[i], true
		}
	}
	return nil, false
}

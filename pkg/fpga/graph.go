// Package fpga turns an SDF tree from the VPR flow into a graph of
// functional modules joined by routing connections.
package fpga

import (
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/sdf"
)

const component = "fpga"

// Cell types with a fixed meaning in VPR output.
const (
	InterconnectType = "fpga_interconnect"
	IOPortType       = "IO_PORT"
)

// PathDelay is one IOPATH of a module or connection.
type PathDelay = sdf.Path

// Module is a functional block: an SDF cell other than a routing segment,
// or a synthesized top-level IO port.
type Module struct {
	Type         string      `json:"type"`
	Instance     string      `json:"instance"`
	Delays       []PathDelay `json:"delays"`
	TimingChecks []sdf.Check `json:"timingchecks"`
	IsInput      bool        `json:"isInput,omitempty"`
	IsOutput     bool        `json:"isOutput,omitempty"`
}

// Connection is a routing segment between two modules.
type Connection struct {
	ID        string      `json:"id"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	FromClean string      `json:"fromClean"`
	ToClean   string      `json:"toClean"`
	Delays    []PathDelay `json:"delays"`
}

// Graph is the restructured view of a DELAYFILE.
type Graph struct {
	Type        string              `json:"type"`
	Header      map[string]sdf.Node `json:"header"`
	Modules     []Module            `json:"modules"`
	Connections []Connection        `json:"connections"`
	Diagnostics diag.List           `json:"-"` // reported beside the graph, not inside it
}

// Module returns the module with the given instance name.
func (g *Graph) Module(instance string) (*Module, bool) {
	for i := range g.Modules {
		if g.Modules[i].Instance == instance {
			return &g.Modules[i], true
		}
	}
	return nil, false
}

// Unresolved returns the non-empty connection endpoints that name no
// module. A graph built by Restructure always returns none.
func (g *Graph) Unresolved() []string {
	known := make(map[string]bool, len(g.Modules))
	for _, m := range g.Modules {
		known[m.Instance] = true
	}
	var missing []string
	for _, c := range g.Connections {
		for _, end := range []string{c.FromClean, c.ToClean} {
			if end != "" && !known[end] {
				missing = append(missing, end)
			}
		}
	}
	return missing
}

// MaxDelay is the largest rise or fall delay over the module's paths.
func (m *Module) MaxDelay() float64 {
	return maxDelay(m.Delays)
}

// MaxDelay is the largest rise or fall delay over the connection's paths.
func (c *Connection) MaxDelay() float64 {
	return maxDelay(c.Delays)
}

func maxDelay(paths []PathDelay) float64 {
	var longest float64
	for _, p := range paths {
		for _, v := range []*sdf.TimingValue{p.Rise, p.Fall} {
			if d, ok := v.Worst(); ok && d > longest {
				longest = d
			}
		}
	}
	return longest
}

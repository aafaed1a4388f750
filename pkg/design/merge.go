// Package design cross-references a parsed netlist with its SDF timing.
package design

import (
	"sort"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/sdf"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/verilog"
)

const component = "design"

// RoutingKey is the delay key of an fpga_interconnect cell.
const RoutingKey = "datain->dataout"

// TimedCell is a netlist cell with the SDF timing of the same instance.
type TimedCell struct {
	*verilog.Cell
	Timing *sdf.CellTiming `json:"timing,omitempty"`
}

// TimedInterconnect is a routing segment with its datain->dataout delay.
type TimedInterconnect struct {
	verilog.Interconnect
	Delay *sdf.Delay `json:"delay,omitempty"`
}

// Design is a netlist annotated with timing.
type Design struct {
	Name          string              `json:"name"`
	Cells         []TimedCell         `json:"cells"`
	Interconnects []TimedInterconnect `json:"interconnects"`
	Orphans       []string            `json:"orphans"` // SDF instances with no netlist counterpart
	Diagnostics   diag.List           `json:"diagnostics,omitempty"`
}

// Merge matches netlist cells and interconnects to SDF cells by instance
// name. timing may be nil, in which case everything stays untimed and no
// diagnostics are produced. Mismatches are reported, never fatal.
func Merge(m *verilog.Module, timing *sdf.TimingModel) *Design {
	d := &Design{
		Name:          m.Name,
		Cells:         make([]TimedCell, 0, len(m.Cells)),
		Interconnects: make([]TimedInterconnect, 0, len(m.Interconnects)),
		Orphans:       []string{},
	}
	seen := map[string]bool{}

	for i := range m.Cells {
		cell := &m.Cells[i]
		tc := TimedCell{Cell: cell}
		seen[cell.Instance] = true
		if timing != nil {
			if ct, ok := timing.Cells[cell.Instance]; ok {
				tc.Timing = ct
				if ct.Type != cell.Type {
					d.Diagnostics.Warnf(component, "cell type mismatch",
						"%s is %s in the netlist but %s in the SDF", cell.Instance, cell.Type, ct.Type)
				}
			} else {
				d.Diagnostics.Infof(component, "untimed cell", "no SDF timing for %s", cell.Instance)
			}
		}
		d.Cells = append(d.Cells, tc)
	}

	for _, ic := range m.Interconnects {
		ti := TimedInterconnect{Interconnect: ic}
		seen[ic.Instance] = true
		if delay, ok := timing.Lookup(ic.Instance, RoutingKey); ok {
			ti.Delay = &delay
		} else if timing != nil {
			d.Diagnostics.Infof(component, "untimed interconnect", "no %s delay for %s", RoutingKey, ic.Instance)
		}
		d.Interconnects = append(d.Interconnects, ti)
	}

	if timing != nil {
		for instance := range timing.Cells {
			// the top-level cell carrying INTERCONNECT nets has no instance
			if instance != "" && !seen[instance] {
				d.Orphans = append(d.Orphans, instance)
			}
		}
		sort.Strings(d.Orphans)
		for _, instance := range d.Orphans {
			d.Diagnostics.Warnf(component, "unmatched SDF cell", "%s does not appear in netlist %s", instance, m.Name)
		}
	}
	return d
}

// Cell returns the timed cell with the given instance name.
func (d *Design) Cell(instance string) (TimedCell, bool) {
	for _, c := range d.Cells {
		if c.Instance == instance {
			return c, true
		}
	}
	return TimedCell{}, false
}

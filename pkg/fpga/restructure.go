package fpga

import (
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/sdf"
)

// Restructure converts a parsed DELAYFILE into a Graph. Any other node is
// not an error: ok is false and the caller keeps the tree as it is.
//
// Cells other than fpga_interconnect become modules in file order. Each
// fpga_interconnect cell becomes a connection whose endpoints are decoded
// from its routing_segment_<FROM>_to_<TO> instance name. Endpoints naming no
// module get a synthesized IO_PORT module, so every resolvable connection
// closes over the module list.
func Restructure(node sdf.Node) (g *Graph, ok bool) {
	df, ok := node.(*sdf.DelayFile)
	if !ok || df == nil {
		return nil, false
	}

	g = &Graph{
		Type:        "FPGA",
		Header:      df.Header,
		Modules:     []Module{},
		Connections: []Connection{},
	}
	if g.Header == nil {
		g.Header = map[string]sdf.Node{}
	}
	index := map[string]int{}

	for _, cell := range df.Cells {
		if cell.CellType() == InterconnectType {
			continue
		}
		instance := cell.Instance()
		if _, dup := index[instance]; dup {
			g.Diagnostics.Warnf(component, "duplicate module", "%s declared more than once", instance)
		}
		index[instance] = len(g.Modules)
		g.Modules = append(g.Modules, Module{
			Type:         cell.CellType(),
			Instance:     instance,
			Delays:       extractDelays(cell),
			TimingChecks: extractChecks(cell),
		})
	}

	for _, cell := range df.Cells {
		if cell.CellType() != InterconnectType {
			continue
		}
		instance := cell.Instance()
		info, decoded := ExtractPathInfo(instance)
		switch {
		case !decoded:
			g.Diagnostics.Warnf(component, "unresolved connection",
				"cannot split %q into <from>_to_<to>", instance)
		case info.FromClean == "" || info.ToClean == "":
			g.Diagnostics.Warnf(component, "unresolved connection",
				"%q names only one endpoint", instance)
		}
		g.Connections = append(g.Connections, Connection{
			ID:        instance,
			From:      info.From,
			To:        info.To,
			FromClean: info.FromClean,
			ToClean:   info.ToClean,
			Delays:    extractDelays(cell),
		})
		g.ensurePort(index, info.FromClean, true)
		g.ensurePort(index, info.ToClean, false)
	}

	return g, true
}

// ensurePort synthesizes an IO_PORT module for an endpoint with no module.
// Sources are inputs of the circuit, sinks are outputs.
func (g *Graph) ensurePort(index map[string]int, name string, source bool) {
	if name == "" {
		return
	}
	i, exists := index[name]
	if !exists {
		i = len(g.Modules)
		index[name] = i
		g.Modules = append(g.Modules, Module{
			Type:         IOPortType,
			Instance:     name,
			Delays:       []PathDelay{},
			TimingChecks: []sdf.Check{},
		})
		g.Diagnostics.Infof(component, "synthesized IO port", "%s has no SDF cell", name)
	}
	m := &g.Modules[i]
	if m.Type != IOPortType {
		return
	}
	if source {
		m.IsInput = true
	} else {
		m.IsOutput = true
	}
}

// extractDelays concatenates the paths of every DELAY block of cell.
func extractDelays(cell *sdf.Cell) []PathDelay {
	paths := []PathDelay{}
	for _, d := range cell.Delays {
		paths = append(paths, d.Paths...)
	}
	return paths
}

func extractChecks(cell *sdf.Cell) []sdf.Check {
	checks := []sdf.Check{}
	for _, tc := range cell.TimingChecks {
		checks = append(checks, tc.Checks...)
	}
	return checks
}

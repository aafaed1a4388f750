package verilog

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ErrNoModule is returned when the text holds no module NAME(...); header.
var ErrNoModule = errors.New("No top-level module found.")

// ParseError is a structural failure that aborts parsing.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

var (
	lineCommentRegexp  = regexp.MustCompile(`//[^\n]*`)
	blockCommentRegexp = regexp.MustCompile(`(?s)/\*.*?\*/`)
	attributeRegexp    = regexp.MustCompile(`(?s)\(\*.*?\*\)`)

	moduleHeaderRegexp = regexp.MustCompile(
		`\bmodule\s+\\?([^\s(;#]+)\s*(?:#\s*\([\s\S]*?\)\s*)?\(([\s\S]*?)\)\s*;`)
	endModuleRegexp = regexp.MustCompile(`\bendmodule\b`)

	portRegexp = regexp.MustCompile(
		`^(input|output|inout)\s+(?:(?:wire|reg|logic)\s+)?(?:signed\s+)?(?:\[[^\]]*\]\s*)?(\\\S+|[^\s,]+)`)
	wireRegexp   = regexp.MustCompile(`(?s)^wire\s+(?:signed\s+)?(?:\[[^\]]*\]\s*)?(.*)$`)
	assignRegexp = regexp.MustCompile(`(?s)^assign\s+(\\\S+|[^\s=]+)\s*=\s*(.+?)\s*$`)

	// literal datain/dataout port names; anything else is not an interconnect
	interconnectRegexp = regexp.MustCompile(
		`(?s)^fpga_interconnect\s+(\\\S+|[A-Za-z_][\w$]*)\s*\(\s*` +
			`\.datain\s*\(\s*(\\\S+|[^\s()]+)\s*\)\s*,\s*` +
			`\.dataout\s*\(\s*(\\\S+|[^\s()]+)\s*\)\s*\)$`)

	cellTypeRegexp     = regexp.MustCompile(`^([A-Za-z_][\w$]*)\s*`)
	cellInstanceRegexp = regexp.MustCompile(`^(\\\S+|[A-Za-z_][\w$]*)\s*(?:\[[^\]]*\]\s*)?`)
)

// statement keywords that never start a cell instantiation
var keywords = map[string]bool{
	"module": true, "endmodule": true, "fpga_interconnect": true,
	"input": true, "output": true, "inout": true,
	"wire": true, "reg": true, "logic": true, "tri": true,
	"supply0": true, "supply1": true, "integer": true, "genvar": true,
	"assign": true, "parameter": true, "localparam": true, "defparam": true,
	"initial": true, "always": true, "specify": true, "endspecify": true,
	"timeunit": true, "timeprecision": true,
}

// stripComments removes // and /* */ comments and (* attributes *).
func stripComments(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blockCommentRegexp.ReplaceAllString(text, " ")
	text = lineCommentRegexp.ReplaceAllString(text, "")
	return attributeRegexp.ReplaceAllString(text, " ")
}

// Parse extracts the first module of a netlist. The only hard failure is a
// missing module header; statements the parser does not recognize are
// skipped.
func Parse(text string) (*Module, error) {
	src := stripComments(text)

	header := moduleHeaderRegexp.FindStringSubmatchIndex(src)
	if header == nil {
		return nil, &ParseError{Err: ErrNoModule}
	}

	m := &Module{
		Name:          src[header[2]:header[3]],
		Ports:         parsePorts(src[header[4]:header[5]]),
		Wires:         []string{},
		Assignments:   []Assignment{},
		Interconnects: []Interconnect{},
		Cells:         []Cell{},
	}

	body := src[header[1]:]
	if end := endModuleRegexp.FindStringIndex(body); end != nil {
		body = body[:end[0]]
	}

	for _, stmt := range splitTopLevel(body, ';') {
		m.addStatement(strings.TrimSpace(stmt))
	}
	return m, nil
}

// ParseFile reads and parses a netlist file.
func ParseFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read netlist: %w", err)
	}
	return Parse(string(data))
}

func parsePorts(list string) []Port {
	ports := []Port{}
	if strings.TrimSpace(list) == "" {
		return ports
	}
	for _, entry := range splitTopLevel(list, ',') {
		entry = strings.TrimSpace(entry)
		if m := portRegexp.FindStringSubmatch(entry); m != nil {
			ports = append(ports, Port{Direction: Direction(m[1]), Name: stripEscape(m[2])})
			continue
		}
		ports = append(ports, Port{Direction: Unknown, Name: stripEscape(entry)})
	}
	return ports
}

func (m *Module) addStatement(stmt string) {
	if stmt == "" {
		return
	}

	if wm := wireRegexp.FindStringSubmatch(stmt); wm != nil {
		for _, name := range splitTopLevel(wm[1], ',') {
			if name = stripEscape(name); name != "" {
				m.Wires = append(m.Wires, name)
			}
		}
		return
	}

	if am := assignRegexp.FindStringSubmatch(stmt); am != nil {
		m.Assignments = append(m.Assignments, Assignment{
			Target: stripEscape(am[1]),
			Source: stripEscape(am[2]),
		})
		return
	}

	if im := interconnectRegexp.FindStringSubmatch(stmt); im != nil {
		m.Interconnects = append(m.Interconnects, Interconnect{
			Instance: stripEscape(im[1]),
			DataIn:   stripEscape(im[2]),
			DataOut:  stripEscape(im[3]),
		})
		return
	}

	if cell, ok := parseCell(stmt); ok {
		m.Cells = append(m.Cells, cell)
	}
}

// parseCell matches TYPE #(params)? INSTANCE(connections).
func parseCell(stmt string) (Cell, bool) {
	tm := cellTypeRegexp.FindStringSubmatch(stmt)
	if tm == nil || keywords[tm[1]] {
		return Cell{}, false
	}
	rest := stmt[len(tm[0]):]

	cell := Cell{
		Type:        tm[1],
		Parameters:  map[string]string{},
		Connections: map[string]Signal{},
	}

	if strings.HasPrefix(rest, "#") {
		params, after, ok := balanced(strings.TrimSpace(rest[1:]))
		if !ok {
			return Cell{}, false
		}
		for _, arg := range namedArgs(params) {
			cell.Parameters[arg.Name] = arg.Value
		}
		rest = strings.TrimSpace(after)
	}

	im := cellInstanceRegexp.FindStringSubmatch(rest)
	if im == nil {
		return Cell{}, false
	}
	cell.Instance = stripEscape(im[1])
	rest = rest[len(im[0]):]

	conns, after, ok := balanced(rest)
	if !ok || strings.TrimSpace(after) != "" {
		return Cell{}, false
	}
	for _, arg := range namedArgs(conns) {
		if _, seen := cell.Connections[arg.Name]; !seen {
			cell.Ports = append(cell.Ports, arg.Name)
		}
		cell.Connections[arg.Name] = parseSignal(arg.Value)
	}
	return cell, true
}

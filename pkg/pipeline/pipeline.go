// Package pipeline runs the full netlist and timing conversion and shapes
// the JSON documents handed to a renderer.
package pipeline

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/actions"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/fpga"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/propagate"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/sdf"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/verilog"
)

var (
	ErrMissingVerilog = errors.New("Verilog file is missing or empty.")
	ErrMissingSDF     = errors.New("SDF file is missing or empty.")

	// ErrNotDelayFile is returned when propagation is asked for an SDF
	// text whose root is not a DELAYFILE.
	ErrNotDelayFile = errors.New("SDF root is not a DELAYFILE block")
)

// MissingInputError reports an absent or blank input file.
type MissingInputError struct {
	Input string // "verilog" or "sdf"
	Err   error
}

func (e *MissingInputError) Error() string { return e.Err.Error() }

func (e *MissingInputError) Unwrap() error { return e.Err }

func missingVerilog() error { return &MissingInputError{Input: "verilog", Err: ErrMissingVerilog} }

func missingSDF() error { return &MissingInputError{Input: "sdf", Err: ErrMissingSDF} }

func blank(text string) bool { return strings.TrimSpace(text) == "" }

// Metadata describes how a Result was produced.
type Metadata struct {
	GeneratedAt    time.Time `json:"generatedAt"`
	VerilogPresent bool      `json:"verilogPresent"`
	SDFPresent     bool      `json:"sdfPresent"`
}

// Result is the full pipeline output. Timing is null when no SDF was given.
type Result struct {
	Design      *verilog.Module   `json:"design"`
	Timing      *sdf.TimingModel  `json:"timing"`
	Actions     *actions.Schedule `json:"actions"`
	Metadata    Metadata          `json:"metadata"`
	Diagnostics diag.List         `json:"diagnostics"`
}

// Converter runs conversions. The zero value is ready to use.
type Converter struct {
	// Now stamps Metadata.GeneratedAt; time.Now when nil.
	Now func() time.Time
}

func (c Converter) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// Convert parses both inputs and builds the action schedule.
func Convert(verilogText, sdfText string) (*Result, error) {
	return Converter{}.Convert(verilogText, sdfText)
}

// ConvertVerilog builds the schedule from a netlist alone.
func ConvertVerilog(verilogText string) (*Result, error) {
	return Converter{}.ConvertVerilog(verilogText)
}

// Convert parses both inputs and builds the action schedule. Both inputs
// are required; a netlist without a module header aborts the conversion.
// Everything else degrades into diagnostics.
func (c Converter) Convert(verilogText, sdfText string) (*Result, error) {
	if blank(verilogText) {
		return nil, missingVerilog()
	}
	if blank(sdfText) {
		return nil, missingSDF()
	}

	module, err := verilog.Parse(verilogText)
	if err != nil {
		return nil, err
	}

	var diags diag.List
	diags.Extend(sdf.Validate(sdfText))
	timing, timingDiags := sdf.ParseTiming(sdfText)
	diags.Extend(timingDiags)

	schedule := actions.Generate(module, timing)
	diags.Extend(schedule.Diagnostics)

	return &Result{
		Design:  module,
		Timing:  timing,
		Actions: schedule,
		Metadata: Metadata{
			GeneratedAt:    c.now(),
			VerilogPresent: true,
			SDFPresent:     true,
		},
		Diagnostics: nonNil(diags),
	}, nil
}

// ConvertVerilog builds the schedule from a netlist alone.
func (c Converter) ConvertVerilog(verilogText string) (*Result, error) {
	if blank(verilogText) {
		return nil, missingVerilog()
	}
	module, err := verilog.Parse(verilogText)
	if err != nil {
		return nil, err
	}

	schedule := actions.Generate(module, nil)
	return &Result{
		Design:  module,
		Actions: schedule,
		Metadata: Metadata{
			GeneratedAt:    c.now(),
			VerilogPresent: true,
		},
		Diagnostics: nonNil(schedule.Diagnostics),
	}, nil
}

// Restructured is the outcome of RestructureSDF: an FPGA graph, or the
// parsed tree itself when its root is not a DELAYFILE.
type Restructured struct {
	Graph       *fpga.Graph
	Tree        sdf.Node
	Diagnostics diag.List
}

// MarshalJSON renders the graph, or the tree when there is no graph.
func (r *Restructured) MarshalJSON() ([]byte, error) {
	if r.Graph != nil {
		return json.Marshal(r.Graph)
	}
	return json.Marshal(r.Tree)
}

// RestructureSDF parses SDF text into a tree and restructures it into an
// FPGA graph. Tree diagnostics are carried on the graph.
func RestructureSDF(sdfText string) (*Restructured, error) {
	if blank(sdfText) {
		return nil, missingSDF()
	}

	tree, diags := sdf.ParseTree(sdfText)
	diags.Extend(sdf.Validate(sdfText))

	r := &Restructured{Tree: tree, Diagnostics: diags}
	if g, ok := fpga.Restructure(tree); ok {
		g.Diagnostics = append(diags, g.Diagnostics...)
		r.Graph = g
		r.Diagnostics = g.Diagnostics
	}
	return r, nil
}

// Propagate restructures SDF text and orders signal arrivals through it.
func Propagate(sdfText string, opts propagate.Options) (*propagate.Schedule, diag.List, error) {
	r, err := RestructureSDF(sdfText)
	if err != nil {
		return nil, nil, err
	}
	if r.Graph == nil {
		return nil, r.Diagnostics, ErrNotDelayFile
	}
	return propagate.Build(r.Graph, opts), r.Diagnostics, nil
}

func nonNil(l diag.List) diag.List {
	if l == nil {
		return diag.List{}
	}
	return l
}

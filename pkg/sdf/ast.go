package sdf

import (
	"encoding/json"
	"strconv"
)

// Kind identifies the variant behind a Node
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindGeneric
	KindDelayFile
	KindCell
	KindDelay
	KindAbsolute
	KindIOPath
	KindTimingCheck
	KindSetup
)

var kindNames = [...]string{
	KindString:      "STRING",
	KindNumber:      "NUMBER",
	KindGeneric:     "GENERIC",
	KindDelayFile:   "DELAYFILE",
	KindCell:        "CELL",
	KindDelay:       "DELAY",
	KindAbsolute:    "ABSOLUTE",
	KindIOPath:      "IOPATH",
	KindTimingCheck: "TIMINGCHECK",
	KindSetup:       "SETUP",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Node is one element of a parsed SDF tree. The set of implementations is
// closed: String, Number, *Generic, *DelayFile, *Cell, *DelayBlock, *Absolute,
// *IOPath, *TimingCheck and *Setup.
type Node interface {
	Kind() Kind
	node()
}

// String is a quoted string or a bare token that is not a number.
type String string

// Number is a bare token whose numeric form round-trips exactly.
type Number float64

// Generic is any block the parser has no dedicated handler for.
// Example: (INSTANCE latch_Q) → Generic{Type: "INSTANCE", Value: String("latch_Q")}
type Generic struct {
	Type  string
	Value Node // first value inside the block, nil when empty
}

// DelayFile is the root (DELAYFILE ...) block.
type DelayFile struct {
	Header map[string]Node // lowercased header block name → value
	Cells  []*Cell
}

// Cell is a (CELL ...) block.
type Cell struct {
	Properties   map[string]Node // "celltype", "instance"
	Delays       []*DelayBlock
	TimingChecks []*TimingCheck
}

// DelayBlock is a (DELAY ...) block flattened to the IOPATHs of its ABSOLUTE children.
type DelayBlock struct {
	Paths []Path
}

// Absolute is an (ABSOLUTE ...) block.
type Absolute struct {
	Paths []Path
}

// Path is a pin-to-pin delay collected from an IOPATH.
type Path struct {
	From Node         `json:"from"`
	To   Node         `json:"to"`
	Rise *TimingValue `json:"rise,omitempty"`
	Fall *TimingValue `json:"fall,omitempty"`
}

// IOPath is an (IOPATH from to (rise) (fall)) block.
type IOPath struct {
	From Node
	To   Node
	Rise *TimingValue
	Fall *TimingValue
}

// TimingCheck is a (TIMINGCHECK ...) block.
type TimingCheck struct {
	Checks []Check
}

// Check is a single timing check collected from a TIMINGCHECK block.
type Check struct {
	Type  string       `json:"type"`
	From  Node         `json:"from"`
	To    Node         `json:"to"`
	Value *TimingValue `json:"value,omitempty"`
}

// Setup is a (SETUP from to (value)) block.
type Setup struct {
	From  Node
	To    Node
	Value *TimingValue
}

func (String) Kind() Kind       { return KindString }
func (Number) Kind() Kind       { return KindNumber }
func (*Generic) Kind() Kind     { return KindGeneric }
func (*DelayFile) Kind() Kind   { return KindDelayFile }
func (*Cell) Kind() Kind        { return KindCell }
func (*DelayBlock) Kind() Kind  { return KindDelay }
func (*Absolute) Kind() Kind    { return KindAbsolute }
func (*IOPath) Kind() Kind      { return KindIOPath }
func (*TimingCheck) Kind() Kind { return KindTimingCheck }
func (*Setup) Kind() Kind       { return KindSetup }

func (String) node()       {}
func (Number) node()       {}
func (*Generic) node()     {}
func (*DelayFile) node()   {}
func (*Cell) node()        {}
func (*DelayBlock) node()  {}
func (*Absolute) node()    {}
func (*IOPath) node()      {}
func (*TimingCheck) node() {}
func (*Setup) node()       {}

// CellType returns the CELLTYPE property as text.
func (c *Cell) CellType() string {
	return Text(c.Properties["celltype"])
}

// Instance returns the INSTANCE property with SDF escapes removed, so
// lut_\$abc reads as lut_$abc like the matching Verilog identifier. The
// raw text stays in Properties.
func (c *Cell) Instance() string {
	return Unescape(Text(c.Properties["instance"]))
}

// Text renders a scalar node as plain text. Blocks render as their
// canonical pin key so that (posedge clock) becomes "posedge:clock".
func Text(n Node) string {
	switch v := n.(type) {
	case nil:
		return ""
	case String:
		return string(v)
	case Number:
		return formatJSNumber(float64(v))
	default:
		return PinKey(n)
	}
}

// JSON encoding keeps the discriminated shape consumed by renderers:
// every block carries its "type" next to its own fields.

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(n))
}

func (g *Generic) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Value Node   `json:"value"`
	}{g.Type, g.Value})
}

func (d *DelayFile) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string          `json:"type"`
		Header map[string]Node `json:"header"`
		Cells  []*Cell         `json:"cells"`
	}{"DELAYFILE", d.Header, nonNil(d.Cells)})
}

func (c *Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string          `json:"type"`
		Properties   map[string]Node `json:"properties"`
		Delays       []*DelayBlock   `json:"delays"`
		TimingChecks []*TimingCheck  `json:"timingchecks"`
	}{"CELL", c.Properties, nonNil(c.Delays), nonNil(c.TimingChecks)})
}

func (d *DelayBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Paths []Path `json:"paths"`
	}{"DELAY", nonNil(d.Paths)})
}

func (a *Absolute) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Paths []Path `json:"paths"`
	}{"ABSOLUTE", nonNil(a.Paths)})
}

func (p *IOPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string       `json:"type"`
		From Node         `json:"from"`
		To   Node         `json:"to"`
		Rise *TimingValue `json:"rise,omitempty"`
		Fall *TimingValue `json:"fall,omitempty"`
	}{"IOPATH", p.From, p.To, p.Rise, p.Fall})
}

func (t *TimingCheck) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string  `json:"type"`
		Checks []Check `json:"checks"`
	}{"TIMINGCHECK", nonNil(t.Checks)})
}

func (s *Setup) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string       `json:"type"`
		From  Node         `json:"from"`
		To    Node         `json:"to"`
		Value *TimingValue `json:"value,omitempty"`
	}{"SETUP", s.From, s.To, s.Value})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

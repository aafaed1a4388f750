package sdf

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// PortSpecLexer tokenizes SDF port specifications such as
// "(posedge clock)", "in[3]" or "lut_\$abc\$1.out".
var PortSpecLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},

	// Edge identifiers, only as whole words so "posedge_x" stays a name
	{Name: "Edge", Pattern: `(?i)(?:posedge|negedge)\b`},

	// Names may carry SDF escapes (\$) and the hierarchy divider
	{Name: "Ident", Pattern: `(?:[A-Za-z_$]|\\.)(?:[A-Za-z0-9_$./]|\\.)*`},
	{Name: "Int", Pattern: `[0-9]+`},

	{Name: "Punct", Pattern: `[()\[\]:]`},
})

// PortSpec is a port reference, optionally qualified by a clock edge.
type PortSpec struct {
	Edge *EdgePort `parser:"  \"(\" @@ \")\""`
	Port *PortRef  `parser:"| @@"`
}

// EdgePort is an edge-qualified port: (posedge clock)
type EdgePort struct {
	Edge string   `parser:"@Edge"`
	Port *PortRef `parser:"@@"`
}

// PortRef is a possibly indexed port name: D, in[3], bus[7:0]
type PortRef struct {
	Name  string    `parser:"@Ident"`
	Index *BitRange `parser:"@@?"`
}

// BitRange is a [hi] or [hi:lo] bit selection.
type BitRange struct {
	High int  `parser:"\"[\" @Int"`
	Low  *int `parser:"( \":\" @Int )? \"]\""`
}

var (
	portSpecParser     *participle.Parser[PortSpec]
	portSpecParserErr  error
	portSpecParserOnce sync.Once
)

func portParser() (*participle.Parser[PortSpec], error) {
	portSpecParserOnce.Do(func() {
		portSpecParser, portSpecParserErr = participle.Build[PortSpec](
			participle.Lexer(PortSpecLexer),
			participle.Elide("Whitespace"),
			participle.UseLookahead(2),
		)
	})
	return portSpecParser, portSpecParserErr
}

// ParsePortSpec parses an SDF port specification.
func ParsePortSpec(text string) (*PortSpec, error) {
	parser, err := portParser()
	if err != nil {
		return nil, fmt.Errorf("failed to build port spec parser: %w", err)
	}
	spec, err := parser.ParseString("", strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("port spec %q: %w", text, err)
	}
	return spec, nil
}

// Ref returns the underlying port reference.
func (s *PortSpec) Ref() *PortRef {
	if s.Edge != nil {
		return s.Edge.Port
	}
	return s.Port
}

// EdgeName returns "posedge", "negedge" or "" for an unqualified port.
func (s *PortSpec) EdgeName() string {
	if s.Edge == nil {
		return ""
	}
	return strings.ToLower(s.Edge.Edge)
}

// Key is the canonical text form used in "from->to" delay keys:
// "D", "in[3]", "bus[7:0]" or "posedge:clock".
func (s *PortSpec) Key() string {
	ref := s.Ref().Key()
	if edge := s.EdgeName(); edge != "" {
		return edge + ":" + ref
	}
	return ref
}

// Key renders the reference with SDF escapes removed.
func (r *PortRef) Key() string {
	name := Unescape(r.Name)
	if r.Index == nil {
		return name
	}
	if r.Index.Low == nil {
		return name + "[" + strconv.Itoa(r.Index.High) + "]"
	}
	return name + "[" + strconv.Itoa(r.Index.High) + ":" + strconv.Itoa(*r.Index.Low) + "]"
}

// Unescape removes SDF/Verilog backslash escapes: lut_\$abc → lut_$abc.
func Unescape(name string) string {
	if !strings.Contains(name, `\`) {
		return name
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' && i+1 < len(name) {
			i++
		}
		b.WriteByte(name[i])
	}
	return b.String()
}

// CanonicalPin returns the canonical key of raw port text, falling back to
// the trimmed text itself when it is not a recognizable port spec.
func CanonicalPin(raw string) string {
	spec, err := ParsePortSpec(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return spec.Key()
}

// PinKey returns the canonical key of a pin as it appears in a parsed tree.
// A structured (posedge clock) block yields "posedge:clock".
func PinKey(n Node) string {
	switch v := n.(type) {
	case nil:
		return ""
	case String:
		return CanonicalPin(string(v))
	case Number:
		return formatJSNumber(float64(v))
	case *Generic:
		edge := strings.ToLower(v.Type)
		if v.Value == nil {
			return edge
		}
		return edge + ":" + PinKey(v.Value)
	default:
		return v.Kind().String()
	}
}

// DelayKey joins two pins into the "from->to" key used by timing maps.
func DelayKey(from, to string) string {
	return from + "->" + to
}

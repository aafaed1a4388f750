package sdf

import (
	"regexp"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/diag"
)

const component = "sdf"

var (
	lineCommentRegexp  = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRegexp = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// Normalize converts line endings to \n and strips // and /* */ comments.
// Parser positions refer to the normalized text.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = lineCommentRegexp.ReplaceAllString(text, "")
	return blockCommentRegexp.ReplaceAllString(text, "")
}

// cursor is the read position inside normalized SDF text. It is owned by a
// single ParseTree call and handed to every parse method.
type cursor struct {
	src string
	pos int
}

func (c *cursor) eof() bool { return c.pos >= len(c.src) }

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.pos]
}

func (c *cursor) skipWhitespace() {
	for !c.eof() && isSpace(c.src[c.pos]) {
		c.pos++
	}
}

// skipToClose advances past the ')' that closes the current block,
// counting nested parentheses on the way.
func (c *cursor) skipToClose() bool {
	depth := 1
	for !c.eof() && depth > 0 {
		switch c.src[c.pos] {
		case '(':
			depth++
		case ')':
			depth--
		}
		c.pos++
	}
	return depth == 0
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isIdentByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("_~$[]{}.:\\", b) >= 0
}

// blockParser parses the body of a block whose name has been consumed,
// up to and including its closing parenthesis.
type blockParser func(c *cursor) Node

// treeParser holds the dispatch table and the diagnostics of one parse.
type treeParser struct {
	blocks map[string]blockParser
	diags  diag.List
}

func newTreeParser() *treeParser {
	p := &treeParser{}
	p.blocks = map[string]blockParser{
		"DELAYFILE":   p.parseDelayFile,
		"CELL":        p.parseCell,
		"DELAY":       p.parseDelay,
		"ABSOLUTE":    p.parseAbsolute,
		"TIMINGCHECK": p.parseTimingCheck,
		"IOPATH":      p.parseIOPath,
		"SETUP":       p.parseSetup,
	}
	return p
}

// ParseTree parses SDF text into a tree rooted at its first block
// (normally a *DelayFile). Malformed input never fails: the partial tree is
// returned together with diagnostics describing what was skipped. The root
// is nil for empty input.
func ParseTree(text string) (Node, diag.List) {
	p := newTreeParser()
	c := &cursor{src: Normalize(text)}

	root := p.parseBlock(c)

	c.skipWhitespace()
	if !c.eof() {
		p.diags.Warnf(component, "trailing text ignored", "%d bytes after the root block", len(c.src)-c.pos)
	}
	return root, p.diags
}

func (p *treeParser) parseBlock(c *cursor) Node {
	c.skipWhitespace()
	if c.eof() {
		return nil
	}

	switch c.peek() {
	case '(':
		c.pos++
		c.skipWhitespace()
		name := p.parseIdentifier(c)
		c.skipWhitespace()

		if handler, ok := p.blocks[name]; ok {
			return handler(c)
		}

		value := p.parseValue(c)
		if !c.skipToClose() {
			p.diags.Warnf(component, "unterminated block", "(%s ...) has no closing parenthesis", name)
		}
		return &Generic{Type: name, Value: value}
	case '"':
		return String(p.parseQuotedString(c))
	default:
		return p.parseValue(c)
	}
}

// children walks the child blocks of the current block, calling visit for
// each one, and consumes the closing parenthesis. Stray text between
// children is skipped.
func (p *treeParser) children(c *cursor, block string, visit func(child Node)) {
	stray := 0
	for !c.eof() {
		c.skipWhitespace()
		if c.eof() {
			break
		}

		switch c.peek() {
		case ')':
			c.pos++
			if stray > 0 {
				p.diags.Warnf(component, "stray text skipped", "%d bytes inside %s", stray, block)
			}
			return
		case '(':
			if child := p.parseBlock(c); child != nil {
				visit(child)
			}
		default:
			c.pos++
			stray++
		}
	}
	p.diags.Warnf(component, "unterminated block", "(%s ...) has no closing parenthesis", block)
}

var headerFields = map[string]bool{
	"SDFVERSION": true,
	"DESIGN":     true,
	"VENDOR":     true,
	"PROGRAM":    true,
	"VERSION":    true,
	"DIVIDER":    true,
	"TIMESCALE":  true,
}

func (p *treeParser) parseDelayFile(c *cursor) Node {
	df := &DelayFile{Header: map[string]Node{}}

	p.children(c, "DELAYFILE", func(child Node) {
		switch v := child.(type) {
		case *Generic:
			if headerFields[v.Type] {
				df.Header[strings.ToLower(v.Type)] = v.Value
			} else {
				p.diags.Infof(component, "block ignored", "%s inside DELAYFILE", v.Type)
			}
		case *Cell:
			df.Cells = append(df.Cells, v)
		}
	})
	return df
}

func (p *treeParser) parseCell(c *cursor) Node {
	cell := &Cell{Properties: map[string]Node{}}

	p.children(c, "CELL", func(child Node) {
		switch v := child.(type) {
		case *Generic:
			if v.Type == "CELLTYPE" || v.Type == "INSTANCE" {
				cell.Properties[strings.ToLower(v.Type)] = v.Value
			}
		case *DelayBlock:
			cell.Delays = append(cell.Delays, v)
		case *TimingCheck:
			cell.TimingChecks = append(cell.TimingChecks, v)
		}
	})
	return cell
}

func (p *treeParser) parseDelay(c *cursor) Node {
	delay := &DelayBlock{}

	p.children(c, "DELAY", func(child Node) {
		switch v := child.(type) {
		case *Absolute:
			delay.Paths = append(delay.Paths, v.Paths...)
		case *Generic:
			p.diags.Infof(component, "delay block ignored", "%s inside DELAY", v.Type)
		}
	})
	return delay
}

func (p *treeParser) parseAbsolute(c *cursor) Node {
	abs := &Absolute{}

	p.children(c, "ABSOLUTE", func(child Node) {
		if io, ok := child.(*IOPath); ok {
			abs.Paths = append(abs.Paths, Path{From: io.From, To: io.To, Rise: io.Rise, Fall: io.Fall})
		}
	})
	return abs
}

func (p *treeParser) parseIOPath(c *cursor) Node {
	io := &IOPath{}

	c.skipWhitespace()
	io.From = p.parseValue(c)
	c.skipWhitespace()
	io.To = p.parseValue(c)
	c.skipWhitespace()

	if c.peek() == '(' {
		io.Rise = p.parseTimingValue(c)
		c.skipWhitespace()
		if c.peek() == '(' {
			io.Fall = p.parseTimingValue(c)
		}
	}

	if !c.skipToClose() {
		p.diags.Warnf(component, "unterminated block", "(IOPATH ...) has no closing parenthesis")
	}
	return io
}

func (p *treeParser) parseTimingCheck(c *cursor) Node {
	tc := &TimingCheck{}

	p.children(c, "TIMINGCHECK", func(child Node) {
		if s, ok := child.(*Setup); ok {
			tc.Checks = append(tc.Checks, Check{Type: "SETUP", From: s.From, To: s.To, Value: s.Value})
		}
	})
	return tc
}

func (p *treeParser) parseSetup(c *cursor) Node {
	s := &Setup{}

	c.skipWhitespace()
	s.From = p.parseValue(c)
	c.skipWhitespace()
	s.To = p.parseValue(c)
	c.skipWhitespace()

	if c.peek() == '(' {
		s.Value = p.parseTimingValue(c)
	}

	if !c.skipToClose() {
		p.diags.Warnf(component, "unterminated block", "(SETUP ...) has no closing parenthesis")
	}
	return s
}

func (p *treeParser) parseIdentifier(c *cursor) string {
	start := c.pos
	for !c.eof() && isIdentByte(c.src[c.pos]) {
		c.pos++
	}
	return c.src[start:c.pos]
}

// parseValue reads a quoted string, a nested block or a bare token.
func (p *treeParser) parseValue(c *cursor) Node {
	c.skipWhitespace()
	if c.eof() {
		return nil
	}

	switch c.peek() {
	case '"':
		return String(p.parseQuotedString(c))
	case '(':
		return p.parseBlock(c)
	}

	start := c.pos
	for !c.eof() {
		b := c.src[c.pos]
		if b == '(' || b == ')' || isSpace(b) {
			break
		}
		c.pos++
	}
	token := c.src[start:c.pos]

	if f, ok := coerceNumber(token); ok {
		return Number(f)
	}
	return String(token)
}

// parseQuotedString reads a "..." string. A backslash keeps the character
// after it literally: "\n" yields "n".
func (p *treeParser) parseQuotedString(c *cursor) string {
	c.pos++ // opening quote

	var b strings.Builder
	for !c.eof() && c.src[c.pos] != '"' {
		if c.src[c.pos] == '\\' && c.pos+1 < len(c.src) {
			c.pos++
		}
		b.WriteByte(c.src[c.pos])
		c.pos++
	}

	if c.eof() {
		p.diags.Warnf(component, "unterminated string", "%q", b.String())
		return b.String()
	}
	c.pos++ // closing quote
	return b.String()
}

// parseTimingValue reads a parenthesized (v) or (min:typ:max) value.
func (p *treeParser) parseTimingValue(c *cursor) *TimingValue {
	if c.peek() != '(' {
		return nil
	}
	c.pos++

	start := c.pos
	depth := 1
	for !c.eof() {
		switch c.src[c.pos] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			break
		}
		c.pos++
	}
	text := c.src[start:c.pos]
	if depth == 0 {
		c.pos++
	} else {
		p.diags.Warnf(component, "unterminated timing value", "%q", text)
	}

	return parseTimingText(text)
}

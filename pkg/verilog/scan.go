package verilog

import "strings"

// Escaped identifiers (\name) run to the next whitespace and may contain any
// punctuation, so every scanner here steps over them as a unit.

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// skipEscaped returns the index just past the escaped identifier starting at
// src[i] == '\\'.
func skipEscaped(src string, i int) int {
	for i < len(src) && !isSpace(src[i]) {
		i++
	}
	return i
}

// splitTopLevel splits src on sep where sep is not nested inside (), {} or
// [] and not part of an escaped identifier.
func splitTopLevel(src string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(src); i++ {
		switch b := src[i]; {
		case b == '\\':
			i = skipEscaped(src, i) - 1
		case b == '(' || b == '{' || b == '[':
			depth++
		case b == ')' || b == '}' || b == ']':
			if depth > 0 {
				depth--
			}
		case b == sep && depth == 0:
			parts = append(parts, src[start:i])
			start = i + 1
		}
	}
	return append(parts, src[start:])
}

// balanced expects src to start with '(' and returns the text between it and
// the matching ')' plus whatever follows.
func balanced(src string) (inner, rest string, ok bool) {
	if src == "" || src[0] != '(' {
		return "", src, false
	}
	depth := 0
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i = skipEscaped(src, i) - 1
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return src[1:i], src[i+1:], true
			}
		}
	}
	return "", src, false
}

// namedArg is one .NAME(VALUE) entry of a parameter or port connection list.
type namedArg struct {
	Name  string
	Value string
}

// namedArgs extracts the .NAME(VALUE) entries of list in order. Positional
// entries are skipped.
func namedArgs(list string) []namedArg {
	var args []namedArg
	for _, entry := range splitTopLevel(list, ',') {
		entry = strings.TrimSpace(entry)
		if !strings.HasPrefix(entry, ".") {
			continue
		}
		entry = strings.TrimSpace(entry[1:])
		name := entry
		if i := strings.IndexByte(entry, '('); i >= 0 {
			name = entry[:i]
			entry = entry[i:]
		} else {
			entry = ""
		}
		value, _, _ := balanced(entry)
		args = append(args, namedArg{
			Name:  stripEscape(strings.TrimSpace(name)),
			Value: strings.TrimSpace(value),
		})
	}
	return args
}

// stripEscape removes the leading backslash of an escaped identifier.
func stripEscape(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), `\`))
}

// parseSignal turns a connection value into a Signal. A {a,b,c}
// concatenation keeps its bit order.
func parseSignal(value string) Signal {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
		bits := []string{}
		for _, bit := range splitTopLevel(value[1:len(value)-1], ',') {
			if bit = stripEscape(bit); bit != "" {
				bits = append(bits, bit)
			}
		}
		return Signal{Bits: bits}
	}
	return Signal{Name: stripEscape(value)}
}

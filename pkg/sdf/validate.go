package sdf

import (
	"github.com/chewxy/sexp"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/diag"
)

// Validate checks that SDF text is a single well-formed s-expression. The
// tree parser tolerates malformed input; Validate reports what it had to
// tolerate so callers can tell a clean parse from a best-effort one.
func Validate(text string) diag.List {
	var diags diag.List
	src := Normalize(text)

	depth, unclosedString := balance(src)
	switch {
	case unclosedString:
		diags.Warnf(component, "unterminated string", "a quoted string runs to the end of the file")
	case depth > 0:
		diags.Warnf(component, "unbalanced parentheses", "%d block(s) never closed", depth)
	case depth < 0:
		diags.Warnf(component, "unbalanced parentheses", "%d unexpected closing parenthesis", -depth)
	}
	if len(diags) > 0 {
		return diags
	}

	forms, err := sexp.ParseString(src)
	if err != nil {
		diags.Warnf(component, "not a well-formed s-expression", "%v", err)
		return diags
	}
	switch {
	case len(forms) == 0:
		diags.Warnf(component, "empty timing file", "no s-expression found")
	case len(forms) > 1:
		diags.Warnf(component, "multiple top-level forms", "found %d, only the first is used", len(forms))
	case forms[0].IsLeaf():
		diags.Warnf(component, "top-level form is not a block", "expected (DELAYFILE ...)")
	}
	return diags
}

// balance returns the final parenthesis depth of src, ignoring parentheses
// inside quoted strings, and whether a string was left open.
func balance(src string) (depth int, unclosedString bool) {
	inString := false
	for i := 0; i < len(src); i++ {
		b := src[i]
		if inString {
			switch b {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return depth, false
			}
		}
	}
	return depth, inString
}

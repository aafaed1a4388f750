package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/diag"
)

var (
	warnColor = color.New(color.FgYellow)
	okColor   = color.New(color.FgGreen)
	infoColor = color.New(color.Faint)
)

// renderJSON encodes v with the configured indent.
func renderJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", cfg.Indent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// printJSON writes v to stdout.
func printJSON(v any) error {
	data, err := renderJSON(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// readInput reads a file named on the command line.
func readInput(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// report prints a one-line diagnostics summary to stderr, and every
// diagnostic in verbose mode.
func report(w io.Writer, what string, diags diag.List) {
	warnings := diags.Warnings()
	if warnings == 0 {
		okColor.Fprintf(w, "✓ %s", what)
	} else {
		warnColor.Fprintf(w, "! %s: %d warning(s)", what, warnings)
	}
	if infos := len(diags) - warnings; infos > 0 {
		infoColor.Fprintf(w, " (%d note(s))", infos)
	}
	fmt.Fprintln(w)

	if !verbose {
		return
	}
	for _, d := range diags {
		c := infoColor
		if d.Severity == diag.Warning {
			c = warnColor
		}
		c.Fprintf(w, "  %s\n", d)
	}
}

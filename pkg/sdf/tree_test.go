package sdf

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const ff1Example = `(DELAYFILE (SDFVERSION "2.1")(DESIGN "FF1")(DATE "today")(VENDOR "X") (CELL (CELLTYPE "DFF")(INSTANCE latch_Q) (DELAY (ABSOLUTE (IOPATH (posedge clock) Q (303)(303))))))`

func TestParseTreeDelayFile(t *testing.T) {
	root, diags := ParseTree(ff1Example)
	if diags.Warnings() != 0 {
		t.Fatalf("unexpected warnings:\n%s", diags)
	}

	df, ok := root.(*DelayFile)
	if !ok {
		t.Fatalf("Expected *DelayFile root, got %T", root)
	}

	wantHeader := map[string]string{
		"sdfversion": "2.1",
		"design":     "FF1",
		"vendor":     "X",
	}
	for key, want := range wantHeader {
		if got := Text(df.Header[key]); got != want {
			t.Errorf("header[%s] = %q, want %q", key, got, want)
		}
	}
	if _, ok := df.Header["date"]; ok {
		t.Errorf("DATE is not a header field, got %v", df.Header["date"])
	}
	if !diags.HasSummary("block ignored") {
		t.Errorf("Expected the skipped DATE block to be noted, got:\n%s", diags)
	}

	if len(df.Cells) != 1 {
		t.Fatalf("Expected 1 cell, got %d", len(df.Cells))
	}
	cell := df.Cells[0]
	if cell.CellType() != "DFF" || cell.Instance() != "latch_Q" {
		t.Errorf("Expected DFF latch_Q, got %s %s", cell.CellType(), cell.Instance())
	}
	if len(cell.Delays) != 1 || len(cell.Delays[0].Paths) != 1 {
		t.Fatalf("Expected a single delay path, got %+v", cell.Delays)
	}

	path := cell.Delays[0].Paths[0]
	edge, ok := path.From.(*Generic)
	if !ok {
		t.Fatalf("Expected structured clock edge, got %T", path.From)
	}
	if edge.Type != "posedge" || edge.Value != String("clock") {
		t.Errorf("Expected (posedge clock), got (%s %v)", edge.Type, edge.Value)
	}
	if PinKey(path.From) != "posedge:clock" {
		t.Errorf("PinKey = %q, want posedge:clock", PinKey(path.From))
	}
	if path.To != String("Q") {
		t.Errorf("Expected to pin Q, got %v", path.To)
	}
	if rise, ok := path.Rise.Representative(); !ok || rise != 303 {
		t.Errorf("Expected rise 303, got %v (ok=%v)", rise, ok)
	}
	if fall, ok := path.Fall.Representative(); !ok || fall != 303 {
		t.Errorf("Expected fall 303, got %v (ok=%v)", fall, ok)
	}
}

func TestParseTreeSkipsUnknownNestedBlocks(t *testing.T) {
	input := `(DELAYFILE
		(FOO (BAR (BAZ 1) "x") y)
		(CELL (CELLTYPE "A") (INCREMENT (IOPATH a b (1))) (INSTANCE i1))
		(CELL (CELLTYPE "B") (INSTANCE i2))
	)`

	root, _ := ParseTree(input)
	df, ok := root.(*DelayFile)
	if !ok {
		t.Fatalf("Expected *DelayFile root, got %T", root)
	}
	if len(df.Cells) != 2 {
		t.Fatalf("Expected 2 cells, got %d", len(df.Cells))
	}
	if df.Cells[0].Instance() != "i1" || df.Cells[1].Instance() != "i2" {
		t.Errorf("Unexpected instances %q %q", df.Cells[0].Instance(), df.Cells[1].Instance())
	}
}

func TestParseTreeGenericBlock(t *testing.T) {
	root, _ := ParseTree(`(TIMESCALE 1 ps)`)
	g, ok := root.(*Generic)
	if !ok {
		t.Fatalf("Expected *Generic, got %T", root)
	}
	if g.Type != "TIMESCALE" || g.Value != Number(1) {
		t.Errorf("Expected TIMESCALE 1, got %s %v", g.Type, g.Value)
	}
}

func TestParseTreeQuotedStrings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `(DESIGN "FF1")`, "FF1"},
		{"escaped quote", `(DESIGN "a\"b")`, `a"b`},
		{"escape codes are literal", `(DESIGN "a\nb")`, "anb"},
		{"escaped backslash", `(DESIGN "a\\b")`, `a\b`},
		{"numeric text stays string", `(DESIGN "2.1")`, "2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := ParseTree(tt.input)
			g, ok := root.(*Generic)
			if !ok {
				t.Fatalf("Expected *Generic, got %T", root)
			}
			s, ok := g.Value.(String)
			if !ok {
				t.Fatalf("Expected String value, got %T", g.Value)
			}
			if string(s) != tt.want {
				t.Errorf("got %q, want %q", s, tt.want)
			}
		})
	}
}

func TestParseTreeStripsComments(t *testing.T) {
	input := "(DELAYFILE // header follows\r\n" +
		"  /* (CELL (CELLTYPE \"hidden\") (INSTANCE h)) */\r\n" +
		"  (CELL (CELLTYPE \"A\") (INSTANCE a))\r\n" +
		")"

	root, _ := ParseTree(input)
	df := root.(*DelayFile)
	if len(df.Cells) != 1 || df.Cells[0].CellType() != "A" {
		t.Fatalf("Expected only cell A, got %+v", df.Cells)
	}
}

func TestParseTreeTimingValues(t *testing.T) {
	input := `(DELAYFILE (CELL (CELLTYPE "X") (INSTANCE x)
		(DELAY (ABSOLUTE
			(IOPATH a b (1.0:2.5:4.0) (::7))
			(IOPATH c d (12ns))
		))
		(TIMINGCHECK (SETUP D (posedge clock) (-46:-46:-46)))))`

	root, _ := ParseTree(input)
	cell := root.(*DelayFile).Cells[0]

	paths := cell.Delays[0].Paths
	if len(paths) != 2 {
		t.Fatalf("Expected 2 paths, got %d", len(paths))
	}

	rise := paths[0].Rise
	if !rise.Triplet || *rise.Min != 1 || *rise.Typical != 2.5 || *rise.Max != 4 {
		t.Errorf("Unexpected rise triplet %+v", rise)
	}
	fall := paths[0].Fall
	if !fall.Triplet || fall.Min != nil || fall.Typical != nil || *fall.Max != 7 {
		t.Errorf("Expected partial triplet with only max, got %+v", fall)
	}
	if worst, _ := fall.Worst(); worst != 7 {
		t.Errorf("Worst = %v, want 7", worst)
	}

	if paths[1].Rise.Triplet || *paths[1].Rise.Scalar != 12 {
		t.Errorf("Expected scalar 12, got %+v", paths[1].Rise)
	}
	if paths[1].Fall != nil {
		t.Errorf("Expected no fall value, got %+v", paths[1].Fall)
	}

	if len(cell.TimingChecks) != 1 || len(cell.TimingChecks[0].Checks) != 1 {
		t.Fatalf("Expected one SETUP check, got %+v", cell.TimingChecks)
	}
	check := cell.TimingChecks[0].Checks[0]
	if check.Type != "SETUP" || PinKey(check.From) != "D" || PinKey(check.To) != "posedge:clock" {
		t.Errorf("Unexpected check %s %s %s", check.Type, PinKey(check.From), PinKey(check.To))
	}
	if v, _ := check.Value.Representative(); v != -46 {
		t.Errorf("Expected setup -46, got %v", v)
	}
}

func TestParseTreeMalformedInput(t *testing.T) {
	root, diags := ParseTree(`(DELAYFILE (DESIGN "FF1") (CELL (CELLTYPE "A") (INSTANCE a)`)

	df, ok := root.(*DelayFile)
	if !ok {
		t.Fatalf("Expected partial *DelayFile, got %T", root)
	}
	if df.Header["design"] != String("FF1") {
		t.Errorf("Expected design header to survive, got %v", df.Header["design"])
	}
	if len(df.Cells) != 1 {
		t.Errorf("Expected the unterminated cell to be kept, got %d cells", len(df.Cells))
	}
	if !diags.HasSummary("unterminated block") {
		t.Errorf("Expected an unterminated block diagnostic, got:\n%s", diags)
	}
}

func TestParseTreeEmpty(t *testing.T) {
	root, diags := ParseTree("  \n // nothing here\n")
	if root != nil {
		t.Errorf("Expected nil root, got %T", root)
	}
	if len(diags) != 0 {
		t.Errorf("Expected no diagnostics, got:\n%s", diags)
	}
}

func TestParseTreeIsDeterministic(t *testing.T) {
	data, err := os.ReadFile("../../testdata/ff1.sdf")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	first, _ := ParseTree(string(data))
	second, _ := ParseTree(string(data))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Parsing twice differs (-first +second):\n%s", diff)
	}

	df := first.(*DelayFile)
	if len(df.Cells) != 4 {
		t.Fatalf("Expected 4 cells, got %d", len(df.Cells))
	}
	if df.Header["timescale"] != Number(1) || df.Header["divider"] != String("/") {
		t.Errorf("Unexpected header %v", df.Header)
	}
}

func TestTreeJSONShape(t *testing.T) {
	root, _ := ParseTree(ff1Example)
	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	out := string(data)
	for _, want := range []string{
		`"type":"DELAYFILE"`,
		`"sdfversion":"2.1"`,
		`"type":"CELL"`,
		`"instance":"latch_Q"`,
		`"from":{"type":"posedge","value":"clock"}`,
		`"rise":303`,
		`"timingchecks":[]`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s\n%s", want, out)
		}
	}
}

func TestCellInstanceUnescapes(t *testing.T) {
	root, _ := ParseTree(`(DELAYFILE (CELL (CELLTYPE "LUT_K") (INSTANCE lut_\$abc\$1)))`)
	cell := root.(*DelayFile).Cells[0]

	if got := cell.Instance(); got != "lut_$abc$1" {
		t.Errorf("Instance() = %q, want lut_$abc$1", got)
	}
	if raw := cell.Properties["instance"]; raw != String(`lut_\$abc\$1`) {
		t.Errorf("Expected the raw property to keep its escapes, got %v", raw)
	}

	model, _ := ParseTiming(`(DELAYFILE (CELL (CELLTYPE "LUT_K") (INSTANCE lut_\$abc\$1)))`)
	if _, ok := model.Cells[cell.Instance()]; !ok {
		t.Errorf("Tree instance %q not found in timing cells %v", cell.Instance(), model.Cells)
	}
}

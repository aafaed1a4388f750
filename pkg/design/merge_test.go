package design

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/sdf"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/verilog"
)

func loadFixture(t *testing.T, name string) (*verilog.Module, *sdf.TimingModel) {
	t.Helper()
	m, err := verilog.ParseFile("../../testdata/" + name + ".v")
	if err != nil {
		t.Fatalf("Failed to parse netlist: %v", err)
	}
	data, err := os.ReadFile("../../testdata/" + name + ".sdf")
	if err != nil {
		t.Fatalf("Failed to read SDF: %v", err)
	}
	timing, _ := sdf.ParseTiming(string(data))
	return m, timing
}

func TestMergeMatchesInstances(t *testing.T) {
	m, timing := loadFixture(t, "lut")

	d := Merge(m, timing)
	if d.Name != "and2" {
		t.Errorf("Expected name and2, got %q", d.Name)
	}

	lut, ok := d.Cell("lut_y")
	if !ok || lut.Timing == nil {
		t.Fatalf("Expected timed lut_y, got %+v", lut)
	}
	if got := lut.Timing.Delays["in[1]->out"]; got.Rise != 240 || got.Fall != 250 {
		t.Errorf("Unexpected LUT delay %+v", got)
	}

	if len(d.Interconnects) != 3 {
		t.Fatalf("Expected 3 interconnects, got %d", len(d.Interconnects))
	}
	first := d.Interconnects[0]
	if first.Delay == nil || first.Delay.Rise != 100 || first.Delay.Fall != 120 || first.Delay.Avg != 110 {
		t.Errorf("Unexpected routing delay %+v", first.Delay)
	}

	if len(d.Orphans) != 0 {
		t.Errorf("Expected no orphans, got %v", d.Orphans)
	}
	if n := d.Diagnostics.Warnings(); n != 0 {
		t.Errorf("Expected no warnings, got:\n%s", d.Diagnostics)
	}
}

func TestMergeWithoutTiming(t *testing.T) {
	m, _ := loadFixture(t, "ff1")

	d := Merge(m, nil)
	for _, c := range d.Cells {
		if c.Timing != nil {
			t.Errorf("Cell %s should be untimed", c.Instance)
		}
	}
	for _, ic := range d.Interconnects {
		if ic.Delay != nil {
			t.Errorf("Interconnect %s should be untimed", ic.Instance)
		}
	}
	if len(d.Diagnostics) != 0 {
		t.Errorf("Expected no diagnostics without timing, got:\n%s", d.Diagnostics)
	}
}

func TestMergeReportsMismatches(t *testing.T) {
	m, err := verilog.Parse(`module top(input a, output y);
		BUF u1 (.in(a), .out(y));
		BUF u2 (.in(a), .out(y));
	endmodule`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	timing, _ := sdf.ParseTiming(`(DELAYFILE
		(CELL (CELLTYPE "INV") (INSTANCE u1) (DELAY (ABSOLUTE (IOPATH in out (1) (1)))))
		(CELL (CELLTYPE "BUF") (INSTANCE zz) (DELAY (ABSOLUTE (IOPATH in out (1) (1)))))
		(CELL (CELLTYPE "BUF") (INSTANCE aa) (DELAY (ABSOLUTE (IOPATH in out (1) (1))))))`)

	d := Merge(m, timing)

	if diff := cmp.Diff([]string{"aa", "zz"}, d.Orphans); diff != "" {
		t.Errorf("Orphans mismatch (-want +got):\n%s", diff)
	}
	for _, summary := range []string{"cell type mismatch", "untimed cell", "unmatched SDF cell"} {
		if !d.Diagnostics.HasSummary(summary) {
			t.Errorf("Expected %q diagnostic, got:\n%s", summary, d.Diagnostics)
		}
	}
}

package sdf

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTimingRoundTrip(t *testing.T) {
	input := `(DELAYFILE (SDFVERSION "3.0") (DESIGN "top")
		(CELL (CELLTYPE "BUF") (INSTANCE u1)
			(DELAY (ABSOLUTE (IOPATH A B (100) (120))))))`

	model, diags := ParseTiming(input)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", diags)
	}

	d, ok := model.Lookup("u1", "A->B")
	if !ok {
		t.Fatalf("Expected delay A->B, cells: %+v", model.Cells)
	}
	if d.Rise != 100 || d.Fall != 120 || d.Avg != 110 {
		t.Errorf("Expected rise=100 fall=120 avg=110, got %+v", d)
	}
	if model.Version != "3.0" || model.Design != "top" {
		t.Errorf("Unexpected header %q %q", model.Version, model.Design)
	}
	if model.Cells["u1"].Type != "BUF" {
		t.Errorf("Expected cell type BUF, got %q", model.Cells["u1"].Type)
	}
}

func TestParseTimingClockEdgeKey(t *testing.T) {
	model, _ := ParseTiming(ff1Example)

	if model.Version != "2.1" || model.Design != "FF1" || model.Date != "today" || model.Vendor != "X" {
		t.Errorf("Unexpected header %+v", model)
	}

	d, ok := model.Lookup("latch_Q", "posedge:clock->Q")
	if !ok {
		t.Fatalf("Expected posedge:clock->Q key, got %v", model.Cells["latch_Q"].Keys())
	}
	if d.Rise != 303 || d.Fall != 303 || d.Avg != 303 {
		t.Errorf("Expected 303/303/303, got %+v", d)
	}
}

func TestParseTimingTriplets(t *testing.T) {
	data, err := os.ReadFile("../../testdata/ff1.sdf")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	model, _ := ParseTiming(string(data))
	if len(model.Cells) != 4 {
		t.Fatalf("Expected 4 cells, got %d", len(model.Cells))
	}
	if model.Vendor != "verilog-to-routing" || model.Date != "" {
		t.Errorf("Unexpected header %+v", model)
	}

	d, ok := model.Lookup("routing_segment_D_output_0_0_to_latch_Q_input_0_0", "datain->dataout")
	if !ok {
		t.Fatalf("Missing routing delay")
	}
	if d.Rise != 1065.91 || d.RiseRange == nil || *d.RiseRange.Max != 1065.91 {
		t.Errorf("Unexpected triplet delay %+v", d)
	}
	if d.Max() != 1065.91 {
		t.Errorf("Max = %v, want 1065.91", d.Max())
	}
}

func TestParseTimingInterconnectAndSingleValue(t *testing.T) {
	input := `(DELAYFILE (SDFVERSION "2.1")
		(CELL (CELLTYPE "top") (INSTANCE)
			(DELAY (ABSOLUTE
				(INTERCONNECT u1/Y u2/A (40) (60))
				(INTERCONNECT u2/Y u3/A (25))
			)))
		(CELL (CELLTYPE "LUT_K") (INSTANCE lut_\$abc\$1)
			(DELAY (ABSOLUTE
				(IOPATH in[0] out (235) (240))
				(IOPATH in[1] out (10) ())
			))))`

	model, _ := ParseTiming(input)

	if got := model.Nets["u1/Y->u2/A"]; got.Rise != 40 || got.Fall != 60 || got.Avg != 50 {
		t.Errorf("Unexpected net delay %+v", got)
	}
	if got := model.Nets["u2/Y->u3/A"]; got.Rise != 25 || got.Fall != 25 {
		t.Errorf("Single value should apply to both edges, got %+v", got)
	}

	lut, ok := model.Cells["lut_$abc$1"]
	if !ok {
		t.Fatalf("Expected unescaped instance name, got %v", model.Cells)
	}
	if diff := cmp.Diff([]string{"in[0]->out", "in[1]->out"}, lut.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if got := lut.Delays["in[1]->out"]; got.Rise != 10 || got.Fall != 0 || got.Avg != 5 {
		t.Errorf("Empty fall value should read as zero, got %+v", got)
	}
}

func TestParseTimingDuplicateInstanceLastWins(t *testing.T) {
	input := `(DELAYFILE
		(CELL (CELLTYPE "A") (INSTANCE dup) (DELAY (ABSOLUTE (IOPATH a b (1) (1)))))
		(CELL (CELLTYPE "B") (INSTANCE dup) (DELAY (ABSOLUTE (IOPATH c d (2) (2))))))`

	model, diags := ParseTiming(input)
	cell := model.Cells["dup"]
	if cell.Type != "B" {
		t.Errorf("Expected last declaration to win, got type %q", cell.Type)
	}
	if _, ok := cell.Delays["a->b"]; ok {
		t.Errorf("First declaration leaked into the surviving cell")
	}
	if !diags.HasSummary("duplicate cell instance") {
		t.Errorf("Expected duplicate diagnostic, got:\n%s", diags)
	}
}

func TestParseTimingEmpty(t *testing.T) {
	model, diags := ParseTiming("")
	if len(model.Cells) != 0 || len(model.Nets) != 0 {
		t.Errorf("Expected empty model, got %+v", model)
	}
	if len(diags) != 0 {
		t.Errorf("Expected no diagnostics for empty input, got:\n%s", diags)
	}
}

func TestCellTimingKeysFallbackSorted(t *testing.T) {
	c := &CellTiming{Delays: map[string]Delay{"b->c": {}, "a->c": {}}}
	if diff := cmp.Diff([]string{"a->c", "b->c"}, c.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

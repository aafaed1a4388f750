package propagate

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/OpenTraceSDF/pkg/fpga"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/sdf"
)

func graphFromSDF(t *testing.T, text string) *fpga.Graph {
	t.Helper()
	tree, _ := sdf.ParseTree(text)
	g, ok := fpga.Restructure(tree)
	if !ok {
		t.Fatalf("Restructure rejected input")
	}
	return g
}

func TestBuildTwoStageChain(t *testing.T) {
	data, err := os.ReadFile("../../testdata/lut.sdf")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	g := graphFromSDF(t, string(data))

	s := Build(g, Options{})

	want := []Event{
		{Time: 0, Kind: Emit, Module: "a"},
		{Time: 0, Kind: Emit, Module: "b"},
		{Time: 120, Kind: Arrive, Module: "lut_y", Connection: "routing_segment_a_output_0_0_to_lut_y_input_0_0"},
		{Time: 300, Kind: Arrive, Module: "lut_y", Connection: "routing_segment_b_output_0_0_to_lut_y_input_0_1"},
		{Time: 550, Kind: Fire, Module: "lut_y"},
		{Time: 620, Kind: Arrive, Module: "y", Connection: "routing_segment_lut_y_output_0_0_to_y_input_0_0"},
		{Time: 620, Kind: Fire, Module: "y"},
	}
	if diff := cmp.Diff(want, s.Events); diff != "" {
		t.Errorf("Events mismatch (-want +got):\n%s", diff)
	}
	if s.Makespan != 620 {
		t.Errorf("Makespan = %v, want 620", s.Makespan)
	}
	if len(s.Unreached) != 0 {
		t.Errorf("Expected every module reached, got %v", s.Unreached)
	}
}

func TestBuildCellDelayOverride(t *testing.T) {
	data, err := os.ReadFile("../../testdata/lut.sdf")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	g := graphFromSDF(t, string(data))

	fixed := 10.0
	s := Build(g, Options{CellDelay: &fixed})
	if got := s.FireTimes["lut_y"]; got != 310 {
		t.Errorf("lut_y fired at %v, want 310", got)
	}
	if got := s.FireTimes["y"]; got != 380 {
		t.Errorf("y fired at %v, want 380", got)
	}
}

func TestBuildFallbackSources(t *testing.T) {
	g := &fpga.Graph{
		Modules: []fpga.Module{
			{Type: "LUT_K", Instance: "u1"},
			{Type: "LUT_K", Instance: "u2"},
			{Type: "LUT_K", Instance: "loop"},
		},
		Connections: []fpga.Connection{
			{ID: "c1", FromClean: "u1", ToClean: "u2"},
			{ID: "c2", FromClean: "loop", ToClean: "loop"},
		},
	}

	s := Build(g, Options{})
	if s.Events[0] != (Event{Time: 0, Kind: Emit, Module: "u1"}) {
		t.Errorf("Expected u1 as the only source, got %+v", s.Events[0])
	}
	if diff := cmp.Diff([]string{"loop"}, s.Unreached); diff != "" {
		t.Errorf("Unreached mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	data, err := os.ReadFile("../../testdata/ff1.sdf")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	g := graphFromSDF(t, string(data))

	first := Build(g, Options{})
	second := Build(g, Options{})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Schedules differ (-first +second):\n%s", diff)
	}
	if _, ok := first.FireTimes["Q"]; !ok {
		t.Errorf("Expected Q to be reached, got %+v", first)
	}
	routing := 1065.91
	if got, want := first.FireTimes["latch_Q"], routing+303; got != want {
		t.Errorf("latch_Q fired at %v, want %v", got, want)
	}
}

// passThroughSDF routes input A to Y along a fast path through the top-level
// port X and a slow path through cell Z. X is both driven and driving.
const passThroughSDF = `(DELAYFILE (SDFVERSION "2.1") (DESIGN "pass")
	(CELL (CELLTYPE "LUT_K") (INSTANCE Z))
	(CELL (CELLTYPE "LUT_K") (INSTANCE Y))
	(CELL (CELLTYPE "fpga_interconnect") (INSTANCE routing_segment_A_output_0_0_to_X_input_0_0)
		(DELAY (ABSOLUTE (IOPATH datain dataout (10) (10)))))
	(CELL (CELLTYPE "fpga_interconnect") (INSTANCE routing_segment_X_output_0_0_to_Y_input_0_0)
		(DELAY (ABSOLUTE (IOPATH datain dataout (1) (1)))))
	(CELL (CELLTYPE "fpga_interconnect") (INSTANCE routing_segment_A_output_0_0_to_Z_input_0_0)
		(DELAY (ABSOLUTE (IOPATH datain dataout (1000) (1000)))))
	(CELL (CELLTYPE "fpga_interconnect") (INSTANCE routing_segment_Z_output_0_0_to_Y_input_0_1)
		(DELAY (ABSOLUTE (IOPATH datain dataout (1) (1))))))`

func TestBuildPassThroughPort(t *testing.T) {
	g := graphFromSDF(t, passThroughSDF)
	if x, ok := g.Module("X"); !ok || !x.IsInput || !x.IsOutput {
		t.Fatalf("Expected X to be an input and output port, got %+v", g.Modules)
	}

	s := Build(g, Options{})

	want := []Event{
		{Time: 0, Kind: Emit, Module: "A"},
		{Time: 10, Kind: Arrive, Module: "X", Connection: "routing_segment_A_output_0_0_to_X_input_0_0"},
		{Time: 10, Kind: Fire, Module: "X"},
		{Time: 11, Kind: Arrive, Module: "Y", Connection: "routing_segment_X_output_0_0_to_Y_input_0_0"},
		{Time: 1000, Kind: Arrive, Module: "Z", Connection: "routing_segment_A_output_0_0_to_Z_input_0_0"},
		{Time: 1000, Kind: Fire, Module: "Z"},
		{Time: 1001, Kind: Arrive, Module: "Y", Connection: "routing_segment_Z_output_0_0_to_Y_input_0_1"},
		{Time: 1001, Kind: Fire, Module: "Y"},
	}
	if diff := cmp.Diff(want, s.Events); diff != "" {
		t.Errorf("Events mismatch (-want +got):\n%s", diff)
	}
	if s.Makespan != 1001 {
		t.Errorf("Makespan = %v, want 1001", s.Makespan)
	}
}

func TestBuildFiresEachModuleOnce(t *testing.T) {
	read := func(t *testing.T, path string) string {
		t.Helper()
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read fixture: %v", err)
		}
		return string(data)
	}

	tests := []struct {
		name string
		sdf  func(t *testing.T) string
	}{
		{"lut chain", func(t *testing.T) string { return read(t, "../../testdata/lut.sdf") }},
		{"flip-flop", func(t *testing.T) string { return read(t, "../../testdata/ff1.sdf") }},
		{"pass-through port", func(*testing.T) string { return passThroughSDF }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Build(graphFromSDF(t, tt.sdf(t)), Options{})

			settled := map[string]float64{}
			for _, ev := range s.Events {
				switch ev.Kind {
				case Emit, Fire:
					if at, seen := settled[ev.Module]; seen {
						t.Errorf("%s settled twice, at %v and %v", ev.Module, at, ev.Time)
					}
					settled[ev.Module] = ev.Time
				case Arrive:
					if at, seen := settled[ev.Module]; seen {
						t.Errorf("%s received %s at %v after firing at %v", ev.Module, ev.Connection, ev.Time, at)
					}
				}
			}
			if len(s.Unreached) != 0 {
				t.Errorf("Expected every module reached, got %v", s.Unreached)
			}
		})
	}
}

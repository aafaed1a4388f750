package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSDF/internal/ctxlog"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/pipeline"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/sdf"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/verilog"
)

var showTree bool

var verilogCmd = &cobra.Command{
	Use:   "verilog <netlist.v>",
	Short: "Parse a Verilog netlist and print its structure",
	Long: `Parse the top-level module of a gate-level Verilog netlist and print its
ports, wires, assignments, interconnects and cells as JSON.

Examples:
  sdfviz verilog design.v`,
	Args: cobra.ExactArgs(1),
	RunE: runVerilog,
}

var sdfCmd = &cobra.Command{
	Use:   "sdf <timing.sdf>",
	Short: "Parse an SDF file and print its timing model",
	Long: `Parse an SDF timing file. By default the flat timing model (cell and net
delays keyed by "from->to") is printed; --tree prints the parsed block tree.

Examples:
  sdfviz sdf design.sdf
  sdfviz sdf --tree design.sdf`,
	Args: cobra.ExactArgs(1),
	RunE: runSDF,
}

var fpgaCmd = &cobra.Command{
	Use:   "fpga <timing.sdf>",
	Short: "Restructure an SDF file into an FPGA module graph",
	Long: `Restructure a VPR SDF file into functional modules and the routing
connections between them. Top-level ports are synthesized as IO_PORT modules.
A file whose root is not a DELAYFILE is printed as its parsed tree.

Examples:
  sdfviz fpga design.sdf`,
	Args: cobra.ExactArgs(1),
	RunE: runFPGA,
}

func init() {
	rootCmd.AddCommand(verilogCmd, sdfCmd, fpgaCmd)

	sdfCmd.Flags().BoolVarP(&showTree, "tree", "t", false, "print the parsed block tree")
}

func runVerilog(cmd *cobra.Command, args []string) error {
	ctxlog.FromContext(cmd.Context()).Debug("Parsing netlist", "path", args[0])

	module, err := verilog.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}
	if err := printJSON(module); err != nil {
		return err
	}
	report(os.Stderr, fmt.Sprintf("module %s: %d ports, %d cells, %d interconnects",
		module.Name, len(module.Ports), len(module.Cells), len(module.Interconnects)), nil)
	return nil
}

func runSDF(cmd *cobra.Command, args []string) error {
	text, err := readInput(args[0])
	if err != nil {
		return err
	}
	ctxlog.FromContext(cmd.Context()).Debug("Parsing SDF", "path", args[0], "tree", showTree)

	diags := sdf.Validate(text)
	if showTree {
		tree, treeDiags := sdf.ParseTree(text)
		diags.Extend(treeDiags)
		if err := printJSON(tree); err != nil {
			return err
		}
		report(os.Stderr, "SDF tree", diags)
		return nil
	}

	timing, timingDiags := sdf.ParseTiming(text)
	diags.Extend(timingDiags)
	if err := printJSON(timing); err != nil {
		return err
	}
	report(os.Stderr, fmt.Sprintf("design %s: %d cells, %d nets", timing.Design, len(timing.Cells), len(timing.Nets)), diags)
	return nil
}

func runFPGA(cmd *cobra.Command, args []string) error {
	text, err := readInput(args[0])
	if err != nil {
		return err
	}

	r, err := pipeline.RestructureSDF(text)
	if err != nil {
		return err
	}
	if err := printJSON(r); err != nil {
		return err
	}

	if r.Graph == nil {
		ctxlog.FromContext(cmd.Context()).Warn("Not a DELAYFILE, printed the parsed tree", "path", args[0])
		report(os.Stderr, "SDF tree", r.Diagnostics)
		return nil
	}
	report(os.Stderr, fmt.Sprintf("%d modules, %d connections", len(r.Graph.Modules), len(r.Graph.Connections)), r.Diagnostics)
	return nil
}

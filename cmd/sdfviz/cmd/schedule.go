package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSDF/internal/ctxlog"
	"github.com/OpenTraceLab/OpenTraceSDF/internal/watch"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/pipeline"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/propagate"
)

var (
	cellDelay  float64
	outputPath string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <timing.sdf>",
	Short: "Order signal arrivals through the FPGA graph",
	Long: `Propagate signals from the top-level inputs through the restructured
FPGA graph. A module fires once all of its incoming connections have
delivered, after its own cell delay. Events are printed in time order.

Examples:
  sdfviz schedule design.sdf
  sdfviz schedule --cell-delay 0 design.sdf   # routing delays only`,
	Args: cobra.ExactArgs(1),
	RunE: runSchedule,
}

var watchCmd = &cobra.Command{
	Use:   "watch <netlist.v> <timing.sdf>",
	Short: "Re-run the conversion whenever an input changes",
	Long: `Convert once, then again after every change to either input file. The
output file is replaced atomically so a renderer polling it never reads a
partial document. Stops on Ctrl+C.

Examples:
  sdfviz watch design.v design.sdf -o design.json`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(scheduleCmd, watchCmd)

	scheduleCmd.Flags().Float64Var(&cellDelay, "cell-delay", -1,
		"fixed cell delay in ps for every module (negative: use SDF delays)")
	watchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output JSON file (required)")
	watchCmd.MarkFlagRequired("output")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	text, err := readInput(args[0])
	if err != nil {
		return err
	}

	opts := propagate.Options{CellDelay: cfg.CellDelay}
	if cmd.Flags().Changed("cell-delay") {
		opts.CellDelay = nil
		if cellDelay >= 0 {
			d := cellDelay
			opts.CellDelay = &d
		}
	}

	s, diags, err := pipeline.Propagate(text, opts)
	if err != nil {
		return err
	}
	if err := printJSON(s); err != nil {
		return err
	}
	if len(s.Unreached) > 0 {
		ctxlog.FromContext(cmd.Context()).Warn("Modules never fired", "modules", s.Unreached)
	}
	report(os.Stderr, fmt.Sprintf("%d events, settled after %g ps", len(s.Events), s.Makespan), diags)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)
	verilogPath, sdfPath := args[0], args[1]

	logger.Info("Watching inputs", "verilog", verilogPath, "sdf", sdfPath, "output", outputPath)
	return watch.Run(ctx, []string{verilogPath, sdfPath}, cfg.Debounce, func(ctx context.Context) error {
		v, err := readInput(verilogPath)
		if err != nil {
			return err
		}
		s, err := readInput(sdfPath)
		if err != nil {
			return err
		}
		res, err := pipeline.Convert(v, s)
		if err != nil {
			return err
		}
		data, err := renderJSON(res)
		if err != nil {
			return err
		}
		if err := watch.WriteFileAtomic(outputPath, data); err != nil {
			return err
		}
		report(os.Stderr, fmt.Sprintf("%s written at %s", outputPath, time.Now().Format(time.TimeOnly)), res.Diagnostics)
		return nil
	})
}

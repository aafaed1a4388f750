package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSDF/internal/cache"
	"github.com/OpenTraceLab/OpenTraceSDF/internal/ctxlog"
	"github.com/OpenTraceLab/OpenTraceSDF/pkg/pipeline"
)

var (
	useCache    bool
	actionsOnly bool
)

var runCmd = &cobra.Command{
	Use:   "run <netlist.v> [timing.sdf]",
	Short: "Convert a netlist and its timing into the full JSON document",
	Long: `Run the full conversion: parse the netlist and SDF file, then print
{design, timing, actions, metadata, diagnostics}. Without an SDF file the
timing field is null and actions are untimed.

With --cache (or cache.enabled in the config file) results are stored in a
BadgerDB directory keyed by the input contents.

Examples:
  sdfviz run design.v design.sdf
  sdfviz run --cache design.v design.sdf
  sdfviz run design.v`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

var actionsCmd = &cobra.Command{
	Use:   "actions <netlist.v> [timing.sdf]",
	Short: "Print only the action schedule",
	Long: `Print the {signals, routing, components, timing} action lists derived
from a netlist and, optionally, its SDF timing.

Examples:
  sdfviz actions design.v design.sdf`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		actionsOnly = true
		defer func() { actionsOnly = false }()
		return runRun(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd, actionsCmd)

	runCmd.Flags().BoolVar(&useCache, "cache", false, "reuse results stored in the cache directory")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)

	inputs := make([]string, len(args))
	for i, path := range args {
		text, err := readInput(path)
		if err != nil {
			return err
		}
		inputs[i] = text
	}

	if !(useCache || cfg.CacheEnabled) || actionsOnly {
		data, res, err := convert(ctx, inputs)
		if err != nil {
			return err
		}
		return emit(data, res)
	}

	c, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return err
	}
	defer c.Close()

	var res *pipeline.Result
	data, hit, err := c.GetOrCompute(cache.Key("convert", inputs...), func() ([]byte, error) {
		data, converted, err := convert(ctx, inputs)
		res = converted
		return data, err
	})
	if err != nil {
		return err
	}
	logger.Debug("Cache lookup", "dir", cfg.CacheDir, "hit", hit)
	if hit {
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
		report(os.Stderr, "served from cache", nil)
		return nil
	}
	return emit(data, res)
}

// convert runs the pipeline on one or two input texts and renders the
// document to print.
func convert(ctx context.Context, inputs []string) ([]byte, *pipeline.Result, error) {
	var (
		res *pipeline.Result
		err error
	)
	if len(inputs) == 2 {
		res, err = pipeline.Convert(inputs[0], inputs[1])
	} else {
		res, err = pipeline.ConvertVerilog(inputs[0])
	}
	if err != nil {
		return nil, nil, err
	}
	ctxlog.FromContext(ctx).Debug("Converted", "module", res.Design.Name, "diagnostics", len(res.Diagnostics))

	var data []byte
	if actionsOnly {
		data, err = renderJSON(res.Actions)
	} else {
		data, err = renderJSON(res)
	}
	return data, res, err
}

func emit(data []byte, res *pipeline.Result) error {
	if _, err := os.Stdout.Write(data); err != nil {
		return err
	}
	a := res.Actions
	report(os.Stderr, fmt.Sprintf("%s: %d signal, %d routing, %d component actions",
		res.Design.Name, len(a.Signals), len(a.Routing), len(a.Components)), res.Diagnostics)
	return nil
}

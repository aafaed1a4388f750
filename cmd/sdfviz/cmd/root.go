package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSDF/internal/config"
	"github.com/OpenTraceLab/OpenTraceSDF/internal/ctxlog"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// cfg is loaded before every command runs
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "sdfviz",
	Short: "Verilog netlist and SDF timing converter",
	Long: `Convert gate-level Verilog netlists and SDF timing files from the VPR
flow into JSON documents for timing visualization: the parsed design, the
timing model, an FPGA module graph and the signal action schedule.

Examples:
  sdfviz run design.v design.sdf              # Full conversion
  sdfviz fpga design.sdf                      # Module/connection graph
  sdfviz schedule design.sdf                  # Signal arrival order
  sdfviz watch design.v design.sdf -o out.json`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default "+config.DefaultFile+" if present)")
}

// setup loads the config and puts the logger on the command context.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger := ctxlog.New(os.Stderr, level)
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	logger.Debug("Configuration loaded", "path", configPath, "cache", cfg.CacheEnabled)
	return nil
}

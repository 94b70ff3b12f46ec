// Package commands implements the tablescope CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablescope/tablescope/internal/config"
	"github.com/tablescope/tablescope/internal/discover"
	"github.com/tablescope/tablescope/internal/observability"
	"github.com/tablescope/tablescope/internal/report"
)

// DiscoverCommand holds the flags for the discover command.
type DiscoverCommand struct {
	configPath   string
	threshold    float64
	permutations int
	format       string
	output       string
	noProgress   bool
	verbose      bool
}

// NewDiscoverCommand creates and configures the discover command.
func NewDiscoverCommand() *cobra.Command {
	cmd := &DiscoverCommand{}

	cobraCmd := &cobra.Command{
		Use:   "discover <input-dir>",
		Short: "Discover similar column pairs across CSV files",
		Long: "Discover indexes every column of every CSV file under the input\n" +
			"directory and reports the pairs whose estimated Jaccard similarity\n" +
			"clears the configured threshold.",
		Args: cobra.ExactArgs(1),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.configPath, "config", "c", "", "Config file path")
	cobraCmd.Flags().Float64VarP(&cmd.threshold, "threshold", "t", config.DefaultThreshold, "Similarity threshold in [0,1]")
	cobraCmd.Flags().IntVarP(&cmd.permutations, "permutations", "k", config.DefaultPermutations, "MinHash permutation count")
	cobraCmd.Flags().StringVarP(&cmd.format, "format", "f", "", "Output format: table, json, yaml, or plot")
	cobraCmd.Flags().StringVarP(&cmd.output, "output", "o", "", "Output file (default: stdout)")
	cobraCmd.Flags().BoolVar(&cmd.noProgress, "no-progress", false, "Disable the progress bar")
	cobraCmd.Flags().BoolVarP(&cmd.verbose, "verbose", "v", false, "Verbose logging")

	return cobraCmd
}

// Run executes the discover command.
func (c *DiscoverCommand) Run(cobraCmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	c.applyFlagOverrides(cobraCmd, cfg)

	logger := c.newLogger()
	inputDir := args[0]

	var metrics *observability.DiscoveryMetrics

	if cfg.Diagnostics.Enabled {
		// Readiness tracks whether the corpus directory is reachable.
		corpusReady := func(_ context.Context) error {
			_, statErr := os.Stat(inputDir)

			return statErr
		}

		diag, diagErr := observability.NewDiagnosticsServer(cfg.Diagnostics.Addr, corpusReady)
		if diagErr != nil {
			return diagErr
		}
		defer func() {
			closeErr := diag.Close()
			if closeErr != nil {
				logger.Warn("closing diagnostics server", "error", closeErr)
			}
		}()

		metrics, err = observability.NewDiscoveryMetrics(diag.Meter())
		if err != nil {
			return err
		}

		logger.Info("diagnostics listening", "addr", diag.Addr())
	}

	runner := discover.NewRunner(discover.Options{
		Threshold:    cfg.Discovery.Threshold,
		Permutations: cfg.Discovery.Permutations,
		FPWeight:     cfg.Discovery.FPWeight,
		FNWeight:     cfg.Discovery.FNWeight,
		Bands:        cfg.Discovery.Bands,
		Rows:         cfg.Discovery.Rows,
		ShowProgress: cfg.Discovery.Progress,
	}, logger, metrics)

	result, err := runner.Run(cobraCmd.Context(), inputDir)
	if err != nil {
		return err
	}

	out, cleanup, err := c.openOutput(cfg.Output.Path)
	if err != nil {
		return err
	}
	defer cleanup()

	return writeResult(result, cfg, out)
}

// applyFlagOverrides lets explicit flags win over file and env settings.
func (c *DiscoverCommand) applyFlagOverrides(cobraCmd *cobra.Command, cfg *config.Config) {
	flags := cobraCmd.Flags()

	if flags.Changed("threshold") {
		cfg.Discovery.Threshold = c.threshold
	}

	if flags.Changed("permutations") {
		cfg.Discovery.Permutations = c.permutations
	}

	if flags.Changed("format") {
		cfg.Output.Format = c.format
	}

	if flags.Changed("output") {
		cfg.Output.Path = c.output
	}

	if c.noProgress {
		cfg.Discovery.Progress = false
	}
}

// newLogger builds the run logger writing to stderr.
func (c *DiscoverCommand) newLogger() *slog.Logger {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openOutput returns the result writer and its cleanup function.
func (c *DiscoverCommand) openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}

	return f, func() { _ = f.Close() }, nil
}

// writeResult renders the result in the configured format.
func writeResult(result *discover.Result, cfg *config.Config, out io.Writer) error {
	switch cfg.Output.Format {
	case config.FormatJSON:
		return report.WriteJSON(result, out)
	case config.FormatYAML:
		return report.WriteYAML(result, out)
	case config.FormatPlot:
		return report.WritePlot(result, out)
	default:
		return report.WriteTable(result, out, cfg.Output.NoColor)
	}
}

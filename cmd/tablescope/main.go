// Package main provides the entry point for the tablescope CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablescope/tablescope/cmd/tablescope/commands"
)

// Build metadata, set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tablescope",
		Short: "Tablescope - approximate column similarity discovery",
		Long: `Tablescope discovers similar and joinable columns across tabular
datasets using MinHash sketches and banded Locality-Sensitive Hashing.

Commands:
  discover  Index a directory of CSV files and report similar column pairs
  params    Show the optimizer's band/row split for a threshold grid`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewDiscoverCommand())
	rootCmd.AddCommand(commands.NewParamsCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "tablescope %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

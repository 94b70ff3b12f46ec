package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tablescope/tablescope/internal/config"
	"github.com/tablescope/tablescope/pkg/alg/lsh"
)

// paramsThresholds is the threshold grid printed by the params command.
var paramsThresholds = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

// ParamsCommand holds the flags for the params command.
type ParamsCommand struct {
	permutations int
	fpWeight     float64
	fnWeight     float64
}

// NewParamsCommand creates and configures the params command.
func NewParamsCommand() *cobra.Command {
	cmd := &ParamsCommand{}

	cobraCmd := &cobra.Command{
		Use:   "params",
		Short: "Show the optimizer's band/row split for a threshold grid",
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().IntVarP(&cmd.permutations, "permutations", "k", config.DefaultPermutations, "MinHash permutation count")
	cobraCmd.Flags().Float64Var(&cmd.fpWeight, "fp-weight", config.DefaultFPWeight, "False-positive weight")
	cobraCmd.Flags().Float64Var(&cmd.fnWeight, "fn-weight", config.DefaultFNWeight, "False-negative weight")

	return cobraCmd
}

// Run executes the params command.
func (c *ParamsCommand) Run(_ *cobra.Command, _ []string) error {
	out := table.NewWriter()
	out.SetOutputMirror(os.Stdout)
	out.AppendHeader(table.Row{"threshold", "bands", "rows", "S(threshold)"})

	for _, threshold := range paramsThresholds {
		bands, rows, err := lsh.OptimalParams(threshold, c.permutations, c.fpWeight, c.fnWeight)
		if err != nil {
			return err
		}

		out.AppendRow(table.Row{
			fmt.Sprintf("%.1f", threshold),
			bands,
			rows,
			fmt.Sprintf("%.3f", lsh.SCurve(threshold, bands, rows)),
		})
	}

	out.Render()

	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/alertkeeper/internal/core/config"
	"github.com/solatis/alertkeeper/internal/engine"
	"github.com/solatis/alertkeeper/internal/types"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the built-in storm, heatwave and invalid-data scenarios",
	Args:  cobra.NoArgs,
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

type scenario struct {
	name string
	rec  types.Record
}

var demoScenarios = []scenario{
	{
		name: "high severity storm",
		rec: types.Record{
			Valid:       true,
			Category:    types.CategoryStorm,
			Severity:    types.SeverityHigh,
			Approaching: true,
			Hail:        true,
		},
	},
	{
		name: "critical heatwave",
		rec: types.Record{
			Valid:       true,
			Category:    types.CategoryHeatwave,
			Temperature: 105,
			Humidity:    65,
		},
	},
	{
		name: "invalid data",
		rec:  types.Record{Valid: false},
	},
}

// runDemo uses the built-in rules only and ignores configured handlers.
func runDemo(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	cfg.Handlers.Log = false

	w := cmd.OutOrStdout()
	rt, err := newRuntime(cfg, w)
	if err != nil {
		return err
	}
	defer rt.Close()

	for i, sc := range demoScenarios {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "# %s\n", sc.name)
		rec := sc.rec
		rec.ID = types.NewRecordID()
		out := rt.engine.ProcessAlert(context.Background(), rec)
		// Dispatched outcomes were already printed by the console handler.
		if out.Kind != engine.Dispatched {
			for _, line := range rt.catalog.Lines(out) {
				fmt.Fprintln(w, line)
			}
		}
	}
	return nil
}

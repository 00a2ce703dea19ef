package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/alertkeeper/internal/engine"
	"github.com/solatis/alertkeeper/internal/render"
	"github.com/solatis/alertkeeper/internal/types"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Classify one weather record and dispatch the alert",
	Long: `process builds a record from flags, or reads it as JSON with --json
("-" for stdin), runs it through the engine and prints the rendered alert
followed by one line per handler delivery.`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().String("category", "", "weather category (storm, heatwave)")
	processCmd.Flags().String("severity", "", "severity (low, medium, high)")
	processCmd.Flags().Bool("approaching", false, "storm is approaching")
	processCmd.Flags().Bool("hail", false, "hail observed")
	processCmd.Flags().Int("temperature", 0, "temperature")
	processCmd.Flags().Int("humidity", 0, "humidity")
	processCmd.Flags().Bool("invalid", false, "mark the record invalid")
	processCmd.Flags().String("json", "", "read the record as JSON from a file, or - for stdin")
	processCmd.Flags().String("rules", "", "rule file or directory")
}

func runProcess(cmd *cobra.Command, args []string) error {
	rec, err := recordFromFlags(cmd)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = types.NewRecordID()
	}

	cfg, err := loadConfig(cmd, map[string]string{"rules.path": "rules"})
	if err != nil {
		return err
	}
	// Rendered lines are printed below; a console handler would repeat them.
	cfg.Handlers.Console = false

	rt, err := newRuntime(cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := rt.engine.ProcessAlert(context.Background(), rec)
	printOutcome(cmd.OutOrStdout(), rt.catalog, out)
	if !out.Report.OK() {
		return fmt.Errorf("%d of %d handlers failed", len(out.Report.Failed()), len(out.Report.Results))
	}
	return nil
}

func recordFromFlags(cmd *cobra.Command) (types.Record, error) {
	flags := cmd.Flags()

	if path, _ := flags.GetString("json"); path != "" {
		var r io.Reader = cmd.InOrStdin()
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return types.Record{}, fmt.Errorf("failed to open record: %w", err)
			}
			defer f.Close()
			r = f
		}
		var rec types.Record
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rec); err != nil {
			return types.Record{}, fmt.Errorf("failed to decode record: %w", err)
		}
		return rec, nil
	}

	category, _ := flags.GetString("category")
	if category == "" {
		return types.Record{}, fmt.Errorf("--category or --json required")
	}
	sevName, _ := flags.GetString("severity")
	severity, err := types.ParseSeverity(sevName)
	if err != nil {
		return types.Record{}, err
	}
	invalid, _ := flags.GetBool("invalid")
	approaching, _ := flags.GetBool("approaching")
	hail, _ := flags.GetBool("hail")
	temperature, _ := flags.GetInt("temperature")
	humidity, _ := flags.GetInt("humidity")

	return types.Record{
		Valid:       !invalid,
		Category:    types.ParseCategory(category),
		Severity:    severity,
		Approaching: approaching,
		Hail:        hail,
		Temperature: temperature,
		Humidity:    humidity,
	}, nil
}

func printOutcome(w io.Writer, catalog *render.Catalog, out engine.Outcome) {
	for _, line := range catalog.Lines(out) {
		fmt.Fprintln(w, line)
	}
	if out.Kind != engine.Dispatched {
		return
	}
	for _, res := range out.Report.Results {
		if res.OK() {
			fmt.Fprintf(w, "  %s: ok\n", res.HandlerID)
			continue
		}
		fmt.Fprintf(w, "  %s: failed: %v\n", res.HandlerID, res.Err)
	}
}

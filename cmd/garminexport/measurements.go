package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/garminexport/internal/export"
	"github.com/jgoulah/garminexport/internal/influx"
)

var measurementsCmd = &cobra.Command{
	Use:   "measurements",
	Short: "List measurements in the database",
	Long:  `Lists every measurement in the configured InfluxDB database and marks the ones an export skips.`,
	Args:  cobra.NoArgs,
	RunE:  runMeasurements,
}

func init() {
	rootCmd.AddCommand(measurementsCmd)
}

func runMeasurements(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client, err := influx.Open(cfg.InfluxDB, cfg.QueryTimeout)
	if err != nil {
		return err
	}
	defer client.Close()

	names, err := client.ListMeasurements(cmd.Context())
	if err != nil {
		return fmt.Errorf("%w: %v", export.ErrMetadataQuery, err)
	}

	if len(names) == 0 {
		fmt.Fprintf(out, "No measurements found in %s\n", cfg.InfluxDB.Database)
		return nil
	}

	fmt.Fprintf(out, "\n%s Measurements:\n", cfg.InfluxDB.Database)
	fmt.Fprintln(out, "----------------------------------------")
	skipped := 0
	for _, name := range names {
		if export.IsExcluded(name) {
			fmt.Fprintf(out, "  %-30s  (skipped)\n", name)
			skipped++
			continue
		}
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintln(out, "----------------------------------------")
	fmt.Fprintf(out, "Total: %d measurements (%d exported, %d skipped)\n", len(names), len(names)-skipped, skipped)

	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var dbPath, reportPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Export algorithm usage aggregated over every completed analysis",
		Long: `Aggregate the findings of every completed analysis in the history database
per repository and per algorithm, and print the report as JSON.

Examples:
  crypto-analysis stats
  crypto-analysis stats --report-path results/stats.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDatabase(dbPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			report, err := conn.BuildStatsReport()
			if err != nil {
				return fmt.Errorf("failed to aggregate analyses: %w", err)
			}

			jsonData, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal data to JSON: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), reportPath, jsonData)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database file (defaults to database.path from the config)")
	cmd.Flags().StringVar(&reportPath, "report-path", "", "Path to save the JSON output (if empty, prints to stdout)")

	return cmd
}

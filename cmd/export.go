package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/export"
)

func exportCmd() *cobra.Command {
	var dbPath, kind, reportPath string
	var stdout bool

	kinds := make([]string, len(export.Kinds))
	for i, k := range export.Kinds {
		kinds[i] = string(k)
	}

	cmd := &cobra.Command{
		Use:   "export <analysis-id>",
		Short: "Export a recorded analysis as a report file",
		Long: `Export a completed analysis from the history database.

Examples:
  # Write widget_summary_<date>.json in the current directory
  crypto-analysis export 0d9c6a4e-... --kind summary

  # Write the findings as CSV to a chosen file
  crypto-analysis export 0d9c6a4e-... --kind csv --report-path out/findings.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := export.ParseKind(kind)
			if err != nil {
				return err
			}

			conn, err := openDatabase(dbPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			result, err := conn.GetAnalysisResult(args[0])
			if err != nil {
				return fmt.Errorf("failed to load analysis %s: %w", args[0], err)
			}

			doc, err := export.Render(result, k, time.Now())
			if err != nil {
				return err
			}

			if stdout {
				return writeOutput(cmd.OutOrStdout(), "", doc.Body)
			}
			if reportPath == "" {
				reportPath = doc.Name
			}
			return writeOutput(cmd.OutOrStdout(), reportPath, doc.Body)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database file (defaults to database.path from the config)")
	cmd.Flags().StringVar(&kind, "kind", string(export.KindSummary), "Export kind: "+strings.Join(kinds, ", "))
	cmd.Flags().StringVar(&reportPath, "report-path", "", "Path to save the export (defaults to a generated file name)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print the export instead of writing a file")

	return cmd
}

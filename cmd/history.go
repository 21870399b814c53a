package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

func historyCmd() *cobra.Command {
	var dbPath, repository string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDatabase(dbPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			records, err := conn.ListAnalyses(repository, limit)
			if err != nil {
				return fmt.Errorf("failed to list analyses: %w", err)
			}
			return printHistory(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database file (defaults to database.path from the config)")
	cmd.Flags().StringVar(&repository, "repository", "", "Only list analyses of this repository name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of analyses to list")

	return cmd
}

func printHistory(w io.Writer, records []model.AnalysisRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No analyses recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREPOSITORY\tSTATUS\tFINDINGS\tSTARTED")
	for _, rec := range records {
		findings := humanize.Comma(int64(rec.TotalFindings))
		if rec.Status != model.StateCompleted {
			findings = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", rec.ID, rec.RepositoryName, rec.Status, findings, humanize.Time(rec.CreatedAt))
	}
	return tw.Flush()
}

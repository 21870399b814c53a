package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/db"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/normalized"
)

// seedNamespace scopes the IDs of imported results so reseeding replaces them.
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("crypto-analysis/db-seed"))

// dbSeedCmd returns the database seed command for importing saved results
func dbSeedCmd() *cobra.Command {
	var dbPath, resultsDir string
	var clean bool

	cmd := &cobra.Command{
		Use:   "db:seed",
		Short: "Imports saved analysis results into the history database.",
		Long: `This command walks the results directory and imports every .json file holding
an analysis result, a detailed export, or an array of results. Files that are not
results are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDatabase(dbPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			if clean {
				if err := conn.ClearAllData(); err != nil {
					return fmt.Errorf("failed to clear database: %w", err)
				}
			}

			imported, err := seedFromDir(conn, resultsDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d analyses from %s\n", imported, resultsDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database file (defaults to database.path from the config)")
	cmd.Flags().StringVar(&resultsDir, "dir", "results", "Directory containing saved analysis results")
	cmd.Flags().BoolVar(&clean, "clean", false, "Clear all data from the database before seeding")

	return cmd
}

func seedFromDir(conn *db.Connection, resultsDir string) (int, error) {
	imported := 0
	err := filepath.Walk(resultsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}

		byRepository, err := normalized.ParseToMap(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Skipping file that is not an analysis result")
			return nil
		}

		relPath, err := filepath.Rel(resultsDir, path)
		if err != nil {
			relPath = path
		}
		for repository, results := range byRepository {
			for i, result := range results {
				key := fmt.Sprintf("%s#%s#%d", filepath.ToSlash(relPath), repository, i)
				id := uuid.NewSHA1(seedNamespace, []byte(key)).String()
				at := analysisTime(result.Summary.AnalysisDate, info.ModTime())
				if err := conn.ImportResult(id, repository, result, at); err != nil {
					return fmt.Errorf("failed to import %s: %w", path, err)
				}
				imported++
			}
			log.Info().Str("file", path).Str("repository", repository).Int("analyses", len(results)).Msg("Imported analyses")
		}
		return nil
	})
	if err != nil {
		return imported, fmt.Errorf("error during seeding walk: %w", err)
	}
	return imported, nil
}

// analysisTime prefers the date recorded in the result over the file time.
func analysisTime(analysisDate string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, analysisDate); err == nil {
		return t
	}
	return fallback
}

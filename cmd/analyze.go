package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/analysis"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/export"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/generator"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

type analyzeOptions struct {
	noLibraries     bool
	noAlgorithms    bool
	threshold       string
	customThreshold int
	delay           time.Duration
	seed            uint64
	dbPath          string
	noSave          bool
	reportPath      string
	format          string
}

func analyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze <repository>",
		Short: "Analyze a repository for cryptographic libraries and algorithms",
		Long: `Analyze a repository and print the detected cryptographic libraries, algorithms
and findings. Every analysis is recorded in the history database unless --no-save is set.

Examples:
  # Analyze with the default settings
  crypto-analysis analyze https://github.com/acme/widget

  # Only report algorithm implementations with high confidence
  crypto-analysis analyze ./widget --no-libraries --threshold high

  # Reproducible output written as CSV
  crypto-analysis analyze ./widget --seed 7 --format csv --report-path widget.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.analysisConfig(cmd, args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("delay") {
				opts.delay = appConfig.Analysis.Delay
			}

			gen := generator.New()
			if cmd.Flags().Changed("seed") {
				gen = generator.NewSeeded(opts.seed)
			}

			var svcOpts []analysis.Option
			if !opts.noSave {
				conn, err := openDatabase(opts.dbPath)
				if err != nil {
					return err
				}
				defer conn.Close()
				svcOpts = append(svcOpts, analysis.WithStore(conn))
			}
			policy := analysis.DefaultPolicy()
			policy.Delay = opts.delay
			svc := analysis.NewService(gen, policy, svcOpts...)
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stopSpinner := startSpinner(os.Stderr, "Analyzing "+model.RepositoryName(cfg.RepoPath))
			id, result, err := svc.Analyze(ctx, cfg)
			stopSpinner()
			if err != nil {
				return err
			}

			log.Info().Str("analysis", id).Int("findings", len(result.Findings)).Msg("Analysis finished")

			data, err := render(result, opts.format)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.reportPath, data)
		},
	}

	cmd.Flags().BoolVar(&opts.noLibraries, "no-libraries", false, "Skip the library import scan")
	cmd.Flags().BoolVar(&opts.noAlgorithms, "no-algorithms", false, "Skip the algorithm implementation scan")
	cmd.Flags().StringVar(&opts.threshold, "threshold", string(model.ThresholdMedium), "Confidence threshold: low, medium, high or custom")
	cmd.Flags().IntVar(&opts.customThreshold, "custom-threshold", model.DefaultCustomThreshold, "Minimum confidence when --threshold is custom (50-100)")
	cmd.Flags().DurationVar(&opts.delay, "delay", analysis.DefaultDelay, "Simulated analysis latency (defaults to analysis.delay from the config)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Seed for reproducible results")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Path to the SQLite database file (defaults to database.path from the config)")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "Do not record the analysis in the history database")
	cmd.Flags().StringVar(&opts.reportPath, "report-path", "", "Path to save the output (if empty, prints to stdout)")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json, summary, csv or raw")

	return cmd
}

func (o analyzeOptions) analysisConfig(cmd *cobra.Command, repoPath string) (model.AnalysisConfig, error) {
	cfg := model.AnalysisConfig{
		RepoPath:                     repoPath,
		ScanLibraryImports:           !o.noLibraries,
		ScanAlgorithmImplementations: !o.noAlgorithms,
		ConfidenceThreshold:          model.ThresholdLevel(o.threshold),
	}
	if cfg.ConfidenceThreshold == model.ThresholdCustom || cmd.Flags().Changed("custom-threshold") {
		custom := o.customThreshold
		cfg.CustomThreshold = &custom
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// render formats a result for the analyze command.
func render(result *model.AnalysisResult, format string) ([]byte, error) {
	switch format {
	case "json":
		return model.ResultToJSON(result)
	case string(export.KindSummary), string(export.KindCSV), string(export.KindRaw):
		doc, err := export.Render(result, export.Kind(format), time.Now())
		if err != nil {
			return nil, err
		}
		return doc.Body, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use json, summary, csv or raw)", format)
	}
}

// startSpinner shows an indeterminate progress spinner on terminals and
// returns the function that stops it.
func startSpinner(out *os.File, description string) func() {
	if !term.IsTerminal(int(out.Fd())) {
		return func() {}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
		_ = bar.Finish()
	}
}

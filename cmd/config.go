package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/config"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/db"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/logging"
	"github.com/cx-miguel-neiva/crypto-analysis/utils"
)

var logCloser io.Closer

func initialize() {
	configFilePath = resolveConfigPath(configFilePath, vConfig)
	cfg, err := config.Load(vConfig, configFilePath)
	cobra.CheckErr(err)
	appConfig = cfg

	cobra.CheckErr(utils.BindFlags(rootCmd, vConfig, config.EnvPrefix))

	if logCloser != nil {
		logCloser.Close()
	}
	logCloser = logging.Setup(appConfig.Log)
	if configFilePath != "" {
		log.Info().Str("config", configFilePath).Msg("Loaded configuration file")
	}
}

// resolveConfigPath returns the --config value, falling back to
// CRYPTO_ANALYSIS_CONFIG. The config file has to be known before the other
// flags can be filled from it.
func resolveConfigPath(flagValue string, v *viper.Viper) string {
	if flagValue != "" {
		return flagValue
	}
	return v.GetString(configFileFlag)
}

// openDatabase opens dbPath, or the configured database when dbPath is empty.
func openDatabase(dbPath string) (*db.Connection, error) {
	if dbPath == "" {
		dbPath = appConfig.Database.Path
	}
	absDbPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for db: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absDbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return db.NewConnection(absDbPath)
}

// writeOutput writes data to path, or to out when path is empty.
func writeOutput(out io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(out, string(data))
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for output: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output", path).Msg("Report saved successfully")
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var path string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "crypto-analysis.yaml", "Where to write the config file")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	cmd.AddCommand(initCmd)
	return cmd
}

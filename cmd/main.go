package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/config"
)

var Version = "0.0.0"

var (
	configFilePath string
	appConfig      = defaultConfig()
	vConfig        = config.NewViper()
)

const configFileFlag = "config"

var rootCmd = &cobra.Command{
	Use:     "crypto-analysis",
	Short:   "Cryptographic Algorithm Analysis Tool",
	Long:    `A command-line tool to analyze the cryptographic libraries and algorithms used by a repository.`,
	Version: Version,
}

func Execute() error {
	return ExecuteArgs(nil)
}

// ExecuteArgs runs the root command with args instead of the process
// arguments when args is not nil.
func ExecuteArgs(args []string) error {
	if args != nil {
		rootCmd.SetArgs(args)
	}
	cobra.OnInitialize(initialize)

	rootCmd.PersistentFlags().StringVar(&configFilePath, configFileFlag, "", "Path to the config file")
	cobra.CheckErr(rootCmd.MarkPersistentFlagFilename(configFileFlag, "yaml", "yml", "json"))

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(dbSeedCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Error executing root command")
		return err
	}
	return nil
}

func defaultConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}

package utils

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommands() (*cobra.Command, *cobra.Command) {
	root := &cobra.Command{Use: "root"}
	root.PersistentFlags().String("db", "default.db", "")
	sub := &cobra.Command{Use: "analyze", Run: func(*cobra.Command, []string) {}}
	sub.Flags().Duration("delay", time.Second, "")
	sub.Flags().Bool("no-libraries", false, "")
	root.AddCommand(sub)
	return root, sub
}

func TestBindFlagsFromViper(t *testing.T) {
	root, sub := newCommands()
	v := viper.New()
	v.Set("db", "other.db")
	v.Set("delay", "2s")

	require.NoError(t, BindFlags(root, v, ""))

	db, err := root.PersistentFlags().GetString("db")
	require.NoError(t, err)
	assert.Equal(t, "other.db", db)

	delay, err := sub.Flags().GetDuration("delay")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, delay)
}

func TestBindFlagsFromEnv(t *testing.T) {
	t.Setenv("CRYPTO_ANALYSIS_NO_LIBRARIES", "true")
	root, sub := newCommands()

	require.NoError(t, BindFlags(root, viper.New(), "CRYPTO_ANALYSIS"))

	noLibs, err := sub.Flags().GetBool("no-libraries")
	require.NoError(t, err)
	assert.True(t, noLibs)
}

func TestBindFlagsKeepsCommandLine(t *testing.T) {
	root, _ := newCommands()
	require.NoError(t, root.PersistentFlags().Set("db", "cli.db"))
	v := viper.New()
	v.Set("db", "config.db")

	require.NoError(t, BindFlags(root, v, ""))

	db, _ := root.PersistentFlags().GetString("db")
	assert.Equal(t, "cli.db", db)
}

func TestBindFlagsRejectsBadValue(t *testing.T) {
	root, _ := newCommands()
	v := viper.New()
	v.Set("delay", "soon")

	assert.Error(t, BindFlags(root, v, ""))
}

package utils

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BindFlags fills every flag of cmd and its subcommands that was not set on
// the command line from v, where the key is the flag name and may also come
// from the environment as <envPrefix>_<FLAG_NAME>.
func BindFlags(cmd *cobra.Command, v *viper.Viper, envPrefix string) error {
	var bindErr error
	bind := func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		if envPrefix != "" {
			envVar := strings.ToUpper(envPrefix + "_" + strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, envVar); err != nil {
				bindErr = fmt.Errorf("failed to bind env %s: %w", envVar, err)
				return
			}
		}
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := f.Value.Set(fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
			bindErr = fmt.Errorf("invalid value for flag --%s: %w", f.Name, err)
			return
		}
		f.Changed = true
	}

	cmd.PersistentFlags().VisitAll(bind)
	cmd.Flags().VisitAll(bind)
	for _, sub := range cmd.Commands() {
		if err := BindFlags(sub, v, envPrefix); err != nil {
			return err
		}
	}
	return bindErr
}

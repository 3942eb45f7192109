package main

import (
	"fmt"

	"github.com/marmos91/wormfs/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

// initCmd writes the sample configuration. It runs before any config
// exists, so it skips setup.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Init writes a commented sample configuration to --config, or to
$XDG_CONFIG_HOME/wormfs/config.yaml when no path is given. An existing file
is not overwritten unless --force is set.`,
	Annotations: map[string]string{skipSetup: ""},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := config.InitConfigToPath(configPath, initForce); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", configPath)
			return nil
		}

		path, err := config.InitConfig(initForce)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
}

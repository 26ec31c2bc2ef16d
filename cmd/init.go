package cmd

import (
	"log"

	"github.com/josephlewis42/cicada/core/config"
	"github.com/spf13/cobra"
)

// initCmd writes the default configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default shell configuration to the config directory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		path, err := configDir()
		if err != nil {
			return err
		}

		_, err = config.Initialize(path, logger)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

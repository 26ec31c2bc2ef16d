package cmd

import (
	"fmt"

	"github.com/josephlewis42/cicada/core"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the shell version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cicada v%s\n", core.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

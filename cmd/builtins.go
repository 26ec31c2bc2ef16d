package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/josephlewis42/cicada/core"
	"github.com/spf13/cobra"
)

// builtinsCmd lists the commands the shell runs itself.
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtin commands of the shell.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 8, 8, 2, ' ', 0)
		defer tw.Flush()

		for _, name := range core.BuiltinNames() {
			fmt.Fprintf(tw, "%s\t%s\n", name, core.BuiltinSummary(name))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}

package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/josephlewis42/cicada/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var historySince time.Duration

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Explore the record of commands the shell ran.",
}

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Show a report of the recorded commands.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		config, err := loadConfig()
		if err != nil {
			return err
		}

		fd, err := config.ReadHistoryLog()
		if err != nil {
			return err
		}
		defer fd.Close()

		var report logger.Report
		if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
			return err
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		return nil
	},
}

var listCommand = &cobra.Command{
	Use:   "list",
	Short: "Print the recorded commands with their status and duration.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		config, err := loadConfig()
		if err != nil {
			return err
		}

		fd, err := config.ReadHistoryLog()
		if err != nil {
			return err
		}
		defer fd.Close()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 8, 8, 2, ' ', 0)
		defer tw.Flush()

		cutoff := time.Time{}
		if historySince > 0 {
			cutoff = time.Now().Add(-historySince)
		}

		return logger.ReadJSONLinesLog(fd, func(he *logger.HistoryEntry) {
			if he.StartedAt.Before(cutoff) {
				return
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", he.StartedAt.Format(time.RFC3339), he.ExitStatus, he.Duration, he.Command)
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(reportCommand)
	historyCmd.AddCommand(listCommand)

	listCommand.Flags().DurationVar(&historySince, "since", 0, "only show commands started within this long (e.g. 1h, 30m)")
}

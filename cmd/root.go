package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/josephlewis42/cicada/core"
	"github.com/josephlewis42/cicada/core/config"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

// exitStatus is what the process exits with once the shell finishes.
var exitStatus int

// configDir is the --config flag or the per-user default.
func configDir() (string, error) {
	if cfgPath != "" {
		return cfgPath, nil
	}
	return config.DefaultDir()
}

func loadConfig() (*config.Configuration, error) {
	path, err := configDir()
	if err != nil {
		return nil, err
	}

	// A missing directory loads the defaults.
	return config.Load(path)
}

func newLogger(w io.Writer) *log.Logger {
	if !debug {
		w = io.Discard
	}
	return log.New(w, "[cicada] ", log.Ltime|log.Lmicroseconds)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cicada",
	Short: "An interactive shell with job control",
	Long: `cicada reads command lines and runs them as pipelines of processes.

If standard input is a terminal the shell is interactive, otherwise every line
of standard input is run in order.`,
	Args:    cobra.NoArgs,
	Version: core.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		shell, err := core.NewShell(core.Options{
			Config:  configuration,
			Stdin:   os.Stdin,
			Stdout:  os.Stdout,
			Stderr:  os.Stderr,
			Logger:  newLogger(cmd.ErrOrStderr()),
			Environ: os.Environ(),
		})
		if err != nil {
			return err
		}

		exitStatus = shell.Run()
		if err := shell.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "cicada: %v\n", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// It returns the status the shell asked to exit with.
func Execute() int {
	cobra.CheckErr(rootCmd.Execute())
	return exitStatus
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default is $XDG_CONFIG_HOME/cicada)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write diagnostics to stderr")
}

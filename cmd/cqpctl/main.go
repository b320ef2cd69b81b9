// Package main is the entry point for the cqpctl CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time.
var version = "0.1.0"

func newRootCmd() *cobra.Command {
	var configFile string

	cfg := &Config{}

	root := &cobra.Command{
		Use:   "cqpctl",
		Short: "Run CQP commands through a supervised backend",
		Long: `cqpctl starts the CQP corpus query processor in child mode, sends it
commands and prints the results. A watchdog kills the backend when a single
command runs past the deadline.

Settings are read from flags, then CQP_* environment variables, then the
file given with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := LoadConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}

			*cfg = *loaded

			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a config file (yaml, json or toml)")
	flags.String("bin", "", "Path to the cqp binary (default: search PATH)")
	flags.String("args", "", "Options passed to cqp, e.g. \"-D BNC\"")
	flags.String("registry", "", "Corpus registry directory")
	flags.Float64("multiplier", 1, "Deadline multiplier")
	flags.Duration("deadline", 0, "Per-command deadline (default 40s)")
	flags.Duration("poll-interval", 0, "Watchdog poll interval (default 30s)")
	flags.Bool("verbose", false, "Log wire traffic to stderr")
	flags.Bool("metrics", false, "Print session metrics to stderr on exit")

	root.AddCommand(newExecCmd(cfg))
	root.AddCommand(newQueryCmd(cfg))
	root.AddCommand(newShellCmd(cfg))
	root.AddCommand(newBatchCmd(cfg))
	root.AddCommand(newVersionCmd(cfg))

	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/wagiedev/cqp-go"
)

func newExecCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "exec COMMAND...",
		Short: "Run CQP commands",
		Long: `Run each argument as one CQP command on a single backend and print
its output. Backend errors are printed to stderr and do not stop later
commands.`,
		Example: `  cqpctl exec --registry /corpora/registry BNC 'A = [word="house"]' 'size A'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), cfg, cmd.ErrOrStderr(), func(s cqp.Session) error {
				return runCommands(cmd.OutOrStdout(), cmd.ErrOrStderr(), slices.Values(args), func(command string) (string, error) {
					return s.Exec(cmd.Context(), command)
				})
			})
		},
	}
}

func newQueryCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "query COMMAND...",
		Short: "Run CQP commands inside a query lock",
		Long: `Like exec, but every command runs inside "set QueryLock" / "unlock",
so the backend refuses commands that would block on interactive input.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), cfg, cmd.ErrOrStderr(), func(s cqp.Session) error {
				return runCommands(cmd.OutOrStdout(), cmd.ErrOrStderr(), slices.Values(args), func(command string) (string, error) {
					return s.Query(cmd.Context(), command)
				})
			})
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wagiedev/cqp-go"
)

func newVersionCmd(cfg *Config) *cobra.Command {
	var clientOnly bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print cqpctl and backend versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "cqpctl %s\n", version)

			if clientOnly {
				return nil
			}

			return runSession(cmd.Context(), cfg, cmd.ErrOrStderr(), func(s cqp.Session) error {
				v := s.Version()

				fmt.Fprintf(out, "cqp %s", v)

				if v.BuildDate != "" {
					fmt.Fprintf(out, " (%s)", v.BuildDate)
				}

				fmt.Fprintf(out, "\nminimum supported %s\n", cqp.MinimumVersion)

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clientOnly, "client", false, "Only print the cqpctl version")

	return cmd
}

package main

import (
	"bufio"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wagiedev/cqp-go"
)

func newShellCmd(cfg *Config) *cobra.Command {
	var locked bool

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Read CQP commands from stdin, one per line",
		Long: `Run each non-empty line read from stdin on one backend, printing
results as they arrive. Lines starting with # are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd.Context(), cfg, cmd.ErrOrStderr(), func(s cqp.Session) error {
				send := s.Exec
				if locked {
					send = s.Query
				}

				scanner := bufio.NewScanner(cmd.InOrStdin())

				err := runCommands(cmd.OutOrStdout(), cmd.ErrOrStderr(), commandLines(scanner),
					func(command string) (string, error) {
						return send(cmd.Context(), command)
					})

				if scanErr := scanner.Err(); scanErr != nil {
					return fmt.Errorf("read commands: %w", scanErr)
				}

				return err
			})
		},
	}

	cmd.Flags().BoolVar(&locked, "locked", false, "Run every line inside a query lock")

	return cmd
}

// commandLines yields the non-empty, non-comment lines of scanner's input.
// The caller checks scanner.Err afterwards.
func commandLines(scanner *bufio.Scanner) iter.Seq[string] {
	return func(yield func(string) bool) {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			if !yield(line) {
				return
			}
		}
	}
}

// readCommands returns all command lines of scanner's input.
func readCommands(scanner *bufio.Scanner) ([]string, error) {
	commands := slices.Collect(commandLines(scanner))

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read commands: %w", err)
	}

	return commands, nil
}

package main

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/cqp-go"
)

// batchResult is the captured output of one command file.
type batchResult struct {
	file   string
	out    bytes.Buffer
	errOut bytes.Buffer
	err    error
}

func newBatchCmd(cfg *Config) *cobra.Command {
	var (
		parallel int
		locked   bool
	)

	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Run command files concurrently, one backend per file",
		Long: `Run the commands of each file (one per line, # comments allowed) on a
backend of its own. Up to --parallel backends run at the same time. Output is
printed per file, in argument order, once all files are done.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			if parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1, got %d", parallel)
			}

			var reg *prometheus.Registry
			if cfg.Metrics {
				reg = prometheus.NewRegistry()
			}

			results := runBatch(cmd.Context(), cfg, files, parallel, locked, registerer(reg))

			err := printBatch(cmd.OutOrStdout(), cmd.ErrOrStderr(), results)

			if reg != nil {
				if dumpErr := writeMetrics(cmd.ErrOrStderr(), reg); dumpErr != nil {
					return stderrors.Join(err, dumpErr)
				}
			}

			return err
		},
	}

	cmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "Maximum number of concurrent backends")
	cmd.Flags().BoolVar(&locked, "locked", false, "Run every command inside a query lock")

	return cmd
}

// runBatch runs every file on its own session, at most parallel at a time.
// A failing file does not cancel the others.
func runBatch(
	ctx context.Context,
	cfg *Config,
	files []string,
	parallel int,
	locked bool,
	reg prometheus.Registerer,
) []*batchResult {
	log := newLogger(cfg)
	results := make([]*batchResult, len(files))

	var eg errgroup.Group

	eg.SetLimit(parallel)

	for i, file := range files {
		res := &batchResult{file: file}
		results[i] = res

		eg.Go(func() error {
			res.err = runFile(ctx, res, locked, sessionOptions(cfg, log.With("file", file), reg))

			return nil
		})
	}

	_ = eg.Wait()

	return results
}

func runFile(ctx context.Context, res *batchResult, locked bool, opts []cqp.Option) error {
	commands, err := readFile(res.file)
	if err != nil {
		return err
	}

	return cqp.WithSession(ctx, func(s cqp.Session) error {
		send := s.Exec
		if locked {
			send = s.Query
		}

		return runCommands(&res.out, &res.errOut, slices.Values(commands), func(command string) (string, error) {
			return send(ctx, command)
		})
	}, opts...)
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open command file: %w", err)
	}
	defer f.Close()

	return readCommands(bufio.NewScanner(f))
}

// printBatch writes each result under a header and joins the per-file errors.
func printBatch(out, errOut io.Writer, results []*batchResult) error {
	var errs []error

	for _, res := range results {
		fmt.Fprintf(out, "==> %s <==\n", res.file)
		_, _ = res.out.WriteTo(out)
		_, _ = res.errOut.WriteTo(errOut)

		if res.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.file, res.err))
		}
	}

	return stderrors.Join(errs...)
}

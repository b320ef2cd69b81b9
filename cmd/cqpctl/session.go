package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/wagiedev/cqp-go"
)

// newLogger returns a stderr logger, at debug level when verbose.
func newLogger(cfg *Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// sessionOptions translates cfg into session options.
func sessionOptions(cfg *Config, log *slog.Logger, reg prometheus.Registerer) []cqp.Option {
	opts := []cqp.Option{
		cqp.WithLogger(log),
		cqp.WithBinaryPath(cfg.Bin),
		cqp.WithArgs(cfg.Args),
		cqp.WithRegistry(cfg.Registry),
		cqp.WithDeadline(cfg.Deadline),
		cqp.WithPollInterval(cfg.PollInterval),
		cqp.WithMultiplier(cfg.Multiplier),
	}

	if reg != nil {
		opts = append(opts, cqp.WithMetricsRegisterer(reg))
	}

	return opts
}

// runSession starts one session, runs fn and stops the session. With
// --metrics, the collected metrics are written to errOut afterwards.
func runSession(ctx context.Context, cfg *Config, errOut io.Writer, fn func(cqp.Session) error) error {
	var reg *prometheus.Registry
	if cfg.Metrics {
		reg = prometheus.NewRegistry()
	}

	log := newLogger(cfg)

	err := cqp.WithSession(ctx, fn, sessionOptions(cfg, log, registerer(reg))...)

	if reg != nil {
		if dumpErr := writeMetrics(errOut, reg); dumpErr != nil {
			log.Warn("failed to write metrics", "error", dumpErr)
		}
	}

	return err
}

// registerer avoids handing a typed nil registry to the session.
func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}

	return reg
}

// writeMetrics writes every metric family in reg in the text exposition format.
func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}

	return nil
}

// runCommands sends each command through send, printing outputs to out and
// backend errors to errOut. It stops early only when the backend is gone.
// The returned error reports whether any command failed.
func runCommands(
	out, errOut io.Writer,
	commands iter.Seq[string],
	send func(string) (string, error),
) error {
	failed, total := 0, 0

	for command := range commands {
		total++

		result, err := send(command)
		if result != "" {
			fmt.Fprintln(out, result)
		}

		if err == nil {
			continue
		}

		failed++

		fmt.Fprintln(errOut, errorText(err))

		if _, ok := stderrors.AsType[*cqp.KilledError](err); ok {
			return fmt.Errorf("backend stopped after %q: %w", command, err)
		}

		if stderrors.Is(err, cqp.ErrTransportClosed) {
			return fmt.Errorf("backend unreachable: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d commands failed", failed, total)
	}

	return nil
}

// errorText renders err for the terminal, using the backend's own text
// where there is one.
func errorText(err error) string {
	if queryErr, ok := stderrors.AsType[*cqp.QueryError](err); ok {
		return queryErr.Message()
	}

	return err.Error()
}

package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/wagiedev/cqp-go/internal/errors"
)

// BinaryName is the executable searched for in PATH.
const BinaryName = "cqp"

// commonPaths are checked in order when the binary is not in PATH.
var commonPaths = []string{
	"/usr/local/bin/cqp",
	"/usr/local/cwb/bin/cqp",
	"/usr/bin/cqp",
}

// Config holds configuration for binary discovery.
type Config struct {
	// BinaryPath is an explicit binary path that skips the PATH search.
	BinaryPath string

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates the cqp binary.
type Discoverer interface {
	// Discover returns the path of the cqp binary or a BinaryNotFoundError.
	Discover(ctx context.Context) (string, error)
}

type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new binary discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &discoverer{
		cfg: cfg,
		log: log,
	}
}

// Discover locates the cqp binary.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.log.Debug("Discovering cqp binary")

	if d.cfg.BinaryPath != "" {
		d.log.Debug("Using explicit binary path", "binary_path", d.cfg.BinaryPath)

		if _, err := os.Stat(d.cfg.BinaryPath); err == nil {
			return d.cfg.BinaryPath, nil
		}

		d.log.Debug("Explicit binary path not found", "binary_path", d.cfg.BinaryPath)

		return "", &errors.BinaryNotFoundError{SearchedPaths: []string{d.cfg.BinaryPath}}
	}

	searchedPaths := make([]string, 0, len(commonPaths)+1)

	if path, err := exec.LookPath(BinaryName); err == nil {
		d.log.Debug("Found cqp in PATH", "path", path)

		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	for _, path := range commonPaths {
		searchedPaths = append(searchedPaths, path)

		if _, err := os.Stat(path); err == nil {
			d.log.Debug("Found cqp at common path", "path", path)

			return path, nil
		}
	}

	d.log.Warn("cqp binary not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.BinaryNotFoundError{SearchedPaths: searchedPaths}
}

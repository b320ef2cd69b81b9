package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/wagiedev/cqp-go/internal/config"
)

// childModeFlag makes cqp print its banner and answer .EOL. markers.
const childModeFlag = "-c"

// BuildArgs constructs the backend's command line arguments.
//
// Options.Args is split on whitespace; no shell is involved, so quoting is
// not interpreted. Child mode is prepended when missing.
func BuildArgs(options *config.Options) []string {
	fields := strings.Fields(options.Args)

	args := make([]string, 0, len(fields)+3)
	if !slices.Contains(fields, childModeFlag) {
		args = append(args, childModeFlag)
	}

	args = append(args, fields...)

	if options.Registry != "" {
		args = append(args, "-r", options.Registry)
	}

	return args
}

// BuildEnvironment returns the current environment plus Options.Env, in
// key order so the result is deterministic.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()

	for _, key := range slices.Sorted(maps.Keys(options.Env)) {
		env = append(env, fmt.Sprintf("%s=%s", key, options.Env[key]))
	}

	return env
}

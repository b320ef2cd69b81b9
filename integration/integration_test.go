//go:build integration

package integration

import (
	"errors"
	"os"
	"testing"

	"github.com/wagiedev/cqp-go"
)

// skipIfCQPNotInstalled skips the test if the error indicates cqp is not found.
func skipIfCQPNotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*cqp.BinaryNotFoundError](err); ok {
		t.Skip("cqp not installed")
	}
}

// registryOptions points sessions at CORPUS_REGISTRY when it is set.
func registryOptions() []cqp.Option {
	if dir := os.Getenv("CORPUS_REGISTRY"); dir != "" {
		return []cqp.Option{cqp.WithRegistry(dir)}
	}

	return nil
}

// startSession starts a session on the installed cqp, or skips the test.
func startSession(t *testing.T, opts ...cqp.Option) cqp.Session {
	t.Helper()

	s, err := cqp.Start(t.Context(), append(registryOptions(), opts...)...)
	if err != nil {
		skipIfCQPNotInstalled(t, err)
		t.Fatalf("Start failed: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Stop()
	})

	return s
}

package cqp

import (
	"context"
	"fmt"
)

// WithSession manages session lifecycle with automatic cleanup.
//
// This helper starts a session with the provided options, executes the
// callback function, and stops the session when done. If the callback
// returns an error, it is returned to the caller. If Stop fails, a warning
// is logged but does not override the callback's error.
//
// Example usage:
//
//	err := cqp.WithSession(ctx, func(s cqp.Session) error {
//	    if _, err := s.Exec(ctx, "BNC"); err != nil {
//	        return err
//	    }
//	    out, err := s.Query(ctx, `A = [lemma="house"]; size A`)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(out)
//	    return nil
//	},
//	    cqp.WithLogger(log),
//	    cqp.WithRegistry("/corpora/registry"),
//	)
func WithSession(ctx context.Context, fn func(Session) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	log := applyOptions(opts).Logger
	if log == nil {
		log = NopLogger()
	}

	s, err := Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	defer func() {
		if stopErr := s.Stop(); stopErr != nil {
			log.Warn("failed to stop session", "error", stopErr)
		}
	}()

	return fn(s)
}

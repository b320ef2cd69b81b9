// Package cqp runs the CQP corpus query processor as a supervised child
// process and exposes its command protocol as a synchronous API.
//
// A Session owns one backend process. Every command is framed with an
// end-of-response marker, so output is returned as one block of text, and
// anything the backend writes to its error stream is reported as a
// *BackendError. A watchdog kills the backend if a single request runs past
// the deadline (40 seconds by default, scaled by a multiplier).
//
// # Basic Usage
//
//	ctx := context.Background()
//	session, err := cqp.Start(ctx,
//	    cqp.WithRegistry("/corpora/registry"),
//	    cqp.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Stop()
//
//	if _, err := session.Exec(ctx, "BNC"); err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := session.Query(ctx, `A = [word="house"]`)
//	if err != nil {
//	    log.Printf("query failed: %v", err)
//	}
//	fmt.Println(out)
//
// Or with automatic cleanup:
//
//	err := cqp.WithSession(ctx, func(s cqp.Session) error {
//	    out, err := s.Exec(ctx, "show corpora")
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(out)
//	    return nil
//	}, cqp.WithBinaryPath("/usr/local/bin/cqp"))
//
// # Error Handling
//
// Exec and Query always return whatever output the backend produced, even
// together with an error:
//
//	out, err := session.Exec(ctx, query)
//	switch {
//	case err == nil:
//	    // success
//	case errors.Is(err, cqp.ErrTransportClosed):
//	    // the command was never sent
//	default:
//	    if backendErr, ok := errors.AsType[*cqp.BackendError](err); ok {
//	        // the backend rejected the command; the session is still usable
//	    }
//	    if killedErr, ok := errors.AsType[*cqp.KilledError](err); ok {
//	        // the backend is gone; start a new session
//	    }
//	}
//
// The session also keeps the status of the last request, see
// Session.Status, Session.Ok and Session.ErrorMessage.
//
// # Query Locks
//
// Session.Query wraps a command in "set QueryLock <token>" and
// "unlock <token>" with a random token. All three steps always run; failures
// are collected in a *QueryError in step order.
//
// # Logging
//
// Pass a *slog.Logger with WithLogger. Without one, sessions are silent.
// Wire traffic is logged at debug level.
package cqp

// Package subprocess provides the child process behind a CQP session.
//
// This package implements config.Process by spawning the cqp binary in its
// own process group and connecting stdin, stdout, and stderr through pipes.
// Output is read line by line; the error stream is polled without blocking
// so the session can tell whether a command produced an error.
package subprocess

// Package errors defines error types for the CQP session layer.
//
// This package provides structured error types that wrap the different
// failure scenarios of a supervised CQP backend: spawn and handshake
// failures, backend errors reported on stderr, watchdog kills, and
// aggregated query-lock failures. All error types support error unwrapping
// and can be checked using errors.Is, errors.As, and errors.AsType.
package errors

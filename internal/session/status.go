package session

// Status is the error status of a session.
type Status string

const (
	// StatusOK means the last request completed without backend errors.
	StatusOK Status = "ok"

	// StatusError means the last request (or any step of the last locked
	// query) produced backend error output. The backend is still running.
	StatusError Status = "error"

	// StatusKilled means the backend is gone: the watchdog killed it or it
	// exited on its own.
	StatusKilled Status = "killed"

	// StatusStopped means the session was never started or has been stopped.
	StatusStopped Status = "stopped"
)

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

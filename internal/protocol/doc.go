// Package protocol implements the line-oriented request/response channel to
// a CQP backend and the watchdog that guards it.
//
// A request is one line, the caller's command followed by the end-of-response
// marker:
//
//	show corpora; .EOL.;
//
// The backend answers with any number of output lines and then echoes the
// marker as "-::-EOL-::-". The Channel collects the lines in between, drops
// blank ones, and asks the ErrorMonitor whether the backend wrote anything
// to its error stream while handling the command.
//
// The Watchdog runs beside the channel. Both share a RequestTimer: the
// channel marks when a request starts and ends, and the watchdog kills the
// backend when one request runs longer than its deadline.
//
// Example usage:
//
//	timer := protocol.NewRequestTimer(1)
//	channel := protocol.NewChannel(log, proc, timer)
//	watchdog := protocol.NewWatchdog(log, proc, timer, 40*time.Second, 30*time.Second, onKill)
//	watchdog.Start(ctx)
//	defer watchdog.Stop()
//
//	reply, err := channel.Execute("show corpora")
package protocol

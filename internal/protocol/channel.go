package protocol

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/wagiedev/cqp-go/internal/config"
	"github.com/wagiedev/cqp-go/internal/errors"
)

const (
	// EndOfResponse is appended to every request.
	EndOfResponse = ".EOL."

	// EndOfResponseEcho is the line the backend prints for EndOfResponse.
	EndOfResponseEcho = "-::-EOL-::-"
)

var trailingTerminator = regexp.MustCompile(`;\s*$`)

// Reply is the outcome of one request.
type Reply struct {
	// Text holds the non-blank output lines, newline-joined, trailing
	// whitespace trimmed.
	Text string

	// ErrorText holds what the backend wrote to its error stream, if anything.
	ErrorText string
}

// Channel frames requests and collects responses over a backend process.
// It is not safe for concurrent use; callers serialize requests.
type Channel struct {
	log     *slog.Logger
	proc    config.Process
	timer   *RequestTimer
	monitor *ErrorMonitor
}

// NewChannel creates a channel over proc that reports request timing to timer.
func NewChannel(log *slog.Logger, proc config.Process, timer *RequestTimer) *Channel {
	return &Channel{
		log:     log.With("component", "channel"),
		proc:    proc,
		timer:   timer,
		monitor: NewErrorMonitor(log, proc),
	}
}

// NormalizeCommand strips trailing whitespace and one trailing statement
// terminator.
func NormalizeCommand(command string) string {
	command = strings.TrimRight(command, " \t\r\n")

	return trailingTerminator.ReplaceAllString(command, "")
}

// FrameRequest returns the request line for command.
func FrameRequest(command string) string {
	return NormalizeCommand(command) + "; " + EndOfResponse + ";"
}

// Execute sends one command and blocks until the backend has answered it or
// its output stream has closed.
//
// A write failure returns an error wrapping ErrTransportClosed and no reply.
// If the output closes before the end-of-response echo, the lines read so
// far are returned with an error wrapping ErrProcessExited. Backend errors
// are not Go errors here; they are reported in Reply.ErrorText.
func (c *Channel) Execute(command string) (Reply, error) {
	request := FrameRequest(command)

	c.timer.Begin()
	defer c.timer.End()

	c.log.Debug("CQP <<", "request", request)

	if err := c.proc.WriteLine(request); err != nil {
		return Reply{}, err
	}

	lines := make([]string, 0, 8)

	var readErr error

	for {
		line, err := c.proc.ReadLine()
		if err != nil {
			readErr = err

			break
		}

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, EndOfResponseEcho) {
			break
		}

		if line == "" {
			continue
		}

		c.log.Debug("CQP >>", "line", line)
		lines = append(lines, line)
	}

	errText, _ := c.monitor.Check()

	reply := Reply{
		Text:      strings.TrimRight(strings.Join(lines, "\n"), " \t\r\n"),
		ErrorText: errText,
	}

	if readErr != nil {
		c.log.Debug("Backend output closed before end of response", "error", readErr)

		if stderrors.Is(readErr, io.EOF) {
			return reply, errors.ErrProcessExited
		}

		return reply, fmt.Errorf("%w: %w", errors.ErrProcessExited, readErr)
	}

	return reply, nil
}

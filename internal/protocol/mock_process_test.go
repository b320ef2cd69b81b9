package protocol

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/wagiedev/cqp-go/internal/config"
	"github.com/wagiedev/cqp-go/internal/errors"
)

// mockProcess is an in-memory backend. Each written line is passed to
// handler, whose stdout lines are queued for ReadLine and whose stderr text
// is buffered for the error stream.
type mockProcess struct {
	handler func(line string) (stdout []string, stderr string)

	mu       sync.Mutex
	written  []string
	stderr   strings.Builder
	pollErr  error
	closed   bool
	killed   int
	lines    chan string
	closeOut sync.Once

	// exitAfterWrite closes the output once the reply to a write is queued.
	exitAfterWrite bool
}

var _ config.Process = (*mockProcess)(nil)

func newMockProcess(handler func(line string) ([]string, string)) *mockProcess {
	return &mockProcess{
		handler: handler,
		lines:   make(chan string, 1024),
	}
}

// echoHandler answers every request with the end-of-response echo only.
func echoHandler(string) ([]string, string) {
	return []string{EndOfResponseEcho}, ""
}

func (m *mockProcess) Start(context.Context) error { return nil }

func (m *mockProcess) WriteLine(line string) error {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()

		return errors.ErrTransportClosed
	}

	m.written = append(m.written, line)
	out, errText := m.handler(line)
	m.stderr.WriteString(errText)
	m.mu.Unlock()

	for _, l := range out {
		m.lines <- l
	}

	if m.exitAfterWrite {
		m.closeOutput()
	}

	return nil
}

func (m *mockProcess) ReadLine() (string, error) {
	line, ok := <-m.lines
	if !ok {
		return "", io.EOF
	}

	return line, nil
}

func (m *mockProcess) StderrReady() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pollErr != nil {
		return false, m.pollErr
	}

	return m.stderr.Len() > 0, nil
}

func (m *mockProcess) ReadStderr(limit int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	text := m.stderr.String()
	if len(text) > limit {
		text = text[:limit]
	}

	rest := m.stderr.String()[len(text):]
	m.stderr.Reset()
	m.stderr.WriteString(rest)

	return text, nil
}

func (m *mockProcess) Kill() error {
	m.mu.Lock()
	m.closed = true
	m.killed++
	m.mu.Unlock()

	m.closeOutput()

	return nil
}

// closeOutput simulates the backend's stdout closing.
func (m *mockProcess) closeOutput() {
	m.closeOut.Do(func() { close(m.lines) })
}

func (m *mockProcess) IsAlive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !m.closed
}

func (m *mockProcess) Pid() int { return 4242 }

func (m *mockProcess) getWritten() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.written...)
}

func (m *mockProcess) killCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.killed
}

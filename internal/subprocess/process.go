package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wagiedev/cqp-go/internal/cli"
	"github.com/wagiedev/cqp-go/internal/config"
	"github.com/wagiedev/cqp-go/internal/errors"
)

// reapTimeout bounds how long Kill waits for the killed process to be reaped.
const reapTimeout = 2 * time.Second

// Process implements config.Process by spawning the cqp binary.
type Process struct {
	log     *slog.Logger
	options *config.Options

	mu     sync.Mutex // Protects cmd, killed and the pipe files during start/kill
	cmd    *exec.Cmd
	killed bool

	writeMu sync.Mutex // Serializes stdin writes
	stdin   *os.File
	stdout  *os.File
	stderr  *os.File
	reader  *bufio.Reader

	alive  atomic.Bool
	exited chan struct{}
}

// Compile-time verification that Process implements the config.Process interface.
var _ config.Process = (*Process)(nil)

// NewProcess creates a backend process that is spawned by Start.
func NewProcess(log *slog.Logger, options *config.Options) *Process {
	return &Process{
		log:     log.With("component", "subprocess"),
		options: options,
		exited:  make(chan struct{}),
	}
}

// Start discovers the cqp binary and spawns it.
//
// Returns BinaryNotFoundError if the binary cannot be located, or
// ConnectionError if a pipe or the process fails to start.
func (p *Process) Start(ctx context.Context) error {
	if !platformSupported {
		return errors.ErrUnsupportedPlatform
	}

	p.log.Info("Starting CQP backend")

	path, err := cli.NewDiscoverer(&cli.Config{
		BinaryPath: p.options.BinaryPath,
		Logger:     p.log,
	}).Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover binary: %w", err)
	}

	args := cli.BuildArgs(p.options)
	p.log.Debug("Built command arguments", "path", path, "args", args)

	//nolint:gosec // G204: the backend binary and its options are caller configuration
	cmd := exec.Command(path, args...)
	cmd.Env = cli.BuildEnvironment(p.options)
	cmd.Dir = p.options.Cwd
	cmd.SysProcAttr = sysProcAttr()

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return &errors.ConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW)

		return &errors.ConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW)

		return &errors.ConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.killed {
		closeAll(stdinR, stdinW, stdoutR, stdoutW, stderrR, stderrW)

		return &errors.ConnectionError{Err: errors.ErrSessionStopped}
	}

	if err := cmd.Start(); err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW, stderrR, stderrW)
		p.log.Error("Failed to start CQP backend", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	// The child holds its own copies; keeping ours would hide EOF.
	closeAll(stdinR, stdoutW, stderrW)

	p.cmd = cmd
	p.stdin = stdinW
	p.stdout = stdoutR
	p.stderr = stderrR
	p.reader = bufio.NewReader(stdoutR)
	p.alive.Store(true)

	go p.reap()

	p.log.Info("CQP backend started", "pid", cmd.Process.Pid)

	return nil
}

// reap waits for the process to exit and records that it is gone.
func (p *Process) reap() {
	err := p.cmd.Wait()
	p.alive.Store(false)

	p.log.Debug("CQP backend exited", "pid", p.cmd.Process.Pid, "error", err)
	close(p.exited)
}

// WriteLine writes line plus a newline to the backend's stdin.
func (p *Process) WriteLine(line string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if !p.alive.Load() || p.stdin == nil {
		return errors.ErrTransportClosed
	}

	if _, err := io.WriteString(p.stdin, line+"\n"); err != nil {
		p.log.Debug("Failed to write to backend", "error", err)

		return fmt.Errorf("%w: %w", errors.ErrTransportClosed, err)
	}

	return nil
}

// ReadLine returns the next line of backend output without its terminator.
// Once the output stream is closed it returns io.EOF and the process is no
// longer considered alive.
func (p *Process) ReadLine() (string, error) {
	if p.reader == nil {
		return "", io.EOF
	}

	line, err := p.reader.ReadString('\n')
	if err != nil {
		if line != "" && stderrors.Is(err, io.EOF) {
			return strings.TrimRight(line, "\r\n"), nil
		}

		p.alive.Store(false)

		if stderrors.Is(err, io.EOF) || stderrors.Is(err, os.ErrClosed) {
			return "", io.EOF
		}

		return "", fmt.Errorf("read backend output: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// StderrReady reports whether the error stream has pending data, without blocking.
func (p *Process) StderrReady() (bool, error) {
	if p.stderr == nil {
		return false, nil
	}

	return pollReadable(p.stderr)
}

// ReadStderr reads at most max bytes from the error stream.
// Call it only after StderrReady reported pending data, otherwise it blocks.
func (p *Process) ReadStderr(max int) (string, error) {
	if p.stderr == nil {
		return "", nil
	}

	buf := make([]byte, max)

	n, err := p.stderr.Read(buf)
	if err != nil && n == 0 {
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, os.ErrClosed) {
			return "", nil
		}

		return "", fmt.Errorf("read backend errors: %w", err)
	}

	return string(buf[:n]), nil
}

// Kill terminates the backend's process group with SIGKILL and closes the
// pipes, which unblocks any pending ReadLine. It's safe to call Kill
// multiple times or before Start.
func (p *Process) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.killed {
		return nil
	}

	p.killed = true

	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}

	pid := p.cmd.Process.Pid
	p.alive.Store(false)

	p.log.Debug("Killing CQP backend", "pid", pid)

	var killErr error

	if err := killProcessGroup(pid); err != nil {
		p.log.Debug("Process group kill failed, killing process", "pid", pid, "error", err)

		if err := p.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			killErr = fmt.Errorf("kill CQP backend (pid %d): %w", pid, err)
		}
	}

	closeAll(p.stdin, p.stdout, p.stderr)

	select {
	case <-p.exited:
	case <-time.After(reapTimeout):
		p.log.Warn("CQP backend not reaped after kill", "pid", pid)
	}

	return killErr
}

// IsAlive reports whether the backend is running.
func (p *Process) IsAlive() bool {
	return p.alive.Load()
}

// Pid returns the backend's process id, or 0 before Start.
func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}

	return p.cmd.Process.Pid
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

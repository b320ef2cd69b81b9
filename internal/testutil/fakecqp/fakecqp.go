// Package fakecqp is a stand-in CQP backend for tests.
//
// Test packages re-execute their own test binary as the backend:
//
//	func TestMain(m *testing.M) {
//	    fakecqp.RunIfRequested()
//	    os.Exit(m.Run())
//	}
//
// and point the session at it with Options. The fake speaks the child-mode
// protocol: it prints a version banner, answers ".EOL." with the
// end-of-response echo, and understands a handful of commands:
//
//	echo TEXT       print TEXT
//	lines N         print "line 1".."line N" padded with blank lines
//	error TEXT      write TEXT to stderr
//	sleep DURATION  block for a time.ParseDuration value
//	exit            terminate without answering
//	show lock       print "locked" or "unlocked"
//	show lockkey    print the current query-lock key, or "none"
//	show pretty     print the PrettyPrint setting
//	set QueryLock N / unlock N
//
// Anything else is reported on stderr as a syntax error.
package fakecqp

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wagiedev/cqp-go/internal/config"
)

const (
	// EnvBackend marks a process as the fake backend.
	EnvBackend = "CQP_FAKE_BACKEND"

	// EnvBanner overrides the startup banner. The value "-" prints nothing
	// and blocks, simulating a backend that never finishes starting.
	EnvBanner = "CQP_FAKE_BANNER"

	// EnvLockError makes every "set QueryLock" fail with the given text.
	EnvLockError = "CQP_FAKE_LOCK_ERROR"

	// DefaultBanner is printed when EnvBanner is unset.
	DefaultBanner = "CQP version 3.4.33 2023-01-01"

	// SilentBanner is the EnvBanner value for a backend that never prints one.
	SilentBanner = "-"
)

// RunIfRequested turns the current process into the fake backend when
// EnvBackend is set, and exits when the fake is done. Otherwise it returns.
func RunIfRequested() {
	if os.Getenv(EnvBackend) != "1" {
		return
	}

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Getenv))
}

// Options returns session options that spawn the running test binary as
// the fake backend, with env added to its environment.
func Options(env map[string]string) *config.Options {
	merged := map[string]string{EnvBackend: "1"}
	maps.Copy(merged, env)

	return &config.Options{
		BinaryPath: os.Args[0],
		Env:        merged,
	}
}

type backend struct {
	out     io.Writer
	errOut  io.Writer
	getenv  func(string) string
	lock    string
	pretty  bool
	exiting bool
}

// Run serves the protocol on in/out/errOut until in closes or "exit" is
// received, and returns the exit code.
func Run(in io.Reader, out, errOut io.Writer, getenv func(string) string) int {
	banner := getenv(EnvBanner)
	if banner == "" {
		banner = DefaultBanner
	}

	if banner == SilentBanner {
		time.Sleep(time.Hour)

		return 1
	}

	fmt.Fprintln(out, banner)

	b := &backend{out: out, errOut: errOut, getenv: getenv, pretty: true}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		for stmt := range strings.SplitSeq(scanner.Text(), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}

			b.handle(stmt)

			if b.exiting {
				closeWriters(out, errOut)

				return 0
			}
		}
	}

	return 0
}

// closeWriters closes out and errOut where possible, so the reader sees EOF
// right away instead of when the process finally exits.
func closeWriters(writers ...io.Writer) {
	for _, w := range writers {
		if c, ok := w.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

func (b *backend) handle(stmt string) {
	verb, arg, _ := strings.Cut(stmt, " ")

	switch verb {
	case ".EOL.":
		fmt.Fprintln(b.out, "-::-EOL-::-")
	case "echo":
		fmt.Fprintln(b.out, arg)
	case "lines":
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintf(b.errOut, "CQP Error: bad line count %q\n", arg)

			return
		}

		for i := 1; i <= n; i++ {
			fmt.Fprintf(b.out, "line %d   \n\n   \n", i)
		}
	case "error":
		fmt.Fprintln(b.errOut, arg)
	case "sleep":
		d, err := time.ParseDuration(arg)
		if err != nil {
			fmt.Fprintf(b.errOut, "CQP Error: bad duration %q\n", arg)

			return
		}

		time.Sleep(d)
	case "exit":
		b.exiting = true
	case "show":
		b.show(arg)
	case "set":
		b.set(arg)
	case "unlock":
		b.unlock(arg)
	default:
		fmt.Fprintf(b.errOut, "CQP Syntax Error: unknown command %q\n", stmt)
	}
}

func (b *backend) show(what string) {
	switch what {
	case "lock":
		if b.lock != "" {
			fmt.Fprintln(b.out, "locked")
		} else {
			fmt.Fprintln(b.out, "unlocked")
		}
	case "lockkey":
		if b.lock != "" {
			fmt.Fprintln(b.out, b.lock)
		} else {
			fmt.Fprintln(b.out, "none")
		}
	case "pretty":
		if b.pretty {
			fmt.Fprintln(b.out, "PrettyPrint on")
		} else {
			fmt.Fprintln(b.out, "PrettyPrint off")
		}
	default:
		fmt.Fprintf(b.errOut, "CQP Error: cannot show %q\n", what)
	}
}

func (b *backend) set(arg string) {
	name, value, _ := strings.Cut(arg, " ")

	switch name {
	case "PrettyPrint":
		b.pretty = value != "off"
	case "QueryLock":
		if text := b.getenv(EnvLockError); text != "" {
			fmt.Fprintln(b.errOut, text)

			return
		}

		if b.lock != "" {
			fmt.Fprintln(b.errOut, "CQP Error: query lock already set")

			return
		}

		b.lock = value
	default:
		fmt.Fprintf(b.errOut, "CQP Error: unknown option %q\n", name)
	}
}

func (b *backend) unlock(key string) {
	if b.lock == "" {
		return
	}

	if b.lock != key {
		fmt.Fprintln(b.errOut, "CQP Error: wrong key for query lock")

		return
	}

	b.lock = ""
}

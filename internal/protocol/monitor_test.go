package protocol

import (
	stderrors "errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMonitor_Check(t *testing.T) {
	t.Run("nothing pending", func(t *testing.T) {
		text, ok := NewErrorMonitor(slog.Default(), newMockProcess(echoHandler)).Check()

		require.False(t, ok)
		require.Empty(t, text)
	})

	t.Run("pending text is trimmed", func(t *testing.T) {
		proc := newMockProcess(echoHandler)
		proc.stderr.WriteString("CQP Error: corpus not found \n")

		text, ok := NewErrorMonitor(slog.Default(), proc).Check()

		require.True(t, ok)
		require.Equal(t, "CQP Error: corpus not found", text)
	})

	t.Run("whitespace only is not an error", func(t *testing.T) {
		proc := newMockProcess(echoHandler)
		proc.stderr.WriteString("\n\n")

		_, ok := NewErrorMonitor(slog.Default(), proc).Check()

		require.False(t, ok)
	})

	t.Run("poll failure is treated as no error", func(t *testing.T) {
		proc := newMockProcess(echoHandler)
		proc.stderr.WriteString("ignored")
		proc.pollErr = stderrors.New("bad file descriptor")

		_, ok := NewErrorMonitor(slog.Default(), proc).Check()

		require.False(t, ok)
	})

	t.Run("one check consumes one bounded chunk", func(t *testing.T) {
		proc := newMockProcess(echoHandler)
		proc.stderr.WriteString(strings.Repeat("e", stderrChunkSize+10))

		monitor := NewErrorMonitor(slog.Default(), proc)

		first, ok := monitor.Check()
		require.True(t, ok)
		require.Len(t, first, stderrChunkSize)

		rest, ok := monitor.Check()
		require.True(t, ok)
		require.Len(t, rest, 10)
	})
}

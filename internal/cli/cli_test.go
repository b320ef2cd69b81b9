package cli

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wagiedev/cqp-go/internal/config"
	"github.com/wagiedev/cqp-go/internal/errors"
)

// TestDiscoverer_NotFound tests that an invalid binary path returns BinaryNotFoundError.
func TestDiscoverer_NotFound(t *testing.T) {
	discoverer := NewDiscoverer(&Config{
		BinaryPath: "/nonexistent/path/to/cqp",
		Logger:     slog.Default(),
	})

	_, err := discoverer.Discover(context.Background())

	notFound, ok := stderrors.AsType[*errors.BinaryNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{"/nonexistent/path/to/cqp"}, notFound.SearchedPaths)
}

// TestDiscoverer_ExplicitPath tests discovery with an explicit path.
func TestDiscoverer_ExplicitPath(t *testing.T) {
	fakeBinary := filepath.Join(t.TempDir(), "cqp")

	err := os.WriteFile(fakeBinary, []byte("#!/bin/sh\necho 'CQP version 3.4.33'"), 0o755)
	require.NoError(t, err)

	discoverer := NewDiscoverer(&Config{BinaryPath: fakeBinary})

	path, err := discoverer.Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, fakeBinary, path)
}

// TestDiscoverer_SearchesPath tests that an unset binary path falls back to PATH.
func TestDiscoverer_SearchesPath(t *testing.T) {
	dir := t.TempDir()
	fakeBinary := filepath.Join(dir, BinaryName)

	err := os.WriteFile(fakeBinary, []byte("#!/bin/sh\n"), 0o755)
	require.NoError(t, err)

	t.Setenv("PATH", dir)

	path, err := NewDiscoverer(nil).Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, fakeBinary, path)
}

func TestDiscoverer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDiscoverer(nil).Discover(ctx)

	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name    string
		options *config.Options
		want    []string
	}{
		{
			name:    "empty adds child mode",
			options: &config.Options{},
			want:    []string{"-c"},
		},
		{
			name:    "child mode not duplicated",
			options: &config.Options{Args: "-c -D BNC"},
			want:    []string{"-c", "-D", "BNC"},
		},
		{
			name:    "whitespace split",
			options: &config.Options{Args: "  -D\tBNC  "},
			want:    []string{"-c", "-D", "BNC"},
		},
		{
			name:    "registry appended",
			options: &config.Options{Args: "-D BNC", Registry: "/corpora/registry"},
			want:    []string{"-c", "-D", "BNC", "-r", "/corpora/registry"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, BuildArgs(tc.options))
		})
	}
}

func TestBuildEnvironment_EnvVarsPassedToSubprocess(t *testing.T) {
	env := BuildEnvironment(&config.Options{
		Env: map[string]string{
			"CORPUS_REGISTRY": "/corpora/registry",
			"LC_ALL":          "C.UTF-8",
		},
	})

	registryIdx := slices.Index(env, "CORPUS_REGISTRY=/corpora/registry")
	localeIdx := slices.Index(env, "LC_ALL=C.UTF-8")

	require.NotEqual(t, -1, registryIdx)
	require.NotEqual(t, -1, localeIdx)
	require.Less(t, registryIdx, localeIdx)
	require.GreaterOrEqual(t, len(env), len(os.Environ())+2)
}

func TestParseBanner(t *testing.T) {
	tests := []struct {
		name   string
		banner string
		want   Version
	}{
		{
			name:   "minimum beta with build date",
			banner: "CQP version 2.2.b41 2020-01-01",
			want:   Version{Major: 2, Minor: 2, Beta: 41, BuildDate: "2020-01-01"},
		},
		{
			name:   "three part version",
			banner: "CQP Version 3.4.33",
			want:   Version{Major: 3, Minor: 4, Beta: 33},
		},
		{
			name:   "several words and trailing newline",
			banner: "CQP Corpus Query Processor v 3.5.0 Sep 12 2023\n",
			want:   Version{Major: 3, Minor: 5, BuildDate: "Sep 12 2023"},
		},
		{
			name:   "no beta",
			banner: "CQP 2.2",
			want:   Version{Major: 2, Minor: 2},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseBanner(tc.banner)

			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseBanner_Rejects(t *testing.T) {
	for _, banner := range []string{"", "hello", "CWB version 3.4.33", "CQP version"} {
		t.Run(banner, func(t *testing.T) {
			_, err := ParseBanner(banner)

			handshakeErr, ok := stderrors.AsType[*errors.HandshakeError](err)
			require.True(t, ok)
			require.Equal(t, banner, handshakeErr.Banner)
		})
	}
}

func TestCheckBanner_MinimumVersion(t *testing.T) {
	tests := []struct {
		banner  string
		wantErr bool
	}{
		{banner: "CQP version 2.2.b41 2020-01-01", wantErr: false},
		{banner: "CQP version 2.2.b40 2020-01-01", wantErr: true},
		{banner: "CQP version 2.2.b99", wantErr: false},
		{banner: "CQP version 2.1.b90", wantErr: true},
		{banner: "CQP version 2.3.0", wantErr: true},
		{banner: "CQP version 3.0.0", wantErr: false},
		{banner: "CQP version 4.0", wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.banner, func(t *testing.T) {
			_, err := CheckBanner(tc.banner)

			if !tc.wantErr {
				require.NoError(t, err)

				return
			}

			versionErr, ok := stderrors.AsType[*errors.VersionError](err)
			require.True(t, ok)
			require.Equal(t, MinimumVersion, versionErr.Minimum)
		})
	}
}

func TestVersion_String(t *testing.T) {
	require.Equal(t, "2.2.b41", Version{Major: 2, Minor: 2, Beta: 41}.String())
	require.Equal(t, "3.4.33", Version{Major: 3, Minor: 4, Beta: 33}.String())
}

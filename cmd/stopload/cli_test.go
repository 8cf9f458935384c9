package main

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/stopload/internal/config"
	"github.com/JonMunkholm/stopload/internal/core"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, exitOK, exitCode(nil))
	require.Equal(t, exitFailure, exitCode(errors.New("plain")))
	require.Equal(t, exitUsage, exitCode(withCode(exitUsage, errors.New("bad flag"))))
	require.Equal(t, exitImport, exitCode(fmt.Errorf("wrapped: %w", withCode(exitImport, errors.New("x")))))
	require.NoError(t, withCode(exitDB, nil))
}

func TestCodeForKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind core.ErrorKind
		want int
	}{
		{core.KindConfiguration, exitConfig},
		{core.KindConnection, exitDB},
		{core.KindSchema, exitDB},
		{core.KindIndexCreation, exitDB},
		{core.KindImport, exitImport},
		{core.KindFileAccess, exitFailure},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := core.NewError(tt.kind, "op", errors.New("boom"))
			require.Equal(t, tt.want, codeForKind(err))
		})
	}

	require.Equal(t, exitFailure, codeForKind(errors.New("untyped")))
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestRoot_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	err := runCLI(t, "import", "--env-file", filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	require.Equal(t, exitConfig, exitCode(err))
	require.ErrorIs(t, err, core.ErrMissingConnString)
	require.True(t, core.IsKind(err, core.KindConfiguration))
}

func TestRoot_UsageErrors(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	err := runCLI(t, "import", "--no-such-flag")
	require.Equal(t, exitUsage, exitCode(err))

	err = runCLI(t, "import", "a.txt", "b.txt", "--env-file", "")
	require.Equal(t, exitUsage, exitCode(err))

	err = runCLI(t, "serve", "extra", "--env-file", "")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestRoot_InvalidConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	err := runCLI(t, "import", "--env-file", "", "--log-level", "loud")
	require.Equal(t, exitConfig, exitCode(err))
}

func TestScopeFor(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	want := map[string]config.Scope{
		"import": config.ScopeImport,
		"serve":  config.ScopeServe,
	}
	for _, sub := range root.Commands() {
		if scope, ok := want[sub.Name()]; ok {
			require.Equal(t, scope, scopeFor(sub), sub.Name())
			delete(want, sub.Name())
		}
	}
	require.Empty(t, want, "subcommands not registered")
	require.Equal(t, config.ScopeAll, scopeFor(root))
}

func TestRoot_ImportIgnoresServerSettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("SERVER_TRUSTED_PROXIES", "not-an-ip")
	t.Setenv("LOG_LEVEL", "loud")

	// only the log level is reported for import
	err := runCLI(t, "import", "--env-file", "")
	require.Equal(t, exitConfig, exitCode(err))
	require.NotContains(t, err.Error(), "TrustedProxies")
	require.Contains(t, err.Error(), "Level")
}

func TestReportImport(t *testing.T) {
	t.Parallel()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		err := reportImport(&buf, &core.ImportResult{
			File: "stops.txt", RowsRead: 5, Attempted: 4, Inserted: 3,
			Duplicates: 1, Invalid: 0, Duration: 1500 * time.Microsecond,
		}, false)
		require.NoError(t, err)
		require.Equal(t, "stops.txt: 5 rows read, 3 inserted, 1 already present, 1 duplicate ids, 0 invalid (2ms)\n", buf.String())
	})

	t.Run("missing file", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, reportImport(&buf, &core.ImportResult{File: "x.txt", FileMissing: true}, false))
		require.Contains(t, buf.String(), "file not found")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, reportImport(&buf, &core.ImportResult{RunID: "r1", File: "a&b.txt"}, true))
		require.Contains(t, buf.String(), `"run_id":"r1"`)
		require.Contains(t, buf.String(), `"file":"a&b.txt"`)
	})
}

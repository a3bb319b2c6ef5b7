package hooks_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvertools/bumpver/pkg/hooks"
)

func writeHook(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell hooks are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "hook.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestRun(t *testing.T) {
	ctx := dlog.NewTestContext(t, false)

	t.Run("env-is-passed", func(t *testing.T) {
		outFile := filepath.Join(t.TempDir(), "out.txt")
		hook := writeHook(t, `echo "$BUMPVER_OLD_VERSION -> $BUMPVER_NEW_VERSION" > `+outFile+"\n")

		require.NoError(t, hooks.Run(ctx, hook, "2020.1001", "2020.1002"))

		data, err := os.ReadFile(outFile)
		require.NoError(t, err)
		assert.Equal(t, "2020.1001 -> 2020.1002\n", string(data))
	})

	t.Run("nonzero-exit-is-an-error", func(t *testing.T) {
		hook := writeHook(t, "echo oh no >&2\nexit 3\n")
		err := hooks.Run(ctx, hook, "2020.1001", "2020.1002")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hook")
	})

	t.Run("missing-script-is-an-error", func(t *testing.T) {
		err := hooks.Run(ctx, "no/such/hook.sh", "2020.1001", "2020.1002")
		require.Error(t, err)
	})
}

package vcs_test

import (
	"os"
	"testing"

	"github.com/datawire/dlib/dexec"
	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvertools/bumpver/pkg/config"
	"github.com/calvertools/bumpver/pkg/vcs"
)

// initGitRepo creates a git repo in a tempdir and chdirs into it for the
// duration of the test. The vcs package operates on the current directory.
func initGitRepo(t *testing.T) string {
	t.Helper()
	ctx := dlog.NewTestContext(t, false)

	if _, err := dexec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	dir := t.TempDir()
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(oldWD))
	})

	for _, args := range [][]string{
		{"init", "--initial-branch", "main"},
		{"config", "user.name", "tester"},
		{"config", "user.email", "tester@example.com"},
	} {
		require.NoError(t, dexec.CommandContext(ctx, "git", args...).Run())
	}
	return dir
}

func commitFile(t *testing.T, name, content string) {
	t.Helper()
	ctx := dlog.NewTestContext(t, false)
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	require.NoError(t, dexec.CommandContext(ctx, "git", "add", name).Run())
	require.NoError(t, dexec.CommandContext(ctx, "git", "commit", "--message", "add "+name).Run())
}

func TestDetect(t *testing.T) {
	ctx := dlog.NewTestContext(t, false)
	initGitRepo(t)

	api, err := vcs.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "git", api.Name)
	assert.True(t, api.IsUsable(ctx))
	assert.False(t, api.HasRemote(ctx))
}

func TestDetectNoVCS(t *testing.T) {
	ctx := dlog.NewTestContext(t, false)

	dir := t.TempDir()
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(oldWD))
	})

	_, err = vcs.Detect(ctx)
	assert.ErrorIs(t, err, vcs.ErrNoVCS)
	assert.Nil(t, vcs.Tags(ctx, false, config.TagScopeDefault))
}

func TestStatus(t *testing.T) {
	ctx := dlog.NewTestContext(t, false)
	initGitRepo(t)
	commitFile(t, "setup.cfg", "[bumpver]\n")

	api, err := vcs.Detect(ctx)
	require.NoError(t, err)

	dirty, err := api.Status(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, dirty)

	require.NoError(t, os.WriteFile("setup.cfg", []byte("[bumpver]\ncommit = true\n"), 0o644))
	require.NoError(t, os.WriteFile("untracked.txt", []byte("x\n"), 0o644))

	dirty, err = api.Status(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"setup.cfg"}, dirty)

	// untracked files only count when they are pattern files
	dirty, err = api.Status(ctx, map[string]bool{"untracked.txt": true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"setup.cfg", "untracked.txt"}, dirty)
}

func TestAssertNotDirty(t *testing.T) {
	ctx := dlog.NewTestContext(t, false)
	initGitRepo(t)
	commitFile(t, "setup.cfg", "[bumpver]\n")

	api, err := vcs.Detect(ctx)
	require.NoError(t, err)

	require.NoError(t, vcs.AssertNotDirty(ctx, api, map[string]bool{"setup.cfg": true}, false))

	require.NoError(t, os.WriteFile("README.md", []byte("# readme\n"), 0o644))
	commitFile(t, "README.md", "# readme\n")
	require.NoError(t, os.WriteFile("README.md", []byte("# changed\n"), 0o644))

	err = vcs.AssertNotDirty(ctx, api, map[string]bool{"setup.cfg": true}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uncommitted changes")

	// allow_dirty tolerates dirty files that are not pattern files
	require.NoError(t, vcs.AssertNotDirty(ctx, api, map[string]bool{"setup.cfg": true}, true))

	// but never dirty pattern files
	err = vcs.AssertNotDirty(ctx, api, map[string]bool{"README.md": true}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern files are dirty")
}

func TestCommitAndTag(t *testing.T) {
	ctx := dlog.NewTestContext(t, false)
	initGitRepo(t)
	commitFile(t, "version.txt", "2020.1001\n")

	api, err := vcs.Detect(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile("version.txt", []byte("2020.1002\n"), 0o644))

	cfg := &config.Config{Commit: true, Tag: true, Push: false}
	err = vcs.CommitAndTag(ctx, cfg, api, []string{"version.txt"},
		"2020.1002", "2020.1002", "bump version to 2020.1002")
	require.NoError(t, err)

	dirty, err := api.Status(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, dirty)

	tags, err := api.LsTags(ctx, config.TagScopeDefault)
	require.NoError(t, err)
	assert.Equal(t, []string{"2020.1002"}, tags)

	tags, err = api.LsTags(ctx, config.TagScopeBranch)
	require.NoError(t, err)
	assert.Equal(t, []string{"2020.1002"}, tags)

	out, err := dexec.CommandContext(ctx, "git", "log", "-1", "--format=%s").Output()
	require.NoError(t, err)
	assert.Equal(t, "bump version to 2020.1002", string(out[:len(out)-1]))
}

// Package vcs is a minimal Git and Mercurial API.
//
// Where terminology for similar concepts differs between git and mercurial,
// the git terms are used. For example "fetch" (git) instead of "pull" (hg).
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/datawire/dlib/dexec"
	"github.com/datawire/dlib/dlog"

	"github.com/calvertools/bumpver/pkg/config"
)

// API invokes the subcommands of a version control system.
type API struct {
	Name string // "git" or "hg"
}

var vcsNames = []string{"git", "hg"}

// ErrNoVCS indicates that the working directory is neither a git nor a
// mercurial repository.
var ErrNoVCS = errors.New("no such directory .git/ or .hg/")

func (api *API) String() string {
	return fmt.Sprintf("vcs.API(%q)", api.Name)
}

func (api *API) run(ctx context.Context, env []string, args ...string) (string, error) {
	cmd := dexec.CommandContext(ctx, api.Name, args...)
	if env != nil {
		cmd.Env = env
	}
	out, err := cmd.Output()
	if err != nil {
		var exitErr *dexec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s %s: %w: %s",
				api.Name, strings.Join(args, " "), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

// IsUsable reports whether the current directory is a repository of this
// VCS and the VCS tooling is installed.
func (api *API) IsUsable(ctx context.Context) bool {
	if _, err := os.Stat("." + api.Name); err != nil {
		return false
	}
	var args []string
	if api.Name == "git" {
		args = []string{"rev-parse", "--git-dir"}
	} else {
		args = []string{"root"}
	}
	return dexec.CommandContext(ctx, api.Name, args...).Run() == nil
}

// HasRemote reports whether a remote origin is configured.
func (api *API) HasRemote(ctx context.Context) bool {
	var out string
	var err error
	if api.Name == "git" {
		out, err = api.run(ctx, nil, "config", "--get", "remote.origin.url")
	} else {
		out, err = api.run(ctx, nil, "paths")
	}
	return err == nil && strings.TrimSpace(out) != ""
}

// Fetch fetches tags and updates from the remote origin, if there is one.
func (api *API) Fetch(ctx context.Context) error {
	if !api.HasRemote(ctx) {
		return nil
	}
	var err error
	if api.Name == "git" {
		_, err = api.run(ctx, nil, "fetch")
	} else {
		_, err = api.run(ctx, nil, "pull")
	}
	return err
}

// Status returns the paths of dirty files. Untracked files are only
// included if they are in requiredFiles.
func (api *API) Status(ctx context.Context, requiredFiles map[string]bool) ([]string, error) {
	var out string
	var err error
	if api.Name == "git" {
		out, err = api.run(ctx, nil, "status", "--porcelain")
	} else {
		out, err = api.run(ctx, nil, "status", "-umard")
	}
	if err != nil {
		return nil, err
	}

	var dirty []string
	for _, line := range strings.Split(out, "\n") {
		status, path, found := strings.Cut(strings.TrimSpace(line), " ")
		if !found {
			continue
		}
		path = strings.TrimSpace(path)
		if requiredFiles[path] || status != "??" {
			dirty = append(dirty, path)
		}
	}
	return dirty, nil
}

// LsTags lists the tags of the repository. With TagScopeBranch only tags
// reachable from HEAD are listed; mercurial tags are always repo wide.
func (api *API) LsTags(ctx context.Context, scope config.TagScope) ([]string, error) {
	var out string
	var err error
	if api.Name == "git" {
		args := []string{"tag", "--list"}
		if scope == config.TagScopeBranch {
			args = append(args, "--merged", "HEAD")
		}
		out, err = api.run(ctx, nil, args...)
	} else {
		out, err = api.run(ctx, nil, "tags")
	}
	if err != nil {
		return nil, err
	}
	dlog.Debugf(ctx, "ls_tags output %q", out)

	var tags []string
	for _, line := range strings.Split(out, "\n") {
		tag, _, _ := strings.Cut(strings.TrimSpace(line), " ")
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// Add stages a tracked file for the next commit.
func (api *API) Add(ctx context.Context, path string) error {
	var err error
	if api.Name == "git" {
		_, err = api.run(ctx, nil, "add", "--update", path)
	} else {
		_, err = api.run(ctx, nil, "add", path)
		if err != nil && strings.Contains(err.Error(), "already tracked!") {
			err = nil
		}
	}
	return err
}

// Commit commits the staged files.
func (api *API) Commit(ctx context.Context, message string) error {
	dlog.Infof(ctx, "%s commit --message '%s'", api.Name, message)
	if api.Name == "git" {
		_, err := api.run(ctx, nil, "commit", "--message", message)
		return err
	}

	// hg reads the message from a logfile so that the encoding is under
	// our control.
	tmpFile, err := os.CreateTemp("", "bumpver-commit-msg-")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.WriteString(message); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	env := append(os.Environ(), "HGENCODING=utf-8")
	_, err = api.run(ctx, env, "commit", "--logfile", tmpFile.Name())
	return err
}

// Tag creates an annotated tag.
func (api *API) Tag(ctx context.Context, tagName, tagMessage string) error {
	dlog.Infof(ctx, "%s tag %s", api.Name, tagName)
	var err error
	if api.Name == "git" {
		_, err = api.run(ctx, nil, "tag", "--annotate", tagName, "--message", tagMessage)
	} else {
		_, err = api.run(ctx, nil, "tag", tagName, "--message", tagMessage)
	}
	return err
}

// Push pushes the commit and tag to the remote origin, if there is one.
func (api *API) Push(ctx context.Context, tagName string) error {
	if !api.HasRemote(ctx) {
		return nil
	}
	dlog.Infof(ctx, "%s push %s", api.Name, tagName)
	var err error
	if api.Name == "git" {
		_, err = api.run(ctx, nil, "push", "origin", "--follow-tags", tagName, "HEAD")
	} else {
		_, err = api.run(ctx, nil, "push", tagName)
	}
	return err
}

// Detect returns the API for the VCS of the current directory.
func Detect(ctx context.Context) (*API, error) {
	for _, name := range vcsNames {
		api := &API{Name: name}
		if api.IsUsable(ctx) {
			return api, nil
		}
	}
	return nil, ErrNoVCS
}

// AssertNotDirty errors if the working directory has uncommitted changes.
// With allowDirty only dirty files that are version pattern files are
// fatal.
func AssertNotDirty(ctx context.Context, api *API, filePaths map[string]bool, allowDirty bool) error {
	dirtyFiles, err := api.Status(ctx, filePaths)
	if err != nil {
		return err
	}
	if len(dirtyFiles) > 0 {
		dlog.Warnf(ctx, "%s working directory is not clean. Uncommitted file(s):", api.Name)
		for _, dirtyFile := range dirtyFiles {
			dlog.Warnf(ctx, "    %s", dirtyFile)
		}
		if !allowDirty {
			return fmt.Errorf("uncommitted changes in working directory")
		}
	}

	var dirtyPatternFiles []string
	for _, dirtyFile := range dirtyFiles {
		if filePaths[dirtyFile] {
			dirtyPatternFiles = append(dirtyPatternFiles, dirtyFile)
		}
	}
	if len(dirtyPatternFiles) > 0 {
		dlog.Errorf(ctx, "not committing when pattern files are dirty:")
		for _, dirtyFile := range dirtyPatternFiles {
			dlog.Warnf(ctx, "    %s", dirtyFile)
		}
		return fmt.Errorf("pattern files are dirty: %s", strings.Join(dirtyPatternFiles, ", "))
	}
	return nil
}

// CommitAndTag runs the add/commit/tag/push flow as enabled by the config.
func CommitAndTag(
	ctx context.Context,
	cfg *config.Config,
	api *API,
	filePaths []string,
	tagName, tagMessage, commitMessage string,
) error {
	if cfg.Commit {
		for _, filePath := range filePaths {
			if err := api.Add(ctx, filePath); err != nil {
				return err
			}
		}
		if err := api.Commit(ctx, commitMessage); err != nil {
			return err
		}
	}
	if cfg.Commit && cfg.Tag {
		if err := api.Tag(ctx, tagName, tagMessage); err != nil {
			return err
		}
	}
	if cfg.Commit && cfg.Push {
		if err := api.Push(ctx, tagName); err != nil {
			return err
		}
	}
	return nil
}

// Tags lists the repo's version tags, fetching from the remote first
// unless told not to. Outside of a repository it returns nil.
func Tags(ctx context.Context, fetch bool, scope config.TagScope) []string {
	api, err := Detect(ctx)
	if err != nil {
		dlog.Debugf(ctx, "no vcs found")
		return nil
	}
	dlog.Debugf(ctx, "vcs found: %s", api.Name)
	if fetch {
		dlog.Infof(ctx, "fetching tags from remote (to turn off use: -n / --no-fetch)")
		if err := api.Fetch(ctx); err != nil {
			dlog.Warnf(ctx, "failed to fetch tags: %v", err)
		}
	}
	tags, err := api.LsTags(ctx, scope)
	if err != nil {
		dlog.Warnf(ctx, "failed to list tags: %v", err)
		return nil
	}
	return tags
}

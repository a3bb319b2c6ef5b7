package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/calvertools/bumpver/pkg/cliutil"
	"github.com/calvertools/bumpver/pkg/config"
	"github.com/calvertools/bumpver/pkg/hooks"
	"github.com/calvertools/bumpver/pkg/pep440"
	"github.com/calvertools/bumpver/pkg/rewrite"
	"github.com/calvertools/bumpver/pkg/vcs"
	"github.com/calvertools/bumpver/pkg/version"
)

func init() {
	var flags struct {
		versionFlags
		Dry           bool
		Fetch         bool
		AllowDirty    bool
		CommitMessage string
		Commit        bool
		TagCommit     bool
		Push          bool
	}

	cmd := &cobra.Command{
		Use:   "update [flags]",
		Short: "Update project files with the incremented version string",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var commit, tagCommit, push *bool
			if cmd.Flags().Changed("commit") {
				commit = &flags.Commit
			}
			if cmd.Flags().Changed("tag-commit") {
				tagCommit = &flags.TagCommit
			}
			if cmd.Flags().Changed("push") {
				push = &flags.Push
			}
			if noFetch, _ := cmd.Flags().GetBool("no-fetch"); noFetch {
				flags.Fetch = false
			}
			return runUpdate(cmd.Context(), &flags.versionFlags, updateOptions{
				Dry:           flags.Dry,
				Fetch:         flags.Fetch,
				AllowDirty:    flags.AllowDirty,
				CommitMessage: flags.CommitMessage,
				Commit:        commit,
				TagCommit:     tagCommit,
				Push:          push,
			})
		},
	}

	addVersionFlags(cmd.Flags(), &flags.versionFlags)
	cmd.Flags().BoolVarP(&flags.Dry, "dry", "d", false,
		"Display diff of changes, don't rewrite files.")
	cmd.Flags().BoolVarP(&flags.Fetch, "fetch", "f", true,
		"Sync tags from remote origin. Disable with --fetch=false (or -n).")
	cmd.Flags().BoolVarP(&flags.AllowDirty, "allow-dirty", "", false,
		"Commit even when the working directory has uncommitted changes. "+
			"(WARNING: The commit will still be aborted if there are uncommitted "+
			"changes to files with version strings.)")
	cmd.Flags().StringVarP(&flags.CommitMessage, "commit-message", "c", "",
		"Set commit message template.")
	cmd.Flags().BoolVar(&flags.Commit, "commit", false,
		"Create a commit with all updated files.")
	cmd.Flags().BoolVar(&flags.TagCommit, "tag-commit", false,
		"Tag the newly created commit.")
	cmd.Flags().BoolVar(&flags.Push, "push", false,
		"Push to the default remote.")
	cmd.Flags().BoolP("no-fetch", "n", false, "Don't sync tags from remote origin.")

	argparser.AddCommand(cmd)
}

type updateOptions struct {
	Dry           bool
	Fetch         bool
	AllowDirty    bool
	CommitMessage string
	Commit        *bool
	TagCommit     *bool
	Push          *bool
}

// applyVCSOptions overrides the configured commit/tag/push settings with
// the command line flags.
func applyVCSOptions(cfg *config.Config, opts updateOptions) error {
	if opts.Commit != nil && !*opts.Commit {
		if opts.TagCommit != nil && *opts.TagCommit {
			return errors.New("--no-commit and --tag-commit cannot be used at the same time")
		}
		if opts.Push != nil && *opts.Push {
			return errors.New("--no-commit and --push cannot be used at the same time")
		}
	}
	if opts.Commit != nil {
		cfg.Commit = *opts.Commit
	}
	if !cfg.Commit && opts.TagCommit != nil && *opts.TagCommit {
		return errors.New("--tag-commit requires either --commit or commit=true in your config")
	}
	if !cfg.Commit && opts.Push != nil && *opts.Push {
		return errors.New("--push requires either --commit or commit=true in your config")
	}
	if opts.TagCommit != nil {
		cfg.Tag = *opts.TagCommit
	}
	if opts.Push != nil {
		cfg.Push = *opts.Push
	}
	return nil
}

// latestVCSVersionTag returns the newest tag that matches the version
// pattern, or "" if there is none.
func latestVCSVersionTag(ctx context.Context, cfg *config.Config, fetch bool) string {
	allTags := vcs.Tags(ctx, fetch, cfg.TagScope)

	var versionTags []string
	for _, tag := range allTags {
		if version.IsValid(tag, cfg.VersionPattern) {
			versionTags = append(versionTags, tag)
		}
	}
	if len(versionTags) == 0 {
		return ""
	}
	sort.Slice(versionTags, func(i, j int) bool {
		return pep440.Compare(versionTags[i], versionTags[j]) > 0
	})
	head := versionTags
	if len(head) > 3 {
		head = head[:3]
	}
	dlog.Debugf(ctx, "found tags: %v ... (%d in total)", head, len(versionTags))
	return versionTags[0]
}

// updateCfgFromVCS bumps cfg.CurrentVersion to the latest VCS version tag
// if that tag is newer than the version in the working directory.
func updateCfgFromVCS(ctx context.Context, cfg *config.Config, fetch bool) {
	latestTag := latestVCSVersionTag(ctx, cfg, fetch)
	if latestTag == "" {
		dlog.Debugf(ctx, "no vcs tags found")
		return
	}
	if pep440.Compare(latestTag, cfg.CurrentVersion) <= 0 {
		// current_version already up to date
		return
	}
	dlog.Infof(ctx, "Working dir version        : %s", cfg.CurrentVersion)
	dlog.Infof(ctx, "Latest version from VCS tag: %s", latestTag)
	cfg.CurrentVersion = latestTag
	cfg.PEP440Version = pep440.Normalize(latestTag)
}

func doUpdate(
	ctx context.Context,
	cfg *config.Config,
	newVersion, tagMessage, commitMessage string,
	allowDirty bool,
) error {
	var vcsAPI *vcs.API
	if cfg.Commit {
		var err error
		vcsAPI, err = vcs.Detect(ctx)
		if err != nil {
			dlog.Warnf(ctx, "Version Control System not found, skipping commit.")
		}
	}

	filePaths := make([]string, 0, len(cfg.FilePatterns))
	filePathSet := make(map[string]bool, len(cfg.FilePatterns))
	for _, fp := range cfg.FilePatterns {
		filePaths = append(filePaths, fp.Path)
		filePathSet[fp.Path] = true
	}

	if vcsAPI != nil {
		if err := vcs.AssertNotDirty(ctx, vcsAPI, filePathSet, allowDirty); err != nil {
			return err
		}
	}

	if cfg.PreCommitHook != "" {
		if err := hooks.Run(ctx, cfg.PreCommitHook, cfg.CurrentVersion, newVersion); err != nil {
			return err
		}
	}

	newVinfo, err := version.Parse(newVersion, cfg.VersionPattern)
	if err != nil {
		return err
	}
	if err := rewrite.RewriteFiles(ctx, cfg.FilePatterns, newVinfo); err != nil {
		return err
	}

	if vcsAPI != nil {
		err := vcs.CommitAndTag(ctx, cfg, vcsAPI, filePaths, newVersion, tagMessage, commitMessage)
		if err != nil {
			return err
		}
	}

	if cfg.PostCommitHook != "" {
		if err := hooks.Run(ctx, cfg.PostCommitHook, cfg.CurrentVersion, newVersion); err != nil {
			return err
		}
	}
	return nil
}

func runUpdate(ctx context.Context, vflags *versionFlags, opts updateOptions) error {
	_, cfg, err := config.Init(ctx, ".", false)
	if err != nil {
		return fmt.Errorf("could not parse configuration: %w", err)
	}

	if err := applyVCSOptions(cfg, opts); err != nil {
		return err
	}
	updateCfgFromVCS(ctx, cfg, opts.Fetch)

	oldVersion := cfg.CurrentVersion
	newVersion := vflags.SetVersion
	if newVersion == "" {
		newVersion, err = incrDispatch(ctx, oldVersion, cfg.VersionPattern, vflags)
		if errors.Is(err, version.ErrNoChange) {
			logNoChange(ctx, "update", cfg.VersionPattern)
			return err
		}
		if err != nil {
			return err
		}
	}

	if err := checkNewVersion(cfg.VersionPattern, oldVersion, newVersion); err != nil {
		if vflags.SetVersion != "" {
			return fmt.Errorf("invalid argument --set-version=%q: %w", vflags.SetVersion, err)
		}
		return err
	}

	dlog.Infof(ctx, "Old Version: %s", oldVersion)
	dlog.Infof(ctx, "New Version: %s", newVersion)

	if opts.Dry || verbosity >= 2 {
		if err := printDiff(ctx, cfg, newVersion); err != nil {
			return err
		}
	}
	if opts.Dry {
		return nil
	}

	commitMsgTemplate := cfg.CommitMessage
	if opts.CommitMessage != "" {
		commitMsgTemplate = reCommitMessageShorthand.ReplaceAllString(
			opts.CommitMessage, "{${1}_VERSION}")
	}
	commitMessage := renderCommitMessage(commitMsgTemplate, oldVersion, newVersion)
	tagMessage := renderCommitMessage(cfg.TagMessage, oldVersion, newVersion)

	return doUpdate(ctx, cfg, newVersion, tagMessage, commitMessage, opts.AllowDirty)
}

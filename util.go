package main

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/datawire/dlib/dlog"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/calvertools/bumpver/pkg/config"
	"github.com/calvertools/bumpver/pkg/patterns"
	"github.com/calvertools/bumpver/pkg/pep440"
	"github.com/calvertools/bumpver/pkg/regexfmt"
	"github.com/calvertools/bumpver/pkg/rewrite"
	"github.com/calvertools/bumpver/pkg/version"
)

// versionFlags are the flags shared by `bumpver update` and `bumpver test`
// that control how the version is incremented.
type versionFlags struct {
	Major         bool
	Minor         bool
	Patch         bool
	Tag           string
	TagNum        bool
	PinIncrements bool
	PinDate       bool
	Date          string
	SetVersion    string
}

func addVersionFlags(fs *pflag.FlagSet, flags *versionFlags) {
	fs.BoolVar(&flags.Major, "major", false,
		"Increment MAJOR component.")
	fs.BoolVarP(&flags.Minor, "minor", "m", false,
		"Increment MINOR component.")
	fs.BoolVarP(&flags.Patch, "patch", "p", false,
		"Increment PATCH component.")
	fs.StringVarP(&flags.Tag, "tag", "t", "",
		"Override release tag of current_version. Valid options are: "+
			strings.Join(version.ValidReleaseTags, ", ")+".")
	fs.BoolVar(&flags.TagNum, "tag-num", false,
		"Increment release tag number (rc1, rc2, rc3..).")
	fs.BoolVar(&flags.PinIncrements, "pin-increments", false,
		"Leave the auto-increments INC0 and INC1 unchanged.")
	fs.BoolVar(&flags.PinDate, "pin-date", false,
		"Leave date components unchanged.")
	fs.StringVar(&flags.Date, "date", "",
		"Set explicit date in format YYYY-0M-0D (e.g. "+time.Now().Format("2006-01-02")+").")
	fs.StringVar(&flags.SetVersion, "set-version", "",
		"Set version explicitly.")
}

func (flags *versionFlags) incrOptions() (version.IncrOptions, error) {
	opts := version.IncrOptions{
		Major:         flags.Major,
		Minor:         flags.Minor,
		Patch:         flags.Patch,
		Tag:           flags.Tag,
		TagNum:        flags.TagNum,
		PinIncrements: flags.PinIncrements,
		PinDate:       flags.PinDate,
	}

	if flags.Tag != "" {
		valid := false
		for _, releaseTag := range version.ValidReleaseTags {
			if flags.Tag == releaseTag {
				valid = true
				break
			}
		}
		if !valid {
			return opts, fmt.Errorf(
				"invalid argument --tag=%s, valid arguments are: %s",
				flags.Tag, strings.Join(version.ValidReleaseTags, ", "))
		}
	}

	if flags.Date != "" {
		if flags.PinDate {
			return opts, fmt.Errorf(
				"can only use either --pin-date or --date=%q, not both", flags.Date)
		}
		date, err := time.Parse("2006-01-02", flags.Date)
		if err != nil {
			return opts, fmt.Errorf(
				"invalid parameter --date=%q, must match format YYYY-0M-0D", flags.Date)
		}
		opts.Date = &date
	}
	return opts, nil
}

// validateComponentFlags errors if --major/--minor/--patch name a component
// that the pattern doesn't have.
func validateComponentFlags(flags *versionFlags, rawPattern string) error {
	if flags.Major && !strings.Contains(rawPattern, "MAJOR") {
		return fmt.Errorf("flag --major is not applicable to pattern '%s'", rawPattern)
	}
	if flags.Minor && !strings.Contains(rawPattern, "MINOR") {
		return fmt.Errorf("flag --minor is not applicable to pattern '%s'", rawPattern)
	}
	if flags.Patch && !strings.Contains(rawPattern, "PATCH") {
		return fmt.Errorf("flag --patch is not applicable to pattern '%s'", rawPattern)
	}
	return nil
}

func incrDispatch(
	ctx context.Context, oldVersion, rawPattern string, flags *versionFlags,
) (string, error) {
	opts, err := flags.incrOptions()
	if err != nil {
		return "", err
	}
	if verbosity > 0 {
		if pat, err := patterns.Compile(rawPattern, ""); err == nil {
			dlog.Infof(ctx, "Using pattern %s", rawPattern)
			dlog.Infof(ctx, "regex = %s", regexfmt.GoExprRegex(pat.Regexp.String()))
		}
	}
	return version.Incr(ctx, oldVersion, rawPattern, opts)
}

func logNoChange(ctx context.Context, subcmd, versionPattern string) {
	isSemver := strings.Contains(versionPattern, "MAJOR") &&
		strings.Contains(versionPattern, "MINOR") &&
		strings.Contains(versionPattern, "PATCH")
	if isSemver {
		dlog.Warnf(ctx, "bumpver %s [--major/--minor/--patch] required for use with SemVer.", subcmd)
		return
	}
	var availableFlags []string
	for _, part := range []string{"MAJOR", "MINOR", "PATCH"} {
		if strings.Contains(versionPattern, part) {
			availableFlags = append(availableFlags, "--"+strings.ToLower(part))
		}
	}
	if len(availableFlags) > 0 {
		dlog.Infof(ctx, "Perhaps try: bumpver %s %s", subcmd, strings.Join(availableFlags, "/"))
	}
}

// checkNewVersion errors unless newVersion matches the pattern and is
// greater than oldVersion.
func checkNewVersion(rawPattern, oldVersion, newVersion string) error {
	if _, err := version.Parse(newVersion, rawPattern); err != nil {
		return fmt.Errorf("invalid version '%s' for pattern '%s'", newVersion, rawPattern)
	}
	if pep440.Compare(newVersion, oldVersion) <= 0 {
		return fmt.Errorf(
			"invariant violated: new version must be greater than old version"+
				" ('%s' > '%s' does not hold)", newVersion, oldVersion)
	}
	return nil
}

var (
	diffAddStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	diffDelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	diffHunkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	matchBoldStyle = lipgloss.NewStyle().Bold(true)
)

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func coloredDiff(diff string) string {
	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			// keep file headers uncolored
		case strings.HasPrefix(line, "+"):
			lines[i] = diffAddStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = diffDelStyle.Render(line)
		case strings.HasPrefix(line, "@"):
			lines[i] = diffHunkStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func printDiff(ctx context.Context, cfg *config.Config, newVersion string) error {
	oldVinfo, err := version.Parse(cfg.CurrentVersion, cfg.VersionPattern)
	if err != nil {
		return err
	}
	newVinfo, err := version.Parse(newVersion, cfg.VersionPattern)
	if err != nil {
		return err
	}
	diff, err := rewrite.Diff(ctx, oldVinfo, newVinfo, cfg.FilePatterns)
	if err != nil {
		return err
	}
	if stdoutIsTerminal() {
		diff = coloredDiff(diff)
	}
	fmt.Println(diff)
	return nil
}

// reCommitMessageShorthand turns the bare OLD/NEW words of a --commit-message
// argument into template placeholders.
var reCommitMessageShorthand = regexp.MustCompile(`\b(OLD|NEW)\b`)

func renderCommitMessage(template, oldVersion, newVersion string) string {
	replacements := [][2]string{
		{"{new_version}", newVersion},
		{"{old_version}", oldVersion},
		{"{NEW_VERSION}", newVersion},
		{"{OLD_VERSION}", oldVersion},
		{"{new_version_pep440}", pep440.Normalize(newVersion)},
		{"{old_version_pep440}", pep440.Normalize(oldVersion)},
	}
	message := template
	for _, repl := range replacements {
		message = strings.ReplaceAll(message, repl[0], repl[1])
	}
	return message
}

// Package rewrite updates version strings in project files, in place, while
// preserving the file's original line separators. Matching is span based so
// that multiple patterns on the same line never produce overlapping
// replacements.
package rewrite

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/datawire/dlib/dlog"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/calvertools/bumpver/pkg/patterns"
	"github.com/calvertools/bumpver/pkg/regexfmt"
	"github.com/calvertools/bumpver/pkg/version"
)

// FilePatterns associates a file path with the patterns expected to match
// somewhere in that file.
type FilePatterns struct {
	Path     string
	Patterns []*patterns.Pattern
}

// NoMatchError is returned when a configured pattern has no match in the
// content it is expected to appear in. The individual pattern problems are
// logged so that all of them surface at once, not just the first.
type NoMatchError struct {
	Msg string
}

func (e *NoMatchError) Error() string { return e.Msg }

// PatternMatch marks one occurrence of a version string in a file.
type PatternMatch struct {
	LineNo  int // zero based
	Line    string
	Pattern *patterns.Pattern
	Start   int
	End     int
	Match   string
}

type lineSpan struct {
	lineno, start, end int
}

func hasOverlap(needle lineSpan, haystack []lineSpan) bool {
	for _, span := range haystack {
		if span.lineno == needle.lineno && needle.start <= span.end && needle.end >= span.start {
			return true
		}
	}
	return false
}

// IterMatches finds all non-empty, non-overlapping matches of any pattern on
// any line. Earlier patterns win when spans overlap.
func IterMatches(lines []string, pats []*patterns.Pattern) []PatternMatch {
	var matches []PatternMatch
	var matchedSpans []lineSpan
	for _, pat := range pats {
		for lineno, line := range lines {
			loc := pat.Regexp.FindStringIndex(line)
			if loc == nil || loc[0] == loc[1] {
				continue
			}
			needle := lineSpan{lineno, loc[0], loc[1]}
			if !hasOverlap(needle, matchedSpans) {
				matches = append(matches, PatternMatch{
					LineNo:  lineno,
					Line:    line,
					Pattern: pat,
					Start:   loc[0],
					End:     loc[1],
					Match:   line[loc[0]:loc[1]],
				})
			}
			matchedSpans = append(matchedSpans, needle)
		}
	}
	return matches
}

// DetectLineSep picks the line separator used by content, defaulting to "\n"
// for single-line content.
func DetectLineSep(content string) string {
	switch {
	case strings.Contains(content, "\r\n"):
		return "\r\n"
	case strings.Contains(content, "\r"):
		return "\r"
	default:
		return "\n"
	}
}

// RewrittenFileData holds the line-wise content of a rewritten file.
type RewrittenFileData struct {
	Path     string
	LineSep  string
	OldLines []string
	NewLines []string
}

// RewriteLines replaces every pattern occurrence in oldLines with newVinfo
// formatted by the matched pattern. Every pattern must match at least once;
// if only some do, the likely cause is one pattern's match swallowing
// another's, and the rewrite is rejected rather than half applied.
func RewriteLines(ctx context.Context, pats []*patterns.Pattern, newVinfo version.VersionInfo, oldLines []string) ([]string, error) {
	foundPatterns := map[*patterns.Pattern]bool{}

	newLines := make([]string, len(oldLines))
	copy(newLines, oldLines)
	for _, match := range IterMatches(oldLines, pats) {
		foundPatterns[match.Pattern] = true
		replacement, err := version.Format(newVinfo, match.Pattern.NormalizedPattern)
		if err != nil {
			return nil, err
		}
		line := newLines[match.LineNo]
		newLines[match.LineNo] = line[:match.Start] + replacement + line[match.End:]
	}

	if len(foundPatterns) == len(pats) {
		return newLines, nil
	}

	if len(foundPatterns) > 0 {
		return nil, &NoMatchError{Msg: "possible greedy pattern, a pattern matched inside another pattern's match"}
	}
	for _, pat := range pats {
		if foundPatterns[pat] {
			continue
		}
		dlog.Errorf(ctx, "no match for pattern %q", pat.RawPattern)
		dlog.Errorf(ctx, "\n# %s\nregex = %s",
			regexfmt.Regex101URL(pat.Regexp.String()),
			regexfmt.GoExprRegex(pat.Regexp.String()))
	}
	return nil, &NoMatchError{Msg: "invalid pattern(s)"}
}

// RFDFromContent rewrites pattern occurrences in a file's content.
func RFDFromContent(ctx context.Context, pats []*patterns.Pattern, newVinfo version.VersionInfo, content string) (RewrittenFileData, error) {
	lineSep := DetectLineSep(content)
	oldLines := strings.Split(content, lineSep)
	newLines, err := RewriteLines(ctx, pats, newVinfo, oldLines)
	if err != nil {
		return RewrittenFileData{}, err
	}
	return RewrittenFileData{
		Path:     "<path>",
		LineSep:  lineSep,
		OldLines: oldLines,
		NewLines: newLines,
	}, nil
}

// IterRewritten reads each configured file and returns its rewritten data.
func IterRewritten(ctx context.Context, filePatterns []FilePatterns, newVinfo version.VersionInfo) ([]RewrittenFileData, error) {
	var rfds []RewrittenFileData
	for _, fp := range filePatterns {
		content, err := os.ReadFile(fp.Path)
		if err != nil {
			return nil, err
		}
		rfd, err := RFDFromContent(ctx, fp.Patterns, newVinfo, string(content))
		if err != nil {
			return nil, err
		}
		rfd.Path = fp.Path
		rfds = append(rfds, rfd)
	}
	return rfds, nil
}

// DiffLines generates a unified diff of a rewritten file, with no trailing
// newlines on the individual lines.
func DiffLines(rfd RewrittenFileData) ([]string, error) {
	withEOL := func(lines []string) []string {
		out := make([]string, len(lines))
		for i, line := range lines {
			out[i] = line + "\n"
		}
		return out
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withEOL(rfd.OldLines),
		B:        withEOL(rfd.NewLines),
		FromFile: rfd.Path,
		ToFile:   rfd.Path,
		Context:  3,
	})
	if err != nil {
		return nil, err
	}
	diff = strings.TrimRight(diff, "\n")
	if diff == "" {
		return nil, nil
	}
	return strings.Split(diff, "\n"), nil
}

func patternsWithChange(oldVinfo, newVinfo version.VersionInfo, pats []*patterns.Pattern) (int, error) {
	count := 0
	for _, pat := range pats {
		oldStr, err := version.Format(oldVinfo, pat.RawPattern)
		if err != nil {
			return 0, err
		}
		newStr, err := version.Format(newVinfo, pat.RawPattern)
		if err != nil {
			return 0, err
		}
		if oldStr != newStr {
			count++
		}
	}
	return count, nil
}

// Diff generates the combined unified diff of all configured files. A file
// whose diff is empty even though its patterns would change is reported as
// an error, since that means the expected version string was not found.
func Diff(ctx context.Context, oldVinfo, newVinfo version.VersionInfo, filePatterns []FilePatterns) (string, error) {
	sorted := make([]FilePatterns, len(filePatterns))
	copy(sorted, filePatterns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var fullDiff strings.Builder
	for _, fp := range sorted {
		content, err := os.ReadFile(fp.Path)
		if err != nil {
			return "", err
		}
		rfd, err := RFDFromContent(ctx, fp.Patterns, newVinfo, string(content))
		if err != nil {
			var noMatch *NoMatchError
			if errors.As(err, &noMatch) {
				return "", &NoMatchError{Msg: "no patterns matched for file '" + fp.Path + "': " + noMatch.Msg}
			}
			return "", err
		}
		rfd.Path = fp.Path

		lines, err := DiffLines(rfd)
		if err != nil {
			return "", err
		}

		changed, err := patternsWithChange(oldVinfo, newVinfo, fp.Patterns)
		if err != nil {
			return "", err
		}
		if len(lines) == 0 && changed > 0 {
			return "", &NoMatchError{Msg: "no patterns matched for file '" + fp.Path + "'"}
		}

		fullDiff.WriteString(strings.Join(lines, "\n"))
		fullDiff.WriteString("\n")
	}
	return strings.TrimRight(fullDiff.String(), "\n"), nil
}

// RewriteFiles rewrites the configured files on disk with the new version.
func RewriteFiles(ctx context.Context, filePatterns []FilePatterns, newVinfo version.VersionInfo) error {
	rfds, err := IterRewritten(ctx, filePatterns, newVinfo)
	if err != nil {
		return err
	}
	for _, rfd := range rfds {
		newContent := strings.Join(rfd.NewLines, rfd.LineSep)
		if err := os.WriteFile(rfd.Path, []byte(newContent), 0o644); err != nil {
			return err
		}
	}
	return nil
}

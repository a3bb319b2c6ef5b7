package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/calvertools/bumpver/pkg/cliutil"
	"github.com/calvertools/bumpver/pkg/patterns"
	"github.com/calvertools/bumpver/pkg/regexfmt"
)

func init() {
	var flags struct {
		VersionPattern string
	}
	cmd := &cobra.Command{
		Use:   "grep [flags] PATTERN [FILE...]",
		Short: "Search file(s) for a version pattern",
		Args:  cliutil.WrapPositionalArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rawPattern := args[0]
			if strings.Contains(rawPattern, "{version}") ||
				strings.Contains(rawPattern, "{pep440_version}") {
				if flags.VersionPattern == "" {
					return fmt.Errorf("argument --version-pattern=<PATTERN> is required" +
						" for placeholders: {version}/{pep440_version}")
				}
			}

			pat, err := patterns.Compile(flags.VersionPattern, rawPattern)
			if err != nil {
				return err
			}

			files := args[1:]
			color := stdoutIsTerminal()

			matchCount := 0
			for _, filename := range files {
				var text string
				if filename == "-" {
					data, err := io.ReadAll(os.Stdin)
					if err != nil {
						return err
					}
					text = string(data)
				} else {
					data, err := os.ReadFile(filename)
					if err != nil {
						return err
					}
					text = string(data)
				}

				matches := grepText(pat, text, color)
				if len(matches) > 0 {
					if len(files) > 1 {
						fmt.Println(filename)
					}
					for _, match := range matches {
						fmt.Println(match)
					}
					fmt.Println()
				}
				matchCount += len(matches)
			}

			if matchCount == 0 {
				dlog.Errorf(ctx, "Pattern not found: '%s'", rawPattern)
			}
			if matchCount == 0 || verbosity > 0 {
				fmt.Println("# " + regexfmt.Regex101URL(pat.Regexp.String()))
				fmt.Println(regexfmt.GoExprRegex(pat.Regexp.String()))
				fmt.Println()
			}
			if matchCount == 0 {
				return fmt.Errorf("no match for pattern '%s'", rawPattern)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.VersionPattern, "version-pattern", "",
		"Pattern to use for placeholders: {version}/{pep440_version}")
	argparser.AddCommand(cmd)
}

// grepText returns the matches of pat in text, each with one line of
// context above and below and 1-based line number prefixes.
func grepText(pat *patterns.Pattern, text string, color bool) []string {
	allLines := strings.Split(strings.TrimRight(text, "\n"), "\n")

	var results []string
	for _, span := range pat.Regexp.FindAllStringIndex(text, -1) {
		matchStart, matchEnd := span[0], span[1]

		lineIdx := strings.Count(text[:matchStart], "\n")
		lineStart := strings.LastIndex(text[:matchStart], "\n") + 1
		lineEnd := strings.Index(text[matchEnd:], "\n")
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += matchEnd
		}

		matchedLine := text[lineStart:matchStart]
		if color {
			matchedLine += matchBoldStyle.Render(text[matchStart:matchEnd])
		} else {
			matchedLine += text[matchStart:matchEnd]
		}
		matchedLine += text[matchEnd:lineEnd]

		firstIdx := lineIdx - 1
		if firstIdx < 0 {
			firstIdx = 0
		}
		lastIdx := lineIdx + 2
		if lastIdx > len(allLines) {
			lastIdx = len(allLines)
		}
		lines := make([]string, lastIdx-firstIdx)
		copy(lines, allLines[firstIdx:lastIdx])
		lines[lineIdx-firstIdx] = matchedLine

		prefixed := make([]string, len(lines))
		for i, line := range lines {
			prefixed[i] = fmt.Sprintf("%4d: %s", firstIdx+i+1, line)
		}
		results = append(results, strings.Join(prefixed, "\n"))
	}
	return results
}

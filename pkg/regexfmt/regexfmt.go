// Package regexfmt renders compiled version regexes for humans, for use in
// error messages and debug output when a pattern does not match.
package regexfmt

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	reCloseParen = regexp.MustCompile(`([^\\])?\)(\?)?`)
	reOpenParen  = regexp.MustCompile(`([^\\])\(`)
	reDoubleEnd  = regexp.MustCompile(`(?m)^\)\)`)
)

// FormatRegex renders a regex with one group per line, indented by nesting
// depth. The result is for display only and is not itself a valid pattern.
func FormatRegex(regex string) (string, error) {
	if _, err := regexp.Compile(regex); err != nil {
		return "", err
	}

	tmp := strings.ReplaceAll(regex, " ", "[ ]")
	tmp = strings.ReplaceAll(tmp, `"`, `\"`)
	tmp = reCloseParen.ReplaceAllString(tmp, "${1})${2}\n")
	tmp = reOpenParen.ReplaceAllString(tmp, "${1}\n(")
	tmp = reDoubleEnd.ReplaceAllString(tmp, ")\n)")

	var indented []string
	level := 0
	for _, line := range strings.Split(tmp, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		increment := strings.Count(line, "(") - strings.Count(line, ")")
		if increment >= 0 {
			line = strings.Repeat("    ", level) + line
			level += increment
		} else {
			level += increment
			line = strings.Repeat("    ", level) + line
		}
		indented = append(indented, line)
	}
	return strings.Join(indented, "\n"), nil
}

// GoExprRegex renders a regex as the Go expression that would compile it.
func GoExprRegex(regex string) string {
	if !strings.Contains(regex, "`") {
		return "regexp.MustCompile(`" + regex + "`)"
	}
	return "regexp.MustCompile(" + strconv.Quote(regex) + ")"
}

const urlTemplate = "https://regex101.com/?flavor=golang&flags=gm&regex="

// Regex101URL builds a shareable regex101 link for debugging a pattern.
func Regex101URL(regex string) string {
	return urlTemplate + url.QueryEscape(regex)
}

// Package patterns composes regular expressions from version patterns.
//
// A version pattern is a small template language mixing literal text, typed
// placeholder tokens (YYYY, 0M, MAJOR, BUILD, TAG, ...) and nested optional
// segments marked with brackets:
//
//	vYYYY0M.BUILD[-TAG]
//
// Compile turns such a pattern into a regular expression with one named
// capture group per logical field, suitable both for validating a version
// string and for locating version strings inside project files.
package patterns

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Pattern is the compiled form of a (versionPattern, rawPattern) pair.
// Immutable after construction.
type Pattern struct {
	VersionPattern    string
	RawPattern        string
	NormalizedPattern string
	Regexp            *regexp.Regexp
}

// CompileError is a fatal configuration error: the pattern could not be
// turned into a valid regular expression.
type CompileError struct {
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Characters escaped so they are matched literally. Brackets and backslashes
// are semantic (optional-segment syntax) and stay untouched.
var patternEscapes = []struct{ char, escaped string }{
	{"-", `\-`},
	{".", `\.`},
	{"{", `\{`},
	{"}", `\}`},
	{"(", `\(`},
	{")", `\)`},
}

// Normalize resolves the {version} and {pep440_version} placeholders of a
// raw pattern using the canonical version pattern.
func Normalize(versionPattern, rawPattern string) string {
	normalized := rawPattern
	if strings.Contains(normalized, "{version}") {
		normalized = strings.ReplaceAll(normalized, "{version}", versionPattern)
	}
	if strings.Contains(normalized, "{pep440_version}") {
		normalized = strings.ReplaceAll(normalized, "{pep440_version}", convertToPEP440(versionPattern))
	}
	return normalized
}

var reUnescapedLBracket = regexp.MustCompile(`([^\\]|^)\[`)
var reUnescapedRBracket = regexp.MustCompile(`([^\\]|^)\]`)

// replaceBrackets translates unescaped [ and ] into non-capturing optional
// groups. The substitution runs in a fixed-point loop because a replacement
// consumes the character preceding the bracket, which can hide an adjacent
// bracket from the same pass.
func replaceBrackets(pattern string) string {
	for {
		next := reUnescapedLBracket.ReplaceAllString(pattern, "$1(?:")
		next = reUnescapedRBracket.ReplaceAllString(next, "$1)?")
		if next == pattern {
			return pattern
		}
		pattern = next
	}
}

type positionedToken struct {
	startIdx int
	endIdx   int
	nameLen  int
	fragment string
}

// scanTokens records every token occurrence in the escaped pattern together
// with its named-capture replacement fragment. Tokens are scanned in registry
// order; when a logical field occurs more than once, later occurrences get a
// disambiguating suffix on the group name.
func scanTokens(pattern string) []positionedToken {
	var positioned []positionedToken
	usedFields := map[string]bool{}

	for _, tok := range Tokens {
		endIdx := 0
		for {
			rel := strings.Index(pattern[endIdx:], tok.Name)
			if rel < 0 {
				break
			}
			startIdx := endIdx + rel

			var group string
			if usedFields[tok.Field] {
				group = fmt.Sprintf("(?P<%s_%d>%s)", tok.Field, len(usedFields), tok.Regex)
			} else {
				group = fmt.Sprintf("(?P<%s>%s)", tok.Field, tok.Regex)
			}
			usedFields[tok.Field] = true

			endIdx = startIdx + len(tok.Name)
			positioned = append(positioned, positionedToken{
				startIdx: startIdx,
				endIdx:   endIdx,
				nameLen:  len(tok.Name),
				fragment: group,
			})
		}
	}
	return positioned
}

// substituteTokens replaces token occurrences with their capture fragments.
// Occurrences are processed right before left, and longer token names before
// shorter ones, skipping any occurrence that overlaps a span substituted
// already (tracked via a watermark). This is what keeps a short token (MM)
// embedded in a longer one (say 0M at the same end position) from being
// mis-tokenized, without any backtracking.
func substituteTokens(pattern string) string {
	positioned := scanTokens(pattern)
	sort.Slice(positioned, func(i, j int) bool {
		if positioned[i].endIdx != positioned[j].endIdx {
			return positioned[i].endIdx > positioned[j].endIdx
		}
		return positioned[i].nameLen > positioned[j].nameLen
	})

	lastStartIdx := len(pattern) + 1
	result := pattern
	for _, pt := range positioned {
		if pt.endIdx <= lastStartIdx {
			result = result[:pt.startIdx] + pt.fragment + result[pt.endIdx:]
			lastStartIdx = pt.startIdx
		}
	}
	return result
}

func compileRegexp(normalizedPattern string) (*regexp.Regexp, error) {
	escaped := normalizedPattern
	for _, esc := range patternEscapes {
		escaped = strings.ReplaceAll(escaped, esc.char, esc.escaped)
	}
	patternStr := substituteTokens(replaceBrackets(escaped))

	regex, err := regexp.Compile(patternStr)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", patternStr, err)
	}
	return regex, nil
}

// Compile builds the Pattern of a (versionPattern, rawPattern) pair. The raw
// pattern may embed the version pattern via {version}/{pep440_version}; when
// it is empty the version pattern itself is used. Compilation is a pure
// function of its inputs; use a Cache to avoid recompiling hot pairs.
func Compile(versionPattern, rawPattern string) (*Pattern, error) {
	if rawPattern == "" {
		rawPattern = versionPattern
	}
	normalized := Normalize(versionPattern, rawPattern)
	regex, err := compileRegexp(normalized)
	if err != nil {
		return nil, &CompileError{Pattern: normalized, Err: err}
	}
	return &Pattern{
		VersionPattern:    versionPattern,
		RawPattern:        rawPattern,
		NormalizedPattern: normalized,
		Regexp:            regex,
	}, nil
}

// CompileAll compiles one Pattern per raw pattern, sharing versionPattern.
func CompileAll(versionPattern string, rawPatterns []string) ([]*Pattern, error) {
	compiled := make([]*Pattern, 0, len(rawPatterns))
	for _, rawPattern := range rawPatterns {
		pat, err := Compile(versionPattern, rawPattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, pat)
	}
	return compiled, nil
}

// Cache memoizes Compile keyed by the literal string pair. Compilation is
// pure, so the cache is insert-only and idempotent: recomputing an entry
// concurrently is at most a wasted compilation, never a correctness issue.
// The zero value is not usable; call NewCache.
type Cache struct {
	mu      sync.RWMutex
	entries map[[2]string]*Pattern
}

// NewCache returns an empty compile cache, safe for concurrent use.
func NewCache() *Cache {
	return &Cache{entries: make(map[[2]string]*Pattern)}
}

// Compile is like the package-level Compile but consults the cache first.
func (c *Cache) Compile(versionPattern, rawPattern string) (*Pattern, error) {
	key := [2]string{versionPattern, rawPattern}

	c.mu.RLock()
	pat, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return pat, nil
	}

	pat, err := Compile(versionPattern, rawPattern)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = pat
	c.mu.Unlock()
	return pat, nil
}

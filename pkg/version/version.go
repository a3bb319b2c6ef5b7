// Package version implements parsing, formatting and incrementing of
// version strings that encode calendar information (year, month, week,
// day-of-year) and/or numeric components (major/minor/patch, build id,
// release tag), as described by a version pattern.
//
// All operations are pure: a VersionInfo is never mutated in place, every
// transformation produces a new value, and every failure is returned as a
// typed error. The package never logs except for warning-class events in
// Incr, which go through dlog on the caller's context.
package version

import (
	"fmt"
	"time"
)

// Today returns the current UTC date. It is a variable so the test suite can
// pin it.
var Today = func() time.Time {
	return time.Now().UTC()
}

// CalendarInfo holds the calendar components of a version. Fields are nil
// when the pattern does not encode them. When derived from a concrete date,
// all nine fields are mutually consistent with that date under their
// respective calendar systems.
type CalendarInfo struct {
	YearY   *int // calendar year (YYYY/YY/0Y)
	YearG   *int // ISO 8601 week-based year (GGGG/GG/0G)
	Quarter *int
	Month   *int
	Dom     *int // day of month
	Doy     *int // day of year
	WeekW   *int // week number, Monday first day, week 0 before first Monday
	WeekU   *int // week number, Sunday first day, week 0 before first Sunday
	WeekV   *int // ISO 8601 week number
}

// VersionInfo is the canonical in-memory representation of a parsed version.
type VersionInfo struct {
	CalendarInfo

	Major int
	Minor int
	Patch int

	// BID is the build id, kept as a zero-padded decimal string and
	// manipulated via the lexid scheme so that string-lexical ordering
	// always matches generation order.
	BID string

	Tag     string // one of alpha/beta/dev/rc/post/final
	PyTag   string // PEP 440 counterpart of Tag
	GitHash string
	HexHash string

	Num  int // tag ordinal
	Inc0 int // zero-based counter, incremented on every bump
	Inc1 int // one-based counter, incremented on every bump
}

// TagByPEP440Tag maps a PEP 440 release tag to its canonical tag.
var TagByPEP440Tag = map[string]string{
	"a":    "alpha",
	"b":    "beta",
	"":     "final",
	"rc":   "rc",
	"dev":  "dev",
	"post": "post",
}

// PEP440TagByTag maps canonical (and tolerated alias) tags to PEP 440 tags.
// Every canonical tag maps to exactly one PEP 440 tag and round-tripping
// canonical -> pep440 -> canonical is the identity.
var PEP440TagByTag = map[string]string{
	"a":       "a",
	"b":       "b",
	"dev":     "dev",
	"alpha":   "a",
	"beta":    "b",
	"preview": "rc",
	"pre":     "rc",
	"rc":      "rc",
	"c":       "rc",
	"final":   "",
	"post":    "post",
	"r":       "post",
	"rev":     "post",
}

// ValidReleaseTags are the tag values accepted from user input.
var ValidReleaseTags = []string{"alpha", "beta", "rc", "post", "final"}

// fieldInitialValues are the values a field rolls over to when a field to
// its left in the pattern changed.
var fieldInitialValues = map[string]string{
	"major": "0",
	"minor": "0",
	"patch": "0",
	"num":   "0",
	"inc0":  "0",
	"inc1":  "1",
}

// PatternError reports a version string that does not match its pattern, or
// matches only partially. Recoverable by the caller for that single parse.
type PatternError struct {
	Version string
	Pattern string
	Msg     string
}

func (e *PatternError) Error() string { return e.Msg }

// DateFromDoy resolves a date from a year and a 1-indexed day of year.
func DateFromDoy(year, doy int) time.Time {
	return time.Date(year, time.January, doy, 0, 0, 0, 0, time.UTC)
}

// QuarterFromMonth computes the 1-indexed quarter of a 1-indexed month.
func QuarterFromMonth(month int) int {
	return ((month - 1) / 3) + 1
}

func intPtr(n int) *int { return &n }

// present reports whether a calendar field was set to a meaningful value.
// Like the reference implementation, zero counts as absent: week numbers of
// zero never participate in "do we have any calendar data" decisions.
func present(p *int) bool { return p != nil && *p != 0 }

func pep440TagFor(tag string) (string, error) {
	pytag, ok := PEP440TagByTag[tag]
	if !ok {
		return "", fmt.Errorf("invalid release tag %q", tag)
	}
	return pytag, nil
}

package version

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/datawire/dlib/dlog"

	"github.com/calvertools/bumpver/pkg/lexid"
	"github.com/calvertools/bumpver/pkg/patterns"
)

// ErrNoChange is returned by Incr when the formatted result equals the old
// version, which means the given flags cannot advance the pattern.
var ErrNoChange = errors.New("invalid arguments or pattern, version did not change")

// ErrTagNumWithoutTag is returned when a tag number bump is requested but
// neither the current version nor the flags carry a non-final tag.
var ErrTagNumWithoutTag = errors.New("non-final tag is needed to bump the tag number")

// IncrOptions control which parts of a version are bumped by Incr.
type IncrOptions struct {
	Major bool
	Minor bool
	Patch bool

	// Tag overrides the release tag. Empty means keep the current tag.
	Tag    string
	TagNum bool

	// PinIncrements keeps INC0/INC1 unchanged.
	PinIncrements bool
	// PinDate keeps the calendar parts of the old version instead of
	// updating them to the current date.
	PinDate bool
	// Date overrides the current date. Nil means Today().
	Date *time.Time
}

// IsValidWeekPattern reports whether the pattern combines a week number
// token with a year token of the matching calendar system. Monday and
// Sunday based week numbers (WW/UU) belong to the calendar year (YYYY),
// ISO week numbers (VV) belong to the ISO week-based year (GGGG).
func IsValidWeekPattern(rawPattern string) bool {
	return weekPatternError(rawPattern) == nil
}

func weekPatternError(rawPattern string) error {
	hasAny := func(parts ...string) bool {
		for _, p := range parts {
			if strings.Contains(rawPattern, p) {
				return true
			}
		}
		return false
	}
	hasYY := hasAny("YYYY", "YY", "0Y")
	hasWW := hasAny("WW", "0W", "UU", "0U")
	hasGG := hasAny("GGGG", "GG", "0G")
	hasVV := hasAny("VV", "0V")
	switch {
	case hasYY && hasVV:
		alt1 := strings.ReplaceAll(rawPattern, "V", "W")
		alt2 := strings.ReplaceAll(rawPattern, "Y", "G")
		return fmt.Errorf("invalid pattern %q, maybe try %q or %q", rawPattern, alt1, alt2)
	case hasGG && hasWW:
		alt1 := strings.ReplaceAll(strings.ReplaceAll(rawPattern, "W", "V"), "U", "V")
		alt2 := strings.ReplaceAll(rawPattern, "G", "Y")
		return fmt.Errorf("invalid pattern %q, maybe try %q or %q", rawPattern, alt1, alt2)
	}
	return nil
}

// patternFields lists the fields of a pattern in their order of appearance,
// which is the order the rollover pass considers them in.
func patternFields(rawPattern string) ([]string, error) {
	tree, err := patterns.ParseSegments(rawPattern)
	if err != nil {
		return nil, err
	}
	segs := flattenSegments(tree)

	type pos struct{ seg, idx int }
	fieldByPos := map[pos]string{}

	toks := make([]patterns.Token, len(patterns.Tokens))
	copy(toks, patterns.Tokens)
	sort.SliceStable(toks, func(i, j int) bool {
		return len(toks[i].Name) > len(toks[j].Name)
	})

	for segIdx, seg := range segs {
		for _, tok := range toks {
			if idx := strings.Index(seg, tok.Name); idx >= 0 {
				fieldByPos[pos{segIdx, idx}] = tok.Field
			}
		}
	}

	positions := make([]pos, 0, len(fieldByPos))
	for p := range fieldByPos {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].seg != positions[j].seg {
			return positions[i].seg < positions[j].seg
		}
		return positions[i].idx < positions[j].idx
	})

	fields := make([]string, 0, len(positions))
	for _, p := range positions {
		fields = append(fields, fieldByPos[p])
	}
	return fields, nil
}

func flattenSegments(tree patterns.SegmentTree) []string {
	var segs []string
	for _, seg := range tree {
		if seg.IsLiteral() {
			segs = append(segs, seg.Text)
		} else {
			segs = append(segs, flattenSegments(seg.Sub)...)
		}
	}
	return segs
}

// resetRolloverFields resets fields to the right of the leftmost changed
// field back to their initial values. Only fields with an initial value
// participate; the tag in particular survives a rollover.
func resetRolloverFields(rawPattern string, oldVinfo, curVinfo VersionInfo) (VersionInfo, error) {
	fields, err := patternFields(rawPattern)
	if err != nil {
		return curVinfo, err
	}

	hasReset := false
	for _, field := range fields {
		initial, hasInitial := fieldInitialValues[field]
		if hasReset && hasInitial {
			n, err := strconv.Atoi(initial)
			if err != nil {
				return curVinfo, err
			}
			switch field {
			case "major":
				curVinfo.Major = n
			case "minor":
				curVinfo.Minor = n
			case "patch":
				curVinfo.Patch = n
			case "num":
				curVinfo.Num = n
			case "inc0":
				curVinfo.Inc0 = n
			case "inc1":
				curVinfo.Inc1 = n
			}
		} else if !hasReset && fieldChanged(oldVinfo, curVinfo, field) {
			hasReset = true
		}
	}
	return curVinfo, nil
}

func fieldChanged(old, cur VersionInfo, field string) bool {
	oldVal, oldOK := fieldStr(old, field)
	curVal, curOK := fieldStr(cur, field)
	return oldOK != curOK || oldVal != curVal
}

// incrNumeric bumps the non-calendar parts. The build id is always bumped,
// after being padded so that lexid increments never truncate leading zeros.
func incrNumeric(rawPattern string, oldVinfo, curVinfo VersionInfo, opts IncrOptions) (VersionInfo, error) {
	if opts.Major {
		curVinfo.Major++
	}
	if opts.Minor {
		curVinfo.Minor++
	}
	if opts.Patch {
		curVinfo.Patch++
	}
	if opts.TagNum {
		curVinfo.Num++
	}
	if opts.Tag != "" {
		if opts.Tag != curVinfo.Tag {
			curVinfo.Num = 0
		}
		pytag, err := pep440TagFor(opts.Tag)
		if err != nil {
			return curVinfo, err
		}
		curVinfo.Tag = opts.Tag
		curVinfo.PyTag = pytag
	}

	if !opts.PinIncrements {
		curVinfo.Inc0++
		curVinfo.Inc1++
	}

	bidN, err := strconv.ParseInt(curVinfo.BID, 10, 64)
	if err != nil {
		return curVinfo, fmt.Errorf("invalid build id %q: %w", curVinfo.BID, err)
	}
	if bidN < 1000 {
		curVinfo.BID = strconv.FormatInt(bidN+1000, 10)
	}
	if curVinfo.BID, err = lexid.NextID(curVinfo.BID); err != nil {
		return curVinfo, err
	}

	return resetRolloverFields(rawPattern, oldVinfo, curVinfo)
}

// Incr parses oldVersion, applies the requested bumps and returns the newly
// formatted version string. The calendar parts are brought up to date first
// unless pinned. If the old version's calendar parts are ahead of the
// current date they are kept as is, with a warning on ctx.
func Incr(ctx context.Context, oldVersion, rawPattern string, opts IncrOptions) (string, error) {
	if err := weekPatternError(rawPattern); err != nil {
		return "", err
	}

	date := Today()
	if opts.Date != nil {
		date = *opts.Date
	}

	oldVinfo, err := Parse(oldVersion, rawPattern)
	if err != nil {
		return "", err
	}

	var curCinfo CalendarInfo
	if opts.PinDate {
		curCinfo = calInfoWithDefaults(oldVinfo, Today())
	} else {
		curCinfo = Calendar(date)
	}

	curVinfo := oldVinfo
	if calGT(oldVinfo.CalendarInfo, curCinfo) {
		dlog.Warnf(ctx, "old version appears to be from the future %q", oldVersion)
	} else {
		curVinfo.CalendarInfo = curCinfo
	}

	hasTagPart := curVinfo.Tag != "final"
	if opts.TagNum && opts.Tag == "" && !hasTagPart {
		return "", ErrTagNumWithoutTag
	}

	if curVinfo, err = incrNumeric(rawPattern, oldVinfo, curVinfo, opts); err != nil {
		return "", err
	}

	newVersion, err := Format(curVinfo, rawPattern)
	if err != nil {
		return "", err
	}
	if newVersion == "" || newVersion == oldVersion {
		return "", ErrNoChange
	}
	return newVersion, nil
}

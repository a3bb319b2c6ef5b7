package version

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/calvertools/bumpver/pkg/patterns"
)

// reFieldSuffix matches the disambiguation suffix appended to repeated
// capture group names during pattern compilation.
var reFieldSuffix = regexp.MustCompile(`_[0-9]+$`)

// Parse parses versionStr according to rawPattern.
//
// The match is anchored: the regex must match starting at the first byte and
// must consume the whole input, otherwise a *PatternError is returned.
func Parse(versionStr, rawPattern string) (VersionInfo, error) {
	pat, err := patterns.Compile(rawPattern, "")
	if err != nil {
		return VersionInfo{}, err
	}
	return ParseWithPattern(versionStr, pat)
}

// ParseWithPattern is Parse with an already compiled pattern.
func ParseWithPattern(versionStr string, pat *patterns.Pattern) (VersionInfo, error) {
	loc := pat.Regexp.FindStringSubmatchIndex(versionStr)
	if loc == nil || loc[0] != 0 {
		return VersionInfo{}, &PatternError{
			Version: versionStr,
			Pattern: pat.RawPattern,
			Msg: fmt.Sprintf(
				"invalid version string %q for pattern %q/%q",
				versionStr, pat.RawPattern, pat.Regexp.String(),
			),
		}
	}
	if loc[1] < len(versionStr) {
		return VersionInfo{}, &PatternError{
			Version: versionStr,
			Pattern: pat.RawPattern,
			Msg: fmt.Sprintf(
				"incomplete match %q for version string %q of pattern %q/%q",
				versionStr[loc[0]:loc[1]], versionStr, pat.RawPattern, pat.Regexp.String(),
			),
		}
	}

	fvals, err := fieldValues(versionStr, pat, loc)
	if err != nil {
		return VersionInfo{}, err
	}
	return versionInfoFromFields(fvals)
}

// fieldValues extracts the captured field values from a match. Suffixed
// duplicates of a field must agree with each other, otherwise the version
// string is internally inconsistent and parsing fails.
func fieldValues(versionStr string, pat *patterns.Pattern, loc []int) (map[string]string, error) {
	fvals := map[string]string{}
	for i, name := range pat.Regexp.SubexpNames() {
		if i == 0 || name == "" || loc[2*i] < 0 {
			continue
		}
		val := versionStr[loc[2*i]:loc[2*i+1]]
		if val == "" {
			continue
		}
		field := reFieldSuffix.ReplaceAllString(name, "")
		if prev, ok := fvals[field]; ok {
			if prev != val {
				return nil, &PatternError{
					Version: versionStr,
					Pattern: pat.RawPattern,
					Msg: fmt.Sprintf(
						"conflicting values %q and %q for field %q in version string %q",
						prev, val, field, versionStr,
					),
				}
			}
			continue
		}
		fvals[field] = val
	}
	return fvals, nil
}

func fieldInt(fvals map[string]string, field string) (*int, error) {
	val, ok := fvals[field]
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q for field %q: %w", val, field, err)
	}
	return &n, nil
}

func fieldIntDefault(fvals map[string]string, field string, def int) (int, error) {
	p, err := fieldInt(fvals, field)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return def, nil
	}
	return *p, nil
}

// calInfoFromFields assembles the calendar fields from parsed values,
// deriving the fields the pattern does not encode directly where possible.
func calInfoFromFields(fvals map[string]string) (CalendarInfo, error) {
	var cinfo CalendarInfo
	var err error
	if cinfo.YearY, err = fieldInt(fvals, "year_y"); err != nil {
		return cinfo, err
	}
	if cinfo.YearG, err = fieldInt(fvals, "year_g"); err != nil {
		return cinfo, err
	}
	if cinfo.Quarter, err = fieldInt(fvals, "quarter"); err != nil {
		return cinfo, err
	}
	if cinfo.Month, err = fieldInt(fvals, "month"); err != nil {
		return cinfo, err
	}
	if cinfo.Dom, err = fieldInt(fvals, "dom"); err != nil {
		return cinfo, err
	}
	if cinfo.Doy, err = fieldInt(fvals, "doy"); err != nil {
		return cinfo, err
	}
	if cinfo.WeekW, err = fieldInt(fvals, "week_w"); err != nil {
		return cinfo, err
	}
	if cinfo.WeekU, err = fieldInt(fvals, "week_u"); err != nil {
		return cinfo, err
	}
	if cinfo.WeekV, err = fieldInt(fvals, "week_v"); err != nil {
		return cinfo, err
	}

	// Two digit year fields are interpreted relative to the year 2000.
	if cinfo.YearY != nil && *cinfo.YearY < 1000 {
		cinfo.YearY = intPtr(*cinfo.YearY + 2000)
	}
	if cinfo.YearG != nil && *cinfo.YearG < 1000 {
		cinfo.YearG = intPtr(*cinfo.YearG + 2000)
	}

	if present(cinfo.YearY) && present(cinfo.Doy) {
		date := DateFromDoy(*cinfo.YearY, *cinfo.Doy)
		cinfo.Month = intPtr(int(date.Month()))
		cinfo.Dom = intPtr(date.Day())
	}

	var date *time.Time
	if present(cinfo.YearY) && present(cinfo.Month) && present(cinfo.Dom) {
		d := time.Date(*cinfo.YearY, time.Month(*cinfo.Month), *cinfo.Dom, 0, 0, 0, 0, time.UTC)
		date = &d
	}

	anySet := date != nil ||
		present(cinfo.YearY) || present(cinfo.YearG) ||
		present(cinfo.Month) || present(cinfo.Dom) || present(cinfo.Doy) ||
		present(cinfo.WeekW) || present(cinfo.WeekU) || present(cinfo.WeekV)
	if !anySet {
		d := Today()
		date = &d
	}

	if date != nil {
		// A full date pins every calendar field.
		return Calendar(*date), nil
	}

	if cinfo.Quarter == nil && present(cinfo.Month) {
		cinfo.Quarter = intPtr(QuarterFromMonth(*cinfo.Month))
	}
	return cinfo, nil
}

func versionInfoFromFields(fvals map[string]string) (VersionInfo, error) {
	cinfo, err := calInfoFromFields(fvals)
	if err != nil {
		return VersionInfo{}, err
	}

	vinfo := VersionInfo{
		CalendarInfo: cinfo,
		Tag:          fvals["tag"],
		PyTag:        fvals["pytag"],
		BID:          fvals["bid"],
		GitHash:      fvals["githash"],
		HexHash:      fvals["hexhash"],
	}

	// Tag and pytag are a bijection. One implies the other, and absence of
	// both means a final release.
	if vinfo.Tag != "" && vinfo.PyTag == "" {
		if vinfo.PyTag, err = pep440TagFor(vinfo.Tag); err != nil {
			return VersionInfo{}, err
		}
	} else if vinfo.PyTag != "" && vinfo.Tag == "" {
		tag, ok := TagByPEP440Tag[vinfo.PyTag]
		if !ok {
			return VersionInfo{}, fmt.Errorf("invalid pep440 tag %q", vinfo.PyTag)
		}
		vinfo.Tag = tag
	}
	if vinfo.Tag == "" {
		vinfo.Tag = "final"
	}
	if vinfo.BID == "" {
		vinfo.BID = "1000"
	}

	if vinfo.Major, err = fieldIntDefault(fvals, "major", 0); err != nil {
		return VersionInfo{}, err
	}
	if vinfo.Minor, err = fieldIntDefault(fvals, "minor", 0); err != nil {
		return VersionInfo{}, err
	}
	if vinfo.Patch, err = fieldIntDefault(fvals, "patch", 0); err != nil {
		return VersionInfo{}, err
	}
	if vinfo.Num, err = fieldIntDefault(fvals, "num", 0); err != nil {
		return VersionInfo{}, err
	}
	if vinfo.Inc0, err = fieldIntDefault(fvals, "inc0", 0); err != nil {
		return VersionInfo{}, err
	}
	if vinfo.Inc1, err = fieldIntDefault(fvals, "inc1", 1); err != nil {
		return VersionInfo{}, err
	}
	return vinfo, nil
}

// IsValid reports whether versionStr matches rawPattern.
func IsValid(versionStr, rawPattern string) bool {
	_, err := Parse(versionStr, rawPattern)
	return err == nil
}

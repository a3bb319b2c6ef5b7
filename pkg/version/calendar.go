package version

import "time"

// Calendar derives every calendar field from a concrete date.
//
// Week numbering follows the three common systems:
//   - WeekW counts weeks starting Monday, with the days before the year's
//     first Monday in week 0.
//   - WeekU counts weeks starting Sunday, with the days before the year's
//     first Sunday in week 0.
//   - WeekV is the ISO 8601 week number, which belongs to the week-based
//     year YearG rather than the calendar year YearY.
func Calendar(date time.Time) CalendarInfo {
	yearG, weekV := date.ISOWeek()
	doy := date.YearDay()
	month := int(date.Month())

	// time.Weekday is 0-indexed from Sunday. The week formulas want the
	// 1-indexed weekday under each system's first day.
	wdMon := int(date.Weekday())
	if wdMon == 0 {
		wdMon = 7
	}
	wdSun := int(date.Weekday()) + 1

	return CalendarInfo{
		YearY:   intPtr(date.Year()),
		YearG:   intPtr(yearG),
		Quarter: intPtr(QuarterFromMonth(month)),
		Month:   intPtr(month),
		Dom:     intPtr(date.Day()),
		Doy:     intPtr(doy),
		WeekW:   intPtr((doy + 7 - wdMon) / 7),
		WeekU:   intPtr((doy + 7 - wdSun) / 7),
		WeekV:   intPtr(weekV),
	}
}

// calInfoWithDefaults fills in the calendar fields of vinfo that are unset
// (or zero) from the given date, leaving set fields untouched. It is used to
// bring an old version's calendar data up to date before incrementing.
func calInfoWithDefaults(vinfo VersionInfo, date time.Time) CalendarInfo {
	defaults := Calendar(date)
	return CalendarInfo{
		YearY:   orInt(vinfo.YearY, defaults.YearY),
		YearG:   orInt(vinfo.YearG, defaults.YearG),
		Quarter: orInt(vinfo.Quarter, defaults.Quarter),
		Month:   orInt(vinfo.Month, defaults.Month),
		Dom:     orInt(vinfo.Dom, defaults.Dom),
		Doy:     orInt(vinfo.Doy, defaults.Doy),
		WeekW:   orInt(vinfo.WeekW, defaults.WeekW),
		WeekU:   orInt(vinfo.WeekU, defaults.WeekU),
		WeekV:   orInt(vinfo.WeekV, defaults.WeekV),
	}
}

func orInt(p, def *int) *int {
	if present(p) {
		return p
	}
	return def
}

// calGT reports whether left is strictly newer than right, comparing only
// the calendar fields both sides have set.
func calGT(left, right CalendarInfo) bool {
	pairs := [][2]*int{
		{left.YearY, right.YearY},
		{left.YearG, right.YearG},
		{left.Quarter, right.Quarter},
		{left.Month, right.Month},
		{left.Dom, right.Dom},
		{left.Doy, right.Doy},
		{left.WeekW, right.WeekW},
		{left.WeekU, right.WeekU},
		{left.WeekV, right.WeekV},
	}
	for _, p := range pairs {
		if p[0] == nil || p[1] == nil {
			continue
		}
		if *p[0] != *p[1] {
			return *p[0] > *p[1]
		}
	}
	return false
}

package version_test

import (
	"errors"
	"testing"
	"time"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvertools/bumpver/pkg/testutil"
	"github.com/calvertools/bumpver/pkg/version"
)

func pinToday(t *testing.T, date time.Time) {
	t.Helper()
	orig := version.Today
	version.Today = func() time.Time { return date }
	t.Cleanup(func() { version.Today = orig })
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendar(t *testing.T) {
	t.Parallel()
	type calvals struct {
		yearY, yearG, quarter, month, dom, doy, weekW, weekU, weekV int
	}
	testcases := map[string]struct {
		date time.Time
		want calvals
	}{
		"sat-before-first-monday": {date(2019, time.January, 5), calvals{2019, 2019, 1, 1, 5, 5, 0, 0, 1}},
		"first-sunday":            {date(2019, time.January, 6), calvals{2019, 2019, 1, 1, 6, 6, 0, 1, 1}},
		"first-monday":            {date(2019, time.January, 7), calvals{2019, 2019, 1, 1, 7, 7, 1, 1, 2}},
		"mid-year-sunday":         {date(2019, time.April, 7), calvals{2019, 2019, 2, 4, 7, 97, 13, 14, 14}},
		"iso-year-ahead":          {date(2007, time.December, 31), calvals{2007, 2008, 4, 12, 31, 365, 53, 52, 1}},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			c := version.Calendar(tc.date)
			got := calvals{
				*c.YearY, *c.YearG, *c.Quarter, *c.Month, *c.Dom,
				*c.Doy, *c.WeekW, *c.WeekU, *c.WeekV,
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("calver", func(t *testing.T) {
		t.Parallel()
		vinfo, err := version.Parse("v201712.0033-beta", "vYYYY0M.BUILD[-TAG]")
		require.NoError(t, err)
		assert.Equal(t, 2017, *vinfo.YearY)
		assert.Equal(t, 12, *vinfo.Month)
		assert.Equal(t, 4, *vinfo.Quarter)
		assert.Equal(t, "0033", vinfo.BID)
		assert.Equal(t, "beta", vinfo.Tag)
		assert.Equal(t, "b", vinfo.PyTag)
	})

	t.Run("tag-defaults-to-final", func(t *testing.T) {
		t.Parallel()
		vinfo, err := version.Parse("v201712.0033", "vYYYY0M.BUILD[-TAG]")
		require.NoError(t, err)
		assert.Equal(t, "final", vinfo.Tag)
		assert.Equal(t, "", vinfo.PyTag)
	})

	t.Run("pytag-implies-tag", func(t *testing.T) {
		t.Parallel()
		vinfo, err := version.Parse("201712.33b0", "YYYY0M.BLD[PYTAGNUM]")
		require.NoError(t, err)
		assert.Equal(t, "33", vinfo.BID)
		assert.Equal(t, "beta", vinfo.Tag)
		assert.Equal(t, "b", vinfo.PyTag)
		assert.Equal(t, 0, vinfo.Num)
	})

	t.Run("semver", func(t *testing.T) {
		t.Parallel()
		vinfo, err := version.Parse("1.23.456", "MAJOR.MINOR.PATCH")
		require.NoError(t, err)
		assert.Equal(t, 1, vinfo.Major)
		assert.Equal(t, 23, vinfo.Minor)
		assert.Equal(t, 456, vinfo.Patch)
		assert.Equal(t, "1000", vinfo.BID)
	})

	t.Run("short-year-is-y2k-relative", func(t *testing.T) {
		t.Parallel()
		vinfo, err := version.Parse("18.11", "YY.MM")
		require.NoError(t, err)
		assert.Equal(t, 2018, *vinfo.YearY)
		assert.Equal(t, 11, *vinfo.Month)
		assert.Equal(t, 4, *vinfo.Quarter)
	})

	t.Run("doy-derives-month-and-dom", func(t *testing.T) {
		t.Parallel()
		vinfo, err := version.Parse("2018d166", "YYYYd00J")
		require.NoError(t, err)
		assert.Equal(t, 6, *vinfo.Month)
		assert.Equal(t, 15, *vinfo.Dom)
		assert.Equal(t, 166, *vinfo.Doy)
	})

	t.Run("full-date-derives-weeks", func(t *testing.T) {
		t.Parallel()
		vinfo, err := version.Parse("2019-04-07", "YYYY-0M-0D")
		require.NoError(t, err)
		assert.Equal(t, 13, *vinfo.WeekW)
		assert.Equal(t, 14, *vinfo.WeekU)
		assert.Equal(t, 14, *vinfo.WeekV)
		assert.Equal(t, 2019, *vinfo.YearG)
	})

	t.Run("no-calendar-fields-uses-today", func(t *testing.T) {
		pinToday(t, date(2021, time.March, 5))
		vinfo, err := version.Parse("1.2.3", "MAJOR.MINOR.PATCH")
		require.NoError(t, err)
		assert.Equal(t, 2021, *vinfo.YearY)
		assert.Equal(t, 3, *vinfo.Month)
		assert.Equal(t, 5, *vinfo.Dom)
	})

	t.Run("unanchored-match-rejected", func(t *testing.T) {
		t.Parallel()
		_, err := version.Parse("v1.2.3", "MAJOR.MINOR.PATCH")
		var patErr *version.PatternError
		require.ErrorAs(t, err, &patErr)
		assert.Contains(t, patErr.Msg, "invalid version string")
	})

	t.Run("incomplete-match-rejected", func(t *testing.T) {
		t.Parallel()
		_, err := version.Parse("1.2.3-beta", "MAJOR.MINOR.PATCH")
		var patErr *version.PatternError
		require.ErrorAs(t, err, &patErr)
		assert.Contains(t, patErr.Msg, "incomplete match")
	})

	t.Run("repeated-fields-must-agree", func(t *testing.T) {
		t.Parallel()
		_, err := version.Parse("2017.2018", "YYYY.YYYY")
		var patErr *version.PatternError
		require.ErrorAs(t, err, &patErr)
		assert.Contains(t, patErr.Msg, "conflicting values")

		vinfo, err := version.Parse("2017.2017", "YYYY.YYYY")
		require.NoError(t, err)
		assert.Equal(t, 2017, *vinfo.YearY)
	})
}

func TestIsValid(t *testing.T) {
	t.Parallel()
	assert.True(t, version.IsValid("v201712.0033-beta", "vYYYY0M.BUILD[-TAG]"))
	assert.False(t, version.IsValid("v201712.0033-beta", "MAJOR.MINOR.PATCH"))
	assert.True(t, version.IsValid("1.2.3", "MAJOR.MINOR.PATCH"))
}

func TestFormat(t *testing.T) {
	t.Parallel()

	mustParse := func(t *testing.T, versionStr, rawPattern string) version.VersionInfo {
		t.Helper()
		vinfo, err := version.Parse(versionStr, rawPattern)
		require.NoError(t, err)
		return vinfo
	}

	t.Run("round-trip", func(t *testing.T) {
		t.Parallel()
		for _, tc := range []struct{ versionStr, rawPattern string }{
			{"v201712.0033-beta", "vYYYY0M.BUILD[-TAG]"},
			{"201712.33b0", "YYYY0M.BLD[PYTAGNUM]"},
			{"1.23.456", "MAJOR.MINOR.PATCH"},
			{"v1.0.2-rc3", "vMAJOR.MINOR.PATCH[-TAGNUM]"},
		} {
			vinfo := mustParse(t, tc.versionStr, tc.rawPattern)
			formatted, err := version.Format(vinfo, tc.rawPattern)
			require.NoError(t, err)
			assert.Equal(t, tc.versionStr, formatted)

			// parsing the formatted string must yield the same fields
			testutil.AssertEqualDump(t, vinfo, mustParse(t, formatted, tc.rawPattern))
		}
	})

	t.Run("cross-pattern", func(t *testing.T) {
		t.Parallel()
		vinfo := mustParse(t, "v2007-01-01.0033-beta", "vYYYY-0M-0D.BUILD[-TAG]")
		testcases := map[string]string{
			"vYY.BLD[-PYTAGNUM]":       "v7.33-b0",
			"YYYY0M.BUILD[PYTAG[NUM]]": "200701.0033b",
			"v0Y.BLD[-TAG]":            "v07.33-beta",
			"vYYYY0M.BUILD[-TAG]":      "v200701.0033-beta",
			"vYYYYw0W.BUILD[-TAG]":     "v2007w01.0033-beta",
			"vYYYYwWW.BLD[-TAG]":       "v2007w1.33-beta",
			"vYYYYd00J.BUILD[-TAG]":    "v2007d001.0033-beta",
			"vYYYYdJJJ.BUILD[-TAG]":    "v2007d1.0033-beta",
			"vGGGGwVV.BLD[PYTAGNUM]":   "v2007w1.33b0",
			"vGGGGw0V.BUILD[-TAG]":     "v2007w01.0033-beta",
		}
		for rawPattern, want := range testcases {
			formatted, err := version.Format(vinfo, rawPattern)
			require.NoError(t, err)
			assert.Equal(t, want, formatted, "pattern %q", rawPattern)
		}
	})

	t.Run("iso-year-rolls-ahead", func(t *testing.T) {
		t.Parallel()
		vinfo := mustParse(t, "v2007-12-31.0033-beta", "vYYYY-0M-0D.BUILD[-TAG]")
		formatted, err := version.Format(vinfo, "vGGGGw0V.BUILD[-TAG]")
		require.NoError(t, err)
		assert.Equal(t, "v2008w01.0033-beta", formatted)
	})

	t.Run("zero-elision", func(t *testing.T) {
		t.Parallel()
		final100 := mustParse(t, "v1.0.0", "vMAJOR.MINOR.PATCH")
		rc102 := mustParse(t, "v1.0.2-rc", "vMAJOR.MINOR.PATCH[-TAG]")
		rc100n2 := mustParse(t, "v1.0.0-rc2", "vMAJOR.MINOR.PATCH[-TAGNUM]")

		testcases := map[string]struct {
			vinfo      version.VersionInfo
			rawPattern string
			want       string
		}{
			"final-tag-required":   {final100, "vMAJOR.MINOR.PATCH-TAG", "v1.0.0-final"},
			"final-tag-elided":     {final100, "vMAJOR.MINOR.PATCH[-TAG]", "v1.0.0"},
			"zero-patch-elided":    {final100, "vMAJOR.MINOR[.PATCH[-TAG]]", "v1.0"},
			"all-zero-elided":      {final100, "vMAJOR[.MINOR[.PATCH[-TAG]]]", "v1"},
			"nonzero-keeps-left":   {rc102, "vMAJOR[.MINOR[.PATCH]]", "v1.0.2"},
			"nonzero-keeps-tag":    {rc102, "vMAJOR[.MINOR[.PATCH[-TAG]]]", "v1.0.2-rc"},
			"pytagnum-kept":        {rc102, "vMAJOR[.MINOR[.PATCH[PYTAGNUM]]]", "v1.0.2rc0"},
			"tagnum-kept":          {rc100n2, "vMAJOR[.MINOR[.PATCH[-TAGNUM]]]", "v1.0.0-rc2"},
			"surrounding-literals": {rc100n2, `__version__ = "vMAJOR[.MINOR[.PATCH[-TAGNUM]]]"`, `__version__ = "v1.0.0-rc2"`},
		}
		for tcName, tc := range testcases {
			tc := tc
			t.Run(tcName, func(t *testing.T) {
				t.Parallel()
				formatted, err := version.Format(tc.vinfo, tc.rawPattern)
				require.NoError(t, err)
				assert.Equal(t, tc.want, formatted)
			})
		}
	})
}

func TestIsValidWeekPattern(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		rawPattern string
		want       bool
	}{
		"iso-week-with-calendar-year": {"vYYYYwVV", false},
		"iso-week-with-iso-year":      {"vGGGGwVV", true},
		"monday-week-with-iso-year":   {"vGGGGwWW", false},
		"monday-week-calendar-year":   {"vYYYYwWW", true},
		"sunday-week-with-iso-year":   {"vGGGGw0U", false},
		"no-week-parts":               {"vYYYY0M.BUILD[-TAG]", true},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, version.IsValidWeekPattern(tc.rawPattern))
		})
	}
}

func TestIncr(t *testing.T) {
	t.Run("end-to-end-calver", func(t *testing.T) {
		d := date(2017, time.December, 31)
		ctx := dlog.NewTestContext(t, false)
		newVersion, err := version.Incr(ctx, "v201712.0033-beta", "vYYYY0M.BUILD[-TAG]",
			version.IncrOptions{Tag: "rc", Date: &d})
		require.NoError(t, err)
		assert.Equal(t, "v201712.1034-rc", newVersion)
	})

	t.Run("rollover-resets-right-of-change", func(t *testing.T) {
		pinToday(t, date(2021, time.March, 5))
		ctx := dlog.NewTestContext(t, false)
		newVersion, err := version.Incr(ctx, "1.2.3", "MAJOR.MINOR.PATCH",
			version.IncrOptions{Minor: true})
		require.NoError(t, err)
		assert.Equal(t, "1.3.0", newVersion)
	})

	t.Run("major-resets-minor-and-patch", func(t *testing.T) {
		pinToday(t, date(2021, time.March, 5))
		ctx := dlog.NewTestContext(t, false)
		newVersion, err := version.Incr(ctx, "1.2.3", "MAJOR.MINOR.PATCH",
			version.IncrOptions{Major: true})
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", newVersion)
	})

	t.Run("tag-change-resets-num", func(t *testing.T) {
		pinToday(t, date(2021, time.March, 5))
		ctx := dlog.NewTestContext(t, false)
		newVersion, err := version.Incr(ctx, "v1.0.0-beta2", "vMAJOR.MINOR.PATCH[-TAGNUM]",
			version.IncrOptions{Tag: "rc"})
		require.NoError(t, err)
		assert.Equal(t, "v1.0.0-rc0", newVersion)
	})

	t.Run("tag-num-bump", func(t *testing.T) {
		pinToday(t, date(2021, time.March, 5))
		ctx := dlog.NewTestContext(t, false)
		newVersion, err := version.Incr(ctx, "v1.0.0-rc0", "vMAJOR.MINOR.PATCH[-TAGNUM]",
			version.IncrOptions{TagNum: true})
		require.NoError(t, err)
		assert.Equal(t, "v1.0.0-rc1", newVersion)
	})

	t.Run("tag-num-requires-tag", func(t *testing.T) {
		pinToday(t, date(2021, time.March, 5))
		ctx := dlog.NewTestContext(t, false)
		_, err := version.Incr(ctx, "1.2.3", "MAJOR.MINOR.PATCH",
			version.IncrOptions{TagNum: true})
		assert.ErrorIs(t, err, version.ErrTagNumWithoutTag)
	})

	t.Run("calendar-is-updated", func(t *testing.T) {
		d := date(2018, time.January, 2)
		ctx := dlog.NewTestContext(t, false)
		newVersion, err := version.Incr(ctx, "v201712.0033", "vYYYY0M.BUILD",
			version.IncrOptions{Date: &d})
		require.NoError(t, err)
		assert.Equal(t, "v201801.1034", newVersion)
	})

	t.Run("pin-date-keeps-calendar", func(t *testing.T) {
		pinToday(t, date(2018, time.June, 1))
		ctx := dlog.NewTestContext(t, false)
		newVersion, err := version.Incr(ctx, "v201712.0033", "vYYYY0M.BUILD",
			version.IncrOptions{PinDate: true})
		require.NoError(t, err)
		assert.Equal(t, "v201712.1034", newVersion)
	})

	t.Run("version-from-future-is-kept", func(t *testing.T) {
		d := date(2017, time.June, 1)
		ctx := dlog.NewTestContext(t, false)
		newVersion, err := version.Incr(ctx, "v201812.0033", "vYYYY0M.BUILD",
			version.IncrOptions{Date: &d})
		require.NoError(t, err)
		assert.Equal(t, "v201812.1034", newVersion)
	})

	t.Run("pin-increments", func(t *testing.T) {
		pinToday(t, date(2021, time.March, 5))
		ctx := dlog.NewTestContext(t, false)

		bumped, err := version.Incr(ctx, "v3.2021", "vINC1.YYYY", version.IncrOptions{})
		require.NoError(t, err)
		assert.Equal(t, "v4.2021", bumped)

		_, err = version.Incr(ctx, "v3.2021", "vINC1.YYYY", version.IncrOptions{PinIncrements: true})
		assert.ErrorIs(t, err, version.ErrNoChange)
	})

	t.Run("no-change-is-an-error", func(t *testing.T) {
		pinToday(t, date(2021, time.March, 5))
		ctx := dlog.NewTestContext(t, false)
		_, err := version.Incr(ctx, "v2021", "vYYYY", version.IncrOptions{})
		assert.ErrorIs(t, err, version.ErrNoChange)
	})

	t.Run("week-pattern-rejected", func(t *testing.T) {
		ctx := dlog.NewTestContext(t, false)
		_, err := version.Incr(ctx, "v2021w03", "vYYYYw0V", version.IncrOptions{})
		require.Error(t, err)
		assert.False(t, errors.Is(err, version.ErrNoChange))
	})

	t.Run("invalid-old-version", func(t *testing.T) {
		ctx := dlog.NewTestContext(t, false)
		_, err := version.Incr(ctx, "bogus", "vYYYY0M.BUILD", version.IncrOptions{})
		var patErr *version.PatternError
		assert.ErrorAs(t, err, &patErr)
	})
}

func TestTagBijection(t *testing.T) {
	t.Parallel()
	for tag, pytag := range version.PEP440TagByTag {
		if tag == "final" {
			assert.Equal(t, "", pytag)
			continue
		}
		roundTripped, ok := version.TagByPEP440Tag[pytag]
		require.True(t, ok, "pytag %q has no canonical tag", pytag)
		assert.Equal(t, version.PEP440TagByTag[roundTripped], pytag)
	}
}

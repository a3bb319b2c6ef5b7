package patterns_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvertools/bumpver/pkg/patterns"
)

func matchGroups(t *testing.T, pat *patterns.Pattern, str string) map[string]string {
	t.Helper()
	match := pat.Regexp.FindStringSubmatch(str)
	if match == nil {
		return nil
	}
	groups := map[string]string{}
	for i, name := range pat.Regexp.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		groups[name] = match[i]
	}
	return groups
}

func TestCompileCalVerPattern(t *testing.T) {
	t.Parallel()
	pat, err := patterns.Compile("vYYYY0M.BUILD[-TAG]", "")
	require.NoError(t, err)

	groups := matchGroups(t, pat, "v201712.0123-alpha")
	require.NotNil(t, groups)
	assert.Equal(t, "2017", groups["year_y"])
	assert.Equal(t, "12", groups["month"])
	assert.Equal(t, "0123", groups["bid"])
	assert.Equal(t, "alpha", groups["tag"])

	// tag is optional
	groups = matchGroups(t, pat, "v201712.1234")
	require.NotNil(t, groups)
	assert.Equal(t, "1234", groups["bid"])
	assert.Equal(t, "", groups["tag"])

	// no leading v
	assert.Nil(t, pat.Regexp.FindStringIndex("201712.1234"))
	// month 13 is invalid
	loc := pat.Regexp.FindStringIndex("v201713.1234")
	if loc != nil {
		assert.NotEqual(t, 0, loc[0])
	}
}

func TestCompileSemVerPattern(t *testing.T) {
	t.Parallel()
	pat, err := patterns.Compile("MAJOR.MINOR.PATCH", "")
	require.NoError(t, err)

	groups := matchGroups(t, pat, "1.23.456")
	require.NotNil(t, groups)
	assert.Equal(t, "1", groups["major"])
	assert.Equal(t, "23", groups["minor"])
	assert.Equal(t, "456", groups["patch"])
}

func TestCompileRepeatedField(t *testing.T) {
	t.Parallel()
	// The year occurs twice; the second occurrence must get its own
	// disambiguated capture group instead of failing to compile.
	pat, err := patterns.Compile("YYYY.YYYY", "")
	require.NoError(t, err)

	names := pat.Regexp.SubexpNames()
	assert.Contains(t, names, "year_y")

	foundSuffixed := false
	for _, name := range names {
		if name != "" && name != "year_y" {
			foundSuffixed = true
		}
	}
	assert.True(t, foundSuffixed, "expected a disambiguated group name in %v", names)
}

func TestCompileRawPatternPlaceholder(t *testing.T) {
	t.Parallel()
	pat, err := patterns.Compile("vYYYY0M.BUILD[-TAG]", `__version__ = "{version}"`)
	require.NoError(t, err)
	assert.Equal(t, `__version__ = "vYYYY0M.BUILD[-TAG]"`, pat.NormalizedPattern)

	groups := matchGroups(t, pat, `__version__ = "v201712.0033-beta"`)
	require.NotNil(t, groups)
	assert.Equal(t, "beta", groups["tag"])
}

func TestNormalizePEP440Placeholder(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"vYYYY0M.BUILD[-TAG]":        "YYYY0M.BLD[PYTAGNUM]",
		"MAJOR.MINOR.PATCH[PYTAGNUM]": "MAJOR.MINOR.PATCH[PYTAGNUM]",
		"vMAJOR.MINOR.PATCH[-TAG]":    "MAJOR.MINOR.PATCH[PYTAGNUM]",
		"vYYYY.0M.0D":                 "YYYY.MM.DD[PYTAGNUM]",
	}
	for versionPattern, want := range testcases {
		got := patterns.Normalize(versionPattern, "{pep440_version}")
		assert.Equal(t, want, got, "versionPattern=%q", versionPattern)
	}
}

func TestCompileError(t *testing.T) {
	t.Parallel()
	// an unclosed optional group produces an invalid regex
	_, err := patterns.Compile("vYYYY[", "")
	require.Error(t, err)

	var cerr *patterns.CompileError
	require.ErrorAs(t, err, &cerr)
	assert.NotEmpty(t, cerr.Pattern)
}

func TestCache(t *testing.T) {
	t.Parallel()
	cache := patterns.NewCache()

	a, err := cache.Compile("vYYYY0M.BUILD[-TAG]", "")
	require.NoError(t, err)
	b, err := cache.Compile("vYYYY0M.BUILD[-TAG]", "")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := cache.Compile("MAJOR.MINOR.PATCH", "")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestParseSegments(t *testing.T) {
	t.Parallel()

	tree, err := patterns.ParseSegments("aa[bb[cc]]")
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "aa", tree[0].Text)
	require.False(t, tree[1].IsLiteral())
	sub := tree[1].Sub
	require.Len(t, sub, 2)
	assert.Equal(t, "bb", sub[0].Text)
	require.False(t, sub[1].IsLiteral())
	assert.Equal(t, "cc", sub[1].Sub[0].Text)

	tree, err = patterns.ParseSegments("aa[bb[cc]dd[ee]ff]gg")
	require.NoError(t, err)
	require.Len(t, tree, 3)
	assert.Equal(t, "aa", tree[0].Text)
	assert.Equal(t, "gg", tree[2].Text)
	assert.Len(t, tree[1].Sub, 5)
}

func TestParseSegmentsErrors(t *testing.T) {
	t.Parallel()
	_, err := patterns.ParseSegments("aa]bb")
	assert.Error(t, err)

	_, err = patterns.ParseSegments("aa[bb")
	assert.Error(t, err)
}

func TestIsZeroVal(t *testing.T) {
	t.Parallel()
	assert.True(t, patterns.IsZeroVal("MAJOR", "0"))
	assert.True(t, patterns.IsZeroVal("TAG", "final"))
	assert.True(t, patterns.IsZeroVal("PYTAG", ""))
	assert.False(t, patterns.IsZeroVal("MAJOR", "1"))
	// tokens without a registered zero value never count as zero
	assert.False(t, patterns.IsZeroVal("BUILD", "0"))
	assert.False(t, patterns.IsZeroVal("YYYY", "0"))
}

func TestFormatToken(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "09", patterns.FormatToken("0M", "9"))
	assert.Equal(t, "9", patterns.FormatToken("MM", "9"))
	assert.Equal(t, "7", patterns.FormatToken("YY", "2007"))
	assert.Equal(t, "07", patterns.FormatToken("0Y", "2007"))
	assert.Equal(t, "001", patterns.FormatToken("00J", "1"))
	assert.Equal(t, "33", patterns.FormatToken("BLD", "0033"))
	assert.Equal(t, "0033", patterns.FormatToken("BUILD", "0033"))
}

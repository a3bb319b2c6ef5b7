package pep440_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvertools/bumpver/pkg/pep440"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"v201811.0007-beta": "201811.7b0",
		"1.0":               "1.0",
		"v1.0":              "1.0",
		"1.1RC1":            "1.1rc1",
		"1.1alpha1":         "1.1a1",
		"1.1beta2":          "1.1b2",
		"1.1c3":             "1.1rc3",
		"1.2a":              "1.2a0",
		"1.2-post2":         "1.2.post2",
		"1.0-r4":            "1.0.post4",
		"1.2.post":          "1.2.post0",
		"1.0-1":             "1.0.post1",
		"1.2-dev2":          "1.2.dev2",
		"1.2.dev":           "1.2.dev0",
		"1.0+ubuntu-1":      "1.0+ubuntu.1",
		"09000.00":          "9000.0",
		"1!2.0":             "1!2.0",
		"  1.0\n":           "1.0",
		"not-a-version":     "not-a-version",
	}
	for input, want := range testcases {
		assert.Equal(t, want, pep440.Normalize(input), "input %q", input)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	for _, input := range []string{"", "bogus", "1.0-", "1.0+_leading"} {
		_, err := pep440.Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestCmpOrdering(t *testing.T) {
	t.Parallel()

	// The canonical ordering example from the version scheme, minus the
	// interleaved local versions which are checked separately.
	ordered := []string{
		"1.0.dev456",
		"1.0a1",
		"1.0a2.dev456",
		"1.0a12.dev456",
		"1.0a12",
		"1.0b1.dev456",
		"1.0b2",
		"1.0b2.post345.dev456",
		"1.0b2.post345",
		"1.0rc1.dev456",
		"1.0rc1",
		"1.0",
		"1.0+abc.5",
		"1.0+abc.7",
		"1.0+5",
		"1.0.post456.dev34",
		"1.0.post456",
		"1.1.dev1",
		"1!0.9",
	}
	for i := 0; i+1 < len(ordered); i++ {
		a, err := pep440.Parse(ordered[i])
		require.NoError(t, err)
		b, err := pep440.Parse(ordered[i+1])
		require.NoError(t, err)
		assert.Negative(t, a.Cmp(*b), "%q < %q", ordered[i], ordered[i+1])
		assert.Positive(t, b.Cmp(*a), "%q > %q", ordered[i+1], ordered[i])
		assert.Zero(t, a.Cmp(*a), "%q == %q", ordered[i], ordered[i])
	}
}

func TestCmpPadsRelease(t *testing.T) {
	t.Parallel()
	a, err := pep440.Parse("1.0")
	require.NoError(t, err)
	b, err := pep440.Parse("1.0.0")
	require.NoError(t, err)
	assert.Zero(t, a.Cmp(*b))
}

func TestCompareSortsTags(t *testing.T) {
	t.Parallel()
	tags := []string{
		"v201902.0021",
		"v201812.0018-beta",
		"v201901.0019",
		"v201901.0020-rc",
	}
	sort.Slice(tags, func(i, j int) bool {
		return pep440.Compare(tags[i], tags[j]) < 0
	})
	assert.Equal(t, []string{
		"v201812.0018-beta",
		"v201901.0019",
		"v201901.0020-rc",
		"v201902.0021",
	}, tags)
}

func TestCompareLooseFallback(t *testing.T) {
	t.Parallel()
	assert.Negative(t, pep440.Compare("weird-1", "weird-2"))
	assert.Positive(t, pep440.Compare("weird-10", "weird-9"))
	assert.Zero(t, pep440.Compare("weird-1", "weird-1"))
}

func TestIsFinal(t *testing.T) {
	t.Parallel()
	final, err := pep440.Parse("2.7.3")
	require.NoError(t, err)
	assert.True(t, final.IsFinal())
	assert.Equal(t, 2, final.Major())
	assert.Equal(t, 7, final.Minor())
	assert.Equal(t, 3, final.Micro())

	pre, err := pep440.Parse("2.7.3rc1")
	require.NoError(t, err)
	assert.False(t, pre.IsFinal())
}

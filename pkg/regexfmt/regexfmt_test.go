package regexfmt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvertools/bumpver/pkg/regexfmt"
)

func TestFormatRegex(t *testing.T) {
	t.Parallel()
	formatted, err := regexfmt.FormatRegex(`\[CalVer v(?P<year_y>[1-9][0-9]{3})(?P<month>(?:1[0-2]|0[1-9]))`)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`\[CalVer[ ]v`,
		`(?P<year_y>[1-9][0-9]{3})`,
		`(?P<month>`,
		`    (?:1[0-2]|0[1-9])`,
		`)`,
	}, "\n"), formatted)

	_, err = regexfmt.FormatRegex(`(unclosed`)
	assert.Error(t, err)
}

func TestGoExprRegex(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "regexp.MustCompile(`v[0-9]+`)", regexfmt.GoExprRegex(`v[0-9]+`))
	assert.Equal(t, "regexp.MustCompile(\"a`b\")", regexfmt.GoExprRegex("a`b"))
}

func TestRegex101URL(t *testing.T) {
	t.Parallel()
	url := regexfmt.Regex101URL(`v[0-9]+`)
	assert.True(t, strings.HasPrefix(url, "https://regex101.com/?flavor=golang"))
	assert.Contains(t, url, "regex=v%5B0-9%5D%2B")
}

package patterns

import (
	"regexp"
	"sort"
	"strings"
)

// Siblings used when deriving a PEP 440 pattern: zero-padded tokens are
// replaced with their non-padded forms so that values round-trip through
// PEP 440 normalization (which truncates leading zeros).
var pep440Substitutions = map[string]string{
	"0Y":    "YY",
	"0G":    "GG",
	"0W":    "WW",
	"0U":    "UU",
	"0V":    "VV",
	"0M":    "MM",
	"0D":    "DD",
	"00J":   "JJJ",
	"BUILD": "BLD",
	"TAG":   "PYTAG",
}

var reNonPEP440Char = regexp.MustCompile(`[^a-zA-Z0-9.!\[\]]`)

// convertToPEP440 derives a PEP 440 compatible version pattern from a
// canonical pattern: the leading literal "v" and any separator characters
// are stripped, zero-padded tokens are swapped for their non-padded siblings
// where a numeric parser would truncate the padding (at the pattern start or
// right after a literal "."), and the tag is forced into a trailing
// [PYTAGNUM] block.
//
// This does not cover some corner cases of PEP 440, in particular around
// post and dev releases.
func convertToPEP440(versionPattern string) string {
	pattern := strings.TrimPrefix(versionPattern, "v")

	pattern = strings.ReplaceAll(pattern, `\[`, "")
	pattern = strings.ReplaceAll(pattern, `\]`, "")
	pattern = reNonPEP440Char.ReplaceAllString(pattern, "")

	names := make([]string, 0, len(Tokens))
	for _, tok := range Tokens {
		names = append(names, tok.Name)
	}
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	for _, name := range names {
		if !strings.Contains(versionPattern, name) {
			continue
		}
		substitution, ok := pep440Substitutions[name]
		if !ok {
			continue
		}
		if strings.Contains(pattern, substitution) {
			continue
		}

		if name == "TAG" || name == "PYTAG" {
			pattern = strings.ReplaceAll(pattern, name, substitution)
			continue
		}

		// Numeric tokens are only swapped where leading zeros would
		// actually be truncated.
		idx := strings.Index(pattern, name)
		if idx == 0 || (idx > 0 && pattern[idx-1] == '.') {
			pattern = strings.ReplaceAll(pattern, name, substitution)
		}
	}

	// PYTAG and NUM must be adjacent and also be the last (optional) part.
	if !strings.Contains(pattern, "PYTAGNUM") {
		pattern = strings.ReplaceAll(pattern, "PYTAG", "")
		pattern = strings.ReplaceAll(pattern, "NUM", "")
		pattern = strings.ReplaceAll(pattern, "[]", "")
		pattern += "[PYTAGNUM]"
	}

	return pattern
}

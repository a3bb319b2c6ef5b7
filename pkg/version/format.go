package version

import (
	"sort"
	"strconv"
	"strings"

	"github.com/calvertools/bumpver/pkg/patterns"
)

// partValue is a token name together with its formatted value for a
// particular VersionInfo.
type partValue struct {
	token string
	value string
}

// fieldStr returns the canonical string value for a field, or ok=false when
// the field is unset.
func fieldStr(vinfo VersionInfo, field string) (string, bool) {
	switch field {
	case "year_y":
		return calFieldStr(vinfo.YearY)
	case "year_g":
		return calFieldStr(vinfo.YearG)
	case "quarter":
		return calFieldStr(vinfo.Quarter)
	case "month":
		return calFieldStr(vinfo.Month)
	case "dom":
		return calFieldStr(vinfo.Dom)
	case "doy":
		return calFieldStr(vinfo.Doy)
	case "week_w":
		return calFieldStr(vinfo.WeekW)
	case "week_u":
		return calFieldStr(vinfo.WeekU)
	case "week_v":
		return calFieldStr(vinfo.WeekV)
	case "major":
		return strconv.Itoa(vinfo.Major), true
	case "minor":
		return strconv.Itoa(vinfo.Minor), true
	case "patch":
		return strconv.Itoa(vinfo.Patch), true
	case "num":
		return strconv.Itoa(vinfo.Num), true
	case "inc0":
		return strconv.Itoa(vinfo.Inc0), true
	case "inc1":
		return strconv.Itoa(vinfo.Inc1), true
	case "bid":
		return vinfo.BID, true
	case "tag":
		return vinfo.Tag, true
	case "pytag":
		return vinfo.PyTag, true
	case "githash":
		return vinfo.GitHash, true
	case "hexhash":
		return vinfo.HexHash, true
	}
	return "", false
}

func calFieldStr(p *int) (string, bool) {
	if p == nil {
		return "", false
	}
	return strconv.Itoa(*p), true
}

// formatPartValues produces the substitution table for Format, ordered
// longest token first so that e.g. YYYY is substituted before YY.
func formatPartValues(vinfo VersionInfo) []partValue {
	var parts []partValue
	for _, tok := range patterns.Tokens {
		val, ok := fieldStr(vinfo, tok.Field)
		if !ok {
			continue
		}
		parts = append(parts, partValue{token: tok.Name, value: tok.Format(val)})
	}
	sort.SliceStable(parts, func(i, j int) bool {
		return len(parts[i].token) > len(parts[j].token)
	})
	return parts
}

type formattedSeg struct {
	isLiteral bool
	isZero    bool
	result    string
}

// formatSegment substitutes part values into a single pattern segment. A
// segment with no tokens is literal. A segment whose tokens all have zero
// values is zero and may be elided by the enclosing tree.
func formatSegment(text string, parts []partValue) formattedSeg {
	zeroCount := 0
	var used []partValue
	for _, pv := range parts {
		if strings.Contains(text, pv.token) {
			used = append(used, pv)
			if patterns.IsZeroVal(pv.token, pv.value) {
				zeroCount++
			}
		}
	}

	result := strings.ReplaceAll(text, "^", "")
	result = strings.ReplaceAll(result, "$", "")
	result = strings.ReplaceAll(result, `\[`, "[")
	result = strings.ReplaceAll(result, `\]`, "]")
	for _, pv := range used {
		result = strings.ReplaceAll(result, pv.token, pv.value)
	}

	if len(used) == 0 {
		return formattedSeg{isLiteral: true, result: result}
	}
	if zeroCount > 0 && zeroCount == len(used) {
		return formattedSeg{isZero: true, result: result}
	}
	return formattedSeg{result: result}
}

// formatSegmentTree renders a segment tree. Literal glue never decides
// elision, and a tree whose non-literal children are all zero renders to
// the empty string, cascading elision outward.
func formatSegmentTree(tree patterns.SegmentTree, parts []partValue) formattedSeg {
	isZero := true
	var results []string
	for _, seg := range tree {
		var f formattedSeg
		if seg.IsLiteral() {
			f = formatSegment(seg.Text, parts)
		} else {
			f = formatSegmentTree(seg.Sub, parts)
		}
		if !f.isLiteral {
			isZero = isZero && f.isZero
		}
		results = append(results, f.result)
	}
	result := ""
	if !isZero {
		result = strings.Join(results, "")
	}
	return formattedSeg{isZero: isZero, result: result}
}

// Format renders vinfo according to rawPattern, eliding optional segments
// whose fields all hold their zero values.
func Format(vinfo VersionInfo, rawPattern string) (string, error) {
	tree, err := patterns.ParseSegments(rawPattern)
	if err != nil {
		return "", err
	}
	parts := formatPartValues(vinfo)
	return formatSegmentTree(tree, parts).result, nil
}

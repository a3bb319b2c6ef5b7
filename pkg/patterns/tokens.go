package patterns

import (
	"fmt"
	"strconv"
)

// Token is one placeholder recognized inside a version pattern, e.g. "YYYY"
// or "MAJOR". Each token knows the regex fragment that matches its values,
// the logical field it populates, and how to render a canonical field value
// back into token form.
type Token struct {
	Name   string
	Regex  string
	Field  string
	Format func(val string) string
}

// For regex fragments with alternations '(AAA|BB|C)', the alternatives with
// more digits must come first/left of those with fewer digits:
//
//	good: (?:1[0-2]|[1-9])
//	bad:  (?:[1-9]|1[0-2])
//
// This ensures the longest possible match is made for a fragment. To be
// consistent this ordering is used always, even where it wouldn't matter.

// Tokens is the static token registry. The registration order is a fixed
// invariant: it is the order in which the compiler scans for occurrences, so
// for any fixed end index the widest/most specific token is tried first.
// Never mutated after process start.
var Tokens = []Token{
	// calendar tokens, based on calver.org
	{Name: "YYYY", Regex: `[1-9][0-9]{3}`, Field: "year_y", Format: fmtNum},
	{Name: "YY", Regex: `[1-9][0-9]?`, Field: "year_y", Format: fmtShortYear},
	{Name: "0Y", Regex: `[0-9]{2}`, Field: "year_y", Format: fmtShortYearPadded},
	{Name: "GGGG", Regex: `[1-9][0-9]{3}`, Field: "year_g", Format: fmtNum},
	{Name: "GG", Regex: `[1-9][0-9]?`, Field: "year_g", Format: fmtShortYear},
	{Name: "0G", Regex: `[0-9]{2}`, Field: "year_g", Format: fmtShortYearPadded},
	{Name: "Q", Regex: `[1-4]`, Field: "quarter", Format: fmtNum},
	{Name: "MM", Regex: `1[0-2]|[1-9]`, Field: "month", Format: fmtNum},
	{Name: "0M", Regex: `1[0-2]|0[1-9]`, Field: "month", Format: fmtPad2},
	{Name: "DD", Regex: `3[0-1]|[1-2][0-9]|[1-9]`, Field: "dom", Format: fmtNum},
	{Name: "0D", Regex: `3[0-1]|[1-2][0-9]|0[1-9]`, Field: "dom", Format: fmtPad2},
	{Name: "JJJ", Regex: `36[0-6]|3[0-5][0-9]|[1-2][0-9][0-9]|[1-9][0-9]|[1-9]`, Field: "doy", Format: fmtNum},
	{Name: "00J", Regex: `36[0-6]|3[0-5][0-9]|[1-2][0-9][0-9]|0[1-9][0-9]|00[1-9]`, Field: "doy", Format: fmtPad3},

	// week numbering tokens
	{Name: "WW", Regex: `5[0-2]|[1-4][0-9]|[0-9]`, Field: "week_w", Format: fmtNum},
	{Name: "0W", Regex: `5[0-2]|[0-4][0-9]`, Field: "week_w", Format: fmtPad2},
	{Name: "UU", Regex: `5[0-2]|[1-4][0-9]|[0-9]`, Field: "week_u", Format: fmtNum},
	{Name: "0U", Regex: `5[0-2]|[0-4][0-9]`, Field: "week_u", Format: fmtPad2},
	{Name: "VV", Regex: `5[0-3]|[1-4][0-9]|[1-9]`, Field: "week_v", Format: fmtNum},
	{Name: "0V", Regex: `5[0-3]|[1-4][0-9]|0[1-9]`, Field: "week_v", Format: fmtPad2},

	// non-calendar tokens
	{Name: "MAJOR", Regex: `[0-9]+`, Field: "major", Format: fmtNum},
	{Name: "MINOR", Regex: `[0-9]+`, Field: "minor", Format: fmtNum},
	{Name: "PATCH", Regex: `[0-9]+`, Field: "patch", Format: fmtNum},
	{Name: "BUILD", Regex: `[0-9]+`, Field: "bid", Format: fmtNum},
	{Name: "BLD", Regex: `[1-9][0-9]*`, Field: "bid", Format: fmtUnpadded},
	{Name: "TAG", Regex: `preview|final|dev|alpha|beta|post|rc`, Field: "tag", Format: fmtNum},
	{Name: "PYTAG", Regex: `dev|post|rc|a|b`, Field: "pytag", Format: fmtNum},
	{Name: "GITHASH", Regex: `\.[0-9]+\+.*`, Field: "githash", Format: fmtNum},
	{Name: "HEXHASH", Regex: `[0-9a-f]+`, Field: "hexhash", Format: fmtNum},
	{Name: "NUM", Regex: `[0-9]+`, Field: "num", Format: fmtNum},
	{Name: "INC0", Regex: `[0-9]+`, Field: "inc0", Format: fmtNum},
	{Name: "INC1", Regex: `[1-9][0-9]*`, Field: "inc1", Format: fmtNum},
}

// FieldByToken maps a token name to the logical field it populates.
var FieldByToken = func() map[string]string {
	m := make(map[string]string, len(Tokens))
	for _, tok := range Tokens {
		m[tok.Name] = tok.Field
	}
	return m
}()

var tokenByName = func() map[string]Token {
	m := make(map[string]Token, len(Tokens))
	for _, tok := range Tokens {
		m[tok.Name] = tok
	}
	return m
}()

// zeroValues are the rendered values considered "zero" for purposes of
// eliding optional segments. Tokens not listed never count as zero.
var zeroValues = map[string]string{
	"MAJOR": "0",
	"MINOR": "0",
	"PATCH": "0",
	"TAG":   "final",
	"PYTAG": "",
	"NUM":   "0",
	"INC0":  "0",
}

// IsZeroVal reports whether value is the registered zero value of the token.
func IsZeroVal(tokenName, value string) bool {
	zero, ok := zeroValues[tokenName]
	return ok && value == zero
}

// FormatToken renders a canonical field value in the form of the named token,
// e.g. month "9" renders as "09" for 0M and as "9" for MM.
func FormatToken(tokenName, val string) string {
	tok, ok := tokenByName[tokenName]
	if !ok {
		return val
	}
	return tok.Format(val)
}

func atoi(val string) int {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return n
}

func fmtNum(val string) string { return val }

func fmtUnpadded(val string) string { return strconv.Itoa(atoi(val)) }

func fmtPad2(val string) string { return fmt.Sprintf("%02d", atoi(val)) }

func fmtPad3(val string) string { return fmt.Sprintf("%03d", atoi(val)) }

func fmtShortYear(val string) string {
	if len(val) > 2 {
		val = val[len(val)-2:]
	}
	return strconv.Itoa(atoi(val))
}

func fmtShortYearPadded(val string) string {
	if len(val) > 2 {
		val = val[len(val)-2:]
	}
	return fmt.Sprintf("%02d", atoi(val))
}

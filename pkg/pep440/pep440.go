// Package pep440 implements parsing, normalization and ordering of PEP 440
// version identifiers.
//
// Parsing accepts the permissive syntax from PEP 440 Appendix B, and String
// renders the canonical normalized form. For version strings that are not
// PEP 440 at all, Compare falls back to a loose segment-wise ordering so
// that sorting a mixed list of tags still behaves sensibly.
package pep440

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed local version identifier, i.e. a public version plus
// an optional local version label.
type Version struct {
	PublicVersion
	Local []LocalSegment
}

// PublicVersion is the up-to-five-segment public version identifier:
//
//	[N!]N(.N)*[{a|b|rc}N][.postN][.devN]
type PublicVersion struct {
	Epoch   int
	Release []int
	Pre     *PreRelease
	Post    *int
	Dev     *int
}

type PreRelease struct {
	L string
	N int
}

// LocalSegment is one dot-separated segment of a local version label.
// Numeric segments order numerically and after alphanumeric ones.
type LocalSegment struct {
	IsNum bool
	Num   int
	Str   string
}

func (s LocalSegment) String() string {
	if s.IsNum {
		return strconv.Itoa(s.Num)
	}
	return s.Str
}

func parseLocalSegment(s string) LocalSegment {
	if n, err := strconv.Atoi(s); err == nil {
		return LocalSegment{IsNum: true, Num: n}
	}
	return LocalSegment{Str: s}
}

func (ver PublicVersion) writeTo(ret *strings.Builder) {
	if ver.Epoch > 0 {
		fmt.Fprintf(ret, "%d!", ver.Epoch)
	}
	for i, segment := range ver.Release {
		if i > 0 {
			ret.WriteByte('.')
		}
		fmt.Fprintf(ret, "%d", segment)
	}
	if ver.Pre != nil {
		fmt.Fprintf(ret, "%s%d", ver.Pre.L, ver.Pre.N)
	}
	if ver.Post != nil {
		fmt.Fprintf(ret, ".post%d", *ver.Post)
	}
	if ver.Dev != nil {
		fmt.Fprintf(ret, ".dev%d", *ver.Dev)
	}
}

// String renders the canonical normalized form of the version.
func (ver PublicVersion) String() string {
	var ret strings.Builder
	ver.writeTo(&ret)
	return ret.String()
}

// String renders the canonical normalized form of the version.
func (ver Version) String() string {
	var ret strings.Builder
	ver.PublicVersion.writeTo(&ret)
	sep := "+"
	for _, local := range ver.Local {
		ret.WriteString(sep)
		ret.WriteString(local.String())
		sep = "."
	}
	return ret.String()
}

func (ver PublicVersion) IsFinal() bool {
	return ver.Pre == nil && ver.Post == nil && ver.Dev == nil
}

func (ver Version) IsFinal() bool {
	return ver.PublicVersion.IsFinal() && len(ver.Local) == 0
}

func (ver PublicVersion) releaseSegment(n int) int {
	if n < len(ver.Release) {
		return ver.Release[n]
	}
	return 0
}

func (ver PublicVersion) Major() int { return ver.releaseSegment(0) }
func (ver PublicVersion) Minor() int { return ver.releaseSegment(1) }
func (ver PublicVersion) Micro() int { return ver.releaseSegment(2) }

// The release segment is compared numerically component by component, with
// the shorter side padded out with zeros.
func cmpRelease(a, b PublicVersion) int {
	for i := 0; i < len(a.Release) || i < len(b.Release); i++ {
		if diff := a.releaseSegment(i) - b.releaseSegment(i); diff != 0 {
			return diff
		}
	}
	return 0
}

// Suffixes order as: .devN, aN, bN, rcN, <no suffix>, .postN.
var preReleaseOrder = map[string]int{
	"a":  -3,
	"b":  -2,
	"rc": -1,
	// absent: 0
}

func cmpPreRelease(a, b PublicVersion) int {
	var aL, aN, bL, bN int
	if a.Pre != nil {
		aL = preReleaseOrder[a.Pre.L]
		aN = a.Pre.N
	} else if a.Dev != nil && a.Post == nil {
		// A bare dev release sorts ahead of any pre-release.
		aL = -4
	}
	if b.Pre != nil {
		bL = preReleaseOrder[b.Pre.L]
		bN = b.Pre.N
	} else if b.Dev != nil && b.Post == nil {
		bL = -4
	}
	if aL != bL {
		return aL - bL
	}
	return aN - bN
}

func cmpPostRelease(a, b PublicVersion) int {
	aPost := -1
	if a.Post != nil {
		aPost = *a.Post
	}
	bPost := -1
	if b.Post != nil {
		bPost = *b.Post
	}
	return aPost - bPost
}

func cmpDevRelease(a, b PublicVersion) int {
	switch {
	case a.Dev == nil && b.Dev == nil:
		return 0
	case a.Dev == nil:
		return 1
	case b.Dev == nil:
		return -1
	default:
		return (*a.Dev) - (*b.Dev)
	}
}

func cmpLocalSegment(a, b *LocalSegment) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch {
	case a.IsNum && b.IsNum:
		return a.Num - b.Num
	case !a.IsNum && !b.IsNum:
		return strings.Compare(a.Str, b.Str)
	case a.IsNum:
		// numeric segments sort after alphanumeric ones
		return 1
	default:
		return -1
	}
}

func cmpLocal(a, b Version) int {
	for i := 0; i < len(a.Local) || i < len(b.Local); i++ {
		var aSeg, bSeg *LocalSegment
		if i < len(a.Local) {
			aSeg = &(a.Local[i])
		}
		if i < len(b.Local) {
			bSeg = &(b.Local[i])
		}
		if d := cmpLocalSegment(aSeg, bSeg); d != 0 {
			return d
		}
	}
	return 0
}

// Cmp returns a number < 0 if version 'a' is less than version 'b', > 0 if
// 'a' is greater than 'b', or 0 if they are equal. Only the sign is defined,
// like the C strcmp.
func (a PublicVersion) Cmp(b PublicVersion) int {
	if d := a.Epoch - b.Epoch; d != 0 {
		return d
	}
	if d := cmpRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPreRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPostRelease(a, b); d != 0 {
		return d
	}
	return cmpDevRelease(a, b)
}

// Cmp returns a number < 0 if version 'a' is less than version 'b', > 0 if
// 'a' is greater than 'b', or 0 if they are equal.
func (a Version) Cmp(b Version) int {
	if d := a.PublicVersion.Cmp(b.PublicVersion); d != 0 {
		return d
	}
	return cmpLocal(a, b)
}

// reVersion is the permissive version regexp from PEP 440 Appendix B.
var reVersion = regexp.MustCompile(`(?i)^\s*` + regexp.MustCompile(`(?:\s+|#.*)`).ReplaceAllString(`
		v?
		(?:
		    (?:(?P<epoch>[0-9]+)!)?                           # epoch
		    (?P<release>[0-9]+(?:\.[0-9]+)*)                  # release segment
		    (?P<pre>                                          # pre-release
		        [-_\.]?
		        (?P<pre_l>(a|b|c|rc|alpha|beta|pre|preview))
		        [-_\.]?
		        (?P<pre_n>[0-9]+)?
		    )?
		    (?P<post>                                         # post release
		        (?:-(?P<post_n1>[0-9]+))
		        |
		        (?:
		            [-_\.]?
		            (?P<post_l>post|rev|r)
		            [-_\.]?
		            (?P<post_n2>[0-9]+)?
		        )
		    )?
		    (?P<dev>                                          # dev release
		        [-_\.]?
		        (?P<dev_l>dev)
		        [-_\.]?
		        (?P<dev_n>[0-9]+)?
		    )?
		)
		(?:\+(?P<local>[a-z0-9]+(?:[-_\.][a-z0-9]+)*))?       # local version
	`, ``) + `\s*$`)

var preLetterAliases = map[string]string{
	"a": "a", "alpha": "a",
	"b": "b", "beta": "b",
	"rc": "rc", "c": "rc", "pre": "rc", "preview": "rc",
}

// Parse parses a version string, accepting the alternative spellings that
// PEP 440 requires tools to normalize.
func Parse(str string) (*Version, error) {
	match := reVersion.FindStringSubmatch(str)
	if match == nil {
		return nil, fmt.Errorf("invalid pep440 version: %q", str)
	}

	var ver Version
	var err error

	if epoch := match[reVersion.SubexpIndex("epoch")]; epoch != "" {
		if ver.Epoch, err = strconv.Atoi(epoch); err != nil {
			return nil, err
		}
	}

	for _, segStr := range strings.Split(match[reVersion.SubexpIndex("release")], ".") {
		segInt, err := strconv.Atoi(segStr)
		if err != nil {
			return nil, err
		}
		ver.Release = append(ver.Release, segInt)
	}

	if preL := strings.ToLower(match[reVersion.SubexpIndex("pre_l")]); preL != "" {
		canonical, ok := preLetterAliases[preL]
		if !ok {
			return nil, fmt.Errorf("invalid pre-release label: %q", preL)
		}
		n := 0
		if preN := match[reVersion.SubexpIndex("pre_n")]; preN != "" {
			if n, err = strconv.Atoi(preN); err != nil {
				return nil, err
			}
		}
		ver.Pre = &PreRelease{L: canonical, N: n}
	}

	if match[reVersion.SubexpIndex("post")] != "" {
		n := 0
		postN := match[reVersion.SubexpIndex("post_n1")] + match[reVersion.SubexpIndex("post_n2")]
		if postN != "" {
			if n, err = strconv.Atoi(postN); err != nil {
				return nil, err
			}
		}
		ver.Post = &n
	}

	if match[reVersion.SubexpIndex("dev")] != "" {
		n := 0
		if devN := match[reVersion.SubexpIndex("dev_n")]; devN != "" {
			if n, err = strconv.Atoi(devN); err != nil {
				return nil, err
			}
		}
		ver.Dev = &n
	}

	localParts := strings.FieldsFunc(match[reVersion.SubexpIndex("local")], func(r rune) bool {
		return strings.ContainsRune("-_.", r)
	})
	for _, part := range localParts {
		ver.Local = append(ver.Local, parseLocalSegment(strings.ToLower(part)))
	}

	return &ver, nil
}

// Normalize returns the canonical PEP 440 form of a version string, or the
// input unchanged when it cannot be parsed.
func Normalize(str string) string {
	ver, err := Parse(str)
	if err != nil {
		return str
	}
	return ver.String()
}

// Compare orders two version strings. PEP 440 ordering applies when both
// sides parse; otherwise both are compared loosely, segment by segment.
func Compare(a, b string) int {
	verA, errA := Parse(a)
	verB, errB := Parse(b)
	if errA == nil && errB == nil {
		return verA.Cmp(*verB)
	}
	return looseCmp(a, b)
}

func looseCmp(a, b string) int {
	aSegs := looseSegments(a)
	bSegs := looseSegments(b)
	for i := 0; i < len(aSegs) || i < len(bSegs); i++ {
		var aSeg, bSeg *LocalSegment
		if i < len(aSegs) {
			aSeg = &aSegs[i]
		}
		if i < len(bSegs) {
			bSeg = &bSegs[i]
		}
		if d := cmpLocalSegment(aSeg, bSeg); d != 0 {
			return d
		}
	}
	return 0
}

// looseSegments splits a string into alternating digit and non-digit runs,
// discarding separators, so that "v1.10-beta" yields [v 1 10 beta].
func looseSegments(s string) []LocalSegment {
	var segs []LocalSegment
	var cur strings.Builder
	curNum := false
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, parseLocalSegment(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		switch {
		case strings.ContainsRune(".-_+", r):
			flush()
		case (r >= '0' && r <= '9') != curNum:
			flush()
			curNum = !curNum
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return segs
}

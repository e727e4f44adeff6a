// Package classify infers the structural role of a line of extracted text.
//
// Extracted PDF text carries no structure, so headings and list items are
// recognized with an ordered chain of heuristics. The first rule that matches
// decides; lines that match nothing are paragraphs.
package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/alnah/go-docconv/internal/docmodel"
)

// Heading heuristics only apply to lines whose rune count is in (minHeadingLen, maxHeadingLen).
const (
	minHeadingLen     = 2
	maxHeadingLen     = 100
	maxTitleCaseLen   = 60
	maxNumberedLen    = 80
	defaultBulletMark = "•"
)

// Result is the classification of one line.
// Text is the line with any list marker removed; Marker holds that marker.
type Result struct {
	Kind   docmodel.Kind
	Level  int
	Marker string
	Text   string
}

// rule inspects a normalized, trimmed line and reports a match.
type rule func(line string) (Result, bool)

var (
	// Spaces include Unicode separators: extracted text often has a
	// no-break space after list markers.
	bulletGlyphRe   = regexp.MustCompile(`^([\x{2022}\x{2023}\x{25E6}\x{2043}\x{2219}])[\s\p{Z}]+`)
	dashBulletRe    = regexp.MustCompile(`^([-*])[\s\p{Z}]+`)
	numberedItemRe  = regexp.MustCompile(`^(\d+[.)])[\s\p{Z}]+`)
	letteredItemRe  = regexp.MustCompile(`^([a-zA-Z][.)])[\s\p{Z}]+`)
	sectionPrefixRe = regexp.MustCompile(`(?i)^(?:chapter|section|part|bab|bagian)[\s\p{Z}]+\d*`)
	romanNumeralRe  = regexp.MustCompile(`(?i)^[IVXLCDM]+[.)][\s\p{Z}]`)
	titleCaseRe     = regexp.MustCompile(`^\p{Lu}[^.!?]*$`)
	numberedTitleRe = regexp.MustCompile(`^\d+(?:\.\d+)*\.?[\s\p{Z}]+\p{Lu}`)

	upper = cases.Upper(language.Und)
)

// rules is evaluated in order; the first match wins.
var rules = []rule{
	listRule(bulletGlyphRe),
	listRule(dashBulletRe),
	listRule(numberedItemRe),
	listRule(letteredItemRe),
	headingRule(1, allUpper),
	headingRule(1, sectionPrefixRe.MatchString),
	headingRule(2, romanNumeralRe.MatchString),
	headingRule(2, func(s string) bool {
		return titleCaseRe.MatchString(s) && utf8.RuneCountInString(s) < maxTitleCaseLen
	}),
	headingRule(2, func(s string) bool {
		return numberedTitleRe.MatchString(s) && utf8.RuneCountInString(s) < maxNumberedLen
	}),
}

// Classify returns the structural role of line.
// The line is trimmed and NFC-normalized before the rules run.
func Classify(line string) Result {
	s := norm.NFC.String(strings.TrimSpace(line))

	for _, r := range rules {
		if res, ok := r(s); ok {
			return res
		}
	}
	return Result{Kind: docmodel.Paragraph, Text: s}
}

// listRule matches a leading list marker and strips it from the text.
func listRule(re *regexp.Regexp) rule {
	return func(s string) (Result, bool) {
		m := re.FindStringSubmatchIndex(s)
		if m == nil {
			return Result{}, false
		}
		marker := s[m[2]:m[3]]
		if bulletGlyphRe.MatchString(s) || marker == "-" || marker == "*" {
			marker = defaultBulletMark
		}
		return Result{
			Kind:   docmodel.ListItem,
			Marker: marker,
			Text:   strings.TrimSpace(s[m[1]:]),
		}, true
	}
}

// headingRule matches only lines of heading-like length.
func headingRule(level int, match func(string) bool) rule {
	return func(s string) (Result, bool) {
		n := utf8.RuneCountInString(s)
		if n <= minHeadingLen || n >= maxHeadingLen {
			return Result{}, false
		}
		if !match(s) {
			return Result{}, false
		}
		return Result{Kind: docmodel.Heading, Level: level, Text: s}, true
	}
}

// allUpper reports whether s is unchanged by upper-casing and has an upper-case letter.
func allUpper(s string) bool {
	if upper.String(s) != s {
		return false
	}
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// IsBullet reports whether marker is an unordered list marker.
func IsBullet(marker string) bool {
	return marker == defaultBulletMark
}

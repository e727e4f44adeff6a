// Package docmodel defines the intermediate document representation shared by
// the extraction, classification, assembly and layout stages.
package docmodel

import (
	"strings"

	"github.com/alnah/go-docconv/internal/raster"
)

// Kind identifies the structural role of a Block.
type Kind int

// Block kinds.
const (
	Paragraph Kind = iota
	Heading
	ListItem
	Image
	PageBreak
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Paragraph:
		return "paragraph"
	case Heading:
		return "heading"
	case ListItem:
		return "list-item"
	case Image:
		return "image"
	case PageBreak:
		return "page-break"
	default:
		return "unknown"
	}
}

// Style holds inline formatting flags.
type Style struct {
	Bold      bool
	Italic    bool
	Underline bool
}

// Block is one unit of document structure.
// Level is meaningful only for headings (1-6). Marker keeps the list marker
// removed from a list item's Text. Image is set only for Image blocks.
type Block struct {
	Kind   Kind
	Level  int
	Text   string
	Marker string
	Style  Style
	Image  *raster.Image
}

// Tag names carried by markup fragments.
const (
	TagBold      = "b"
	TagItalic    = "i"
	TagUnderline = "u"
	TagListItem  = "li"
)

// TagSet is the set of markup tags applied to a fragment.
// A nil TagSet marks plain extracted text.
type TagSet map[string]bool

// NewTagSet returns a TagSet holding the given tags.
func NewTagSet(tags ...string) TagSet {
	ts := make(TagSet, len(tags))
	for _, t := range tags {
		ts[t] = true
	}
	return ts
}

// Has reports whether tag is in the set.
func (ts TagSet) Has(tag string) bool {
	return ts[tag]
}

// HeadingLevel returns the level of the first h1..h6 tag present, or 0.
func (ts TagSet) HeadingLevel() int {
	for level := 1; level <= 6; level++ {
		if ts["h"+string(rune('0'+level))] {
			return level
		}
	}
	return 0
}

// Fragment is a run of text (or an image) coming out of an extractor.
type Fragment struct {
	Text       string
	SourcePage int
	Tags       TagSet
	Image      *raster.Image
}

// IsMarkup reports whether the fragment came from markup rather than plain text.
func (f Fragment) IsMarkup() bool {
	return f.Tags != nil
}

// IsBlank reports whether the fragment carries neither text nor an image.
func (f Fragment) IsBlank() bool {
	return f.Image == nil && strings.TrimSpace(f.Text) == ""
}

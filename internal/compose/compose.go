// Package compose lays blocks out on fixed-size pages.
//
// Layout is a single sequential pass over the block list with one cursor:
// text is wrapped against the content width, a line that would cross the
// bottom margin opens a new page first, and images are scaled into a fixed
// box. The result is a list of positioned draw commands per page, ready for
// a PDF writer. Coordinates are measured in points from the top-left corner.
package compose

import (
	"strings"

	"github.com/alnah/go-docconv/internal/docmodel"
	"github.com/alnah/go-docconv/internal/raster"
)

// DefaultFamily is the core font family used for all text.
const DefaultFamily = "Helvetica"

// Font selects a face and size.
type Font struct {
	Family    string
	Bold      bool
	Italic    bool
	Underline bool
	Size      float64
}

// StyleString returns the face as a combination of "B", "I" and "U".
func (f Font) StyleString() string {
	var sb strings.Builder
	if f.Bold {
		sb.WriteByte('B')
	}
	if f.Italic {
		sb.WriteByte('I')
	}
	if f.Underline {
		sb.WriteByte('U')
	}
	return sb.String()
}

// Metrics measures rendered text width in points.
type Metrics interface {
	StringWidth(f Font, s string) float64
}

// Op is the kind of a draw command.
type Op int

// Draw operations.
const (
	OpText Op = iota
	OpImage
)

// Command is one positioned drawing operation.
// For text, Y is the baseline; for images, Y is the top edge.
type Command struct {
	Op    Op
	X     float64
	Y     float64
	W     float64
	H     float64
	Text  string
	Font  Font
	Image *raster.Image
}

// Page holds the commands placed on one output page.
// WidthPt and HeightPt are the page size in points.
type Page struct {
	Index    int
	WidthPt  float64
	HeightPt float64
	Commands []Command
}

// Cursor is the current write position.
type Cursor struct {
	PageIndex int
	Offset    float64
}

// Style holds typographic settings for a layout run.
type Style struct {
	Family           string
	BodySize         float64
	BodyLineFactor   float64
	ParagraphSpacing float64
	HeadingSizes     [3]float64
	HeadingLine      float64
	ImageGap         float64
}

// DefaultStyle returns the standard typography: 11pt body text and
// 20/16/14pt headings.
func DefaultStyle() Style {
	return Style{
		Family:           DefaultFamily,
		BodySize:         11,
		BodyLineFactor:   1.5,
		ParagraphSpacing: 12,
		HeadingSizes:     [3]float64{20, 16, 14},
		HeadingLine:      1.4,
		ImageGap:         20,
	}
}

// HeadingSize returns the font size for a heading level.
func (s Style) HeadingSize(level int) float64 {
	switch {
	case level <= 1:
		return s.HeadingSizes[0]
	case level == 2:
		return s.HeadingSizes[1]
	default:
		return s.HeadingSizes[2]
	}
}

// Option configures a layout run.
type Option func(*compositor)

// WithStyle overrides the default typography.
func WithStyle(s Style) Option {
	return func(c *compositor) {
		c.style = s
	}
}

type state int

const (
	placing state = iota
	overflowing
	done
)

type compositor struct {
	geo     Geometry
	metrics Metrics
	style   Style
	pages   []Page
	cursor  Cursor
	state   state
}

// Layout places blocks onto pages and returns at least one page.
// Identical inputs always produce identical output.
func Layout(blocks []docmodel.Block, geo Geometry, metrics Metrics, opts ...Option) []Page {
	c := &compositor{geo: geo, metrics: metrics, style: DefaultStyle()}
	for _, opt := range opts {
		opt(c)
	}

	c.newPage()
	for _, b := range blocks {
		switch b.Kind {
		case docmodel.PageBreak:
			c.state = overflowing
			c.newPage()
		case docmodel.Image:
			c.placeImage(b.Image)
		case docmodel.Heading:
			c.placeHeading(b)
		case docmodel.ListItem:
			c.placeText(listText(b), c.bodyFont(b.Style), c.style.BodySize*c.style.BodyLineFactor, c.style.ParagraphSpacing)
		default:
			c.placeText(b.Text, c.bodyFont(b.Style), c.style.BodySize*c.style.BodyLineFactor, c.style.ParagraphSpacing)
		}
	}
	c.state = done
	return c.pages
}

func listText(b docmodel.Block) string {
	if b.Marker == "" {
		return b.Text
	}
	return b.Marker + " " + b.Text
}

func (c *compositor) bodyFont(s docmodel.Style) Font {
	return Font{
		Family:    c.style.Family,
		Bold:      s.Bold,
		Italic:    s.Italic,
		Underline: s.Underline,
		Size:      c.style.BodySize,
	}
}

// newPage allocates a page and moves the cursor to its top margin.
func (c *compositor) newPage() {
	c.pages = append(c.pages, Page{Index: len(c.pages), WidthPt: c.geo.WidthPt, HeightPt: c.geo.HeightPt})
	c.cursor = Cursor{PageIndex: len(c.pages) - 1, Offset: c.geo.MarginPt}
	c.state = placing
}

func (c *compositor) page() *Page {
	return &c.pages[c.cursor.PageIndex]
}

func (c *compositor) pageEmpty() bool {
	return len(c.page().Commands) == 0
}

// fits reports whether h more points fit above the bottom margin.
func (c *compositor) fits(h float64) bool {
	return c.cursor.Offset+h <= c.geo.HeightPt-c.geo.MarginPt
}

// ensure opens a new page when h does not fit, unless the page is still
// empty and a new one would not help.
func (c *compositor) ensure(h float64) {
	if !c.fits(h) && !c.pageEmpty() {
		c.state = overflowing
		c.newPage()
	}
}

func (c *compositor) placeHeading(b docmodel.Block) {
	text := strings.TrimSpace(b.Text)
	if text == "" {
		return
	}

	size := c.style.HeadingSize(b.Level)
	font := Font{Family: c.style.Family, Bold: true, Italic: b.Style.Italic, Underline: b.Style.Underline, Size: size}
	lineHeight := size * c.style.HeadingLine
	lines := c.wrap(text, font)

	before := size * 0.5
	if c.pageEmpty() {
		before = 0
	}
	total := float64(len(lines)) * lineHeight
	if !c.fits(before+total) && !c.pageEmpty() {
		c.state = overflowing
		c.newPage()
		before = 0
	}
	c.cursor.Offset += before

	for _, line := range lines {
		c.placeLine(line, font, lineHeight)
	}
	c.cursor.Offset += size
}

func (c *compositor) placeText(text string, font Font, lineHeight, spacingAfter float64) {
	if strings.TrimSpace(text) == "" {
		return
	}
	for _, line := range c.wrap(text, font) {
		c.placeLine(line, font, lineHeight)
	}
	c.cursor.Offset += spacingAfter
}

// placeLine draws one line, opening a new page first if it would cross the
// bottom margin.
func (c *compositor) placeLine(line string, font Font, lineHeight float64) {
	c.ensure(lineHeight)
	p := c.page()
	p.Commands = append(p.Commands, Command{
		Op:   OpText,
		X:    c.geo.MarginPt,
		Y:    c.cursor.Offset + font.Size,
		W:    c.metrics.StringWidth(font, line),
		H:    lineHeight,
		Text: line,
		Font: font,
	})
	c.cursor.Offset += lineHeight
}

func (c *compositor) placeImage(img *raster.Image) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return
	}

	_, w, h := raster.FitWithin(float64(img.Width), float64(img.Height), c.geo.MaxImageWidthPt, c.geo.MaxImageHeightPt)
	c.ensure(h)

	p := c.page()
	p.Commands = append(p.Commands, Command{
		Op:    OpImage,
		X:     c.geo.MarginPt,
		Y:     c.cursor.Offset,
		W:     w,
		H:     h,
		Image: img,
	})
	c.cursor.Offset += h + c.style.ImageGap
}

// wrap breaks text into lines no wider than the content width.
// A word wider than the content width sits alone on its line.
func (c *compositor) wrap(text string, font Font) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if c.metrics.StringWidth(font, candidate) > c.geo.MaxContentWidthPt {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	return append(lines, line)
}

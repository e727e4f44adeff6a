// Package flow merges per-page fragments into an ordered block sequence.
package flow

import (
	"errors"
	"strings"

	"github.com/alnah/go-docconv/internal/classify"
	"github.com/alnah/go-docconv/internal/docmodel"
	"github.com/alnah/go-docconv/internal/raster"
)

// ErrNoExtractableContent is returned when assembly yields no blocks.
var ErrNoExtractableContent = errors.New("no extractable content")

// Page is one source page: the images found on it and its text fragments.
type Page struct {
	Images    []*raster.Image
	Fragments []docmodel.Fragment
}

// assembler accumulates blocks for one Assemble call.
type assembler struct {
	blocks  []docmodel.Block
	pending []string
}

// Assemble turns source pages into blocks.
//
// A page break separates consecutive pages. Page images come before the
// page's text. Plain fragments are classified line by line and consecutive
// paragraph lines are joined with a space until a blank line or any other
// block kind interrupts them. Markup fragments keep their declared structure.
func Assemble(pages []Page) ([]docmodel.Block, error) {
	a := &assembler{}

	for i, page := range pages {
		if i > 0 {
			a.emit(docmodel.Block{Kind: docmodel.PageBreak})
		}
		for _, img := range page.Images {
			if img != nil {
				a.emit(docmodel.Block{Kind: docmodel.Image, Image: img})
			}
		}
		for _, frag := range page.Fragments {
			if frag.IsMarkup() {
				a.addMarkup(frag)
				continue
			}
			a.addPlain(frag.Text)
		}
		a.flush()
	}

	if len(a.blocks) == 0 {
		return nil, ErrNoExtractableContent
	}
	return a.blocks, nil
}

// addPlain classifies each line of an extracted text fragment.
func (a *assembler) addPlain(text string) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			a.flush()
			continue
		}

		res := classify.Classify(trimmed)
		switch res.Kind {
		case docmodel.Paragraph:
			a.pending = append(a.pending, res.Text)
		default:
			a.emit(docmodel.Block{
				Kind:   res.Kind,
				Level:  res.Level,
				Text:   res.Text,
				Marker: res.Marker,
			})
		}
	}
}

// addMarkup maps a tagged fragment one-to-one onto a block.
func (a *assembler) addMarkup(frag docmodel.Fragment) {
	if frag.Image != nil {
		a.emit(docmodel.Block{Kind: docmodel.Image, Image: frag.Image})
		return
	}

	text := strings.TrimSpace(frag.Text)
	if text == "" {
		return
	}

	style := docmodel.Style{
		Bold:      frag.Tags.Has(docmodel.TagBold),
		Italic:    frag.Tags.Has(docmodel.TagItalic),
		Underline: frag.Tags.Has(docmodel.TagUnderline),
	}

	switch {
	case frag.Tags.HeadingLevel() > 0:
		a.emit(docmodel.Block{Kind: docmodel.Heading, Level: frag.Tags.HeadingLevel(), Text: text, Style: style})
	case frag.Tags.Has(docmodel.TagListItem):
		a.emit(docmodel.Block{Kind: docmodel.ListItem, Text: text, Marker: "•", Style: style})
	default:
		a.emit(docmodel.Block{Kind: docmodel.Paragraph, Text: text, Style: style})
	}
}

// emit flushes any pending paragraph and appends b.
func (a *assembler) emit(b docmodel.Block) {
	a.flush()
	a.blocks = append(a.blocks, b)
}

func (a *assembler) flush() {
	if len(a.pending) == 0 {
		return
	}
	a.blocks = append(a.blocks, docmodel.Block{
		Kind: docmodel.Paragraph,
		Text: strings.Join(a.pending, " "),
	})
	a.pending = a.pending[:0]
}

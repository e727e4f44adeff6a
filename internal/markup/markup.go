// Package markup turns restricted HTML into tagged fragments.
//
// The bridge scans tokens rather than building a tree: the outermost
// recognized block tag captures everything up to its matching close tag,
// inline formatting tags only set style flags, and the first image inside a
// block is resolved from an inline data URI or from a side table of images
// extracted earlier. When the block pass finds nothing, a paragraph-only
// pass and then a plain-text pass are tried.
//
// Besides headings, paragraphs, list items, table rows and cells,
// blockquotes and divs, <pre> is captured as a plain paragraph so code
// blocks rendered from Markdown are kept; their whitespace is collapsed
// like any other block.
package markup

import (
	"encoding/base64"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-docconv/internal/docmodel"
	"github.com/alnah/go-docconv/internal/raster"
)

// blockTags are captured as blocks by the first pass.
var blockTags = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.P: true, atom.Li: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Blockquote: true, atom.Div: true, atom.Pre: true,
}

// paragraphTags are captured by the fallback pass.
var paragraphTags = map[atom.Atom]bool{atom.P: true}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// Bridge converts HTML into fragments.
type Bridge struct {
	logger *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used to report skipped images.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Bridge. Without WithLogger, diagnostics are discarded.
func New(opts ...Option) *Bridge {
	b := &Bridge{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Parse extracts fragments from src. Images referenced by name are looked up
// in images and removed from it once they belong to a fragment.
func (b *Bridge) Parse(src string, images map[string][]byte) []docmodel.Fragment {
	if frags := b.scan(src, images, blockTags, true); len(frags) > 0 {
		return frags
	}
	if frags := b.scan(src, images, paragraphTags, false); len(frags) > 0 {
		b.logger.Debug("markup block pass empty, used paragraph pass", "fragments", len(frags))
		return frags
	}
	if text := PlainText(src); text != "" {
		b.logger.Debug("markup paragraph pass empty, used plain text pass")
		return []docmodel.Fragment{{Text: text, Tags: docmodel.TagSet{}}}
	}
	return nil
}

// capture accumulates one block while its tag is open.
type capture struct {
	tag       atom.Atom
	depth     int
	text      strings.Builder
	bold      bool
	italic    bool
	underline bool
	imgSrc    string
	hasImg    bool
}

func (c *capture) space() {
	c.text.WriteByte(' ')
}

// scan runs one tokenizer pass capturing the given block tags.
func (b *Bridge) scan(src string, images map[string][]byte, tags map[atom.Atom]bool, withImages bool) []docmodel.Fragment {
	z := html.NewTokenizer(strings.NewReader(src))
	var (
		frags []docmodel.Fragment
		cur   *capture
		skip  int
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// Unclosed trailing block is kept.
			if cur != nil {
				frags = b.finish(frags, cur, images, withImages)
			}
			return frags
		}

		tok := z.Token()
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if tok.DataAtom == atom.Style || tok.DataAtom == atom.Script {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if skip > 0 || cur == nil {
				if skip == 0 && tags[tok.DataAtom] && tt == html.StartTagToken {
					cur = &capture{tag: tok.DataAtom, depth: 1}
				}
				continue
			}
			cur.open(tok, tt == html.SelfClosingTagToken)

		case html.EndTagToken:
			if tok.DataAtom == atom.Style || tok.DataAtom == atom.Script {
				if skip > 0 {
					skip--
				}
				continue
			}
			if cur == nil || skip > 0 {
				continue
			}
			if tok.DataAtom == cur.tag {
				cur.depth--
				if cur.depth == 0 {
					frags = b.finish(frags, cur, images, withImages)
					cur = nil
					continue
				}
			}
			if isBlockBoundary(tok.DataAtom) {
				cur.space()
			}

		case html.TextToken:
			if cur != nil && skip == 0 {
				cur.text.WriteString(tok.Data)
			}
		}
	}
}

// open records an inline or nested tag inside the current capture.
func (c *capture) open(tok html.Token, selfClosing bool) {
	switch tok.DataAtom {
	case atom.B, atom.Strong:
		c.bold = true
	case atom.I, atom.Em:
		c.italic = true
	case atom.U:
		c.underline = true
	case atom.Br:
		c.space()
	case atom.Img:
		if !c.hasImg {
			c.hasImg = true
			c.imgSrc = attr(tok, "src")
		}
	default:
		if tok.DataAtom == c.tag && !selfClosing {
			c.depth++
		}
		if isBlockBoundary(tok.DataAtom) {
			c.space()
		}
	}
}

// finish converts a closed capture into zero, one or two fragments.
func (b *Bridge) finish(frags []docmodel.Fragment, c *capture, images map[string][]byte, withImages bool) []docmodel.Fragment {
	if withImages && c.hasImg {
		if img := b.resolveImage(c.imgSrc, images); img != nil {
			frags = append(frags, docmodel.Fragment{Image: img, Tags: docmodel.TagSet{}})
		}
	}

	text := collapse(c.text.String())
	if text == "" {
		return frags
	}

	tags := docmodel.TagSet{}
	if level, ok := headingLevels[c.tag]; ok {
		tags["h"+string(rune('0'+level))] = true
	}
	if c.tag == atom.Li {
		tags[docmodel.TagListItem] = true
	}
	if c.bold {
		tags[docmodel.TagBold] = true
	}
	if c.italic {
		tags[docmodel.TagItalic] = true
	}
	if c.underline {
		tags[docmodel.TagUnderline] = true
	}
	return append(frags, docmodel.Fragment{Text: text, Tags: tags})
}

// resolveImage decodes a data URI or takes a named image out of the table.
func (b *Bridge) resolveImage(src string, images map[string][]byte) *raster.Image {
	if src == "" {
		return nil
	}

	var (
		data []byte
		mime string
	)
	if strings.HasPrefix(src, "data:") {
		meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			b.logger.Warn("skipping image with unsupported data URI", "meta", meta)
			return nil
		}
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			b.logger.Warn("skipping image with invalid base64 payload", "error", err)
			return nil
		}
		data = decoded
		mime = strings.TrimSuffix(meta, ";base64")
	} else {
		named, ok := images[src]
		if !ok {
			b.logger.Warn("skipping image missing from image table", "src", src)
			return nil
		}
		delete(images, src)
		data = named
	}

	img, err := raster.FromEncoded(data, mime)
	if err != nil {
		b.logger.Warn("skipping undecodable image", "src", truncate(src, 64), "error", err)
		return nil
	}
	return img
}

// PlainText strips all tags from src, drops style and script content and
// collapses whitespace.
func PlainText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var sb strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapse(sb.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); a == atom.Style || a == atom.Script {
				skip++
			}
			sb.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); (a == atom.Style || a == atom.Script) && skip > 0 {
				skip--
			}
			sb.WriteByte(' ')
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func isBlockBoundary(a atom.Atom) bool {
	if blockTags[a] {
		return true
	}
	switch a {
	case atom.Ul, atom.Ol, atom.Table, atom.Tbody, atom.Thead:
		return true
	}
	return false
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package officex converts WordprocessingML (.docx) packages into the
// restricted HTML understood by the markup bridge.
//
// Body paragraphs and tables are read in document order. Heading styles
// become h1-h6, numbered paragraphs become list items, run formatting becomes
// strong/em/u, and embedded pictures are written as <img src="image_N"> with
// their bytes returned in a side table keyed by the same name.
package officex

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	// ErrNotDocx is returned when the input is not a readable DOCX package.
	ErrNotDocx = errors.New("not a DOCX document")
	// ErrMissingPart is returned when a required package part is absent.
	ErrMissingPart = errors.New("missing required DOCX part")
)

// MaxPartSize caps the decompressed size of any single part read from the
// package.
const MaxPartSize = 64 << 20

const (
	partContentTypes = "[Content_Types].xml"
	partDocument     = "word/document.xml"
	partRels         = "word/_rels/document.xml.rels"
	partStyles       = "word/styles.xml"
	partNumbering    = "word/numbering.xml"
)

// Document is the converted form of a DOCX package.
type Document struct {
	HTML   string
	Images map[string][]byte
}

// Reader converts DOCX packages.
type Reader struct {
	logger *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for skipped parts and images.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Reader.
func New(opts ...Option) *Reader {
	r := &Reader{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// pkg holds the parsed side parts of one package during conversion.
type pkg struct {
	files    map[string]*zip.File
	rels     map[string]string
	headings map[string]int
	ordered  map[string]bool
	images   map[string][]byte
	seq      int
	logger   *slog.Logger
}

// Convert reads data as a DOCX package and renders its body as HTML.
func (r *Reader) Convert(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	p := &pkg{
		files:  make(map[string]*zip.File, len(zr.File)),
		images: make(map[string][]byte),
		logger: r.logger,
	}
	for _, f := range zr.File {
		p.files[f.Name] = f
	}
	for _, name := range []string{partContentTypes, partDocument} {
		if _, ok := p.files[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingPart, name)
		}
	}

	p.parseRelationships()
	p.parseStyles()
	p.parseNumbering()

	doc, err := p.read(partDocument)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}
	out, err := p.renderBody(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrNotDocx, partDocument, err)
	}
	return &Document{HTML: out, Images: p.images}, nil
}

func (p *pkg) read(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingPart, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, MaxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(data) > MaxPartSize {
		return nil, fmt.Errorf("reading %s: part exceeds %d bytes", name, MaxPartSize)
	}
	return data, nil
}

// parseRelationships maps relationship IDs to package part names.
// The relationships part is optional.
func (p *pkg) parseRelationships() {
	p.rels = make(map[string]string)
	data, err := p.read(partRels)
	if err != nil {
		return
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		p.logger.Warn("ignoring unreadable relationships part", "error", err)
		return
	}
	for _, rel := range rels.Relationships {
		if rel.TargetMode == "External" {
			continue
		}
		target := rel.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join("word", target)
		}
		p.rels[rel.ID] = target
	}
}

// parseStyles records which paragraph styles are headings and at what level.
func (p *pkg) parseStyles() {
	p.headings = make(map[string]int)
	data, err := p.read(partStyles)
	if err != nil {
		return
	}
	var styles stylesXML
	if err := xml.Unmarshal(data, &styles); err != nil {
		p.logger.Warn("ignoring unreadable styles part", "error", err)
		return
	}
	for _, s := range styles.Styles {
		if s.Type != "" && s.Type != "paragraph" {
			continue
		}
		if level := styleHeadingLevel(s); level > 0 {
			p.headings[s.StyleID] = level
		}
	}
}

func styleHeadingLevel(s styleDefXML) int {
	name := strings.ToLower(strings.TrimSpace(s.Name.Val))
	if name == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(name, "heading "); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			return clampLevel(n)
		}
	}
	if s.PPr.OutlineLvl != nil {
		if n, err := strconv.Atoi(s.PPr.OutlineLvl.Val); err == nil && n < 9 {
			return clampLevel(n + 1)
		}
	}
	return 0
}

// parseNumbering records which numbering instances are ordered at level 0.
func (p *pkg) parseNumbering() {
	p.ordered = make(map[string]bool)
	data, err := p.read(partNumbering)
	if err != nil {
		return
	}
	var num numberingXML
	if err := xml.Unmarshal(data, &num); err != nil {
		p.logger.Warn("ignoring unreadable numbering part", "error", err)
		return
	}
	abstract := make(map[string]bool, len(num.AbstractNums))
	for _, a := range num.AbstractNums {
		for _, lvl := range a.Levels {
			if lvl.ILvl == "0" || lvl.ILvl == "" {
				f := lvl.NumFmt.Val
				abstract[a.ID] = f != "" && f != "bullet" && f != "none"
				break
			}
		}
	}
	for _, n := range num.Nums {
		p.ordered[n.ID] = abstract[n.AbstractNumID.Val]
	}
}

// headingLevel resolves a paragraph's heading level from its style or a
// direct outline level.
func (p *pkg) headingLevel(props paragraphPropsXML) int {
	id := props.Style.Val
	if level, ok := p.headings[id]; ok {
		return level
	}
	lower := strings.ToLower(id)
	if lower == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(lower, "heading"); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			return clampLevel(n)
		}
	}
	if props.OutlineLvl != nil {
		if n, err := strconv.Atoi(props.OutlineLvl.Val); err == nil && n < 9 {
			return clampLevel(n + 1)
		}
	}
	return 0
}

func clampLevel(n int) int {
	return min(max(n, 1), 6)
}

// renderBody walks the body children in order, decoding paragraphs and
// tables and skipping everything else.
func (p *pkg) renderBody(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out    strings.Builder
		list   string
		inBody bool
	)
	closeList := func() {
		if list != "" {
			out.WriteString("</" + list + ">")
			list = ""
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !inBody {
				if t.Name.Local == "body" {
					inBody = true
				}
				continue
			}
			switch t.Name.Local {
			case "p":
				var para paragraphXML
				if err := dec.DecodeElement(&para, &t); err != nil {
					return "", err
				}
				kind := p.listKind(para.Properties)
				if kind != list {
					closeList()
					if kind != "" {
						out.WriteString("<" + kind + ">")
						list = kind
					}
				}
				p.renderParagraph(&out, para)
			case "tbl":
				closeList()
				var tbl tableXML
				if err := dec.DecodeElement(&tbl, &t); err != nil {
					return "", err
				}
				p.renderTable(&out, tbl)
			default:
				if err := dec.Skip(); err != nil {
					return "", err
				}
			}
		case xml.EndElement:
			if inBody && t.Name.Local == "body" {
				closeList()
				return out.String(), nil
			}
		}
	}
	closeList()
	return out.String(), nil
}

// listKind returns "ol", "ul" or "" for a paragraph.
func (p *pkg) listKind(props paragraphPropsXML) string {
	if props.NumPr == nil || props.NumPr.NumID.Val == "" || props.NumPr.NumID.Val == "0" {
		return ""
	}
	if p.headingLevel(props) > 0 {
		return ""
	}
	if p.ordered[props.NumPr.NumID.Val] {
		return "ol"
	}
	return "ul"
}

// renderParagraph writes one paragraph. Paragraphs without content, such as
// page breaks, are dropped.
func (p *pkg) renderParagraph(out *strings.Builder, para paragraphXML) {
	tag := "p"
	if level := p.headingLevel(para.Properties); level > 0 {
		tag = "h" + strconv.Itoa(level)
	} else if p.listKind(para.Properties) != "" {
		tag = "li"
	}

	var inner strings.Builder
	for _, in := range para.Content {
		switch in.XMLName.Local {
		case "r":
			p.renderRun(&inner, in.Properties, in.Items)
		default:
			for _, r := range in.Runs {
				p.renderRun(&inner, r.Properties, r.Items)
			}
		}
	}
	if inner.Len() == 0 {
		return
	}
	out.WriteString("<" + tag + ">")
	out.WriteString(inner.String())
	out.WriteString("</" + tag + ">")
}

func (p *pkg) renderRun(out *strings.Builder, props runPropsXML, items []runItemXML) {
	var open, closing []string
	if props.Bold.on() {
		open, closing = append(open, "<strong>"), append([]string{"</strong>"}, closing...)
	}
	if props.Italic.on() {
		open, closing = append(open, "<em>"), append([]string{"</em>"}, closing...)
	}
	if props.Underline != nil && props.Underline.Val != "none" {
		open, closing = append(open, "<u>"), append([]string{"</u>"}, closing...)
	}

	var body strings.Builder
	for _, it := range items {
		switch it.XMLName.Local {
		case "t":
			body.WriteString(html.EscapeString(it.Value))
		case "tab":
			body.WriteString(" ")
		case "br", "cr":
			if it.Type != "page" {
				body.WriteString("<br/>")
			}
		case "drawing":
			pic := it.Inline
			if pic == nil {
				pic = it.Anchor
			}
			if pic != nil && pic.Blip != nil {
				if name, ok := p.image(pic.Blip.Embed); ok {
					body.WriteString(`<img src="` + name + `"/>`)
				}
			}
		}
	}
	if body.Len() == 0 {
		return
	}
	out.WriteString(strings.Join(open, ""))
	out.WriteString(body.String())
	out.WriteString(strings.Join(closing, ""))
}

func (p *pkg) renderTable(out *strings.Builder, tbl tableXML) {
	out.WriteString("<table>")
	for _, row := range tbl.Rows {
		out.WriteString("<tr>")
		for _, cell := range row.Cells {
			out.WriteString("<td>")
			for _, para := range cell.Paragraphs {
				p.renderParagraph(out, para)
			}
			out.WriteString("</td>")
		}
		out.WriteString("</tr>")
	}
	out.WriteString("</table>")
}

// image loads the part behind a relationship into the image table and
// returns its name. Unresolvable references are logged and skipped.
func (p *pkg) image(relID string) (string, bool) {
	target, ok := p.rels[relID]
	if !ok {
		p.logger.Warn("skipping image with unknown relationship", "id", relID)
		return "", false
	}
	data, err := p.read(target)
	if err != nil {
		p.logger.Warn("skipping unreadable image part", "part", target, "error", err)
		return "", false
	}
	name := "image_" + strconv.Itoa(p.seq)
	p.seq++
	p.images[name] = data
	return name, true
}

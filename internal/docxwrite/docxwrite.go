// Package docxwrite serializes blocks into a WordprocessingML (.docx) package.
//
// Paragraph formatting mirrors a plain word processor export: headings are
// bold 16pt or 14pt with generous spacing, body paragraphs are justified 12pt,
// bulleted items use a single bullet numbering definition, and images are
// inline pictures centered on their own paragraph.
package docxwrite

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/alnah/go-docconv/internal/classify"
	"github.com/alnah/go-docconv/internal/compose"
	"github.com/alnah/go-docconv/internal/docmodel"
	"github.com/alnah/go-docconv/internal/raster"
)

// ErrWrite is returned when the package cannot be assembled.
var ErrWrite = errors.New("writing DOCX")

// Image box defaults, in pixels.
const (
	DefaultImageBoxWidthPx  = 500
	DefaultImageBoxHeightPx = 400
)

// DefaultMarginPt is the section margin on every side.
const DefaultMarginPt = 72

const (
	emuPerPixel = 9525
	twipsPerPt  = 20
	halfPtBody  = 24
	halfPtH1    = 32
	halfPtH2    = 28
)

// Writer builds DOCX packages.
type Writer struct {
	logger   *slog.Logger
	modified time.Time
	boxW     int
	boxH     int
	widthPt  float64
	heightPt float64
	marginPt float64
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger used to report skipped images.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithImageBox bounds inline pictures to w×h pixels. Non-positive values are
// ignored.
func WithImageBox(width, height int) Option {
	return func(w *Writer) {
		if width > 0 && height > 0 {
			w.boxW, w.boxH = width, height
		}
	}
}

// WithPage sets the section page size and margins in points.
func WithPage(widthPt, heightPt, marginPt float64) Option {
	return func(w *Writer) {
		if widthPt > 0 && heightPt > 0 && marginPt >= 0 {
			w.widthPt, w.heightPt, w.marginPt = widthPt, heightPt, marginPt
		}
	}
}

// WithModified sets the timestamp stored on every zip entry.
func WithModified(t time.Time) Option {
	return func(w *Writer) {
		if !t.IsZero() {
			w.modified = t
		}
	}
}

// New creates a Writer for A4 pages with one-inch margins.
func New(opts ...Option) *Writer {
	w := &Writer{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		modified: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
		boxW:     DefaultImageBoxWidthPx,
		boxH:     DefaultImageBoxHeightPx,
		widthPt:  compose.A4WidthPt,
		heightPt: compose.A4HeightPt,
		marginPt: DefaultMarginPt,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// media is one embedded picture.
type media struct {
	relID string
	name  string
	data  []byte
}

// Write renders blocks into a DOCX package.
func (w *Writer) Write(blocks []docmodel.Block) ([]byte, error) {
	var (
		body  bytes.Buffer
		files []media
	)

	for _, b := range blocks {
		switch b.Kind {
		case docmodel.PageBreak:
			body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		case docmodel.Image:
			m, ok := w.writeImage(&body, b.Image, len(files))
			if ok {
				files = append(files, m)
			}
		case docmodel.Heading:
			w.writeHeading(&body, b)
		case docmodel.ListItem:
			w.writeListItem(&body, b)
		default:
			w.writeParagraph(&body, b)
		}
	}
	if body.Len() == 0 {
		body.WriteString(`<w:p/>`)
	}

	var doc bytes.Buffer
	doc.WriteString(xmlHeader)
	doc.WriteString(`<w:document xmlns:w="` + nsW + `" xmlns:r="` + nsR + `" xmlns:wp="` + nsWP +
		`" xmlns:a="` + nsA + `" xmlns:pic="` + nsPic + `"><w:body>`)
	doc.Write(body.Bytes())
	w.writeSection(&doc)
	doc.WriteString(`</w:body></w:document>`)

	return w.pack(doc.Bytes(), files)
}

func (w *Writer) writeHeading(buf *bytes.Buffer, b docmodel.Block) {
	level := min(max(b.Level, 1), 6)
	size := halfPtH2
	if level == 1 {
		size = halfPtH1
	}
	style := b.Style
	style.Bold = true

	buf.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading` + strconv.Itoa(level) + `"/>`)
	buf.WriteString(`<w:spacing w:before="400" w:after="200"/></w:pPr>`)
	writeRun(buf, b.Text, style, size)
	buf.WriteString(`</w:p>`)
}

// writeListItem emits a bulleted paragraph. Markers other than bullets are
// kept as a text prefix so ordered numbering survives as written.
func (w *Writer) writeListItem(buf *bytes.Buffer, b docmodel.Block) {
	buf.WriteString(`<w:p><w:pPr><w:pStyle w:val="ListParagraph"/>`)
	text := b.Text
	if b.Marker == "" || classify.IsBullet(b.Marker) {
		buf.WriteString(`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="` + strconv.Itoa(bulletNumID) + `"/></w:numPr>`)
	} else {
		text = b.Marker + " " + text
	}
	buf.WriteString(`<w:spacing w:after="80"/></w:pPr>`)
	writeRun(buf, text, b.Style, halfPtBody)
	buf.WriteString(`</w:p>`)
}

func (w *Writer) writeParagraph(buf *bytes.Buffer, b docmodel.Block) {
	if b.Text == "" {
		return
	}
	buf.WriteString(`<w:p><w:pPr><w:spacing w:after="200"/><w:jc w:val="both"/></w:pPr>`)
	writeRun(buf, b.Text, b.Style, halfPtBody)
	buf.WriteString(`</w:p>`)
}

func writeRun(buf *bytes.Buffer, text string, s docmodel.Style, halfPt int) {
	sz := strconv.Itoa(halfPt)
	buf.WriteString(`<w:r><w:rPr>`)
	if s.Bold {
		buf.WriteString(`<w:b/>`)
	}
	if s.Italic {
		buf.WriteString(`<w:i/>`)
	}
	if s.Underline {
		buf.WriteString(`<w:u w:val="single"/>`)
	}
	buf.WriteString(`<w:sz w:val="` + sz + `"/><w:szCs w:val="` + sz + `"/></w:rPr>`)
	buf.WriteString(`<w:t xml:space="preserve">`)
	escape(buf, text)
	buf.WriteString(`</w:t></w:r>`)
}

// writeImage emits a centered inline picture scaled into the image box.
// Larger images are resampled to the box so the package does not carry
// pixels Word never shows. Images that cannot be stored as PNG or JPEG are
// skipped and logged.
func (w *Writer) writeImage(buf *bytes.Buffer, img *raster.Image, seq int) (media, bool) {
	if img == nil || img.Width <= 0 || img.Height <= 0 || len(img.Data) == 0 {
		return media{}, false
	}
	if img.MIME != raster.MIMEPNG && img.MIME != raster.MIMEJPEG {
		converted, err := raster.FromEncoded(img.Data, img.MIME)
		if err != nil {
			w.logger.Warn("skipping image the DOCX writer cannot embed", "mime", img.MIME, "error", err)
			return media{}, false
		}
		img = converted
	}

	scale, dw, dh := raster.FitWithin(float64(img.Width), float64(img.Height), float64(w.boxW), float64(w.boxH))
	pw, ph := max(1, int(math.Round(dw))), max(1, int(math.Round(dh)))
	if scale < 1 {
		scaled, err := raster.Scale(img, pw, ph)
		if err != nil {
			w.logger.Warn("embedding image at full size", "width", img.Width, "height", img.Height, "error", err)
		} else {
			img = scaled
		}
	}
	cx := int64(pw) * emuPerPixel
	cy := int64(ph) * emuPerPixel

	ext := "png"
	if img.MIME == raster.MIMEJPEG {
		ext = "jpeg"
	}
	id := seq + 1
	m := media{
		relID: "rIdImg" + strconv.Itoa(id),
		name:  "media/image" + strconv.Itoa(id) + "." + ext,
		data:  img.Data,
	}

	ids := strconv.Itoa(id)
	extent := `cx="` + strconv.FormatInt(cx, 10) + `" cy="` + strconv.FormatInt(cy, 10) + `"`
	buf.WriteString(`<w:p><w:pPr><w:spacing w:before="200" w:after="200"/><w:jc w:val="center"/></w:pPr>`)
	buf.WriteString(`<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`)
	buf.WriteString(`<wp:extent ` + extent + `/>`)
	buf.WriteString(`<wp:docPr id="` + ids + `" name="Picture ` + ids + `"/>`)
	buf.WriteString(`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`)
	buf.WriteString(`<a:graphic><a:graphicData uri="` + nsPic + `"><pic:pic>`)
	buf.WriteString(`<pic:nvPicPr><pic:cNvPr id="` + ids + `" name="image` + ids + `.` + ext + `"/><pic:cNvPicPr/></pic:nvPicPr>`)
	buf.WriteString(`<pic:blipFill><a:blip r:embed="` + m.relID + `"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`)
	buf.WriteString(`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext ` + extent + `/></a:xfrm>`)
	buf.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`)
	buf.WriteString(`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`)
	return m, true
}

func (w *Writer) writeSection(buf *bytes.Buffer) {
	tw := func(pt float64) string { return strconv.Itoa(int(math.Round(pt * twipsPerPt))) }
	m := tw(w.marginPt)
	buf.WriteString(`<w:sectPr><w:pgSz w:w="` + tw(w.widthPt) + `" w:h="` + tw(w.heightPt) + `"/>`)
	buf.WriteString(`<w:pgMar w:top="` + m + `" w:right="` + m + `" w:bottom="` + m + `" w:left="` + m +
		`" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>`)
}

// pack writes all parts into a zip archive in a fixed order.
func (w *Writer) pack(document []byte, files []media) ([]byte, error) {
	var rels bytes.Buffer
	rels.WriteString(xmlHeader)
	rels.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	rels.WriteString(`<Relationship Id="rIdStyles" Type="` + relTypeStyles + `" Target="styles.xml"/>`)
	rels.WriteString(`<Relationship Id="rIdNumbering" Type="` + relTypeNumbering + `" Target="numbering.xml"/>`)
	for _, m := range files {
		rels.WriteString(`<Relationship Id="` + m.relID + `" Type="` + relTypeImage + `" Target="` + m.name + `"/>`)
	}
	rels.WriteString(`</Relationships>`)

	parts := []struct {
		name string
		data []byte
	}{
		{partContentTypes, []byte(contentTypesXML)},
		{partRootRels, []byte(rootRelsXML)},
		{partDocument, document},
		{partDocumentRels, rels.Bytes()},
		{partStyles, []byte(stylesXML)},
		{partNumbering, []byte(numberingXML)},
	}
	for _, m := range files {
		parts = append(parts, struct {
			name string
			data []byte
		}{"word/" + m.name, m.data})
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, p := range parts {
		hdr := &zip.FileHeader{Name: p.name, Method: zip.Deflate, Modified: w.modified}
		f, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", ErrWrite, p.name, err)
		}
		if _, err := f.Write(p.data); err != nil {
			return nil, fmt.Errorf("%w: writing %s: %v", ErrWrite, p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return out.Bytes(), nil
}

func escape(buf *bytes.Buffer, s string) {
	// EscapeText only fails on writer errors, which bytes.Buffer never returns.
	_ = xml.EscapeText(buf, []byte(s))
}

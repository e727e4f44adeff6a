// Package pdfwrite serializes composed pages into a PDF document using the
// core Helvetica fonts.
package pdfwrite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/alnah/go-docconv/internal/compose"
	"github.com/alnah/go-docconv/internal/raster"
)

// ErrWrite is returned when the PDF document cannot be produced.
var ErrWrite = errors.New("writing PDF")

// DefaultCreator is recorded in the document information dictionary.
const DefaultCreator = "docconv"

// Metrics measures text with the core font metrics of an unattached document.
// A Metrics value is not safe for concurrent use.
type Metrics struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewMetrics creates a Metrics instance.
func NewMetrics() *Metrics {
	pdf := newDocument(compose.A4WidthPt, compose.A4HeightPt)
	return &Metrics{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

// StringWidth implements compose.Metrics.
func (m *Metrics) StringWidth(f compose.Font, s string) float64 {
	m.pdf.SetFont(family(f), fontStyle(f, false), f.Size)
	return m.pdf.GetStringWidth(m.tr(s))
}

var _ compose.Metrics = (*Metrics)(nil)

// Writer renders pages to PDF bytes.
type Writer struct {
	logger  *slog.Logger
	created time.Time
	title   string
	creator string
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

// WithCreationDate fixes the document creation date. A zero time keeps the
// default, which is the Unix epoch so identical input gives identical bytes.
func WithCreationDate(t time.Time) Option {
	return func(w *Writer) {
		if !t.IsZero() {
			w.created = t
		}
	}
}

// WithTitle sets the document title.
func WithTitle(title string) Option {
	return func(w *Writer) {
		w.title = title
	}
}

// New creates a Writer.
func New(opts ...Option) *Writer {
	w := &Writer{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		created: time.Unix(0, 0).UTC(),
		creator: DefaultCreator,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders pages using geo for page size. A page with its own
// dimensions overrides geo for that page. Images that cannot be embedded
// are skipped and logged.
func (w *Writer) Write(pages []compose.Page, geo compose.Geometry) ([]byte, error) {
	pdf := newDocument(geo.WidthPt, geo.HeightPt)
	pdf.SetCreationDate(w.created)
	pdf.SetModificationDate(w.created)
	pdf.SetCreator(w.creator, true)
	if w.title != "" {
		pdf.SetTitle(w.title, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	imageSeq := 0
	for _, page := range pages {
		if page.WidthPt > 0 && page.HeightPt > 0 {
			pdf.AddPageFormat("P", fpdf.SizeType{Wd: page.WidthPt, Ht: page.HeightPt})
		} else {
			pdf.AddPageFormat("P", fpdf.SizeType{Wd: geo.WidthPt, Ht: geo.HeightPt})
		}

		for _, cmd := range page.Commands {
			switch cmd.Op {
			case compose.OpText:
				pdf.SetFont(family(cmd.Font), fontStyle(cmd.Font, true), cmd.Font.Size)
				pdf.Text(cmd.X, cmd.Y, tr(cmd.Text))
			case compose.OpImage:
				name := "img" + strconv.Itoa(imageSeq)
				imageSeq++
				w.drawImage(pdf, name, cmd)
			}
		}

		if pdf.Err() {
			return nil, fmt.Errorf("%w: page %d: %v", ErrWrite, page.Index, pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return buf.Bytes(), nil
}

// drawImage embeds cmd.Image after checking it on a scratch document,
// since a failed registration would poison the real one. Images fpdf
// rejects are rewritten as plain PNG once before being skipped.
func (w *Writer) drawImage(pdf *fpdf.Fpdf, name string, cmd compose.Command) {
	img := cmd.Image
	if img == nil || len(img.Data) == 0 {
		return
	}

	opts, err := embeddable(name, img)
	if err != nil {
		rewritten, rerr := raster.ToPNG(img.Data)
		if rerr != nil {
			w.logger.Warn("skipping image the PDF writer cannot embed",
				"mime", img.MIME, "width", img.Width, "height", img.Height, "error", err)
			return
		}
		w.logger.Debug("rewrote image for the PDF writer", "mime", img.MIME, "error", err)
		img = rewritten
		if opts, err = embeddable(name, img); err != nil {
			w.logger.Warn("skipping image the PDF writer cannot embed",
				"mime", img.MIME, "width", img.Width, "height", img.Height, "error", err)
			return
		}
	}

	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	pdf.ImageOptions(name, cmd.X, cmd.Y, cmd.W, cmd.H, false, opts, 0, "")
}

// embeddable registers img on a scratch document and returns the options
// that worked.
func embeddable(name string, img *raster.Image) (fpdf.ImageOptions, error) {
	opts := fpdf.ImageOptions{ImageType: imageType(img.MIME), ReadDpi: false}
	scratch := newDocument(compose.A4WidthPt, compose.A4HeightPt)
	scratch.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if scratch.Err() {
		return opts, scratch.Error()
	}
	return opts, nil
}

func newDocument(widthPt, heightPt float64) *fpdf.Fpdf {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: widthPt, Ht: heightPt},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	pdf.SetCatalogSort(true)
	return pdf
}

func family(f compose.Font) string {
	if f.Family == "" {
		return compose.DefaultFamily
	}
	return f.Family
}

// fontStyle maps a font to an fpdf style string. Underline only matters
// when drawing, so measurement leaves it out.
func fontStyle(f compose.Font, withUnderline bool) string {
	if !withUnderline {
		f.Underline = false
	}
	return f.StyleString()
}

func imageType(mime string) string {
	switch mime {
	case raster.MIMEJPEG, "image/jpg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return "PNG"
	}
}

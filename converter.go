package docconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-docconv/internal/compose"
	"github.com/alnah/go-docconv/internal/docmodel"
	"github.com/alnah/go-docconv/internal/docxwrite"
	"github.com/alnah/go-docconv/internal/flow"
	"github.com/alnah/go-docconv/internal/markup"
	"github.com/alnah/go-docconv/internal/officex"
	"github.com/alnah/go-docconv/internal/pdfwrite"
	"github.com/alnah/go-docconv/internal/pipeline"
	"github.com/alnah/go-docconv/internal/raster"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownPreprocessor = (*pipeline.CommonMarkPreprocessor)(nil)
	_ pipeline.HTMLConverter        = (*pipeline.GoldmarkConverter)(nil)
	_ textExtractor                 = (*pdfExtractor)(nil)
	_ markupExtractor               = (*officex.Reader)(nil)
	_ rasterizer                    = (*pdftoppm)(nil)
	_ compose.Metrics               = (*pdfwrite.Metrics)(nil)
)

// extractedPage is the raw content of one PDF page.
type extractedPage struct {
	Lines  []string
	Images []raster.RawPixels
}

// textExtractor reads text lines and raw images from PDF bytes.
type textExtractor interface {
	Extract(ctx context.Context, data []byte) ([]extractedPage, error)
}

// markupExtractor turns a DOCX package into HTML plus an image side table.
type markupExtractor interface {
	Convert(data []byte) (*officex.Document, error)
}

// rasterizer renders each PDF page to PNG.
type rasterizer interface {
	Rasterize(ctx context.Context, data []byte, dpi int) ([][]byte, error)
}

// Converter runs document conversions.
// A Converter is not safe for concurrent use; use a Pool to share work
// across goroutines.
type Converter struct {
	cfg           converterConfig
	extractor     textExtractor
	markup        markupExtractor
	preprocessor  pipeline.MarkdownPreprocessor
	htmlConverter pipeline.HTMLConverter
	rasterizer    rasterizer
	bridge        *markup.Bridge
	metrics       *pdfwrite.Metrics
}

// NewConverter creates a Converter with default configuration.
// Returns an error if an option carries an invalid value.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:           defaultConfig(),
		preprocessor:  &pipeline.CommonMarkPreprocessor{},
		htmlConverter: pipeline.NewGoldmarkConverter(),
		metrics:       pdfwrite.NewMetrics(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.cfg.validate(); err != nil {
		return nil, err
	}

	c.bridge = markup.New(markup.WithLogger(c.cfg.logger))
	if c.extractor == nil {
		c.extractor = &pdfExtractor{logger: c.cfg.logger}
	}
	if c.markup == nil {
		c.markup = officex.New(officex.WithLogger(c.cfg.logger))
	}
	if c.rasterizer == nil {
		c.rasterizer = &pdftoppm{path: c.cfg.pdftoppm}
	}

	return c, nil
}

// PDFToDocx converts a PDF document to DOCX.
// Text is rebuilt into headings, list items and paragraphs; embedded images
// are placed before the text of the page they come from.
func (c *Converter) PDFToDocx(ctx context.Context, data []byte) (out []byte, err error) {
	defer recoverInternal(&err)

	if err := c.checkInput(data); err != nil {
		return nil, err
	}
	if !isPDF(data) {
		return nil, ErrNotPDF
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	extracted, err := c.extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	pages, err := c.normalizePages(ctx, extracted)
	if err != nil {
		return nil, err
	}

	blocks, err := flow.Assemble(pages)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return c.RenderDocx(blocks, c.cfg.page.geometry())
}

// DocxToPDF converts a DOCX document to PDF.
func (c *Converter) DocxToPDF(ctx context.Context, data []byte) (out []byte, err error) {
	defer recoverInternal(&err)

	if err := c.checkInput(data); err != nil {
		return nil, err
	}
	if isLegacyDoc(data) {
		return nil, ErrLegacyDoc
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	doc, err := c.markup.Convert(data)
	if err != nil {
		switch {
		case errors.Is(err, officex.ErrNotDocx):
			return nil, err
		case errors.Is(err, officex.ErrMissingPart):
			return nil, fmt.Errorf("%w: %w", ErrNotDocx, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return c.markupToPDF(ctx, doc.HTML, doc.Images)
}

// MarkdownToPDF converts Markdown to PDF.
// Relative image paths are resolved against input.SourceDir; images that
// cannot be loaded are logged and left out.
func (c *Converter) MarkdownToPDF(ctx context.Context, input MarkdownInput) (out []byte, err error) {
	defer recoverInternal(&err)

	if strings.TrimSpace(input.Markdown) == "" {
		return nil, ErrEmptyInput
	}
	if int64(len(input.Markdown)) > c.cfg.maxInputSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrInputTooLarge, len(input.Markdown), c.cfg.maxInputSize)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	md := c.preprocessor.PreprocessMarkdown(ctx, input.Markdown)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	htmlContent, err := c.htmlConverter.ToHTML(ctx, md)
	if err != nil {
		return nil, fmt.Errorf("converting to HTML: %w", err)
	}
	htmlContent = pipeline.ConvertMarkPlaceholders(htmlContent)

	htmlContent, images, err := pipeline.LocalImages(htmlContent, input.SourceDir, c.cfg.maxInputSize, func(src string, err error) {
		c.cfg.logger.Warn("skipping local image", "src", src, "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("loading local images: %w", err)
	}

	if input.Title != "" {
		return c.markupToPDF(ctx, htmlContent, images, pdfwrite.WithTitle(input.Title))
	}
	return c.markupToPDF(ctx, htmlContent, images)
}

// ImagesToPDF builds a PDF with one page per image. Each page is the image
// plus a 20pt margin, shrunk to stay within A4. Images are re-encoded as JPEG.
func (c *Converter) ImagesToPDF(ctx context.Context, images [][]byte) (out []byte, err error) {
	defer recoverInternal(&err)

	if len(images) == 0 {
		return nil, ErrNoImages
	}
	for i, data := range images {
		if err := c.checkInput(data); err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		if mime := raster.Sniff(data); !raster.IsSupportedMIME(mime) {
			return nil, fmt.Errorf("%w: image %d is %s", ErrUnsupportedImage, i+1, mime)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	encoded := make([]*raster.Image, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ResolvePoolSize(c.cfg.workers))
	for i, data := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := raster.Reencode(data, c.cfg.jpegQuality)
			if err != nil {
				return fmt.Errorf("%w: image %d: %w", ErrUnsupportedImage, i+1, err)
			}
			encoded[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pages := make([]compose.Page, len(encoded))
	for i, img := range encoded {
		pages[i] = compose.ImagePage(i, img)
	}

	out, err = c.pdfWriter().Write(pages, c.cfg.page.geometry())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return out, nil
}

// PDFToImages renders every page of a PDF to PNG, in page order.
func (c *Converter) PDFToImages(ctx context.Context, data []byte) (pages [][]byte, err error) {
	defer recoverInternal(&err)

	if err := c.checkInput(data); err != nil {
		return nil, err
	}
	if !isPDF(data) {
		return nil, ErrNotPDF
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	pages, err = c.rasterizer.Rasterize(ctx, data, c.cfg.dpi)
	if err != nil {
		if errors.Is(err, ErrRasterizerNotFound) || errors.Is(err, ErrNoPagesRendered) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRasterize, err)
	}
	return pages, nil
}

// RenderPDF lays blocks out on pages of geo and writes them as PDF.
func (c *Converter) RenderPDF(blocks []docmodel.Block, geo compose.Geometry, opts ...pdfwrite.Option) ([]byte, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	pages := compose.Layout(blocks, geo, c.metrics)
	c.cfg.logger.Debug("laid out document", "blocks", len(blocks), "pages", len(pages))

	out, err := c.pdfWriter(opts...).Write(pages, geo)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return out, nil
}

// RenderDocx writes blocks as a DOCX document with the page size and margin
// of geo. Pictures are bounded by the configured image box.
func (c *Converter) RenderDocx(blocks []docmodel.Block, geo compose.Geometry) ([]byte, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	w := docxwrite.New(
		docxwrite.WithLogger(c.cfg.logger),
		docxwrite.WithImageBox(c.cfg.imageBoxW, c.cfg.imageBoxH),
		docxwrite.WithPage(geo.WidthPt, geo.HeightPt, geo.MarginPt),
	)
	out, err := w.Write(blocks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return out, nil
}

// markupToPDF runs the markup bridge and renders the result.
func (c *Converter) markupToPDF(ctx context.Context, src string, images map[string][]byte, opts ...pdfwrite.Option) ([]byte, error) {
	frags := c.bridge.Parse(src, images)
	for name := range images {
		c.cfg.logger.Debug("image not referenced by markup", "name", name)
	}

	blocks, err := flow.Assemble([]flow.Page{{Fragments: frags}})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.RenderPDF(blocks, c.cfg.page.geometry(), opts...)
}

// normalizePages converts raw page images to PNG in parallel. Images that
// cannot be normalized are logged and dropped; page and image order is kept.
func (c *Converter) normalizePages(ctx context.Context, extracted []extractedPage) ([]flow.Page, error) {
	type slot struct{ page, index int }
	var slots []slot
	for p, ep := range extracted {
		for i := range ep.Images {
			slots = append(slots, slot{p, i})
		}
	}

	normalized := make([]*raster.Image, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ResolvePoolSize(c.cfg.workers))
	for n, s := range slots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := raster.Normalize(extracted[s.page].Images[s.index])
			if err != nil {
				c.cfg.logger.Warn("skipping image", "page", s.page+1, "image", s.index+1, "error", err)
				return nil
			}
			normalized[n] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pages := make([]flow.Page, len(extracted))
	n := 0
	for p, ep := range extracted {
		for range ep.Images {
			if normalized[n] != nil {
				pages[p].Images = append(pages[p].Images, normalized[n])
			}
			n++
		}
		if len(ep.Lines) > 0 {
			pages[p].Fragments = []docmodel.Fragment{{
				Text:       strings.Join(ep.Lines, "\n"),
				SourcePage: p + 1,
			}}
		}
	}
	return pages, nil
}

func (c *Converter) pdfWriter(opts ...pdfwrite.Option) *pdfwrite.Writer {
	base := []pdfwrite.Option{pdfwrite.WithLogger(c.cfg.logger)}
	if !c.cfg.created.IsZero() {
		base = append(base, pdfwrite.WithCreationDate(c.cfg.created))
	}
	return pdfwrite.New(append(base, opts...)...)
}

// checkInput rejects empty and oversized inputs.
func (c *Converter) checkInput(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyInput
	}
	if int64(len(data)) > c.cfg.maxInputSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrInputTooLarge, len(data), c.cfg.maxInputSize)
	}
	return nil
}

// recoverInternal turns a panic from a third-party parser into an error.
func recoverInternal(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("internal error: %v", r)
	}
}

var (
	pdfMagic = []byte("%PDF-")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// isPDF reports whether data starts with the PDF header, allowing leading
// whitespace.
func isPDF(data []byte) bool {
	head := data[:min(len(data), 1024)]
	return bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n\x00"), pdfMagic)
}

// isLegacyDoc reports whether data is an OLE compound file (Word 97-2003).
func isLegacyDoc(data []byte) bool {
	return bytes.HasPrefix(data, oleMagic)
}

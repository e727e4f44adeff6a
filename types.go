package docconv

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/alnah/go-docconv/internal/compose"
	"github.com/alnah/go-docconv/internal/docxwrite"
	"github.com/alnah/go-docconv/internal/raster"
)

// Page size constants.
const (
	PageSizeA4     = "a4"
	PageSizeLetter = "letter"
	PageSizeLegal  = "legal"
)

// Margin bounds in points.
const (
	MinMargin     = 0.0
	MaxMargin     = 144.0
	DefaultMargin = compose.DefaultMarginPt
)

// PageSettings configures the pages of generated PDFs.
type PageSettings struct {
	Size   string  // "a4", "letter", "legal"
	Margin float64 // points, applied to all sides
}

// DefaultPageSettings returns A4 pages with 50pt margins.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:   PageSizeA4,
		Margin: DefaultMargin,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}
	if _, _, ok := pageDimensions(p.Size); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
	}
	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.0f and %.0f)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
	}
	return nil
}

// geometry returns the layout geometry for p. A nil p yields the defaults.
func (p *PageSettings) geometry() compose.Geometry {
	if p == nil {
		return compose.A4()
	}
	w, h, ok := pageDimensions(p.Size)
	if !ok {
		w, h = compose.A4WidthPt, compose.A4HeightPt
	}
	return compose.NewGeometry(w, h, p.Margin, compose.DefaultMaxImageWidthPt, compose.DefaultMaxImageHeightPt)
}

// pageDimensions maps a page size name to points (case-insensitive).
func pageDimensions(size string) (w, h float64, ok bool) {
	switch strings.ToLower(size) {
	case PageSizeA4:
		return compose.A4WidthPt, compose.A4HeightPt, true
	case PageSizeLetter:
		return compose.LetterWidthPt, compose.LetterHeightPt, true
	case PageSizeLegal:
		return compose.LegalWidthPt, compose.LegalHeightPt, true
	}
	return 0, 0, false
}

// MarkdownInput contains Markdown conversion parameters.
type MarkdownInput struct {
	Markdown  string // Markdown content (required)
	SourceDir string // directory for relative image paths (optional)
	Title     string // PDF document title (optional)
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	timeout      time.Duration
	logger       *slog.Logger
	page         *PageSettings
	jpegQuality  int
	dpi          int
	maxInputSize int64
	imageBoxW    int
	imageBoxH    int
	pdftoppm     string
	created      time.Time
	workers      int
}

// Defaults for converter settings.
const (
	defaultTimeout      = 60 * time.Second
	DefaultDPI          = 150
	DefaultMaxInputSize = 10 << 20
	DefaultPdftoppm     = "pdftoppm"
)

func defaultConfig() converterConfig {
	return converterConfig{
		timeout:      defaultTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		page:         DefaultPageSettings(),
		jpegQuality:  raster.DefaultJPEGQuality,
		dpi:          DefaultDPI,
		maxInputSize: DefaultMaxInputSize,
		imageBoxW:    docxwrite.DefaultImageBoxWidthPx,
		imageBoxH:    docxwrite.DefaultImageBoxHeightPx,
		pdftoppm:     DefaultPdftoppm,
	}
}

// WithTimeout sets the per-conversion timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("docconv: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithLogger sets the logger for warnings about skipped images and stages.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.cfg.logger = l
		}
	}
}

// WithPage sets the page size and margin for generated PDFs.
func WithPage(p *PageSettings) Option {
	return func(c *Converter) {
		if p != nil {
			c.cfg.page = p
		}
	}
}

// WithJPEGQuality sets the quality used to re-encode images for ImagesToPDF.
func WithJPEGQuality(q int) Option {
	return func(c *Converter) {
		c.cfg.jpegQuality = q
	}
}

// WithDPI sets the rasterization resolution for PDFToImages.
func WithDPI(dpi int) Option {
	return func(c *Converter) {
		c.cfg.dpi = dpi
	}
}

// WithMaxInputSize sets the byte limit for each input document or image.
func WithMaxInputSize(n int64) Option {
	return func(c *Converter) {
		c.cfg.maxInputSize = n
	}
}

// WithDocxImageBox bounds pictures in generated DOCX files to w×h pixels.
func WithDocxImageBox(w, h int) Option {
	return func(c *Converter) {
		c.cfg.imageBoxW, c.cfg.imageBoxH = w, h
	}
}

// WithWorkers bounds how many images are normalized in parallel.
// Zero or less resolves from GOMAXPROCS (see ResolvePoolSize).
func WithWorkers(n int) Option {
	return func(c *Converter) {
		c.cfg.workers = n
	}
}

// WithRasterizer sets the pdftoppm executable used by PDFToImages.
func WithRasterizer(path string) Option {
	return func(c *Converter) {
		if path != "" {
			c.cfg.pdftoppm = path
		}
	}
}

// WithCreationDate fixes the creation date recorded in generated PDFs.
func WithCreationDate(t time.Time) Option {
	return func(c *Converter) {
		c.cfg.created = t
	}
}

// validate checks the options applied to a Converter.
func (cfg converterConfig) validate() error {
	if err := cfg.page.Validate(); err != nil {
		return err
	}
	if cfg.jpegQuality < 1 || cfg.jpegQuality > 100 {
		return fmt.Errorf("%w: %d (must be between 1 and 100)", ErrInvalidQuality, cfg.jpegQuality)
	}
	if cfg.dpi < 36 || cfg.dpi > 600 {
		return fmt.Errorf("%w: %d dpi (must be between 36 and 600)", ErrInvalidDPI, cfg.dpi)
	}
	if cfg.maxInputSize <= 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInputTooLarge)
	}
	if cfg.imageBoxW <= 0 || cfg.imageBoxH <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImageBox, cfg.imageBoxW, cfg.imageBoxH)
	}
	return nil
}

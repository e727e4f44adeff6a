package docconv

import (
	"errors"

	"github.com/alnah/go-docconv/internal/flow"
	"github.com/alnah/go-docconv/internal/officex"
)

// Sentinel errors for library operations.
var (
	// Input validation errors, reported before any conversion work starts.
	ErrEmptyInput       = errors.New("input is empty")
	ErrInputTooLarge    = errors.New("input exceeds size limit")
	ErrNotPDF           = errors.New("input is not a PDF document")
	ErrNotDocx          = officex.ErrNotDocx
	ErrLegacyDoc        = errors.New("legacy .doc files are not supported; save as .docx")
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrNoImages         = errors.New("no images to convert")

	// ErrNoExtractableContent means the document produced no blocks.
	ErrNoExtractableContent = flow.ErrNoExtractableContent

	// Conversion stage errors.
	ErrExtraction         = errors.New("content extraction failed")
	ErrRender             = errors.New("document rendering failed")
	ErrRasterize          = errors.New("PDF rasterization failed")
	ErrRasterizerNotFound = errors.New("pdftoppm not found")
	ErrNoPagesRendered    = errors.New("rasterizer produced no pages")

	// Settings validation errors.
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrInvalidMargin   = errors.New("invalid margin")
	ErrInvalidQuality  = errors.New("invalid JPEG quality")
	ErrInvalidDPI      = errors.New("invalid resolution")
	ErrInvalidImageBox = errors.New("invalid image box")
)

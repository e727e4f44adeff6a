package main

import (
	"errors"
	"os"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/config"
	"github.com/alnah/go-docconv/internal/fileutil"
)

// Exit codes for the docconv CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess    = 0 // Successful conversion
	ExitGeneral    = 1 // General/unexpected error
	ExitUsage      = 2 // Invalid flags, config, or input document
	ExitIO         = 3 // File not found, permission denied
	ExitRasterizer = 4 // pdftoppm missing or failing
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Rasterizer errors (exit 4)
	if errors.Is(err, docconv.ErrRasterizerNotFound) ||
		errors.Is(err, docconv.ErrRasterize) ||
		errors.Is(err, docconv.ErrNoPagesRendered) {
		return ExitRasterizer
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, fileutil.ErrNotRegular) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrCreateOutputDir) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage, config, and invalid input errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, fileutil.ErrFileTooLarge) ||
		errors.Is(err, docconv.ErrEmptyInput) ||
		errors.Is(err, docconv.ErrInputTooLarge) ||
		errors.Is(err, docconv.ErrNotPDF) ||
		errors.Is(err, docconv.ErrNotDocx) ||
		errors.Is(err, docconv.ErrLegacyDoc) ||
		errors.Is(err, docconv.ErrUnsupportedImage) ||
		errors.Is(err, docconv.ErrNoImages) ||
		errors.Is(err, docconv.ErrInvalidPageSize) ||
		errors.Is(err, docconv.ErrInvalidMargin) ||
		errors.Is(err, docconv.ErrInvalidQuality) ||
		errors.Is(err, docconv.ErrInvalidDPI) ||
		errors.Is(err, docconv.ErrInvalidImageBox) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidFlag) {
		return ExitUsage
	}

	return ExitGeneral
}

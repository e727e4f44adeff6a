package compose

import (
	"errors"
	"fmt"
)

// Sentinel errors for geometry validation.
var (
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrInvalidMargin   = errors.New("invalid margin")
	ErrInvalidImageBox = errors.New("invalid image box")
)

// Standard page sizes in points.
const (
	A4WidthPt      = 595.28
	A4HeightPt     = 841.89
	LetterWidthPt  = 612.0
	LetterHeightPt = 792.0
	LegalWidthPt   = 612.0
	LegalHeightPt  = 1008.0
)

// Default layout constants.
const (
	DefaultMarginPt         = 50.0
	DefaultMaxImageWidthPt  = 400.0
	DefaultMaxImageHeightPt = 300.0
)

// Geometry is the fixed page geometry for one layout run. All values are points.
type Geometry struct {
	WidthPt           float64
	HeightPt          float64
	MarginPt          float64
	MaxContentWidthPt float64
	MaxImageWidthPt   float64
	MaxImageHeightPt  float64
}

// NewGeometry builds a geometry whose content width is the page width minus
// both margins. The image box is clamped to the content area.
func NewGeometry(widthPt, heightPt, marginPt, imageWidthPt, imageHeightPt float64) Geometry {
	g := Geometry{
		WidthPt:           widthPt,
		HeightPt:          heightPt,
		MarginPt:          marginPt,
		MaxContentWidthPt: widthPt - 2*marginPt,
		MaxImageWidthPt:   imageWidthPt,
		MaxImageHeightPt:  imageHeightPt,
	}
	if g.MaxImageWidthPt > g.MaxContentWidthPt {
		g.MaxImageWidthPt = g.MaxContentWidthPt
	}
	if contentH := heightPt - 2*marginPt; g.MaxImageHeightPt > contentH {
		g.MaxImageHeightPt = contentH
	}
	return g
}

// A4 returns the default A4 portrait geometry.
func A4() Geometry {
	return NewGeometry(A4WidthPt, A4HeightPt, DefaultMarginPt, DefaultMaxImageWidthPt, DefaultMaxImageHeightPt)
}

// ContentHeight returns the vertical space between the top and bottom margins.
func (g Geometry) ContentHeight() float64 {
	return g.HeightPt - 2*g.MarginPt
}

// Validate checks that the geometry leaves room for content.
func (g Geometry) Validate() error {
	if g.WidthPt <= 0 || g.HeightPt <= 0 {
		return fmt.Errorf("%w: %.2fx%.2f", ErrInvalidPageSize, g.WidthPt, g.HeightPt)
	}
	if g.MarginPt < 0 || g.MaxContentWidthPt <= 0 || g.ContentHeight() <= 0 {
		return fmt.Errorf("%w: %.2f leaves no content area", ErrInvalidMargin, g.MarginPt)
	}
	if g.MaxImageWidthPt <= 0 || g.MaxImageHeightPt <= 0 {
		return fmt.Errorf("%w: %.2fx%.2f", ErrInvalidImageBox, g.MaxImageWidthPt, g.MaxImageHeightPt)
	}
	return nil
}

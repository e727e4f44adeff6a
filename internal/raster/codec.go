package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	// Register decoders for the formats accepted by FromEncoded and Decode.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is used by Reencode callers that do not override it.
const DefaultJPEGQuality = 90

// Sniff returns the MIME type detected from the leading bytes of data.
// WebP is recognized explicitly because older sniffers report it as
// application/octet-stream.
func Sniff(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}
	if len(data) >= 4 && (string(data[0:4]) == "II*\x00" || string(data[0:4]) == "MM\x00*") {
		return "image/tiff"
	}
	return http.DetectContentType(data)
}

// IsSupportedMIME reports whether mime names a format this package decodes.
func IsSupportedMIME(mime string) bool {
	switch strings.ToLower(mime) {
	case "image/png", "image/jpeg", "image/jpg", "image/gif", "image/webp", "image/bmp", "image/tiff":
		return true
	}
	return false
}

// FromEncoded wraps already-encoded image bytes.
// JPEG and non-interlaced PNG are passed through untouched; interlaced PNG
// and any other decodable format are re-encoded to plain PNG. The mime hint
// is only used in error messages.
func FromEncoded(data []byte, mimeHint string) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrUnsupportedFormat)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, mimeHint, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidBuffer, cfg.Width, cfg.Height)
	}

	switch {
	case format == "png" && !isInterlacedPNG(data):
		return &Image{Data: data, Width: cfg.Width, Height: cfg.Height, MIME: MIMEPNG}, nil
	case format == "jpeg":
		return &Image{Data: data, Width: cfg.Width, Height: cfg.Height, MIME: MIMEJPEG}, nil
	}
	return ToPNG(data)
}

// ToPNG decodes data and writes it back as a non-interlaced 8-bit PNG.
func ToPNG(data []byte) (*Image, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	out, err := encodePNG(dst)
	if err != nil {
		return nil, err
	}
	return &Image{Data: out, Width: b.Dx(), Height: b.Dy(), MIME: MIMEPNG}, nil
}

// isInterlacedPNG reads the interlace method from the IHDR chunk, which
// always directly follows the signature.
func isInterlacedPNG(data []byte) bool {
	const interlaceOffset = 8 + 8 + 12
	return len(data) > interlaceOffset && string(data[12:16]) == "IHDR" && data[interlaceOffset] != 0
}

// Decode decodes any registered image format.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return img, nil
}

// Reencode decodes data and writes it back as a baseline JPEG at the given
// quality. Transparent areas are flattened onto white.
func Reencode(data []byte, quality int) (*Image, error) {
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("%w: %d (must be 1-100)", ErrInvalidQuality, quality)
	}

	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	flat := Flatten(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	b := flat.Bounds()
	return &Image{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy(), MIME: MIMEJPEG}, nil
}

// Scale resamples img to w×h pixels. JPEG input stays JPEG at
// DefaultJPEGQuality; everything else comes back as PNG.
func Scale(img *Image, w, h int) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	if img.Width == w && img.Height == h {
		return img, nil
	}

	src, err := Decode(img.Data)
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	if img.MIME == MIMEJPEG {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: DefaultJPEGQuality}); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
		return &Image{Data: buf.Bytes(), Width: w, Height: h, MIME: MIMEJPEG}, nil
	}

	out, err := encodePNG(dst)
	if err != nil {
		return nil, err
	}
	return &Image{Data: out, Width: w, Height: h, MIME: MIMEPNG}, nil
}

// Package raster normalizes image data for embedding in generated documents.
//
// Raw pixel buffers (as found in PDF image XObjects) are converted to PNG,
// already-encoded images are passed through or re-encoded, and geometry
// helpers compute how an image fits inside a bounding box.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// Sentinel errors for image normalization.
var (
	ErrInvalidBuffer            = errors.New("pixel buffer does not match image dimensions")
	ErrUnsupportedChannelLayout = errors.New("unsupported channel layout")
	ErrUnsupportedFormat        = errors.New("unsupported image format")
	ErrInvalidQuality           = errors.New("invalid JPEG quality")
	ErrInvalidDimensions        = errors.New("invalid target dimensions")
)

// MIME types produced by this package.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

// Image is an encoded image ready for embedding.
type Image struct {
	Data   []byte
	Width  int
	Height int
	MIME   string
}

// RawPixels is an uncompressed 8-bit-per-channel pixel buffer.
type RawPixels struct {
	Data     []byte
	Width    int
	Height   int
	Channels int
}

// Normalize converts a raw pixel buffer to a PNG image.
// Three channels are read as RGB; any other positive count is read as RGBA,
// so buffers with one, two or four channels are accepted as long as their
// length is width*height*4.
func Normalize(raw RawPixels) (*Image, error) {
	if raw.Width <= 0 || raw.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidBuffer, raw.Width, raw.Height)
	}
	if raw.Channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedChannelLayout, raw.Channels)
	}

	channels := 4
	if raw.Channels == 3 {
		channels = 3
	}

	want := raw.Width * raw.Height * channels
	if len(raw.Data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidBuffer, len(raw.Data), want)
	}

	var img image.Image
	if channels == 3 {
		rgba := image.NewNRGBA(image.Rect(0, 0, raw.Width, raw.Height))
		for i, j := 0, 0; i < len(raw.Data); i, j = i+3, j+4 {
			rgba.Pix[j] = raw.Data[i]
			rgba.Pix[j+1] = raw.Data[i+1]
			rgba.Pix[j+2] = raw.Data[i+2]
			rgba.Pix[j+3] = 0xff
		}
		img = opaque(rgba)
	} else {
		rgba := image.NewNRGBA(image.Rect(0, 0, raw.Width, raw.Height))
		copy(rgba.Pix, raw.Data)
		img = rgba
	}

	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	return &Image{Data: data, Width: raw.Width, Height: raw.Height, MIME: MIMEPNG}, nil
}

// opaque copies an NRGBA image into an RGBA one so the PNG encoder
// writes a color type without an alpha channel.
func opaque(src *image.NRGBA) image.Image {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
	return dst
}

// Flatten composes img over a white background and drops the alpha channel.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// FitWithin returns the factor that scales a w×h image to fit inside a
// boxW×boxH box without upscaling, plus the resulting rounded dimensions.
func FitWithin(w, h, boxW, boxH float64) (scale, outW, outH float64) {
	if w <= 0 || h <= 0 {
		return 0, 0, 0
	}
	scale = math.Min(math.Min(boxW/w, boxH/h), 1)
	outW = math.Min(math.Round(w*scale), math.Floor(boxW))
	outH = math.Min(math.Round(h*scale), math.Floor(boxH))
	return scale, outW, outH
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

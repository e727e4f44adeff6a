package docconv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/alnah/go-docconv/internal/raster"
)

// Row grouping thresholds, relative to the font size of the row.
const (
	rowTolerance   = 0.5 // glyphs within this fraction share a row
	wordGapFactor  = 0.2 // horizontal gap that inserts a space
	blankGapFactor = 1.8 // vertical gap that inserts a blank line
)

// maxImagePixels bounds the pixel buffers decoded from image XObjects.
const maxImagePixels = 50_000_000

// pdfExtractor reads text rows and raw images with github.com/ledongthuc/pdf.
type pdfExtractor struct {
	logger *slog.Logger
}

// Extract returns the text lines and raw images of every page.
// Pages that fail to parse are logged and returned empty.
func (e *pdfExtractor) Extract(ctx context.Context, data []byte) ([]extractedPage, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	n := r.NumPage()
	pages := make([]extractedPage, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pages[i-1].Lines = e.pageLines(i, p)
		pages[i-1].Images = e.pageImages(i, p)
	}
	return pages, nil
}

// pageLines rebuilds text rows from positioned glyphs, top to bottom.
func (e *pdfExtractor) pageLines(num int, p pdf.Page) (lines []string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("skipping unreadable page text", "page", num, "error", r)
			lines = nil
		}
	}()

	texts := p.Content().Text
	if len(texts) == 0 {
		return nil
	}
	return rowsToLines(groupRows(texts))
}

type textRow struct {
	y     float64
	size  float64
	texts []pdf.Text
}

// groupRows buckets glyphs by baseline. Rows are sorted top to bottom and
// glyphs left to right.
func groupRows(texts []pdf.Text) []textRow {
	var rows []textRow
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		size := math.Max(t.FontSize, 1)
		found := false
		for i := range rows {
			if math.Abs(rows[i].y-t.Y) <= rowTolerance*math.Max(rows[i].size, size) {
				rows[i].texts = append(rows[i].texts, t)
				rows[i].size = math.Max(rows[i].size, size)
				found = true
				break
			}
		}
		if !found {
			rows = append(rows, textRow{y: t.Y, size: size, texts: []pdf.Text{t}})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })
	for _, row := range rows {
		sort.SliceStable(row.texts, func(i, j int) bool { return row.texts[i].X < row.texts[j].X })
	}
	return rows
}

// rowsToLines joins glyphs into lines. A vertical gap larger than a line
// and a half becomes a blank line, which ends a paragraph downstream.
func rowsToLines(rows []textRow) []string {
	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		if i > 0 {
			gap := rows[i-1].y - row.y
			if gap > blankGapFactor*math.Max(rows[i-1].size, row.size) {
				lines = append(lines, "")
			}
		}

		var sb strings.Builder
		end := math.Inf(-1)
		for _, t := range row.texts {
			if sb.Len() > 0 && t.X-end > wordGapFactor*math.Max(t.FontSize, 1) && !strings.HasPrefix(t.S, " ") {
				sb.WriteByte(' ')
			}
			sb.WriteString(t.S)
			end = t.X + t.W
		}
		if line := strings.TrimRight(sb.String(), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// pageImages collects raw pixel buffers from the page's image XObjects.
// Only 8-bit images with no filter or FlateDecode are read; others are
// logged and skipped.
func (e *pdfExtractor) pageImages(num int, p pdf.Page) []raster.RawPixels {
	xobjects := p.Resources().Key("XObject")
	if xobjects.Kind() != pdf.Dict {
		return nil
	}

	var images []raster.RawPixels
	for _, name := range xobjects.Keys() {
		obj := xobjects.Key(name)
		if obj.Key("Subtype").Name() != "Image" {
			continue
		}
		raw, err := readImage(obj)
		if err != nil {
			e.logger.Warn("skipping image", "page", num, "name", name, "error", err)
			continue
		}
		images = append(images, raw)
	}
	return images
}

// readImage decodes an image XObject stream into raw pixels.
func readImage(obj pdf.Value) (raw raster.RawPixels, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading image stream: %v", r)
		}
	}()

	w, h := int(obj.Key("Width").Int64()), int(obj.Key("Height").Int64())
	if w <= 0 || h <= 0 || w*h > maxImagePixels {
		return raw, fmt.Errorf("%w: %dx%d", raster.ErrInvalidBuffer, w, h)
	}
	if bpc := obj.Key("BitsPerComponent").Int64(); bpc != 8 {
		return raw, fmt.Errorf("%w: %d bits per component", raster.ErrUnsupportedChannelLayout, bpc)
	}
	if f := filterName(obj.Key("Filter")); f != "" && f != "FlateDecode" {
		return raw, fmt.Errorf("%w: filter %s", raster.ErrUnsupportedFormat, f)
	}

	channels, err := colorChannels(obj.Key("ColorSpace"))
	if err != nil {
		return raw, err
	}

	rc := obj.Reader()
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, int64(w*h*channels)+1))
	if err != nil {
		return raw, fmt.Errorf("reading image stream: %w", err)
	}

	if channels == 1 {
		data, channels = grayToRGB(data), 3
	}
	return raster.RawPixels{Data: data, Width: w, Height: h, Channels: channels}, nil
}

// filterName returns the single filter of a stream, or "" for none.
// Filter chains are reported by their first entry.
func filterName(v pdf.Value) string {
	switch v.Kind() {
	case pdf.Name:
		return v.Name()
	case pdf.Array:
		if v.Len() == 1 {
			return v.Index(0).Name()
		}
		if v.Len() > 1 {
			return v.Index(0).Name() + "+"
		}
	}
	return ""
}

// colorChannels maps a color space to its component count.
func colorChannels(cs pdf.Value) (int, error) {
	name := cs.Name()
	if cs.Kind() == pdf.Array && cs.Len() > 0 {
		name = cs.Index(0).Name()
		if name == "ICCBased" && cs.Len() > 1 {
			if n := int(cs.Index(1).Key("N").Int64()); n == 1 || n == 3 || n == 4 {
				return n, nil
			}
		}
	}
	switch name {
	case "DeviceGray", "CalGray":
		return 1, nil
	case "DeviceRGB", "CalRGB":
		return 3, nil
	case "DeviceCMYK":
		return 4, nil
	}
	return 0, fmt.Errorf("%w: color space %q", raster.ErrUnsupportedChannelLayout, name)
}

// grayToRGB replicates each gray sample into three channels.
func grayToRGB(gray []byte) []byte {
	out := make([]byte, 0, len(gray)*3)
	for _, g := range gray {
		out = append(out, g, g, g)
	}
	return out
}

package compose

import "github.com/alnah/go-docconv/internal/raster"

// Image page limits: a page wraps its image with ImagePageMarginPt on every
// side and is shrunk to stay within roughly A4.
const (
	ImagePageMarginPt    = 20
	ImagePageMaxWidthPt  = 595
	ImagePageMaxHeightPt = 842
)

// ImagePage returns a page sized to img plus a margin, holding one image
// command. Wide images are first scaled to the maximum width; if the result
// is still too tall, the height limit decides the scale instead.
func ImagePage(index int, img *raster.Image) Page {
	w, h := float64(img.Width), float64(img.Height)
	m := float64(ImagePageMarginPt)

	scale := 1.0
	if w+2*m > ImagePageMaxWidthPt {
		scale = (ImagePageMaxWidthPt - 2*m) / w
	}
	if (h+2*m)*scale > ImagePageMaxHeightPt {
		scale = (ImagePageMaxHeightPt - 2*m) / h
	}
	dw, dh := w*scale, h*scale

	return Page{
		Index:    index,
		WidthPt:  dw + 2*m,
		HeightPt: dh + 2*m,
		Commands: []Command{{Op: OpImage, X: m, Y: m, W: dw, H: dh, Image: img}},
	}
}

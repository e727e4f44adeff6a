package docxwrite

import (
	"archive/zip"
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alnah/go-docconv/internal/docmodel"
	"github.com/alnah/go-docconv/internal/raster"
)

func readParts(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening docx: %v", err)
	}
	parts := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", f.Name, err)
		}
		parts[f.Name] = string(b)
	}
	return parts
}

// ---------------------------------------------------------------------------
// Package structure
// ---------------------------------------------------------------------------

func TestWrite_RequiredParts(t *testing.T) {
	t.Parallel()

	out, err := New().Write([]docmodel.Block{{Kind: docmodel.Paragraph, Text: "x"}})
	if err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	parts := readParts(t, out)
	for _, name := range []string{partContentTypes, partRootRels, partDocument, partDocumentRels, partStyles, partNumbering} {
		if _, ok := parts[name]; !ok {
			t.Errorf("missing part %s", name)
		}
	}
}

func TestWrite_EmptyBody(t *testing.T) {
	t.Parallel()

	out, err := New().Write(nil)
	if err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	doc := readParts(t, out)[partDocument]
	if !strings.Contains(doc, "<w:body><w:p/><w:sectPr>") {
		t.Errorf("empty document body = %q, want a single empty paragraph", doc)
	}
}

// ---------------------------------------------------------------------------
// Paragraph formatting
// ---------------------------------------------------------------------------

func TestWrite_BlockFormatting(t *testing.T) {
	t.Parallel()

	blocks := []docmodel.Block{
		{Kind: docmodel.Heading, Level: 1, Text: "INTRODUCTION"},
		{Kind: docmodel.Heading, Level: 2, Text: "Background"},
		{Kind: docmodel.Paragraph, Text: "Fish & chips", Style: docmodel.Style{Italic: true, Underline: true}},
		{Kind: docmodel.ListItem, Marker: "•", Text: "bulleted"},
		{Kind: docmodel.ListItem, Marker: "2.", Text: "ordered"},
		{Kind: docmodel.PageBreak},
		{Kind: docmodel.Paragraph, Text: ""},
	}
	out, err := New().Write(blocks)
	if err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	doc := readParts(t, out)[partDocument]

	wants := []string{
		`<w:pStyle w:val="Heading1"/><w:spacing w:before="400" w:after="200"/></w:pPr><w:r><w:rPr><w:b/><w:sz w:val="32"/>`,
		`<w:pStyle w:val="Heading2"/><w:spacing w:before="400" w:after="200"/></w:pPr><w:r><w:rPr><w:b/><w:sz w:val="28"/>`,
		`<w:spacing w:after="200"/><w:jc w:val="both"/></w:pPr><w:r><w:rPr><w:i/><w:u w:val="single"/><w:sz w:val="24"/>`,
		`Fish &amp; chips`,
		`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr><w:spacing w:after="80"/>`,
		`>bulleted</w:t>`,
		`>2. ordered</w:t>`,
		`<w:br w:type="page"/>`,
	}
	for _, want := range wants {
		if !strings.Contains(doc, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}
	if n := strings.Count(doc, "<w:numPr>"); n != 1 {
		t.Errorf("numPr count = %d, want 1 (ordered items keep their marker as text)", n)
	}
	if n := strings.Count(doc, "<w:p>"); n != 6 {
		t.Errorf("paragraph count = %d, want 6 (empty paragraph dropped)", n)
	}
}

func TestWrite_SectionGeometry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{
			name: "default A4 with one inch margins",
			want: `<w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"`,
		},
		{
			name: "letter with 50pt margins",
			opts: []Option{WithPage(612, 792, 50)},
			want: `<w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="1000" w:right="1000" w:bottom="1000" w:left="1000"`,
		},
		{
			name: "invalid page ignored",
			opts: []Option{WithPage(0, 792, 50)},
			want: `<w:pgSz w:w="11906" w:h="16838"/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := New(tt.opts...).Write(nil)
			if err != nil {
				t.Fatalf("Write() unexpected error: %v", err)
			}
			if doc := readParts(t, out)[partDocument]; !strings.Contains(doc, tt.want) {
				t.Errorf("sectPr missing %q", tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

func TestWrite_Images(t *testing.T) {
	t.Parallel()

	blocks := []docmodel.Block{
		{Kind: docmodel.Image, Image: &raster.Image{Data: []byte("png-bytes"), Width: 1000, Height: 400, MIME: raster.MIMEPNG}},
		{Kind: docmodel.Image, Image: &raster.Image{Data: []byte("jpeg-bytes"), Width: 100, Height: 50, MIME: raster.MIMEJPEG}},
		{Kind: docmodel.Image, Image: &raster.Image{Data: []byte("garbage"), Width: 10, Height: 10, MIME: "image/bmp"}},
		{Kind: docmodel.Image, Image: nil},
	}

	var logs bytes.Buffer
	out, err := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil)))).Write(blocks)
	if err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	parts := readParts(t, out)

	if parts["word/media/image1.png"] != "png-bytes" {
		t.Error("first image not stored as word/media/image1.png")
	}
	if parts["word/media/image2.jpeg"] != "jpeg-bytes" {
		t.Error("second image not stored as word/media/image2.jpeg")
	}
	if len(parts) != 8 {
		t.Errorf("part count = %d, want 8 (6 XML parts and 2 images)", len(parts))
	}

	doc := parts[partDocument]
	// 1000x400 scales by 0.5 into the 500x400 box; 100x50 is never enlarged.
	if !strings.Contains(doc, `<wp:extent cx="4762500" cy="1905000"/>`) {
		t.Error("first image extent not scaled into the image box")
	}
	if !strings.Contains(doc, `<wp:extent cx="952500" cy="476250"/>`) {
		t.Error("second image extent changed, want natural size")
	}
	if !strings.Contains(doc, `<w:jc w:val="center"/>`) {
		t.Error("image paragraph not centered")
	}

	rels := parts[partDocumentRels]
	for _, want := range []string{`Id="rIdImg1"`, `Target="media/image1.png"`, `Id="rIdImg2"`, `Target="media/image2.jpeg"`} {
		if !strings.Contains(rels, want) {
			t.Errorf("document rels missing %q", want)
		}
	}
	if !strings.Contains(logs.String(), "skipping image") {
		t.Error("undecodable image was not logged")
	}
}

func TestWrite_DownscalesLargeImages(t *testing.T) {
	t.Parallel()

	var pngBuf, jpegBuf bytes.Buffer
	if err := png.Encode(&pngBuf, image.NewNRGBA(image.Rect(0, 0, 1000, 400))); err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(&jpegBuf, image.NewRGBA(image.Rect(0, 0, 800, 800)), nil); err != nil {
		t.Fatal(err)
	}
	small := &raster.Image{Data: []byte("tiny"), Width: 20, Height: 10, MIME: raster.MIMEPNG}

	blocks := []docmodel.Block{
		{Kind: docmodel.Image, Image: &raster.Image{Data: pngBuf.Bytes(), Width: 1000, Height: 400, MIME: raster.MIMEPNG}},
		{Kind: docmodel.Image, Image: &raster.Image{Data: jpegBuf.Bytes(), Width: 800, Height: 800, MIME: raster.MIMEJPEG}},
		{Kind: docmodel.Image, Image: small},
	}
	out, err := New().Write(blocks)
	if err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	parts := readParts(t, out)

	tests := []struct {
		part   string
		format string
		w, h   int
	}{
		{"word/media/image1.png", "png", 500, 200},
		{"word/media/image2.jpeg", "jpeg", 400, 400},
	}
	for _, tt := range tests {
		cfg, format, err := image.DecodeConfig(strings.NewReader(parts[tt.part]))
		if err != nil {
			t.Fatalf("decoding %s: %v", tt.part, err)
		}
		if format != tt.format || cfg.Width != tt.w || cfg.Height != tt.h {
			t.Errorf("%s = %s %dx%d, want %s %dx%d", tt.part, format, cfg.Width, cfg.Height, tt.format, tt.w, tt.h)
		}
	}
	if parts["word/media/image3.png"] != "tiny" {
		t.Error("image inside the box was not embedded unchanged")
	}
}

func TestWrite_UndecodableLargeImageKeptAtFullSize(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	img := &raster.Image{Data: []byte("opaque"), Width: 2000, Height: 1000, MIME: raster.MIMEPNG}
	out, err := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil)))).Write([]docmodel.Block{{Kind: docmodel.Image, Image: img}})
	if err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	parts := readParts(t, out)
	if parts["word/media/image1.png"] != "opaque" {
		t.Error("image bytes changed after a failed resample")
	}
	if !strings.Contains(parts[partDocument], `<wp:extent cx="4762500" cy="2381250"/>`) {
		t.Error("extent not scaled into the image box")
	}
	if !strings.Contains(logs.String(), "embedding image at full size") {
		t.Errorf("failed resample was not logged; logs: %s", logs.String())
	}
}

func TestWrite_ImageBoxOption(t *testing.T) {
	t.Parallel()

	img := &raster.Image{Data: []byte("x"), Width: 400, Height: 400, MIME: raster.MIMEPNG}
	out, err := New(WithImageBox(100, 200)).Write([]docmodel.Block{{Kind: docmodel.Image, Image: img}})
	if err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	doc := readParts(t, out)[partDocument]
	if !strings.Contains(doc, `<wp:extent cx="952500" cy="952500"/>`) {
		t.Error("image not bounded by the configured box")
	}
}

func TestWrite_Deterministic(t *testing.T) {
	t.Parallel()

	blocks := []docmodel.Block{
		{Kind: docmodel.Heading, Level: 1, Text: "TITLE"},
		{Kind: docmodel.Paragraph, Text: "body"},
		{Kind: docmodel.Image, Image: &raster.Image{Data: []byte("x"), Width: 4, Height: 4, MIME: raster.MIMEPNG}},
	}
	first, err := New().Write(blocks)
	if err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	second, err := New().Write(blocks)
	if err != nil {
		t.Fatalf("Write() second call: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Write() output differs for identical input")
	}
}

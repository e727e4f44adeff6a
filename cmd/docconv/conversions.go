package main

import (
	"context"
	"path/filepath"

	docconv "github.com/alnah/go-docconv"
)

// Accepted input extensions per document kind.
var (
	pdfExts      = []string{".pdf"}
	wordExts     = []string{".docx", ".doc"}
	markdownExts = []string{".md", ".markdown"}
	imageExts    = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp", ".tif", ".tiff"}
)

// inputFile is a document read from disk.
type inputFile struct {
	path string
	data []byte
}

// outputFile is a converted document ready to be written.
type outputFile struct {
	name string
	data []byte
}

// conversion describes one convert subcommand.
type conversion struct {
	use     string
	short   string
	example string
	exts    []string
	// combine turns every input into a single output instead of one per file.
	combine bool
	run     func(ctx context.Context, c *docconv.Converter, in []inputFile, prefix string) (outputFile, error)
}

// conversionCommands lists the convert subcommands.
func conversionCommands() []conversion {
	return []conversion{
		{
			use:     "pdf2docx <file.pdf|dir>...",
			short:   "Convert PDF documents to editable DOCX",
			example: "  docconv pdf2docx report.pdf\n  docconv pdf2docx -o out/ scans/",
			exts:    pdfExts,
			run:     runPDFToDocx,
		},
		{
			use:     "docx2pdf <file.docx|dir>...",
			short:   "Convert Word documents to PDF",
			example: "  docconv docx2pdf letter.docx --page-size letter",
			exts:    wordExts,
			run:     runDocxToPDF,
		},
		{
			use:     "md2pdf <file.md|dir>...",
			short:   "Convert Markdown documents to PDF",
			example: "  docconv md2pdf README.md\n  docconv md2pdf docs/ -o build/",
			exts:    markdownExts,
			run:     runMarkdownToPDF,
		},
		{
			use:     "img2pdf <image>...",
			short:   "Combine images into one PDF, one page per image",
			example: "  docconv img2pdf scan1.jpg scan2.png --quality 80",
			exts:    imageExts,
			combine: true,
			run:     runImagesToPDF,
		},
		{
			use:     "pdf2img <file.pdf|dir>...",
			short:   "Render PDF pages as PNG images (zip for several pages)",
			example: "  docconv pdf2img slides.pdf --dpi 200",
			exts:    pdfExts,
			run:     runPDFToImages,
		},
	}
}

func runPDFToDocx(ctx context.Context, c *docconv.Converter, in []inputFile, prefix string) (outputFile, error) {
	data, err := c.PDFToDocx(ctx, in[0].data)
	if err != nil {
		return outputFile{}, err
	}
	return outputFile{name: docconv.OutputName(in[0].path, prefix, "docx"), data: data}, nil
}

func runDocxToPDF(ctx context.Context, c *docconv.Converter, in []inputFile, prefix string) (outputFile, error) {
	data, err := c.DocxToPDF(ctx, in[0].data)
	if err != nil {
		return outputFile{}, err
	}
	return outputFile{name: docconv.OutputName(in[0].path, prefix, "pdf"), data: data}, nil
}

func runMarkdownToPDF(ctx context.Context, c *docconv.Converter, in []inputFile, prefix string) (outputFile, error) {
	data, err := c.MarkdownToPDF(ctx, docconv.MarkdownInput{
		Markdown:  string(in[0].data),
		SourceDir: filepath.Dir(in[0].path),
		Title:     docconv.BaseName(in[0].path),
	})
	if err != nil {
		return outputFile{}, err
	}
	return outputFile{name: docconv.OutputName(in[0].path, prefix, "pdf"), data: data}, nil
}

func runImagesToPDF(ctx context.Context, c *docconv.Converter, in []inputFile, prefix string) (outputFile, error) {
	images := make([][]byte, len(in))
	names := make([]string, len(in))
	for i, f := range in {
		images[i] = f.data
		names[i] = f.path
	}
	data, err := c.ImagesToPDF(ctx, images)
	if err != nil {
		return outputFile{}, err
	}
	return outputFile{name: docconv.ImagesOutputName(names, prefix), data: data}, nil
}

func runPDFToImages(ctx context.Context, c *docconv.Converter, in []inputFile, prefix string) (outputFile, error) {
	pages, err := c.PDFToImages(ctx, in[0].data)
	if err != nil {
		return outputFile{}, err
	}
	base := docconv.BaseName(in[0].path)
	data, err := docconv.PackPages(pages, base, prefix)
	if err != nil {
		return outputFile{}, err
	}
	name, _ := docconv.PackedName(len(pages), base, prefix)
	return outputFile{name: name, data: data}, nil
}

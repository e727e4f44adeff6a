// Package docconv converts documents between PDF, DOCX, Markdown and images
// without a browser or office suite.
//
// # Quick Start
//
//	conv, err := docconv.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	docx, err := conv.PDFToDocx(ctx, pdfBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("report.docx", docx, 0o644)
//
// # Conversions
//
//   - PDFToDocx: text rows and embedded images are read from the PDF,
//     rebuilt into headings, list items and paragraphs, and written as DOCX.
//   - DocxToPDF: the DOCX body is read as markup, bridged into blocks and
//     laid out on fixed-size pages.
//   - MarkdownToPDF: Markdown is rendered with Goldmark and follows the same
//     markup path; relative images are loaded from MarkdownInput.SourceDir.
//   - ImagesToPDF: one page per image, sized to the image plus a margin.
//   - PDFToImages: one PNG per page via poppler's pdftoppm. PackPages bundles
//     several pages into a zip archive.
//
// All text-bearing conversions share one model: extracted fragments are
// classified into blocks (heading, list item, paragraph, image, page break),
// assembled into a flow, and rendered by the page compositor or the DOCX
// writer.
//
// # Configuration
//
//	conv, err := docconv.NewConverter(
//	    docconv.WithTimeout(2 * time.Minute),
//	    docconv.WithPage(&docconv.PageSettings{Size: "letter", Margin: 72}),
//	    docconv.WithLogger(slog.Default()),
//	)
//
// Images that cannot be decoded are logged through the configured logger
// and left out; they never fail a conversion.
//
// # Parallel Processing
//
// A Converter is not safe for concurrent use. Use a Pool to give each
// goroutine its own converter:
//
//	pool := docconv.NewPool(docconv.ResolvePoolSize(0))
//	defer pool.Close()
//
//	conv, err := pool.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(conv)
//
// # Error Handling
//
// Invalid input is reported with sentinel errors checked via errors.Is:
// ErrEmptyInput, ErrInputTooLarge, ErrNotPDF, ErrNotDocx, ErrLegacyDoc,
// ErrUnsupportedImage and ErrNoImages. ErrNoExtractableContent means the
// document held nothing to render.
package docconv

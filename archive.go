package docconv

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// DefaultOutputPrefix is prepended to generated file names.
const DefaultOutputPrefix = "docconv-"

// Content types of conversion outputs.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePNG  = "image/png"
	ContentTypeZip  = "application/zip"
)

// archiveModified is stamped on every archive entry so identical pages pack
// to identical bytes.
var archiveModified = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// PackPages bundles rendered pages. A single page is returned as is; more
// pages are zipped at maximum compression with entries named
// <prefix><base>_page_NNN.png.
func PackPages(pages [][]byte, baseName, prefix string) ([]byte, error) {
	switch len(pages) {
	case 0:
		return nil, ErrNoPagesRendered
	case 1:
		return pages[0], nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for i, page := range pages {
		hdr := &zip.FileHeader{
			Name:     fmt.Sprintf("%s%s_page_%03d.png", prefix, baseName, i+1),
			Method:   zip.Deflate,
			Modified: archiveModified,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("creating archive entry: %w", err)
		}
		if _, err := w.Write(page); err != nil {
			return nil, fmt.Errorf("writing archive entry: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return buf.Bytes(), nil
}

// PackedName returns the file name and content type PackPages output should
// be saved under for the given page count.
func PackedName(pageCount int, baseName, prefix string) (name, contentType string) {
	if pageCount == 1 {
		return prefix + baseName + ".png", ContentTypePNG
	}
	return prefix + baseName + "_images.zip", ContentTypeZip
}

// OutputName builds "<prefix><base>.<ext>" from an input file name.
func OutputName(inputName, prefix, ext string) string {
	return prefix + BaseName(inputName) + "." + strings.TrimPrefix(ext, ".")
}

// BaseName strips directories and the extension from a file name.
// Both slash styles are accepted since names may come from uploads.
// Empty results fall back to "document".
func BaseName(inputName string) string {
	base := path.Base(strings.ReplaceAll(inputName, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "document"
	}
	return base
}

// ImagesOutputName names the PDF built from images: the single image's base
// name, or "images" when several images are combined.
func ImagesOutputName(inputNames []string, prefix string) string {
	if len(inputNames) == 1 {
		return OutputName(inputNames[0], prefix, "pdf")
	}
	return prefix + "images.pdf"
}

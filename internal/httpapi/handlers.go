package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	docconv "github.com/alnah/go-docconv"
)

// Sentinel errors for upload validation.
var (
	ErrMissingFile     = errors.New("no file uploaded")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrTooManyFiles    = errors.New("too many files")
	ErrBadForm         = errors.New("malformed multipart form")
)

// Accepted upload media types per endpoint.
var (
	pdfTypes = map[string]bool{
		"application/pdf": true,
	}
	wordTypes = map[string]bool{
		docconv.ContentTypeDocx: true,
		"application/msword":    true,
	}
	imageTypes = map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/webp": true,
		"image/gif":  true,
		"image/bmp":  true,
		"image/tiff": true,
	}
)

// upload is one file read from the form.
type upload struct {
	name string
	data []byte
}

// document is a converted file ready to be sent.
type document struct {
	name        string
	contentType string
	data        []byte
}

// convertFunc runs one conversion on a pooled converter.
type convertFunc func(ctx context.Context, c *docconv.Converter, files []upload) (document, error)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePDFToDocx(w http.ResponseWriter, r *http.Request) {
	s.serveConversion(w, r, "file", pdfTypes, false, func(ctx context.Context, c *docconv.Converter, files []upload) (document, error) {
		data, err := c.PDFToDocx(ctx, files[0].data)
		if err != nil {
			return document{}, err
		}
		return document{
			name:        docconv.OutputName(files[0].name, s.prefix, "docx"),
			contentType: docconv.ContentTypeDocx,
			data:        data,
		}, nil
	})
}

func (s *Server) handleWordToPDF(w http.ResponseWriter, r *http.Request) {
	s.serveConversion(w, r, "file", wordTypes, false, func(ctx context.Context, c *docconv.Converter, files []upload) (document, error) {
		data, err := c.DocxToPDF(ctx, files[0].data)
		if err != nil {
			return document{}, err
		}
		return document{
			name:        docconv.OutputName(files[0].name, s.prefix, "pdf"),
			contentType: docconv.ContentTypePDF,
			data:        data,
		}, nil
	})
}

func (s *Server) handleImagesToPDF(w http.ResponseWriter, r *http.Request) {
	s.serveConversion(w, r, "files", imageTypes, true, func(ctx context.Context, c *docconv.Converter, files []upload) (document, error) {
		images := make([][]byte, len(files))
		names := make([]string, len(files))
		for i, f := range files {
			images[i] = f.data
			names[i] = f.name
		}
		data, err := c.ImagesToPDF(ctx, images)
		if err != nil {
			return document{}, err
		}
		return document{
			name:        docconv.ImagesOutputName(names, s.prefix),
			contentType: docconv.ContentTypePDF,
			data:        data,
		}, nil
	})
}

func (s *Server) handlePDFToImages(w http.ResponseWriter, r *http.Request) {
	s.serveConversion(w, r, "file", pdfTypes, false, func(ctx context.Context, c *docconv.Converter, files []upload) (document, error) {
		pages, err := c.PDFToImages(ctx, files[0].data)
		if err != nil {
			return document{}, err
		}
		base := docconv.BaseName(files[0].name)
		data, err := docconv.PackPages(pages, base, s.prefix)
		if err != nil {
			return document{}, err
		}
		name, contentType := docconv.PackedName(len(pages), base, s.prefix)
		return document{name: name, contentType: contentType, data: data}, nil
	})
}

// serveConversion reads the uploads, runs convert on a pooled converter,
// and writes the result or a JSON error.
func (s *Server) serveConversion(w http.ResponseWriter, r *http.Request, field string, allowed map[string]bool, multi bool, convert convertFunc) {
	logger := s.loggerFrom(r.Context())

	files, err := s.readUploads(w, r, field, allowed, multi)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	c, err := s.pool.Acquire(r.Context())
	if err != nil {
		s.writeFailure(w, r, fmt.Errorf("acquiring converter: %w", err))
		return
	}
	defer s.pool.Release(c)

	doc, err := convert(r.Context(), c, files)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	logger.Debug("converted", "files", len(files), "output", doc.name, "bytes", len(doc.data))

	h := w.Header()
	h.Set("Content-Type", doc.contentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.name}))
	h.Set("Content-Length", strconv.Itoa(len(doc.data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.data)
}

// readUploads parses the multipart form and returns the files under field.
// Without multi only the first file is used.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request, field string, allowed map[string]bool, multi bool) ([]upload, error) {
	maxFiles := 1
	if multi {
		maxFiles = s.maxFiles
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload*int64(maxFiles)+formOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("%w: request larger than %d bytes", ErrFileTooLarge, tooBig.Limit)
		}
		return nil, fmt.Errorf("%w: %v", ErrBadForm, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: expected form field %q", ErrMissingFile, field)
	}
	if !multi {
		headers = headers[:1]
	}
	if len(headers) > maxFiles {
		return nil, fmt.Errorf("%w: %d (maximum is %d)", ErrTooManyFiles, len(headers), maxFiles)
	}

	files := make([]upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > s.maxUpload {
			return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, fh.Filename, fh.Size, s.maxUpload)
		}
		if mt := mediaType(fh); !allowed[mt] {
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, fh.Filename, mt)
		}
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, upload{name: fh.Filename, data: data})
	}
	return files, nil
}

// mediaType returns the declared type of a part, guessing from the file
// extension when the client sent none or a generic one.
func mediaType(fh *multipart.FileHeader) string {
	mt, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err == nil && mt != "application/octet-stream" {
		return strings.ToLower(mt)
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".docx":
		return docconv.ContentTypeDocx
	case ".doc":
		return "application/msword"
	}
	guessed, _, err := mime.ParseMediaType(mime.TypeByExtension(filepath.Ext(fh.Filename)))
	if err != nil {
		return ""
	}
	return strings.ToLower(guessed)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}

// statusFor maps an error to its HTTP status: 400 for input the client can
// fix, 500 for everything else.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingFile),
		errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrFileTooLarge),
		errors.Is(err, ErrTooManyFiles),
		errors.Is(err, ErrBadForm),
		errors.Is(err, docconv.ErrEmptyInput),
		errors.Is(err, docconv.ErrInputTooLarge),
		errors.Is(err, docconv.ErrNotPDF),
		errors.Is(err, docconv.ErrNotDocx),
		errors.Is(err, docconv.ErrLegacyDoc),
		errors.Is(err, docconv.ErrUnsupportedImage),
		errors.Is(err, docconv.ErrNoImages),
		errors.Is(err, docconv.ErrNoExtractableContent):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeFailure logs err and answers with its status. Server-side details
// stay in the log.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.loggerFrom(r.Context()).Error("conversion failed", "error", err)
		msg = "conversion failed"
	} else {
		s.loggerFrom(r.Context()).Warn("rejected upload", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

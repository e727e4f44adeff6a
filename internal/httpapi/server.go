// Package httpapi serves the document conversions over HTTP.
//
// Every endpoint takes a multipart/form-data upload and answers with the
// converted document as an attachment, or with {"error": "..."} and status
// 400 for unusable input or 500 for failures on the server side.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	docconv "github.com/alnah/go-docconv"
)

// Defaults for a Server.
const (
	DefaultMaxUploadSize = docconv.DefaultMaxInputSize
	DefaultMaxFiles      = 50
	// multipartMemory is held in memory before parts spill to temp files.
	multipartMemory = 32 << 20
	// formOverhead covers multipart boundaries and part headers.
	formOverhead = 1 << 20
)

// Pool hands out converters, one per request.
type Pool interface {
	Acquire(ctx context.Context) (*docconv.Converter, error)
	Release(*docconv.Converter)
}

// Compile-time interface implementation check.
var _ Pool = (*docconv.Pool)(nil)

// Server routes conversion requests to pooled converters.
type Server struct {
	pool      Pool
	logger    *slog.Logger
	maxUpload int64
	maxFiles  int
	prefix    string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxUploadSize limits each uploaded file, in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithMaxFiles limits how many images one image-to-pdf request may carry.
func WithMaxFiles(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxFiles = n
		}
	}
}

// WithOutputPrefix sets the prefix of returned file names.
func WithOutputPrefix(p string) Option {
	return func(s *Server) {
		s.prefix = p
	}
}

// New creates a Server backed by pool.
func New(pool Pool, opts ...Option) *Server {
	s := &Server{
		pool:      pool,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxUpload: DefaultMaxUploadSize,
		maxFiles:  DefaultMaxFiles,
		prefix:    docconv.DefaultOutputPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed, logged HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/convert", s.handlePDFToDocx)
	mux.HandleFunc("POST /api/word-to-pdf", s.handleWordToPDF)
	mux.HandleFunc("POST /api/image-to-pdf", s.handleImagesToPDF)
	mux.HandleFunc("POST /api/pdf-to-image", s.handlePDFToImages)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withRequestLog(mux)
}

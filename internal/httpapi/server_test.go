package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docconv "github.com/alnah/go-docconv"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type part struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	pool := docconv.NewPool(2)
	t.Cleanup(func() { _ = pool.Close() })
	return New(pool, opts...).Handler()
}

func post(t *testing.T, h http.Handler, path string, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xcc
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func textPDF(t *testing.T) []byte {
	t.Helper()
	c, err := docconv.NewConverter()
	require.NoError(t, err)
	out, err := c.MarkdownToPDF(context.Background(), docconv.MarkdownInput{
		Markdown: "# Summary\n\nHello from the server test.\n",
	})
	require.NoError(t, err)
	return out
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/convert", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDs_AreUnique(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	seen := make(map[string]bool)
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		id := rec.Header().Get(RequestIDHeader)
		assert.False(t, seen[id], "duplicate request id %s", id)
		seen[id] = true
	}
}

// ---------------------------------------------------------------------------
// Upload validation
// ---------------------------------------------------------------------------

func TestUploads_Rejected(t *testing.T) {
	t.Parallel()

	pdfBytes := []byte("%PDF-1.4 small")
	legacyDoc := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 64)...)

	tests := []struct {
		name    string
		path    string
		parts   []part
		opts    []Option
		wantMsg string
	}{
		{
			name:    "missing file field",
			path:    "/api/convert",
			parts:   []part{{field: "other", filename: "a.pdf", contentType: "application/pdf", data: pdfBytes}},
			wantMsg: "no file uploaded",
		},
		{
			name:    "wrong type for pdf endpoint",
			path:    "/api/convert",
			parts:   []part{{field: "file", filename: "a.png", contentType: "image/png", data: pngBytes(t, 2, 2)}},
			wantMsg: "unsupported file type",
		},
		{
			name:    "pdf type with non-pdf bytes",
			path:    "/api/convert",
			parts:   []part{{field: "file", filename: "a.pdf", contentType: "application/pdf", data: []byte("hello")}},
			wantMsg: "not a PDF",
		},
		{
			name:    "empty pdf",
			path:    "/api/pdf-to-image",
			parts:   []part{{field: "file", filename: "a.pdf", contentType: "application/pdf"}},
			wantMsg: "empty",
		},
		{
			name:    "legacy word document",
			path:    "/api/word-to-pdf",
			parts:   []part{{field: "file", filename: "old.doc", contentType: "application/msword", data: legacyDoc}},
			wantMsg: "legacy",
		},
		{
			name:    "file over size limit",
			path:    "/api/image-to-pdf",
			parts:   []part{{field: "files", filename: "big.png", contentType: "image/png", data: pngBytes(t, 64, 64)}},
			opts:    []Option{WithMaxUploadSize(16)},
			wantMsg: "size limit",
		},
		{
			name: "too many images",
			path: "/api/image-to-pdf",
			parts: []part{
				{field: "files", filename: "a.png", contentType: "image/png", data: pngBytes(t, 2, 2)},
				{field: "files", filename: "b.png", contentType: "image/png", data: pngBytes(t, 2, 2)},
			},
			opts:    []Option{WithMaxFiles(1)},
			wantMsg: "too many files",
		},
		{
			name:    "image type with garbage bytes",
			path:    "/api/image-to-pdf",
			parts:   []part{{field: "files", filename: "a.png", contentType: "image/png", data: []byte("not an image")}},
			wantMsg: "unsupported image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := post(t, newTestServer(t, tt.opts...), tt.path, tt.parts...)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorMessage(t, rec), tt.wantMsg)
		})
	}
}

func TestUploads_TypeGuessedFromExtension(t *testing.T) {
	t.Parallel()

	// application/octet-stream falls back to the file extension.
	rec := post(t, newTestServer(t), "/api/image-to-pdf",
		part{field: "files", filename: "scan.png", contentType: "application/octet-stream", data: pngBytes(t, 4, 4)})
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func TestImageToPDF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		parts    []part
		wantName string
	}{
		{
			name:     "single image keeps its name",
			parts:    []part{{field: "files", filename: "scan.png", contentType: "image/png", data: pngBytes(t, 8, 6)}},
			wantName: "docconv-scan.pdf",
		},
		{
			name: "several images",
			parts: []part{
				{field: "files", filename: "a.png", contentType: "image/png", data: pngBytes(t, 8, 6)},
				{field: "files", filename: "b.png", contentType: "image/png", data: pngBytes(t, 6, 8)},
			},
			wantName: "docconv-images.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := post(t, newTestServer(t), "/api/image-to-pdf", tt.parts...)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			assert.Equal(t, docconv.ContentTypePDF, rec.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename=`+tt.wantName, rec.Header().Get("Content-Disposition"))
			assert.Equal(t, strconv.Itoa(rec.Body.Len()), rec.Header().Get("Content-Length"))
			assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
		})
	}
}

func TestConvert_PDFToDocx(t *testing.T) {
	t.Parallel()

	rec := post(t, newTestServer(t, WithOutputPrefix("out-")), "/api/convert",
		part{field: "file", filename: "report.pdf", contentType: "application/pdf", data: textPDF(t)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, docconv.ContentTypeDocx, rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=out-report.docx", rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

type closedPool struct{}

func (closedPool) Acquire(context.Context) (*docconv.Converter, error) {
	return nil, docconv.ErrPoolClosed
}

func (closedPool) Release(*docconv.Converter) {}

func TestConversion_PoolFailureIs500(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	h := New(closedPool{}, WithLogger(newTestLogger(&logs))).Handler()
	rec := post(t, h, "/api/image-to-pdf",
		part{field: "files", filename: "a.png", contentType: "image/png", data: pngBytes(t, 2, 2)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "conversion failed", errorMessage(t, rec))
	assert.Contains(t, logs.String(), "pool is closed")
	assert.Contains(t, logs.String(), "request_id=")
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{docconv.ErrNoExtractableContent, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", docconv.ErrNotDocx), http.StatusBadRequest},
		{ErrMissingFile, http.StatusBadRequest},
		{docconv.ErrRasterizerNotFound, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusInternalServerError},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "statusFor(%v)", tt.err)
	}
}

package docconv

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestPackPages(t *testing.T) {
	t.Parallel()

	t.Run("no pages", func(t *testing.T) {
		t.Parallel()

		if _, err := PackPages(nil, "report", DefaultOutputPrefix); !errors.Is(err, ErrNoPagesRendered) {
			t.Errorf("PackPages(nil) error = %v, want ErrNoPagesRendered", err)
		}
	})

	t.Run("single page returned as is", func(t *testing.T) {
		t.Parallel()

		page := []byte("\x89PNG page")
		got, err := PackPages([][]byte{page}, "report", DefaultOutputPrefix)
		if err != nil {
			t.Fatalf("PackPages() unexpected error: %v", err)
		}
		if !bytes.Equal(got, page) {
			t.Errorf("PackPages() = %q, want the page itself", got)
		}
	})

	t.Run("several pages zipped", func(t *testing.T) {
		t.Parallel()

		pages := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
		got, err := PackPages(pages, "report", "x-")
		if err != nil {
			t.Fatalf("PackPages() unexpected error: %v", err)
		}

		zr, err := zip.NewReader(bytes.NewReader(got), int64(len(got)))
		if err != nil {
			t.Fatalf("reading archive: %v", err)
		}
		wantNames := []string{"x-report_page_001.png", "x-report_page_002.png", "x-report_page_003.png"}
		if len(zr.File) != len(wantNames) {
			t.Fatalf("archive has %d entries, want %d", len(zr.File), len(wantNames))
		}
		for i, f := range zr.File {
			if f.Name != wantNames[i] {
				t.Errorf("entry %d name = %q, want %q", i, f.Name, wantNames[i])
			}
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("opening %s: %v", f.Name, err)
			}
			data, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				t.Fatalf("reading %s: %v", f.Name, err)
			}
			if !bytes.Equal(data, pages[i]) {
				t.Errorf("entry %s = %q, want %q", f.Name, data, pages[i])
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		pages := [][]byte{[]byte("a"), []byte("b")}
		first, err := PackPages(pages, "doc", "")
		if err != nil {
			t.Fatalf("PackPages() unexpected error: %v", err)
		}
		second, err := PackPages(pages, "doc", "")
		if err != nil {
			t.Fatalf("PackPages() unexpected error: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Error("PackPages() output differs between identical calls")
		}
	})
}

func TestOutputNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"pdf to docx", OutputName("/tmp/in/Report.pdf", DefaultOutputPrefix, "docx"), "docconv-Report.docx"},
		{"extension with dot", OutputName("notes.md", "", ".pdf"), "notes.pdf"},
		{"windows upload name", OutputName(`C:\Users\me\memo.docx`, "p-", "pdf"), "p-memo.pdf"},
		{"no base name", OutputName("", "p-", "pdf"), "p-document.pdf"},
		{"single image", ImagesOutputName([]string{"scan.jpg"}, "p-"), "p-scan.pdf"},
		{"several images", ImagesOutputName([]string{"a.png", "b.png"}, "p-"), "p-images.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestPackedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pages    int
		wantName string
		wantType string
	}{
		{1, "docconv-deck.png", ContentTypePNG},
		{2, "docconv-deck_images.zip", ContentTypeZip},
	}

	for _, tt := range tests {
		name, ct := PackedName(tt.pages, "deck", DefaultOutputPrefix)
		if name != tt.wantName || ct != tt.wantType {
			t.Errorf("PackedName(%d) = %q, %q; want %q, %q", tt.pages, name, ct, tt.wantName, tt.wantType)
		}
	}
}

// ---------------------------------------------------------------------------
// TestRasterizer
// ---------------------------------------------------------------------------

func TestReadPages_NumericOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"page-10.png", "page-2.png", "page-1.png", "input.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	pages, err := readPages(dir)
	if err != nil {
		t.Fatalf("readPages() unexpected error: %v", err)
	}
	want := []string{"page-1.png", "page-2.png", "page-10.png"}
	if len(pages) != len(want) {
		t.Fatalf("readPages() returned %d pages, want %d", len(pages), len(want))
	}
	for i, p := range pages {
		if string(p) != want[i] {
			t.Errorf("page %d = %q, want %q", i+1, p, want[i])
		}
	}
}

func TestReadPages_Empty(t *testing.T) {
	t.Parallel()

	if _, err := readPages(t.TempDir()); !errors.Is(err, ErrNoPagesRendered) {
		t.Errorf("readPages() error = %v, want ErrNoPagesRendered", err)
	}
}

func TestRasterizerAvailable_Missing(t *testing.T) {
	t.Parallel()

	_, err := RasterizerAvailable("docconv-no-such-binary")
	if !errors.Is(err, ErrRasterizerNotFound) {
		t.Errorf("RasterizerAvailable() error = %v, want ErrRasterizerNotFound", err)
	}
}

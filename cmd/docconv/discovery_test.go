package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

// ---------------------------------------------------------------------------
// TestDiscoverJobs - Files, directories, and combining
// ---------------------------------------------------------------------------

func TestDiscoverJobs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "sub", "b.PDF")
	notes := filepath.Join(dir, "notes.txt")
	touch(t, a, b, notes)

	t.Run("single file outputs next to input", func(t *testing.T) {
		t.Parallel()

		jobs, err := discoverJobs([]string{a}, pdfExts, false, "")
		if err != nil {
			t.Fatalf("discoverJobs() unexpected error: %v", err)
		}
		want := []job{{inputs: []string{a}, outputDir: dir}}
		if !reflect.DeepEqual(jobs, want) {
			t.Errorf("discoverJobs() = %+v, want %+v", jobs, want)
		}
	})

	t.Run("directory is walked and mirrored", func(t *testing.T) {
		t.Parallel()

		out := filepath.Join(dir, "out")
		jobs, err := discoverJobs([]string{dir}, pdfExts, false, out)
		if err != nil {
			t.Fatalf("discoverJobs() unexpected error: %v", err)
		}
		want := []job{
			{inputs: []string{a}, outputDir: out},
			{inputs: []string{b}, outputDir: filepath.Join(out, "sub")},
		}
		if !reflect.DeepEqual(jobs, want) {
			t.Errorf("discoverJobs() = %+v, want %+v", jobs, want)
		}
	})

	t.Run("combine merges inputs in order", func(t *testing.T) {
		t.Parallel()

		jobs, err := discoverJobs([]string{b, a}, pdfExts, true, "")
		if err != nil {
			t.Fatalf("discoverJobs() unexpected error: %v", err)
		}
		if len(jobs) != 1 {
			t.Fatalf("len(jobs) = %d, want 1", len(jobs))
		}
		if !reflect.DeepEqual(jobs[0].inputs, []string{b, a}) {
			t.Errorf("inputs = %v, want [%s %s]", jobs[0].inputs, b, a)
		}
		if jobs[0].outputDir != filepath.Dir(b) {
			t.Errorf("outputDir = %q, want %q", jobs[0].outputDir, filepath.Dir(b))
		}
		if got := jobs[0].label(); got != "2 files" {
			t.Errorf("label() = %q, want %q", got, "2 files")
		}
	})
}

func TestDiscoverJobs_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	touch(t, notes)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"no arguments", nil, ErrNoInput},
		{"wrong extension", []string{notes}, ErrInvalidExtension},
		{"missing file", []string{filepath.Join(dir, "nope.pdf")}, os.ErrNotExist},
		{"directory without matches", []string{dir}, ErrNoInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := discoverJobs(tt.args, pdfExts, false, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("discoverJobs() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveOutputDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, input, outputDir, base, want string
	}{
		{"next to input", "docs/a.md", "", "", "docs"},
		{"flat output dir", "docs/a.md", "out", "", "out"},
		{"mirrored tree", "docs/guide/a.md", "out", "docs", filepath.Join("out", "guide")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := resolveOutputDir(tt.input, tt.outputDir, tt.base); got != tt.want {
				t.Errorf("resolveOutputDir(%q, %q, %q) = %q, want %q", tt.input, tt.outputDir, tt.base, got, tt.want)
			}
		})
	}
}

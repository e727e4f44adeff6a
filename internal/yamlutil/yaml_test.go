package yamlutil_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-docconv/internal/yamlutil"
)

type rasterSection struct {
	DPI     int    `yaml:"dpi"`
	Binary  string `yaml:"pdftoppm"`
	Enabled bool   `yaml:"enabled"`
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict - Parses YAML and rejects unknown fields
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
		check   func(t *testing.T, v any)
	}{
		{
			name: "known fields",
			data: []byte("dpi: 300\npdftoppm: /usr/bin/pdftoppm\nenabled: true"),
			dest: &rasterSection{},
			check: func(t *testing.T, v any) {
				got := v.(*rasterSection)
				if got.DPI != 300 || got.Binary != "/usr/bin/pdftoppm" || !got.Enabled {
					t.Errorf("decoded = %+v, want dpi 300, binary set, enabled", got)
				}
			},
		},
		{
			name: "absent fields keep existing values",
			data: []byte("dpi: 72"),
			dest: &rasterSection{Binary: "pdftoppm"},
			check: func(t *testing.T, v any) {
				got := v.(*rasterSection)
				if got.Binary != "pdftoppm" {
					t.Errorf("Binary = %q, want %q", got.Binary, "pdftoppm")
				}
			},
		},
		{
			name:    "unknown field causes error",
			data:    []byte("dpi: 150\ndpii: 300"),
			dest:    &rasterSection{},
			wantErr: errors.New("yamlutil:"),
		},
		{
			name:    "invalid syntax",
			data:    []byte("dpi: [unclosed"),
			dest:    &rasterSection{},
			wantErr: errors.New("yamlutil:"),
		},
		{
			name:    "nil data",
			data:    nil,
			dest:    &rasterSection{},
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "nil destination",
			data:    []byte("dpi: 150"),
			dest:    nil,
			wantErr: yamlutil.ErrNilDestination,
		},
		{
			name:    "input too large",
			data:    []byte("pdftoppm: " + strings.Repeat("x", yamlutil.MaxInputSize)),
			dest:    &rasterSection{},
			wantErr: yamlutil.ErrInputTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.UnmarshalStrict(tt.data, tt.dest)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if errors.Is(err, tt.wantErr) {
					return
				}
				if !strings.Contains(err.Error(), tt.wantErr.Error()) {
					t.Fatalf("error = %q, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, tt.dest)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestMarshal - Serializes Go structs to YAML
// ---------------------------------------------------------------------------

func TestMarshal(t *testing.T) {
	t.Parallel()

	out, err := yamlutil.Marshal(&rasterSection{DPI: 150, Binary: "pdftoppm"})
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	for _, want := range []string{"dpi: 150", "pdftoppm: pdftoppm", "enabled: false"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("Marshal() = %q, want it to contain %q", out, want)
		}
	}

	var back rasterSection
	if err := yamlutil.UnmarshalStrict(out, &back); err != nil {
		t.Fatalf("UnmarshalStrict(Marshal()) unexpected error: %v", err)
	}
	if back.DPI != 150 {
		t.Errorf("DPI = %d, want 150", back.DPI)
	}
}

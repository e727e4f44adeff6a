package docmodel

import (
	"testing"

	"github.com/alnah/go-docconv/internal/raster"
)

func TestTagSet_HeadingLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tags TagSet
		want int
	}{
		{"nil set", nil, 0},
		{"no heading", NewTagSet(TagBold), 0},
		{"h1", NewTagSet("h1"), 1},
		{"h6 with bold", NewTagSet("h6", TagBold), 6},
		{"lowest level wins", NewTagSet("h3", "h2"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.tags.HeadingLevel(); got != tt.want {
				t.Errorf("HeadingLevel() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFragment(t *testing.T) {
	t.Parallel()

	plain := Fragment{Text: "hello"}
	if plain.IsMarkup() {
		t.Error("plain fragment reported as markup")
	}
	if !(Fragment{Tags: TagSet{}}).IsMarkup() {
		t.Error("empty non-nil tag set should mark markup")
	}
	if !(Fragment{Text: "  \t"}).IsBlank() {
		t.Error("whitespace fragment should be blank")
	}
	if (Fragment{Image: &raster.Image{}}).IsBlank() {
		t.Error("image fragment should not be blank")
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	if got := PageBreak.String(); got != "page-break" {
		t.Errorf("PageBreak.String() = %q, want %q", got, "page-break")
	}
	if got := Kind(99).String(); got != "unknown" {
		t.Errorf("Kind(99).String() = %q, want %q", got, "unknown")
	}
}

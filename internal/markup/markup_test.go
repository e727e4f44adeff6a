package markup

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"
	"testing"

	"github.com/alnah/go-docconv/internal/docmodel"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func texts(frags []docmodel.Fragment) []string {
	var out []string
	for _, f := range frags {
		if f.Image == nil {
			out = append(out, f.Text)
		}
	}
	return out
}

func TestParse_BlockTags(t *testing.T) {
	t.Parallel()

	src := `<h1>Title</h1>
<p>First <strong>bold</strong> paragraph.</p>
<ul><li>one</li><li><em>two</em></li></ul>
<h3 class="x">Third level</h3>
<table><tr><td>a</td><td>b</td></tr></table>
<blockquote>quoted</blockquote>
<p>   </p>`

	frags := New().Parse(src, nil)

	want := []struct {
		text string
		tags []string
	}{
		{"Title", []string{"h1"}},
		{"First bold paragraph.", []string{docmodel.TagBold}},
		{"one", []string{docmodel.TagListItem}},
		{"two", []string{docmodel.TagListItem, docmodel.TagItalic}},
		{"Third level", []string{"h3"}},
		{"a b", nil},
		{"quoted", nil},
	}
	if len(frags) != len(want) {
		t.Fatalf("len(frags) = %d (%q), want %d", len(frags), texts(frags), len(want))
	}
	for i, w := range want {
		f := frags[i]
		if f.Text != w.text {
			t.Errorf("frags[%d].Text = %q, want %q", i, f.Text, w.text)
		}
		if !f.IsMarkup() {
			t.Errorf("frags[%d] has nil tags, want markup fragment", i)
		}
		if len(f.Tags) != len(w.tags) {
			t.Errorf("frags[%d].Tags = %v, want %v", i, f.Tags, w.tags)
		}
		for _, tag := range w.tags {
			if !f.Tags.Has(tag) {
				t.Errorf("frags[%d] missing tag %q", i, tag)
			}
		}
	}
}

func TestParse_PreformattedBlock(t *testing.T) {
	t.Parallel()

	frags := New().Parse("<pre><code>x := 1\n\ty := 2\n</code></pre>", nil)
	if len(frags) != 1 {
		t.Fatalf("len(frags) = %d (%q), want 1", len(frags), texts(frags))
	}
	if frags[0].Text != "x := 1 y := 2" {
		t.Errorf("Text = %q, want %q", frags[0].Text, "x := 1 y := 2")
	}
	if len(frags[0].Tags) != 0 {
		t.Errorf("Tags = %v, want none", frags[0].Tags)
	}
}

func TestParse_UnderlineAndEntities(t *testing.T) {
	t.Parallel()

	frags := New().Parse(`<p><u>Fish &amp; chips</u><br/>tonight</p>`, nil)
	if len(frags) != 1 {
		t.Fatalf("len(frags) = %d, want 1", len(frags))
	}
	if got := frags[0].Text; got != "Fish & chips tonight" {
		t.Errorf("Text = %q, want %q", got, "Fish & chips tonight")
	}
	if !frags[0].Tags.Has(docmodel.TagUnderline) {
		t.Error("underline flag not set")
	}
}

func TestParse_OutermostTagCaptures(t *testing.T) {
	t.Parallel()

	frags := New().Parse(`<div>outer <p>inner</p> tail<div>nested</div></div><p>after</p>`, nil)
	got := texts(frags)
	want := []string{"outer inner tail nested", "after"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("texts = %q, want %q", got, want)
	}
}

func TestParse_StyleAndScriptDropped(t *testing.T) {
	t.Parallel()

	src := `<style>p { color: red }</style><p>visible<script>alert("x")</script></p>`
	frags := New().Parse(src, nil)
	if len(frags) != 1 || frags[0].Text != "visible" {
		t.Errorf("frags = %q, want [visible]", texts(frags))
	}
}

func TestParse_ImagesFromTable(t *testing.T) {
	t.Parallel()

	images := map[string][]byte{
		"image_0": pngBytes(t, 4, 3),
		"image_1": []byte("corrupt"),
	}
	src := `<p><img src="image_0"/>Caption</p><p><img src="image_1"/></p><p><img src="missing"/>Text</p>`

	var logs bytes.Buffer
	b := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	frags := b.Parse(src, images)

	if len(frags) != 3 {
		t.Fatalf("len(frags) = %d, want 3", len(frags))
	}
	if frags[0].Image == nil || frags[0].Image.Width != 4 || frags[0].Image.Height != 3 {
		t.Fatalf("frags[0] = %+v, want the 4x3 image first", frags[0])
	}
	if frags[1].Text != "Caption" {
		t.Errorf("frags[1].Text = %q, want Caption after its image", frags[1].Text)
	}
	if frags[2].Text != "Text" || frags[2].Image != nil {
		t.Errorf("frags[2] = %+v, want text only", frags[2])
	}

	if _, ok := images["image_0"]; ok {
		t.Error("resolved image still in table, want ownership moved to fragment")
	}
	if !strings.Contains(logs.String(), "skipping undecodable image") {
		t.Error("corrupt image was not logged")
	}
	if !strings.Contains(logs.String(), "missing from image table") {
		t.Error("missing image was not logged")
	}
}

func TestParse_DataURIImage(t *testing.T) {
	t.Parallel()

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 2, 2))
	frags := New().Parse(`<p><img alt="x" src="`+uri+`"><img src="image_9"></p>`, map[string][]byte{})

	if len(frags) != 1 {
		t.Fatalf("len(frags) = %d, want 1", len(frags))
	}
	if frags[0].Image == nil || frags[0].Image.Width != 2 {
		t.Errorf("frags[0] = %+v, want decoded data URI image", frags[0])
	}
}

func TestParse_Fallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "paragraph inside unknown container",
			src:  `<section><p>only <b>p</b></p></section>`,
			want: []string{"only p"},
		},
		{
			name: "plain text pass flattens everything",
			src:  "<section>loose\n\n  text <span>here</span></section>",
			want: []string{"loose text here"},
		},
		{
			name: "nothing extractable",
			src:  "<section> </section><style>x</style>",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := texts(New().Parse(tt.src, nil))
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("texts = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	got := PlainText("<h1>A</h1><p>b&lt;c</p><script>var x</script>")
	if got != "A b<c" {
		t.Errorf("PlainText() = %q, want %q", got, "A b<c")
	}
}

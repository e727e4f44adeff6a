package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxImageSize caps each local image loaded into the image table.
const DefaultMaxImageSize = 10 << 20

// ImageNamePrefix is the prefix of generated image table keys.
const ImageNamePrefix = "image_"

// ErrImageTooLarge is returned by loadImage for files above the size cap.
var ErrImageTooLarge = errors.New("image file too large")

// LocalImages loads images referenced by relative img[src] paths under
// sourceDir into a side table and rewrites each src to its table key
// (image_0, image_1, ...). If sourceDir is empty, the HTML is returned
// unchanged with an empty table.
//
// Not loaded (src left as is):
//   - URLs and data URIs (data URIs are decoded later by the markup bridge)
//   - absolute paths
//   - paths escaping sourceDir
//   - unreadable or oversized files, reported through skipped
func LocalImages(htmlContent, sourceDir string, maxSize int64, skipped func(src string, err error)) (string, map[string][]byte, error) {
	images := make(map[string][]byte)
	if sourceDir == "" {
		return htmlContent, images, nil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	if skipped == nil {
		skipped = func(string, error) {}
	}

	absSourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", nil, err
	}

	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", nil, err
	}

	c := &collector{dir: absSourceDir, maxSize: maxSize, images: images, skipped: skipped}
	c.walk(doc)

	out, err := renderHTML(doc, isFragment)
	if err != nil {
		return "", nil, err
	}
	return out, images, nil
}

type collector struct {
	dir     string
	maxSize int64
	images  map[string][]byte
	seq     int
	skipped func(string, error)
}

func (c *collector) walk(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		for i, a := range n.Attr {
			if a.Key != "src" || !isRelativePath(a.Val) {
				continue
			}
			absPath := filepath.Join(c.dir, filepath.FromSlash(a.Val))
			if !isPathUnderDir(absPath, c.dir) {
				c.skipped(a.Val, fmt.Errorf("path escapes source directory"))
				continue
			}
			data, err := loadImage(absPath, c.maxSize)
			if err != nil {
				c.skipped(a.Val, err)
				continue
			}
			name := ImageNamePrefix + strconv.Itoa(c.seq)
			c.seq++
			c.images[name] = data
			n.Attr[i].Val = name
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child)
	}
}

func loadImage(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- confined to the source directory
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrImageTooLarge, filepath.Base(path), maxSize)
	}
	return data, nil
}

// parseHTML parses HTML content, handling both full documents and fragments.
// Returns the parsed node and whether it was a fragment.
func parseHTML(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))

	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, true, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, true, nil
}

// renderHTML renders the document back to string. Fragments render their
// children only, without an <html><body> wrapper.
func renderHTML(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder

	if isFragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// isRelativePath reports whether src names a file relative to the source
// directory.
func isRelativePath(src string) bool {
	if src == "" {
		return false
	}
	for _, prefix := range []string{"http://", "https://", "file://", "data:", "//", "#"} {
		if strings.HasPrefix(src, prefix) {
			return false
		}
	}
	return !filepath.IsAbs(src) && !strings.HasPrefix(src, "/")
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}

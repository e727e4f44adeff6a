package docconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-docconv/internal/process"
)

// pageFilePrefix is the output root passed to pdftoppm; files are written
// as page-1.png, page-2.png, ... (zero-padded for long documents).
const pageFilePrefix = "page"

// killGrace is how long pdftoppm may keep its pipes open after a kill.
const killGrace = 2 * time.Second

// pdftoppm rasterizes PDFs with the poppler-utils pdftoppm binary.
type pdftoppm struct {
	path string
}

// Rasterize writes data to a temporary directory, runs
// `pdftoppm -png -r <dpi>` on it and returns the pages in page order.
func (r *pdftoppm) Rasterize(ctx context.Context, data []byte, dpi int) ([][]byte, error) {
	bin, err := exec.LookPath(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRasterizerNotFound, err)
	}

	dir, err := os.MkdirTemp("", "docconv-raster-")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing temp input: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, "-png", "-r", strconv.Itoa(dpi), input, filepath.Join(dir, pageFilePrefix)) // #nosec G204 -- configured binary, fixed arguments
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		return nil
	}
	cmd.WaitDelay = killGrace

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", err, msg)
	}

	return readPages(dir)
}

// readPages loads page-N.png files from dir ordered by page number.
func readPages(dir string) ([][]byte, error) {
	names, err := filepath.Glob(filepath.Join(dir, pageFilePrefix+"-*.png"))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNoPagesRendered
	}
	sort.SliceStable(names, func(i, j int) bool {
		return pageNumber(names[i]) < pageNumber(names[j])
	})

	pages := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(name) // #nosec G304 -- file in our temp directory
		if err != nil {
			return nil, fmt.Errorf("reading rendered page: %w", err)
		}
		pages = append(pages, data)
	}
	return pages, nil
}

// pageNumber parses N from ".../page-N.png". Unparseable names sort last.
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	n, err := strconv.Atoi(strings.TrimPrefix(base, pageFilePrefix+"-"))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// RasterizerAvailable reports whether the pdftoppm binary at path can be
// found. Used by the doctor command.
func RasterizerAvailable(path string) (string, error) {
	if path == "" {
		path = DefaultPdftoppm
	}
	bin, err := exec.LookPath(path)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrRasterizerNotFound, path)
		}
		return "", fmt.Errorf("%w: %w", ErrRasterizerNotFound, err)
	}
	return bin, nil
}

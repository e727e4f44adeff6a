// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"runtime"
	"strings"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// goos is swapped in tests.
var goos = runtime.GOOS

// ForRasterizerNotFound returns install hints for a missing pdftoppm.
// Suggests the package for the current platform and the override variable.
func ForRasterizerNotFound() string {
	var hints []string

	switch {
	case IsInContainer():
		hints = append(hints, "add poppler-utils to the image (apt-get install -y poppler-utils)")
	case goos == "darwin":
		hints = append(hints, "install poppler (brew install poppler)")
	case goos == "windows":
		hints = append(hints, "install poppler for Windows and add its bin directory to PATH")
	default:
		hints = append(hints, "install poppler-utils (apt install poppler-utils or dnf install poppler-utils)")
	}

	if os.Getenv("DOCCONV_PDFTOPPM") == "" {
		hints = append(hints, "set DOCCONV_PDFTOPPM to use a custom binary")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow operations.
func ForTimeout() string {
	return format("for large documents, use --timeout flag")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/docconv/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(slashPath(p), "/docconv/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForNoContent returns a hint for documents without a text layer.
func ForNoContent() string {
	return format("the document may contain only scanned images; text recognition is not supported")
}

// ForInputTooLarge returns a hint for inputs above the size limit.
func ForInputTooLarge() string {
	return format("raise the limit with --max-size or conversion.maxInputMB")
}

// ForLegacyDoc returns a hint for Word 97-2003 files.
func ForLegacyDoc() string {
	return format("open the file in Word or LibreOffice and save it as .docx")
}

// slashPath normalizes separators so Windows config paths match too.
func slashPath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/hints"
)

// ErrNotReady is returned by doctor when a blocking problem was found.
var ErrNotReady = errors.New("environment not ready")

// versionProbeTimeout bounds `pdftoppm -v`.
const versionProbeTimeout = 5 * time.Second

// knownLimitations are reported by every doctor run.
var knownLimitations = []string{
	"pdf2docx keeps only 8-bit images stored uncompressed or with FlateDecode; " +
		"JPEG (DCTDecode), JPEG 2000 and images with predictors other than PNG Up are skipped and logged",
	"scanned pages without a text layer produce no text; OCR is not supported",
}

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status      string         `json:"status"` // "ready", "warnings", "errors"
	Rasterizer  rasterizerInfo `json:"rasterizer"`
	Env         envInfo        `json:"environment"`
	System      systemInfo     `json:"system"`
	Warnings    []string       `json:"warnings,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
	Limitations []string       `json:"limitations"`
}

// rasterizerInfo holds pdftoppm detection results.
type rasterizerInfo struct {
	Configured string `json:"configured"`
	Found      bool   `json:"found"`
	Path       string `json:"path,omitempty"`
	Version    string `json:"version,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
	GOMAXPROCS   int  `json:"gomaxprocs"`
	PoolSize     int  `json:"pool_size"`
}

func newDoctorCmd(env *Environment) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that conversions can run on this machine",
		Long: `doctor checks for pdftoppm (needed by pdf2img), a writable temp directory,
reports the detected platform and worker pool size, and lists known
conversion limitations.

A missing pdftoppm is a warning: every other conversion works without it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := runDoctor(cmd.Context(), env)
			if jsonOutput {
				enc := json.NewEncoder(env.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printDoctorResult(env.Stdout, result)
			}
			if result.Status == "errors" {
				return ErrNotReady
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	return cmd
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
		System: systemInfo{
			GOMAXPROCS: runtime.GOMAXPROCS(0),
			PoolSize:   docconv.ResolvePoolSize(env.Config.Conversion.Workers),
		},
		Limitations: knownLimitations,
	}

	checkRasterizer(ctx, result, env.Config.Raster.Pdftoppm)
	checkEnvironment(result)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkRasterizer locates pdftoppm and reads its version.
func checkRasterizer(ctx context.Context, result *doctorResult, configured string) {
	result.Rasterizer.Configured = configured

	path, err := docconv.RasterizerAvailable(configured)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("pdftoppm not found (%s); pdf2img is unavailable%s", configured, hints.ForRasterizerNotFound()))
		return
	}
	result.Rasterizer.Found = true
	result.Rasterizer.Path = path

	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	// pdftoppm prints its version on stderr.
	out, err := exec.CommandContext(ctx, path, "-v").CombinedOutput() // #nosec G204 -- configured binary
	if err != nil && len(out) == 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not get pdftoppm version: %v", err))
		return
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	result.Rasterizer.Version = strings.TrimSpace(line)
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory pdftoppm renders into is writable.
func checkSystem(result *doctorResult) {
	dir, err := os.MkdirTemp("", "docconv-doctor-")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("temp directory not writable: %s", os.TempDir()))
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if err := os.WriteFile(filepath.Join(dir, "write-check"), []byte("ok"), 0o600); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("temp directory not writable: %s", os.TempDir()))
		return
	}
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "docconv doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Rasterizer (pdf2img)")
	if r.Rasterizer.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Rasterizer.Path)
		if r.Rasterizer.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Rasterizer.Version)
		}
	} else {
		fmt.Fprintf(w, "  [WARN] %s not found\n", r.Rasterizer.Configured)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintf(w, "  [OK] Workers: %d (GOMAXPROCS %d)\n", r.System.PoolSize, r.System.GOMAXPROCS)
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Limitations) > 0 {
		fmt.Fprintln(w, "Limitations:")
		for _, l := range r.Limitations {
			fmt.Fprintf(w, "  [INFO] %s\n", l)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

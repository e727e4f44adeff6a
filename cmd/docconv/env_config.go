package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-docconv/internal/config"
)

// envPrefix marks variables read by the CLI.
const envPrefix = "DOCCONV_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // DOCCONV_CONFIG: config file name or path
	Timeout    time.Duration // DOCCONV_TIMEOUT: per-document timeout
	Workers    int           // DOCCONV_WORKERS: parallel converters
	MaxInputMB int           // DOCCONV_MAX_INPUT_MB: per-file input limit
	OutputDir  string        // DOCCONV_OUTPUT_DIR: default output directory
	PageSize   string        // DOCCONV_PAGE_SIZE: a4, letter, legal
	Pdftoppm   string        // DOCCONV_PDFTOPPM: rasterizer binary
	DPI        int           // DOCCONV_DPI: rasterization resolution
	Addr       string        // DOCCONV_ADDR: serve listen address
	LogLevel   string        // DOCCONV_LOG_LEVEL: debug, info, warn, error
	LogFormat  string        // DOCCONV_LOG_FORMAT: text, json
}

// knownEnvVars lists valid DOCCONV_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"DOCCONV_CONFIG":       true,
	"DOCCONV_TIMEOUT":      true,
	"DOCCONV_WORKERS":      true,
	"DOCCONV_MAX_INPUT_MB": true,
	"DOCCONV_OUTPUT_DIR":   true,
	"DOCCONV_PAGE_SIZE":    true,
	"DOCCONV_PDFTOPPM":     true,
	"DOCCONV_DPI":          true,
	"DOCCONV_ADDR":         true,
	"DOCCONV_LOG_LEVEL":    true,
	"DOCCONV_LOG_FORMAT":   true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are ignored rather than rejected.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("DOCCONV_CONFIG"),
		OutputDir:  os.Getenv("DOCCONV_OUTPUT_DIR"),
		PageSize:   os.Getenv("DOCCONV_PAGE_SIZE"),
		Pdftoppm:   os.Getenv("DOCCONV_PDFTOPPM"),
		Addr:       os.Getenv("DOCCONV_ADDR"),
		LogLevel:   os.Getenv("DOCCONV_LOG_LEVEL"),
		LogFormat:  os.Getenv("DOCCONV_LOG_FORMAT"),
	}

	if timeout := os.Getenv("DOCCONV_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	cfg.Workers = positiveEnvInt("DOCCONV_WORKERS")
	cfg.MaxInputMB = positiveEnvInt("DOCCONV_MAX_INPUT_MB")
	cfg.DPI = positiveEnvInt("DOCCONV_DPI")

	return cfg
}

// positiveEnvInt returns the variable as a positive int, or 0.
func positiveEnvInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// warnUnknownEnvVars logs warnings for unrecognized DOCCONV_* variables.
// Helps catch typos like DOCCONV_WORKER instead of DOCCONV_WORKERS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(env, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overlays set environment values on cfg.
// Applied after the config file and before flags, which gives:
// CLI flags > env vars > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Timeout > 0 {
		cfg.Conversion.Timeout = env.Timeout.String()
	}
	if env.Workers > 0 {
		cfg.Conversion.Workers = env.Workers
	}
	if env.MaxInputMB > 0 {
		cfg.Conversion.MaxInputMB = env.MaxInputMB
	}
	if env.OutputDir != "" {
		cfg.Conversion.OutputDir = env.OutputDir
	}
	if env.PageSize != "" {
		cfg.PDF.PageSize = env.PageSize
	}
	if env.Pdftoppm != "" {
		cfg.Raster.Pdftoppm = env.Pdftoppm
	}
	if env.DPI > 0 {
		cfg.Raster.DPI = env.DPI
	}
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-docconv/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxAddrLength     = 255
	MaxPathLength     = 4096
	MaxPrefixLength   = 64
	MaxPageSizeLength = 10 // "letter", "a4", "legal"
	MaxDurationLength = 20
)

// Range limits shared with the converter options.
const (
	MinDPI           = 36
	MaxDPI           = 600
	MaxMargin        = 144.0
	MaxInputMBLimit  = 512
	MaxImageBoxPixel = 5000
)

// Config holds all configuration for the CLI and the HTTP server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Conversion ConversionConfig `yaml:"conversion"`
	PDF        PDFConfig        `yaml:"pdf"`
	Docx       DocxConfig       `yaml:"docx"`
	Raster     RasterConfig     `yaml:"raster"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig defines the HTTP API listener.
type ServerConfig struct {
	Addr            string `yaml:"addr"`            // listen address (default ":8080")
	ShutdownTimeout string `yaml:"shutdownTimeout"` // graceful shutdown budget (default "10s")
}

// ConversionConfig defines limits shared by every conversion.
type ConversionConfig struct {
	Timeout      string `yaml:"timeout"`      // per-document timeout (default "60s")
	Workers      int    `yaml:"workers"`      // 0 = auto from GOMAXPROCS
	MaxInputMB   int    `yaml:"maxInputMB"`   // per-file limit (default 10)
	OutputPrefix string `yaml:"outputPrefix"` // prepended to output names (default "docconv-")
	OutputDir    string `yaml:"outputDir"`    // empty = next to the input
}

// PDFConfig defines pages of generated PDFs.
type PDFConfig struct {
	PageSize string  `yaml:"pageSize"` // "a4", "letter", "legal" (default "a4")
	Margin   float64 `yaml:"margin"`   // points (default 50)
}

// DocxConfig defines generated DOCX documents.
type DocxConfig struct {
	ImageBoxWidth  int `yaml:"imageBoxWidth"`  // pixels (default 500)
	ImageBoxHeight int `yaml:"imageBoxHeight"` // pixels (default 400)
}

// RasterConfig defines image encoding and PDF rasterization.
type RasterConfig struct {
	DPI         int    `yaml:"dpi"`         // pdftoppm resolution (default 150)
	JPEGQuality int    `yaml:"jpegQuality"` // images-to-PDF quality (default 90)
	Pdftoppm    string `yaml:"pdftoppm"`    // binary name or path (default "pdftoppm")
}

// LogConfig defines diagnostic output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default "info")
	Format string `yaml:"format"` // text, json (default "text")
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
		},
		Conversion: ConversionConfig{
			Timeout:      "60s",
			MaxInputMB:   10,
			OutputPrefix: "docconv-",
		},
		PDF: PDFConfig{
			PageSize: "a4",
			Margin:   50,
		},
		Docx: DocxConfig{
			ImageBoxWidth:  500,
			ImageBoxHeight: 400,
		},
		Raster: RasterConfig{
			DPI:         150,
			JPEGQuality: 90,
			Pdftoppm:    "pdftoppm",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks field lengths and ranges.
// Called automatically by LoadConfig, but available for callers that build
// or override a Config themselves (CLI flags, environment).
func (c *Config) Validate() error {
	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"server.addr", c.Server.Addr, MaxAddrLength},
		{"server.shutdownTimeout", c.Server.ShutdownTimeout, MaxDurationLength},
		{"conversion.timeout", c.Conversion.Timeout, MaxDurationLength},
		{"conversion.outputPrefix", c.Conversion.OutputPrefix, MaxPrefixLength},
		{"conversion.outputDir", c.Conversion.OutputDir, MaxPathLength},
		{"pdf.pageSize", c.PDF.PageSize, MaxPageSizeLength},
		{"raster.pdftoppm", c.Raster.Pdftoppm, MaxPathLength},
	} {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if _, err := parseDuration("server.shutdownTimeout", c.Server.ShutdownTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("conversion.timeout", c.Conversion.Timeout); err != nil {
		return err
	}
	if strings.ContainsAny(c.Conversion.OutputPrefix, `/\`) {
		return fmt.Errorf("%w: conversion.outputPrefix must not contain path separators", ErrInvalidValue)
	}
	if c.Conversion.Workers < 0 {
		return fmt.Errorf("%w: conversion.workers must not be negative, got %d", ErrInvalidValue, c.Conversion.Workers)
	}
	if c.Conversion.MaxInputMB < 1 || c.Conversion.MaxInputMB > MaxInputMBLimit {
		return fmt.Errorf("%w: conversion.maxInputMB must be between 1 and %d, got %d", ErrInvalidValue, MaxInputMBLimit, c.Conversion.MaxInputMB)
	}

	switch strings.ToLower(c.PDF.PageSize) {
	case "a4", "letter", "legal":
	default:
		return fmt.Errorf("%w: pdf.pageSize %q (must be a4, letter, or legal)", ErrInvalidValue, c.PDF.PageSize)
	}
	if c.PDF.Margin < 0 || c.PDF.Margin > MaxMargin {
		return fmt.Errorf("%w: pdf.margin must be between 0 and %.0f, got %.2f", ErrInvalidValue, MaxMargin, c.PDF.Margin)
	}

	if c.Docx.ImageBoxWidth < 1 || c.Docx.ImageBoxWidth > MaxImageBoxPixel ||
		c.Docx.ImageBoxHeight < 1 || c.Docx.ImageBoxHeight > MaxImageBoxPixel {
		return fmt.Errorf("%w: docx image box must be 1-%d pixels per side, got %dx%d",
			ErrInvalidValue, MaxImageBoxPixel, c.Docx.ImageBoxWidth, c.Docx.ImageBoxHeight)
	}

	if c.Raster.DPI < MinDPI || c.Raster.DPI > MaxDPI {
		return fmt.Errorf("%w: raster.dpi must be between %d and %d, got %d", ErrInvalidValue, MinDPI, MaxDPI, c.Raster.DPI)
	}
	if c.Raster.JPEGQuality < 1 || c.Raster.JPEGQuality > 100 {
		return fmt.Errorf("%w: raster.jpegQuality must be between 1 and 100, got %d", ErrInvalidValue, c.Raster.JPEGQuality)
	}
	if c.Raster.Pdftoppm == "" {
		return fmt.Errorf("%w: raster.pdftoppm is required", ErrInvalidValue)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalidValue, c.Log.Format)
	}

	return nil
}

// Timeout returns the parsed per-document timeout.
// Call after Validate; an unparseable value yields zero.
func (c *Config) Timeout() time.Duration {
	d, _ := parseDuration("", c.Conversion.Timeout)
	return d
}

// ShutdownTimeout returns the parsed server shutdown budget.
// Call after Validate; an unparseable value yields zero.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := parseDuration("", c.Server.ShutdownTimeout)
	return d
}

// MaxInputBytes returns the per-file input limit in bytes.
func (c *Config) MaxInputBytes() int64 {
	return int64(c.Conversion.MaxInputMB) << 20
}

// YAML renders the configuration, for `docconv config`.
func (c *Config) YAML() ([]byte, error) {
	return yamlutil.Marshal(c)
}

// parseDuration parses a positive duration such as "30s" or "2m".
func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidValue, field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidValue, field, value)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Settings absent from the file keep their defaults.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, <user config dir>/docconv/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "docconv", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/config"
)

// Sentinel errors for flag validation.
var (
	ErrInvalidFlag        = errors.New("invalid flag value")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config   string
	verbose  bool
	quiet    bool
	timeout  time.Duration
	workers  int
	output   string
	prefix   string
	pageSize string
	margin   float64
	maxSize  int
	dpi      int
	quality  int
}

// addGlobalFlags registers the shared flags on fs.
func addGlobalFlags(fs *flag.FlagSet, f *globalFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show timing and debug logs")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only print errors")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "per-document timeout (default 60s)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel conversions, 0 = auto")
	fs.StringVarP(&f.output, "output", "o", "", "output directory (default: next to the input)")
	fs.StringVar(&f.prefix, "prefix", docconv.DefaultOutputPrefix, "prefix for output file names")
	fs.StringVarP(&f.pageSize, "page-size", "p", "", "PDF page size: a4, letter, legal")
	fs.Float64Var(&f.margin, "margin", 0, "PDF page margin in points")
	fs.IntVar(&f.maxSize, "max-size", 0, "per-file input limit in MB")
	fs.IntVar(&f.dpi, "dpi", 0, "pdf2img rendering resolution")
	fs.IntVar(&f.quality, "quality", 0, "img2pdf JPEG quality (1-100)")
}

// newRootCmd builds the command tree around env.
func newRootCmd(env *Environment) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "docconv",
		Short: "Convert documents between PDF, DOCX, Markdown, and images",
		Long: `docconv converts documents without a browser or an office suite.

PDF to DOCX rebuilds headings, lists, paragraphs, and images from the text
layer. DOCX and Markdown to PDF lay the document out on A4, Letter, or Legal
pages. Images become one PDF page each, and PDF pages become PNG images
(pdftoppm required).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadSettings(cmd.Flags(), flags, env)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	})
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	addGlobalFlags(root.PersistentFlags(), flags)

	for _, c := range conversionCommands() {
		root.AddCommand(newConvertCmd(c, flags, env))
	}
	root.AddCommand(
		newServeCmd(env),
		newDoctorCmd(env),
		newConfigCmd(env),
		newVersionCmd(env),
	)
	return root
}

// loadSettings resolves configuration in priority order
// (flags > env vars > config file > defaults) and builds the logger.
func loadSettings(fs *flag.FlagSet, flags *globalFlags, env *Environment) error {
	envCfg := loadEnvConfig()
	warnUnknownEnvVars(env.Stderr)

	cfg := config.DefaultConfig()
	name := flags.config
	if name == "" {
		name = envCfg.ConfigPath
	}
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	if err := mergeFlags(fs, flags, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := validateWorkers(cfg.Conversion.Workers); err != nil {
		return err
	}

	env.Config = cfg
	env.Logger = newLogger(env.Stderr, cfg.Log, flags.verbose)
	return nil
}

// mergeFlags copies explicitly set flags into cfg. CLI values override everything else.
func mergeFlags(fs *flag.FlagSet, flags *globalFlags, cfg *config.Config) error {
	if fs.Changed("timeout") {
		if flags.timeout <= 0 {
			return fmt.Errorf("%w: --timeout must be positive, got %s", ErrInvalidFlag, flags.timeout)
		}
		cfg.Conversion.Timeout = flags.timeout.String()
	}
	if fs.Changed("workers") {
		cfg.Conversion.Workers = flags.workers
	}
	if fs.Changed("output") {
		cfg.Conversion.OutputDir = flags.output
	}
	if fs.Changed("prefix") {
		cfg.Conversion.OutputPrefix = flags.prefix
	}
	if fs.Changed("page-size") {
		cfg.PDF.PageSize = flags.pageSize
	}
	if fs.Changed("margin") {
		cfg.PDF.Margin = flags.margin
	}
	if fs.Changed("max-size") {
		cfg.Conversion.MaxInputMB = flags.maxSize
	}
	if fs.Changed("dpi") {
		cfg.Raster.DPI = flags.dpi
	}
	if fs.Changed("quality") {
		cfg.Raster.JPEGQuality = flags.quality
	}
	if flags.verbose && flags.quiet {
		return fmt.Errorf("%w: --verbose and --quiet are mutually exclusive", ErrInvalidFlag)
	}
	return nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > docconv.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, docconv.MaxPoolSize)
	}
	return nil
}

// converterOptions maps resolved settings to library options.
func converterOptions(cfg *config.Config, logger *slog.Logger) []docconv.Option {
	return []docconv.Option{
		docconv.WithTimeout(cfg.Timeout()),
		docconv.WithLogger(logger),
		docconv.WithPage(&docconv.PageSettings{
			Size:   strings.ToLower(cfg.PDF.PageSize),
			Margin: cfg.PDF.Margin,
		}),
		docconv.WithJPEGQuality(cfg.Raster.JPEGQuality),
		docconv.WithDPI(cfg.Raster.DPI),
		docconv.WithMaxInputSize(cfg.MaxInputBytes()),
		docconv.WithDocxImageBox(cfg.Docx.ImageBoxWidth, cfg.Docx.ImageBoxHeight),
		docconv.WithWorkers(cfg.Conversion.Workers),
		docconv.WithRasterizer(cfg.Raster.Pdftoppm),
	}
}

// newLogger builds the diagnostic logger. --verbose forces debug level.
func newLogger(w io.Writer, lc config.LogConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

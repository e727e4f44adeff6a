package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/fileutil"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Sentinel errors for batch operations.
var (
	ErrReadInput       = errors.New("failed to read input file")
	ErrWriteOutput     = errors.New("failed to write output file")
	ErrCreateOutputDir = errors.New("failed to create output directory")
	ErrBatchFailed     = errors.New("conversions failed")
)

// converterPool abstracts the converter pool for testability.
type converterPool interface {
	Acquire(ctx context.Context) (*docconv.Converter, error)
	Release(*docconv.Converter)
	Size() int
}

// Compile-time interface implementation check.
var _ converterPool = (*docconv.Pool)(nil)

// batchParams groups settings shared by every job of a batch.
type batchParams struct {
	prefix   string
	maxBytes int64
	logger   *slog.Logger
}

// ConversionResult holds the outcome of a single job.
type ConversionResult struct {
	Label      string
	OutputPath string
	Err        error
	Duration   time.Duration
}

// newConvertCmd builds the subcommand for conv.
func newConvertCmd(conv conversion, flags *globalFlags, env *Environment) *cobra.Command {
	return &cobra.Command{
		Use:     conv.use,
		Short:   conv.short,
		Example: conv.example,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), conv, args, flags, env)
		},
	}
}

// runConvert discovers inputs, converts them through a pool, and reports.
func runConvert(ctx context.Context, conv conversion, args []string, flags *globalFlags, env *Environment) error {
	cfg := env.Config

	jobs, err := discoverJobs(args, conv.exts, conv.combine, cfg.Conversion.OutputDir)
	if err != nil {
		return err
	}

	size := min(docconv.ResolvePoolSize(cfg.Conversion.Workers), len(jobs))
	env.Logger.Debug("starting conversion", "jobs", len(jobs), "pool", size)

	opts := append(converterOptions(cfg, env.Logger), docconv.WithCreationDate(env.Now()))
	pool := docconv.NewPool(size, opts...)
	defer func() { _ = pool.Close() }()

	results := convertBatch(ctx, pool, jobs, conv, &batchParams{
		prefix:   cfg.Conversion.OutputPrefix,
		maxBytes: cfg.MaxInputBytes(),
		logger:   env.Logger,
	})
	return reportResults(results, flags.quiet, flags.verbose, env)
}

// convertBatch processes jobs concurrently, one converter per worker.
func convertBatch(ctx context.Context, pool converterPool, jobs []job, conv conversion, params *batchParams) []ConversionResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(jobs))
	results := make([]ConversionResult, len(jobs))
	queue := make(chan int, len(jobs))
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			svc, err := pool.Acquire(ctx)
			if err != nil {
				// Converter creation failed, mark remaining jobs as failed
				for idx := range queue {
					results[idx] = ConversionResult{Label: jobs[idx].label(), Err: err}
				}
				return
			}
			defer pool.Release(svc)

			for idx := range queue {
				if ctx.Err() != nil {
					results[idx] = ConversionResult{Label: jobs[idx].label(), Err: ctx.Err()}
					continue
				}
				results[idx] = convertJob(ctx, svc, jobs[idx], conv, params)
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()
	return results
}

// convertJob reads, converts, and writes a single job.
func convertJob(ctx context.Context, svc *docconv.Converter, j job, conv conversion, params *batchParams) ConversionResult {
	start := time.Now()
	result := ConversionResult{Label: j.label()}
	fail := func(err error) ConversionResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	inputs := make([]inputFile, len(j.inputs))
	for i, path := range j.inputs {
		data, err := fileutil.ReadFileLimited(path, params.maxBytes)
		if err != nil {
			if errors.Is(err, fileutil.ErrFileTooLarge) {
				return fail(fmt.Errorf("%w: %v", docconv.ErrInputTooLarge, err))
			}
			return fail(fmt.Errorf("%w: %w", ErrReadInput, err))
		}
		inputs[i] = inputFile{path: path, data: data}
	}

	out, err := conv.run(ctx, svc, inputs, params.prefix)
	if err != nil {
		return fail(err)
	}

	if err := os.MkdirAll(j.outputDir, dirPermissions); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrCreateOutputDir, err))
	}
	result.OutputPath = filepath.Join(j.outputDir, out.name)
	if err := fileutil.WriteFileAtomic(result.OutputPath, out.data, filePermissions); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrWriteOutput, err))
	}

	params.logger.Debug("converted", "input", result.Label, "output", result.OutputPath, "bytes", len(out.data))
	result.Duration = time.Since(start)
	return result
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed conversions.
func countResults(results []ConversionResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// reportResults prints one line per job and a summary for batches.
// A single failed job returns its own error so the exit code reflects it.
func reportResults(results []ConversionResult, quiet, verbose bool, env *Environment) error {
	if len(results) == 1 && results[0].Err != nil {
		return results[0].Err
	}

	summary := countResults(results)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.Label, r.Err, hintFor(r.Err))
			continue
		}
		if quiet {
			continue
		}
		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.Label, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrBatchFailed, summary.Failed, len(results))
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// Sentinel errors for input discovery.
var (
	ErrNoInput          = errors.New("no input specified")
	ErrInvalidExtension = errors.New("unsupported file extension")
)

// job is one unit of work: its inputs produce a single output file.
type job struct {
	inputs    []string
	outputDir string
}

// label names the job in progress and error messages.
func (j job) label() string {
	if len(j.inputs) == 1 {
		return j.inputs[0]
	}
	return fmt.Sprintf("%d files", len(j.inputs))
}

// discoverJobs expands files and directories into jobs. Directories are
// walked recursively and filtered by exts; explicit files must match exts.
// With combine set, every input goes into one job.
func discoverJobs(args, exts []string, combine bool, outputDir string) ([]job, error) {
	if len(args) == 0 {
		return nil, ErrNoInput
	}

	var jobs []job
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if !fileutil.HasExtension(arg, exts...) {
				return nil, fmt.Errorf("%w: %s (want %s)", ErrInvalidExtension, arg, strings.Join(exts, ", "))
			}
			jobs = append(jobs, job{inputs: []string{arg}, outputDir: resolveOutputDir(arg, outputDir, "")})
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			if d.IsDir() || !fileutil.HasExtension(path, exts...) {
				return nil
			}
			jobs = append(jobs, job{inputs: []string{path}, outputDir: resolveOutputDir(path, outputDir, arg)})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no %s files found in %s", ErrNoInput, strings.Join(exts, "/"), strings.Join(args, ", "))
	}

	if combine {
		merged := job{outputDir: jobs[0].outputDir}
		if outputDir != "" {
			merged.outputDir = outputDir
		}
		for _, j := range jobs {
			merged.inputs = append(merged.inputs, j.inputs...)
		}
		return []job{merged}, nil
	}
	return jobs, nil
}

// resolveOutputDir picks where the output of inputPath is written: next to
// the input by default, or under outputDir mirroring the walked tree.
func resolveOutputDir(inputPath, outputDir, baseInputDir string) string {
	if outputDir == "" {
		return filepath.Dir(inputPath)
	}
	if baseInputDir != "" {
		if rel, err := filepath.Rel(baseInputDir, inputPath); err == nil {
			return filepath.Join(outputDir, filepath.Dir(rel))
		}
	}
	return outputDir
}

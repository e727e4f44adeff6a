package main

import (
	"context"
	"errors"
	"strings"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/config"
	"github.com/alnah/go-docconv/internal/fileutil"
	"github.com/alnah/go-docconv/internal/hints"
)

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, docconv.ErrRasterizerNotFound):
		return hints.ForRasterizerNotFound()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(triedPaths(err))
	case errors.Is(err, ErrCreateOutputDir):
		return hints.ForOutputDirectory()
	case errors.Is(err, docconv.ErrNoExtractableContent):
		return hints.ForNoContent()
	case errors.Is(err, docconv.ErrInputTooLarge), errors.Is(err, fileutil.ErrFileTooLarge):
		return hints.ForInputTooLarge()
	case errors.Is(err, docconv.ErrLegacyDoc):
		return hints.ForLegacyDoc()
	}
	return ""
}

// triedPaths recovers the search locations listed in a config lookup error.
func triedPaths(err error) []string {
	_, list, ok := strings.Cut(err.Error(), "tried ")
	if !ok {
		return nil
	}
	return strings.Split(list, ", ")
}

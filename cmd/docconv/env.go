package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alnah/go-docconv/internal/config"
)

// Environment holds injectable dependencies for testability.
// Config and Logger are resolved once per invocation by the root command.
type Environment struct {
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
	Logger  *slog.Logger
	Context func() context.Context
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  config.DefaultConfig(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Context: context.Background,
	}
}

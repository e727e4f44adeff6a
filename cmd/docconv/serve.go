package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/httpapi"
)

// readHeaderTimeout bounds slow clients before a request is routed.
const readHeaderTimeout = 10 * time.Second

func newServeCmd(env *Environment) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion HTTP API",
		Long: `serve exposes the conversions over HTTP:

  POST /api/convert         PDF to DOCX (field "file")
  POST /api/word-to-pdf     DOCX to PDF (field "file")
  POST /api/image-to-pdf    images to PDF (field "files", repeated)
  POST /api/pdf-to-image    PDF to PNG or zip (field "file")
  GET  /healthz             liveness probe

Errors are returned as {"error": "..."} with status 400 for bad input and
500 otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				env.Config.Server.Addr = addr
			}
			return runServe(cmd.Context(), env)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	return cmd
}

// runServe listens until ctx is canceled, then drains in-flight requests.
func runServe(ctx context.Context, env *Environment) error {
	cfg := env.Config
	logger := env.Logger

	size := docconv.ResolvePoolSize(cfg.Conversion.Workers)
	pool := docconv.NewPool(size, converterOptions(cfg, logger)...)
	defer func() { _ = pool.Close() }()

	api := httpapi.New(pool,
		httpapi.WithLogger(logger),
		httpapi.WithMaxUploadSize(cfg.MaxInputBytes()),
		httpapi.WithOutputPrefix(cfg.Conversion.OutputPrefix),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "pool", size)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("starting server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout())
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

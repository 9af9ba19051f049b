package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/httpapi"
	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the researchd HTTP API",
	Long: `Start the HTTP API. Runs started through the API execute
asynchronously; their progress is available from the runs endpoint.

Endpoints:
  POST /api/v1/runs      start a run
  GET  /api/v1/runs      list run IDs
  GET  /api/v1/runs/:id  latest run snapshot
  GET  /health           health check`,
	RunE: runServe,
}

// runLauncher starts pipeline runs in the background for the HTTP API.
type runLauncher struct {
	driver *pipeline.Driver
	logger *logging.Logger
}

func (l *runLauncher) StartRun(_ context.Context, req httpapi.RunRequest) (string, error) {
	idea := strings.TrimSpace(req.Idea)
	if idea == "" {
		return "", fmt.Errorf("idea cannot be empty")
	}

	runID := uuid.New().String()
	initial := pipeline.State{
		RunID:       runID,
		Idea:        idea,
		AlphaOnly:   req.AlphaOnly,
		Slug:        slugify(idea),
		Instruments: req.Instruments,
	}

	// Runs outlive the request; they are only cancelled by process
	// shutdown.
	go func() {
		ctx := context.Background()
		if _, err := l.driver.Run(ctx, initial); err != nil {
			l.logger.Error(ctx, "background run failed",
				zap.String("run.id", runID), zap.Error(err))
		}
	}()
	return runID, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	driver, store, err := a.newDriver(ctx)
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(
		&runLauncher{driver: driver, logger: a.logger},
		store,
		a.logger.Underlying(),
		&httpapi.Config{Host: a.cfg.Server.Host, Port: a.cfg.Server.Port},
	)
	if err != nil {
		return fmt.Errorf("initializing http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

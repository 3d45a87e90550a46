// Package modes holds the top-level run modes of the nodeflow binary.
package modes

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nodeflow/nodeflow/internal/nodeflow/nodes"
	"github.com/nodeflow/nodeflow/internal/nodeflow/server"
	"github.com/nodeflow/nodeflow/internal/nodeflow/status"
	"github.com/nodeflow/nodeflow/internal/nodeflow/tasks"
	"github.com/nodeflow/nodeflow/pkg/config"
	"github.com/nodeflow/nodeflow/pkg/logger"
	"github.com/nodeflow/nodeflow/pkg/version"
)

const shutdownGrace = 15 * time.Second

// RunServer starts and runs the nodeflow server with the provided
// configuration. Builds the node registry, the status plane (memory or
// Redis), the task service worker pool and the HTTP/WebSocket surface, then
// blocks until a termination signal arrives and shuts the stack down in
// reverse order.
func RunServer(cfg *config.Config) error {
	log := logger.WithField("mode", "server")

	log.Info("starting nodeflow server",
		"version", version.GetShortVersion(),
		"address", cfg.GetServerAddress(),
		"statusBackend", cfg.Status.Backend,
		"workers", cfg.Executor.Workers)

	registry := nodes.DefaultRegistry()
	log.Info("node registry populated", "types", len(registry.Types()))

	plane, err := status.NewPlane(cfg)
	if err != nil {
		log.Error("status plane setup failed", "error", err)
		return err
	}
	defer func() {
		if closeErr := plane.Close(); closeErr != nil {
			log.Error("error closing status plane", "error", closeErr)
		}
	}()

	service := tasks.NewService(cfg, registry, plane)
	service.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if stopErr := service.Stop(ctx); stopErr != nil {
			log.Error("error stopping task service", "error", stopErr)
		}
	}()

	srv := server.New(cfg, service, plane, registry)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("received shutdown signal, stopping server...", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("http server failed", "error", err)
			return err
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http shutdown failed", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nodeflow/nodeflow/internal/modes"
	"github.com/nodeflow/nodeflow/pkg/config"
	"github.com/nodeflow/nodeflow/pkg/logger"
)

func main() {
	cfg, path, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	initializeLogging(cfg)
	logger.SetGlobalMode(cfg.Server.Mode)

	mainLogger := logger.WithField("component", "main")
	mainLogger.Debug("configuration loaded", "path", path)

	var runErr error
	switch cfg.Server.Mode {
	case "server":
		runErr = modes.RunServer(cfg)
	default:
		runErr = fmt.Errorf("unknown mode: %s (check NODEFLOW_MODE or config file)", cfg.Server.Mode)
	}

	if runErr != nil {
		mainLogger.Error("nodeflow failed", "error", runErr)
		os.Exit(1)
	}
}

func initializeLogging(cfg *config.Config) {
	if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	} else {
		log.Printf("Invalid log level '%s', using INFO", cfg.Logging.Level)
		logger.SetLevel(logger.INFO)
	}
	logger.SetFormat(cfg.Logging.Format)

	if cfg.Logging.Output != "stdout" && cfg.Logging.Output != "" {
		logDir := filepath.Dir(cfg.Logging.Output)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Failed to setup log file, using stdout: %v", err)
		}
	}
}

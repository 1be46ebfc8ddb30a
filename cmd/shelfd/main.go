package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/config"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/server"
)

func main() {
	configPath := flag.String("config", "", "YAML or TOML config file")
	host := flag.String("host", "", "Listen host (overrides SHELF_HOST)")
	port := flag.String("port", "", "Listen port (overrides SHELF_PORT)")
	flag.Parse()

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	runErr := srv.Run(ctx)
	_ = srv.Close()
	if runErr != nil {
		logger.Error("Server error", zap.Error(runErr))
		stop()
		os.Exit(1)
	}
	logger.Info("Shut down gracefully")
}

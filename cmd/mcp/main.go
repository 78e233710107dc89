package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emmett/voxstream/internal/app"
	"github.com/emmett/voxstream/internal/config"
	"github.com/emmett/voxstream/internal/logging"
	"github.com/emmett/voxstream/internal/models"
	"github.com/emmett/voxstream/internal/stt/vosk"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	modelName   = flag.String("model", "", "Use a specific model (default: vosk-model-small-en-us-0.15)")
	audioDevice = flag.String("device", "", "Audio input device name")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("VoxStream MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		return err
	}

	// stdout carries the protocol
	cfg.Logging.Output = "stderr"
	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeDir, err := models.DefaultDir()
	if err != nil {
		return err
	}
	store := models.NewStore(storeDir, logging.Component(logger, "models"))

	// No prompt: stdin belongs to the MCP client
	service, err := app.NewService(ctx, cfg, app.ServiceOptions{
		ModelName:    *modelName,
		Device:       *audioDevice,
		AutoDownload: true,
	}, vosk.New(), app.NewModelManager(store, os.Stderr, nil), app.NewDeviceManager(os.Stderr), logger)
	if err != nil {
		return err
	}
	defer service.Close()

	return app.NewMCPHandler(service, store, *modelName, Version, GitCommit, os.Stderr, logger).Run(ctx)
}

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
	grpcserver "github.com/emmett/voxstream/internal/server/grpc"
	"github.com/emmett/voxstream/internal/stt/vosk"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile   = flag.String("config", "", "Path to configuration file")
	host         = flag.String("host", "", "Listen address (default: localhost)")
	port         = flag.Int("port", 0, "gRPC server port (default: 50051)")
	modelName    = flag.String("model", "", "STT model name (default: vosk-model-small-en-us-0.15)")
	audioDevice  = flag.String("device", "", "Audio input device name")
	autoDownload = flag.Bool("auto-download", false, "Download the model if it is missing")
	showVersion  = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("VoxStream gRPC Server v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		return err
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	logger.Info().Str("version", Version).Str("commit", GitCommit).Msg("starting VoxStream gRPC server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeDir, err := models.DefaultDir()
	if err != nil {
		return err
	}
	mgr := app.NewModelManager(models.NewStore(storeDir, logging.Component(logger, "models")), os.Stderr, os.Stdin)

	service, err := app.NewService(ctx, cfg, app.ServiceOptions{
		ModelName:    *modelName,
		Device:       *audioDevice,
		AutoDownload: *autoDownload,
	}, vosk.New(), mgr, app.NewDeviceManager(os.Stderr), logger)
	if err != nil {
		return err
	}
	defer service.Close()

	server := grpcserver.NewServer(grpcserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, service.Session, logger)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		server.Stop()
	}()

	return server.Start()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.design/x/mainthread"

	"github.com/emmett/voxstream/internal/app"
	"github.com/emmett/voxstream/internal/config"
	"github.com/emmett/voxstream/internal/dictation"
	"github.com/emmett/voxstream/internal/input"
	"github.com/emmett/voxstream/internal/input/hotkey"
	"github.com/emmett/voxstream/internal/logging"
	"github.com/emmett/voxstream/internal/models"
	"github.com/emmett/voxstream/internal/output"
	"github.com/emmett/voxstream/internal/stt/vosk"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile     = flag.String("config", "", "Path to configuration file (default: ~/.voxstreamrc or /etc/voxstream/config.yaml)")
	listModels     = flag.Bool("list-models", false, "List all available models for download")
	listDownloaded = flag.Bool("list-downloaded", false, "List all downloaded models")
	downloadModel  = flag.String("download-model", "", "Download a specific model by name")
	modelName      = flag.String("model", "", "Use a specific model (default: vosk-model-small-en-us-0.15)")
	selectModel    = flag.Bool("select-model", false, "Interactively select a model to use")
	setDefault     = flag.String("set-default", "", "Set a model as the default")
	outputFormat   = flag.String("format", "text", "Output format: text, json")
	outputFile     = flag.String("output", "", "Output file (default: stdout)")
	saveWAV        = flag.String("save-wav", "", "Write each recording to this WAV file")
	chunkDuration  = flag.Duration("chunk", 0, "Audio sent for transcription per chunk while recording (default: 15s)")
	audioDevice    = flag.String("device", "", "Audio input device name (use --list-devices to see available devices)")
	listDevices    = flag.Bool("list-devices", false, "List all available audio input devices")
	hotkeyFlag     = flag.String("hotkey", "", "Global hotkey that starts and stops recording (default: ctrl+shift+space)")
	noHotkey       = flag.Bool("no-hotkey", false, "Read Enter presses from stdin instead of registering a global hotkey")
	noBars         = flag.Bool("no-bars", false, "Do not draw the level bars while recording")
	logLevel       = flag.String("log-level", "", "Log level: debug, info, warn, error")
	showVersion    = flag.Bool("version", false, "Show version information")
	autoDownload   = flag.Bool("auto-download", false, "Automatically download default model if not found (no prompt)")
)

func main() {
	flag.Parse()

	// Global hotkeys must be registered from the main thread on macOS
	mainthread.Init(func() {
		os.Exit(realMain())
	})
}

func realMain() int {
	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	applyFlags(cfg)

	if *showVersion {
		fmt.Printf("VoxStream CLI v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		return 0
	}

	fmt.Printf("VoxStream CLI v%s (commit: %s, branch: %s, built: %s)\n",
		Version, GitCommit, GitBranch, BuildTime)
	fmt.Println("Streaming Speech-to-Text")
	fmt.Println()

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listDevices {
		if err := app.NewDeviceManager(nil).ListDevices(); err != nil {
			return 1
		}
		return 0
	}

	storeDir, err := models.DefaultDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	mgr := app.NewModelManager(models.NewStore(storeDir, logging.Component(logger, "models")), nil, nil)

	if handled, err := runModelCommand(ctx, mgr); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := run(ctx, cfg, mgr, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// applyFlags lets explicitly set flags override the configuration file
func applyFlags(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["model"] {
		cfg.Model.Default = *modelName
	}
	if flagsSet["format"] {
		cfg.Output.Format = *outputFormat
	}
	if flagsSet["output"] {
		cfg.Output.File = *outputFile
	}
	if flagsSet["save-wav"] {
		cfg.Output.SaveWAV = *saveWAV
	}
	if flagsSet["chunk"] {
		cfg.Chunking.ChunkDuration = config.Duration(*chunkDuration)
	}
	if flagsSet["device"] {
		cfg.Audio.Device = *audioDevice
	}
	if flagsSet["hotkey"] {
		cfg.Input.Hotkey = *hotkeyFlag
	}
	if flagsSet["log-level"] {
		cfg.Logging.Level = *logLevel
	}
}

func runModelCommand(ctx context.Context, mgr *app.ModelManager) (bool, error) {
	switch {
	case *listModels:
		return true, mgr.ListModels()
	case *listDownloaded:
		return true, mgr.ListDownloaded()
	case *downloadModel != "":
		return true, mgr.Download(ctx, *downloadModel)
	case *setDefault != "":
		return true, mgr.SetDefault(*setDefault)
	}
	return false, nil
}

func run(ctx context.Context, cfg *config.Config, mgr *app.ModelManager, logger zerolog.Logger) error {
	selectedModel := cfg.Model.Default
	if *selectModel {
		var err error
		selectedModel, err = mgr.SelectInteractive(ctx)
		if err != nil {
			return fmt.Errorf("failed to select model: %w", err)
		}
	}

	var out io.Writer = os.Stdout
	if cfg.Output.File != "" {
		f, err := os.Create(cfg.Output.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	formatter, err := output.NewFormatter(cfg.Output.Format, out)
	if err != nil {
		return err
	}
	defer formatter.Close()

	console := output.NewConsoleOutput(output.ConsoleConfig{})

	service, err := app.NewService(ctx, cfg, app.ServiceOptions{
		ModelName:    selectedModel,
		AutoDownload: *autoDownload,
	}, vosk.New(), mgr, app.NewDeviceManager(nil), logger, dictation.WithStatusHandler(app.StatusPrinter(console)))
	if err != nil {
		return err
	}
	defer service.Close()

	fmt.Printf("Using model: %s\n", service.ModelPath)
	fmt.Printf("Input device: %s\n\n", service.Device.Name)

	ptt := app.NewPushToTalk(service.Session, console, formatter, logger)
	if *noBars {
		ptt.FrameInterval = 0
	}

	if *noHotkey {
		fmt.Println("Press Enter to start and stop recording, c+Enter to cancel, q+Enter to quit.")
		return ptt.Run(ctx, input.ReadActions(ctx, os.Stdin))
	}

	actions := make(chan input.Action)
	hotkeys := hotkey.NewManager(func(a input.Action) {
		select {
		case actions <- a:
		case <-ctx.Done():
		}
	})
	if err := hotkeys.Start(ctx,
		input.Binding{Action: input.ActionToggle, Keys: cfg.Input.Hotkey},
		input.Binding{Action: input.ActionCancel, Keys: cfg.Input.CancelHotkey},
	); err != nil {
		return fmt.Errorf("failed to start hotkey listener: %w", err)
	}
	defer hotkeys.Stop()

	fmt.Printf("Press %s to start and stop recording, %s to cancel, Ctrl+C to quit.\n", cfg.Input.Hotkey, cfg.Input.CancelHotkey)
	return ptt.Run(ctx, actions)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emmett/voxstream/internal/audio"
	"github.com/emmett/voxstream/internal/dictation"
	"github.com/emmett/voxstream/internal/input"
	"github.com/emmett/voxstream/internal/logging"
	"github.com/emmett/voxstream/internal/visualizer"
)

// Duration is a time.Duration written as a string such as "15s" or "500ms"
type Duration time.Duration

// UnmarshalYAML parses a duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config represents the application configuration
type Config struct {
	// Model settings
	Model struct {
		Default string `yaml:"default"`
	} `yaml:"model"`

	// Audio settings
	Audio struct {
		Device         string `yaml:"device"`
		SampleRate     uint32 `yaml:"sample_rate"`
		Channels       uint32 `yaml:"channels"`
		BlockSize      uint32 `yaml:"block_size"`
		TelemetryQueue int    `yaml:"telemetry_queue"`
	} `yaml:"audio"`

	// Chunking settings
	Chunking struct {
		ChunkDuration    Duration `yaml:"chunk_duration"`
		PollInterval     Duration `yaml:"poll_interval"`
		Overlap          Duration `yaml:"overlap"`
		TailMinDuration  Duration `yaml:"tail_min_duration"`
		ReconcileTimeout Duration `yaml:"reconcile_timeout"`
		MaxWorkers       int      `yaml:"max_workers"`
	} `yaml:"chunking"`

	// VAD settings
	VAD struct {
		Threshold float64  `yaml:"threshold"`
		SubFrame  Duration `yaml:"sub_frame"`
	} `yaml:"vad"`

	// Visualizer settings
	Visualizer struct {
		Bands         int      `yaml:"bands"`
		Tick          Duration `yaml:"tick"`
		Attack        float64  `yaml:"attack"`
		Release       float64  `yaml:"release"`
		Decay         float64  `yaml:"decay"`
		Floor         float64  `yaml:"floor"`
		HangoverTicks int      `yaml:"hangover_ticks"`
	} `yaml:"visualizer"`

	Logging logging.Config `yaml:"logging"`

	// Output settings
	Output struct {
		Format  string `yaml:"format"`
		File    string `yaml:"file"`
		SaveWAV string `yaml:"save_wav"`
	} `yaml:"output"`

	// Input settings
	Input struct {
		Hotkey       string `yaml:"hotkey"`
		CancelHotkey string `yaml:"cancel_hotkey"`
	} `yaml:"input"`

	// Server settings
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Audio defaults
	capture := audio.DefaultConfig()
	cfg.Audio.SampleRate = capture.SampleRate
	cfg.Audio.Channels = capture.Channels
	cfg.Audio.BlockSize = capture.BlockSize
	cfg.Audio.TelemetryQueue = capture.TelemetryQueue

	// Chunking defaults
	session := dictation.DefaultConfig()
	cfg.Chunking.ChunkDuration = Duration(session.ChunkDuration)
	cfg.Chunking.PollInterval = Duration(session.PollInterval)
	cfg.Chunking.Overlap = Duration(session.Overlap)
	cfg.Chunking.TailMinDuration = Duration(session.TailMinDuration)
	cfg.Chunking.ReconcileTimeout = Duration(session.ReconcileTimeout)
	cfg.Chunking.MaxWorkers = session.MaxWorkers

	// VAD defaults
	vad := audio.DefaultVADConfig()
	cfg.VAD.Threshold = vad.EnergyThreshold
	cfg.VAD.SubFrame = Duration(vad.SubFrame)

	// Visualizer defaults
	vis := visualizer.DefaultConfig()
	cfg.Visualizer.Bands = vis.Bands
	cfg.Visualizer.Tick = Duration(vis.Tick)
	cfg.Visualizer.Attack = vis.Attack
	cfg.Visualizer.Release = vis.Release
	cfg.Visualizer.Decay = vis.Decay
	cfg.Visualizer.Floor = vis.Floor
	cfg.Visualizer.HangoverTicks = vis.HangoverTicks

	cfg.Logging.ApplyDefaults()

	// Output defaults
	cfg.Output.Format = "text"

	// Input defaults
	cfg.Input.Hotkey = "ctrl+shift+space"
	cfg.Input.CancelHotkey = "ctrl+shift+escape"

	// Server defaults
	cfg.Server.Port = 50051
	cfg.Server.Host = "localhost"

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.voxstreamrc > /etc/voxstream/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			if err == nil {
				return cfg, nil
			}
		}
	}

	return DefaultConfig(), nil
}

func searchPaths() []string {
	var paths []string
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".voxstreamrc"))
	}
	return append(paths, "/etc/voxstream/config.yaml")
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if _, err := c.Session(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		return fmt.Errorf("output.format must be text or json (got: %s)", c.Output.Format)
	}
	for name, keys := range map[string]string{"input.hotkey": c.Input.Hotkey, "input.cancel_hotkey": c.Input.CancelHotkey} {
		if keys == "" {
			continue
		}
		if _, err := input.ParseChord(keys); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Session converts the configuration into dictation session settings
func (c *Config) Session() (dictation.Config, error) {
	s := dictation.DefaultConfig()

	s.Audio.DeviceID = c.Audio.Device
	s.Audio.SampleRate = c.Audio.SampleRate
	s.Audio.Channels = c.Audio.Channels
	s.Audio.BlockSize = c.Audio.BlockSize
	s.Audio.TelemetryQueue = c.Audio.TelemetryQueue

	s.ChunkDuration = time.Duration(c.Chunking.ChunkDuration)
	s.PollInterval = time.Duration(c.Chunking.PollInterval)
	s.Overlap = time.Duration(c.Chunking.Overlap)
	s.TailMinDuration = time.Duration(c.Chunking.TailMinDuration)
	s.ReconcileTimeout = time.Duration(c.Chunking.ReconcileTimeout)
	s.MaxWorkers = c.Chunking.MaxWorkers

	s.Telemetry.SampleRate = c.Audio.SampleRate
	s.Telemetry.Bands = c.Visualizer.Bands
	s.Telemetry.VAD.EnergyThreshold = c.VAD.Threshold
	s.Telemetry.VAD.SubFrame = time.Duration(c.VAD.SubFrame)

	s.Visualizer.Bands = c.Visualizer.Bands
	s.Visualizer.Tick = time.Duration(c.Visualizer.Tick)
	s.Visualizer.Attack = c.Visualizer.Attack
	s.Visualizer.Release = c.Visualizer.Release
	s.Visualizer.Decay = c.Visualizer.Decay
	s.Visualizer.Floor = c.Visualizer.Floor
	s.Visualizer.HangoverTicks = c.Visualizer.HangoverTicks

	s.WAVPath = c.Output.SaveWAV

	if err := s.Validate(); err != nil {
		return dictation.Config{}, err
	}
	if _, err := audio.NewVAD(s.Telemetry.VAD, s.Audio.SampleRate); err != nil {
		return dictation.Config{}, err
	}
	return s, nil
}

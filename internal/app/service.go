package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/emmett/voxstream/internal/audio"
	"github.com/emmett/voxstream/internal/config"
	"github.com/emmett/voxstream/internal/dictation"
	"github.com/emmett/voxstream/internal/stt"
)

// ServiceOptions selects the model and device for a Service
type ServiceOptions struct {
	// ModelName overrides model.default from the configuration
	ModelName string
	// Device overrides audio.device from the configuration
	Device       string
	AutoDownload bool
}

// Service is a dictation session wired to a Vosk model and a malgo input device
type Service struct {
	Session   *dictation.Session
	ModelPath string
	Device    *audio.DeviceInfo

	engine stt.Engine
	logger zerolog.Logger
}

// NewService loads the model into engine, picks the input device and
// creates the session. The service owns engine from then on.
func NewService(ctx context.Context, cfg *config.Config, opts ServiceOptions, engine stt.Engine, modelMgr *ModelManager, deviceMgr *DeviceManager, logger zerolog.Logger, sessionOpts ...dictation.Option) (*Service, error) {
	sessionCfg, err := cfg.Session()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	modelName := opts.ModelName
	if modelName == "" {
		modelName = cfg.Model.Default
	}
	modelPath, err := modelMgr.EnsureModel(ctx, modelName, opts.AutoDownload)
	if err != nil {
		return nil, err
	}

	query := opts.Device
	if query == "" {
		query = cfg.Audio.Device
	}
	device, err := deviceMgr.SelectDevice(query)
	if err != nil {
		return nil, err
	}
	sessionCfg.Audio.DeviceID = device.ID

	if err := engine.Initialize(stt.Config{ModelPath: modelPath, SampleRate: int(sessionCfg.Audio.SampleRate)}); err != nil {
		return nil, fmt.Errorf("failed to initialize STT engine: %w", err)
	}

	return newService(sessionCfg, audio.NewMalgoDevice(), engine, modelPath, device, logger, sessionOpts...)
}

func newService(cfg dictation.Config, device audio.Device, engine stt.Engine, modelPath string, info *audio.DeviceInfo, logger zerolog.Logger, opts ...dictation.Option) (*Service, error) {
	session, err := dictation.New(cfg, device, engine, logger, opts...)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	logger.Info().
		Str("model", modelPath).
		Str("device", info.Name).
		Dur("chunk", cfg.ChunkDuration).
		Msg("dictation service ready")

	return &Service{
		Session:   session,
		ModelPath: modelPath,
		Device:    info,
		engine:    engine,
		logger:    logger,
	}, nil
}

// Close cancels any recording and releases the model
func (s *Service) Close() error {
	if err := s.Session.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cancel session")
	}
	return s.engine.Close()
}

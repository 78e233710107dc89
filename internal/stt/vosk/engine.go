// Package vosk runs speech recognition with an offline Vosk model.
package vosk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/emmett/voxstream/internal/audio"
	"github.com/emmett/voxstream/internal/stt"
)

// feedBytes is how much audio is handed to the recognizer per call, so
// cancellation is noticed between pieces of a long chunk (1s at 16kHz)
const feedBytes = 32000

// Engine implements stt.Engine using Vosk. The model is
// shared; every Transcribe call gets its own recognizer, so concurrent
// calls do not interfere.
type Engine struct {
	model       *vosk.VoskModel
	config      stt.Config
	mu          sync.RWMutex
	initialized bool
}

// result represents the JSON result from Vosk
type result struct {
	Text string `json:"text"`
}

// New creates an uninitialized engine
func New() *Engine {
	return &Engine{}
}

// Initialize loads the Vosk model
func (v *Engine) Initialize(config stt.Config) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		return fmt.Errorf("engine already initialized")
	}

	vosk.SetLogLevel(-1) // Suppress logs

	model, err := vosk.NewModel(config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load model from %s: %w", config.ModelPath, err)
	}
	if model == nil {
		return fmt.Errorf("failed to load model from %s: model returned nil", config.ModelPath)
	}

	v.model = model
	v.config = config
	v.initialized = true
	return nil
}

// Transcribe recognizes a complete buffer of audio
func (v *Engine) Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.initialized {
		return "", fmt.Errorf("engine not initialized")
	}
	if sampleRate <= 0 {
		sampleRate = v.config.SampleRate
	}

	recognizer, err := vosk.NewRecognizer(v.model, float64(sampleRate))
	if err != nil {
		return "", fmt.Errorf("failed to create recognizer: %w", err)
	}
	defer recognizer.Free()

	data := audio.SamplesToBytes(samples)
	var parts []string

	for off := 0; off < len(data); off += feedBytes {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		end := min(off+feedBytes, len(data))
		if recognizer.AcceptWaveform(data[off:end]) > 0 {
			text, err := parseResult(recognizer.Result())
			if err != nil {
				return "", err
			}
			if text != "" {
				parts = append(parts, text)
			}
		}
	}

	text, err := parseResult(recognizer.FinalResult())
	if err != nil {
		return "", err
	}
	if text != "" {
		parts = append(parts, text)
	}

	return strings.Join(parts, " "), nil
}

// Close releases the model
func (v *Engine) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil
	}

	if v.model != nil {
		v.model.Free()
		v.model = nil
	}

	v.initialized = false
	return nil
}

// IsInitialized returns true if the engine is initialized
func (v *Engine) IsInitialized() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.initialized
}

func parseResult(resultJSON string) (string, error) {
	var r result
	if err := json.Unmarshal([]byte(resultJSON), &r); err != nil {
		return "", fmt.Errorf("failed to parse result: %w", err)
	}
	return strings.TrimSpace(r.Text), nil
}

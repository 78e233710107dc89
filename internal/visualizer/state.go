// Package visualizer smooths bursty telemetry frames into a stable signal
// for an on-screen level meter.
package visualizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emmett/voxstream/internal/audio"
)

// snapEpsilon is how close to the floor a level must get before it is pinned there
const snapEpsilon = 1e-4

// Config holds the smoothing parameters
type Config struct {
	Bands int

	// Tick is the smoothing interval, independent of frame arrival
	Tick time.Duration

	// Attack is the EMA rate used while a level rises toward its target
	Attack float64
	// Release is the EMA rate used while a level falls
	Release float64

	// Decay multiplies each target's distance from Floor every tick
	Decay float64
	Floor float64

	// HangoverTicks is how long speech stays latched after the last speech frame
	HangoverTicks int
}

// DefaultConfig returns the default smoothing parameters
func DefaultConfig() Config {
	return Config{
		Bands:         audio.DefaultBands,
		Tick:          20 * time.Millisecond,
		Attack:        0.6,
		Release:       0.15,
		Decay:         0.92,
		Floor:         0.02,
		HangoverTicks: 15, // 300ms at 20ms ticks
	}
}

// Validate checks the parameters
func (c Config) Validate() error {
	switch {
	case c.Bands <= 0:
		return fmt.Errorf("bands must be positive")
	case c.Tick <= 0:
		return fmt.Errorf("tick must be positive")
	case c.Attack <= 0 || c.Attack > 1:
		return fmt.Errorf("attack must be in (0, 1]")
	case c.Release <= 0 || c.Release > 1:
		return fmt.Errorf("release must be in (0, 1]")
	case c.Decay <= 0 || c.Decay >= 1:
		return fmt.Errorf("decay must be in (0, 1)")
	case c.Floor < 0 || c.Floor >= 1:
		return fmt.Errorf("floor must be in [0, 1)")
	case c.HangoverTicks < 0:
		return fmt.Errorf("hangover must not be negative")
	}
	return nil
}

// SmoothedFrame is what the renderer reads
type SmoothedFrame struct {
	Levels []float64
	Speech bool
}

// State holds per-band levels and targets. Push and Tick may be called
// from different goroutines; Snapshot never blocks for long.
type State struct {
	mu       sync.Mutex
	config   Config
	levels   []float64
	targets  []float64
	latched  bool
	hangover int
}

// New creates a state resting at the floor
func New(config Config) (*State, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid visualizer config: %w", err)
	}
	s := &State{config: config}
	s.Reset()
	return s, nil
}

// Reset puts every band back at the floor and clears the speech latch
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.levels = make([]float64, s.config.Bands)
	s.targets = make([]float64, s.config.Bands)
	for i := range s.levels {
		s.levels[i] = s.config.Floor
		s.targets[i] = s.config.Floor
	}
	s.latched = false
	s.hangover = 0
}

// Push feeds one telemetry frame. Speech latches the state and restarts
// the hangover; targets only ever rise, and only while latched.
func (s *State) Push(frame audio.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if frame.IsSpeech {
		s.latched = true
		s.hangover = s.config.HangoverTicks
	}
	if !s.latched {
		return
	}

	for i := 0; i < len(s.targets) && i < len(frame.Bands); i++ {
		if frame.Bands[i] > s.targets[i] {
			s.targets[i] = frame.Bands[i]
		}
	}
}

// Tick advances the smoothing by one interval
func (s *State) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	floor := s.config.Floor
	for i := range s.levels {
		if !s.latched {
			// Once unlatched the target sits strictly below the level, so levels only fall
			s.targets[i] = min(s.targets[i], floor+(s.levels[i]-floor)*s.config.Decay)
		}

		rate := s.config.Release
		if s.targets[i] > s.levels[i] {
			rate = s.config.Attack
		}
		s.levels[i] += (s.targets[i] - s.levels[i]) * rate
		if s.levels[i]-floor < snapEpsilon {
			s.levels[i] = floor
		}

		s.targets[i] = floor + (s.targets[i]-floor)*s.config.Decay
	}

	if s.latched {
		s.hangover--
		if s.hangover <= 0 {
			s.latched = false
			s.hangover = 0
		}
	}
}

// Snapshot returns a copy of the current levels
func (s *State) Snapshot() SmoothedFrame {
	s.mu.Lock()
	defer s.mu.Unlock()

	levels := make([]float64, len(s.levels))
	copy(levels, s.levels)
	return SmoothedFrame{Levels: levels, Speech: s.latched}
}

// Run pushes frames as they arrive and ticks at the configured interval
// until ctx is done. A closed frames channel only stops the pushing.
func (s *State) Run(ctx context.Context, frames <-chan audio.Frame) error {
	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			s.Push(frame)
		case <-ticker.C:
			s.Tick()
		}
	}
}

package dictation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/voxstream/internal/audio"
	"github.com/emmett/voxstream/internal/audio/audiotest"
	"github.com/emmett/voxstream/internal/stt"
)

// blocksPerPoll is half a second of 50ms blocks
const blocksPerPoll = 10

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type statusRecorder struct {
	mu      sync.Mutex
	updates []StatusUpdate
}

func (r *statusRecorder) handle(u StatusUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *statusRecorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, u := range r.updates {
		out = append(out, u.Message)
	}
	return out
}

func (r *statusRecorder) lastErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].Err != nil {
			return r.updates[i].Err
		}
	}
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Audio.BlockSize = 800
	cfg.Audio.TelemetryQueue = 64
	cfg.PollInterval = time.Hour
	cfg.ReconcileTimeout = 2 * time.Second
	return cfg
}

type harness struct {
	t       *testing.T
	session *Session
	device  *audiotest.Device
	clock   *fakeClock
	status  *statusRecorder
	start   time.Time
}

func newHarness(t *testing.T, cfg Config, tr stt.Transcriber) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		device: audiotest.NewDevice(),
		clock:  &fakeClock{},
		status: &statusRecorder{},
		start:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	h.clock.Set(h.start)

	s, err := New(cfg, h.device, tr, zerolog.Nop(), WithClock(h.clock.Now), WithStatusHandler(h.status.handle))
	require.NoError(t, err)
	h.session = s
	t.Cleanup(func() { _ = s.Close() })
	return h
}

// advance feeds half a second of blocks filled with value, moves the clock
// and polls the scheduler. It reports whether a chunk was dispatched.
func (h *harness) advance(value int16) bool {
	h.t.Helper()
	h.feed(value, blocksPerPoll)

	now := h.clock.Now().Add(500 * time.Millisecond)
	h.clock.Set(now)
	return h.currentRun().sched.poll(now)
}

// feed delivers n blocks filled with value without polling the scheduler
func (h *harness) feed(value int16, n int) {
	h.t.Helper()
	fed := h.device.FeedBlocks(n, func(_ int, size int) []int16 {
		b := make([]int16, size)
		for i := range b {
			b[i] = value
		}
		return b
	})
	require.Equal(h.t, n, fed)
}

func (h *harness) currentRun() *run {
	h.session.mu.Lock()
	defer h.session.mu.Unlock()
	require.NotNil(h.t, h.session.run)
	return h.session.run
}

// byFirstSample transcribes audio by looking up its first sample
func byFirstSample(texts map[int16]string) stt.TranscriberFunc {
	return func(_ context.Context, samples []int16, _ int) (string, error) {
		if len(samples) == 0 {
			return "", nil
		}
		return texts[samples[0]], nil
	}
}

func TestFortySecondsProducesTwoChunksAndTail(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg, byFirstSample(map[int16]string{
		1: "hello world",
		2: "checking one two",
		3: "checking one two",
	}))
	require.NoError(t, h.session.Start())
	assert.Equal(t, StatusRecording, h.session.Status())

	var dispatched []int
	for step := 0; step < 80; step++ {
		value := int16(1 + step/30)
		if h.advance(value) {
			dispatched = append(dispatched, step)
			r := h.currentRun()
			require.Eventually(t, func() bool { return r.workers.len() == 0 }, time.Second, 5*time.Millisecond)
		}
	}
	assert.Equal(t, []int{30, 61}, dispatched)

	transcript, err := h.session.Stop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, transcript.Chunks)
	assert.Equal(t, 1, strings.Count(transcript.Text, "checking one two"))
	assert.Equal(t, "hello world checking one two.", transcript.Text)
	assert.Len(t, transcript.Segments, 2)
	assert.Equal(t, 40*time.Second, transcript.Duration)
	assert.False(t, transcript.TimedOut)
	assert.Equal(t, StatusIdle, h.session.Status())
	assert.NotEmpty(t, transcript.SessionID)
	assert.Same(t, transcript, h.session.LastTranscript())
}

func TestChunksAndTailCoverCaptureExactlyOnce(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkDuration = time.Second
	cfg.TailMinDuration = 0
	cfg.MaxWorkers = 0

	var mu sync.Mutex
	var chunks [][]int16
	tr := stt.TranscriberFunc(func(_ context.Context, samples []int16, _ int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		chunks = append(chunks, samples)
		return "", nil
	})
	h := newHarness(t, cfg, tr)
	require.NoError(t, h.session.Start())

	block := 0
	for step := 0; step < 13; step++ {
		h.device.FeedBlocks(blocksPerPoll, func(_ int, size int) []int16 {
			b := make([]int16, size)
			for i := range b {
				b[i] = int16(block)
			}
			block++
			return b
		})
		now := h.clock.Now().Add(500 * time.Millisecond)
		h.clock.Set(now)
		h.currentRun().sched.poll(now)
	}

	_, err := h.session.Stop(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	// chunks finish in any order
	var seen []int
	for _, c := range chunks {
		for i := 0; i < len(c); i += 800 {
			seen = append(seen, int(c[i]))
		}
	}
	assert.ElementsMatch(t, seqInts(block), seen)
	assert.Len(t, seen, block)
}

func seqInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestResultsOrderedBySequenceNotCompletion(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkDuration = time.Second

	release := make(chan struct{})
	tr := stt.TranscriberFunc(func(_ context.Context, samples []int16, _ int) (string, error) {
		switch samples[0] {
		case 1:
			<-release
			return "alpha", nil
		case 2:
			return "beta", nil
		}
		return "", nil
	})
	h := newHarness(t, cfg, tr)
	require.NoError(t, h.session.Start())

	h.advance(1)
	h.advance(1)
	require.True(t, h.advance(1))
	h.advance(2)
	h.advance(2)
	require.True(t, h.advance(2))

	r := h.currentRun()
	require.Eventually(t, func() bool { return r.results.len() == 1 }, time.Second, 5*time.Millisecond)
	close(release)

	transcript, err := h.session.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alpha beta.", transcript.Text)
	require.Len(t, transcript.Segments, 2)
	assert.Equal(t, 0, transcript.Segments[0].Sequence)
	assert.Equal(t, 1, transcript.Segments[1].Sequence)
}

func TestShortTailIsNotTranscribed(t *testing.T) {
	cfg := testConfig()
	var calls int
	var mu sync.Mutex
	tr := stt.TranscriberFunc(func(context.Context, []int16, int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return "words", nil
	})
	h := newHarness(t, cfg, tr)
	require.NoError(t, h.session.Start())

	// 0.25s is below the 0.5s minimum
	h.device.FeedBlocks(5, func(_ int, size int) []int16 { return audiotest.Silence(size) })

	transcript, err := h.session.Stop(context.Background())
	require.NoError(t, err)
	assert.Empty(t, transcript.Text)
	assert.Zero(t, calls)
}

func TestCancelDiscardsInFlightChunk(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkDuration = time.Second

	started := make(chan struct{}, 1)
	tr := stt.TranscriberFunc(func(ctx context.Context, samples []int16, _ int) (string, error) {
		if samples[0] == 1 {
			started <- struct{}{}
			<-ctx.Done()
			return "stale", nil
		}
		return "fresh", nil
	})
	h := newHarness(t, cfg, tr)
	require.NoError(t, h.session.Start())
	h.advance(1)
	h.advance(1)
	require.True(t, h.advance(1))
	<-started

	require.NoError(t, h.session.Cancel())
	assert.Equal(t, StatusIdle, h.session.Status())
	assert.False(t, h.device.IsOpen())
	assert.Contains(t, h.status.messages(), "cancelled")

	require.NoError(t, h.session.Start())
	h.advance(5)
	h.feed(5, 2*blocksPerPoll)
	transcript, err := h.session.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh.", transcript.Text)
	assert.Zero(t, transcript.Chunks)
}

func TestStopTimesOutOnStuckChunk(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkDuration = time.Second
	cfg.ReconcileTimeout = 100 * time.Millisecond

	tr := stt.TranscriberFunc(func(ctx context.Context, samples []int16, _ int) (string, error) {
		if samples[0] == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "tail words", nil
	})
	h := newHarness(t, cfg, tr)
	require.NoError(t, h.session.Start())
	h.advance(1)
	h.advance(1)
	require.True(t, h.advance(1))
	h.feed(2, 2*blocksPerPoll)

	transcript, err := h.session.Stop(context.Background())
	require.NoError(t, err)
	assert.True(t, transcript.TimedOut)
	assert.Equal(t, "tail words.", transcript.Text)
	assert.Contains(t, h.status.messages(), "waiting for 1 chunks")
}

func TestFailedChunkIsCounted(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkDuration = time.Second

	tr := stt.TranscriberFunc(func(_ context.Context, samples []int16, _ int) (string, error) {
		if samples[0] == 1 {
			return "", errors.New("model exploded")
		}
		return "still here", nil
	})
	h := newHarness(t, cfg, tr)
	require.NoError(t, h.session.Start())
	h.advance(1)
	h.advance(1)
	require.True(t, h.advance(1))
	h.feed(2, 2*blocksPerPoll)

	transcript, err := h.session.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, transcript.Failed)
	assert.Equal(t, "still here.", transcript.Text)
}

func TestPanickingTranscriberIsContained(t *testing.T) {
	var s Session
	s.transcriber = stt.TranscriberFunc(func(context.Context, []int16, int) (string, error) {
		panic("boom")
	})

	_, err := s.transcribe(context.Background(), 4, nil)
	var terr *stt.TranscriptionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 4, terr.Sequence)
}

func TestMaxWorkersPostponesDispatch(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkDuration = time.Second
	cfg.MaxWorkers = 1

	release := make(chan struct{})
	tr := stt.TranscriberFunc(func(context.Context, []int16, int) (string, error) {
		<-release
		return "", nil
	})
	h := newHarness(t, cfg, tr)
	require.NoError(t, h.session.Start())

	h.advance(1)
	h.advance(1)
	require.True(t, h.advance(1))
	h.advance(1)
	h.advance(1)
	// due again, but the only worker is still busy
	assert.False(t, h.advance(1))

	close(release)
	r := h.currentRun()
	require.Eventually(t, func() bool { return r.workers.len() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.advance(1))
	assert.Equal(t, 2, h.session.Info().Chunks)
}

func TestStartAndStopGuards(t *testing.T) {
	h := newHarness(t, testConfig(), byFirstSample(nil))

	_, err := h.session.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)
	assert.NoError(t, h.session.Cancel())

	require.NoError(t, h.session.Start())
	assert.ErrorIs(t, h.session.Start(), ErrAlreadyRecording)

	info := h.session.Info()
	assert.Equal(t, StatusRecording, info.Status)
	assert.NotEmpty(t, info.SessionID)
}

func TestStartReportsDeviceError(t *testing.T) {
	h := newHarness(t, testConfig(), byFirstSample(nil))
	h.device.OpenErr = errors.New("no such device")

	err := h.session.Start()
	var derr *audio.DeviceError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "open", derr.Op)
	assert.Equal(t, StatusIdle, h.session.Status())
}

func TestDeviceLossEndsSession(t *testing.T) {
	h := newHarness(t, testConfig(), byFirstSample(nil))
	require.NoError(t, h.session.Start())
	h.advance(1)

	h.device.Lose()

	require.Eventually(t, func() bool { return h.session.Status() == StatusIdle }, time.Second, 5*time.Millisecond)
	var derr *audio.DeviceError
	assert.ErrorAs(t, h.status.lastErr(), &derr)
	assert.False(t, h.device.IsOpen())
}

func TestVisualizerResetsOnStart(t *testing.T) {
	h := newHarness(t, testConfig(), byFirstSample(nil))
	require.NoError(t, h.session.Start())

	levels := h.session.Levels()
	assert.Len(t, levels.Levels, h.session.Config().Visualizer.Bands)
	assert.False(t, levels.Speech)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ChunkDuration = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Overlap = cfg.ChunkDuration
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxWorkers = -1
	assert.Error(t, cfg.Validate())
}

func TestInfoReportsBufferedAudio(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkDuration = time.Second
	h := newHarness(t, cfg, stt.TranscriberFunc(func(context.Context, []int16, int) (string, error) {
		return "", nil
	}))

	require.NoError(t, h.session.Start())

	require.False(t, h.advance(100))
	info := h.session.Info()
	assert.Equal(t, 500*time.Millisecond, info.Buffered)
	assert.Equal(t, 500*time.Millisecond, info.Elapsed)

	// exactly one chunk duration is not yet due
	require.False(t, h.advance(100))
	assert.Equal(t, time.Second, h.session.Info().Buffered)

	require.True(t, h.advance(100))
	info = h.session.Info()
	assert.Zero(t, info.Buffered)
	assert.Equal(t, 1, info.Chunks)
}

func TestCancelClearsLastTranscript(t *testing.T) {
	h := newHarness(t, testConfig(), byFirstSample(map[int16]string{7: "first take"}))

	require.NoError(t, h.session.Start())
	h.feed(7, 2*blocksPerPoll)
	transcript, err := h.session.Stop(context.Background())
	require.NoError(t, err)
	require.Same(t, transcript, h.session.LastTranscript())

	require.NoError(t, h.session.Start())
	h.feed(8, blocksPerPoll)
	require.NoError(t, h.session.Cancel())
	assert.Nil(t, h.session.LastTranscript())
}

func TestStopSavesWholeRecordingAsWAV(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkDuration = time.Second
	cfg.WAVPath = filepath.Join(t.TempDir(), "session.wav")
	h := newHarness(t, cfg, byFirstSample(nil))
	require.NoError(t, h.session.Start())

	var want []int
	next := 0
	record := func(n int) {
		h.device.FeedBlocks(n, func(_ int, size int) []int16 {
			b := make([]int16, size)
			for i := range b {
				b[i] = int16(next)
				want = append(want, next)
				next++
			}
			return b
		})
	}

	for step := 0; step < 3; step++ {
		record(blocksPerPoll)
		now := h.clock.Now().Add(500 * time.Millisecond)
		h.clock.Set(now)
		h.currentRun().sched.poll(now)
	}
	require.Equal(t, 1, h.session.Info().Chunks)
	record(blocksPerPoll)

	_, err := h.session.Stop(context.Background())
	require.NoError(t, err)

	f, err := os.Open(cfg.WAVPath)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, int(cfg.Audio.SampleRate), buf.Format.SampleRate)
	assert.Equal(t, want, buf.Data)
}

func TestCancelDoesNotWriteWAV(t *testing.T) {
	cfg := testConfig()
	cfg.WAVPath = filepath.Join(t.TempDir(), "session.wav")
	h := newHarness(t, cfg, byFirstSample(nil))

	require.NoError(t, h.session.Start())
	h.feed(1, blocksPerPoll)
	require.NoError(t, h.session.Cancel())

	_, err := os.Stat(cfg.WAVPath)
	assert.True(t, os.IsNotExist(err))
}

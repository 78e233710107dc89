package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/voxstream/internal/audio/audiotest"
	"github.com/emmett/voxstream/internal/dictation"
	"github.com/emmett/voxstream/internal/input"
	"github.com/emmett/voxstream/internal/output"
	"github.com/emmett/voxstream/internal/stt"
)

type pttHarness struct {
	session   *dictation.Session
	device    *audiotest.Device
	formatter *output.JSONFormatter
	stdout    *bytes.Buffer
	ptt       *PushToTalk
}

func newPTTHarness(t *testing.T, text string) *pttHarness {
	t.Helper()

	cfg := dictation.DefaultConfig()
	cfg.Audio.BlockSize = 800
	cfg.PollInterval = time.Hour

	device := audiotest.NewDevice()
	tr := stt.TranscriberFunc(func(context.Context, []int16, int) (string, error) {
		return text, nil
	})
	session, err := dictation.New(cfg, device, tr, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	stdout := &bytes.Buffer{}
	console := output.NewConsoleOutput(output.ConsoleConfig{Writer: stdout, ErrWriter: stdout})
	formatter := output.NewJSONFormatter(&bytes.Buffer{})

	ptt := NewPushToTalk(session, console, formatter, zerolog.Nop())
	ptt.FrameInterval = 0

	return &pttHarness{session: session, device: device, formatter: formatter, stdout: stdout, ptt: ptt}
}

func (h *pttHarness) speak(blocks int) {
	h.device.FeedBlocks(blocks, func(_ int, size int) []int16 {
		return audiotest.Tone(440, 0.5, size, 16000)
	})
}

func TestPushToTalkWritesTranscript(t *testing.T) {
	h := newPTTHarness(t, "note to self")

	actions := make(chan input.Action)
	done := make(chan error, 1)
	go func() { done <- h.ptt.Run(context.Background(), actions) }()

	actions <- input.ActionToggle
	require.Eventually(t, func() bool {
		return h.session.Status() == dictation.StatusRecording
	}, time.Second, 5*time.Millisecond)

	h.speak(20)
	actions <- input.ActionToggle
	require.Eventually(t, func() bool {
		return h.session.LastTranscript() != nil
	}, 2*time.Second, 5*time.Millisecond)

	close(actions)
	require.NoError(t, <-done)

	results := h.formatter.Results()
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Index)
	assert.Equal(t, "note to self.", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Duration, 0.001)
	assert.Equal(t, 1, h.ptt.Transcripts())
}

func TestPushToTalkReportsSilence(t *testing.T) {
	h := newPTTHarness(t, "")

	actions := make(chan input.Action)
	done := make(chan error, 1)
	go func() { done <- h.ptt.Run(context.Background(), actions) }()

	actions <- input.ActionToggle
	require.Eventually(t, func() bool {
		return h.session.Status() == dictation.StatusRecording
	}, time.Second, 5*time.Millisecond)

	h.speak(20)
	actions <- input.ActionToggle
	require.Eventually(t, func() bool {
		return h.session.LastTranscript() != nil
	}, 2*time.Second, 5*time.Millisecond)

	close(actions)
	require.NoError(t, <-done)

	assert.Empty(t, h.formatter.Results())
	assert.Contains(t, h.stdout.String(), "No speech detected")
}

func TestPushToTalkCancel(t *testing.T) {
	h := newPTTHarness(t, "discard me")

	actions := make(chan input.Action)
	done := make(chan error, 1)
	go func() { done <- h.ptt.Run(context.Background(), actions) }()

	actions <- input.ActionToggle
	require.Eventually(t, func() bool {
		return h.session.Status() == dictation.StatusRecording
	}, time.Second, 5*time.Millisecond)

	h.speak(20)
	actions <- input.ActionCancel
	require.Eventually(t, func() bool {
		return h.session.Status() == dictation.StatusIdle
	}, time.Second, 5*time.Millisecond)

	close(actions)
	require.NoError(t, <-done)

	assert.Empty(t, h.formatter.Results())
	assert.Nil(t, h.session.LastTranscript())
}

func TestPushToTalkCancelsRecordingOnShutdown(t *testing.T) {
	h := newPTTHarness(t, "unused")

	ctx, cancel := context.WithCancel(context.Background())
	actions := make(chan input.Action)
	done := make(chan error, 1)
	go func() { done <- h.ptt.Run(ctx, actions) }()

	actions <- input.ActionToggle
	require.Eventually(t, func() bool {
		return h.session.Status() == dictation.StatusRecording
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, dictation.StatusIdle, h.session.Status())
}

func TestStatusPrinter(t *testing.T) {
	var buf bytes.Buffer
	console := output.NewConsoleOutput(output.ConsoleConfig{Writer: &buf, ErrWriter: &buf})

	printer := StatusPrinter(console)
	printer(dictation.StatusUpdate{Status: dictation.StatusStopping, Message: "waiting for 2 chunks"})
	printer(dictation.StatusUpdate{Status: dictation.StatusIdle, Message: "capture device lost", Err: assert.AnError})

	assert.Contains(t, buf.String(), "waiting for 2 chunks")
	assert.Contains(t, buf.String(), "capture device lost: "+assert.AnError.Error())
}

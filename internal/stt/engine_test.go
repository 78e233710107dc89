package stt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriberFunc(t *testing.T) {
	var got int
	f := TranscriberFunc(func(_ context.Context, samples []int16, rate int) (string, error) {
		got = len(samples)
		return "hello", nil
	})

	text, err := f.Transcribe(context.Background(), make([]int16, 10), 16000)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, 10, got)
}

func TestTranscriptionError(t *testing.T) {
	cause := errors.New("model crashed")

	chunkErr := &TranscriptionError{Sequence: 3, Err: cause}
	assert.Equal(t, "transcription of chunk 3 failed: model crashed", chunkErr.Error())
	assert.ErrorIs(t, chunkErr, cause)

	tailErr := &TranscriptionError{Sequence: -1, Err: cause}
	assert.Contains(t, tailErr.Error(), "tail")
}

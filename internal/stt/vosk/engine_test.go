package vosk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/voxstream/internal/stt"
)

var _ stt.Engine = (*Engine)(nil)

func TestParseResult(t *testing.T) {
	text, err := parseResult(`{"text": "  checking one two "}`)
	require.NoError(t, err)
	assert.Equal(t, "checking one two", text)

	_, err = parseResult(`not json`)
	assert.Error(t, err)
}

func TestVoskEngineRequiresInitialize(t *testing.T) {
	engine := New()
	assert.False(t, engine.IsInitialized())

	_, err := engine.Transcribe(context.Background(), make([]int16, 160), 16000)
	assert.Error(t, err)
	assert.NoError(t, engine.Close())
}

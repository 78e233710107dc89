package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBands(t *testing.T) {
	assert.Equal(t, "[ ▄█]", renderBands([]float64{0, 0.5, 1}))
	assert.Equal(t, "[ █]", renderBands([]float64{-1, 3}))
	assert.Equal(t, "[]", renderBands(nil))
}

func TestConsoleWriteBands(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleOutput(ConsoleConfig{Writer: &buf})

	require.NoError(t, c.WriteBands([]float64{1, 0}, true))
	assert.Equal(t, "\r(o) [█ ]", buf.String())
}

func TestConsoleWriteWithTimestamp(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleOutput(ConsoleConfig{Writer: &buf, ShowTimestamp: true})
	c.now = func() time.Time { return time.Date(2024, 1, 1, 9, 5, 7, 0, time.UTC) }

	require.NoError(t, c.Write("hello world."))
	assert.Equal(t, "\r[09:05:07] hello world.\n", buf.String())
}

func TestConsoleErrorUsesErrWriter(t *testing.T) {
	var out, errs bytes.Buffer
	c := NewConsoleOutput(ConsoleConfig{Writer: &out, ErrWriter: &errs})

	c.Error("device lost")
	assert.Empty(t, out.String())
	assert.Equal(t, "[ERROR] device lost\n", errs.String())
}

func TestJSONFormatterWritesTranscript(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("json", &buf)
	require.NoError(t, err)

	result := TranscriptResult{Index: 1, SessionID: "abc", Text: "hello.", Chunks: 2, Duration: 40}
	require.NoError(t, f.WriteTranscript(result))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "hello.", decoded["text"])
	assert.Equal(t, "abc", decoded["session_id"])
	assert.NotContains(t, decoded, "timed_out")
	assert.Len(t, f.(*JSONFormatter).Results(), 1)
}

func TestPlainTextFormatterMarksIncomplete(t *testing.T) {
	var buf bytes.Buffer
	f := NewPlainTextFormatter(&buf)
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, f.WriteTranscript(TranscriptResult{Index: 2, Text: "partial words.", TimedOut: true, Timestamp: ts}))
	assert.Equal(t, "[10:00:00] #2 partial words. (incomplete)\n", buf.String())

	buf.Reset()
	require.NoError(t, f.WriteEvent("status", "recording"))
	assert.True(t, strings.HasSuffix(buf.String(), "[status] recording\n"))
}

func TestNewFormatterRejectsUnknown(t *testing.T) {
	_, err := NewFormatter("yaml", &bytes.Buffer{})
	assert.Error(t, err)
}

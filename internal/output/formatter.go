package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// TranscriptResult is one finished dictation as written to the output
type TranscriptResult struct {
	Index     int       `json:"index"`
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Chunks    int       `json:"chunks"`
	Failed    int       `json:"failed,omitempty"`
	TimedOut  bool      `json:"timed_out,omitempty"`
	Duration  float64   `json:"duration_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for output formatters
type Formatter interface {
	// WriteTranscript writes a finished transcript
	WriteTranscript(result TranscriptResult) error

	// WriteEvent writes a system event (e.g., session state changes)
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// NewFormatter returns the formatter for format ("json" or "text")
func NewFormatter(format string, writer io.Writer) (Formatter, error) {
	switch format {
	case "json":
		return NewJSONFormatter(writer), nil
	case "text", "":
		return NewPlainTextFormatter(writer), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// JSONFormatter outputs one JSON document per transcript or event
type JSONFormatter struct {
	encoder *json.Encoder
	results []TranscriptResult
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	return &JSONFormatter{
		encoder: json.NewEncoder(writer),
	}
}

// WriteTranscript writes a transcript in JSON format
func (j *JSONFormatter) WriteTranscript(result TranscriptResult) error {
	j.results = append(j.results, result)
	return j.encoder.Encode(result)
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	return j.encoder.Encode(Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Flush is a no-op; the encoder writes immediately
func (j *JSONFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (j *JSONFormatter) Close() error {
	return nil
}

// Results returns every transcript written so far
func (j *JSONFormatter) Results() []TranscriptResult {
	return j.results
}

// PlainTextFormatter outputs transcripts as plain text lines
type PlainTextFormatter struct {
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{
		writer: writer,
	}
}

// WriteTranscript writes a transcript in plain text
func (p *PlainTextFormatter) WriteTranscript(result TranscriptResult) error {
	line := fmt.Sprintf("[%s] #%d %s\n", result.Timestamp.Format("15:04:05"), result.Index, result.Text)
	if result.TimedOut {
		line = fmt.Sprintf("[%s] #%d %s (incomplete)\n", result.Timestamp.Format("15:04:05"), result.Index, result.Text)
	}
	_, err := io.WriteString(p.writer, line)
	return err
}

// WriteEvent writes a system event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	timestamp := time.Now().Format("15:04:05")
	_, err := fmt.Fprintf(p.writer, "[%s] [%s] %s\n", timestamp, eventType, message)
	return err
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (p *PlainTextFormatter) Close() error {
	return nil
}

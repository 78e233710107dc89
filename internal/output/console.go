package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// bar glyphs from empty to full
var barGlyphs = []rune(" ▁▂▃▄▅▆▇█")

// ConsoleOutput writes status lines, level bars and transcripts to a terminal
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	errWriter     io.Writer
	showTimestamp bool
	now           func() time.Time
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each transcript line with a timestamp
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer

	// ErrWriter receives error messages (default: os.Stderr)
	ErrWriter io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	errWriter := config.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}

	return &ConsoleOutput{
		writer:        writer,
		errWriter:     errWriter,
		showTimestamp: config.ShowTimestamp,
		now:           time.Now,
	}
}

// DefaultConsoleOutput creates a console output with default settings
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{ShowTimestamp: true})
}

// Write writes a transcript line
func (c *ConsoleOutput) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.showTimestamp {
		_, err = fmt.Fprintf(c.writer, "\r[%s] %s\n", c.now().Format("15:04:05"), text)
	} else {
		_, err = fmt.Fprintf(c.writer, "\r%s\n", text)
	}
	return err
}

// WriteBands draws one bar per band on the current line. Levels are in [0, 1].
func (c *ConsoleOutput) WriteBands(levels []float64, speech bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.writer, "\r%s %s", speechMarker(speech), renderBands(levels))
	return err
}

func speechMarker(speech bool) string {
	if speech {
		return "(o)"
	}
	return "( )"
}

func renderBands(levels []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	top := len(barGlyphs) - 1
	for _, level := range levels {
		i := int(level*float64(top) + 0.5)
		i = max(0, min(top, i))
		b.WriteRune(barGlyphs[i])
	}
	b.WriteByte(']')
	return b.String()
}

// Clear clears the current line
func (c *ConsoleOutput) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.writer, "\r%80s\r", " ")
	return err
}

// Info writes an informational message
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "[INFO] %s\n", msg)
}

// Error writes an error message to the error writer
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.errWriter, "[ERROR] %s\n", msg)
}

// Status writes a status message (typically overwritten)
func (c *ConsoleOutput) Status(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r[*] %-60s", msg)
}

package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ConsoleOutput handles terminal status output for the feedback session
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	showTimestamp bool
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each message line with a timestamp
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}

	return &ConsoleOutput{
		writer:        writer,
		showTimestamp: config.ShowTimestamp,
	}
}

// DefaultConsoleOutput creates a console output with default settings
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{
		ShowTimestamp: true,
		Writer:        os.Stdout,
	})
}

// Info writes an informational message
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.showTimestamp {
		fmt.Fprintf(c.writer, "\r[%s] %s\n", time.Now().Format("15:04:05"), msg)
	} else {
		fmt.Fprintf(c.writer, "\r%s\n", msg)
	}
}

// Error writes an error message to stderr
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(os.Stderr, "\r[ERROR] %s\n", msg)
}

// StatusLine renders the live session readout, overwriting the current
// line: target and measured delay, gain percentage and an output level
// bar, e.g.
//
//	running | delay 200ms (actual 198ms) | gain 100% [======          ]
func (c *ConsoleOutput) StatusLine(state string, delay, measured time.Duration, gain, level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	const barWidth = 16
	barLength := int(level * barWidth * 3) // RMS of speech rarely exceeds ~0.3
	if barLength > barWidth {
		barLength = barWidth
	}
	bar := strings.Repeat("=", barLength) + strings.Repeat(" ", barWidth-barLength)

	fmt.Fprintf(c.writer, "\r%-7s | delay %3dms (actual %3dms) | gain %3.0f%% [%s]  ",
		state,
		delay.Milliseconds(),
		measured.Milliseconds(),
		gain*100,
		bar)
}

// Clear clears the current line
func (c *ConsoleOutput) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%80s\r", " ")
}

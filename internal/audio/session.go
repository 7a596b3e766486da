package audio

import (
	"context"
	"errors"
	"io"
	"time"
)

// Errors surfaced by a feedback session. Device errors are fatal to the
// session: they are reported and the session transitions to stopped, with
// no retry, since the device is user-controlled hardware.
var (
	// ErrDeviceUnavailable means no usable input or output device exists.
	ErrDeviceUnavailable = errors.New("no suitable audio device")

	// ErrStreamOpen means the audio stream could not be opened or started.
	ErrStreamOpen = errors.New("failed to open audio stream")

	// ErrSessionRunning is returned by Start on a running session.
	ErrSessionRunning = errors.New("session already running")
)

// Format describes the PCM layout shared by the capture and playback
// directions. Samples are always 16-bit signed little-endian.
type Format struct {
	// SampleRate is the number of frames per second (Hz)
	SampleRate uint32

	// Channels is the number of interleaved channels (1 = mono, 2 = stereo)
	Channels uint32
}

// FrameBytes returns the size of one interleaved frame in bytes.
func (f Format) FrameBytes() int {
	return int(f.Channels) * 2
}

// BytesPerSecond returns the PCM data rate in bytes.
func (f Format) BytesPerSecond() int {
	return int(f.SampleRate) * f.FrameBytes()
}

// BytesFor converts a duration to a frame-aligned byte count.
func (f Format) BytesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	n := int(int64(d) * int64(f.BytesPerSecond()) / int64(time.Second))
	return n - n%f.FrameBytes()
}

// DurationFor converts a byte count back to a duration.
func (f Format) DurationFor(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(f.BytesPerSecond()))
}

// SessionConfig holds configuration for a feedback session
type SessionConfig struct {
	// Format is the PCM format used for both directions
	Format Format

	// PeriodFrames is the number of frames per hardware period
	// Smaller = lower latency floor, higher CPU usage
	PeriodFrames uint32

	// MaxDelay bounds the delay line; the arena is sized once from it
	MaxDelay time.Duration

	// Delay is the initial feedback delay
	Delay time.Duration

	// Gain is the initial output gain (1.0 = unity)
	Gain float64

	// InputDevice selects the capture device by name substring
	// Empty string = use default device
	InputDevice string

	// OutputDevice selects the playback device by name substring
	// Empty string = use default device
	OutputDevice string
}

// DefaultSessionConfig returns the stock configuration: CD-rate stereo
// with 100-frame periods, which keeps the delay granularity near 2ms.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Format:       Format{SampleRate: 44100, Channels: 2},
		PeriodFrames: 100,
		MaxDelay:     2 * time.Second,
		Delay:        200 * time.Millisecond,
		Gain:         1.0,
	}
}

// State is the session lifecycle state
type State int

const (
	StateStopped State = iota
	StateRunning
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Stats is a point-in-time snapshot of a session
type Stats struct {
	State State

	// Delay is the configured target delay
	Delay time.Duration

	// MeasuredDelay is the delay actually being applied, derived from
	// the amount of audio queued in the delay line
	MeasuredDelay time.Duration

	// Gain is the current output gain
	Gain float64

	// Level is the RMS level of the most recent output block (0.0-1.0)
	Level float64

	// Underruns counts output blocks that had to be silenced because
	// the capture side fell behind
	Underruns uint64

	// Overruns counts occasions where the oldest buffered frames were
	// dropped because the playback side fell behind
	Overruns uint64
}

// Session is a tunable delayed-feedback session: microphone to delay
// line to headphones, with delay and gain adjustable while running.
type Session interface {
	// Start opens the duplex stream and begins the feedback loop
	Start(ctx context.Context) error

	// Stop closes the stream and clears the delay line; idempotent
	Stop() error

	// Close stops the session and releases it for good
	Close() error

	// SetDelay retargets the feedback delay live
	SetDelay(delay time.Duration)

	// SetGain sets the output gain live
	SetGain(gain float64)

	// Delay returns the configured delay
	Delay() time.Duration

	// Gain returns the current gain
	Gain() float64

	// Stats returns a snapshot of the session state
	Stats() Stats

	// Errors returns a channel that receives fatal session errors
	Errors() <-chan error

	// IsRunning returns true while the feedback loop is active
	IsRunning() bool

	// SetTap installs a writer that receives every delayed output block
	// after gain is applied; nil removes it
	SetTap(w io.Writer)
}

package audio

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, mutate func(*SessionConfig)) *MalgoSession {
	t.Helper()
	cfg := DefaultSessionConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewMalgoSession(cfg, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestNewMalgoSessionValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SessionConfig)
	}{
		{"ZeroRate", func(c *SessionConfig) { c.Format.SampleRate = 0 }},
		{"ZeroChannels", func(c *SessionConfig) { c.Format.Channels = 0 }},
		{"ZeroPeriod", func(c *SessionConfig) { c.PeriodFrames = 0 }},
		{"ZeroMaxDelay", func(c *SessionConfig) { c.MaxDelay = 0 }},
		{"NegativeDelay", func(c *SessionConfig) { c.Delay = -time.Second }},
		{"DelayAboveMax", func(c *SessionConfig) { c.Delay = 3 * time.Second }},
		{"NegativeGain", func(c *SessionConfig) { c.Gain = -0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSessionConfig()
			tt.mutate(&cfg)
			_, err := NewMalgoSession(cfg, zerolog.Nop())
			assert.Error(t, err)
		})
	}
}

func TestSessionInitialState(t *testing.T) {
	s := newTestSession(t, nil)

	assert.False(t, s.IsRunning())
	assert.Equal(t, 200*time.Millisecond, s.Delay())
	assert.Equal(t, 1.0, s.Gain())

	stats := s.Stats()
	assert.Equal(t, StateStopped, stats.State)
	assert.Equal(t, 200*time.Millisecond, stats.Delay)
	assert.Zero(t, stats.MeasuredDelay)
	assert.Zero(t, stats.Underruns)
	assert.Zero(t, stats.Overruns)
}

func TestSessionStopBeforeStartIsNoop(t *testing.T) {
	s := newTestSession(t, nil)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Close())
}

func TestSessionCloseClosesErrorChannel(t *testing.T) {
	s := newTestSession(t, nil)
	require.NoError(t, s.Close())

	_, ok := <-s.Errors()
	assert.False(t, ok)

	// A second Close must not panic on the closed channel.
	require.NoError(t, s.Close())
}

func TestSessionSetGainClamps(t *testing.T) {
	s := newTestSession(t, nil)

	s.SetGain(0.5)
	assert.Equal(t, 0.5, s.Gain())

	s.SetGain(-1)
	assert.Zero(t, s.Gain())
}

func TestSessionSetDelayThrottlesAndClamps(t *testing.T) {
	s := newTestSession(t, nil)

	s.SetDelay(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, s.Delay())

	// A change inside the retarget interval is dropped.
	s.SetDelay(50 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, s.Delay())

	time.Sleep(retargetInterval + 5*time.Millisecond)
	s.SetDelay(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, s.Delay())

	// Out-of-range values clamp to the configured bounds.
	time.Sleep(retargetInterval + 5*time.Millisecond)
	s.SetDelay(time.Minute)
	assert.Equal(t, s.config.MaxDelay, s.Delay())

	time.Sleep(retargetInterval + 5*time.Millisecond)
	s.SetDelay(-time.Second)
	assert.Zero(t, s.Delay())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "running", StateRunning.String())
}

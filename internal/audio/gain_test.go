package audio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(buf []byte, i int) int16 {
	return int16(buf[i*2]) | int16(buf[i*2+1])<<8
}

func putSample(buf []byte, i int, v int16) {
	buf[i*2] = byte(v)
	buf[i*2+1] = byte(v >> 8)
}

func TestApplyGainScalesAmplitude(t *testing.T) {
	tests := []struct {
		name string
		in   int16
		gain float64
		want int16
	}{
		{"Half", 16000, 0.5, 8000},
		{"Double", 1000, 2.0, 2000},
		{"Silence", 16000, 0.0, 0},
		{"NegativeSample", -16000, 0.5, -8000},
		{"ClampHigh", 30000, 2.0, math.MaxInt16},
		{"ClampLow", -30000, 2.0, math.MinInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 2)
			putSample(buf, 0, tt.in)
			ApplyGain(buf, tt.gain)
			assert.Equal(t, tt.want, sampleAt(buf, 0))
		})
	}
}

func TestApplyGainUnityIsIdentity(t *testing.T) {
	buf := make([]byte, 8)
	for i, v := range []int16{123, -456, math.MaxInt16, math.MinInt16} {
		putSample(buf, i, v)
	}
	want := append([]byte(nil), buf...)

	ApplyGain(buf, 1.0)
	assert.Equal(t, want, buf)
}

// Gain is applied after the delay line, so scaling must be independent
// of the configured delay.
func TestGainIndependentOfDelay(t *testing.T) {
	dl := NewDelayLine(2*time.Second, testFormat)
	dl.SetDelay(30 * time.Millisecond)

	out := make([]byte, testBlockBytes)
	silence := make([]byte, testBlockBytes)

	dl.Process(out, impulseBlock(16000))
	for i := 0; i < 3; i++ {
		dl.Process(out, silence)
	}
	require.Equal(t, int16(16000), firstSample(out))

	ApplyGain(out, 0.25)
	assert.Equal(t, int16(4000), firstSample(out))
}

func TestLevel(t *testing.T) {
	assert.Zero(t, Level(nil))

	silence := make([]byte, testBlockBytes)
	assert.Zero(t, Level(silence))

	// A full-scale square wave has RMS 1.0.
	square := make([]byte, testBlockBytes)
	for i := 0; i < testBlockBytes/2; i++ {
		v := int16(32767)
		if i%2 == 1 {
			v = -32767
		}
		putSample(square, i, v)
	}
	assert.InDelta(t, 1.0, Level(square), 0.001)

	// Halving the amplitude halves the RMS.
	ApplyGain(square, 0.5)
	assert.InDelta(t, 0.5, Level(square), 0.001)
}

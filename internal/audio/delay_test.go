package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFormat keeps the arithmetic round: 10kHz mono means 20000 bytes
// per second and 200-byte blocks of 100 frames.
var testFormat = Format{SampleRate: 10000, Channels: 1}

const testBlockBytes = 200 // 100 frames

// impulseBlock returns a block whose first sample is the given value
func impulseBlock(value int16) []byte {
	block := make([]byte, testBlockBytes)
	block[0] = byte(value)
	block[1] = byte(value >> 8)
	return block
}

// firstSample reads the first 16-bit sample of a block
func firstSample(block []byte) int16 {
	return int16(block[0]) | int16(block[1])<<8
}

func isSilent(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}

func TestDelayLineImpulseLatency(t *testing.T) {
	tests := []struct {
		name         string
		delay        time.Duration
		impulseBlock int // block index at which the impulse should emerge
	}{
		{"Passthrough", 0, 0},
		{"OneBlock", 10 * time.Millisecond, 1},
		{"TenBlocks", 100 * time.Millisecond, 10},
		{"FiftyBlocks", 500 * time.Millisecond, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dl := NewDelayLine(2*time.Second, testFormat)
			dl.SetDelay(tt.delay)

			out := make([]byte, testBlockBytes)
			silence := make([]byte, testBlockBytes)

			found := -1
			for i := 0; i < tt.impulseBlock+5; i++ {
				in := silence
				if i == 0 {
					in = impulseBlock(16000)
				}
				dl.Process(out, in)
				if firstSample(out) == 16000 {
					found = i
					break
				}
			}

			require.Equal(t, tt.impulseBlock, found,
				"impulse emerged at the wrong block")
		})
	}
}

func TestDelayLineMeasuredDelayTracksTarget(t *testing.T) {
	dl := NewDelayLine(2*time.Second, testFormat)
	dl.SetDelay(100 * time.Millisecond)

	out := make([]byte, testBlockBytes)
	silence := make([]byte, testBlockBytes)
	for i := 0; i < 30; i++ {
		dl.Process(out, silence)
	}

	// Steady state keeps one target's worth of audio queued, within a
	// block of the configured delay.
	measured := dl.Buffered()
	assert.InDelta(t, 100, measured.Milliseconds(), 10)
	assert.Equal(t, 100*time.Millisecond, dl.Delay())
}

func TestDelayLineShrinkDropsOldest(t *testing.T) {
	dl := NewDelayLine(2*time.Second, testFormat)
	dl.SetDelay(100 * time.Millisecond)

	out := make([]byte, testBlockBytes)
	silence := make([]byte, testBlockBytes)

	// Feed the impulse and a few silent blocks; nothing is dequeued yet
	// because the line is still filling.
	dl.Process(out, impulseBlock(16000))
	for i := 0; i < 4; i++ {
		dl.Process(out, silence)
		require.True(t, isSilent(out), "line emitted audio while filling")
	}

	// Shrinking below the buffered content must drop the oldest frames,
	// taking the impulse with them.
	dl.SetDelay(20 * time.Millisecond)

	for i := 0; i < 40; i++ {
		dl.Process(out, silence)
		assert.True(t, isSilent(out), "dropped impulse reappeared at block %d", i)
	}
}

func TestDelayLineGrowRefillsWithSilence(t *testing.T) {
	dl := NewDelayLine(2*time.Second, testFormat)
	dl.SetDelay(20 * time.Millisecond)

	out := make([]byte, testBlockBytes)
	silence := make([]byte, testBlockBytes)

	// Prime at the short delay.
	for i := 0; i < 10; i++ {
		dl.Process(out, silence)
	}

	dl.SetDelay(100 * time.Millisecond)

	// The impulse fed right after the change obeys the new delay.
	dl.Process(out, impulseBlock(16000))
	require.True(t, isSilent(out))

	found := -1
	for i := 1; i < 20; i++ {
		dl.Process(out, silence)
		if firstSample(out) == 16000 {
			found = i
			break
		}
	}
	assert.Equal(t, 10, found, "impulse should emerge one new-delay later")
}

func TestDelayLineOverrunDropsOldest(t *testing.T) {
	dl := NewDelayLine(100*time.Millisecond, testFormat)
	dl.SetDelay(100 * time.Millisecond)

	// Writing without ever draining must wrap by dropping the oldest
	// frames instead of growing or corrupting the cursors.
	in := make([]byte, testBlockBytes)
	for i := 0; i < 100; i++ {
		dl.Process(nil, in)
	}

	_, overruns := dl.Counters()
	assert.Greater(t, overruns, uint64(0))
	assert.LessOrEqual(t, dl.Buffered(), 700*time.Millisecond,
		"buffered audio exceeded the arena capacity")
}

func TestDelayLineUnderrunCountsOnlyWhenPrimed(t *testing.T) {
	dl := NewDelayLine(2*time.Second, testFormat)
	dl.SetDelay(40 * time.Millisecond)

	out := make([]byte, testBlockBytes)
	silence := make([]byte, testBlockBytes)

	// The initial fill is not an underrun.
	for i := 0; i < 4; i++ {
		dl.Process(out, silence)
	}
	underruns, _ := dl.Counters()
	require.Zero(t, underruns)

	// Prime, then starve the writer.
	for i := 0; i < 10; i++ {
		dl.Process(out, silence)
	}
	dl.Process(out, nil)

	underruns, _ = dl.Counters()
	assert.Equal(t, uint64(1), underruns)
	assert.True(t, isSilent(out))
}

func TestDelayLineReset(t *testing.T) {
	dl := NewDelayLine(2*time.Second, testFormat)
	dl.SetDelay(100 * time.Millisecond)

	out := make([]byte, testBlockBytes)
	dl.Process(out, impulseBlock(16000))
	require.Greater(t, dl.Buffered(), time.Duration(0))

	dl.Reset()
	assert.Zero(t, dl.Buffered())
	assert.Equal(t, 100*time.Millisecond, dl.Delay(), "reset must keep the configured delay")
}

func TestFormatConversions(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2}

	assert.Equal(t, 4, f.FrameBytes())
	assert.Equal(t, 176400, f.BytesPerSecond())
	assert.Zero(t, f.BytesFor(0))
	assert.Zero(t, f.BytesFor(-time.Second))

	n := f.BytesFor(200 * time.Millisecond)
	assert.Zero(t, n%f.FrameBytes(), "byte counts must stay frame aligned")
	assert.InDelta(t, 200, f.DurationFor(n).Milliseconds(), 1)
}

package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	rec, err := NewRecorder(path, 10000, 1)
	require.NoError(t, err)

	// Two blocks of a known ramp.
	block := make([]byte, 200)
	for i := 0; i < 100; i++ {
		v := int16(i * 100)
		block[i*2] = byte(v)
		block[i*2+1] = byte(v >> 8)
	}
	for i := 0; i < 2; i++ {
		n, err := rec.Write(block)
		require.NoError(t, err)
		assert.Equal(t, len(block), n)
	}

	assert.Equal(t, 200, rec.Frames())
	require.NoError(t, rec.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	decoder := wav.NewDecoder(file)
	require.True(t, decoder.IsValidFile())

	buf, err := decoder.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 10000, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	require.Len(t, buf.Data, 200)
	assert.Equal(t, 0, buf.Data[0])
	assert.Equal(t, 9900, buf.Data[99])
	assert.Equal(t, 9900, buf.Data[199])
}

func TestRecorderStereoFrameCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")

	rec, err := NewRecorder(path, 44100, 2)
	require.NoError(t, err)

	// 100 stereo frames = 400 bytes.
	_, err = rec.Write(make([]byte, 400))
	require.NoError(t, err)
	assert.Equal(t, 100, rec.Frames())
	require.NoError(t, rec.Close())
}

func TestRecorderWriteAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.wav")

	rec, err := NewRecorder(path, 10000, 1)
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	_, err = rec.Write(make([]byte, 4))
	assert.Error(t, err)

	// Close is idempotent.
	require.NoError(t, rec.Close())
}

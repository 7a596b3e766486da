package record

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder writes 16-bit little-endian PCM blocks to a WAV file. It is
// installed as the session tap, so it runs inside the audio callback and
// keeps its Write path allocation-light by reusing one conversion buffer.
type Recorder struct {
	mu         sync.Mutex
	file       *os.File
	encoder    *wav.Encoder
	intBuf     *audio.IntBuffer
	frameCount int
	channels   int
	closed     bool
}

// NewRecorder creates a WAV file at path for the given stream format
func NewRecorder(path string, sampleRate, channels int) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create record file: %w", err)
	}

	encoder := wav.NewEncoder(file, sampleRate, 16, channels, 1)

	return &Recorder{
		file:     file,
		encoder:  encoder,
		channels: channels,
		intBuf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

// Write appends a block of S16LE PCM to the file. Implements io.Writer
// so the recorder can be used directly as a session tap.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, fmt.Errorf("recorder is closed")
	}

	sampleCount := len(p) / 2
	if cap(r.intBuf.Data) < sampleCount {
		r.intBuf.Data = make([]int, sampleCount)
	}
	r.intBuf.Data = r.intBuf.Data[:sampleCount]

	for i := 0; i < sampleCount; i++ {
		r.intBuf.Data[i] = int(int16(p[i*2]) | int16(p[i*2+1])<<8)
	}

	if err := r.encoder.Write(r.intBuf); err != nil {
		return 0, fmt.Errorf("failed to write WAV data: %w", err)
	}

	r.frameCount += sampleCount / r.channels
	return len(p), nil
}

// Frames returns the number of audio frames written so far
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameCount
}

// Close finalizes the WAV header and closes the file; idempotent
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.encoder.Close(); err != nil {
		_ = r.file.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return r.file.Close()
}

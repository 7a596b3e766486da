package audio

import (
	"sync"
	"time"
)

// DelayLine is a fixed-capacity FIFO of PCM data indexed by read/write
// cursors. The arena is allocated once for the maximum delay, so live
// delay changes only move cursors and never allocate.
//
// The audio callback calls Process with matching in/out blocks; the UI
// goroutine calls SetDelay. Both take the same lock, which is held only
// for cursor bookkeeping and block copies.
type DelayLine struct {
	mu         sync.Mutex
	arena      []byte
	frameBytes int
	format     Format
	readPos    int
	writePos   int
	buffered   int // bytes queued between the cursors
	target     int // configured delay in bytes
	primed     bool
	underruns  uint64
	overruns   uint64
}

// NewDelayLine creates a delay line able to hold up to maxDelay of audio
// in the given format, plus headroom for one period of slack.
func NewDelayLine(maxDelay time.Duration, format Format) *DelayLine {
	capacity := format.BytesFor(maxDelay) + format.BytesFor(500*time.Millisecond)
	if capacity < format.FrameBytes() {
		capacity = format.FrameBytes()
	}
	return &DelayLine{
		arena:      make([]byte, capacity),
		frameBytes: format.FrameBytes(),
		format:     format,
	}
}

// Process enqueues the input block and, once enough audio is buffered to
// cover the configured delay, dequeues the oldest block into out. While
// the line is still filling, out is zeroed so the output stays silent.
func (d *DelayLine) Process(out, in []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.write(in)

	if d.buffered >= d.target+len(out) {
		d.read(out)
		d.primed = true
		return
	}

	// Not enough buffered yet. Silence during the initial fill (or after
	// a delay increase) is expected; silence on a primed line means the
	// writer fell behind.
	if d.primed {
		d.underruns++
	}
	for i := range out {
		out[i] = 0
	}
}

// SetDelay retargets the line. Shrinking below the currently buffered
// content drops the oldest frames immediately; growing leaves the
// buffered audio in place and refills the gap with silence.
func (d *DelayLine) SetDelay(delay time.Duration) {
	target := d.format.BytesFor(delay)
	maxTarget := len(d.arena) - len(d.arena)%d.frameBytes
	if target > maxTarget {
		target = maxTarget
	}
	if target < 0 {
		target = 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if target > d.target {
		d.primed = false
	}
	d.target = target

	if excess := d.buffered - target; excess > 0 {
		excess -= excess % d.frameBytes
		d.readPos = (d.readPos + excess) % len(d.arena)
		d.buffered -= excess
	}
}

// Delay returns the configured delay.
func (d *DelayLine) Delay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format.DurationFor(d.target)
}

// Buffered returns the duration of audio currently queued, i.e. the
// delay actually being applied.
func (d *DelayLine) Buffered() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format.DurationFor(d.buffered)
}

// Counters returns the underrun and overrun totals.
func (d *DelayLine) Counters() (underruns, overruns uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.underruns, d.overruns
}

// Reset clears the queued audio without touching the configured delay.
func (d *DelayLine) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readPos = 0
	d.writePos = 0
	d.buffered = 0
	d.primed = false
}

// write copies data at the write cursor, dropping the oldest frames when
// the arena would overflow. Callers hold d.mu.
func (d *DelayLine) write(data []byte) {
	if len(data) > len(d.arena) {
		data = data[len(data)-len(d.arena):]
	}

	if overflow := d.buffered + len(data) - len(d.arena); overflow > 0 {
		if rem := overflow % d.frameBytes; rem != 0 {
			overflow += d.frameBytes - rem
		}
		if overflow > d.buffered {
			overflow = d.buffered
		}
		d.readPos = (d.readPos + overflow) % len(d.arena)
		d.buffered -= overflow
		d.overruns++
	}

	n := copy(d.arena[d.writePos:], data)
	if n < len(data) {
		copy(d.arena, data[n:])
	}
	d.writePos = (d.writePos + len(data)) % len(d.arena)
	d.buffered += len(data)
}

// read copies the oldest len(out) bytes into out. Callers hold d.mu and
// have checked that enough data is buffered.
func (d *DelayLine) read(out []byte) {
	n := copy(out, d.arena[d.readPos:])
	if n < len(out) {
		copy(out[n:], d.arena)
	}
	d.readPos = (d.readPos + len(out)) % len(d.arena)
	d.buffered -= len(out)
}

package audio

import "math"

// ApplyGain scales 16-bit little-endian PCM samples in place. Values
// that leave the int16 range are clamped rather than wrapped.
func ApplyGain(buf []byte, gain float64) {
	if gain == 1.0 {
		return
	}

	for i := 0; i+1 < len(buf); i += 2 {
		sample := int16(buf[i]) | int16(buf[i+1])<<8
		scaled := float64(sample) * gain
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		sample = int16(scaled)
		buf[i] = byte(sample)
		buf[i+1] = byte(sample >> 8)
	}
}

// Level calculates the RMS energy of a 16-bit PCM buffer, normalized to
// the 0.0-1.0 range. Used for the console level meter.
func Level(buf []byte) float64 {
	sampleCount := len(buf) / 2
	if sampleCount == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < sampleCount; i++ {
		sample := int16(buf[i*2]) | int16(buf[i*2+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(sampleCount))
}

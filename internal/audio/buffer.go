package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/gopxl/beep"
)

// Buffer is a mono signal normalized to [-1, 1] plus its sample rate. An
// effect owns the buffer it is transforming; once handed to an encoder it is
// treated as immutable.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Validate reports whether the buffer can be encoded or transformed.
func (b Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", b.SampleRate)
	}
	return nil
}

// Len returns the number of samples.
func (b Buffer) Len() int { return len(b.Samples) }

// Seconds returns the buffer duration in seconds.
func (b Buffer) Seconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Duration returns the buffer duration.
func (b Buffer) Duration() time.Duration {
	return time.Duration(b.Seconds() * float64(time.Second))
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	out := make([]float64, len(b.Samples))
	copy(out, b.Samples)
	return Buffer{Samples: out, SampleRate: b.SampleRate}
}

// Energy returns the sum of squared samples.
func (b Buffer) Energy() float64 {
	var sum float64
	for _, v := range b.Samples {
		sum += v * v
	}
	return sum
}

// Peak returns the largest absolute sample value.
func (b Buffer) Peak() float64 {
	var peak float64
	for _, v := range b.Samples {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// Format describes the buffer for beep encoders. Mono, 16-bit.
func (b Buffer) Format() beep.Format {
	return beep.Format{SampleRate: beep.SampleRate(b.SampleRate), NumChannels: 1, Precision: 2}
}

// Streamer exposes the samples as a beep.Streamer, duplicating the mono
// channel into both stereo slots.
func (b Buffer) Streamer() beep.Streamer {
	return &sliceStreamer{samples: b.Samples}
}

type sliceStreamer struct {
	samples []float64
	pos     int
}

func (s *sliceStreamer) Stream(buf [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := copy2(buf, s.samples[s.pos:])
	s.pos += n
	return n, true
}

func (s *sliceStreamer) Err() error { return nil }

func copy2(dst [][2]float64, src []float64) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i][0] = src[i]
		dst[i][1] = src[i]
	}
	return n
}

// Drain reads s to exhaustion and downmixes each frame to mono.
func Drain(s beep.Streamer) ([]float64, error) {
	chunk := make([][2]float64, 4096)
	var out []float64
	for {
		n, ok := s.Stream(chunk)
		for i := 0; i < n; i++ {
			out = append(out, (chunk[i][0]+chunk[i][1])/2)
		}
		if !ok {
			break
		}
	}
	return out, s.Err()
}

// ResampleRatio changes the number of samples by 1/ratio using beep's
// windowed-sinc resampler. A ratio above 1 shortens the signal.
func ResampleRatio(samples []float64, ratio float64) ([]float64, error) {
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return nil, fmt.Errorf("resample ratio must be positive, got %v", ratio)
	}
	if ratio == 1 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}
	resampler := beep.ResampleRatio(resampleQuality, ratio, Buffer{Samples: samples}.Streamer())
	return Drain(resampler)
}

// FixLength truncates or zero-pads samples to exactly n.
func FixLength(samples []float64, n int) []float64 {
	if len(samples) == n {
		return samples
	}
	if len(samples) > n {
		return samples[:n]
	}
	out := make([]float64, n)
	copy(out, samples)
	return out
}

const resampleQuality = 4

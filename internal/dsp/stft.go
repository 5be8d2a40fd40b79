package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrogram holds one-sided STFT frames of a real signal together with the
// framing needed to invert it.
type Spectrogram struct {
	// Frames[t][k] is bin k of frame t. Each frame has WindowSize/2+1 bins.
	Frames     [][]complex128
	WindowSize int
	HopLength  int
	// SignalLength is the length of the analysed signal before padding.
	SignalLength int
}

// STFT frames signal with a periodic Hann window. The signal is centred by
// padding WindowSize/2 zeros on each side, so frame t is centred on sample
// t*HopLength.
func STFT(signal []float64, windowSize, hopLength int) *Spectrogram {
	half := windowSize / 2
	padded := make([]float64, len(signal)+2*half)
	copy(padded[half:], signal)

	frames := 1 + (len(padded)-windowSize)/hopLength
	window := Hann(windowSize)
	fft := fourier.NewFFT(windowSize)
	segment := make([]float64, windowSize)

	spec := &Spectrogram{
		Frames:       make([][]complex128, frames),
		WindowSize:   windowSize,
		HopLength:    hopLength,
		SignalLength: len(signal),
	}
	for t := 0; t < frames; t++ {
		start := t * hopLength
		for i := range segment {
			segment[i] = padded[start+i] * window[i]
		}
		spec.Frames[t] = fft.Coefficients(nil, segment)
	}
	return spec
}

// Bins returns the number of frequency bins per frame.
func (s *Spectrogram) Bins() int {
	return s.WindowSize/2 + 1
}

// Inverse reconstructs a signal of the given length by weighted overlap-add.
// Samples whose accumulated window energy is negligible are left at zero.
func (s *Spectrogram) Inverse(length int) []float64 {
	if length < 0 {
		length = s.SignalLength
	}
	n := s.WindowSize
	half := n / 2
	total := n + s.HopLength*max(len(s.Frames)-1, 0)
	acc := make([]float64, total)
	norm := make([]float64, total)
	window := Hann(n)
	fft := fourier.NewFFT(n)
	seq := make([]float64, n)
	scale := 1 / float64(n)

	for t, frame := range s.Frames {
		fft.Sequence(seq, frame)
		start := t * s.HopLength
		for i := 0; i < n; i++ {
			acc[start+i] += seq[i] * scale * window[i]
			norm[start+i] += window[i] * window[i]
		}
	}

	out := make([]float64, length)
	for i := range out {
		j := i + half
		if j >= total {
			break
		}
		if norm[j] > 1e-10 {
			out[i] = acc[j] / norm[j]
		}
	}
	return out
}

// Magnitudes returns |X| for every frame and bin.
func (s *Spectrogram) Magnitudes() [][]float64 {
	out := make([][]float64, len(s.Frames))
	for t, frame := range s.Frames {
		row := make([]float64, len(frame))
		for k, c := range frame {
			row[k] = cmplx.Abs(c)
		}
		out[t] = row
	}
	return out
}

// Power returns |X|^2 for every frame and bin.
func (s *Spectrogram) Power() [][]float64 {
	out := make([][]float64, len(s.Frames))
	for t, frame := range s.Frames {
		row := make([]float64, len(frame))
		for k, c := range frame {
			re, im := real(c), imag(c)
			row[k] = re*re + im*im
		}
		out[t] = row
	}
	return out
}

// Phase returns the unit phasor of c, or 1 when c is zero.
func Phase(c complex128) complex128 {
	mag := cmplx.Abs(c)
	if mag == 0 {
		return 1
	}
	return c / complex(mag, 0)
}

// Hann returns a periodic Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

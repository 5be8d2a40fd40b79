package dsp

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// RealSpectrum is the one-sided DFT of a real signal. Bins[k] corresponds to
// k*SampleRate/N Hz for k in [0, N/2].
type RealSpectrum struct {
	Bins []complex128
	// N is the transform length. It equals the signal length except for an
	// empty signal, which is transformed as a single zero sample.
	N int
	// Length is the original signal length.
	Length int
}

// Forward computes the one-sided spectrum of signal at its own length, so
// the bin grid and circular wrap match an unpadded DFT.
func Forward(signal []float64) RealSpectrum {
	if len(signal) == 0 {
		return RealSpectrum{Bins: []complex128{0}, N: 1}
	}
	fft := fourier.NewFFT(len(signal))
	return RealSpectrum{Bins: fft.Coefficients(nil, signal), N: len(signal), Length: len(signal)}
}

// BinFrequency returns the centre frequency of bin k in Hz.
func (s RealSpectrum) BinFrequency(k, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(s.N)
}

// Inverse transforms the spectrum back to a real signal of the original
// length. gonum's inverse is unnormalized so the result is scaled by 1/N.
func (s RealSpectrum) Inverse() []float64 {
	fft := fourier.NewFFT(s.N)
	seq := fft.Sequence(nil, s.Bins)
	scale := 1 / float64(s.N)
	out := make([]float64, s.Length)
	for i := range out {
		out[i] = seq[i] * scale
	}
	return out
}

package dsp

import (
	"math"
)

// Slaney mel scale constants: linear below 1 kHz, logarithmic above.
const (
	melFSp      = 200.0 / 3
	melMinLogHz = 1000.0
	melLogStep  = 0.06875177742094912 // ln(6.4) / 27
)

var melMinLogMel = melMinLogHz / melFSp

// HzToMel converts frequency to the Slaney mel scale.
func HzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// MelToHz is the inverse of HzToMel.
func MelToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// MelFilterBank builds nMels triangular filters spanning 0 Hz to Nyquist over
// the one-sided bins of an nFFT-point transform. Filters are area-normalized
// so each band has comparable energy regardless of width.
func MelFilterBank(sampleRate, nFFT, nMels int) [][]float64 {
	bins := nFFT/2 + 1
	nyquist := float64(sampleRate) / 2

	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * nyquist / float64(bins-1)
	}

	maxMel := HzToMel(nyquist)
	melFreqs := make([]float64, nMels+2)
	for i := range melFreqs {
		melFreqs[i] = MelToHz(maxMel * float64(i) / float64(nMels+1))
	}

	weights := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		lowerWidth := melFreqs[m+1] - melFreqs[m]
		upperWidth := melFreqs[m+2] - melFreqs[m+1]
		enorm := 2 / (melFreqs[m+2] - melFreqs[m])
		row := make([]float64, bins)
		for k, f := range fftFreqs {
			lower := (f - melFreqs[m]) / lowerWidth
			upper := (melFreqs[m+2] - f) / upperWidth
			if w := math.Min(lower, upper); w > 0 {
				row[k] = w * enorm
			}
		}
		weights[m] = row
	}
	return weights
}

// MFCCConfig controls feature extraction.
type MFCCConfig struct {
	SampleRate   int
	WindowSize   int
	HopLength    int
	MelBands     int
	Coefficients int
	// TopDB clamps the log-mel spectrogram to this many dB below its peak.
	TopDB float64
}

// MFCC returns one feature vector of cfg.Coefficients cepstral coefficients
// per analysis frame. Frames follow the same centred framing as STFT, so
// there are 1 + len(signal)/HopLength of them.
func MFCC(signal []float64, cfg MFCCConfig) [][]float64 {
	spec := STFT(signal, cfg.WindowSize, cfg.HopLength)
	power := spec.Power()
	bank := MelFilterBank(cfg.SampleRate, cfg.WindowSize, cfg.MelBands)

	const amin = 1e-10
	logMel := make([][]float64, len(power))
	peak := math.Inf(-1)
	for t, frame := range power {
		row := make([]float64, cfg.MelBands)
		for m, filter := range bank {
			var energy float64
			for k, w := range filter {
				if w != 0 {
					energy += w * frame[k]
				}
			}
			row[m] = 10 * math.Log10(math.Max(amin, energy))
			peak = math.Max(peak, row[m])
		}
		logMel[t] = row
	}
	if cfg.TopDB > 0 {
		floor := peak - cfg.TopDB
		for _, row := range logMel {
			for m := range row {
				row[m] = math.Max(row[m], floor)
			}
		}
	}

	features := make([][]float64, len(logMel))
	for t, row := range logMel {
		features[t] = DCT2(row, cfg.Coefficients)
	}
	return features
}

// DCT2 returns the first n coefficients of the orthonormal type-II DCT of x.
func DCT2(x []float64, n int) []float64 {
	size := len(x)
	n = min(n, size)
	out := make([]float64, n)
	if size == 0 {
		return out
	}
	base := math.Pi / float64(2*size)
	for k := 0; k < n; k++ {
		var sum float64
		for i, v := range x {
			sum += v * math.Cos(base*float64(k)*float64(2*i+1))
		}
		scale := math.Sqrt(2 / float64(size))
		if k == 0 {
			scale = math.Sqrt(1 / float64(size))
		}
		out[k] = sum * scale
	}
	return out
}

package dsp

import (
	"math"
	"math/cmplx"
	"testing"
)

func sine(freq float64, rate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return out
}

func TestForwardUsesSignalLength(t *testing.T) {
	signal := make([]float64, 101)
	for i := range signal {
		signal[i] = math.Sin(0.3*float64(i)) + 0.25*math.Cos(1.7*float64(i))
	}
	spec := Forward(signal)
	if spec.N != len(signal) || len(spec.Bins) != len(signal)/2+1 {
		t.Fatalf("N = %d bins = %d, want %d and %d", spec.N, len(spec.Bins), len(signal), len(signal)/2+1)
	}
	n := float64(len(signal))
	for k := range spec.Bins {
		var want complex128
		for i, x := range signal {
			want += complex(x, 0) * cmplx.Exp(complex(0, -2*math.Pi*float64(k)*float64(i)/n))
		}
		if cmplx.Abs(spec.Bins[k]-want) > 1e-9 {
			t.Fatalf("bin %d = %v, direct DFT gives %v", k, spec.Bins[k], want)
		}
	}
}

func TestForwardEmptySignal(t *testing.T) {
	spec := Forward(nil)
	if back := spec.Inverse(); len(back) != 0 {
		t.Fatalf("expected empty inverse, got %d samples", len(back))
	}
}

func TestForwardInverseRoundTrip(t *testing.T) {
	signal := sine(440, 8000, 997)
	spec := Forward(signal)
	if spec.N != 997 {
		t.Fatalf("expected transform length 997, got %d", spec.N)
	}
	back := spec.Inverse()
	if len(back) != len(signal) {
		t.Fatalf("unexpected length %d", len(back))
	}
	for i := range signal {
		if math.Abs(back[i]-signal[i]) > 1e-9 {
			t.Fatalf("sample %d differs: %v vs %v", i, back[i], signal[i])
		}
	}
}

func TestForwardPeakBin(t *testing.T) {
	spec := Forward(sine(100, 8000, 8000))
	k := 100
	if f := spec.BinFrequency(k, 8000); f != 100 {
		t.Fatalf("unexpected bin frequency %v", f)
	}
	if mag := cmplx.Abs(spec.Bins[k]); math.Abs(mag-4000) > 1e-6 {
		t.Fatalf("unexpected peak magnitude %v", mag)
	}
}

func TestSTFTFrameCount(t *testing.T) {
	spec := STFT(make([]float64, 22050), 2048, 512)
	if want := 1 + 22050/512; len(spec.Frames) != want {
		t.Fatalf("frames = %d want %d", len(spec.Frames), want)
	}
	if spec.Bins() != 1025 || len(spec.Frames[0]) != 1025 {
		t.Fatalf("unexpected bin count %d", len(spec.Frames[0]))
	}
}

func TestSTFTInverseReconstructs(t *testing.T) {
	signal := sine(300, 16000, 16000)
	spec := STFT(signal, 2048, 512)
	back := spec.Inverse(len(signal))
	for i := range signal {
		if math.Abs(back[i]-signal[i]) > 1e-6 {
			t.Fatalf("sample %d differs: %v vs %v", i, back[i], signal[i])
		}
	}
}

func TestSTFTShortSignal(t *testing.T) {
	signal := []float64{0.1, -0.2, 0.3}
	spec := STFT(signal, 2048, 512)
	if len(spec.Frames) != 1 {
		t.Fatalf("expected a single frame, got %d", len(spec.Frames))
	}
	back := spec.Inverse(len(signal))
	for i := range signal {
		if math.Abs(back[i]-signal[i]) > 1e-9 {
			t.Fatalf("sample %d differs: %v vs %v", i, back[i], signal[i])
		}
	}
}

func TestMelScaleInverse(t *testing.T) {
	for _, hz := range []float64{0, 200, 999, 1000, 4000, 11025} {
		if got := MelToHz(HzToMel(hz)); math.Abs(got-hz) > 1e-6 {
			t.Fatalf("MelToHz(HzToMel(%v)) = %v", hz, got)
		}
	}
	if got := HzToMel(1000); math.Abs(got-15) > 1e-9 {
		t.Fatalf("HzToMel(1000) = %v want 15", got)
	}
}

func TestMelFilterBankShape(t *testing.T) {
	bank := MelFilterBank(22050, 2048, 128)
	if len(bank) != 128 || len(bank[0]) != 1025 {
		t.Fatalf("unexpected bank shape %dx%d", len(bank), len(bank[0]))
	}
	for m, row := range bank {
		var sum float64
		for _, w := range row {
			if w < 0 {
				t.Fatalf("negative weight in band %d", m)
			}
			sum += w
		}
		if sum == 0 && m > 0 {
			t.Fatalf("band %d is empty", m)
		}
	}
}

func TestDCT2Orthonormal(t *testing.T) {
	x := []float64{1, 1, 1, 1}
	got := DCT2(x, 4)
	if math.Abs(got[0]-2) > 1e-12 {
		t.Fatalf("DC coefficient = %v want 2", got[0])
	}
	for k := 1; k < 4; k++ {
		if math.Abs(got[k]) > 1e-12 {
			t.Fatalf("coefficient %d = %v want 0", k, got[k])
		}
	}
}

func TestMFCCShape(t *testing.T) {
	cfg := MFCCConfig{SampleRate: 16000, WindowSize: 2048, HopLength: 512, MelBands: 128, Coefficients: 13, TopDB: 80}
	features := MFCC(sine(440, 16000, 16000), cfg)
	if want := 1 + 16000/512; len(features) != want {
		t.Fatalf("frames = %d want %d", len(features), want)
	}
	for _, f := range features {
		if len(f) != 13 {
			t.Fatalf("expected 13 coefficients, got %d", len(f))
		}
		for _, v := range f {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("non-finite coefficient %v", v)
			}
		}
	}
}

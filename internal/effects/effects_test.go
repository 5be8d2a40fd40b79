package effects_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"mediaframe/internal/audio"
	"mediaframe/internal/config"
	"mediaframe/internal/effects"
	"mediaframe/internal/logging"
	"mediaframe/internal/services"
	"mediaframe/internal/testsupport"
)

func newProcessor() *effects.Processor {
	return effects.New(effects.SettingsFromConfig(config.Default().Effects), logging.NewNop())
}

func TestBassBoostDoublesLowTone(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(100, 8000, 1, 0.25), SampleRate: 8000}
	out, err := p.BassBoost(context.Background(), in)
	if err != nil {
		t.Fatalf("BassBoost: %v", err)
	}
	if out.Len() != in.Len() {
		t.Fatalf("length changed: %d -> %d", in.Len(), out.Len())
	}
	ratio := testsupport.RMS(out.Samples) / testsupport.RMS(in.Samples)
	if math.Abs(ratio-2) > 0.01 {
		t.Fatalf("expected 2x amplitude, got %.4f", ratio)
	}
}

func TestBassBoostKeepsEdgesOfBinAlignedTone(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(140, 22050, 1, 0.4), SampleRate: 22050}
	out, err := p.BassBoost(context.Background(), in)
	if err != nil {
		t.Fatalf("BassBoost: %v", err)
	}
	for _, i := range []int{0, 1, 2, in.Len() / 2, in.Len() - 2, in.Len() - 1} {
		if want := 2 * in.Samples[i]; math.Abs(out.Samples[i]-want) > 1e-9 {
			t.Fatalf("sample %d = %v want %v", i, out.Samples[i], want)
		}
	}
}

func TestBassBoostLeavesHighToneAlone(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(1000, 8000, 1, 0.5), SampleRate: 8000}
	out, err := p.BassBoost(context.Background(), in)
	if err != nil {
		t.Fatalf("BassBoost: %v", err)
	}
	for i := range in.Samples {
		if math.Abs(out.Samples[i]-in.Samples[i]) > 1e-9 {
			t.Fatalf("sample %d changed: %v -> %v", i, in.Samples[i], out.Samples[i])
		}
	}
}

func TestBassBoostDoesNotMutateInput(t *testing.T) {
	p := newProcessor()
	samples := testsupport.Sine(80, 8000, 0.5, 0.1)
	orig := append([]float64(nil), samples...)
	if _, err := p.BassBoost(context.Background(), audio.Buffer{Samples: samples, SampleRate: 8000}); err != nil {
		t.Fatalf("BassBoost: %v", err)
	}
	for i := range orig {
		if samples[i] != orig[i] {
			t.Fatalf("input mutated at %d", i)
		}
	}
}

func TestNoiseCancelSilenceStaysSilent(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: make([]float64, 16000), SampleRate: 8000}
	out, err := p.NoiseCancel(context.Background(), in)
	if err != nil {
		t.Fatalf("NoiseCancel: %v", err)
	}
	if out.Len() != in.Len() {
		t.Fatalf("length changed: %d -> %d", in.Len(), out.Len())
	}
	if peak := out.Peak(); peak > 1e-9 {
		t.Fatalf("expected silence, peak %v", peak)
	}
}

func TestNoiseCancelRemovesStationaryTone(t *testing.T) {
	p := newProcessor()
	hum := testsupport.Sine(200, 8000, 3, 0.3)
	in := audio.Buffer{Samples: hum, SampleRate: 8000}
	out, err := p.NoiseCancel(context.Background(), in)
	if err != nil {
		t.Fatalf("NoiseCancel: %v", err)
	}
	before := testsupport.RMS(in.Samples[8000:16000])
	after := testsupport.RMS(out.Samples[8000:16000])
	if after > before*0.1 {
		t.Fatalf("stationary tone not attenuated: rms %.4f -> %.4f", before, after)
	}
}

func TestNoiseCancelShortInputUsesWholeSignal(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(300, 8000, 0.25, 0.2), SampleRate: 8000}
	profile := p.NoiseProfile(in)
	if len(profile) != p.Settings().NoiseWindow/2+1 {
		t.Fatalf("unexpected profile size %d", len(profile))
	}
	out, err := p.NoiseCancel(context.Background(), in)
	if err != nil {
		t.Fatalf("NoiseCancel: %v", err)
	}
	if out.Len() != in.Len() {
		t.Fatalf("length changed: %d -> %d", in.Len(), out.Len())
	}
}

func TestSpeedChangeHalvesDuration(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(440, 8000, 10, 0.5), SampleRate: 8000}
	out, err := p.SpeedChange(context.Background(), in, 2.0)
	if err != nil {
		t.Fatalf("SpeedChange: %v", err)
	}
	if math.Abs(out.Seconds()-5) > float64(p.Settings().StretchHop)/8000 {
		t.Fatalf("expected ~5s, got %.3fs", out.Seconds())
	}
	if out.Len() != 40000 {
		t.Fatalf("expected 40000 samples, got %d", out.Len())
	}
	mid := testsupport.RMS(out.Samples[10000:30000])
	if mid < 0.5*testsupport.RMS(in.Samples) {
		t.Fatalf("stretched signal lost energy: rms %.4f", mid)
	}
}

func TestSpeedChangeSlowDown(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(440, 8000, 1, 0.5), SampleRate: 8000}
	out, err := p.SpeedChange(context.Background(), in, 0.5)
	if err != nil {
		t.Fatalf("SpeedChange: %v", err)
	}
	if out.Len() != 16000 {
		t.Fatalf("expected 16000 samples, got %d", out.Len())
	}
}

func TestSpeedChangeRejectsOutOfRangeFactor(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(440, 8000, 1, 0.5), SampleRate: 8000}
	for _, factor := range []float64{0, -1, 0.009, 100.1, 1e12, math.NaN(), math.Inf(1)} {
		_, err := p.SpeedChange(context.Background(), in, factor)
		if !errors.Is(err, services.ErrInvalidParameter) {
			t.Fatalf("factor %v: expected invalid parameter, got %v", factor, err)
		}
	}
}

func TestSpeedChangeAcceptsRangeBounds(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(440, 8000, 0.1, 0.5), SampleRate: 8000}
	for _, factor := range []float64{effects.MinSpeedFactor, effects.MaxSpeedFactor} {
		out, err := p.SpeedChange(context.Background(), in, factor)
		if err != nil {
			t.Fatalf("factor %v: %v", factor, err)
		}
		want := int(math.Round(float64(in.Len()) / factor))
		if out.Len() != want {
			t.Fatalf("factor %v: expected %d samples, got %d", factor, want, out.Len())
		}
	}
}

func TestPitchShiftZeroIsIdentity(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(440, 8000, 1, 0.5), SampleRate: 8000}
	out, err := p.PitchShift(context.Background(), in, 0)
	if err != nil {
		t.Fatalf("PitchShift: %v", err)
	}
	if out.Len() != in.Len() || out.Energy() != in.Energy() {
		t.Fatalf("zero steps altered the signal")
	}
	out.Samples[0] = 42
	if in.Samples[0] == 42 {
		t.Fatalf("zero steps returned the input slice")
	}
}

func TestPitchShiftPreservesLength(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(440, 8000, 1.5, 0.5), SampleRate: 8000}
	for _, steps := range []int{-12, -3, 4, 12} {
		out, err := p.PitchShift(context.Background(), in, steps)
		if err != nil {
			t.Fatalf("PitchShift(%d): %v", steps, err)
		}
		if out.Len() != in.Len() {
			t.Fatalf("PitchShift(%d) length %d want %d", steps, out.Len(), in.Len())
		}
		if out.SampleRate != in.SampleRate {
			t.Fatalf("PitchShift(%d) changed sample rate", steps)
		}
	}
}

func TestPitchShiftStepBounds(t *testing.T) {
	p := newProcessor()
	in := audio.Buffer{Samples: testsupport.Sine(440, 8000, 0.25, 0.5), SampleRate: 8000}
	for _, steps := range []int{-effects.MaxPitchSteps - 1, effects.MaxPitchSteps + 1, 1 << 20} {
		_, err := p.PitchShift(context.Background(), in, steps)
		if !errors.Is(err, services.ErrInvalidParameter) {
			t.Fatalf("steps %d: expected invalid parameter, got %v", steps, err)
		}
	}
	for _, steps := range []int{-effects.MaxPitchSteps, effects.MaxPitchSteps} {
		out, err := p.PitchShift(context.Background(), in, steps)
		if err != nil {
			t.Fatalf("steps %d: %v", steps, err)
		}
		if out.Len() != in.Len() {
			t.Fatalf("steps %d: length %d want %d", steps, out.Len(), in.Len())
		}
	}
}

func TestInvalidBufferRejected(t *testing.T) {
	p := newProcessor()
	bad := audio.Buffer{Samples: []float64{0, 1}}
	if _, err := p.BassBoost(context.Background(), bad); !errors.Is(err, services.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
	if _, err := p.NoiseCancel(context.Background(), bad); !errors.Is(err, services.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}

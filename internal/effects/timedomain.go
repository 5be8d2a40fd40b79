package effects

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"mediaframe/internal/audio"
	"mediaframe/internal/dsp"
	"mediaframe/internal/logging"
	"mediaframe/internal/services"
)

// Parameter ranges accepted by SpeedChange and PitchShift. Both keep the
// stretched signal within 100 times the input length.
const (
	MaxPitchSteps  = 48
	MinSpeedFactor = 0.01
	MaxSpeedFactor = 100
)

// CheckSpeedFactor reports whether factor lies in [MinSpeedFactor, MaxSpeedFactor].
func CheckSpeedFactor(factor float64) error {
	if math.IsNaN(factor) || factor < MinSpeedFactor || factor > MaxSpeedFactor {
		return fmt.Errorf("speed factor must be between %v and %v, got %v", MinSpeedFactor, MaxSpeedFactor, factor)
	}
	return nil
}

// CheckPitchSteps reports whether |nSteps| is at most MaxPitchSteps.
func CheckPitchSteps(nSteps int) error {
	if nSteps < -MaxPitchSteps || nSteps > MaxPitchSteps {
		return fmt.Errorf("step count must be between %d and %d, got %d", -MaxPitchSteps, MaxPitchSteps, nSteps)
	}
	return nil
}

// SpeedChange time-stretches the buffer by factor without altering pitch.
// The output holds round(len/factor) samples.
func (p *Processor) SpeedChange(ctx context.Context, in audio.Buffer, factor float64) (audio.Buffer, error) {
	if err := CheckSpeedFactor(factor); err != nil {
		return audio.Buffer{}, services.Wrap(services.ErrInvalidParameter, "effects", "speed change", "invalid speed factor", err)
	}
	if err := in.Validate(); err != nil {
		return audio.Buffer{}, services.Wrap(services.ErrInvalidParameter, "effects", "speed change", "invalid buffer", err)
	}
	out := audio.Buffer{Samples: p.timeStretch(in.Samples, factor), SampleRate: in.SampleRate}
	p.logger.DebugContext(ctx, "speed change applied",
		logging.Float64("speed_factor", factor),
		logging.Float64("input_seconds", in.Seconds()),
		logging.Float64("output_seconds", out.Seconds()),
	)
	return out, nil
}

// PitchShift moves the pitch by nSteps semitones while keeping the duration.
// The signal is stretched by the pitch ratio and then resampled back to the
// original length. Zero steps returns an unmodified copy.
func (p *Processor) PitchShift(ctx context.Context, in audio.Buffer, nSteps int) (audio.Buffer, error) {
	if err := in.Validate(); err != nil {
		return audio.Buffer{}, services.Wrap(services.ErrInvalidParameter, "effects", "pitch shift", "invalid buffer", err)
	}
	if err := CheckPitchSteps(nSteps); err != nil {
		return audio.Buffer{}, services.Wrap(services.ErrInvalidParameter, "effects", "pitch shift", "invalid step count", err)
	}
	if nSteps == 0 {
		return in.Clone(), nil
	}
	ratio := math.Pow(2, float64(nSteps)/12)
	stretched := p.timeStretch(in.Samples, 1/ratio)
	resampled, err := audio.ResampleRatio(stretched, ratio)
	if err != nil {
		return audio.Buffer{}, services.Wrap(services.ErrInvalidParameter, "effects", "pitch shift", "resample", err)
	}
	out := audio.Buffer{Samples: audio.FixLength(resampled, len(in.Samples)), SampleRate: in.SampleRate}
	p.logger.DebugContext(ctx, "pitch shift applied",
		logging.Int("n_steps", nSteps),
		logging.Float64("ratio", ratio),
	)
	return out, nil
}

// timeStretch runs a phase vocoder over the STFT of samples. A rate above 1
// shortens the signal.
func (p *Processor) timeStretch(samples []float64, rate float64) []float64 {
	outLen := int(math.Round(float64(len(samples)) / rate))
	if len(samples) == 0 || outLen == 0 {
		return make([]float64, outLen)
	}
	window, hop := p.settings.StretchWindow, p.settings.StretchHop
	spec := dsp.STFT(samples, window, hop)
	bins := spec.Bins()
	frames := spec.Frames

	advance := make([]float64, bins)
	for k := range advance {
		advance[k] = 2 * math.Pi * float64(k) * float64(hop) / float64(window)
	}

	zero := make([]complex128, bins)
	frameAt := func(i int) []complex128 {
		if i < len(frames) {
			return frames[i]
		}
		return zero
	}

	phase := make([]float64, bins)
	for k, c := range frames[0] {
		phase[k] = cmplx.Phase(c)
	}

	var out [][]complex128
	for step := 0.0; step < float64(len(frames)); step += rate {
		i := int(step)
		alpha := step - float64(i)
		left, right := frameAt(i), frameAt(i+1)
		frame := make([]complex128, bins)
		for k := 0; k < bins; k++ {
			mag := (1-alpha)*cmplx.Abs(left[k]) + alpha*cmplx.Abs(right[k])
			frame[k] = cmplx.Rect(mag, phase[k])

			delta := cmplx.Phase(right[k]) - cmplx.Phase(left[k]) - advance[k]
			delta -= 2 * math.Pi * math.Round(delta/(2*math.Pi))
			phase[k] += advance[k] + delta
		}
		out = append(out, frame)
	}

	stretched := &dsp.Spectrogram{Frames: out, WindowSize: window, HopLength: hop, SignalLength: outLen}
	return stretched.Inverse(outLen)
}

package effects

import (
	"context"
	"math"
	"math/cmplx"

	"mediaframe/internal/audio"
	"mediaframe/internal/dsp"
	"mediaframe/internal/logging"
	"mediaframe/internal/services"
)

// BassBoost multiplies every spectral component strictly between 0 Hz and the
// cutoff by the bass gain. The one-sided real transform carries the
// negative-frequency mirror implicitly, so the boosted signal stays real.
func (p *Processor) BassBoost(ctx context.Context, in audio.Buffer) (audio.Buffer, error) {
	if err := in.Validate(); err != nil {
		return audio.Buffer{}, services.Wrap(services.ErrInvalidParameter, "effects", "bass boost", "invalid buffer", err)
	}
	spec := dsp.Forward(in.Samples)
	boosted := 0
	for k := 1; k < len(spec.Bins); k++ {
		f := spec.BinFrequency(k, in.SampleRate)
		if f >= p.settings.BassCutoffHz {
			break
		}
		spec.Bins[k] *= complex(p.settings.BassGain, 0)
		boosted++
	}
	out := audio.Buffer{Samples: spec.Inverse(), SampleRate: in.SampleRate}
	p.logger.DebugContext(ctx, "bass boost applied",
		logging.Int("bins_boosted", boosted),
		logging.Int("fft_length", spec.N),
		logging.Float64("cutoff_hz", p.settings.BassCutoffHz),
	)
	return out, nil
}

// NoiseProfile returns the mean STFT magnitude per bin over the first
// NoiseProfileSeconds of the buffer, or the whole buffer if it is shorter.
func (p *Processor) NoiseProfile(in audio.Buffer) []float64 {
	n := int(p.settings.NoiseProfileSeconds * float64(in.SampleRate))
	n = min(max(n, 0), len(in.Samples))
	spec := dsp.STFT(in.Samples[:n], p.settings.NoiseWindow, p.settings.NoiseHop)
	profile := make([]float64, spec.Bins())
	for _, frame := range spec.Frames {
		for k, c := range frame {
			profile[k] += cmplx.Abs(c)
		}
	}
	for k := range profile {
		profile[k] /= float64(len(spec.Frames))
	}
	return profile
}

// NoiseCancel performs one-pass spectral gating: each bin's magnitude is
// reduced by the noise profile, floored at zero, and recombined with the
// original phase.
func (p *Processor) NoiseCancel(ctx context.Context, in audio.Buffer) (audio.Buffer, error) {
	if err := in.Validate(); err != nil {
		return audio.Buffer{}, services.Wrap(services.ErrInvalidParameter, "effects", "noise cancel", "invalid buffer", err)
	}
	profile := p.NoiseProfile(in)
	spec := dsp.STFT(in.Samples, p.settings.NoiseWindow, p.settings.NoiseHop)
	for _, frame := range spec.Frames {
		for k, c := range frame {
			mag := math.Max(cmplx.Abs(c)-profile[k], 0)
			frame[k] = complex(mag, 0) * dsp.Phase(c)
		}
	}
	out := audio.Buffer{Samples: spec.Inverse(len(in.Samples)), SampleRate: in.SampleRate}
	p.logger.DebugContext(ctx, "noise cancellation applied",
		logging.Int("frames", len(spec.Frames)),
		logging.Float64("profile_seconds", math.Min(p.settings.NoiseProfileSeconds, in.Seconds())),
	)
	return out, nil
}

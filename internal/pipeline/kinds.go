package pipeline

import (
	"fmt"
	"strings"

	"mediaframe/internal/audio"
	"mediaframe/internal/services"
)

// Kind names a processing operation.
type Kind string

const (
	KindTranscribe       Kind = "transcribe"
	KindPitchShift       Kind = "pitch_shift"
	KindNoiseCancel      Kind = "noise_cancel"
	KindBassBoost        Kind = "bass_boost"
	KindSpeechIdentifier Kind = "speech_identifier"
	KindSpeedUp          Kind = "speed_up"
	KindTranscribeVideo  Kind = "transcribe_video"
)

// Kinds lists every operation in dispatch order.
var Kinds = []Kind{
	KindTranscribe,
	KindPitchShift,
	KindNoiseCancel,
	KindBassBoost,
	KindSpeechIdentifier,
	KindSpeedUp,
	KindTranscribeVideo,
}

// downloadBases maps file-producing kinds to the name a caller offers the
// artifact under, without extension.
var downloadBases = map[Kind]string{
	KindPitchShift:      "shifted_audio",
	KindNoiseCancel:     "noisecancelled_audio",
	KindBassBoost:       "bassboosted_audio",
	KindSpeedUp:         "speedup_audio",
	KindTranscribeVideo: "transcribed_video",
}

// ParseKind validates a kind name.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Kinds {
		if kind == known {
			return kind, nil
		}
	}
	return "", services.Wrap(services.ErrInvalidParameter, "pipeline", "kind", fmt.Sprintf("unknown kind %q", value), nil)
}

// ProducesFile reports whether the kind returns an artifact rather than data.
func (k Kind) ProducesFile() bool {
	_, ok := downloadBases[k]
	return ok
}

// DownloadName returns the file name offered for an artifact of this kind
// in the given container. Data-only kinds return "".
func (k Kind) DownloadName(format audio.Format) string {
	base, ok := downloadBases[k]
	if !ok {
		return ""
	}
	if k == KindTranscribeVideo {
		format = audio.FormatMP4
	}
	if format == "" {
		format = audio.FormatMP3
	}
	return base + format.Extension()
}

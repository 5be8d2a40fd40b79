package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error markers for the pipeline failure taxonomy. Every failure surfaced by
// a processing operation carries one of these so callers can
// classify it with errors.Is while the wrapped cause stays available.
var (
	ErrUnreadableAudio  = errors.New("unreadable audio")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrModelNotReady    = errors.New("model not ready")
	ErrTranscription    = errors.New("transcription error")
	ErrDiarization      = errors.New("diarization error")
	ErrComposition      = errors.New("composition error")
	ErrExternalService  = errors.New("external service error")
	ErrConfiguration    = errors.New("configuration error")
)

var markers = []error{
	ErrUnreadableAudio,
	ErrInvalidParameter,
	ErrModelNotReady,
	ErrTranscription,
	ErrDiarization,
	ErrComposition,
	ErrExternalService,
	ErrConfiguration,
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrConfiguration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the short taxonomy name of the outermost marker in err, or
// "internal" when the error carries none.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if marker := outermostMarker(err); marker != nil {
		return kindName(marker)
	}
	return "internal"
}

func outermostMarker(err error) error {
	if err == nil {
		return nil
	}
	for _, marker := range markers {
		if err == marker {
			return marker
		}
	}
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if marker := outermostMarker(inner); marker != nil {
				return marker
			}
		}
	case interface{ Unwrap() error }:
		return outermostMarker(e.Unwrap())
	}
	return nil
}

func kindName(marker error) string {
	switch marker {
	case ErrUnreadableAudio:
		return "unreadable_audio"
	case ErrInvalidParameter:
		return "invalid_parameter"
	case ErrModelNotReady:
		return "model_not_ready"
	case ErrTranscription:
		return "transcription_error"
	case ErrDiarization:
		return "diarization_error"
	case ErrComposition:
		return "composition_error"
	case ErrExternalService:
		return "external_service_error"
	case ErrConfiguration:
		return "configuration_error"
	default:
		return "internal"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "processing failure"
	}
	return strings.Join(parts, ": ")
}

// ErrorDetails summarizes a failure for CLI and log reporting.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Details classifies err and strips the leading marker text from its message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: Kind(err), Message: err.Error()}
	if marker := outermostMarker(err); marker != nil {
		details.Message = strings.TrimPrefix(details.Message, marker.Error()+": ")
	}
	return details
}

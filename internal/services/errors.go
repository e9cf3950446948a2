package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrValidation marks requests rejected before any side effect occurred.
	ErrValidation = errors.New("validation error")
	// ErrNotFound covers missing episodes, segments, and assets. Callers must
	// not distinguish "missing" from "not yours"; both surface as ErrNotFound.
	ErrNotFound = errors.New("not found")
	// ErrPathEscape indicates a computed path resolved outside its base
	// directory. Always a bug, never user input, never swallowed.
	ErrPathEscape = errors.New("path escapes base directory")
	// ErrProcessing marks audio engine failures or empty engine output.
	ErrProcessing = errors.New("audio processing error")
	// ErrTranscription marks speech-to-text failures.
	ErrTranscription = errors.New("transcription error")
	// ErrPayloadTooLarge marks audio that exceeds the transcription service limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrEmptyTimeline is returned when a render is requested for an episode
	// with zero segments.
	ErrEmptyTimeline = errors.New("episode has no segments")
	// ErrNoValidAudio is returned when every segment of a render was skipped.
	ErrNoValidAudio = errors.New("no segment resolved to a playable file")
	// ErrQuotaExceeded marks uploads or imports the storage policy refused.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later status classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProcessing
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a tagged error to the status code the API layer should
// return. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrEmptyTimeline):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	case errors.Is(err, ErrProcessing), errors.Is(err, ErrTranscription):
		return http.StatusBadGateway
	case errors.Is(err, ErrNoValidAudio):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable error code used in API payloads.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPathEscape):
		return "internal_error"
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrTranscription):
		return "transcription_error"
	case errors.Is(err, ErrProcessing):
		return "processing_error"
	case errors.Is(err, ErrEmptyTimeline):
		return "empty_timeline"
	case errors.Is(err, ErrNoValidAudio):
		return "no_valid_audio"
	default:
		return "internal_error"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

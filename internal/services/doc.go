// Package services defines the shared error taxonomy for the audio-edit
// engine and the mapping from tagged errors to HTTP responses.
//
// Components wrap failures with one of the sentinel markers (ErrValidation,
// ErrNotFound, ErrProcessing, ...) so the API layer can classify them without
// knowing which component produced them.
package services

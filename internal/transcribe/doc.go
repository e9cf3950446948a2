// Package transcribe wraps the OpenAI speech-to-text API behind a small
// client that returns SRT caption text for an audio file.
package transcribe

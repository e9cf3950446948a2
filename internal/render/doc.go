// Package render assembles an episode's ordered segments into its final
// published audio file, skipping segments whose files have gone missing, and
// fans out the best-effort waveform and feed-refresh side effects.
package render

// Package captions models a segment's time-coded transcript and the pure
// timestamp remappings that keep it consistent with destructive audio edits
// (trim, silence removal, single-utterance deletion).
//
// Tracks live as SRT sidecar files next to their audio file, never in the
// relational store.
package captions

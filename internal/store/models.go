package store

import "time"

// Episode is the owning container for an ordered segment timeline and, once
// rendered, the final published audio file.
type Episode struct {
	ID                 int64
	OwnerID            string
	Title              string
	FinalAudioPath     string
	FinalAudioMIME     string
	FinalAudioBytes    int64
	FinalAudioDuration float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasFinalAudio reports whether the episode has been rendered at least once.
func (e *Episode) HasFinalAudio() bool {
	return e != nil && e.FinalAudioPath != ""
}

// Source identifies where a segment's audio lives. Exactly one variant is
// populated by construction: a segment either owns its file (Recorded) or
// references a shared library asset (Reusable), never both.
type Source interface {
	isSource()
	// Type returns the discriminator persisted in the segments table.
	Type() string
}

// Recorded is audio exclusively owned by the segment. Deleting the segment
// deletes the file.
type Recorded struct {
	AudioPath string
}

func (Recorded) isSource()    {}
func (Recorded) Type() string { return SourceRecorded }

// Reusable references a shared library asset. The asset's file is never
// mutated or deleted through the segment.
type Reusable struct {
	AssetID int64
}

func (Reusable) isSource()    {}
func (Reusable) Type() string { return SourceReusable }

// Source discriminator values as persisted.
const (
	SourceRecorded = "recorded"
	SourceReusable = "reusable"
)

// Segment is one ordered unit of an episode's audio timeline.
type Segment struct {
	ID        int64
	EpisodeID int64
	Name      string
	Position  int
	// DurationSec is a cache of the last engine probe. It is recomputed after
	// every mutation and never trusted ahead of a fresh probe.
	DurationSec float64
	Source      Source
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Asset is a reusable audio clip owned by a user or marked global, referenced
// by zero or more segments across any number of episodes.
type Asset struct {
	ID          int64
	OwnerID     string
	Global      bool
	Name        string
	Path        string
	SizeBytes   int64
	DurationSec float64
	CreatedAt   time.Time
}

// AccessibleBy reports whether the given user may attach this asset.
func (a *Asset) AccessibleBy(userID string) bool {
	return a != nil && (a.Global || a.OwnerID == userID)
}

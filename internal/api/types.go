package api

import "time"

// Episode is the wire representation of an episode.
type Episode struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	FinalAudioURL      string    `json:"finalAudioUrl,omitempty"`
	FinalAudioMIME     string    `json:"finalAudioMime,omitempty"`
	FinalAudioBytes    int64     `json:"finalAudioBytes,omitempty"`
	FinalAudioDuration float64   `json:"finalAudioDurationSec,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Segment is the wire representation of one timeline entry.
type Segment struct {
	ID          int64     `json:"id"`
	EpisodeID   int64     `json:"episodeId"`
	Name        string    `json:"name"`
	Position    int       `json:"position"`
	DurationSec float64   `json:"durationSec"`
	SourceType  string    `json:"sourceType"`
	AssetID     int64     `json:"assetId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Asset is the wire representation of a reusable library clip.
type Asset struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Global      bool      `json:"global"`
	SizeBytes   int64     `json:"sizeBytes"`
	DurationSec float64   `json:"durationSec"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TranscriptEntry is one caption block with timestamps in seconds.
type TranscriptEntry struct {
	Index    int     `json:"index"`
	StartSec float64 `json:"startSec"`
	EndSec   float64 `json:"endSec"`
	Text     string  `json:"text"`
}

// Transcript carries a segment's full caption track plus its canonical SRT
// form for clients that want the raw subtitle file.
type Transcript struct {
	Entries []TranscriptEntry `json:"entries"`
	SRT     string            `json:"srt"`
}

// RenderResult reports a completed episode render.
type RenderResult struct {
	Episode         Episode  `json:"episode"`
	SkippedSegments []string `json:"skippedSegments,omitempty"`
}

// Usage reports a user's tracked storage consumption.
type Usage struct {
	UsedBytes  int64 `json:"usedBytes"`
	LimitBytes int64 `json:"limitBytes,omitempty"`
}

// Status reports daemon runtime information.
type Status struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	DatabasePath  string `json:"databasePath"`
	LockFilePath  string `json:"lockFilePath"`
	Transcription bool   `json:"transcriptionConfigured"`
}

// EpisodeList wraps the episode collection response.
type EpisodeList struct {
	Episodes []Episode `json:"episodes"`
}

// SegmentList wraps the timeline collection response.
type SegmentList struct {
	Segments []Segment `json:"segments"`
}

// AssetList wraps the library collection response.
type AssetList struct {
	Assets []Asset `json:"assets"`
}

// Error is the uniform error envelope: every failure response is one "error"
// object carrying a machine-readable code and a human-readable message.
type Error struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the body of the error envelope.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateEpisodeRequest creates an episode.
type CreateEpisodeRequest struct {
	Title string `json:"title"`
}

// AttachAssetRequest appends a reusable segment to the timeline.
type AttachAssetRequest struct {
	AssetID int64  `json:"assetId"`
	Name    string `json:"name,omitempty"`
}

// RenameSegmentRequest renames a segment.
type RenameSegmentRequest struct {
	Name string `json:"name"`
}

// ReorderRequest sets the timeline order.
type ReorderRequest struct {
	SegmentIDs []int64 `json:"segmentIds"`
}

// TrimRequest bounds a trim edit. Omitted fields keep that side of the audio.
type TrimRequest struct {
	StartSec *float64 `json:"startSec,omitempty"`
	EndSec   *float64 `json:"endSec,omitempty"`
}

// SilenceRequest tunes silence removal. Zero values use server defaults.
type SilenceRequest struct {
	MinDurationSec float64 `json:"minDurationSec,omitempty"`
	NoiseDB        int     `json:"noiseDb,omitempty"`
}

// DenoiseRequest tunes noise suppression.
type DenoiseRequest struct {
	NoiseFloorDB *int `json:"noiseFloorDb,omitempty"`
}

// GenerateTranscriptRequest asks for speech-to-text transcription.
type GenerateTranscriptRequest struct {
	Language string `json:"language,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

// OverwriteTranscriptRequest replaces the caption track.
type OverwriteTranscriptRequest struct {
	SRT string `json:"srt"`
}

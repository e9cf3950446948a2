package api

import (
	"fmt"

	"podstudio/internal/captions"
	"podstudio/internal/store"
)

// FromEpisode converts a store episode to its wire form. The final audio is
// exposed as an API URL, never as a server filesystem path.
func FromEpisode(episode *store.Episode) Episode {
	out := Episode{
		ID:        episode.ID,
		Title:     episode.Title,
		CreatedAt: episode.CreatedAt,
		UpdatedAt: episode.UpdatedAt,
	}
	if episode.HasFinalAudio() {
		out.FinalAudioURL = fmt.Sprintf("/api/episodes/%d/audio", episode.ID)
		out.FinalAudioMIME = episode.FinalAudioMIME
		out.FinalAudioBytes = episode.FinalAudioBytes
		out.FinalAudioDuration = episode.FinalAudioDuration
	}
	return out
}

// FromEpisodes converts a slice of store episodes.
func FromEpisodes(episodes []*store.Episode) []Episode {
	out := make([]Episode, 0, len(episodes))
	for _, episode := range episodes {
		out = append(out, FromEpisode(episode))
	}
	return out
}

// FromSegment converts a store segment to its wire form.
func FromSegment(segment *store.Segment) Segment {
	out := Segment{
		ID:          segment.ID,
		EpisodeID:   segment.EpisodeID,
		Name:        segment.Name,
		Position:    segment.Position,
		DurationSec: segment.DurationSec,
		SourceType:  segment.Source.Type(),
		CreatedAt:   segment.CreatedAt,
		UpdatedAt:   segment.UpdatedAt,
	}
	if src, ok := segment.Source.(store.Reusable); ok {
		out.AssetID = src.AssetID
	}
	return out
}

// FromSegments converts a slice of store segments.
func FromSegments(segments []*store.Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, segment := range segments {
		out = append(out, FromSegment(segment))
	}
	return out
}

// FromAsset converts a store asset to its wire form. The storage path stays
// server-side.
func FromAsset(asset *store.Asset) Asset {
	return Asset{
		ID:          asset.ID,
		Name:        asset.Name,
		Global:      asset.Global,
		SizeBytes:   asset.SizeBytes,
		DurationSec: asset.DurationSec,
		CreatedAt:   asset.CreatedAt,
	}
}

// FromAssets converts a slice of store assets.
func FromAssets(assets []*store.Asset) []Asset {
	out := make([]Asset, 0, len(assets))
	for _, asset := range assets {
		out = append(out, FromAsset(asset))
	}
	return out
}

// FromTrack converts a caption track to its wire form, carrying the
// canonical SRT text alongside the structured entries.
func FromTrack(track captions.Track) Transcript {
	entries := make([]TranscriptEntry, 0, len(track.Entries))
	for i, entry := range track.Entries {
		index := entry.Index
		if index == 0 {
			index = i + 1
		}
		entries = append(entries, TranscriptEntry{
			Index:    index,
			StartSec: entry.Start,
			EndSec:   entry.End,
			Text:     entry.Text,
		})
	}
	return Transcript{Entries: entries, SRT: captions.Serialize(track)}
}

package api

import (
	"strings"
	"testing"

	"podstudio/internal/captions"
	"podstudio/internal/store"
)

func TestFromEpisodeHidesPathsAndBuildsURL(t *testing.T) {
	episode := &store.Episode{
		ID:              42,
		OwnerID:         "alice",
		Title:           "pilot",
		FinalAudioPath:  "/var/lib/podstudio/episodes/42/episode.mp3",
		FinalAudioMIME:  "audio/mpeg",
		FinalAudioBytes: 1234,
	}
	out := FromEpisode(episode)
	if out.FinalAudioURL != "/api/episodes/42/audio" {
		t.Fatalf("unexpected audio url %q", out.FinalAudioURL)
	}
	if strings.Contains(out.FinalAudioURL, "/var/lib") {
		t.Fatal("server path leaked into wire form")
	}
}

func TestFromEpisodeWithoutFinalAudio(t *testing.T) {
	out := FromEpisode(&store.Episode{ID: 7, Title: "draft"})
	if out.FinalAudioURL != "" || out.FinalAudioBytes != 0 {
		t.Fatalf("unrendered episode must not advertise audio: %+v", out)
	}
}

func TestFromSegmentSourceVariants(t *testing.T) {
	recorded := FromSegment(&store.Segment{
		ID: 1, EpisodeID: 42, Name: "intro",
		Source: store.Recorded{AudioPath: "/data/episodes/42/uploads/a.mp3"},
	})
	if recorded.SourceType != store.SourceRecorded || recorded.AssetID != 0 {
		t.Fatalf("unexpected recorded wire form: %+v", recorded)
	}

	reusable := FromSegment(&store.Segment{
		ID: 2, EpisodeID: 42, Name: "jingle",
		Source: store.Reusable{AssetID: 9},
	})
	if reusable.SourceType != store.SourceReusable || reusable.AssetID != 9 {
		t.Fatalf("unexpected reusable wire form: %+v", reusable)
	}
}

func TestFromTrackCarriesEntriesAndSRT(t *testing.T) {
	track := captions.Track{Entries: []captions.Entry{
		{Index: 1, Start: 0.5, End: 2, Text: "hello"},
		{Index: 2, Start: 3, End: 4, Text: "world"},
	}}
	out := FromTrack(track)
	if len(out.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out.Entries))
	}
	if out.Entries[0].StartSec != 0.5 || out.Entries[1].Text != "world" {
		t.Fatalf("unexpected entries: %+v", out.Entries)
	}
	if !strings.Contains(out.SRT, "00:00:00,500 --> 00:00:02,000") {
		t.Fatalf("unexpected srt: %q", out.SRT)
	}
}

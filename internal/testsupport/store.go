package testsupport

import (
	"context"
	"testing"

	"podstudio/internal/config"
	"podstudio/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewEpisode creates an episode row for tests.
func NewEpisode(t testing.TB, st *store.Store, ownerID, title string) *store.Episode {
	t.Helper()

	episode, err := st.CreateEpisode(context.Background(), ownerID, title)
	if err != nil {
		t.Fatalf("store.CreateEpisode: %v", err)
	}
	return episode
}

// NewRecordedSegment creates a recorded segment row appended to the episode.
func NewRecordedSegment(t testing.TB, st *store.Store, episodeID int64, name, audioPath string, durationSec float64) *store.Segment {
	t.Helper()

	ctx := context.Background()
	position, err := st.NextSegmentPosition(ctx, episodeID)
	if err != nil {
		t.Fatalf("store.NextSegmentPosition: %v", err)
	}
	segment, err := st.CreateRecordedSegment(ctx, episodeID, name, audioPath, durationSec, position)
	if err != nil {
		t.Fatalf("store.CreateRecordedSegment: %v", err)
	}
	return segment
}

// NewReusableSegment creates an asset-backed segment row appended to the
// episode.
func NewReusableSegment(t testing.TB, st *store.Store, episodeID, assetID int64, name string, durationSec float64) *store.Segment {
	t.Helper()

	ctx := context.Background()
	position, err := st.NextSegmentPosition(ctx, episodeID)
	if err != nil {
		t.Fatalf("store.NextSegmentPosition: %v", err)
	}
	segment, err := st.CreateReusableSegment(ctx, episodeID, name, assetID, durationSec, position)
	if err != nil {
		t.Fatalf("store.CreateReusableSegment: %v", err)
	}
	return segment
}

package segments

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podstudio/internal/captions"
	"podstudio/internal/services"
	"podstudio/internal/store"
	"podstudio/internal/testsupport"
	"podstudio/internal/transcribe"
)

type stubTranscriber struct {
	text string
	err  error
	path string
}

func (s *stubTranscriber) Transcribe(_ context.Context, audioPath string, _ transcribe.Options) (string, error) {
	s.path = audioPath
	return s.text, s.err
}

func TestTranscriptMissingIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	episode, segment := env.seedRecorded(t, "alice")

	_, err := env.svc.Transcript(context.Background(), "alice", episode.ID, segment.ID)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestOverwriteAndReadTranscript(t *testing.T) {
	env := newTestEnv(t)
	episode, segment := env.seedRecorded(t, "alice")
	ctx := context.Background()

	written, err := env.svc.OverwriteTranscript(ctx, "alice", episode.ID, segment.ID,
		"1\n00:00:00,500 --> 00:00:02,000\nhello\n\ngarbage block\n\n2\n00:00:03,000 --> 00:00:04,000\nworld\n")
	if err != nil {
		t.Fatalf("OverwriteTranscript: %v", err)
	}
	if len(written.Entries) != 2 {
		t.Fatalf("expected malformed block dropped, got %d entries", len(written.Entries))
	}

	track, err := env.svc.Transcript(ctx, "alice", episode.ID, segment.ID)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(track.Entries) != 2 || track.Entries[1].Text != "world" {
		t.Fatalf("unexpected round-trip track: %+v", track.Entries)
	}
	if track.Entries[0].Index != 1 || track.Entries[1].Index != 2 {
		t.Fatalf("expected canonical renumbering, got %d, %d", track.Entries[0].Index, track.Entries[1].Index)
	}
}

func TestDeleteTranscriptIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	episode, segment := env.seedRecorded(t, "alice")
	ctx := context.Background()

	if _, err := env.svc.OverwriteTranscript(ctx, "alice", episode.ID, segment.ID, "1\n00:00:00,000 --> 00:00:01,000\nhi\n"); err != nil {
		t.Fatalf("OverwriteTranscript: %v", err)
	}
	if err := env.svc.DeleteTranscript(ctx, "alice", episode.ID, segment.ID); err != nil {
		t.Fatalf("DeleteTranscript: %v", err)
	}
	if err := env.svc.DeleteTranscript(ctx, "alice", episode.ID, segment.ID); err != nil {
		t.Fatalf("second DeleteTranscript: %v", err)
	}
	if _, err := env.svc.Transcript(ctx, "alice", episode.ID, segment.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
}

func TestGenerateTranscriptWritesSidecar(t *testing.T) {
	env := newTestEnv(t)
	episode, segment := env.seedRecorded(t, "alice")
	ctx := context.Background()

	stub := &stubTranscriber{text: "1\n00:00:00,000 --> 00:00:02,500\ntranscribed speech\n"}
	env.svc.stt = stub

	track, err := env.svc.GenerateTranscript(ctx, "alice", episode.ID, segment.ID, transcribe.Options{Language: "en"})
	if err != nil {
		t.Fatalf("GenerateTranscript: %v", err)
	}
	if len(track.Entries) != 1 || track.Entries[0].Text != "transcribed speech" {
		t.Fatalf("unexpected track: %+v", track.Entries)
	}
	audio := segment.Source.(store.Recorded).AudioPath
	if stub.path != audio {
		t.Fatalf("expected transcription of %s, got %s", audio, stub.path)
	}
	if _, err := os.Stat(captions.SidecarPath(audio)); err != nil {
		t.Fatalf("sidecar missing after generation: %v", err)
	}
}

func TestGenerateTranscriptWithoutBackend(t *testing.T) {
	env := newTestEnv(t)
	episode, segment := env.seedRecorded(t, "alice")

	_, err := env.svc.GenerateTranscript(context.Background(), "alice", episode.ID, segment.ID, transcribe.Options{})
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
}

func TestGenerateTranscriptBackendError(t *testing.T) {
	env := newTestEnv(t)
	episode, segment := env.seedRecorded(t, "alice")
	env.svc.stt = &stubTranscriber{err: services.Wrap(services.ErrTranscription, "stub", "transcribe", "backend down", nil)}

	_, err := env.svc.GenerateTranscript(context.Background(), "alice", episode.ID, segment.ID, transcribe.Options{})
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	audio := segment.Source.(store.Recorded).AudioPath
	if _, statErr := os.Stat(captions.SidecarPath(audio)); !os.IsNotExist(statErr) {
		t.Fatalf("failed generation must not leave a sidecar: %v", statErr)
	}
}

func TestDeleteTranscriptEntryCutsAudioAndRemaps(t *testing.T) {
	env := newTestEnv(t)
	episode, segment := env.seedRecorded(t, "alice")
	ctx := context.Background()

	oldAudio := segment.Source.(store.Recorded).AudioPath
	testsupport.WriteText(t, captions.SidecarPath(oldAudio), strings.Join([]string{
		"1",
		"00:00:01,000 --> 00:00:03,000",
		"delete me",
		"",
		"2",
		"00:00:05,000 --> 00:00:06,000",
		"keep me",
		"",
	}, "\n"))

	edited, err := env.svc.DeleteTranscriptEntry(ctx, "alice", episode.ID, segment.ID, 0)
	if err != nil {
		t.Fatalf("DeleteTranscriptEntry: %v", err)
	}
	if env.engine.CallCount("cut_range") != 1 {
		t.Fatalf("expected one cut_range call, got %d", env.engine.CallCount("cut_range"))
	}

	newAudio := edited.Source.(store.Recorded).AudioPath
	track := captions.Parse(testsupport.ReadText(t, captions.SidecarPath(newAudio)))
	if len(track.Entries) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(track.Entries))
	}
	entry := track.Entries[0]
	if entry.Text != "keep me" {
		t.Fatalf("wrong entry survived: %q", entry.Text)
	}
	if !almostEqual(entry.Start, 3) || !almostEqual(entry.End, 4) {
		t.Fatalf("expected [3,4] after removing a 2s range, got [%v,%v]", entry.Start, entry.End)
	}
}

func TestDeleteTranscriptEntryWithoutTranscript(t *testing.T) {
	env := newTestEnv(t)
	episode, segment := env.seedRecorded(t, "alice")

	_, err := env.svc.DeleteTranscriptEntry(context.Background(), "alice", episode.ID, segment.ID, 0)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

// seedReusableWithSidecar creates an episode plus a segment referencing a
// global asset whose sidecar holds the given SRT text (none when empty).
func (env *testEnv) seedReusableWithSidecar(t *testing.T, srt string) (*store.Episode, *store.Segment, string) {
	t.Helper()
	episode := testsupport.NewEpisode(t, env.store, "alice", "pilot")
	assetPath := filepath.Join(env.cfg.GlobalLibraryDir(), "jingle.mp3")
	testsupport.WriteFile(t, assetPath, 256)
	if srt != "" {
		testsupport.WriteText(t, captions.SidecarPath(assetPath), srt)
	}
	asset, err := env.store.CreateAsset(context.Background(), "", true, "jingle", assetPath, 256, 10)
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	segment := testsupport.NewReusableSegment(t, env.store, episode.ID, asset.ID, "jingle", 10)
	return episode, segment, assetPath
}

func TestOverwriteTranscriptOnReusableSegmentForks(t *testing.T) {
	env := newTestEnv(t)
	shared := "1\n00:00:01,000 --> 00:00:03,000\nshared lyrics\n"
	episode, segment, assetPath := env.seedReusableWithSidecar(t, shared)
	ctx := context.Background()

	if _, err := env.svc.OverwriteTranscript(ctx, "alice", episode.ID, segment.ID,
		"1\n00:00:00,000 --> 00:00:01,000\nmine now\n"); err != nil {
		t.Fatalf("OverwriteTranscript: %v", err)
	}

	if got := testsupport.ReadText(t, captions.SidecarPath(assetPath)); got != shared {
		t.Fatalf("shared asset sidecar was modified: %q", got)
	}
	forked, err := env.store.GetSegment(ctx, segment.ID)
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	src, ok := forked.Source.(store.Recorded)
	if !ok {
		t.Fatalf("segment must fork to a recorded source, got %T", forked.Source)
	}
	track, err := env.svc.Transcript(ctx, "alice", episode.ID, segment.ID)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(track.Entries) != 1 || track.Entries[0].Text != "mine now" {
		t.Fatalf("unexpected private transcript: %+v", track.Entries)
	}

	// The private audio copy is the only thing charged.
	info, err := os.Stat(src.AudioPath)
	if err != nil {
		t.Fatalf("stat fork: %v", err)
	}
	used, err := env.store.GetUsage(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if used != info.Size() {
		t.Fatalf("expected %d bytes charged, got %d", info.Size(), used)
	}
}

func TestGenerateTranscriptOnReusableSegmentForks(t *testing.T) {
	env := newTestEnv(t)
	episode, segment, assetPath := env.seedReusableWithSidecar(t, "")
	ctx := context.Background()

	stub := &stubTranscriber{text: "1\n00:00:00,000 --> 00:00:02,000\ngenerated line\n"}
	env.svc.stt = stub

	track, err := env.svc.GenerateTranscript(ctx, "alice", episode.ID, segment.ID, transcribe.Options{})
	if err != nil {
		t.Fatalf("GenerateTranscript: %v", err)
	}
	if len(track.Entries) != 1 || track.Entries[0].Text != "generated line" {
		t.Fatalf("unexpected track: %+v", track.Entries)
	}
	if stub.path != assetPath {
		t.Fatalf("expected transcription of the shared file %s, got %s", assetPath, stub.path)
	}
	if _, err := os.Stat(captions.SidecarPath(assetPath)); !os.IsNotExist(err) {
		t.Fatalf("generation must not leave a sidecar next to the shared asset: %v", err)
	}
	forked, err := env.store.GetSegment(ctx, segment.ID)
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	src, ok := forked.Source.(store.Recorded)
	if !ok {
		t.Fatalf("segment must fork to a recorded source, got %T", forked.Source)
	}
	if _, err := os.Stat(captions.SidecarPath(src.AudioPath)); err != nil {
		t.Fatalf("sidecar missing next to the private copy: %v", err)
	}
}

func TestDeleteTranscriptOnReusableSegmentKeepsAssetSidecar(t *testing.T) {
	env := newTestEnv(t)
	shared := "1\n00:00:01,000 --> 00:00:02,000\nshared lyrics\n"
	episode, segment, assetPath := env.seedReusableWithSidecar(t, shared)
	ctx := context.Background()

	if err := env.svc.DeleteTranscript(ctx, "alice", episode.ID, segment.ID); err != nil {
		t.Fatalf("DeleteTranscript: %v", err)
	}

	if got := testsupport.ReadText(t, captions.SidecarPath(assetPath)); got != shared {
		t.Fatalf("shared asset sidecar was modified: %q", got)
	}
	if _, err := env.svc.Transcript(ctx, "alice", episode.ID, segment.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
	forked, err := env.store.GetSegment(ctx, segment.ID)
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if _, ok := forked.Source.(store.Recorded); !ok {
		t.Fatalf("segment must fork to a recorded source, got %T", forked.Source)
	}
}

func TestDeleteTranscriptOnReusableWithoutSidecarIsNoop(t *testing.T) {
	env := newTestEnv(t)
	episode, segment, _ := env.seedReusableWithSidecar(t, "")
	ctx := context.Background()

	if err := env.svc.DeleteTranscript(ctx, "alice", episode.ID, segment.ID); err != nil {
		t.Fatalf("DeleteTranscript: %v", err)
	}
	same, err := env.store.GetSegment(ctx, segment.ID)
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if _, ok := same.Source.(store.Reusable); !ok {
		t.Fatalf("nothing to delete must not fork the segment, got %T", same.Source)
	}
	used, err := env.store.GetUsage(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if used != 0 {
		t.Fatalf("no-op delete must not charge quota, got %d", used)
	}
}

func TestDeleteTranscriptEntryIndexOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	episode, segment := env.seedRecorded(t, "alice")
	audio := segment.Source.(store.Recorded).AudioPath
	testsupport.WriteText(t, captions.SidecarPath(audio), "1\n00:00:01,000 --> 00:00:02,000\nonly entry\n")

	for _, index := range []int{-1, 1} {
		_, err := env.svc.DeleteTranscriptEntry(context.Background(), "alice", episode.ID, segment.ID, index)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("index %d: expected validation error, got %v", index, err)
		}
	}
}

package segments

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"podstudio/internal/captions"
	"podstudio/internal/fileutil"
	"podstudio/internal/logging"
	"podstudio/internal/media"
	"podstudio/internal/services"
	"podstudio/internal/store"
	"podstudio/internal/transcribe"
)

// Transcript reads the segment's caption sidecar. ErrNotFound when the
// segment has no transcript.
func (s *Service) Transcript(ctx context.Context, userID string, episodeID, segmentID int64) (captions.Track, error) {
	segment, err := s.segmentInEpisode(ctx, userID, episodeID, segmentID)
	if err != nil {
		return captions.Track{}, err
	}
	resolved, err := s.resolver.Resolve(ctx, segment)
	if err != nil {
		return captions.Track{}, err
	}
	text, err := os.ReadFile(captions.SidecarPath(resolved.Path))
	if errors.Is(err, fs.ErrNotExist) {
		return captions.Track{}, services.Wrap(services.ErrNotFound, "segments", "transcript",
			"segment has no transcript", nil)
	}
	if err != nil {
		return captions.Track{}, err
	}
	return captions.Parse(string(text)), nil
}

// GenerateTranscript sends the segment's audio to the transcription backend
// and stores the result as the caption sidecar, replacing any existing one.
func (s *Service) GenerateTranscript(ctx context.Context, userID string, episodeID, segmentID int64, opts transcribe.Options) (captions.Track, error) {
	unlock := s.locks.lock(segmentID)
	defer unlock()

	segment, err := s.segmentInEpisode(ctx, userID, episodeID, segmentID)
	if err != nil {
		return captions.Track{}, err
	}
	resolved, err := s.resolver.Resolve(ctx, segment)
	if err != nil {
		return captions.Track{}, err
	}
	if s.stt == nil {
		return captions.Track{}, services.Wrap(services.ErrTranscription, "segments", "transcribe",
			"transcription backend is not configured", nil)
	}

	text, err := s.stt.Transcribe(ctx, resolved.Path, opts)
	if err != nil {
		return captions.Track{}, err
	}
	track := captions.Parse(text)
	// Writing next to a shared asset would hand this transcript to every
	// other segment referencing it.
	if _, recorded := segment.Source.(store.Recorded); !recorded {
		_, forked, forkErr := s.forkSegment(ctx, userID, segment, resolved)
		if forkErr != nil {
			return captions.Track{}, forkErr
		}
		resolved = forked
	}
	sidecar := captions.SidecarPath(resolved.Path)
	if err := os.WriteFile(sidecar, []byte(captions.Serialize(track)), 0o644); err != nil {
		return captions.Track{}, services.Wrap(services.ErrProcessing, "segments", "transcribe",
			"writing caption sidecar failed", err)
	}

	s.logger.Info("transcript generated",
		logging.Args(
			logging.Int64(logging.FieldEpisode, episodeID),
			logging.Int64(logging.FieldSegment, segmentID),
			logging.Int("entries", len(track.Entries)),
		)...)
	return track, nil
}

// OverwriteTranscript replaces the segment's caption sidecar with the given
// SRT text, normalized to canonical form. Malformed blocks are dropped, the
// way the parser always treats them.
func (s *Service) OverwriteTranscript(ctx context.Context, userID string, episodeID, segmentID int64, text string) (captions.Track, error) {
	unlock := s.locks.lock(segmentID)
	defer unlock()

	segment, err := s.segmentInEpisode(ctx, userID, episodeID, segmentID)
	if err != nil {
		return captions.Track{}, err
	}
	resolved, err := s.resolver.Resolve(ctx, segment)
	if err != nil {
		return captions.Track{}, err
	}
	track := captions.Parse(text)
	if _, recorded := segment.Source.(store.Recorded); !recorded {
		_, forked, forkErr := s.forkSegment(ctx, userID, segment, resolved)
		if forkErr != nil {
			return captions.Track{}, forkErr
		}
		resolved = forked
	}
	sidecar := captions.SidecarPath(resolved.Path)
	if err := os.WriteFile(sidecar, []byte(captions.Serialize(track)), 0o644); err != nil {
		return captions.Track{}, services.Wrap(services.ErrProcessing, "segments", "transcript",
			"writing caption sidecar failed", err)
	}
	return track, nil
}

// DeleteTranscript removes the segment's caption sidecar. Removing a
// transcript that does not exist is not an error.
func (s *Service) DeleteTranscript(ctx context.Context, userID string, episodeID, segmentID int64) error {
	unlock := s.locks.lock(segmentID)
	defer unlock()

	segment, err := s.segmentInEpisode(ctx, userID, episodeID, segmentID)
	if err != nil {
		return err
	}
	resolved, err := s.resolver.Resolve(ctx, segment)
	if err != nil {
		return err
	}
	if _, recorded := segment.Source.(store.Recorded); !recorded {
		// The sidecar next to a shared asset belongs to everyone referencing
		// it. Forking without carrying the sidecar over leaves this segment
		// transcript-free and the asset's copy intact.
		if !fileExists(captions.SidecarPath(resolved.Path)) {
			return nil
		}
		_, _, err := s.forkSegment(ctx, userID, segment, resolved)
		return err
	}
	return fileutil.RemoveIfExists(captions.SidecarPath(resolved.Path))
}

// DeleteTranscriptEntry removes one caption entry and cuts the matching audio
// range out of the segment, splicing the remainder together. entryIndex is
// the zero-based position in the current track.
func (s *Service) DeleteTranscriptEntry(ctx context.Context, userID string, episodeID, segmentID int64, entryIndex int) (*store.Segment, error) {
	return s.applyEdit(ctx, userID, episodeID, segmentID, "delete_entry",
		func(ctx context.Context, src, dst string, probe media.ProbeResult, oldTrack *captions.Track) (remapFunc, error) {
			if oldTrack == nil {
				return nil, services.Wrap(services.ErrNotFound, "segments", "delete_entry",
					"segment has no transcript", nil)
			}
			if entryIndex < 0 || entryIndex >= len(oldTrack.Entries) {
				return nil, services.Wrap(services.ErrValidation, "segments", "delete_entry",
					"entry index out of range", nil)
			}
			entry := oldTrack.Entries[entryIndex]
			start, end := entry.Start, entry.End
			if end > probe.DurationSec {
				end = probe.DurationSec
			}
			if start >= end {
				return nil, services.Wrap(services.ErrValidation, "segments", "delete_entry",
					"caption range lies outside the audio", nil)
			}
			if err := s.engine.CutRange(ctx, src, dst, start, end); err != nil {
				return nil, err
			}
			return func(track captions.Track) captions.Track {
				return captions.RemapDeleteEntry(track, entryIndex)
			}, nil
		})
}

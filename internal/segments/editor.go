package segments

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"podstudio/internal/captions"
	"podstudio/internal/fileutil"
	"podstudio/internal/logging"
	"podstudio/internal/media"
	"podstudio/internal/services"
	"podstudio/internal/store"
)

// Edit parameter defaults. Zero-valued fields fall back to these.
const (
	defaultSilenceMinDuration = 2.0
	defaultSilenceNoiseDB     = -60
	defaultNoiseFloorDB       = -25
)

// TrimParams bound a trim. A nil Start keeps the beginning, a nil End keeps
// the tail; at least one must be set.
type TrimParams struct {
	Start *float64
	End   *float64
}

// SilenceParams tune silence removal. Zero values use the defaults.
type SilenceParams struct {
	MinDurationSec float64
	NoiseDB        int
}

// NoiseParams tune noise suppression. A nil floor uses the default.
type NoiseParams struct {
	NoiseFloorDB *int
}

// remapFunc adjusts a caption track for the audio change just applied. A nil
// remapFunc means timestamps are unaffected and the sidecar is copied as-is.
type remapFunc func(captions.Track) captions.Track

// editFunc produces the new audio revision at dst from src. probe describes
// src; oldTrack is the parsed sidecar, or nil when the segment has none.
type editFunc func(ctx context.Context, src, dst string, probe media.ProbeResult, oldTrack *captions.Track) (remapFunc, error)

// Trim replaces the segment's audio with the [start, end] range and remaps
// its captions to the new timeline.
func (s *Service) Trim(ctx context.Context, userID string, episodeID, segmentID int64, params TrimParams) (*store.Segment, error) {
	if params.Start == nil && params.End == nil {
		return nil, services.Wrap(services.ErrValidation, "segments", "trim", "no trim bounds supplied", nil)
	}
	return s.applyEdit(ctx, userID, episodeID, segmentID, "trim",
		func(ctx context.Context, src, dst string, probe media.ProbeResult, _ *captions.Track) (remapFunc, error) {
			start, end := 0.0, probe.DurationSec
			if params.Start != nil {
				start = *params.Start
			}
			if params.End != nil {
				end = *params.End
			}
			if start < 0 || end > probe.DurationSec || start >= end {
				return nil, services.Wrap(services.ErrValidation, "segments", "trim",
					"trim bounds must satisfy 0 <= start < end <= duration", nil)
			}
			if err := s.engine.Trim(ctx, src, dst, start, end); err != nil {
				return nil, err
			}
			return func(track captions.Track) captions.Track {
				return captions.RemapTrim(track, start, end)
			}, nil
		})
}

// RemoveSilence cuts silent stretches from the segment's audio and shifts
// caption timestamps left by the silence removed before them.
func (s *Service) RemoveSilence(ctx context.Context, userID string, episodeID, segmentID int64, params SilenceParams) (*store.Segment, error) {
	minDuration := params.MinDurationSec
	if minDuration == 0 {
		minDuration = defaultSilenceMinDuration
	}
	noiseDB := params.NoiseDB
	if noiseDB == 0 {
		noiseDB = defaultSilenceNoiseDB
	}
	if minDuration < 0 {
		return nil, services.Wrap(services.ErrValidation, "segments", "remove_silence",
			"silence threshold must be a positive duration", nil)
	}
	if noiseDB >= 0 {
		return nil, services.Wrap(services.ErrValidation, "segments", "remove_silence",
			"noise threshold must be negative decibels", nil)
	}
	return s.applyEdit(ctx, userID, episodeID, segmentID, "remove_silence",
		func(ctx context.Context, src, dst string, probe media.ProbeResult, _ *captions.Track) (remapFunc, error) {
			periods, err := s.engine.DetectSilence(ctx, src, minDuration, noiseDB)
			if err != nil {
				return nil, err
			}
			if err := s.engine.RemoveSilence(ctx, src, dst, minDuration, noiseDB); err != nil {
				return nil, err
			}
			mapped := make([]captions.SilencePeriod, 0, len(periods))
			for _, period := range periods {
				end := period.End
				if end <= period.Start {
					// Open-ended detection: the file ends while still silent.
					end = probe.DurationSec
				}
				mapped = append(mapped, captions.SilencePeriod{Start: period.Start, End: end})
			}
			return func(track captions.Track) captions.Track {
				return captions.RemapSilence(track, mapped)
			}, nil
		})
}

// SuppressNoise applies spectral noise reduction. Duration is preserved, so
// any caption sidecar carries over unchanged.
func (s *Service) SuppressNoise(ctx context.Context, userID string, episodeID, segmentID int64, params NoiseParams) (*store.Segment, error) {
	floor := defaultNoiseFloorDB
	if params.NoiseFloorDB != nil {
		floor = *params.NoiseFloorDB
	}
	if floor < -80 || floor > 0 {
		return nil, services.Wrap(services.ErrValidation, "segments", "suppress_noise",
			"noise floor must be between -80 and 0 dB", nil)
	}
	return s.applyEdit(ctx, userID, episodeID, segmentID, "suppress_noise",
		func(ctx context.Context, src, dst string, _ media.ProbeResult, _ *captions.Track) (remapFunc, error) {
			if err := s.engine.SuppressNoise(ctx, src, dst, floor); err != nil {
				return nil, err
			}
			return nil, nil
		})
}

// applyEdit runs one audio mutation under the segment's lock. The sequence
// is fixed: resolve, fresh probe, produce the new revision (forking reusable
// sources first), write the new sidecar, flip the row, and only then delete
// the previous recorded revision. Any failure before the row update leaves
// the segment exactly as it was.
func (s *Service) applyEdit(ctx context.Context, userID string, episodeID, segmentID int64, op string, run editFunc) (*store.Segment, error) {
	unlock := s.locks.lock(segmentID)
	defer unlock()

	segment, err := s.segmentInEpisode(ctx, userID, episodeID, segmentID)
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolver.Resolve(ctx, segment)
	if err != nil {
		return nil, err
	}

	probe, err := s.engine.Probe(ctx, resolved.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrProcessing, "segments", op, "probing source audio failed", err)
	}

	uploadDir := s.cfg.EpisodeUploadDir(episodeID)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	// A reusable source is shared: fork a private copy into the episode's
	// directory and edit that, leaving the asset file untouched.
	src := resolved.Path
	_, wasRecorded := segment.Source.(store.Recorded)
	if !wasRecorded {
		fork := filepath.Join(uploadDir, fmt.Sprintf("seg_%d_fork_%s%s", segmentID, uuid.NewString(), filepath.Ext(resolved.Path)))
		if err := fileutil.CopyFileVerified(resolved.Path, fork); err != nil {
			return nil, services.Wrap(services.ErrProcessing, "segments", op, "forking asset audio failed", err)
		}
		defer func() {
			_ = fileutil.RemoveIfExists(fork)
		}()
		src = fork
	}

	oldSidecar := captions.SidecarPath(resolved.Path)
	var oldTrack *captions.Track
	sidecarText, sidecarErr := os.ReadFile(oldSidecar)
	hasSidecar := sidecarErr == nil
	if hasSidecar {
		track := captions.Parse(string(sidecarText))
		oldTrack = &track
	}

	newPath := filepath.Join(uploadDir, fmt.Sprintf("seg_%d_%s.%s", segmentID, uuid.NewString(), s.cfg.Audio.OutputFormat))
	newPath, err = fileutil.EnsureWithin(uploadDir, newPath)
	if err != nil {
		return nil, err
	}

	remap, err := run(ctx, src, newPath, probe, oldTrack)
	if err != nil {
		_ = fileutil.RemoveIfExists(newPath)
		return nil, err
	}
	if !fileutil.NonEmptyFile(newPath) {
		_ = fileutil.RemoveIfExists(newPath)
		return nil, services.Wrap(services.ErrProcessing, "segments", op, "engine produced no output", nil)
	}

	newSidecar := captions.SidecarPath(newPath)
	if hasSidecar {
		if remap != nil {
			remapped := remap(*oldTrack)
			err = os.WriteFile(newSidecar, []byte(captions.Serialize(remapped)), 0o644)
		} else {
			err = fileutil.CopyFile(oldSidecar, newSidecar)
		}
		if err != nil {
			_ = fileutil.RemoveIfExists(newPath)
			_ = fileutil.RemoveIfExists(newSidecar)
			return nil, services.Wrap(services.ErrProcessing, "segments", op, "writing remapped captions failed", err)
		}
	}

	newProbe, err := s.engine.Probe(ctx, newPath)
	if err != nil {
		_ = fileutil.RemoveIfExists(newPath)
		_ = fileutil.RemoveIfExists(newSidecar)
		return nil, services.Wrap(services.ErrProcessing, "segments", op, "probing edited audio failed", err)
	}

	if err := s.store.UpdateSegmentAudio(ctx, segmentID, newPath, newProbe.DurationSec); err != nil {
		_ = fileutil.RemoveIfExists(newPath)
		_ = fileutil.RemoveIfExists(newSidecar)
		return nil, err
	}

	// The previous revision goes away only when this segment owned it.
	if wasRecorded {
		if err := fileutil.RemoveIfExists(resolved.Path); err != nil {
			logging.WarnBestEffort(s.logger, "stale revision not removed", "orphan audio file left on disk",
				logging.String("path", resolved.Path), logging.Error(err))
		}
		if err := fileutil.RemoveIfExists(oldSidecar); err != nil {
			logging.WarnBestEffort(s.logger, "stale sidecar not removed", "orphan file left on disk",
				logging.String("path", oldSidecar), logging.Error(err))
		}
		s.ledger.Debit(ctx, userID, probe.SizeBytes)
	}
	s.ledger.Credit(ctx, userID, newProbe.SizeBytes)

	s.logger.Info("segment edited",
		logging.Args(
			logging.String("operation", op),
			logging.Int64(logging.FieldEpisode, episodeID),
			logging.Int64(logging.FieldSegment, segmentID),
			logging.Float64("duration_sec", newProbe.DurationSec),
			logging.Bool("captions_remapped", hasSidecar),
		)...)

	return s.store.GetSegment(ctx, segmentID)
}

// forkSegment gives a reusable segment a private copy of its audio under the
// episode's upload directory and flips the row to a recorded source. The
// shared asset file and its sidecar stay untouched; the copy is charged to
// userID. Callers hold the segment lock.
func (s *Service) forkSegment(ctx context.Context, userID string, segment *store.Segment, resolved Resolved) (*store.Segment, Resolved, error) {
	uploadDir := s.cfg.EpisodeUploadDir(segment.EpisodeID)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, Resolved{}, fmt.Errorf("creating upload directory: %w", err)
	}

	newPath := filepath.Join(uploadDir, fmt.Sprintf("seg_%d_%s%s", segment.ID, uuid.NewString(), filepath.Ext(resolved.Path)))
	newPath, err := fileutil.EnsureWithin(uploadDir, newPath)
	if err != nil {
		return nil, Resolved{}, err
	}
	if err := fileutil.CopyFileVerified(resolved.Path, newPath); err != nil {
		return nil, Resolved{}, services.Wrap(services.ErrProcessing, "segments", "fork", "forking asset audio failed", err)
	}

	probe, err := s.engine.Probe(ctx, newPath)
	if err != nil {
		_ = fileutil.RemoveIfExists(newPath)
		return nil, Resolved{}, services.Wrap(services.ErrProcessing, "segments", "fork", "probing forked audio failed", err)
	}
	if err := s.store.UpdateSegmentAudio(ctx, segment.ID, newPath, probe.DurationSec); err != nil {
		_ = fileutil.RemoveIfExists(newPath)
		return nil, Resolved{}, err
	}
	s.ledger.Credit(ctx, userID, probe.SizeBytes)

	forked, err := s.store.GetSegment(ctx, segment.ID)
	if err != nil {
		return nil, Resolved{}, err
	}
	return forked, Resolved{Path: newPath, BaseDir: uploadDir}, nil
}

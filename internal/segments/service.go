package segments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"podstudio/internal/captions"
	"podstudio/internal/config"
	"podstudio/internal/fileutil"
	"podstudio/internal/logging"
	"podstudio/internal/media"
	"podstudio/internal/quota"
	"podstudio/internal/services"
	"podstudio/internal/store"
	"podstudio/internal/transcribe"
)

// Transcriber is the slice of the transcription client the service uses.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts transcribe.Options) (string, error)
}

// Service owns the segment timeline: creation from uploads or library assets,
// ordering, and every audio mutation with its caption remap.
type Service struct {
	cfg      *config.Config
	store    *store.Store
	engine   media.Engine
	resolver *Resolver
	ledger   *quota.Ledger
	policy   *quota.Policy
	stt      Transcriber
	logger   *slog.Logger
	locks    keyedMutex
}

// NewService wires the segment service. stt may be nil when transcription is
// not configured.
func NewService(cfg *config.Config, st *store.Store, engine media.Engine, ledger *quota.Ledger, policy *quota.Policy, stt Transcriber, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    st,
		engine:   engine,
		resolver: NewResolver(cfg, st),
		ledger:   ledger,
		policy:   policy,
		stt:      stt,
		logger:   logging.NewComponentLogger(logger, "segments"),
	}
}

// Resolver exposes the service's segment-to-file resolver for read-only
// consumers such as the render assembler.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// episodeOwned loads an episode only if the user owns it. Episodes belonging
// to other users are reported as missing, not forbidden, so ownership cannot
// be probed.
func (s *Service) episodeOwned(ctx context.Context, userID string, episodeID int64) (*store.Episode, error) {
	episode, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if episode == nil || episode.OwnerID != userID {
		return nil, services.Wrap(services.ErrNotFound, "segments", "load", "episode not found", nil)
	}
	return episode, nil
}

func (s *Service) segmentInEpisode(ctx context.Context, userID string, episodeID, segmentID int64) (*store.Segment, error) {
	if _, err := s.episodeOwned(ctx, userID, episodeID); err != nil {
		return nil, err
	}
	segment, err := s.store.GetSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	if segment == nil || segment.EpisodeID != episodeID {
		return nil, services.Wrap(services.ErrNotFound, "segments", "load", "segment not found", nil)
	}
	return segment, nil
}

// Get returns one segment after checking episode ownership.
func (s *Service) Get(ctx context.Context, userID string, episodeID, segmentID int64) (*store.Segment, error) {
	return s.segmentInEpisode(ctx, userID, episodeID, segmentID)
}

// List returns the episode's segments in timeline order.
func (s *Service) List(ctx context.Context, userID string, episodeID int64) ([]*store.Segment, error) {
	if _, err := s.episodeOwned(ctx, userID, episodeID); err != nil {
		return nil, err
	}
	return s.store.ListSegments(ctx, episodeID)
}

// CreateFromUpload stores uploaded audio as a new recorded segment appended
// to the timeline. sizeHint is the declared upload size used for the quota
// check; zero skips the prediction and relies on post-hoc accounting.
func (s *Service) CreateFromUpload(ctx context.Context, userID string, episodeID int64, name, filename string, src io.Reader, sizeHint int64) (*store.Segment, error) {
	if _, err := s.episodeOwned(ctx, userID, episodeID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, services.Wrap(services.ErrValidation, "segments", "upload", "segment name is required", nil)
	}
	if err := s.policy.Allow(ctx, userID, sizeHint); err != nil {
		return nil, err
	}

	uploadDir := s.cfg.EpisodeUploadDir(episodeID)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = "." + s.cfg.Audio.OutputFormat
	}
	dst := filepath.Join(uploadDir, fmt.Sprintf("upload_%s%s", uuid.NewString(), ext))
	dst, err := fileutil.EnsureWithin(uploadDir, dst)
	if err != nil {
		return nil, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}
	written, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = fileutil.RemoveIfExists(dst)
		return nil, fmt.Errorf("writing upload: %w", err)
	}

	probe, err := s.engine.Probe(ctx, dst)
	if err != nil {
		_ = fileutil.RemoveIfExists(dst)
		return nil, services.Wrap(services.ErrValidation, "segments", "upload",
			"uploaded file is not decodable audio", err)
	}

	position, err := s.store.NextSegmentPosition(ctx, episodeID)
	if err != nil {
		_ = fileutil.RemoveIfExists(dst)
		return nil, err
	}
	segment, err := s.store.CreateRecordedSegment(ctx, episodeID, name, dst, probe.DurationSec, position)
	if err != nil {
		_ = fileutil.RemoveIfExists(dst)
		return nil, err
	}
	s.ledger.Credit(ctx, userID, written)

	s.logger.Info("segment uploaded",
		logging.Args(
			logging.Int64(logging.FieldEpisode, episodeID),
			logging.Int64(logging.FieldSegment, segment.ID),
			logging.Int64("bytes", written),
			logging.Float64("duration_sec", probe.DurationSec),
		)...)
	return segment, nil
}

// CreateFromAsset appends a reusable segment referencing a library asset the
// user can access. The asset's bytes are not copied and not charged to the
// user's quota.
func (s *Service) CreateFromAsset(ctx context.Context, userID string, episodeID, assetID int64, name string) (*store.Segment, error) {
	if _, err := s.episodeOwned(ctx, userID, episodeID); err != nil {
		return nil, err
	}
	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.AccessibleBy(userID) {
		return nil, services.Wrap(services.ErrNotFound, "segments", "attach", "asset not found", nil)
	}
	if strings.TrimSpace(name) == "" {
		name = asset.Name
	}
	position, err := s.store.NextSegmentPosition(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	return s.store.CreateReusableSegment(ctx, episodeID, name, assetID, asset.DurationSec, position)
}

// Rename changes a segment's display name.
func (s *Service) Rename(ctx context.Context, userID string, episodeID, segmentID int64, name string) (*store.Segment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, services.Wrap(services.ErrValidation, "segments", "rename", "segment name is required", nil)
	}
	segment, err := s.segmentInEpisode(ctx, userID, episodeID, segmentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateSegmentName(ctx, segment.ID, name); err != nil {
		return nil, err
	}
	return s.store.GetSegment(ctx, segment.ID)
}

// Reorder sets the timeline order to match ids exactly. The list must be a
// permutation of the episode's current segment IDs.
func (s *Service) Reorder(ctx context.Context, userID string, episodeID int64, ids []int64) ([]*store.Segment, error) {
	current, err := s.List(ctx, userID, episodeID)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(current) {
		return nil, services.Wrap(services.ErrValidation, "segments", "reorder",
			"order must list every segment exactly once", nil)
	}
	known := make(map[int64]bool, len(current))
	for _, segment := range current {
		known[segment.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, services.Wrap(services.ErrValidation, "segments", "reorder",
				"order must list every segment exactly once", nil)
		}
		delete(known, id)
	}
	for position, id := range ids {
		if err := s.store.UpdateSegmentPosition(ctx, id, position); err != nil {
			return nil, err
		}
	}
	return s.store.ListSegments(ctx, episodeID)
}

// Delete removes a segment from the timeline. Recorded audio and its caption
// sidecar are deleted from disk after the row is gone; reusable asset files
// are never touched.
func (s *Service) Delete(ctx context.Context, userID string, episodeID, segmentID int64) error {
	unlock := s.locks.lock(segmentID)
	defer unlock()

	segment, err := s.segmentInEpisode(ctx, userID, episodeID, segmentID)
	if err != nil {
		return err
	}

	var ownedPath string
	var ownedBytes int64
	if src, ok := segment.Source.(store.Recorded); ok {
		path, guardErr := fileutil.EnsureWithin(s.cfg.EpisodeUploadDir(episodeID), src.AudioPath)
		if guardErr == nil {
			ownedPath = path
			if info, statErr := os.Stat(path); statErr == nil {
				ownedBytes = info.Size()
			}
		}
	}

	if err := s.store.DeleteSegment(ctx, segmentID); err != nil {
		return err
	}

	if ownedPath != "" {
		if err := fileutil.RemoveIfExists(ownedPath); err != nil {
			logging.WarnBestEffort(s.logger, "segment audio not removed", "orphan file left on disk",
				logging.String("path", ownedPath), logging.Error(err))
		}
		if err := fileutil.RemoveIfExists(captions.SidecarPath(ownedPath)); err != nil {
			logging.WarnBestEffort(s.logger, "caption sidecar not removed", "orphan file left on disk",
				logging.String("path", captions.SidecarPath(ownedPath)), logging.Error(err))
		}
		s.ledger.Debit(ctx, userID, ownedBytes)
	}
	return nil
}

// DeleteEpisode removes an episode, its segment rows, and its directory tree.
// The owner's quota is debited for every recorded audio file that goes away.
func (s *Service) DeleteEpisode(ctx context.Context, userID string, episodeID int64) error {
	if _, err := s.episodeOwned(ctx, userID, episodeID); err != nil {
		return err
	}
	timeline, err := s.store.ListSegments(ctx, episodeID)
	if err != nil {
		return err
	}
	uploadDir := s.cfg.EpisodeUploadDir(episodeID)
	var ownedBytes int64
	for _, segment := range timeline {
		src, ok := segment.Source.(store.Recorded)
		if !ok {
			continue
		}
		path, guardErr := fileutil.EnsureWithin(uploadDir, src.AudioPath)
		if guardErr != nil {
			continue
		}
		if info, statErr := os.Stat(path); statErr == nil {
			ownedBytes += info.Size()
		}
	}

	if err := s.store.DeleteEpisode(ctx, episodeID); err != nil {
		return err
	}
	if err := os.RemoveAll(s.cfg.EpisodeDir(episodeID)); err != nil {
		logging.WarnBestEffort(s.logger, "episode directory not removed", "orphan files left on disk",
			logging.Int64(logging.FieldEpisode, episodeID), logging.Error(err))
	}
	s.ledger.Debit(ctx, userID, ownedBytes)
	return nil
}

// StreamSource returns the on-disk path to serve for a segment, resolved and
// bounds-checked. Callers hand it to http.ServeFile for range support.
func (s *Service) StreamSource(ctx context.Context, userID string, episodeID, segmentID int64) (string, error) {
	segment, err := s.segmentInEpisode(ctx, userID, episodeID, segmentID)
	if err != nil {
		return "", err
	}
	resolved, err := s.resolver.Resolve(ctx, segment)
	if err != nil {
		return "", err
	}
	return resolved.Path, nil
}

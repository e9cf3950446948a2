package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"podstudio/internal/config"
	"podstudio/internal/fileutil"
	"podstudio/internal/logging"
	"podstudio/internal/media"
	"podstudio/internal/segments"
	"podstudio/internal/services"
	"podstudio/internal/store"
)

// Result describes one completed render.
type Result struct {
	Episode *store.Episode
	// Skipped lists segments whose audio files were missing and were left
	// out of the final cut.
	Skipped []string
}

// Assembler concatenates an episode's segment timeline into its final audio
// file and fans out the best-effort publish side effects.
type Assembler struct {
	cfg      *config.Config
	store    *store.Store
	engine   media.Engine
	resolver *segments.Resolver
	logger   *slog.Logger
}

// NewAssembler wires a render assembler.
func NewAssembler(cfg *config.Config, st *store.Store, engine media.Engine, resolver *segments.Resolver, logger *slog.Logger) *Assembler {
	return &Assembler{
		cfg:      cfg,
		store:    st,
		engine:   engine,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "render"),
	}
}

// Render assembles the episode's final audio. Segments whose files are
// missing on disk are skipped rather than failing the render; an episode
// with no resolvable audio at all is refused. Re-rendering overwrites the
// previous final cut at the same canonical path.
func (a *Assembler) Render(ctx context.Context, userID string, episodeID int64) (*Result, error) {
	episode, err := a.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if episode == nil || episode.OwnerID != userID {
		return nil, services.Wrap(services.ErrNotFound, "render", "render", "episode not found", nil)
	}

	timeline, err := a.store.ListSegments(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if len(timeline) == 0 {
		return nil, services.Wrap(services.ErrEmptyTimeline, "render", "render",
			"episode has no segments to assemble", nil)
	}

	var inputs []string
	var skipped []string
	for _, segment := range timeline {
		resolved, resolveErr := a.resolver.Resolve(ctx, segment)
		if resolveErr != nil {
			if errors.Is(resolveErr, services.ErrNotFound) {
				skipped = append(skipped, segment.Name)
				logging.WarnBestEffort(a.logger, "segment skipped during render", "final cut omits this segment",
					logging.Int64(logging.FieldEpisode, episodeID),
					logging.Int64(logging.FieldSegment, segment.ID),
					logging.String("segment_name", segment.Name))
				continue
			}
			return nil, resolveErr
		}
		inputs = append(inputs, resolved.Path)
	}
	if len(inputs) == 0 {
		return nil, services.Wrap(services.ErrNoValidAudio, "render", "render",
			"no segment has a usable audio file", nil)
	}

	if err := os.MkdirAll(a.cfg.EpisodeDir(episodeID), 0o755); err != nil {
		return nil, fmt.Errorf("creating episode directory: %w", err)
	}
	// The final cut lands inside the data root or not at all; a symlinked
	// episode directory must not redirect the write elsewhere.
	finalPath, err := fileutil.EnsureWithin(a.cfg.Paths.DataDir, a.cfg.EpisodeFinalAudioPath(episodeID))
	if err != nil {
		return nil, err
	}
	opts := media.ConcatOptions{
		BitrateKbps: a.cfg.Audio.BitrateKbps,
		Channels:    a.cfg.Audio.Channels,
	}
	started := time.Now()
	if err := a.engine.Concat(ctx, inputs, finalPath, opts); err != nil {
		return nil, err
	}

	probe, err := a.engine.Probe(ctx, finalPath)
	if err != nil {
		return nil, services.Wrap(services.ErrProcessing, "render", "render", "probing final audio failed", err)
	}
	if err := a.store.UpdateEpisodeFinalAudio(ctx, episodeID, finalPath, probe.MIMEType, probe.SizeBytes, probe.DurationSec); err != nil {
		return nil, err
	}

	a.publishSideEffects(ctx, episodeID, finalPath)

	a.logger.Info("episode rendered",
		logging.Args(
			logging.Int64(logging.FieldEpisode, episodeID),
			logging.Int("segments", len(inputs)),
			logging.Int("skipped", len(skipped)),
			logging.Float64("duration_sec", probe.DurationSec),
			logging.Duration("took", time.Since(started)),
		)...)

	refreshed, err := a.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	return &Result{Episode: refreshed, Skipped: skipped}, nil
}

// publishSideEffects draws the waveform image and drops the feed refresh
// marker. Both are conveniences layered on top of a successful render:
// failures are logged and swallowed, never surfaced to the caller.
func (a *Assembler) publishSideEffects(ctx context.Context, episodeID int64, finalPath string) {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		wavePath, err := fileutil.EnsureWithin(a.cfg.Paths.DataDir, a.cfg.EpisodeWaveformPath(episodeID))
		if err == nil {
			err = a.engine.RenderWaveform(groupCtx, finalPath, wavePath)
		}
		if err != nil {
			logging.WarnBestEffort(a.logger, "waveform render failed", "episode has no waveform image",
				logging.Int64(logging.FieldEpisode, episodeID),
				logging.Error(err))
		}
		return nil
	})
	group.Go(func() error {
		markerPath, err := fileutil.EnsureWithin(a.cfg.Paths.DataDir, a.cfg.FeedMarkerPath())
		if err == nil {
			err = touchFeedMarker(markerPath)
		}
		if err != nil {
			logging.WarnBestEffort(a.logger, "feed marker write failed", "feed refresh is delayed until the next render",
				logging.Int64(logging.FieldEpisode, episodeID),
				logging.Error(err))
		}
		return nil
	})
	_ = group.Wait()
}

func touchFeedMarker(path string) error {
	return os.WriteFile(path, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644)
}

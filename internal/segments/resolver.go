package segments

import (
	"context"
	"os"

	"podstudio/internal/config"
	"podstudio/internal/fileutil"
	"podstudio/internal/services"
	"podstudio/internal/store"
)

// Resolved names the concrete audio file behind a segment and the directory
// that bounds every disk operation on it.
type Resolved struct {
	// Path is the canonical audio file location.
	Path string
	// BaseDir is the trust boundary: the episode's upload directory for
	// recorded segments, the asset owner's library directory for reusable
	// ones.
	BaseDir string
}

// Resolver maps a segment record to its concrete audio file, independent of
// whether the segment is recorded or reusable.
type Resolver struct {
	cfg   *config.Config
	store *store.Store
}

// NewResolver builds a resolver over the given store and directory layout.
func NewResolver(cfg *config.Config, st *store.Store) *Resolver {
	return &Resolver{cfg: cfg, store: st}
}

// Resolve returns the segment's audio file and trust boundary. A missing file
// or dangling asset reference reports ErrNotFound; callers treat it as a 404,
// never a crash.
func (r *Resolver) Resolve(ctx context.Context, segment *store.Segment) (Resolved, error) {
	if segment == nil {
		return Resolved{}, services.Wrap(services.ErrNotFound, "resolver", "resolve", "segment missing", nil)
	}

	switch src := segment.Source.(type) {
	case store.Recorded:
		base := r.cfg.EpisodeUploadDir(segment.EpisodeID)
		path, err := fileutil.EnsureWithin(base, src.AudioPath)
		if err != nil {
			return Resolved{}, err
		}
		if !fileExists(path) {
			return Resolved{}, services.Wrap(services.ErrNotFound, "resolver", "resolve",
				"segment audio file missing", nil)
		}
		return Resolved{Path: path, BaseDir: base}, nil

	case store.Reusable:
		asset, err := r.store.GetAsset(ctx, src.AssetID)
		if err != nil {
			return Resolved{}, err
		}
		if asset == nil {
			return Resolved{}, services.Wrap(services.ErrNotFound, "resolver", "resolve",
				"referenced asset row is gone", nil)
		}
		base := r.cfg.LibraryOwnerDir(asset.OwnerID)
		if asset.Global {
			base = r.cfg.GlobalLibraryDir()
		}
		// The owner ID was request input once; the library root is the real
		// trust boundary, so the per-owner base is held to it first.
		base, err = fileutil.EnsureWithin(r.cfg.Paths.LibraryDir, base)
		if err != nil {
			return Resolved{}, err
		}
		path, err := fileutil.EnsureWithin(base, asset.Path)
		if err != nil {
			return Resolved{}, err
		}
		if !fileExists(path) {
			return Resolved{}, services.Wrap(services.ErrNotFound, "resolver", "resolve",
				"asset audio file missing", nil)
		}
		return Resolved{Path: path, BaseDir: base}, nil

	default:
		return Resolved{}, services.Wrap(services.ErrNotFound, "resolver", "resolve",
			"segment has no audio source", nil)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/google/uuid"

	"podstudio/internal/config"
	"podstudio/internal/fileutil"
	"podstudio/internal/logging"
	"podstudio/internal/media"
	"podstudio/internal/quota"
	"podstudio/internal/services"
	"podstudio/internal/store"
)

// Registry manages reusable audio assets: per-user clips charged to their
// owner's quota and global clips shared with everyone.
type Registry struct {
	cfg    *config.Config
	store  *store.Store
	engine media.Engine
	ledger *quota.Ledger
	policy *quota.Policy
	logger *slog.Logger
}

// NewRegistry wires the asset registry.
func NewRegistry(cfg *config.Config, st *store.Store, engine media.Engine, ledger *quota.Ledger, policy *quota.Policy, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:    cfg,
		store:  st,
		engine: engine,
		ledger: ledger,
		policy: policy,
		logger: logging.NewComponentLogger(logger, "library"),
	}
}

// Import stores uploaded audio as a new asset owned by ownerID. The bytes
// are charged to the owner's quota once, no matter how many segments later
// reference the asset.
func (r *Registry) Import(ctx context.Context, ownerID, name, filename string, src io.Reader, sizeHint int64) (*store.Asset, error) {
	ownerID = strings.TrimSpace(ownerID)
	if !services.ValidActorID(ownerID) {
		return nil, services.Wrap(services.ErrValidation, "library", "import", "invalid asset owner", nil)
	}
	if err := r.policy.Allow(ctx, ownerID, sizeHint); err != nil {
		return nil, err
	}

	// The owner ID names the directory, so it is held to the library root
	// even after the identity check above.
	dir, err := fileutil.EnsureWithin(r.cfg.Paths.LibraryDir, r.cfg.LibraryOwnerDir(ownerID))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = "." + r.cfg.Audio.OutputFormat
	}
	dst := filepath.Join(dir, fmt.Sprintf("asset_%s%s", uuid.NewString(), ext))
	dst, err = fileutil.EnsureWithin(dir, dst)
	if err != nil {
		return nil, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("creating asset file: %w", err)
	}
	written, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = fileutil.RemoveIfExists(dst)
		return nil, fmt.Errorf("writing asset: %w", err)
	}

	probe, err := r.engine.Probe(ctx, dst)
	if err != nil {
		_ = fileutil.RemoveIfExists(dst)
		return nil, services.Wrap(services.ErrValidation, "library", "import",
			"uploaded file is not decodable audio", err)
	}
	if strings.TrimSpace(name) == "" {
		name = displayName(dst)
	}

	asset, err := r.store.CreateAsset(ctx, ownerID, false, name, dst, written, probe.DurationSec)
	if err != nil {
		_ = fileutil.RemoveIfExists(dst)
		return nil, err
	}
	r.ledger.Credit(ctx, ownerID, written)

	r.logger.Info("asset imported",
		logging.Args(
			logging.String(logging.FieldUser, ownerID),
			logging.Int64("asset_id", asset.ID),
			logging.Int64("bytes", written),
		)...)
	return asset, nil
}

// RegisterGlobalFile records an audio file already sitting in the global
// library directory as a shared asset. Re-registering the same path is a
// no-op, which makes the drop-folder watcher idempotent.
func (r *Registry) RegisterGlobalFile(ctx context.Context, path string) (*store.Asset, error) {
	dir := r.cfg.GlobalLibraryDir()
	path, err := fileutil.EnsureWithin(dir, path)
	if err != nil {
		return nil, err
	}
	if !fileutil.NonEmptyFile(path) {
		return nil, services.Wrap(services.ErrValidation, "library", "register", "file is empty or missing", nil)
	}

	existing, err := r.store.FindAssetByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	probe, err := r.engine.Probe(ctx, path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "library", "register",
			"dropped file is not decodable audio", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat asset: %w", err)
	}

	asset, err := r.store.CreateAsset(ctx, "", true, displayName(path), path, info.Size(), probe.DurationSec)
	if err != nil {
		return nil, err
	}
	r.logger.Info("global asset registered",
		logging.Args(
			logging.Int64("asset_id", asset.ID),
			logging.String("path", path),
		)...)
	return asset, nil
}

// List returns the assets visible to userID: their own plus all global ones.
func (r *Registry) List(ctx context.Context, userID string) ([]*store.Asset, error) {
	return r.store.ListAssets(ctx, userID)
}

// Get returns one asset if userID may see it.
func (r *Registry) Get(ctx context.Context, userID string, assetID int64) (*store.Asset, error) {
	asset, err := r.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.AccessibleBy(userID) {
		return nil, services.Wrap(services.ErrNotFound, "library", "get", "asset not found", nil)
	}
	return asset, nil
}

// Delete removes an asset the user owns. The file is deleted after the row;
// segments still referencing the asset resolve as missing from then on and
// render skips them.
func (r *Registry) Delete(ctx context.Context, userID string, assetID int64) error {
	asset, err := r.store.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if asset == nil || asset.OwnerID != userID {
		return services.Wrap(services.ErrNotFound, "library", "delete", "asset not found", nil)
	}

	if err := r.store.DeleteAsset(ctx, assetID); err != nil {
		return err
	}
	if err := fileutil.RemoveIfExists(asset.Path); err != nil {
		logging.WarnBestEffort(r.logger, "asset file not removed", "orphan file left on disk",
			logging.String("path", asset.Path), logging.Error(err))
	}
	r.ledger.Debit(ctx, userID, asset.SizeBytes)
	return nil
}

// displayName prefers the embedded title tag and falls back to the file name
// without its extension.
func displayName(path string) string {
	if f, err := os.Open(path); err == nil {
		meta, readErr := tag.ReadFrom(f)
		f.Close()
		if readErr == nil {
			if title := strings.TrimSpace(meta.Title()); title != "" {
				return title
			}
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

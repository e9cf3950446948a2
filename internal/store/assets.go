package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const assetColumns = `id, owner_id, global, name, path, size_bytes, duration_sec, created_at`

// CreateAsset registers a reusable library asset.
func (s *Store) CreateAsset(ctx context.Context, ownerID string, global bool, name, path string, sizeBytes int64, durationSec float64) (*Asset, error) {
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO library_assets (owner_id, global, name, path, size_bytes, duration_sec, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ownerID, boolToInt(global), name, path, sizeBytes, durationSec, timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAsset(ctx, id)
}

// GetAsset fetches an asset by id. Returns nil when missing.
func (s *Store) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM library_assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %d: %w", id, err)
	}
	return asset, nil
}

// FindAssetByPath looks up an asset by its registered file path.
func (s *Store) FindAssetByPath(ctx context.Context, path string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM library_assets WHERE path = ?`, path)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find asset by path: %w", err)
	}
	return asset, nil
}

// ListAssets returns the assets the given user can attach: their own plus
// global ones.
func (s *Store) ListAssets(ctx context.Context, userID string) ([]*Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM library_assets WHERE owner_id = ? OR global = 1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// DeleteAsset removes an asset row. Segments referencing it become dangling
// and resolve as not-found; render skips them.
func (s *Store) DeleteAsset(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM library_assets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete asset %d: %w", id, err)
	}
	return nil
}

func scanAsset(row rowScanner) (*Asset, error) {
	var (
		asset     Asset
		global    int
		createdAt string
	)
	err := row.Scan(&asset.ID, &asset.OwnerID, &global, &asset.Name, &asset.Path,
		&asset.SizeBytes, &asset.DurationSec, &createdAt)
	if err != nil {
		return nil, err
	}
	asset.Global = global != 0
	asset.CreatedAt = parseTimestamp(createdAt)
	return &asset, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

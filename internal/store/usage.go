package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AddUsage adjusts a user's tracked storage usage by delta bytes. Negative
// deltas clamp the counter at zero inside the statement, so concurrent debits
// can never drive it negative.
func (s *Store) AddUsage(ctx context.Context, userID string, delta int64) error {
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO storage_usage (user_id, used_bytes, updated_at)
		 VALUES (?, MAX(0, ?), ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			used_bytes = MAX(0, storage_usage.used_bytes + ?),
			updated_at = excluded.updated_at`,
		userID, delta, timestamp(), delta,
	)
	if err != nil {
		return fmt.Errorf("adjust usage for %s: %w", userID, err)
	}
	return nil
}

// GetUsage returns a user's tracked storage usage in bytes. Unknown users
// report zero.
func (s *Store) GetUsage(ctx context.Context, userID string) (int64, error) {
	var used int64
	err := s.db.QueryRowContext(ctx,
		`SELECT used_bytes FROM storage_usage WHERE user_id = ?`, userID).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get usage for %s: %w", userID, err)
	}
	return used, nil
}

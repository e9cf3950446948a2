package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const episodeColumns = `id, owner_id, title, final_audio_path, final_audio_mime,
	final_audio_bytes, final_audio_duration, created_at, updated_at`

// CreateEpisode inserts a new episode for the given owner.
func (s *Store) CreateEpisode(ctx context.Context, ownerID, title string) (*Episode, error) {
	now := timestamp()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO episodes (owner_id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		ownerID, title, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetEpisode(ctx, id)
}

// GetEpisode fetches an episode by id. Returns nil when missing.
func (s *Store) GetEpisode(ctx context.Context, id int64) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode %d: %w", id, err)
	}
	return episode, nil
}

// ListEpisodes returns all episodes owned by the given user, newest first.
func (s *Store) ListEpisodes(ctx context.Context, ownerID string) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

// UpdateEpisodeFinalAudio persists all final-audio fields in one row update so
// a reader never observes a half-published render.
func (s *Store) UpdateEpisodeFinalAudio(ctx context.Context, id int64, path, mime string, sizeBytes int64, durationSec float64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes SET final_audio_path = ?, final_audio_mime = ?, final_audio_bytes = ?,
			final_audio_duration = ?, updated_at = ? WHERE id = ?`,
		nullableString(path), nullableString(mime), sizeBytes, durationSec, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("update episode %d final audio: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("episode %d not found", id)
	}
	return nil
}

// DeleteEpisode removes an episode; segments cascade via foreign key.
func (s *Store) DeleteEpisode(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM episodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete episode %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (*Episode, error) {
	var (
		episode            Episode
		finalPath          sql.NullString
		finalMIME          sql.NullString
		createdAt, updated string
	)
	err := row.Scan(
		&episode.ID, &episode.OwnerID, &episode.Title,
		&finalPath, &finalMIME, &episode.FinalAudioBytes, &episode.FinalAudioDuration,
		&createdAt, &updated,
	)
	if err != nil {
		return nil, err
	}
	episode.FinalAudioPath = finalPath.String
	episode.FinalAudioMIME = finalMIME.String
	episode.CreatedAt = parseTimestamp(createdAt)
	episode.UpdatedAt = parseTimestamp(updated)
	return &episode, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const segmentColumns = `id, episode_id, name, position, source_type, audio_path,
	asset_id, duration_sec, created_at, updated_at`

// CreateRecordedSegment inserts a segment that owns its audio file.
func (s *Store) CreateRecordedSegment(ctx context.Context, episodeID int64, name, audioPath string, durationSec float64, position int) (*Segment, error) {
	now := timestamp()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO segments (episode_id, name, position, source_type, audio_path, asset_id,
			duration_sec, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?)`,
		episodeID, name, position, SourceRecorded, audioPath, durationSec, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recorded segment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSegment(ctx, id)
}

// CreateReusableSegment inserts a segment referencing a shared library asset.
func (s *Store) CreateReusableSegment(ctx context.Context, episodeID int64, name string, assetID int64, durationSec float64, position int) (*Segment, error) {
	now := timestamp()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO segments (episode_id, name, position, source_type, audio_path, asset_id,
			duration_sec, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?)`,
		episodeID, name, position, SourceReusable, assetID, durationSec, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reusable segment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSegment(ctx, id)
}

// GetSegment fetches a segment by id. Returns nil when missing.
func (s *Store) GetSegment(ctx context.Context, id int64) (*Segment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+segmentColumns+` FROM segments WHERE id = ?`, id)
	segment, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get segment %d: %w", id, err)
	}
	return segment, nil
}

// ListSegments returns an episode's segments ordered by position, then
// creation time for stable ordering when positions collide.
func (s *Store) ListSegments(ctx context.Context, episodeID int64) ([]*Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE episode_id = ? ORDER BY position ASC, created_at ASC`,
		episodeID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segments []*Segment
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}

// NextSegmentPosition returns one past the highest position in the episode.
func (s *Store) NextSegmentPosition(ctx context.Context, episodeID int64) (int, error) {
	var position sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(position) FROM segments WHERE episode_id = ?`, episodeID).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("next segment position: %w", err)
	}
	if !position.Valid {
		return 0, nil
	}
	return int(position.Int64) + 1, nil
}

// UpdateSegmentAudio points the segment at a new owned audio file and caches
// the freshly probed duration. The segment becomes recorded and any asset
// reference is cleared, all in one statement, so the row never points at a
// deleted file.
func (s *Store) UpdateSegmentAudio(ctx context.Context, id int64, audioPath string, durationSec float64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE segments SET source_type = ?, audio_path = ?, asset_id = NULL,
			duration_sec = ?, updated_at = ? WHERE id = ?`,
		SourceRecorded, audioPath, durationSec, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("update segment %d audio: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("segment %d not found", id)
	}
	return nil
}

// UpdateSegmentName renames a segment.
func (s *Store) UpdateSegmentName(ctx context.Context, id int64, name string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE segments SET name = ?, updated_at = ? WHERE id = ?`,
		name, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("rename segment %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("segment %d not found", id)
	}
	return nil
}

// UpdateSegmentPosition sets one segment's playback position.
func (s *Store) UpdateSegmentPosition(ctx context.Context, id int64, position int) error {
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE segments SET position = ?, updated_at = ? WHERE id = ?`,
		position, timestamp(), id,
	); err != nil {
		return fmt.Errorf("reposition segment %d: %w", id, err)
	}
	return nil
}

// DeleteSegment removes a segment row. Callers are responsible for any owned
// file cleanup before or after, per the delete-after-row-update contract.
func (s *Store) DeleteSegment(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM segments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete segment %d: %w", id, err)
	}
	return nil
}

func scanSegment(row rowScanner) (*Segment, error) {
	var (
		segment            Segment
		sourceType         string
		audioPath          sql.NullString
		assetID            sql.NullInt64
		createdAt, updated string
	)
	err := row.Scan(
		&segment.ID, &segment.EpisodeID, &segment.Name, &segment.Position,
		&sourceType, &audioPath, &assetID, &segment.DurationSec,
		&createdAt, &updated,
	)
	if err != nil {
		return nil, err
	}

	switch sourceType {
	case SourceRecorded:
		segment.Source = Recorded{AudioPath: audioPath.String}
	case SourceReusable:
		segment.Source = Reusable{AssetID: assetID.Int64}
	default:
		return nil, fmt.Errorf("segment %d has unknown source type %q", segment.ID, sourceType)
	}

	segment.CreatedAt = parseTimestamp(createdAt)
	segment.UpdatedAt = parseTimestamp(updated)
	return &segment, nil
}

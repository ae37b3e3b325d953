package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordArtifact inserts or replaces the index entry for a.RelPath.
func (s *SQLiteStore) RecordArtifact(ctx context.Context, a Artifact) error {
	if a.RelPath == "" {
		return fmt.Errorf("artifact rel path is required")
	}
	createdAt := a.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO artifacts (
			rel_path, media_id, media_type, season, episode, path, source_lang, target_lang, track_id, size_bytes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rel_path) DO UPDATE SET
			path=excluded.path,
			source_lang=excluded.source_lang,
			target_lang=excluded.target_lang,
			track_id=excluded.track_id,
			size_bytes=excluded.size_bytes,
			created_at=excluded.created_at`,
		a.RelPath,
		a.MediaID,
		a.MediaType,
		toNullInt(a.Season),
		toNullInt(a.Episode),
		a.Path,
		a.SourceLanguage,
		a.TargetLanguage,
		a.TrackID,
		a.SizeBytes,
		createdAt,
	)
	return err
}

// ListArtifacts returns indexed artifacts, newest first. mediaID filters when
// not empty.
func (s *SQLiteStore) ListArtifacts(ctx context.Context, mediaID string) ([]Artifact, error) {
	query := `SELECT rel_path, media_id, media_type, season, episode, path, source_lang, target_lang, track_id, size_bytes, created_at
		 FROM artifacts`
	var args []any
	if mediaID != "" {
		query += ` WHERE media_id = ?`
		args = append(args, mediaID)
	}
	query += ` ORDER BY created_at DESC, rel_path ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []Artifact
	for rows.Next() {
		var a Artifact
		var season, episode sql.NullInt64
		if err := rows.Scan(
			&a.RelPath,
			&a.MediaID,
			&a.MediaType,
			&season,
			&episode,
			&a.Path,
			&a.SourceLanguage,
			&a.TargetLanguage,
			&a.TrackID,
			&a.SizeBytes,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.Season = fromNullInt(season)
		a.Episode = fromNullInt(episode)
		ret = append(ret, a)
	}
	return ret, rows.Err()
}

func (s *SQLiteStore) DeleteArtifact(ctx context.Context, relPath string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE rel_path = ?`, relPath)
	return err
}

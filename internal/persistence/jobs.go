package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MimeLyc/caption-pipeline/internal/jobs"
)

var _ jobs.Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*jobs.Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source, dedupe_key, media_id, media_type, season, episode, status, path, error, created_at, updated_at
		 FROM jobs
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.Job, 0)
	for rows.Next() {
		var item jobs.Job
		var status string
		var season, episode sql.NullInt64
		if err := rows.Scan(
			&item.ID,
			&item.Source,
			&item.DedupeKey,
			&item.Payload.MediaID,
			&item.Payload.MediaType,
			&season,
			&episode,
			&status,
			&item.Path,
			&item.Error,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Status = jobs.Status(status)
		item.Payload.Season = fromNullInt(season)
		item.Payload.Episode = fromNullInt(episode)
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID)
	return err
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *jobs.Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, source, dedupe_key, media_id, media_type, season, episode, status, path, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source,
			dedupe_key=excluded.dedupe_key,
			media_id=excluded.media_id,
			media_type=excluded.media_type,
			season=excluded.season,
			episode=excluded.episode,
			status=excluded.status,
			path=excluded.path,
			error=excluded.error,
			updated_at=excluded.updated_at`,
		job.ID,
		job.Source,
		job.DedupeKey,
		job.Payload.MediaID,
		job.Payload.MediaType,
		toNullInt(job.Payload.Season),
		toNullInt(job.Payload.Episode),
		string(job.Status),
		job.Path,
		job.Error,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
	)
	return err
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

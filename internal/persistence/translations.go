package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// LookupTranslation returns a remembered translation.
func (s *SQLiteStore) LookupTranslation(ctx context.Context, source, target, text string) (string, bool, error) {
	var translated string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT translated_text FROM translations
		 WHERE source_lang = ? AND target_lang = ? AND source_text = ?`,
		source, target, text,
	).Scan(&translated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return translated, true, nil
}

func (s *SQLiteStore) SaveTranslation(ctx context.Context, source, target, text, translated string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO translations (source_lang, target_lang, source_text, translated_text, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_lang, target_lang, source_text) DO UPDATE SET
			translated_text=excluded.translated_text,
			updated_at=excluded.updated_at`,
		source, target, text, translated, time.Now().UTC(),
	)
	return err
}

// PruneTranslations keeps only the keep most recently saved translations and
// returns the number of rows removed.
func (s *SQLiteStore) PruneTranslations(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM translations WHERE rowid NOT IN (
			SELECT rowid FROM translations ORDER BY updated_at DESC, rowid DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) CountTranslations(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translations`).Scan(&n)
	return n, err
}

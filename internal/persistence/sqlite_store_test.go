package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/caption-pipeline/internal/jobs"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ctxcaption.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func intPtr(v int) *int { return &v }

func TestSQLiteStore_ReopenKeepsSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ctxcaption.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveTranslation(context.Background(), "en", "zh", "Hello", "你好"))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	got, ok, err := store.LookupTranslation(context.Background(), "en", "zh", "Hello")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "你好", got)
}

func TestSQLiteStore_SchemaVersion(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	latest := migrations[len(migrations)-1].version

	path := filepath.Join(t.TempDir(), "ctxcaption.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	assert.Equal(t, latest, store.SchemaVersion())

	// a database stamped by a newer build is opened as-is
	_, err = store.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, 99, store.SchemaVersion())
	n, err := store.CountTranslations(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_RejectsEmptyPath(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	assert.EqualError(t, err, "db path is required")
}

func TestSQLiteStore_JobsRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	job := &jobs.Job{
		ID:        "0b6c1d2e",
		Source:    "warm",
		DedupeKey: "series:1399:s1e2",
		Payload: jobs.Payload{
			MediaID:   "1399",
			MediaType: "series",
			Season:    intPtr(1),
			Episode:   intPtr(2),
		},
		Status:    jobs.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.UpsertJob(ctx, job))

	job.Status = jobs.StatusSuccess
	job.Path = "/data/captions/series/1399/season1/episode2/caption.vtt"
	require.NoError(t, store.UpsertJob(ctx, job))

	all, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, job.ID, all[0].ID)
	assert.Equal(t, jobs.StatusSuccess, all[0].Status)
	assert.Equal(t, job.Path, all[0].Path)
	require.NotNil(t, all[0].Payload.Episode)
	assert.Equal(t, 2, *all[0].Payload.Episode)

	require.NoError(t, store.DeleteJob(ctx, job.ID))
	all, err = store.LoadJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteStore_TranslationMemory(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LookupTranslation(ctx, "en", "zh", "Hello")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveTranslation(ctx, "en", "zh", "Hello", "你好"))
	require.NoError(t, store.SaveTranslation(ctx, "en", "zh", "Hello", "您好"))
	got, ok, err := store.LookupTranslation(ctx, "en", "zh", "Hello")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "您好", got)

	_, ok, err = store.LookupTranslation(ctx, "en", "ja", "Hello")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_PruneTranslations(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.SaveTranslation(ctx, "en", "fr", text, text+"!"))
		time.Sleep(2 * time.Millisecond)
	}

	removed, err := store.PruneTranslations(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	n, err := store.CountTranslations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok, _ := store.LookupTranslation(ctx, "en", "fr", "d")
	assert.True(t, ok)
	_, ok, _ = store.LookupTranslation(ctx, "en", "fr", "a")
	assert.False(t, ok)
}

func TestSQLiteStore_Artifacts(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	older := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	require.NoError(t, store.RecordArtifact(ctx, Artifact{
		RelPath:   "movies/603/caption.vtt",
		MediaID:   "603",
		MediaType: "movie",
		Path:      "/data/captions/movies/603/caption.vtt",
		SizeBytes: 1200,
		CreatedAt: older,
	}))
	require.NoError(t, store.RecordArtifact(ctx, Artifact{
		RelPath:        "series/1399/season1/episode2/caption.vtt",
		MediaID:        "1399",
		MediaType:      "series",
		Season:         intPtr(1),
		Episode:        intPtr(2),
		Path:           "/data/captions/series/1399/season1/episode2/caption.vtt",
		SourceLanguage: "en",
		TargetLanguage: "zh",
		TrackID:        "t-1",
		SizeBytes:      2048,
	}))

	all, err := store.ListArtifacts(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1399", all[0].MediaID)
	require.NotNil(t, all[0].Season)
	assert.Equal(t, 1, *all[0].Season)
	assert.Nil(t, all[1].Season)

	only, err := store.ListArtifacts(ctx, "603")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, int64(1200), only[0].SizeBytes)

	require.NoError(t, store.DeleteArtifact(ctx, "movies/603/caption.vtt"))
	only, err = store.ListArtifacts(ctx, "603")
	require.NoError(t, err)
	assert.Empty(t, only)

	assert.Error(t, store.RecordArtifact(ctx, Artifact{}))
}

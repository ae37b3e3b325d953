package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/caption-pipeline/internal/cachestore"
	"github.com/MimeLyc/caption-pipeline/internal/persistence"
	"github.com/MimeLyc/caption-pipeline/pkg/icron"
)

func TestMaintenance_RunOnce(t *testing.T) {
	cache, err := cachestore.New(t.TempDir())
	require.NoError(t, err)
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "ctxcaption.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	dir := filepath.Join(cache.Root(), "movies", "603")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stale := filepath.Join(dir, ".ctxcaption-123.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	artifact := filepath.Join(dir, "caption.vtt")
	require.NoError(t, os.WriteFile(artifact, []byte("WEBVTT\n"), 0o644))
	require.NoError(t, os.Chtimes(artifact, old, old))
	lockFile := filepath.Join(dir, "caption.lock")
	require.NoError(t, os.WriteFile(lockFile, nil, 0o644))
	require.NoError(t, os.Chtimes(lockFile, old, old))

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, store.SaveTranslation(ctx, "en", "es", text, text+"-es"))
	}

	svc := NewMaintenanceService(MaintenanceConfig{
		CronExpr:      "@every 1h",
		TempMaxAge:    time.Hour,
		MemoryMaxRows: 2,
	}, cache, store, cron.New(cron.WithParser(icron.Parser)))

	report, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TempRemoved)
	assert.Equal(t, 1, report.LocksRemoved)
	assert.EqualValues(t, 1, report.MemoryPruned)

	assert.NoFileExists(t, stale)
	assert.NoFileExists(t, lockFile)
	assert.FileExists(t, artifact)
	count, err := store.CountTranslations(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestMaintenance_Schedule(t *testing.T) {
	cache, err := cachestore.New(t.TempDir())
	require.NoError(t, err)
	c := cron.New(cron.WithParser(icron.Parser))

	svc := NewMaintenanceService(MaintenanceConfig{CronExpr: "0 3 * * *", TempMaxAge: time.Hour}, cache, nil, c)
	require.NoError(t, svc.Schedule(context.Background()))
	assert.Len(t, c.Entries(), 1)

	ref := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	next, err := svc.NextRun(ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 3, 0, 0, 0, time.Local), next)

	bad := NewMaintenanceService(MaintenanceConfig{CronExpr: "not a schedule"}, cache, nil, c)
	require.Error(t, bad.Schedule(context.Background()))
	assert.Len(t, c.Entries(), 1)
}

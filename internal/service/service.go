package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/caption-pipeline/pkg/icron"
	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

// CacheSweeper removes files abandoned by interrupted acquisitions.
type CacheSweeper interface {
	SweepTemp(maxAge time.Duration) (int, error)
	SweepLocks(maxAge time.Duration) (int, error)
}

// MemoryPruner trims the translation memory to its newest rows.
type MemoryPruner interface {
	PruneTranslations(ctx context.Context, keep int) (int64, error)
}

type MaintenanceConfig struct {
	CronExpr string
	// TempMaxAge applies to both temp files and unused lock files.
	TempMaxAge    time.Duration
	MemoryMaxRows int
}

// MaintenanceReport is what one maintenance run did.
type MaintenanceReport struct {
	TempRemoved   int
	LocksRemoved  int
	MemoryPruned  int64
	LastTriggered time.Time
}

type maintenanceService struct {
	cfg     MaintenanceConfig
	cache   CacheSweeper
	memory  MemoryPruner
	cron    *cron.Cron
	flights singleflight.Group
}

// NewMaintenanceService builds the periodic cache housekeeping job. memory
// may be nil.
func NewMaintenanceService(
	cfg MaintenanceConfig,
	cache CacheSweeper,
	memory MemoryPruner,
	cron *cron.Cron,
) *maintenanceService {
	return &maintenanceService{
		cfg:    cfg,
		cache:  cache,
		memory: memory,
		cron:   cron,
	}
}

// Schedule registers the maintenance job on the cron. Overlapping triggers
// share the run already in progress.
func (s *maintenanceService) Schedule(ctx context.Context) error {
	if err := icron.Validate(s.cfg.CronExpr); err != nil {
		return err
	}
	log.Info("Schedule maintenance with %q", s.cfg.CronExpr)

	runFunc := func() {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Error("Maintenance failed: %v", err)
		}
	}
	_, err := s.cron.AddFunc(s.cfg.CronExpr, runFunc)
	return err
}

// RunOnce sweeps stale temp and lock files and prunes the translation memory.
func (s *maintenanceService) RunOnce(ctx context.Context) (MaintenanceReport, error) {
	v, err, _ := s.flights.Do("maintenance", func() (any, error) {
		report := MaintenanceReport{LastTriggered: time.Now()}

		removed, err := s.cache.SweepTemp(s.cfg.TempMaxAge)
		if err != nil {
			return report, WrapError(err, ErrPersistence, "sweep temp files")
		}
		report.TempRemoved = removed

		locks, err := s.cache.SweepLocks(s.cfg.TempMaxAge)
		if err != nil {
			return report, WrapError(err, ErrPersistence, "sweep lock files")
		}
		report.LocksRemoved = locks

		if s.memory != nil && s.cfg.MemoryMaxRows > 0 {
			pruned, err := s.memory.PruneTranslations(ctx, s.cfg.MemoryMaxRows)
			if err != nil {
				return report, WrapError(err, ErrPersistence, "prune translation memory")
			}
			report.MemoryPruned = pruned
		}

		log.Info("Maintenance removed %d temp files, %d lock files and %d memory rows",
			report.TempRemoved, report.LocksRemoved, report.MemoryPruned)
		return report, nil
	})
	return v.(MaintenanceReport), err
}

// NextRun reports when the maintenance job fires next after ref.
func (s *maintenanceService) NextRun(ref time.Time) (time.Time, error) {
	info, err := icron.GetTriggerInfo(s.cfg.CronExpr, ref)
	if err != nil {
		return time.Time{}, err
	}
	return info.Next, nil
}

package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/caption-pipeline/internal/cachestore"
	"github.com/MimeLyc/caption-pipeline/internal/config"
	"github.com/MimeLyc/caption-pipeline/internal/jobs"
	"github.com/MimeLyc/caption-pipeline/internal/llm"
	"github.com/MimeLyc/caption-pipeline/internal/persistence"
	"github.com/MimeLyc/caption-pipeline/internal/provider"
	"github.com/MimeLyc/caption-pipeline/internal/resolver"
	"github.com/MimeLyc/caption-pipeline/internal/translator"
	"github.com/MimeLyc/caption-pipeline/pkg/icron"
	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

// App is the process-wide wiring: one cache, one database, one translation
// engine and one pipeline built at startup.
type App struct {
	Config   config.Config
	Cache    *cachestore.Store
	Store    *persistence.SQLiteStore
	Engine   *translator.Engine
	Pipeline *Pipeline
}

func NewApp(cfg config.Config) (*App, error) {
	cache, err := cachestore.New(cfg.System.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("open caption cache: %w", err)
	}

	store, err := persistence.NewSQLiteStore(cfg.System.DBPath)
	if err != nil {
		return nil, err
	}
	log.Info("Opened %s at schema version %d", cfg.System.DBPath, store.SchemaVersion())

	backend, err := newLineTranslator(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	engine, err := translator.NewEngine(backend, translator.Options{
		Concurrency: cfg.Translate.Concurrency,
		CacheSize:   cfg.Translate.CacheSize,
		CallTimeout: cfg.Translate.Timeout,
		Memory:      store,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	subtitles, err := provider.New(provider.Config{
		BaseURL:   cfg.Provider.APIURL,
		APIKey:    cfg.Provider.APIKey,
		UserAgent: cfg.Provider.UserAgent,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pipeline, err := NewPipeline(
		cache,
		resolver.New(cfg.Resolver.APIKey, cfg.Resolver.APIURL),
		subtitles,
		engine,
		store,
		PipelineOptions{
			SourceLanguage: cfg.Translate.SourceLanguage,
			TargetLanguage: cfg.Translate.TargetLanguage,
			Format:         cfg.Provider.Format,
			MaxAttempts:    cfg.Pipeline.MaxAttempts,
			RetryDelay:     cfg.Pipeline.RetryDelay,
		},
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Cache:    cache,
		Store:    store,
		Engine:   engine,
		Pipeline: pipeline,
	}, nil
}

func newLineTranslator(cfg config.Config) (translator.LineTranslator, error) {
	switch cfg.Translate.Backend {
	case config.BackendLLM:
		client, err := llm.NewClient(&llm.Config{
			APIKey:      cfg.LLM.APIKey,
			APIURL:      cfg.LLM.APIURL,
			Model:       cfg.LLM.Model,
			Temperature: 0.3,
			Timeout:     cfg.LLM.Timeout,
			AppName:     "ctxcaption",
		})
		if err != nil {
			return nil, fmt.Errorf("create LLM client: %w", err)
		}
		return translator.NewLLMTranslator(client), nil
	default:
		return translator.NewHTTPTranslator(cfg.Translate.APIURL, cfg.Translate.APIKey)
	}
}

// NewQueue returns a warm-up queue persisted in the app database.
func (a *App) NewQueue() *jobs.Queue {
	return jobs.NewQueue(a.Config.Pipeline.WarmWorkers, a.Store)
}

// NewMaintenance returns the maintenance job scheduled on c, or on a new cron
// when c is nil.
func (a *App) NewMaintenance(c *cron.Cron) *maintenanceService {
	if c == nil {
		c = cron.New(cron.WithParser(icron.Parser))
	}
	return NewMaintenanceService(MaintenanceConfig{
		CronExpr:      a.Config.System.MaintenanceCron,
		TempMaxAge:    a.Config.System.TempMaxAge,
		MemoryMaxRows: a.Config.System.MemoryMaxRows,
	}, a.Cache, a.Store, c)
}

func (a *App) Acquire(ctx context.Context, req Request) Result {
	return a.Pipeline.Acquire(ctx, req)
}

func (a *App) Close() error {
	return a.Store.Close()
}

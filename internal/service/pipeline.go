package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/MimeLyc/caption-pipeline/internal/cachestore"
	"github.com/MimeLyc/caption-pipeline/internal/persistence"
	"github.com/MimeLyc/caption-pipeline/internal/provider"
	"github.com/MimeLyc/caption-pipeline/internal/subtitle"
	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 3 * time.Second
)

// PipelineOptions are the tunables of a Pipeline.
type PipelineOptions struct {
	SourceLanguage language.Tag
	TargetLanguage language.Tag
	Format         string
	MaxAttempts    int
	RetryDelay     time.Duration
}

// Pipeline acquires, translates and caches captions.
type Pipeline struct {
	cache      *cachestore.Store
	resolver   Resolver
	provider   SubtitleProvider
	translator DocumentTranslator
	index      ArtifactIndex
	opts       PipelineOptions
	log        *log.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipeline wires the collaborators. index may be nil.
func NewPipeline(
	cache *cachestore.Store,
	resolver Resolver,
	subtitles SubtitleProvider,
	docTranslator DocumentTranslator,
	index ArtifactIndex,
	opts PipelineOptions,
) (*Pipeline, error) {
	if cache == nil || resolver == nil || subtitles == nil || docTranslator == nil {
		return nil, errors.New("pipeline requires cache, resolver, provider and translator")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.TargetLanguage == language.Und {
		return nil, errors.New("target language is required")
	}
	return &Pipeline{
		cache:      cache,
		resolver:   resolver,
		provider:   subtitles,
		translator: docTranslator,
		index:      index,
		opts:       opts,
		log:        log.GetLogger().Named("pipeline"),
		sleep:      sleepWithContext,
	}, nil
}

// Acquire returns the cached caption for req, producing it first when it does
// not exist. It never returns a raw error: failures are reported in Result.
func (p *Pipeline) Acquire(ctx context.Context, req Request) Result {
	var result Result
	err := SafeExecute(func() error {
		var err error
		result, err = p.acquire(ctx, req)
		return err
	})
	if err != nil {
		var pErr *PipelineError
		if !errors.As(err, &pErr) {
			pErr = WrapError(err, ErrUnknown, "acquire failed")
		}
		p.log.Error("Acquire %s/%s failed: %v", req.MediaType, req.MediaID, pErr)
		return Result{Success: false, Error: pErr.UserMessage()}
	}
	return result
}

func (p *Pipeline) acquire(ctx context.Context, req Request) (Result, error) {
	key := req.Key()
	if err := key.Validate(); err != nil {
		return Result{}, WrapError(err, ErrValidation, "invalid request")
	}
	path, err := p.cache.ResolvePath(key)
	if err != nil {
		return Result{}, WrapError(err, ErrValidation, "invalid request")
	}
	if p.cache.Exists(path) {
		return Result{Success: true, Path: key.RelPath(), FromCache: true}, nil
	}

	// Serialize producers of the same key, in this process and across
	// processes, then look again: the previous holder may have produced it.
	unlock, err := p.cache.Lock(ctx, key)
	if err != nil {
		return Result{}, WrapError(err, ErrPersistence, "lock cache entry").WithContext("key", key.String())
	}
	defer unlock()
	if p.cache.Exists(path) {
		return Result{Success: true, Path: key.RelPath(), FromCache: true}, nil
	}

	if err := p.produce(ctx, key, path); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Path: key.RelPath()}, nil
}

func (p *Pipeline) produce(ctx context.Context, key cachestore.Key, path string) error {
	runLog := p.log.Named(uuid.NewString()[:8])
	started := time.Now()
	runLog.Info("Producing caption for %s", key)

	criteria := provider.Criteria{
		ID:      key.MediaID,
		IDKind:  provider.IDKindTMDB,
		Season:  key.Season,
		Episode: key.Episode,
		Format:  p.opts.Format,
	}
	if altID, ok := p.resolver.Resolve(ctx, key.MediaID, key.MediaType); ok {
		criteria.ID = altID
		criteria.IDKind = provider.IDKindIMDb
	}

	raw, track, err := p.fetch(ctx, runLog, criteria)
	if err != nil {
		return WrapError(err, classifyFetchError(err), "subtitle acquisition failed").
			WithContext("key", key.String()).
			WithContext("attempts", p.opts.MaxAttempts)
	}

	source := p.sourceLanguage(runLog, track, raw)
	translated, stats, err := p.translator.TranslateDocument(ctx, raw, source, p.opts.TargetLanguage)
	if err != nil {
		return WrapError(err, ErrTranslation, "translation aborted").WithContext("key", key.String())
	}
	runLog.Info("Translated %d lines (%d distinct, %d cached, %d failed) from %s to %s",
		stats.TextLines, stats.Distinct, stats.CacheHits, stats.Failed, source, p.opts.TargetLanguage)

	data := []byte(subtitle.ConvertToVTT(translated))
	if err := p.cache.Write(path, data); err != nil {
		return WrapError(err, ErrPersistence, "write caption").WithContext("path", path)
	}

	p.recordArtifact(ctx, key, path, track, source, len(data))
	runLog.Info("Caption for %s written to %s in %s", key, path, time.Since(started).Round(time.Millisecond))
	return nil
}

// fetch searches and downloads with a fixed retry budget. Every attempt
// restarts from search with the same criteria.
func (p *Pipeline) fetch(ctx context.Context, runLog *log.Logger, criteria provider.Criteria) (string, provider.Track, error) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.opts.RetryDelay); err != nil {
				return "", provider.Track{}, fmt.Errorf("retry aborted: %w (last error: %w)", err, lastErr)
			}
		}

		raw, track, err := p.fetchOnce(ctx, criteria)
		if err == nil {
			return raw, track, nil
		}
		lastErr = err
		runLog.Warn("Attempt %d/%d for %s:%s failed: %v", attempt, p.opts.MaxAttempts, criteria.IDKind, criteria.ID, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", provider.Track{}, lastErr
}

func (p *Pipeline) fetchOnce(ctx context.Context, criteria provider.Criteria) (string, provider.Track, error) {
	tracks, err := p.provider.Search(ctx, criteria)
	if err != nil {
		return "", provider.Track{}, err
	}
	if len(tracks) == 0 {
		return "", provider.Track{}, provider.ErrNoTracks
	}
	track := provider.Select(tracks, p.opts.SourceLanguage)
	raw, err := p.provider.Download(ctx, track)
	if err != nil {
		return "", provider.Track{}, err
	}
	if strings.TrimSpace(raw) == "" {
		return "", provider.Track{}, fmt.Errorf("%w: empty subtitle body", provider.ErrDownload)
	}
	return raw, track, nil
}

// sourceLanguage picks the language the engine translates from: the track
// label, then detection over the document, then the configured language.
func (p *Pipeline) sourceLanguage(runLog *log.Logger, track provider.Track, raw string) language.Tag {
	if tag, ok := subtitle.ParseLanguage(track.Language); ok {
		return tag
	}
	doc, err := subtitle.Parse(raw)
	if err != nil {
		runLog.Warn("Downloaded subtitle does not parse: %v", err)
	} else if err := doc.Validate(); err != nil {
		runLog.Warn("Downloaded subtitle has out of order cues: %v", err)
	}
	if doc != nil {
		if tag := subtitle.DetectLanguage(doc); tag != language.Und {
			runLog.Debug("Detected source language %s", tag)
			return tag
		}
	}
	return p.opts.SourceLanguage
}

func (p *Pipeline) recordArtifact(ctx context.Context, key cachestore.Key, path string, track provider.Track, source language.Tag, size int) {
	if p.index == nil {
		return
	}
	err := p.index.RecordArtifact(ctx, persistence.Artifact{
		RelPath:        key.RelPath(),
		MediaID:        key.MediaID,
		MediaType:      string(key.MediaType),
		Season:         key.Season,
		Episode:        key.Episode,
		Path:           path,
		SourceLanguage: source.String(),
		TargetLanguage: p.opts.TargetLanguage.String(),
		TrackID:        track.ID,
		SizeBytes:      int64(size),
		CreatedAt:      time.Now(),
	})
	if err != nil {
		p.log.Warn("Failed to index artifact %s: %v", key.RelPath(), err)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

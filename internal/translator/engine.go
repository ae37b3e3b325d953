package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/MimeLyc/caption-pipeline/internal/subtitle"
	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

const (
	DefaultConcurrency = 10
	DefaultCacheSize   = 50000
	DefaultCallTimeout = 30 * time.Second
)

type Options struct {
	// Concurrency bounds the upstream calls in flight across all runs.
	Concurrency int
	CacheSize   int
	CallTimeout time.Duration
	// Memory is optional.
	Memory Memory
}

// Engine translates subtitle text line by line. It is created once per
// process; its cache and in-flight call table are shared by all runs.
type Engine struct {
	backend     LineTranslator
	memory      Memory
	cache       *lru.Cache[CacheKey, string]
	calls       singleflight.Group
	sem         *semaphore.Weighted
	concurrency int
	callTimeout time.Duration
}

func NewEngine(backend LineTranslator, opts Options) (*Engine, error) {
	if backend == nil {
		return nil, errors.New("translation backend is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	cache, err := lru.New[CacheKey, string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create translation cache: %w", err)
	}
	return &Engine{
		backend:     backend,
		memory:      opts.Memory,
		cache:       cache,
		sem:         semaphore.NewWeighted(int64(opts.Concurrency)),
		concurrency: opts.Concurrency,
		callTimeout: opts.CallTimeout,
	}, nil
}

// CacheLen reports the number of cached translations.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

// TranslateDocument translates every text line of src into target. Timing,
// index and blank lines are copied unchanged and the output keeps the input
// line order. A line whose translation fails keeps its original text. The
// error is non-nil only when ctx is done before all lines are resolved.
func (e *Engine) TranslateDocument(ctx context.Context, src string, source, target language.Tag) (string, Stats, error) {
	lines := subtitle.SplitLines(src)

	var stats Stats
	var distinct []string
	seen := make(map[string]struct{})
	for i, line := range lines {
		if !isTranslatable(i, line) {
			continue
		}
		stats.TextLines++
		text := strings.TrimSpace(line)
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		distinct = append(distinct, text)
	}
	stats.Distinct = len(distinct)

	if source != language.Und && subtitle.SameLanguage(source, target) {
		log.Debug("Source and target are both %s, skipping translation", langCode(target))
		return strings.Join(lines, "\n"), stats, nil
	}

	var mu sync.Mutex
	translated := make(map[string]string, len(distinct))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for _, text := range distinct {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, hit, err := e.translateLine(ctx, text, source, target)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				log.Debug("Translation failed, keeping original line %q: %v", text, err)
				translated[text] = text
			case hit:
				stats.CacheHits++
				translated[text] = out
			default:
				stats.Translated++
				translated[text] = out
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return "", stats, err
	}
	if stats.Failed > 0 {
		log.Warn("%d of %d distinct lines kept their original text after translation errors", stats.Failed, stats.Distinct)
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if !isTranslatable(i, line) {
			out[i] = line
			continue
		}
		out[i] = replaceTrimmed(line, translated[strings.TrimSpace(line)])
	}
	return strings.Join(out, "\n"), stats, nil
}

type callResult struct {
	text string
	hit  bool
}

// translateLine returns the translation of text and whether it came from a
// cache. Concurrent requests for the same key share one upstream call, which
// runs detached from ctx so that a cancelled caller cannot fail the others.
func (e *Engine) translateLine(ctx context.Context, text string, source, target language.Tag) (string, bool, error) {
	key := newCacheKey(source, target, text)
	if v, ok := e.cache.Get(key); ok {
		return v, true, nil
	}

	ch := e.calls.DoChan(key.String(), func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.callTimeout)
		defer cancel()
		return e.fetch(callCtx, key, text, source, target)
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		r := res.Val.(callResult)
		return r.text, r.hit, nil
	}
}

func (e *Engine) fetch(ctx context.Context, key CacheKey, text string, source, target language.Tag) (callResult, error) {
	if v, ok := e.cache.Get(key); ok {
		return callResult{text: v, hit: true}, nil
	}

	if e.memory != nil {
		v, ok, err := e.memory.LookupTranslation(ctx, key.Source, key.Target, key.Text)
		if err != nil {
			log.Debug("Translation memory lookup failed: %v", err)
		} else if ok {
			e.cache.Add(key, v)
			return callResult{text: v, hit: true}, nil
		}
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return callResult{}, err
	}
	out, err := e.backend.Translate(ctx, text, source, target)
	e.sem.Release(1)
	if err != nil {
		return callResult{}, err
	}

	out = normalizeTranslation(out)
	if out == "" {
		return callResult{}, errors.New("empty translation")
	}
	e.cache.Add(key, out)

	if e.memory != nil {
		if err := e.memory.SaveTranslation(ctx, key.Source, key.Target, key.Text, out); err != nil {
			log.Warn("Failed to save translation memory: %v", err)
		}
	}
	return callResult{text: out}, nil
}

// isTranslatable reports whether line i carries dialogue. A leading WEBVTT
// header is not dialogue.
func isTranslatable(i int, line string) bool {
	if i == 0 && strings.HasPrefix(line, "WEBVTT") {
		return false
	}
	return subtitle.Classify(line) == subtitle.LineText
}

// normalizeTranslation keeps a translation on a single line so it cannot
// break the cue structure.
func normalizeTranslation(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// replaceTrimmed swaps the trimmed content of line for repl, keeping the
// original leading and trailing whitespace.
func replaceTrimmed(line, repl string) string {
	start := len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
	end := len(strings.TrimRightFunc(line, unicode.IsSpace))
	if start >= end {
		return line
	}
	return line[:start] + repl + line[end:]
}

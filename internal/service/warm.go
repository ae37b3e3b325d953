package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/MimeLyc/caption-pipeline/internal/cachestore"
	"github.com/MimeLyc/caption-pipeline/internal/jobs"
)

// WarmSource tags jobs enqueued by warm-up requests.
const WarmSource = "warm"

// ExecuteJob adapts Acquire to the jobs.Executor signature.
func (p *Pipeline) ExecuteJob(ctx context.Context, job *jobs.Job) (string, error) {
	key := job.Payload.Key()
	res := p.Acquire(ctx, Request{
		MediaID:   key.MediaID,
		MediaType: string(key.MediaType),
		Season:    key.Season,
		Episode:   key.Episode,
	})
	if !res.Success {
		return "", errors.New(res.Error)
	}
	return res.Path, nil
}

// EnqueueWarm queues one acquisition per key. Keys already queued or running
// are reported as not created.
func EnqueueWarm(q *jobs.Queue, keys []cachestore.Key) (created int, err error) {
	for _, key := range keys {
		if err := key.Validate(); err != nil {
			return created, WrapError(err, ErrValidation, "invalid warm-up key").WithContext("key", key.String())
		}
	}
	for _, key := range keys {
		if _, ok := q.Enqueue(jobs.EnqueueRequest{
			Source:    WarmSource,
			DedupeKey: key.String(),
			Payload:   jobs.PayloadFromKey(key),
		}); ok {
			created++
		}
	}
	return created, nil
}

// ParseEpisodeRange expands "1-3,5" into [1 2 3 5]. The result is sorted and
// free of duplicates.
func ParseEpisodeRange(expr string) ([]int, error) {
	seen := make(map[int]struct{})
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid episode %q", part)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid episode range %q", part)
			}
		}
		if first < 1 || last < first {
			return nil, fmt.Errorf("invalid episode range %q", part)
		}
		for ep := first; ep <= last; ep++ {
			seen[ep] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, errors.New("no episodes given")
	}
	episodes := make([]int, 0, len(seen))
	for ep := range seen {
		episodes = append(episodes, ep)
	}
	sort.Ints(episodes)
	return episodes, nil
}

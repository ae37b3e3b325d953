package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/caption-pipeline/internal/cachestore"
)

func episodeRequest(season, episode int) EnqueueRequest {
	key := cachestore.EpisodeKey("1399", season, episode)
	return EnqueueRequest{Source: "warm", DedupeKey: key.String(), Payload: PayloadFromKey(key)}
}

func waitIdle(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.WaitIdle(ctx))
}

func TestQueue_Enqueue_SameCaptionIsQueuedOnce(t *testing.T) {
	q := NewQueue(2, nil)

	first, created := q.Enqueue(episodeRequest(1, 1))
	require.True(t, created)
	again, created := q.Enqueue(episodeRequest(1, 1))
	require.False(t, created)
	other, created := q.Enqueue(episodeRequest(1, 2))
	require.True(t, created)

	assert.Equal(t, first.ID, again.ID)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, map[Status]int{StatusPending: 2}, q.Counts())
	assert.Equal(t, "series:1399:s1e1", first.DedupeKey)
}

func TestQueue_ExecutorResultIsRecorded(t *testing.T) {
	q := NewQueue(2, nil)
	q.Start(func(_ context.Context, job *Job) (string, error) {
		key := job.Payload.Key()
		if *key.Episode == 2 {
			return "", errors.New("no subtitle tracks found")
		}
		return key.RelPath(), nil
	})
	defer q.Stop()

	ok, _ := q.Enqueue(episodeRequest(1, 1))
	failed, _ := q.Enqueue(episodeRequest(1, 2))
	waitIdle(t, q)

	assert.Equal(t, map[Status]int{StatusSuccess: 1, StatusFailed: 1}, q.Counts())

	got, found := q.Get(ok.ID)
	require.True(t, found)
	assert.Equal(t, "series/1399/season1/episode1/caption.vtt", got.Path)
	assert.Empty(t, got.Error)

	got, found = q.Get(failed.ID)
	require.True(t, found)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "no subtitle tracks found", got.Error)
	assert.Empty(t, got.Path)
}

func TestQueue_FinishedCaptionCanBeQueuedAgain(t *testing.T) {
	q := NewQueue(1, nil)

	var mu sync.Mutex
	attempts := 0
	q.Start(func(_ context.Context, job *Job) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return "", assert.AnError
		}
		return job.Payload.Key().RelPath(), nil
	})
	defer q.Stop()

	first, created := q.Enqueue(episodeRequest(2, 5))
	require.True(t, created)
	waitIdle(t, q)

	second, created := q.Enqueue(episodeRequest(2, 5))
	require.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	waitIdle(t, q)

	third, created := q.Enqueue(episodeRequest(2, 5))
	require.True(t, created)
	assert.NotEqual(t, second.ID, third.ID)
	waitIdle(t, q)

	assert.Equal(t, map[Status]int{StatusFailed: 1, StatusSuccess: 2}, q.Counts())
}

func TestQueue_WaitIdleHonoursContext(t *testing.T) {
	q := NewQueue(1, nil)
	release := make(chan struct{})
	q.Start(func(ctx context.Context, _ *Job) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "", nil
	})
	defer q.Stop()
	defer close(release)

	q.Enqueue(episodeRequest(1, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, q.WaitIdle(ctx), context.DeadlineExceeded)
}

package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: make(map[string]*Job)}
}

func (m *memoryStore) LoadJobs(_ context.Context) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		ret = append(ret, cloneJob(j))
	}
	return ret, nil
}

func (m *memoryStore) UpsertJob(_ context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *memoryStore) DeleteJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
	return nil
}

func TestQueue_RecoversPendingAndRunningJobsFromStore(t *testing.T) {
	store := newMemoryStore()
	now := time.Now()
	store.jobs["job-1"] = &Job{
		ID:        "job-1",
		Source:    "cron",
		DedupeKey: "movie:603",
		Status:    StatusPending,
		Payload:   Payload{MediaID: "603", MediaType: "movie"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	store.jobs["job-2"] = &Job{
		ID:        "job-2",
		Source:    "cron",
		DedupeKey: "movie:604",
		Status:    StatusRunning,
		Payload:   Payload{MediaID: "604", MediaType: "movie"},
		CreatedAt: now,
		UpdatedAt: now,
	}

	q := NewQueue(1, store)

	jobs := q.List()
	require.Len(t, jobs, 2)
	byID := map[string]*Job{}
	for _, j := range jobs {
		byID[j.ID] = j
	}
	require.Contains(t, byID, "job-2")
	assert.Equal(t, StatusPending, byID["job-2"].Status)

	q.Start(func(_ context.Context, _ *Job) (string, error) { return "/cache/ok.vtt", nil })
	defer q.Stop()

	require.Eventually(t, func() bool {
		got, ok := q.Get("job-1")
		return ok && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		got, ok := q.Get("job-2")
		return ok && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)
}

func TestQueue_StopLeavesInterruptedJobPending(t *testing.T) {
	store := newMemoryStore()
	q := NewQueue(1, store)

	started := make(chan struct{})
	q.Start(func(ctx context.Context, _ *Job) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	job, created := q.Enqueue(EnqueueRequest{Source: "warm", DedupeKey: "movie:603"})
	require.True(t, created)
	<-started
	q.Stop()

	store.mu.Lock()
	persisted := store.jobs[job.ID]
	store.mu.Unlock()
	require.NotNil(t, persisted)
	assert.Equal(t, StatusPending, persisted.Status)

	resumed := NewQueue(1, store)
	_, created = resumed.Enqueue(EnqueueRequest{Source: "warm", DedupeKey: "movie:603"})
	assert.False(t, created, "recovered pending job keeps its dedupe key")
}

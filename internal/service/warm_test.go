package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/caption-pipeline/internal/cachestore"
	"github.com/MimeLyc/caption-pipeline/internal/jobs"
	"github.com/MimeLyc/caption-pipeline/internal/provider"
)

func TestParseEpisodeRange(t *testing.T) {
	tests := []struct {
		expr    string
		want    []int
		wantErr bool
	}{
		{expr: "1", want: []int{1}},
		{expr: "1-3", want: []int{1, 2, 3}},
		{expr: "5, 1-2 ,2", want: []int{1, 2, 5}},
		{expr: "3-1", wantErr: true},
		{expr: "0-2", wantErr: true},
		{expr: "a-b", wantErr: true},
		{expr: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseEpisodeRange(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnqueueWarm_DeduplicatesKeys(t *testing.T) {
	q := jobs.NewQueue(1, nil)
	keys := []cachestore.Key{
		cachestore.EpisodeKey("1399", 1, 1),
		cachestore.EpisodeKey("1399", 1, 2),
	}

	created, err := EnqueueWarm(q, keys)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = EnqueueWarm(q, keys[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, q.List(), 2)
}

func TestEnqueueWarm_RejectsInvalidKeys(t *testing.T) {
	q := jobs.NewQueue(1, nil)

	_, err := EnqueueWarm(q, []cachestore.Key{
		cachestore.EpisodeKey("1399", 1, 1),
		cachestore.EpisodeKey("1399", 1, 0),
	})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrValidation))
	assert.Empty(t, q.List())
}

func TestPipeline_ExecuteJob_RunsWarmQueue(t *testing.T) {
	f := newPipelineFixture(t)
	track := provider.Track{ID: "t1", Language: "en", SourceURL: "/files/t1.srt"}

	f.resolver.On("Resolve", mock.Anything, "1399", cachestore.Series).Return("", false)
	f.provider.On("Search", mock.Anything, mock.MatchedBy(func(c provider.Criteria) bool {
		return c.Episode != nil && *c.Episode == 1
	})).Return([]provider.Track{track}, nil)
	f.provider.On("Search", mock.Anything, mock.MatchedBy(func(c provider.Criteria) bool {
		return c.Episode != nil && *c.Episode == 2
	})).Return(nil, provider.ErrNoTracks)
	f.provider.On("Download", mock.Anything, track).Return(sampleSRT, nil)
	f.identityTranslation()
	f.index.On("RecordArtifact", mock.Anything, mock.Anything).Return(nil)

	q := jobs.NewQueue(2, nil)
	created, err := EnqueueWarm(q, []cachestore.Key{
		cachestore.EpisodeKey("1399", 1, 1),
		cachestore.EpisodeKey("1399", 1, 2),
	})
	require.NoError(t, err)
	require.Equal(t, 2, created)

	q.Start(f.pipeline.ExecuteJob)
	defer q.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.WaitIdle(ctx))

	byEpisode := make(map[int]*jobs.Job)
	for _, job := range q.List() {
		byEpisode[*job.Payload.Episode] = job
	}
	require.Len(t, byEpisode, 2)
	assert.Equal(t, jobs.StatusSuccess, byEpisode[1].Status)
	assert.Equal(t, "series/1399/season1/episode1/caption.vtt", byEpisode[1].Path)
	assert.Equal(t, jobs.StatusFailed, byEpisode[2].Status)
	assert.Contains(t, byEpisode[2].Error, provider.ErrNoTracks.Error())
}

package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/caption-pipeline/internal/provider"
)

func TestPipelineError_Error(t *testing.T) {
	err := WrapError(errors.New("disk full"), ErrPersistence, "write caption").
		WithContext("path", "/cache/a.vtt").
		WithContext("key", "movie:603")

	assert.Equal(t, "[Persistence] write caption | context: key=movie:603, path=/cache/a.vtt | cause: disk full", err.Error())
	assert.Equal(t, "write caption: disk full", err.UserMessage())
	assert.Equal(t, "invalid request", NewError(ErrValidation, "invalid request").UserMessage())
}

func TestPipelineError_UnwrapAndType(t *testing.T) {
	err := fmt.Errorf("outer: %w", WrapError(provider.ErrNoTracks, ErrNoTracks, "subtitle acquisition failed"))

	assert.True(t, IsErrorType(err, ErrNoTracks))
	assert.False(t, IsErrorType(err, ErrProvider))
	assert.ErrorIs(t, err, provider.ErrNoTracks)
	assert.False(t, IsErrorType(errors.New("plain"), ErrUnknown))
}

func TestClassifyFetchError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{err: fmt.Errorf("search: %w", provider.ErrProvider), want: ErrProvider},
		{err: provider.ErrNoTracks, want: ErrNoTracks},
		{err: fmt.Errorf("%w: status 404", provider.ErrDownload), want: ErrDownload},
		{err: errors.New("other"), want: ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, classifyFetchError(tt.err))
		})
	}
}

func TestSafeExecute(t *testing.T) {
	require.NoError(t, SafeExecute(func() error { return nil }))
	assert.Equal(t, assert.AnError, SafeExecute(func() error { return assert.AnError }))

	err := SafeExecute(func() error { panic("boom") })
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrUnknown))
	assert.Contains(t, err.Error(), "boom")
}

func TestHandleError(t *testing.T) {
	assert.True(t, HandleError(NewError(ErrDownload, "download failed")))
	assert.False(t, HandleError(errors.New("plain")))
	assert.NotEmpty(t, GetAdvice(NewError(ErrValidation, "x")))
}

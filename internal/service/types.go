package service

import (
	"context"

	"golang.org/x/text/language"

	"github.com/MimeLyc/caption-pipeline/internal/cachestore"
	"github.com/MimeLyc/caption-pipeline/internal/persistence"
	"github.com/MimeLyc/caption-pipeline/internal/provider"
	"github.com/MimeLyc/caption-pipeline/internal/translator"
)

// Request asks for the caption of a movie or of one series episode.
type Request struct {
	MediaID   string `json:"mediaId"`
	MediaType string `json:"mediaType"`
	Season    *int   `json:"season,omitempty"`
	Episode   *int   `json:"episode,omitempty"`
}

func (r Request) Key() cachestore.Key {
	mediaType, err := cachestore.ParseMediaType(r.MediaType)
	if err != nil {
		mediaType = cachestore.MediaType(r.MediaType)
	}
	return cachestore.Key{
		MediaID:   r.MediaID,
		MediaType: mediaType,
		Season:    r.Season,
		Episode:   r.Episode,
	}
}

// Result is the outcome of Acquire. Path is the artifact path relative to
// the cache root, which is also its public static path.
type Result struct {
	Success   bool   `json:"success"`
	Path      string `json:"path,omitempty"`
	FromCache bool   `json:"fromCache"`
	Error     string `json:"error,omitempty"`
}

type Resolver interface {
	Resolve(ctx context.Context, mediaID string, mediaType cachestore.MediaType) (string, bool)
}

type SubtitleProvider interface {
	Search(ctx context.Context, criteria provider.Criteria) ([]provider.Track, error)
	Download(ctx context.Context, track provider.Track) (string, error)
}

type DocumentTranslator interface {
	TranslateDocument(ctx context.Context, src string, source, target language.Tag) (string, translator.Stats, error)
}

type ArtifactIndex interface {
	RecordArtifact(ctx context.Context, a persistence.Artifact) error
}

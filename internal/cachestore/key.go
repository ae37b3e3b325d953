package cachestore

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

type MediaType string

const (
	Movie  MediaType = "movie"
	Series MediaType = "series"
)

// ParseMediaType accepts "movie" or "series" (and "tv" as an alias for series).
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return Movie, nil
	case "series", "tv":
		return Series, nil
	}
	return "", fmt.Errorf("unknown media type %q", s)
}

// Key identifies one cached caption artifact.
type Key struct {
	MediaID   string
	MediaType MediaType
	Season    *int
	Episode   *int
}

func MovieKey(id string) Key {
	return Key{MediaID: id, MediaType: Movie}
}

func EpisodeKey(id string, season, episode int) Key {
	return Key{MediaID: id, MediaType: Series, Season: &season, Episode: &episode}
}

var ErrInvalidKey = errors.New("invalid cache key")

// Validate checks the key shape: season and episode are set for series only,
// and the media id is usable as a single path segment.
func (k Key) Validate() error {
	id := k.MediaID
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: media id is required", ErrInvalidKey)
	case id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0):
		return fmt.Errorf("%w: media id %q is not a valid path segment", ErrInvalidKey, id)
	}

	switch k.MediaType {
	case Movie:
		if k.Season != nil || k.Episode != nil {
			return fmt.Errorf("%w: season/episode given for a movie", ErrInvalidKey)
		}
	case Series:
		if k.Season == nil || k.Episode == nil {
			return fmt.Errorf("%w: series requires season and episode", ErrInvalidKey)
		}
		if *k.Season < 0 {
			return fmt.Errorf("%w: season must be >= 0, got %d", ErrInvalidKey, *k.Season)
		}
		if *k.Episode < 1 {
			return fmt.Errorf("%w: episode must be >= 1, got %d", ErrInvalidKey, *k.Episode)
		}
	default:
		return fmt.Errorf("%w: unknown media type %q", ErrInvalidKey, k.MediaType)
	}
	return nil
}

// RelPath returns the slash-separated path of the artifact relative to the
// cache root, e.g. "series/1399/season1/episode2/caption.vtt".
func (k Key) RelPath() string {
	if k.MediaType == Series && k.Season != nil && k.Episode != nil {
		return path.Join("series", k.MediaID,
			fmt.Sprintf("season%d", *k.Season),
			fmt.Sprintf("episode%d", *k.Episode),
			ArtifactName)
	}
	return path.Join("movies", k.MediaID, ArtifactName)
}

func (k Key) String() string {
	if k.MediaType == Series && k.Season != nil && k.Episode != nil {
		return fmt.Sprintf("series:%s:s%de%d", k.MediaID, *k.Season, *k.Episode)
	}
	return fmt.Sprintf("%s:%s", k.MediaType, k.MediaID)
}

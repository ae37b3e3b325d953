package provider

import "errors"

var (
	// ErrProvider covers transport failures, non-2xx responses and malformed
	// search payloads.
	ErrProvider = errors.New("subtitle provider error")
	// ErrNoTracks means the search succeeded but returned nothing usable.
	ErrNoTracks = errors.New("no subtitle tracks found")
	ErrDownload = errors.New("subtitle download failed")
)

type IDKind string

const (
	IDKindIMDb IDKind = "imdb"
	IDKindTMDB IDKind = "tmdb"
)

// Criteria is the search query. Season and Episode are set for series only.
type Criteria struct {
	ID       string `url:"id"`
	IDKind   IDKind `url:"id_kind"`
	Season   *int   `url:"season,omitempty"`
	Episode  *int   `url:"episode,omitempty"`
	Format   string `url:"format,omitempty"`
	Language string `url:"language,omitempty"`
}

// Track is one downloadable subtitle returned by a search.
type Track struct {
	ID        string
	Language  string
	SourceURL string
	Format    string
	Display   string
}

type trackPayload struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Language string `json:"language"`
	Format   string `json:"format"`
	Display  string `json:"display"`
}

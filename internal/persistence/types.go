package persistence

import "time"

// Artifact is one entry of the artifact index.
type Artifact struct {
	RelPath        string
	MediaID        string
	MediaType      string
	Season         *int
	Episode        *int
	Path           string
	SourceLanguage string
	TargetLanguage string
	TrackID        string
	SizeBytes      int64
	CreatedAt      time.Time
}

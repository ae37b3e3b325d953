package jobs

import (
	"time"

	"github.com/MimeLyc/caption-pipeline/internal/cachestore"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   Payload
}

// Payload names the caption to warm.
type Payload struct {
	MediaID   string `json:"media_id"`
	MediaType string `json:"media_type"`
	Season    *int   `json:"season,omitempty"`
	Episode   *int   `json:"episode,omitempty"`
}

func PayloadFromKey(key cachestore.Key) Payload {
	return Payload{
		MediaID:   key.MediaID,
		MediaType: string(key.MediaType),
		Season:    key.Season,
		Episode:   key.Episode,
	}
}

func (p Payload) Key() cachestore.Key {
	return cachestore.Key{
		MediaID:   p.MediaID,
		MediaType: cachestore.MediaType(p.MediaType),
		Season:    p.Season,
		Episode:   p.Episode,
	}
}

// Job is one queued acquisition.
type Job struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	DedupeKey string    `json:"dedupe_key"`
	Payload   Payload   `json:"payload"`
	Status    Status    `json:"status"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Package resolver maps a catalog (TMDB) id to the IMDb id that subtitle
// providers index by. Failures are soft: callers fall back to the catalog id.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MimeLyc/caption-pipeline/internal/cachestore"
	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

const defaultTimeout = 10 * time.Second

// Resolver looks up external ids on TMDB.
type Resolver struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Resolver)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.httpClient = client
		}
	}
}

func New(apiKey, baseURL string, opts ...Option) *Resolver {
	r := &Resolver{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type externalIDs struct {
	IMDbID string `json:"imdb_id"`
}

// Resolve returns the IMDb id for mediaID. The bool is false on any failure,
// which is logged at WARN and never returned as an error.
func (r *Resolver) Resolve(ctx context.Context, mediaID string, mediaType cachestore.MediaType) (string, bool) {
	id, err := r.lookup(ctx, mediaID, mediaType)
	if err != nil {
		log.Warn("External id lookup failed for %s %s: %v", mediaType, mediaID, err)
		return "", false
	}
	return id, true
}

func (r *Resolver) lookup(ctx context.Context, mediaID string, mediaType cachestore.MediaType) (string, error) {
	if r.apiKey == "" {
		return "", fmt.Errorf("tmdb api key not configured")
	}
	if r.baseURL == "" {
		return "", fmt.Errorf("tmdb base url not configured")
	}

	kind := "movie"
	if mediaType == cachestore.Series {
		kind = "tv"
	}
	endpoint := fmt.Sprintf("%s/%s/%s/external_ids?%s",
		r.baseURL, kind, url.PathEscape(mediaID), url.Values{"api_key": {r.apiKey}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload externalIDs
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	id := strings.TrimSpace(payload.IMDbID)
	if id == "" {
		return "", fmt.Errorf("no imdb id in response")
	}
	return id, nil
}

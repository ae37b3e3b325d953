package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/go-querystring/query"
	"golang.org/x/text/encoding/charmap"

	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

const (
	defaultUserAgent   = "ctxcaption/1.0"
	defaultHTTPTimeout = 45 * time.Second
)

// maxSubtitleBytes caps a downloaded track; larger bodies are rejected.
var maxSubtitleBytes int64 = 10 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Config struct {
	BaseURL    string
	APIKey     string
	UserAgent  string
	HTTPClient *http.Client
}

// Client talks to the subtitle search service.
type Client struct {
	baseURL   *url.URL
	apiKey    string
	userAgent string
	http      *http.Client
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("provider: base url is required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("provider: parse base url: %w", err)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    strings.TrimSpace(cfg.APIKey),
		userAgent: userAgent,
		http:      client,
	}, nil
}

// Search returns the tracks matching criteria in provider order.
func (c *Client) Search(ctx context.Context, criteria Criteria) ([]Track, error) {
	params, err := query.Values(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: encode criteria: %v", ErrProvider, err)
	}
	endpoint := c.baseURL.JoinPath("search")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build search request: %v", ErrProvider, err)
	}
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search request failed: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: search failed (%s): %s", ErrProvider, resp.Status, strings.TrimSpace(string(body)))
	}

	var payload []trackPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", ErrProvider, err)
	}

	tracks := make([]Track, 0, len(payload))
	for _, p := range payload {
		if strings.TrimSpace(p.URL) == "" {
			continue
		}
		tracks = append(tracks, Track{
			ID:        p.ID,
			Language:  strings.TrimSpace(p.Language),
			SourceURL: strings.TrimSpace(p.URL),
			Format:    p.Format,
			Display:   p.Display,
		})
	}
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}
	log.Debug("Provider returned %d tracks for %s:%s", len(tracks), criteria.IDKind, criteria.ID)
	return tracks, nil
}

// Download fetches the track body as text. A leading BOM is removed and bodies
// that are not valid UTF-8 are decoded as Windows-1252.
func (c *Client) Download(ctx context.Context, track Track) (string, error) {
	target, err := c.baseURL.Parse(track.SourceURL)
	if err != nil {
		return "", fmt.Errorf("%w: parse track url: %v", ErrDownload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: build download request: %v", ErrDownload, err)
	}
	// The API key only goes to the search service itself, never to the host
	// a track URL points at.
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/plain, */*")
	if c.apiKey != "" && strings.EqualFold(target.Host, c.baseURL.Host) {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: %s: %s", ErrDownload, resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSubtitleBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrDownload, err)
	}
	if int64(len(data)) > maxSubtitleBytes {
		return "", fmt.Errorf("%w: subtitle exceeds %d bytes", ErrDownload, maxSubtitleBytes)
	}
	return decodeText(data)
}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: decode body: %v", ErrDownload, err)
	}
	return string(decoded), nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}
}

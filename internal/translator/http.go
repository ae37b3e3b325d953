package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// HTTPTranslator calls a LibreTranslate-compatible service.
type HTTPTranslator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type HTTPOption func(*HTTPTranslator)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTranslator) {
		if client != nil {
			t.httpClient = client
		}
	}
}

func NewHTTPTranslator(baseURL, apiKey string, opts ...HTTPOption) (*HTTPTranslator, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("translation api url is required")
	}
	t := &HTTPTranslator{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

func (t *HTTPTranslator) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: langCode(source),
		Target: langCode(target),
		Format: "text",
		APIKey: t.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("translate failed (%s): %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var payload translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if payload.Error != "" {
		return "", fmt.Errorf("translate failed: %s", payload.Error)
	}
	return payload.TranslatedText, nil
}

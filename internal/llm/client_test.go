package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) *Config {
	return &Config{
		APIKey:      "test-key",
		APIURL:      url,
		Model:       "test-model",
		Temperature: 0.2,
		Timeout:     5,
		AppName:     "ctxcaption",
	}
}

const okResponse = `{
	"id": "test-id",
	"model": "test-model",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "  你好  "}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
}`

func TestNewClient(t *testing.T) {
	client, err := NewClient(testConfig("https://api.example.com"))
	require.NoError(t, err)
	assert.NotNil(t, client.httpClient)

	_, err = NewClient(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestSimpleChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "ctxcaption", r.Header.Get("X-Title"))

		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "Hello", req.Messages[1].Content)
		}

		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL + "/"))
	require.NoError(t, err)

	out, err := client.SimpleChat(context.Background(), "Hello", "Translate to Chinese.")
	require.NoError(t, err)
	assert.Equal(t, "你好", out)
}

func TestClientErrorHandling(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api error object", http.StatusBadRequest, `{"error":{"message":"bad model","type":"invalid_request_error"}}`, "bad model"},
		{"plain text failure", http.StatusBadGateway, "upstream down", "status 502"},
		{"invalid json", http.StatusOK, "not json", "failed to parse response"},
		{"no choices", http.StatusOK, `{"id":"x","choices":[]}`, "no choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(testConfig(server.URL))
			require.NoError(t, err)

			_, err = client.SimpleChat(context.Background(), "Hello", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClientConcurrentRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := client.SimpleChat(context.Background(), "Hello", "")
			assert.NoError(t, err)
			assert.Equal(t, "你好", out)
		}()
	}
	wg.Wait()
}

package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestHTTPTranslator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/translate", r.URL.Path)

		var req translateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "en", req.Source)
		assert.Equal(t, "zh", req.Target)
		assert.Equal(t, "text", req.Format)
		assert.Equal(t, "key", req.APIKey)

		if req.Q == "fail" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"slow down"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: "你好"})
	}))
	defer server.Close()

	tr, err := NewHTTPTranslator(server.URL+"/", "key", WithHTTPClient(server.Client()))
	require.NoError(t, err)

	out, err := tr.Translate(context.Background(), "Hello", language.English, language.SimplifiedChinese)
	require.NoError(t, err)
	assert.Equal(t, "你好", out)

	_, err = tr.Translate(context.Background(), "fail", language.English, language.Chinese)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = NewHTTPTranslator("", "")
	assert.Error(t, err)
}

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawrag/internal/domain"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])
		assert.Equal(t, "test-model", req["model"])
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "【重點摘要】..."})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "test-model", Temperature: 0.7})
	out, err := c.Generate(context.Background(), "什麼是詐欺罪？")
	require.NoError(t, err)
	assert.Contains(t, out, "重點摘要")
}

func TestGenerateServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "test-model"})
	_, err := c.Generate(context.Background(), "問題")
	require.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestGenerateConnectionRefusedIsUnavailable(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "test-model"})
	_, err := c.Generate(context.Background(), "問題")
	require.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "test-model", Timeout: 20 * time.Millisecond})
	_, err := c.Generate(context.Background(), "問題")
	require.ErrorIs(t, err, domain.ErrGenerationTimeout)
}

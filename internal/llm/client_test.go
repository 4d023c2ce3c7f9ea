package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func replyWith(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{
			ID:      "chatcmpl-1",
			Choices: []Choice{{Message: ChoiceMessage{Role: "assistant", Content: content}, FinishReason: "stop"}},
		})
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantModel string
		wantURL   string
	}{
		{
			name:      "defaults",
			cfg:       Config{APIKey: "sk-test"},
			wantModel: defaultModel,
			wantURL:   "https://api.openai.com/v1/chat/completions",
		},
		{
			name:      "custom model and base url",
			cfg:       Config{APIKey: "sk-test", Model: "gpt-4.1-mini", BaseURL: "http://localhost:1234/v1/"},
			wantModel: "gpt-4.1-mini",
			wantURL:   "http://localhost:1234/v1/chat/completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg, nil)
			assert.Equal(t, tt.wantModel, client.model)
			assert.Equal(t, tt.wantURL, client.endpoint)
			assert.Equal(t, defaultMaxTokens, client.maxTokens)
		})
	}
}

func TestBuildRequest(t *testing.T) {
	client := NewClient(Config{APIKey: "k", MaxTokens: 512}, nil)
	req := client.buildRequest([]byte{0x89, 'P', 'N', 'G'}, "image/png", "prompt")

	assert.Equal(t, defaultModel, req.Model)
	assert.Equal(t, 512, req.MaxTokens)
	assert.False(t, req.Stream)
	require.Len(t, req.Messages, 1)
	require.Len(t, req.Messages[0].Content, 2)
	assert.Equal(t, "prompt", req.Messages[0].Content[0].Text)
	assert.True(t, strings.HasPrefix(req.Messages[0].Content[1].ImageURL.URL, "data:image/png;base64,"))
}

func TestAnalyze_Success(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		replyWith("```json\n{\"text\": \"Hello world\", \"categories\": [\"Email\", \"Work\", \"Extra\"]}\n```")(w, r)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Retry: fastRetry()}, nil)
	outcome, err := client.Analyze(context.Background(), []byte("jpeg-bytes"), "image/jpeg", "", 2)
	require.NoError(t, err)

	assert.Equal(t, "Hello world", outcome.Text)
	assert.Equal(t, []string{"Email", "Work"}, outcome.Categories)
	assert.Equal(t, domain.ContentText, outcome.ContentType)
	assert.True(t, strings.HasPrefix(got.Messages[0].Content[1].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestAnalyzeFile_GraphicSetsSourceImage(t *testing.T) {
	srv := httptest.NewServer(replyWith(`{"content_type": "graphic", "description": "A chart", "categories": ["Chart"]}`))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "plot.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, nil)
	outcome, err := client.AnalyzeFile(context.Background(), path, domain.DefaultProcessingOptions(), 2)
	require.NoError(t, err)

	assert.Equal(t, domain.ContentGraphic, outcome.ContentType)
	assert.Equal(t, path, outcome.SourceImage)
	assert.Equal(t, "plot.png", outcome.SourceFile)
	assert.Equal(t, "A chart", outcome.Description)
}

func TestAnalyzeFile_TextHasNoSourceImage(t *testing.T) {
	srv := httptest.NewServer(replyWith("not json"))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "note.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, nil)
	outcome, err := client.AnalyzeFile(context.Background(), path, domain.ProcessingOptions{ContentType: domain.ContentText}, 2)
	require.NoError(t, err)

	assert.Equal(t, "not json", outcome.Text)
	assert.Equal(t, []string{"Uncategorized"}, outcome.Categories)
	assert.Empty(t, outcome.SourceImage)
}

func TestAnalyze_RetriesTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		replyWith(`{"text": "ok", "categories": ["Receipt"]}`)(w, r)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, nil)
	outcome, err := client.Analyze(context.Background(), []byte("x"), "image/png", "", 2)
	require.NoError(t, err)
	assert.Equal(t, "ok", outcome.Text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAnalyze_Errors(t *testing.T) {
	t.Run("non retryable status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, nil)
		_, err := client.Analyze(context.Background(), []byte("x"), "image/png", "", 2)
		require.Error(t, err)
		assert.True(t, domain.IsType(err, domain.ErrorTypeAPI))
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("retries exhausted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, nil)
		_, err := client.Analyze(context.Background(), []byte("x"), "image/png", "", 2)
		require.Error(t, err)
		assert.True(t, domain.IsType(err, domain.ErrorTypeAPI))
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
		}))
		defer srv.Close()

		client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, nil)
		_, err := client.Analyze(context.Background(), []byte("x"), "image/png", "", 2)
		assert.Error(t, err)
	})

	t.Run("empty image", func(t *testing.T) {
		client := NewClient(Config{APIKey: "k"}, nil)
		_, err := client.Analyze(context.Background(), nil, "image/png", "", 2)
		assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
	})

	t.Run("missing file", func(t *testing.T) {
		client := NewClient(Config{APIKey: "k"}, nil)
		_, err := client.AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "gone.png"), domain.DefaultProcessingOptions(), 2)
		assert.True(t, domain.IsType(err, domain.ErrorTypeFilesystem))
	})
}

func TestRetryPolicy(t *testing.T) {
	for code, want := range map[int]bool{408: true, 429: true, 500: true, 502: true, 503: true, 504: true, 400: false, 401: false, 404: false, 501: false} {
		assert.Equal(t, want, retryable(code), "status %d", code)
	}

	cfg := DefaultRetryConfig()
	assert.Equal(t, time.Second, cfg.wait(0, nil))
	assert.Equal(t, 4*time.Second, cfg.wait(2, nil))
	assert.Equal(t, 30*time.Second, cfg.wait(10, nil))
	assert.Equal(t, 30*time.Second, cfg.wait(80, nil), "shift overflow is capped")

	limited := &http.Response{Header: http.Header{"Retry-After": []string{"7"}}}
	assert.Equal(t, 7*time.Second, cfg.wait(0, limited))
	limited.Header.Set("Retry-After", "600")
	assert.Equal(t, 30*time.Second, cfg.wait(0, limited))
	limited.Header.Set("Retry-After", "soon")
	assert.Equal(t, 2*time.Second, cfg.wait(1, limited))
}

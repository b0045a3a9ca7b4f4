package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/glossa/pkg/apperr"
	cachepkg "github.com/pario-ai/glossa/pkg/cache/sqlite"
	"github.com/pario-ai/glossa/pkg/gate"
	"github.com/pario-ai/glossa/pkg/models"
	"github.com/pario-ai/glossa/pkg/translator"
)

type echoCompleter struct {
	calls atomic.Int32
}

func (e *echoCompleter) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	e.calls.Add(1)
	return strings.ToUpper(userText), nil
}

func setupServer(t *testing.T, bearer string) (*Server, *echoCompleter) {
	t.Helper()
	c, err := cachepkg.New(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	comp := &echoCompleter{}
	g := gate.New(gate.Config{MaxConcurrent: 2, Timeout: 5 * time.Second})
	tr := translator.New(comp, g, translator.Config{Model: "test-model", Version: "1.0.0"})
	svc := translator.NewService(tr, c, translator.ServiceConfig{SourceLanguage: "en", TargetLanguage: "zh-CN"})

	return New(Config{Listen: ":0", Bearer: bearer, Version: "1.0.0", OpenAIConfigured: true}, svc), comp
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRootAndHealth(t *testing.T) {
	srv, _ := setupServer(t, "secret")

	w := do(t, srv, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	root := decode[models.RootResponse](t, w)
	assert.Equal(t, "/api/translate", root.Endpoints["translate"])

	w = do(t, srv, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[models.HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.CacheConnected)
	assert.True(t, health.OpenAIConfigured)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestTranslateEndpoint(t *testing.T) {
	srv, comp := setupServer(t, "")
	body := `{"content":"` + translator.EncodeContent("hello\n") + `","path":"a/SKILL.md","content_hash":"sha256:a"}`

	w := do(t, srv, http.MethodPost, "/api/translate", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.TranslateResponse](t, w)
	assert.False(t, resp.Cached)
	out, err := translator.DecodeContent(resp.TranslatedContent)
	require.NoError(t, err)
	assert.Equal(t, "HELLO\n", out)

	w = do(t, srv, http.MethodPost, "/api/translate", body, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.TranslateResponse](t, w).Cached)
	assert.Equal(t, int32(1), comp.calls.Load())

	w = do(t, srv, http.MethodPost, "/api/cache/flush", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/api/cache/stats", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[models.CacheStats](t, w)
	assert.Equal(t, int64(1), stats.TotalEntries)
	assert.Equal(t, int64(1), stats.TotalHits)
}

func TestBatchEndpoint(t *testing.T) {
	srv, _ := setupServer(t, "")
	body := `{"files":[
		{"path":"a.md","content":"` + translator.EncodeContent("a") + `","content_hash":"sha256:a"},
		{"path":"b.md","content":"***","content_hash":"sha256:b"}
	]}`

	w := do(t, srv, http.MethodPost, "/api/translate/batch", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.BatchTranslateResponse](t, w)
	assert.Equal(t, 2, resp.TotalFiles)
	assert.Equal(t, 1, resp.Successful)
	assert.Equal(t, 1, resp.Failed)
}

func TestValidationErrors(t *testing.T) {
	srv, _ := setupServer(t, "")

	w := do(t, srv, http.MethodPost, "/api/translate", `{"content":"!!!","path":"a.md"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.NotEmpty(t, body.Detail)

	w = do(t, srv, http.MethodPost, "/api/translate", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuth(t *testing.T) {
	srv, _ := setupServer(t, "secret")

	tests := []struct {
		name   string
		header string
		want   int
		detail string
	}{
		{"missing", "", http.StatusUnauthorized, "Missing Authorization header"},
		{"bad format", "Token secret", http.StatusUnauthorized, "Invalid Authorization header format"},
		{"wrong token", "Bearer nope", http.StatusUnauthorized, "Invalid API key"},
		{"ok", "Bearer secret", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, decode[errorBody](t, w).Detail)
			}
		})
	}
}

func TestClearEndpoints(t *testing.T) {
	srv, _ := setupServer(t, "k")
	body := `{"content":"` + translator.EncodeContent("x") + `","path":"x.md"}`
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/translate", body, "k").Code)

	w := do(t, srv, http.MethodDelete, "/api/cache/expired", "", "k")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), decode[messageResponse](t, w).Count)

	w = do(t, srv, http.MethodDelete, "/api/cache", "", "k")
	require.Equal(t, http.StatusOK, w.Code)
	msg := decode[messageResponse](t, w)
	assert.Equal(t, int64(1), msg.Count)
	assert.Equal(t, "Cleared all 1 entries", msg.Message)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := setupServer(t, "secret")
	w := do(t, srv, http.MethodOptions, "/api/translate", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := setupServer(t, "")
	w := do(t, srv, http.MethodGet, "/api/translate", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type failingService struct{ Service }

func (failingService) Stats(ctx context.Context) (models.CacheStats, error) {
	return models.CacheStats{}, apperr.Storage("stats", errors.New("disk I/O error"))
}

func (failingService) Ping(ctx context.Context) error { return errors.New("closed") }

func TestStorageErrorMapping(t *testing.T) {
	srv := New(Config{Version: "1.0.0"}, failingService{})

	w := do(t, srv, http.MethodGet, "/api/cache/stats", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "STORAGE_ERROR", decode[errorBody](t, w).Code)

	w = do(t, srv, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.HealthResponse](t, w).CacheConnected)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	srv, _ := setupServer(t, "")
	srv.cfg.Listen = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

type slowCompleter struct {
	started chan struct{}
	delay   time.Duration
}

func (c *slowCompleter) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	select {
	case c.started <- struct{}{}:
	default:
	}
	time.Sleep(c.delay)
	return strings.ToUpper(userText), nil
}

func TestServeDrainsInFlightBeforeReturning(t *testing.T) {
	c, err := cachepkg.New(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	require.NoError(t, err)

	comp := &slowCompleter{started: make(chan struct{}, 1), delay: 400 * time.Millisecond}
	g := gate.New(gate.Config{MaxConcurrent: 2, Timeout: 5 * time.Second})
	tr := translator.New(comp, g, translator.Config{Model: "test-model", Version: "1.0.0"})
	svc := translator.NewService(tr, c, translator.ServiceConfig{SourceLanguage: "en", TargetLanguage: "zh-CN"})
	srv := New(Config{Version: "1.0.0", ShutdownTimeout: 50 * time.Millisecond}, svc)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	type result struct {
		status int
		err    error
	}
	respCh := make(chan result, 1)
	go func() {
		body := `{"content":"` + translator.EncodeContent("slow\n") + `","path":"slow.md"}`
		resp, err := http.Post("http://"+ln.Addr().String()+"/api/translate", "application/json", strings.NewReader(body))
		if err != nil {
			respCh <- result{err: err}
			return
		}
		resp.Body.Close()
		respCh <- result{status: resp.StatusCode}
	}()

	select {
	case <-comp.started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the provider")
	}
	cancel()

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalEntries)
	require.NoError(t, c.Close())

	r := <-respCh
	require.NoError(t, r.err)
	assert.Equal(t, http.StatusOK, r.status)
}

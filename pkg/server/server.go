// Package server exposes the translation service over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/glossa/pkg/models"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 32 << 20

// Service is the translation backend served by the HTTP API.
type Service interface {
	TranslateFile(ctx context.Context, req models.TranslateRequest) (*models.TranslateResponse, error)
	TranslateBatch(ctx context.Context, req models.BatchTranslateRequest) (*models.BatchTranslateResponse, error)
	Stats(ctx context.Context) (models.CacheStats, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearExpired(ctx context.Context) (int64, error)
	Flush(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// Config holds HTTP server settings.
type Config struct {
	Listen string
	// Bearer protects the /api routes except health. Empty disables auth.
	Bearer           string
	Version          string
	OpenAIConfigured bool
	// ShutdownTimeout bounds the graceful connection shutdown. Requests
	// still running after it are waited for regardless.
	ShutdownTimeout time.Duration
}

// Server is the glossa HTTP API.
type Server struct {
	cfg     Config
	svc     Service
	mux     *http.ServeMux
	handler http.Handler
	active  inflight
}

// New creates a Server with all routes registered.
func New(cfg Config, svc Service) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("POST /api/translate", s.auth(s.handleTranslate))
	s.mux.Handle("POST /api/translate/batch", s.auth(s.handleBatch))
	s.mux.Handle("GET /api/cache/stats", s.auth(s.handleStats))
	s.mux.Handle("DELETE /api/cache", s.auth(s.handleClear))
	s.mux.Handle("DELETE /api/cache/expired", s.auth(s.handleClearExpired))
	s.mux.Handle("POST /api/cache/flush", s.auth(s.handleFlush))

	s.handler = s.active.track(cors(accessLog(s.mux)))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then stops
// accepting and waits for every admitted request to finish, even past
// ShutdownTimeout, so callers may close the cache once it returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", ln.Addr().String()).Info("[HTTP] glossa listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logrus.Info("[HTTP] shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			logrus.WithField("active", s.active.count()).Warn("[HTTP] shutdown timeout, waiting for in-flight requests")
			err = nil
		}
		s.active.wait()
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

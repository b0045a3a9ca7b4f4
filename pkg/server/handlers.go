package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/glossa/pkg/apperr"
	"github.com/pario-ai/glossa/pkg/models"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.RootResponse{
		Service:     "glossa",
		Version:     s.cfg.Version,
		Description: "Translation service for SKILL.md files",
		Endpoints: map[string]string{
			"translate":   "/api/translate",
			"batch":       "/api/translate/batch",
			"health":      "/api/health",
			"cache_stats": "/api/cache/stats",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connected := s.svc.Ping(r.Context()) == nil
	status := "healthy"
	if !connected {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:           status,
		Version:          s.cfg.Version,
		CacheConnected:   connected,
		OpenAIConfigured: s.cfg.OpenAIConfigured,
	})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req models.TranslateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.svc.TranslateFile(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchTranslateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.svc.TranslateBatch(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type messageResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.ClearAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Cleared all %d entries", n), Count: n})
}

func (s *Server) handleClearExpired(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.ClearExpired(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Cleared %d expired entries", n), Count: n})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Flush(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Flushed pending hits", Count: int64(n)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, &apperr.ValidationError{Msg: "malformed JSON body", Err: err})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("[HTTP] encode response")
	}
}

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := apperr.Classify(err)
	entry := logrus.WithError(err).WithFields(logrus.Fields{
		"path": r.URL.Path,
		"code": code,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("[HTTP] request failed")
	} else {
		entry.Warn("[HTTP] request rejected")
	}
	writeJSON(w, status, errorBody{Detail: err.Error(), Code: code})
}

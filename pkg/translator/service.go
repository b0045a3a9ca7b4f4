package translator

import (
	"context"
	"encoding/base64"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/glossa/pkg/apperr"
	"github.com/pario-ai/glossa/pkg/models"
)

// MaxLineLength is the longest line, in bytes, kept in an incoming document.
const MaxLineLength = 5000

// Store is the durable cache used by the Service.
type Store interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	Set(ctx context.Context, key, contentHash, path, translated, translatedHash string, metadata map[string]any) (*models.CacheEntry, error)
	FlushPendingHits(ctx context.Context) (int, error)
	ClearExpired(ctx context.Context) (int64, error)
	ClearAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (models.CacheStats, error)
	Ping(ctx context.Context) error
}

// ServiceConfig holds the default language pair.
type ServiceConfig struct {
	SourceLanguage string
	TargetLanguage string
}

// Service translates documents through the cache.
type Service struct {
	tr    *Translator
	store Store
	cfg   ServiceConfig
}

// NewService creates a Service.
func NewService(tr *Translator, store Store, cfg ServiceConfig) *Service {
	return &Service{tr: tr, store: store, cfg: cfg}
}

// DocumentRequest is one plain-text document to translate.
type DocumentRequest struct {
	Content string
	Path    string
	// ContentHash is the caller's fingerprint of Content. When empty it is
	// computed from Content.
	ContentHash string
	Options     *models.TranslateOptions
	// NoCacheLookup skips the cache read; the result is still stored.
	NoCacheLookup bool
}

// DocumentResult is the outcome of TranslateDocument.
type DocumentResult struct {
	Content        string
	ContentHash    string
	TranslatedHash string
	Cached         bool
	Metadata       map[string]any
}

// Languages resolves the language pair for opts, falling back to the
// configured defaults per field.
func (s *Service) Languages(opts *models.TranslateOptions) (source, target string) {
	source, target = s.cfg.SourceLanguage, s.cfg.TargetLanguage
	if opts != nil {
		if opts.SourceLanguage != "" {
			source = opts.SourceLanguage
		}
		if opts.TargetLanguage != "" {
			target = opts.TargetLanguage
		}
	}
	return source, target
}

// TranslateDocument returns the cached translation of req when one exists,
// otherwise translates it and stores the result.
func (s *Service) TranslateDocument(ctx context.Context, req DocumentRequest) (*DocumentResult, error) {
	if err := validateOptions(ctx, req.Options); err != nil {
		return nil, err
	}
	text, removed := FilterLongLines(req.Content)
	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"path":    req.Path,
			"removed": removed,
		}).Infof("[TRANSLATOR] removed lines longer than %d bytes", MaxLineLength)
	}

	contentHash := req.ContentHash
	if contentHash == "" {
		contentHash = ComputeHash(req.Content)
	}
	source, target := s.Languages(req.Options)
	key := s.tr.CacheKey(contentHash, source, target)

	if !req.NoCacheLookup {
		entry, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			logrus.WithFields(logrus.Fields{
				"path": req.Path,
				"hits": entry.HitCount,
			}).Debug("[TRANSLATOR] cache hit")
			return &DocumentResult{
				Content:        entry.TranslatedContent,
				ContentHash:    entry.ContentHash,
				TranslatedHash: entry.TranslatedHash,
				Cached:         true,
				Metadata:       entry.Metadata,
			}, nil
		}
	}

	translated, meta, err := s.tr.Translate(ctx, text, source, target)
	if err != nil {
		logrus.WithError(err).WithField("path", req.Path).Error("[TRANSLATOR] translation failed")
		return nil, err
	}
	translatedHash := ComputeHash(translated)
	metadata := meta.AsMap()

	if _, err := s.store.Set(ctx, key, contentHash, req.Path, translated, translatedHash, metadata); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"path":   req.Path,
		"source": source,
		"target": target,
		"ms":     meta.ProcessingTimeMs,
	}).Info("[TRANSLATOR] translated document")
	return &DocumentResult{
		Content:        translated,
		ContentHash:    contentHash,
		TranslatedHash: translatedHash,
		Metadata:       metadata,
	}, nil
}

// TranslateFile handles one base64 encoded document.
func (s *Service) TranslateFile(ctx context.Context, req models.TranslateRequest) (*models.TranslateResponse, error) {
	start := time.Now()
	if err := validateTranslateRequest(ctx, req); err != nil {
		return nil, err
	}
	text, err := DecodeContent(req.Content)
	if err != nil {
		return nil, err
	}

	res, err := s.TranslateDocument(ctx, DocumentRequest{
		Content:     text,
		Path:        req.Path,
		ContentHash: req.ContentHash,
		Options:     req.Options,
	})
	if err != nil {
		return nil, err
	}

	metadata := res.Metadata
	if !res.Cached {
		metadata["total_processing_time_ms"] = float64(time.Since(start).Milliseconds())
	}
	return &models.TranslateResponse{
		TranslatedContent: EncodeContent(res.Content),
		ContentHash:       res.ContentHash,
		TranslatedHash:    res.TranslatedHash,
		Cached:            res.Cached,
		Metadata:          metadata,
	}, nil
}

// TranslateBatch handles every file of req in order. A failing file is
// reported in its result and does not stop the batch.
func (s *Service) TranslateBatch(ctx context.Context, req models.BatchTranslateRequest) (*models.BatchTranslateResponse, error) {
	start := time.Now()
	if err := validateBatchRequest(ctx, req); err != nil {
		return nil, err
	}
	skipCached := req.SkipCached == nil || *req.SkipCached

	resp := &models.BatchTranslateResponse{
		Results: make([]models.FileTranslationResult, 0, len(req.Files)),
	}
	for _, f := range req.Files {
		result := s.batchItem(ctx, f, req.Options, skipCached)
		switch {
		case !result.Success:
			resp.Failed++
		case result.Cached:
			resp.Successful++
			resp.CachedCount++
		default:
			resp.Successful++
		}
		resp.Results = append(resp.Results, result)
	}
	resp.TotalFiles = resp.Successful + resp.Failed
	resp.ProcessingTimeMs = float64(time.Since(start).Milliseconds())

	logrus.WithFields(logrus.Fields{
		"files":  resp.TotalFiles,
		"cached": resp.CachedCount,
		"failed": resp.Failed,
	}).Info("[TRANSLATOR] batch finished")
	return resp, nil
}

func (s *Service) batchItem(ctx context.Context, f models.FileToTranslate, opts *models.TranslateOptions, skipCached bool) models.FileTranslationResult {
	fail := func(err error) models.FileTranslationResult {
		code, _ := apperr.Classify(err)
		return models.FileTranslationResult{
			Path:        f.Path,
			ContentHash: f.ContentHash,
			Error:       err.Error(),
			ErrorCode:   code,
		}
	}

	text, err := DecodeContent(f.Content)
	if err != nil {
		return fail(err)
	}
	res, err := s.TranslateDocument(ctx, DocumentRequest{
		Content:       text,
		Path:          f.Path,
		ContentHash:   f.ContentHash,
		Options:       opts,
		NoCacheLookup: !skipCached,
	})
	if err != nil {
		return fail(err)
	}
	return models.FileTranslationResult{
		Path:              f.Path,
		Success:           true,
		TranslatedContent: EncodeContent(res.Content),
		ContentHash:       res.ContentHash,
		TranslatedHash:    res.TranslatedHash,
		Cached:            res.Cached,
	}
}

// Stats returns cache statistics.
func (s *Service) Stats(ctx context.Context) (models.CacheStats, error) {
	return s.store.Stats(ctx)
}

// ClearAll removes every cached translation.
func (s *Service) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.store.ClearAll(ctx)
	if err != nil {
		return 0, err
	}
	logrus.WithField("removed", n).Info("[TRANSLATOR] cache cleared")
	return n, nil
}

// ClearExpired removes cached translations older than the configured max age.
func (s *Service) ClearExpired(ctx context.Context) (int64, error) {
	n, err := s.store.ClearExpired(ctx)
	if err != nil {
		return 0, err
	}
	logrus.WithField("removed", n).Info("[TRANSLATOR] expired entries cleared")
	return n, nil
}

// Ping reports whether the cache is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Flush writes buffered hit counts to storage.
func (s *Service) Flush(ctx context.Context) (int, error) {
	return s.store.FlushPendingHits(ctx)
}

// DecodeContent decodes standard base64 into UTF-8 text.
func DecodeContent(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &apperr.ValidationError{Msg: "content is not valid base64", Err: err}
	}
	if !utf8.Valid(raw) {
		return "", &apperr.ValidationError{Msg: "content is not valid UTF-8"}
	}
	return string(raw), nil
}

// EncodeContent encodes text as standard base64.
func EncodeContent(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// FilterLongLines drops lines longer than MaxLineLength bytes and reports
// how many were removed. Input without such lines is returned unchanged.
func FilterLongLines(text string) (string, int) {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if len(strings.TrimSuffix(l, "\r")) > MaxLineLength {
			continue
		}
		kept = append(kept, l)
	}
	removed := len(lines) - len(kept)
	if removed == 0 {
		return text, 0
	}
	return strings.Join(kept, "\n"), removed
}


package models

// TranslateOptions selects the language pair for a request.
type TranslateOptions struct {
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// TranslateRequest is the body of POST /api/translate.
type TranslateRequest struct {
	// Content is the base64 encoded document.
	Content     string            `json:"content"`
	Path        string            `json:"path"`
	ContentHash string            `json:"content_hash"`
	Options     *TranslateOptions `json:"options,omitempty"`
}

// TranslateResponse is returned for a single translated document.
type TranslateResponse struct {
	TranslatedContent string         `json:"translated_content"`
	ContentHash       string         `json:"content_hash"`
	TranslatedHash    string         `json:"translated_hash"`
	Cached            bool           `json:"cached"`
	Metadata          map[string]any `json:"metadata"`
}

// FileToTranslate is one item of a batch request.
type FileToTranslate struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`
}

// BatchTranslateRequest is the body of POST /api/translate/batch.
// SkipCached defaults to true when omitted.
type BatchTranslateRequest struct {
	Files      []FileToTranslate `json:"files"`
	Options    *TranslateOptions `json:"options,omitempty"`
	SkipCached *bool             `json:"skip_cached,omitempty"`
}

// FileTranslationResult reports the outcome of one batch item.
type FileTranslationResult struct {
	Path              string `json:"path"`
	Success           bool   `json:"success"`
	TranslatedContent string `json:"translated_content,omitempty"`
	ContentHash       string `json:"content_hash"`
	TranslatedHash    string `json:"translated_hash,omitempty"`
	Cached            bool   `json:"cached"`
	Error             string `json:"error,omitempty"`
	ErrorCode         string `json:"error_code,omitempty"`
}

// BatchTranslateResponse aggregates a batch run.
type BatchTranslateResponse struct {
	Results          []FileTranslationResult `json:"results"`
	TotalFiles       int                     `json:"total_files"`
	Successful       int                     `json:"successful"`
	CachedCount      int                     `json:"cached_count"`
	Failed           int                     `json:"failed"`
	ProcessingTimeMs float64                 `json:"processing_time_ms"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	CacheConnected   bool   `json:"cache_connected"`
	OpenAIConfigured bool   `json:"openai_configured"`
}

// RootResponse describes the service at GET /.
type RootResponse struct {
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}

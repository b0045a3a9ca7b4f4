package models

import "time"

// CacheEntry stores one translated document.
type CacheEntry struct {
	CacheKey          string         `json:"cache_key"`
	ContentHash       string         `json:"content_hash"`
	Path              string         `json:"path"`
	TranslatedContent string         `json:"translated_content"`
	TranslatedHash    string         `json:"translated_hash"`
	CreatedAt         time.Time      `json:"created_at"`
	AccessedAt        time.Time      `json:"accessed_at"`
	HitCount          int64          `json:"hit_count"`
	Metadata          map[string]any `json:"metadata"`
}

// CacheStats reports cache size and hit/miss accounting.
type CacheStats struct {
	TotalEntries   int64      `json:"total_entries"`
	TotalSizeBytes int64      `json:"total_size_bytes"`
	OldestEntry    *time.Time `json:"oldest_entry,omitempty"`
	NewestEntry    *time.Time `json:"newest_entry,omitempty"`
	TotalHits      int64      `json:"total_hits"`
	TotalMisses    int64      `json:"total_misses"`
}

// TranslationMetadata describes a single translation run.
type TranslationMetadata struct {
	OriginalChars     int     `json:"original_chars"`
	TranslatedChars   int     `json:"translated_chars"`
	ProcessingTimeMs  float64 `json:"processing_time_ms"`
	TranslatorVersion string  `json:"translator_version"`
	Model             string  `json:"model"`
	SourceLanguage    string  `json:"source_language"`
	TargetLanguage    string  `json:"target_language"`
}

// AsMap flattens the metadata into the opaque form persisted with an entry.
func (m TranslationMetadata) AsMap() map[string]any {
	return map[string]any{
		"original_chars":     m.OriginalChars,
		"translated_chars":   m.TranslatedChars,
		"processing_time_ms": m.ProcessingTimeMs,
		"translator_version": m.TranslatorVersion,
		"model":              m.Model,
		"source_language":    m.SourceLanguage,
		"target_language":    m.TargetLanguage,
	}
}

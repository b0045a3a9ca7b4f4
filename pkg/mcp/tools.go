package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pario-ai/glossa/pkg/models"
	"github.com/pario-ai/glossa/pkg/translator"
)

type translateArgs struct {
	Content        string `json:"content"`
	Path           string `json:"path"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"glossa_cache_stats":         handleCacheStats,
	"glossa_cache_clear":         handleCacheClear,
	"glossa_cache_clear_expired": handleCacheClearExpired,
	"glossa_cache_flush":         handleCacheFlush,
	"glossa_translate":           handleTranslate,
}

var emptySchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
}

var allTools = []ToolDefinition{
	{
		Name:        "glossa_cache_stats",
		Description: "Show translation cache statistics (entries, size, hits, misses, age range).",
		InputSchema: emptySchema,
	},
	{
		Name:        "glossa_cache_clear",
		Description: "Delete every cached translation.",
		InputSchema: emptySchema,
	},
	{
		Name:        "glossa_cache_clear_expired",
		Description: "Delete cached translations older than the configured max age.",
		InputSchema: emptySchema,
	},
	{
		Name:        "glossa_cache_flush",
		Description: "Write buffered hit counts to the cache database.",
		InputSchema: emptySchema,
	},
	{
		Name:        "glossa_translate",
		Description: "Translate a Markdown document, keeping code blocks and frontmatter intact. Results are cached.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"content"},
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "The Markdown document as plain text",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "Logical path of the document (optional, used for bookkeeping)",
				},
				"source_language": map[string]any{
					"type":        "string",
					"description": "Source language code (optional, defaults to the configured one)",
				},
				"target_language": map[string]any{
					"type":        "string",
					"description": "Target language code (optional, defaults to the configured one)",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	stats, err := s.backend.Stats(ctx)
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleCacheClear(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	n, err := s.backend.ClearAll(ctx)
	if err != nil {
		return errorResult("Error clearing cache: " + err.Error())
	}
	return textResult(fmt.Sprintf("Cleared all %d entries.", n))
}

func handleCacheClearExpired(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	n, err := s.backend.ClearExpired(ctx)
	if err != nil {
		return errorResult("Error clearing expired entries: " + err.Error())
	}
	return textResult(fmt.Sprintf("Cleared %d expired entries.", n))
}

func handleCacheFlush(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	n, err := s.backend.Flush(ctx)
	if err != nil {
		return errorResult("Error flushing hits: " + err.Error())
	}
	return textResult(fmt.Sprintf("Flushed pending hits for %d entries.", n))
}

func handleTranslate(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args translateArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("invalid arguments: " + err.Error())
		}
	}
	if args.Content == "" {
		return errorResult("content is required")
	}

	var opts *models.TranslateOptions
	if args.SourceLanguage != "" || args.TargetLanguage != "" {
		opts = &models.TranslateOptions{
			SourceLanguage: args.SourceLanguage,
			TargetLanguage: args.TargetLanguage,
		}
	}
	res, err := s.backend.TranslateDocument(ctx, translator.DocumentRequest{
		Content: args.Content,
		Path:    args.Path,
		Options: opts,
	})
	if err != nil {
		return errorResult("Translation failed: " + err.Error())
	}
	return textResult(res.Content)
}

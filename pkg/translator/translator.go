// Package translator turns whole Markdown documents into translated ones and
// serves them through the durable cache.
package translator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pario-ai/glossa/pkg/content"
	"github.com/pario-ai/glossa/pkg/gate"
	"github.com/pario-ai/glossa/pkg/models"
	"github.com/pario-ai/glossa/pkg/provider"
)

const descriptionField = "description"

// languageNames gives the prompt wording for common language codes.
var languageNames = map[string]string{
	"en":    "English",
	"zh-CN": "Chinese (Simplified, zh-CN)",
	"zh-TW": "Chinese (Traditional, zh-TW)",
	"ja":    "Japanese",
	"ko":    "Korean",
	"de":    "German",
	"fr":    "French",
	"es":    "Spanish",
}

const promptTemplate = `You are a professional technical translator specializing in software documentation.
Your task is to translate SKILL.md files from %[1]s to %[2]s.

IMPORTANT RULES:
1. Translate the content naturally while preserving technical accuracy
2. Keep all code examples, commands, and URLs unchanged
3. Preserve the markdown formatting exactly
4. Keep technical terms in English when appropriate (e.g., API, CLI)
5. Translate comments in code blocks only if they are clearly explanatory
6. Maintain the same structure and organization as the original
7. Do not add or remove any sections
8. Preserve all placeholders like ___CODE_BLOCK_0___ exactly as they are

Translate the following content to %[2]s:`

// SystemPrompt returns the instructions sent with every provider call.
func SystemPrompt(source, target string) string {
	return fmt.Sprintf(promptTemplate, languageName(source), languageName(target))
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// ComputeHash returns the "sha256:"-prefixed hex digest of s.
func ComputeHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Config identifies the translation pipeline.
type Config struct {
	Model string
	// Version is folded into every cache key so a pipeline change
	// invalidates earlier results.
	Version string
}

// Translator translates single documents.
type Translator struct {
	completer provider.Completer
	gate      *gate.Gate
	model     string
	version   string
}

// New creates a Translator that sends provider calls through g.
func New(c provider.Completer, g *gate.Gate, cfg Config) *Translator {
	return &Translator{
		completer: c,
		gate:      g,
		model:     cfg.Model,
		version:   cfg.Version,
	}
}

// Version returns the pipeline version.
func (t *Translator) Version() string { return t.version }

// Model returns the provider model name.
func (t *Translator) Model() string { return t.model }

// CacheKey derives the cache key for a document fingerprint and language pair.
func (t *Translator) CacheKey(contentHash, source, target string) string {
	return ComputeHash(fmt.Sprintf("%s:%s:%s:%s", contentHash, source, target, t.version))
}

// Translate translates doc from source to target. Code blocks are kept out of
// the provider call and the frontmatter is preserved except for its
// description, which is translated separately. A failure of either call
// fails the whole document.
func (t *Translator) Translate(ctx context.Context, doc, source, target string) (string, models.TranslationMetadata, error) {
	start := time.Now()
	parsed := content.Parse(doc)
	prompt := SystemPrompt(source, target)

	call := func(ctx context.Context, text string) (string, error) {
		return t.completer.Complete(ctx, prompt, text)
	}

	g, gctx := errgroup.WithContext(ctx)

	var body string
	g.Go(func() error {
		masked := content.Substitute(parsed.Body, parsed.CodeBlocks)
		out, err := t.gate.Do(gctx, masked, call)
		if err != nil {
			return err
		}
		body = content.Restore(out, parsed.CodeBlocks)
		return nil
	})

	frontmatter := parsed.Frontmatter
	if desc, ok := content.StringField(parsed.Fields, descriptionField); ok && desc != "" && content.IsTranslatableField(descriptionField) {
		g.Go(func() error {
			out, err := t.gate.Do(gctx, desc, call)
			if err != nil {
				return err
			}
			frontmatter = content.RewriteField(parsed.Frontmatter, descriptionField, dropBlankLines(out))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", models.TranslationMetadata{}, err
	}

	translated := frontmatter + body
	meta := models.TranslationMetadata{
		OriginalChars:     len(doc),
		TranslatedChars:   len(translated),
		ProcessingTimeMs:  float64(time.Since(start).Milliseconds()),
		TranslatorVersion: t.version,
		Model:             t.model,
		SourceLanguage:    source,
		TargetLanguage:    target,
	}

	logrus.WithFields(logrus.Fields{
		"code_blocks": len(parsed.CodeBlocks),
		"chars":       meta.TranslatedChars,
		"ms":          meta.ProcessingTimeMs,
	}).Debug("[TRANSLATOR] document translated")
	return translated, meta, nil
}

func dropBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, strings.TrimRight(l, "\r"))
		}
	}
	return strings.Join(kept, "\n")
}

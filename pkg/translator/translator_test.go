package translator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/glossa/pkg/apperr"
	"github.com/pario-ai/glossa/pkg/gate"
)

type stubCompleter struct {
	mu      sync.Mutex
	calls   []string
	prompts []string
	fn      func(text string) (string, error)
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, userText)
	s.prompts = append(s.prompts, systemPrompt)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(userText)
	}
	return strings.ReplaceAll(userText, "Hello", "你好"), nil
}

func (s *stubCompleter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestTranslator(c *stubCompleter) *Translator {
	g := gate.New(gate.Config{MaxConcurrent: 2, Timeout: 5 * time.Second, RetryDelay: time.Millisecond})
	return New(c, g, Config{Model: "gpt-4o-mini", Version: "1.0.0"})
}

func TestComputeHash(t *testing.T) {
	assert.Equal(t,
		"sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		ComputeHash("hello world"))
}

func TestCacheKeyDeterministic(t *testing.T) {
	tr := newTestTranslator(&stubCompleter{})
	k1 := tr.CacheKey("sha256:abc", "en", "zh-CN")
	k2 := tr.CacheKey("sha256:abc", "en", "zh-CN")
	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "sha256:"))
	assert.Equal(t, ComputeHash("sha256:abc:en:zh-CN:1.0.0"), k1)

	assert.NotEqual(t, k1, tr.CacheKey("sha256:abc", "en", "ja"))
	assert.NotEqual(t, k1, tr.CacheKey("sha256:abd", "en", "zh-CN"))

	other := New(&stubCompleter{}, gate.New(gate.Config{}), Config{Version: "2.0.0"})
	assert.NotEqual(t, k1, other.CacheKey("sha256:abc", "en", "zh-CN"))
}

func TestTranslateDocument(t *testing.T) {
	stub := &stubCompleter{}
	tr := newTestTranslator(stub)

	doc := "---\nname: hello-skill\ndescription: \"Hello world\"\n---\n" +
		"Hello there.\n\n```go\nfmt.Println(\"Hello\")\n```\n\nHello again.\n"

	out, meta, err := tr.Translate(context.Background(), doc, "en", "zh-CN")
	require.NoError(t, err)

	want := "---\nname: hello-skill\ndescription: \"你好 world\"\n---\n" +
		"你好 there.\n\n```go\nfmt.Println(\"Hello\")\n```\n\n你好 again.\n"
	assert.Equal(t, want, out)
	assert.Equal(t, 2, stub.count())

	for _, call := range stub.calls {
		assert.NotContains(t, call, "fmt.Println")
	}
	assert.Contains(t, stub.prompts[0], "Chinese (Simplified, zh-CN)")
	assert.Contains(t, stub.prompts[0], "from English")

	assert.Equal(t, len(doc), meta.OriginalChars)
	assert.Equal(t, len(out), meta.TranslatedChars)
	assert.Equal(t, "gpt-4o-mini", meta.Model)
	assert.Equal(t, "1.0.0", meta.TranslatorVersion)
	assert.Equal(t, "zh-CN", meta.TargetLanguage)
}

func TestTranslateMultiLineDescription(t *testing.T) {
	stub := &stubCompleter{fn: func(text string) (string, error) {
		if text == "Short summary" {
			return "第一行\n\n第二行\n", nil
		}
		return text, nil
	}}
	tr := newTestTranslator(stub)

	doc := "---\ndescription: Short summary\nversion: 1.0.0\n---\n# Title\n"
	out, _, err := tr.Translate(context.Background(), doc, "en", "zh-CN")
	require.NoError(t, err)
	assert.Equal(t, "---\ndescription: >\n  第一行\n  第二行\nversion: 1.0.0\n---\n# Title\n", out)
}

func TestTranslateWithoutFrontmatter(t *testing.T) {
	stub := &stubCompleter{}
	tr := newTestTranslator(stub)

	out, _, err := tr.Translate(context.Background(), "Hello\n", "en", "zh-CN")
	require.NoError(t, err)
	assert.Equal(t, "你好\n", out)
	assert.Equal(t, 1, stub.count())
}

func TestTranslateEmptyBodySkipsProvider(t *testing.T) {
	stub := &stubCompleter{}
	tr := newTestTranslator(stub)

	out, _, err := tr.Translate(context.Background(), "---\nname: x\n---\n", "en", "zh-CN")
	require.NoError(t, err)
	assert.Equal(t, "---\nname: x\n---\n", out)
	assert.Equal(t, 0, stub.count())
}

func TestTranslateDescriptionFailureFailsDocument(t *testing.T) {
	stub := &stubCompleter{fn: func(text string) (string, error) {
		if text == "bad" {
			return "", errors.New("upstream 500")
		}
		return text, nil
	}}
	tr := newTestTranslator(stub)

	_, _, err := tr.Translate(context.Background(), "---\ndescription: bad\n---\nbody\n", "en", "zh-CN")
	var exhausted *apperr.RetryExhaustedError
	assert.True(t, errors.As(err, &exhausted), "got %v", err)
}

func TestSystemPromptUnknownLanguage(t *testing.T) {
	p := SystemPrompt("en", "pt-BR")
	assert.Contains(t, p, "from English to pt-BR")
	assert.Contains(t, p, "___CODE_BLOCK_0___")
}

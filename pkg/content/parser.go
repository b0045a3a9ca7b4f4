// Package content splits Markdown documents into frontmatter, body and
// fenced code blocks, and rewrites single frontmatter fields in place.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	frontmatterPattern = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)
	codeBlockPattern   = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```")
)

// translatableFields lists the frontmatter fields sent to the provider.
var translatableFields = map[string]bool{
	"description": true,
}

// CodeBlock is a fenced code region protected from translation.
type CodeBlock struct {
	Language    string
	Code        string
	Placeholder string
}

// Fenced returns the block in its original fenced form.
func (b CodeBlock) Fenced() string {
	return "```" + b.Language + "\n" + b.Code + "```"
}

// Document is a parsed Markdown file.
type Document struct {
	// Frontmatter is the raw header including both delimiter lines and the
	// trailing newline. Empty when the document has no header.
	Frontmatter string
	// Fields holds the decoded header. Never nil.
	Fields     map[string]any
	Body       string
	CodeBlocks []CodeBlock
}

// Parse splits content into its frontmatter, body and code blocks. It never
// fails: a header that is not valid YAML yields an empty field map.
func Parse(content string) Document {
	doc := Document{
		Fields: map[string]any{},
		Body:   content,
	}

	if m := frontmatterPattern.FindStringSubmatchIndex(content); m != nil {
		doc.Frontmatter = content[m[0]:m[1]]
		doc.Fields = parseFields(content[m[2]:m[3]])
		doc.Body = content[m[1]:]
	}

	prefix := placeholderPrefix(doc.Body)
	for i, m := range codeBlockPattern.FindAllStringSubmatch(doc.Body, -1) {
		doc.CodeBlocks = append(doc.CodeBlocks, CodeBlock{
			Language:    m[1],
			Code:        m[2],
			Placeholder: fmt.Sprintf("%s%d___", prefix, i),
		})
	}
	return doc
}

const basePlaceholderPrefix = "___CODE_BLOCK_"

// placeholderPrefix returns the placeholder prefix for body. A body that
// already contains placeholder-shaped text gets a prefix tagged with a
// digest of the body, so restoring never expands text the author wrote.
func placeholderPrefix(body string) string {
	if !strings.Contains(body, basePlaceholderPrefix) {
		return basePlaceholderPrefix
	}
	for salt := 0; ; salt++ {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", salt, body)))
		prefix := basePlaceholderPrefix + hex.EncodeToString(sum[:4]) + "_"
		if !strings.Contains(body, prefix) {
			return prefix
		}
	}
}

func parseFields(raw string) map[string]any {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &root); err != nil {
		logrus.WithError(err).Debug("[CONTENT] frontmatter is not valid YAML, ignoring fields")
		return map[string]any{}
	}
	fields, ok := nodeValue(&root).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return fields
}

// nodeValue converts a YAML node into plain Go values. Custom tags are
// dropped so tagged scalars decode to their inner value.
func nodeValue(n *yaml.Node) any {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return nodeValue(n.Content[0])
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				continue
			}
			out[key.Value] = nodeValue(n.Content[i+1])
		}
		return out
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, nodeValue(c))
		}
		return out
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil
		}
		return nodeValue(n.Alias)
	case yaml.ScalarNode:
		scalar := *n
		if strings.HasPrefix(scalar.Tag, "!") && !strings.HasPrefix(scalar.Tag, "!!") {
			scalar.Tag = ""
		}
		var v any
		if err := scalar.Decode(&v); err != nil {
			return n.Value
		}
		return v
	}
	return nil
}

// Substitute replaces each code block in body with its placeholder. A block
// whose escaped pattern does not match (for example because of irregular line
// endings) is left in place.
func Substitute(body string, blocks []CodeBlock) string {
	result := body
	for _, b := range blocks {
		pattern := "```" + regexp.QuoteMeta(b.Language) + "\n" + regexp.QuoteMeta(b.Code) + "```"
		re, err := regexp.Compile(pattern)
		if err != nil {
			logrus.WithError(err).WithField("placeholder", b.Placeholder).Debug("[CONTENT] code block pattern did not compile")
			continue
		}
		loc := re.FindStringIndex(result)
		if loc == nil {
			logrus.WithField("placeholder", b.Placeholder).Debug("[CONTENT] code block not found, left untouched")
			continue
		}
		result = result[:loc[0]] + b.Placeholder + result[loc[1]:]
	}
	return result
}

// Restore puts the original fenced code back in place of every placeholder.
func Restore(body string, blocks []CodeBlock) string {
	result := body
	for _, b := range blocks {
		result = strings.ReplaceAll(result, b.Placeholder, b.Fenced())
	}
	return result
}

// IsTranslatableField reports whether a frontmatter field is sent for translation.
func IsTranslatableField(name string) bool {
	return translatableFields[name]
}

// StringField returns fields[name] when it holds a string.
func StringField(fields map[string]any, name string) (string, bool) {
	s, ok := fields[name].(string)
	return s, ok
}

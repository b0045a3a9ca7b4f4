package content

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// RewriteField replaces the value of field inside a raw frontmatter block.
// Only the lines that make up that field change; every other line is kept
// byte for byte. Handled shapes are double-quoted, single-quoted and plain
// scalars on the field line, and block scalars introduced by ">" or "|".
//
// A block scalar, or a plain scalar replaced by a multi-line value, is
// written as "field: <line>" when the value has a single non-blank line and
// as a folded block ("field: >" plus two-space indented lines) otherwise.
// Quoted scalars keep their quote style; a multi-line value is joined with
// spaces, which is how the folded block would read back. Blank lines never
// appear inside the emitted block. A line ending in "\r" keeps it.
func RewriteField(frontmatter, field, value string) string {
	lines := strings.Split(frontmatter, "\n")
	out := make([]string, 0, len(lines))
	prefix := field + ":"
	done := false

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if done || !strings.HasPrefix(line, prefix) {
			out = append(out, line)
			continue
		}
		done = true
		eol := ""
		if strings.HasSuffix(line, "\r") {
			eol = "\r"
		}
		current := strings.TrimSpace(line[len(prefix):])

		var repl []string
		switch {
		case isBlockIndicator(current):
			repl = foldedLines(field, value)
			// Skip the indented continuation of the old block.
			for i+1 < len(lines) {
				next := lines[i+1]
				if strings.TrimSpace(next) != "" && !isIndented(next) {
					break
				}
				i++
			}
		case current == "":
			out = append(out, line)
			continue
		case isQuoted(current, '"'):
			repl = []string{field + `: "` + escapeDouble(joinLines(value)) + `"`}
		case isQuoted(current, '\''):
			repl = []string{field + ": '" + strings.ReplaceAll(joinLines(value), "'", "''") + "'"}
		case strings.Contains(value, "\n"):
			repl = foldedLines(field, value)
		default:
			repl = []string{field + ": " + plainScalar(value)}
		}
		for _, l := range repl {
			out = append(out, l+eol)
		}
	}
	return strings.Join(out, "\n")
}

func nonBlankLines(value string) []string {
	var kept []string
	for _, l := range strings.Split(value, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

func joinLines(value string) string {
	kept := nonBlankLines(value)
	for i, l := range kept {
		kept[i] = strings.TrimSpace(l)
	}
	return strings.Join(kept, " ")
}

func foldedLines(field, value string) []string {
	kept := nonBlankLines(value)
	switch len(kept) {
	case 0:
		return []string{field + `: ""`}
	case 1:
		return []string{field + ": " + plainScalar(kept[0])}
	}
	out := make([]string, 0, len(kept)+1)
	out = append(out, field+": >")
	for _, l := range kept {
		out = append(out, "  "+l)
	}
	return out
}

// plainScalar returns v unquoted when YAML would read it back as the same
// string, and double-quoted otherwise.
func plainScalar(v string) string {
	if needsQuotes(v) {
		return `"` + escapeDouble(v) + `"`
	}
	return v
}

func needsQuotes(v string) bool {
	if v == "" || v != strings.TrimSpace(v) || strings.ContainsAny(v, "\t\r\n") {
		return true
	}
	var back any
	if err := yaml.Unmarshal([]byte(v), &back); err != nil {
		return true
	}
	s, ok := back.(string)
	return !ok || s != v
}

func isBlockIndicator(v string) bool {
	switch v {
	case ">", "|", ">-", "|-", ">+", "|+":
		return true
	}
	return false
}

func isIndented(line string) bool {
	return line != "" && (line[0] == ' ' || line[0] == '\t')
}

func isQuoted(v string, q byte) bool {
	return len(v) >= 2 && v[0] == q && v[len(v)-1] == q
}

func escapeDouble(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	v = strings.ReplaceAll(v, "\t", `\t`)
	return strings.ReplaceAll(v, "\r", `\r`)
}

package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteField(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		value string
		want  string
	}{
		{
			name:  "double quoted",
			in:    "---\nname: x\ndescription: \"A\"\n---\n",
			value: "B",
			want:  "---\nname: x\ndescription: \"B\"\n---\n",
		},
		{
			name:  "double quoted escapes",
			in:    "---\ndescription: \"A\"\n---\n",
			value: `say "hi" \o/`,
			want:  "---\ndescription: \"say \\\"hi\\\" \\\\o/\"\n---\n",
		},
		{
			name:  "single quoted",
			in:    "---\ndescription: 'A'\n---\n",
			value: "it's",
			want:  "---\ndescription: 'it''s'\n---\n",
		},
		{
			name:  "plain",
			in:    "---\ndescription: old text\nversion: 1\n---\n",
			value: "new text",
			want:  "---\ndescription: new text\nversion: 1\n---\n",
		},
		{
			name:  "plain to multi-line",
			in:    "---\ndescription: old\n---\n",
			value: "first\nsecond",
			want:  "---\ndescription: >\n  first\n  second\n---\n",
		},
		{
			name:  "double quoted keeps quotes for multi-line",
			in:    "---\ndescription: \"A\"\nname: x\n---\n",
			value: "first\n\nsecond",
			want:  "---\ndescription: \"first second\"\nname: x\n---\n",
		},
		{
			name:  "single quoted keeps quotes for multi-line",
			in:    "---\ndescription: 'A'\n---\n",
			value: "it's\nfine",
			want:  "---\ndescription: 'it''s fine'\n---\n",
		},
		{
			name:  "crlf line keeps its carriage return",
			in:    "---\r\ndescription: \"A\"\r\nauthor: y\r\n---\r\n",
			value: "B",
			want:  "---\r\ndescription: \"B\"\r\nauthor: y\r\n---\r\n",
		},
		{
			name:  "crlf folded block",
			in:    "---\r\ndescription: old\r\n---\r\n",
			value: "a\nb",
			want:  "---\r\ndescription: >\r\n  a\r\n  b\r\n---\r\n",
		},
		{
			name:  "plain value with mapping indicator is quoted",
			in:    "---\ndescription: old\n---\n",
			value: "a: b",
			want:  "---\ndescription: \"a: b\"\n---\n",
		},
		{
			name:  "plain value with leading indicator is quoted",
			in:    "---\ndescription: old\n---\n",
			value: "- item",
			want:  "---\ndescription: \"- item\"\n---\n",
		},
		{
			name:  "folded block two lines",
			in:    "---\nname: x\ndescription: >\n  old one\n  old two\nversion: 1\n---\n",
			value: "line one\n\nline two\n",
			want:  "---\nname: x\ndescription: >\n  line one\n  line two\nversion: 1\n---\n",
		},
		{
			name:  "literal block collapses to one line",
			in:    "---\ndescription: |\n  old one\n  old two\n---\n",
			value: "only line",
			want:  "---\ndescription: only line\n---\n",
		},
		{
			name:  "chomping indicator",
			in:    "---\ndescription: >-\n  old\nname: x\n---\n",
			value: "a\nb",
			want:  "---\ndescription: >\n  a\n  b\nname: x\n---\n",
		},
		{
			name:  "empty value kept",
			in:    "---\ndescription:\nname: x\n---\n",
			value: "new",
			want:  "---\ndescription:\nname: x\n---\n",
		},
		{
			name:  "missing field",
			in:    "---\nname: x\n---\n",
			value: "new",
			want:  "---\nname: x\n---\n",
		},
		{
			name:  "similar names untouched",
			in:    "---\ndescription_long: keep\n  description: nested\ndescription: old\n---\n",
			value: "new",
			want:  "---\ndescription_long: keep\n  description: nested\ndescription: new\n---\n",
		},
		{
			name:  "only first occurrence",
			in:    "---\ndescription: one\ndescription: two\n---\n",
			value: "new",
			want:  "---\ndescription: new\ndescription: two\n---\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteField(tt.in, "description", tt.value))
		})
	}
}

func TestRewriteFieldNoBlankLinesInBlock(t *testing.T) {
	out := RewriteField("---\ndescription: >\n  old\n---\n", "description", "\n\na\n\n\nb\n\n")
	assert.Equal(t, "---\ndescription: >\n  a\n  b\n---\n", out)
}

func TestRewriteFieldBlankValue(t *testing.T) {
	out := RewriteField("---\ndescription: >\n  old\n---\n", "description", "\n  \n")
	assert.Equal(t, "---\ndescription: \"\"\n---\n", out)
}

func TestRewriteFieldReadsBack(t *testing.T) {
	values := []string{"a: b", "# heading", "key:", "x #y", "[1, 2]", "plain text", "true", "42", "null", "- item", "tab\there", `quote "q" \ slash`}
	for _, v := range values {
		t.Run(v, func(t *testing.T) {
			fm := RewriteField("---\nname: x\ndescription: old\n---\n", "description", v)
			doc := Parse(fm + "body\n")
			got, ok := StringField(doc.Fields, "description")
			assert.True(t, ok, "frontmatter %q", fm)
			assert.Equal(t, v, got)
			assert.Equal(t, "x", doc.Fields["name"])
		})
	}
}

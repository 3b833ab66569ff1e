package raw_test

import (
	"strings"
	"testing"

	"github.com/ezerfernandes/rawfence/internal/mdcode"
	"github.com/ezerfernandes/rawfence/internal/raw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var finders = map[string]mdcode.Finder{ //nolint:gochecknoglobals
	"fences":     mdcode.Fences,
	"commonmark": mdcode.CommonMark,
}

func rewrite(t *testing.T, find mdcode.Finder, input string) (string, *raw.Result) {
	t.Helper()

	rewriter := raw.Rewriter{Find: find}

	out, res, err := rewriter.Rewrite([]byte(input))
	require.NoError(t, err)

	return string(out), res
}

func TestRewriteScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "braces are wrapped",
			input: "```\nhello {{ name }}\n```",
			want:  "{% raw %}\n```\nhello {{ name }}\n```\n{% endraw %}",
		},
		{
			name:  "plain block untouched",
			input: "```python\nprint(\"hi\")\n```",
			want:  "```python\nprint(\"hi\")\n```",
		},
		{
			name:  "already wrapped",
			input: "{% raw %}\n```\nhello {{ name }}\n```\n{% endraw %}\n",
			want:  "{% raw %}\n```\nhello {{ name }}\n```\n{% endraw %}\n",
		},
		{
			name:  "only the sensitive block of two",
			input: "# Title\n\n```go\nfmt.Println()\n```\n\ntext\n\n```yaml\nimage: {{ .Image }}\n```\n",
			want:  "# Title\n\n```go\nfmt.Println()\n```\n\ntext\n\n{% raw %}\n```yaml\nimage: {{ .Image }}\n```\n{% endraw %}\n",
		},
		{
			name:  "closing braces alone",
			input: "```\nmap[string]int{}}\n```\n",
			want:  "{% raw %}\n```\nmap[string]int{}}\n```\n{% endraw %}\n",
		},
		{
			name:  "marker inside block",
			input: "```liquid\n{% raw %}{{ page.title }}{% endraw %}\n```\n",
			want:  "```liquid\n{% raw %}{{ page.title }}{% endraw %}\n```\n",
		},
		{
			name:  "braces outside blocks",
			input: "Use {{ site.url }} here.\n\n```\nno braces\n```\n",
			want:  "Use {{ site.url }} here.\n\n```\nno braces\n```\n",
		},
		{
			name:  "unterminated fence",
			input: "```\n{{ open }}\nnever closed\n",
			want:  "```\n{{ open }}\nnever closed\n",
		},
		{
			name:  "no blocks",
			input: "just {{ text }}",
			want:  "just {{ text }}",
		},
		{
			name:  "empty document",
			input: "",
			want:  "",
		},
		{
			name:  "raw region spanning blocks",
			input: "{% raw %}\n\n```\n{{ a }}\n```\n\n```\n{{ b }}\n```\n\n{% endraw %}\n\n```\n{{ c }}\n```\n",
			want:  "{% raw %}\n\n```\n{{ a }}\n```\n\n```\n{{ b }}\n```\n\n{% endraw %}\n\n{% raw %}\n```\n{{ c }}\n```\n{% endraw %}\n",
		},
		{
			name:  "opt-out metadata",
			input: "```go rawfence=skip\n{{ x }}\n```\n",
			want:  "```go rawfence=skip\n{{ x }}\n```\n",
		},
	}

	for name, find := range finders {
		find := find

		for _, tt := range tests {
			tt := tt

			t.Run(name+"/"+tt.name, func(t *testing.T) {
				t.Parallel()

				got, _ := rewrite(t, find, tt.input)
				assert.Equal(t, tt.want, got)
			})
		}
	}
}

func TestRewriteIdempotent(t *testing.T) {
	t.Parallel()

	docs := []string{
		"```\nhello {{ name }}\n```",
		"a\n```sh\necho {{x}}\n```\nb\n```\nplain\n```\n```\n}}\n```\n",
		"{% raw %}\n```\n{{ y }}\n```\n",
		"text {{ z }}\n\n````\n```\n{{ nested }}\n````\n",
	}

	for name, find := range finders {
		for _, doc := range docs {
			once, _ := rewrite(t, find, doc)
			twice, res := rewrite(t, find, once)

			assert.Equal(t, once, twice, "%s: %q", name, doc)
			assert.Empty(t, res.Wrapped, "%s: %q", name, doc)
		}
	}
}

func TestRewriteResult(t *testing.T) {
	t.Parallel()

	input := "```\n{{ a }}\n```\n\n```\nplain\n```\n\n```go\n{% raw %}{{ b }}\n```\n\n```sh rawfence=skip\n{{ c }}\n```\n"

	got, res := rewrite(t, mdcode.Fences, input)

	assert.Equal(t, 4, res.Blocks)
	assert.Equal(t, 1, res.Escaped)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Wrapped, 1)
	assert.Equal(t, 1, res.Wrapped[0].StartLine)
	assert.Equal(t, 3, res.Wrapped[0].EndLine)
	assert.True(t, strings.HasPrefix(got, "{% raw %}\n```\n{{ a }}\n```\n{% endraw %}\n"))
}

func TestRewriteUnchangedReturnsSource(t *testing.T) {
	t.Parallel()

	source := []byte("```\nplain\n```\n")

	var rewriter raw.Rewriter

	out, res, err := rewriter.Rewrite(source)
	require.NoError(t, err)
	assert.Same(t, &source[0], &out[0])
	assert.Equal(t, 1, res.Blocks)
}

func TestRewriteNestedCommonMark(t *testing.T) {
	t.Parallel()

	input := "- item\n\n  ```\n  {{ x }}\n  ```\n"
	want := "- item\n\n  {% raw %}\n  ```\n  {{ x }}\n  ```\n  {% endraw %}\n"

	got, _ := rewrite(t, mdcode.CommonMark, input)
	assert.Equal(t, want, got)

	again, _ := rewrite(t, mdcode.CommonMark, got)
	assert.Equal(t, got, again)
}

func TestRewriteCommentedScript(t *testing.T) {
	t.Parallel()

	input := "<!-- <script type=\"text/markdown\">\n```go\n{{ x }}\n```\n</script> -->\n"
	want := "<!-- <script type=\"text/markdown\">\n{% raw %}\n```go\n{{ x }}\n```\n{% endraw %}\n</script> -->\n"

	got, _ := rewrite(t, mdcode.CommonMark, input)
	assert.Equal(t, want, got)
}

func TestRewriteCRLF(t *testing.T) {
	t.Parallel()

	input := "# T\r\n\r\n```sh\r\n{{ a }}\r\n```\r\n"
	want := "# T\r\n\r\n{% raw %}\r\n```sh\r\n{{ a }}\r\n```\r\n{% endraw %}\r\n"

	for name, find := range finders {
		find := find

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, _ := rewrite(t, find, input)
			assert.Equal(t, want, got)

			again, _ := rewrite(t, find, got)
			assert.Equal(t, got, again)
		})
	}
}

func TestRewriteCustomMarkers(t *testing.T) {
	t.Parallel()

	rewriter := raw.Rewriter{
		Markers:  raw.Markers{Open: "{{< raw >}}", Close: "{{< /raw >}}"},
		Triggers: []string{"{{"},
	}

	out, _, err := rewriter.Rewrite([]byte("```\n{{ .Site }}\n```\n"))
	require.NoError(t, err)
	assert.Equal(t, "{{< raw >}}\n```\n{{ .Site }}\n```\n{{< /raw >}}\n", string(out))

	again, res, err := rewriter.Rewrite(out)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
	assert.Equal(t, 1, res.Escaped)
}

func TestRewriteFilter(t *testing.T) {
	t.Parallel()

	rewriter := raw.Rewriter{
		Filter: func(block *mdcode.Block) bool { return block.Lang == "yaml" },
	}

	input := "```go\n{{ a }}\n```\n\n```yaml\n{{ b }}\n```\n"

	out, res, err := rewriter.Rewrite([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "```go\n{{ a }}\n```\n\n{% raw %}\n```yaml\n{{ b }}\n```\n{% endraw %}\n", string(out))
	assert.Equal(t, 1, res.Skipped)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rewriter raw.Rewriter
		err      error
	}{
		{name: "zero value", rewriter: raw.Rewriter{}},
		{name: "missing close", rewriter: raw.Rewriter{Markers: raw.Markers{Open: "<raw>"}}, err: raw.ErrInvalidMarkers},
		{name: "same markers", rewriter: raw.Rewriter{Markers: raw.Markers{Open: "x", Close: "x"}}, err: raw.ErrInvalidMarkers},
		{name: "no triggers", rewriter: raw.Rewriter{Triggers: []string{}}, err: raw.ErrNoTriggers},
		{name: "empty trigger", rewriter: raw.Rewriter{Triggers: []string{"{{", ""}}, err: raw.ErrNoTriggers},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.rewriter.Validate()
			if tt.err == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestInspect(t *testing.T) {
	t.Parallel()

	input := "```\nplain\n```\n\n```\n{{ a }}\n```\n\n{% raw %}\n```\n{{ b }}\n```\n{% endraw %}\n"

	var rewriter raw.Rewriter

	findings, err := rewriter.Inspect([]byte(input))
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, raw.StateWrap, findings[0].State)
	assert.Equal(t, 5, findings[0].Block.StartLine)
	assert.Equal(t, raw.StateEscaped, findings[1].State)
}

func TestRewriteString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{% raw %}\n```\n{{ x }}\n```\n{% endraw %}", raw.Rewrite("```\n{{ x }}\n```"))
}

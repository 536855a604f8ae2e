package filter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
)

func TestMarkdown(t *testing.T) {
	out, err := NewMarkdown().Run("# Hello\n\nSome *text* and <span>raw</span>.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, `<h1 id="hello">Hello</h1>`)
	assert.Contains(t, out, "<em>text</em>")
	assert.Contains(t, out, "<span>raw</span>")
	assert.Contains(t, out, "<table>")
}

func TestSyntaxHighlight_RewritesLiteralBlocks(t *testing.T) {
	f := NewSyntaxHighlight()
	out, err := f.Run("before\n<pre class=\"literal-block\">\n#!go\nif a &lt; b {}\n</pre>\nafter")
	require.NoError(t, err)
	assert.Contains(t, out, `<div class="highlight_murphy"><pre><code class="language-go">if a &lt; b {}`)
	assert.True(t, strings.HasPrefix(out, "before\n"))
	assert.True(t, strings.HasSuffix(out, "after"))

	out, err = f.Run("<pre class=\"literal-block\">\nplain\n</pre>")
	require.NoError(t, err)
	assert.Contains(t, out, `class="language-text"`)
}

func TestSyntaxHighlight_WritesStylesheetOnce(t *testing.T) {
	staging := t.TempDir()
	store := config.NewStore()
	config.ApplyDefaults(store)
	store.Set(config.LayerUser, "filters.syntax_highlight.style", "monokai")

	r := NewDefaultRegistry()
	require.NoError(t, r.InitAll(context.Background(), Env{StagingDir: staging}, store))

	f, _, ok := r.Lookup("highlight")
	require.True(t, ok)
	_, err := f.Run("x")
	require.NoError(t, err)

	css := filepath.Join(staging, "css", "highlight_monokai.css")
	require.FileExists(t, css)

	// A second run must not rewrite the file.
	require.NoError(t, os.WriteFile(css, []byte("sentinel"), 0o600))
	_, err = f.Run("y")
	require.NoError(t, err)
	data, err := os.ReadFile(css)
	require.NoError(t, err)
	assert.Equal(t, "sentinel", string(data))
}

func TestDefaultChain(t *testing.T) {
	r := NewDefaultRegistry()
	ids, err := r.Resolve("syntax_highlight, markdown")
	require.NoError(t, err)

	out, err := r.Apply(ids, "Intro\n\n<pre class=\"literal-block\">\n#!python\nprint(1)\n</pre>\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<p>Intro</p>")
	assert.Contains(t, out, `language-python`)
}

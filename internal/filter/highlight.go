package filter

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

var codeBlockRe = regexp.MustCompile(`(?s)<pre class="literal-block">\n(?:#!(\w+)\n)?(.*?)</pre>`)

// SyntaxHighlight rewrites literal blocks into language-tagged code blocks and
// writes the matching stylesheet into the build output once per build.
//
//	<pre class="literal-block">
//	#!go
//	fmt.Println("hi")
//	</pre>
type SyntaxHighlight struct {
	mu         sync.Mutex
	style      string
	cssDir     string
	stagingDir string
	logger     *slog.Logger
	written    map[string]struct{}
}

// NewSyntaxHighlight builds the filter with the default style.
func NewSyntaxHighlight() *SyntaxHighlight {
	return &SyntaxHighlight{
		style:   "murphy",
		cssDir:  "/css",
		logger:  slog.Default(),
		written: make(map[string]struct{}),
	}
}

// Metadata implements Filter.
func (s *SyntaxHighlight) Metadata() Metadata {
	return Metadata{
		Name:        "Syntax Highlighter",
		Description: "Marks up literal blocks for client side highlighting",
		Aliases:     []string{"highlight"},
	}
}

// Init implements Initializer.
func (s *SyntaxHighlight) Init(_ context.Context, env *Env) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style = env.Config.StringOr("style", "murphy")
	s.cssDir = env.Config.StringOr("css_dir", "/css")
	s.stagingDir = env.StagingDir
	if env.Logger != nil {
		s.logger = env.Logger
	}
	s.written = make(map[string]struct{})
	return nil
}

// CSSClass is the wrapper class of highlighted blocks.
func (s *SyntaxHighlight) CSSClass() string {
	return "highlight_" + s.style
}

// Run implements Filter.
func (s *SyntaxHighlight) Run(text string) (string, error) {
	if err := s.writeStylesheet(); err != nil {
		return "", err
	}
	class := s.CSSClass()
	return codeBlockRe.ReplaceAllStringFunc(text, func(block string) string {
		m := codeBlockRe.FindStringSubmatch(block)
		lang := m[1]
		if lang == "" {
			lang = "text"
		}
		code := html.UnescapeString(m[2])
		return fmt.Sprintf("\n\n<div class=\"%s\"><pre><code class=\"language-%s\">%s</code></pre></div>\n\n",
			class, lang, html.EscapeString(code))
	}), nil
}

// writeStylesheet writes <css_dir>/highlight_<style>.css below the staging
// directory unless that path was already written during this build.
func (s *SyntaxHighlight) writeStylesheet() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stagingDir == "" {
		return nil
	}
	dir := filepath.Join(s.stagingDir, filepath.FromSlash(config.JoinURLPath(s.cssDir)))
	path := filepath.Join(dir, s.CSSClass()+".css")
	if _, done := s.written[path]; done {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create css dir: %w", err)
	}
	// #nosec G306 -- published site files are world-readable
	if err := os.WriteFile(path, []byte(stylesheet(s.CSSClass())), 0o644); err != nil {
		return fmt.Errorf("write stylesheet: %w", err)
	}
	s.written[path] = struct{}{}
	s.logger.Debug("Wrote highlight stylesheet", logfields.Path(path))
	return nil
}

func stylesheet(class string) string {
	return fmt.Sprintf(`.%[1]s { background: #f8f8f8; }
.%[1]s pre { margin: 0; padding: 0.5em; overflow: auto; }
.%[1]s code { font-family: monospace; white-space: pre; }
`, class)
}

package filter

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Markdown converts Markdown (GFM flavour) to HTML. Raw HTML in the source is kept.
type Markdown struct {
	engine goldmark.Markdown
}

// NewMarkdown builds the markdown filter.
func NewMarkdown() *Markdown {
	return &Markdown{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Metadata implements Filter.
func (m *Markdown) Metadata() Metadata {
	return Metadata{
		Name:        "Markdown",
		Description: "Renders Markdown to HTML",
		Aliases:     []string{"md"},
	}
}

// Run implements Filter.
func (m *Markdown) Run(text string) (string, error) {
	var buf bytes.Buffer
	if err := m.engine.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return buf.String(), nil
}

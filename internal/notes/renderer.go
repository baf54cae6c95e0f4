// Package notes renders item notes written in Markdown
package notes

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Rendered is the HTML form of a note together with its front matter
type Rendered struct {
	HTML     string         `json:"html"`
	Metadata map[string]any `json:"metadata"`
}

// Renderer converts Markdown notes to HTML. Raw HTML in notes is dropped.
type Renderer struct {
	markdown goldmark.Markdown
}

// NewRenderer creates a renderer with GitHub flavored Markdown, front
// matter and syntax highlighted code blocks
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			meta.Meta,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	return &Renderer{markdown: md}
}

// Render converts notes to HTML
func (r *Renderer) Render(notes string) (*Rendered, error) {
	var buf bytes.Buffer
	ctx := parser.NewContext()

	if err := r.markdown.Convert([]byte(notes), &buf, parser.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("failed to render notes: %w", err)
	}

	metadata := meta.Get(ctx)
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Rendered{
		HTML:     buf.String(),
		Metadata: metadata,
	}, nil
}

// Title returns the title from the note's front matter, or fallback
func (r *Rendered) Title(fallback string) string {
	if value, ok := r.Metadata["title"]; ok {
		if s, ok := value.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

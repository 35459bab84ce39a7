// Package render turns parsed blocks into HTML.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/dgallion1/notemark/internal/doctree"
	"github.com/dgallion1/notemark/internal/sanitize"
)

// Renderer converts Markdown to HTML.
type Renderer interface {
	Render(markdown string) (string, error)
}

// Goldmark renders GitHub-flavoured Markdown. Raw HTML passes through so
// resolved reference links survive.
type Goldmark struct {
	md goldmark.Markdown
}

// NewGoldmark returns a Goldmark renderer. It is safe for concurrent use.
func NewGoldmark() *Goldmark {
	return &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

func (g *Goldmark) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// RenderedBlock is a block together with its rendered body.
type RenderedBlock struct {
	doctree.Block
	HTML template.HTML `json:"html"`
}

// Blocks renders each block body. Delimited spans are hidden from the
// renderer and restored afterwards, with a fresh sanitizer per block.
func Blocks(blocks []doctree.Block, r Renderer, newSanitizer func() *sanitize.Sanitizer) ([]RenderedBlock, error) {
	out := make([]RenderedBlock, len(blocks))
	for i, b := range blocks {
		out[i].Block = b
		if b.Content == "" {
			continue
		}
		s := newSanitizer()
		rendered, err := r.Render(s.Sanitize(b.Content))
		if err != nil {
			return nil, fmt.Errorf("block %d (line %d): %w", i, b.Line, err)
		}
		out[i].HTML = template.HTML(s.Reinsert(rendered))
	}
	return out, nil
}

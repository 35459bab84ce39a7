package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/notemark/internal/config"
	"github.com/dgallion1/notemark/internal/doctree"
	"github.com/dgallion1/notemark/internal/parser"
	"github.com/dgallion1/notemark/internal/render"
)

// descriptionLen caps the page description taken from the first paragraph.
const descriptionLen = 160

// Result is one converted document.
type Result struct {
	Name     string                 `json:"name"`
	Document *doctree.Document      `json:"document"`
	Blocks   []render.RenderedBlock `json:"blocks"`
	HTML     string                 `json:"-"`
	Duration time.Duration          `json:"duration_ns"`
}

// Converter runs the full conversion of one document: parse, number,
// resolve references, render block bodies and assemble the page. A
// Converter holds only read-only configuration and may be shared by
// goroutines; every call builds its own parser state.
type Converter struct {
	markup   config.Markup
	renderer render.Renderer
	page     *render.Page
	stats    *RenderStats
}

// NewConverter validates m and prepares the renderer and page templates.
// stats may be nil.
func NewConverter(m config.Markup, stats *RenderStats) (*Converter, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("markup config: %w", err)
	}
	renderer, err := render.ByName(m.Renderer)
	if err != nil {
		return nil, err
	}
	page, err := render.NewPage(m.PageOptions())
	if err != nil {
		return nil, err
	}
	return &Converter{markup: m, renderer: renderer, page: page, stats: stats}, nil
}

// Markup returns the configuration the converter was built with.
func (c *Converter) Markup() config.Markup {
	return c.markup
}

// Parse runs the core pipeline only, without rendering.
func (c *Converter) Parse(text string) (*doctree.Document, error) {
	return parser.Parse(text, c.markup.ParserConfig(), c.markup.LinkLookup())
}

// Convert converts the markup text of the document called name.
func (c *Converter) Convert(ctx context.Context, name, text string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	doc, err := c.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}

	blocks, err := render.Blocks(doc.Blocks, c.renderer, c.markup.NewSanitizer)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	html, err := c.page.Render(render.PageData{
		Title:       doc.Title,
		Description: describe(blocks),
		Blocks:      blocks,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", name, err)
	}

	res := &Result{
		Name:     name,
		Document: doc,
		Blocks:   blocks,
		HTML:     html,
		Duration: time.Since(start),
	}
	if c.stats != nil {
		c.stats.Record(res.Duration, len(blocks))
	}
	return res, nil
}

// Text returns the plain text of a converted document.
func (r *Result) Text() (string, error) {
	var parts []string
	for _, b := range r.Blocks {
		if b.HTML == "" {
			if b.Title != "" {
				parts = append(parts, b.Title)
			}
			continue
		}
		text, err := render.TextContent(string(b.HTML))
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// describe summarises the first non-empty paragraph.
func describe(blocks []render.RenderedBlock) string {
	for _, b := range blocks {
		if !b.IsParagraph() || b.HTML == "" {
			continue
		}
		text, err := render.TextContent(string(b.HTML))
		if err != nil || text == "" {
			continue
		}
		return render.Summary(text, descriptionLen)
	}
	return ""
}

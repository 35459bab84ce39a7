package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/dgallion1/notemark/internal/doctree"
	"github.com/dgallion1/notemark/internal/refs"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// entry is the template every page starts from.
const entry = "index.html"

// PageOptions configure page assembly.
type PageOptions struct {
	TemplatesPath string            // Directory of *.html templates replacing the built-in ones
	HeaderMarker  byte              // Default '#'
	Labels        map[string]string // Display label per kind
}

// PageData is the value a page template executes against.
type PageData struct {
	Title       string
	Description string
	Blocks      []RenderedBlock
}

// Page assembles rendered blocks into a complete HTML document.
type Page struct {
	tmpl *template.Template
}

// NewPage parses the page templates.
func NewPage(opts PageOptions) (*Page, error) {
	if opts.HeaderMarker == 0 {
		opts.HeaderMarker = '#'
	}
	t, err := template.New(entry).Funcs(funcs(opts)).ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse built-in templates: %w", err)
	}
	// Files in TemplatesPath replace built-in templates of the same name.
	if opts.TemplatesPath != "" {
		t, err = t.ParseGlob(filepath.Join(opts.TemplatesPath, "*.html"))
		if err != nil {
			return nil, fmt.Errorf("parse templates in %s: %w", opts.TemplatesPath, err)
		}
	}
	return &Page{tmpl: t}, nil
}

// Render executes the page template.
func (p *Page) Render(data PageData) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, entry, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

func funcs(opts PageOptions) template.FuncMap {
	labels := refs.LinkLookup{Labels: opts.Labels}
	level := func(kind string) int {
		b := doctree.Block{Kind: kind}
		if !b.IsHeader(opts.HeaderMarker) {
			return 0
		}
		return len(kind)
	}
	return template.FuncMap{
		"dotted":            func(n doctree.Number) string { return n.Dotted() },
		"scored":            func(n doctree.Number) string { return n.Scored() },
		"titlecase":         labels.Label,
		"length":            func(s string) int { return len(s) },
		"escapeBackslashes": func(s string) string { return strings.ReplaceAll(s, `\`, `\\`) },
		"lower":             strings.ToLower,
		"level":             level,
		"heading": func(b RenderedBlock) template.HTML {
			n := min(max(level(b.Kind), 1), 6)
			title := template.HTMLEscapeString(b.Title)
			if num := b.Number.Dotted(); num != "" {
				title = num + " " + title
			}
			return template.HTML(fmt.Sprintf(`<h%d id="%s">%s</h%d>`, n, template.HTMLEscapeString(b.Anchor()), title, n))
		},
	}
}

package render

import (
	"fmt"

	"github.com/russross/blackfriday/v2"
)

// Blackfriday renders Markdown with blackfriday's common extensions. Its
// output is closer to classic Markdown.pl than Goldmark's CommonMark.
type Blackfriday struct {
	extensions blackfriday.Extensions
}

// NewBlackfriday returns a Blackfriday renderer.
func NewBlackfriday() *Blackfriday {
	return &Blackfriday{extensions: blackfriday.CommonExtensions}
}

func (b *Blackfriday) Render(markdown string) (string, error) {
	return string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(b.extensions))), nil
}

// Renderer names accepted by ByName.
const (
	RendererGoldmark    = "goldmark"
	RendererBlackfriday = "blackfriday"
)

// ByName returns the renderer with the given name. An empty name selects
// Goldmark.
func ByName(name string) (Renderer, error) {
	switch name {
	case "", RendererGoldmark:
		return NewGoldmark(), nil
	case RendererBlackfriday:
		return NewBlackfriday(), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", name)
	}
}

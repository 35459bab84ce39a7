package refs

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dgallion1/notemark/internal/doctree"
)

// LinkLookup resolves a target to an HTML link labelled with the target's
// kind and dotted number, e.g. <a href="#schur">Lemma 2.1</a>.
type LinkLookup struct {
	// Labels overrides the display label per kind. Kinds without an entry
	// are title-cased ("LEMMA" -> "Lemma").
	Labels map[string]string
}

// Label returns the display label for a block kind.
func (l LinkLookup) Label(kind string) string {
	if label, ok := l.Labels[kind]; ok {
		return label
	}
	// Casers are stateful, so each call gets its own.
	return cases.Title(language.Und).String(kind)
}

// Resolve implements Lookup.
func (l LinkLookup) Resolve(target, name string, blocks []doctree.Block) string {
	b, ok := doctree.Find(blocks, target)
	if !ok {
		return fmt.Sprintf(`<strong class="ref-error" style="color: red;">reference %s not found</strong>`, html.EscapeString(target))
	}
	text := strings.TrimSpace(name)
	if text == "" {
		text = l.Label(b.Kind)
		if num := b.Number.Dotted(); num != "" {
			text += " " + num
		}
	}
	return fmt.Sprintf(`<a href="#%s">%s</a>`, html.EscapeString(b.Anchor()), html.EscapeString(text))
}

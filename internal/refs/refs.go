// Package refs rewrites inline cross-reference markers such as <@id> or
// <@id|shown name> using a caller-supplied lookup.
package refs

import (
	"fmt"
	"regexp"

	"github.com/dgallion1/notemark/internal/doctree"
)

// Lookup produces the replacement text for one marker. It receives the whole
// numbered block list, so forward references resolve like backward ones.
type Lookup interface {
	Resolve(target, name string, blocks []doctree.Block) string
}

// LookupFunc adapts a plain function to the Lookup interface.
type LookupFunc func(target, name string, blocks []doctree.Block) string

// Resolve calls f(target, name, blocks).
func (f LookupFunc) Resolve(target, name string, blocks []doctree.Block) string {
	return f(target, name, blocks)
}

// Config controls marker syntax and the expansion ceiling.
type Config struct {
	Open            string // Opening sentinel, default "<@"
	Close           string // Closing sentinel, default ">"
	ExpansionFactor int    // Substitutions allowed per initial marker, default 16
}

// DefaultConfig returns the standard <@id|name> syntax.
func DefaultConfig() Config {
	return Config{
		Open:            "<@",
		Close:           ">",
		ExpansionFactor: 16,
	}
}

// RunawayExpansionError is returned when replacements keep producing new
// markers inside one block.
type RunawayExpansionError struct {
	Block int // Index of the block in the document
	Line  int // Source line of the block
	Limit int // Substitutions performed before giving up
}

func (e *RunawayExpansionError) Error() string {
	return fmt.Sprintf("refs: block %d (line %d): reference expansion exceeded %d substitutions", e.Block, e.Line, e.Limit)
}

// Resolver finds markers and splices in lookup results.
type Resolver struct {
	marker *regexp.Regexp
	lookup Lookup
	factor int
}

// NewResolver compiles the marker pattern for cfg.
func NewResolver(cfg Config, lookup Lookup) (*Resolver, error) {
	def := DefaultConfig()
	if cfg.Open == "" {
		cfg.Open = def.Open
	}
	if cfg.Close == "" {
		cfg.Close = def.Close
	}
	if cfg.ExpansionFactor <= 0 {
		cfg.ExpansionFactor = def.ExpansionFactor
	}
	if lookup == nil {
		return nil, fmt.Errorf("refs: lookup is required")
	}
	open := regexp.QuoteMeta(cfg.Open)
	closing := regexp.QuoteMeta(cfg.Close)
	re, err := regexp.Compile(open + `([a-z0-9-]+)(?:\|([^\n]*?))?` + closing)
	if err != nil {
		return nil, fmt.Errorf("refs: compile marker pattern: %w", err)
	}
	return &Resolver{marker: re, lookup: lookup, factor: cfg.ExpansionFactor}, nil
}

// Resolve rewrites the content of every block in place. Only Content is
// modified; the lookup sees the same slice that is being rewritten.
func (r *Resolver) Resolve(blocks []doctree.Block) error {
	for i := range blocks {
		content, ok := r.expand(blocks[i].Content, blocks)
		if !ok {
			return &RunawayExpansionError{Block: i, Line: blocks[i].Line, Limit: r.limitFor(blocks[i].Content)}
		}
		blocks[i].Content = content
	}
	return nil
}

// Count returns the number of markers currently present in text.
func (r *Resolver) Count(text string) int {
	return len(r.marker.FindAllStringIndex(text, -1))
}

// Targets returns the ids referenced in text, in order of appearance.
func (r *Resolver) Targets(text string) []string {
	var ids []string
	for _, m := range r.marker.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

func (r *Resolver) limitFor(text string) int {
	return r.factor * r.Count(text)
}

// expand substitutes markers until none remain. It reports false when the
// ceiling is reached first.
func (r *Resolver) expand(content string, blocks []doctree.Block) (string, bool) {
	limit := r.limitFor(content)
	for n := 0; ; n++ {
		loc := r.marker.FindStringSubmatchIndex(content)
		if loc == nil {
			return content, true
		}
		if n >= limit {
			return content, false
		}
		target := content[loc[2]:loc[3]]
		name := ""
		if loc[4] >= 0 {
			name = content[loc[4]:loc[5]]
		}
		replacement := r.lookup.Resolve(target, name, blocks)
		content = content[:loc[0]] + replacement + content[loc[1]:]
	}
}

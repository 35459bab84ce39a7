// Package sanitize hides delimiter-bounded spans (typically math) from a
// Markdown renderer and puts them back into the rendered output.
package sanitize

import (
	"strconv"
	"strings"
)

// Pair is one left/right delimiter pair.
type Pair struct {
	Left  string `json:"left" toml:"left"`
	Right string `json:"right" toml:"right"`
}

// DefaultSentinel surrounds the index in placeholder tokens. Percent signs
// carry no meaning in Markdown.
const DefaultSentinel = "%%%%"

// DisplayMath and InlineMath are the default LaTeX delimiters. Display pairs
// must be checked before inline pairs so "$" never matches inside "$$".
var (
	DisplayMath = []Pair{{Left: "$$", Right: "$$"}, {Left: `\[`, Right: `\]`}}
	InlineMath  = []Pair{{Left: "$", Right: "$"}, {Left: `\(`, Right: `\)`}}
)

// DefaultPairs returns display pairs followed by inline pairs.
func DefaultPairs() []Pair {
	pairs := make([]Pair, 0, len(DisplayMath)+len(InlineMath))
	pairs = append(pairs, DisplayMath...)
	return append(pairs, InlineMath...)
}

// Sanitizer stores the spans it replaced. Use one Sanitizer per text.
type Sanitizer struct {
	pairs    []Pair
	sentinel string
	storage  []string
}

// New returns a Sanitizer checking pairs in the given order.
func New(pairs []Pair, sentinel string) *Sanitizer {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return &Sanitizer{pairs: pairs, sentinel: sentinel}
}

// Sanitize replaces every complete delimited span with a placeholder token.
// A left delimiter without a matching right one ends the scan for that pair
// and leaves the rest of the text as is.
func (s *Sanitizer) Sanitize(text string) string {
	for _, p := range s.pairs {
		if p.Left == "" || p.Right == "" {
			continue
		}
		text = s.sanitizePair(p, text)
	}
	return text
}

func (s *Sanitizer) sanitizePair(p Pair, text string) string {
	for {
		a := strings.Index(text, p.Left)
		if a < 0 {
			return text
		}
		rel := strings.Index(text[a+len(p.Left):], p.Right)
		if rel < 0 {
			return text
		}
		end := a + len(p.Left) + rel + len(p.Right)
		token := s.token(len(s.storage))
		s.storage = append(s.storage, text[a:end])
		text = text[:a] + token + text[end:]
	}
}

// Reinsert restores stored spans, newest first: a span stored by a later
// pair may hold the token of an earlier one. Tokens missing from text are
// skipped.
func (s *Sanitizer) Reinsert(text string) string {
	for i := len(s.storage) - 1; i >= 0; i-- {
		original := s.storage[i]
		token := s.token(i)
		a := strings.Index(text, token)
		if a < 0 {
			continue
		}
		text = text[:a] + original + text[a+len(token):]
	}
	return text
}

// Spans returns the protected spans in storage order.
func (s *Sanitizer) Spans() []string {
	return s.storage
}

func (s *Sanitizer) token(i int) string {
	return s.sentinel + strconv.Itoa(i) + s.sentinel
}

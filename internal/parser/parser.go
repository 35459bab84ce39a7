package parser

import (
	"fmt"

	"github.com/dgallion1/notemark/internal/doctree"
	"github.com/dgallion1/notemark/internal/numbering"
	"github.com/dgallion1/notemark/internal/refs"
)

// Config bundles everything one parse needs.
type Config struct {
	Scan      ScanConfig
	Numbering []numbering.Node
	Refs      refs.Config
}

// DefaultConfig numbers "##" sections, "###" subsections and statements
// inside each section.
func DefaultConfig() Config {
	return Config{
		Scan: DefaultScanConfig(),
		Numbering: []numbering.Node{{
			Kinds: []string{"##"},
			Children: []numbering.Node{
				{Kinds: []string{"###"}},
				{Kinds: []string{"DEFINITION", "LEMMA", "PROPOSITION", "THEOREM", "COROLLARY"}},
			},
		}},
		Refs: refs.DefaultConfig(),
	}
}

// Parse scans text, numbers the blocks and resolves references. Numbering
// finishes before any reference is resolved, so forward references see
// final numbers. Every call builds its own scanner, engine and resolver.
func Parse(text string, cfg Config, lookup refs.Lookup) (*doctree.Document, error) {
	scanner, err := NewScanner(cfg.Scan)
	if err != nil {
		return nil, err
	}
	engine, err := numbering.New(cfg.Numbering)
	if err != nil {
		return nil, err
	}
	resolver, err := refs.NewResolver(cfg.Refs, lookup)
	if err != nil {
		return nil, err
	}

	blocks, err := scanner.Scan(text)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if err := engine.Assign(blocks); err != nil {
		return nil, fmt.Errorf("number: %w", err)
	}
	if err := resolver.Resolve(blocks); err != nil {
		return nil, fmt.Errorf("resolve references: %w", err)
	}

	doc := &doctree.Document{Blocks: blocks}
	marker := cfg.Scan.HeaderMarker
	if marker == 0 {
		marker = '#'
	}
	for _, b := range blocks {
		if b.IsHeader(marker) {
			doc.Title = b.Title
			break
		}
	}
	return doc, nil
}

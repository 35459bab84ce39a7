package pipeline

import (
	"fmt"

	"github.com/dgallion1/notemark/internal/doctree"
	"github.com/dgallion1/notemark/internal/parser"
	"github.com/dgallion1/notemark/internal/refs"
)

// UnknownRef is a reference marker whose target no block defines.
type UnknownRef struct {
	Target string `json:"target"`
	Block  int    `json:"block"`
	Line   int    `json:"line"`
}

// Report lists authoring problems that do not stop a conversion.
type Report struct {
	Blocks       int          `json:"blocks"`
	DuplicateIDs []string     `json:"duplicate_ids"`
	UnknownRefs  []UnknownRef `json:"unknown_refs"`
}

// OK reports whether the document has no problems.
func (r *Report) OK() bool {
	return len(r.DuplicateIDs) == 0 && len(r.UnknownRefs) == 0
}

// Check scans text and reports duplicate ids and references to undefined
// targets. Errors that would make a conversion fail are returned as errors.
func (c *Converter) Check(text string) (*Report, error) {
	if _, err := c.Parse(text); err != nil {
		return nil, err
	}

	cfg := c.markup.ParserConfig()
	scanner, err := parser.NewScanner(cfg.Scan)
	if err != nil {
		return nil, err
	}
	blocks, err := scanner.Scan(text)
	if err != nil {
		return nil, err
	}
	resolver, err := refs.NewResolver(cfg.Refs, c.markup.LinkLookup())
	if err != nil {
		return nil, err
	}

	report := &Report{
		Blocks:       len(blocks),
		DuplicateIDs: doctree.DuplicateIDs(blocks),
		UnknownRefs:  []UnknownRef{},
	}
	if report.DuplicateIDs == nil {
		report.DuplicateIDs = []string{}
	}
	for i, b := range blocks {
		for _, target := range resolver.Targets(b.Content) {
			if _, ok := doctree.Find(blocks, target); !ok {
				report.UnknownRefs = append(report.UnknownRefs, UnknownRef{Target: target, Block: i, Line: b.Line})
			}
		}
	}
	return report, nil
}

func (u UnknownRef) String() string {
	return fmt.Sprintf("line %d: reference to undefined id %q", u.Line, u.Target)
}

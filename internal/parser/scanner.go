package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/notemark/internal/doctree"
)

// Continuation selects how a directive's body is delimited.
type Continuation string

const (
	// ContinuationQuote reads every following line that starts with the
	// quote marker. A directive with no such lines has empty content.
	ContinuationQuote Continuation = "quote"
	// ContinuationTerminator reads lines up to one ending in the
	// terminator. Running out of input first is an error.
	ContinuationTerminator Continuation = "terminator"
)

// ScanConfig describes the block syntax.
type ScanConfig struct {
	HeaderMarker   byte                // Repeated at line start for headers, default '#'
	Directives     []string            // Directive vocabulary, earlier entries win
	Continuation   Continuation        // Body delimiting mode, default quote
	QuoteMarker    string              // Continuation prefix, default ">"
	QuoteSeparator string              // Stripped once after the marker if present
	Terminator     string              // Body terminator, default "END"
	Classes        map[string][]string // Class name -> member kinds
}

// DefaultScanConfig returns the syntax used by notemark documents.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		HeaderMarker:   '#',
		Directives:     []string{"DEFINITION", "LEMMA", "PROPOSITION", "THEOREM", "COROLLARY", "EXAMPLE", "EXERCISE", "REMARK", "PROOF"},
		Continuation:   ContinuationQuote,
		QuoteMarker:    ">",
		QuoteSeparator: " ",
		Terminator:     "END",
	}
}

// Scanner splits block-markup text into blocks.
type Scanner struct {
	cfg       ScanConfig
	header    *regexp.Regexp
	directive *regexp.Regexp
	classes   map[string][]string // kind -> sorted class names
}

// NewScanner compiles the patterns for cfg.
func NewScanner(cfg ScanConfig) (*Scanner, error) {
	if cfg.HeaderMarker == 0 {
		cfg.HeaderMarker = '#'
	}
	if cfg.Continuation == "" {
		cfg.Continuation = ContinuationQuote
	}
	if cfg.QuoteMarker == "" {
		cfg.QuoteMarker = ">"
	}
	if cfg.Terminator == "" {
		cfg.Terminator = "END"
	}
	if cfg.Continuation != ContinuationQuote && cfg.Continuation != ContinuationTerminator {
		return nil, fmt.Errorf("scanner: unknown continuation mode %q", cfg.Continuation)
	}

	s := &Scanner{
		cfg:    cfg,
		header: regexp.MustCompile(`^(` + regexp.QuoteMeta(string(cfg.HeaderMarker)) + `+)(.*)$`),
	}

	if len(cfg.Directives) > 0 {
		alts := make([]string, len(cfg.Directives))
		for i, d := range cfg.Directives {
			if strings.TrimSpace(d) == "" {
				return nil, fmt.Errorf("scanner: empty directive name at position %d", i)
			}
			alts[i] = regexp.QuoteMeta(d)
		}
		re, err := regexp.Compile(`^(` + strings.Join(alts, "|") + `)(?:\[([a-z0-9-]+)\])?(?: (.*))?$`)
		if err != nil {
			return nil, fmt.Errorf("scanner: compile directive pattern: %w", err)
		}
		s.directive = re
	}

	names := make([]string, 0, len(cfg.Classes))
	for name := range cfg.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	s.classes = make(map[string][]string)
	for _, name := range names {
		for _, kind := range cfg.Classes[name] {
			s.classes[kind] = append(s.classes[kind], name)
		}
	}
	return s, nil
}

// scan holds the cursor for one Scan call.
type scan struct {
	*Scanner
	lines  []string
	pos    int
	blocks []doctree.Block
}

// Scan returns the blocks of text in document order.
func (s *Scanner) Scan(text string) ([]doctree.Block, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	st := &scan{Scanner: s, lines: strings.Split(text, "\n")}

	for st.pos < len(st.lines) {
		line := st.lines[st.pos]
		if isBlank(line) {
			st.pos++
			continue
		}
		if m := s.header.FindStringSubmatch(line); m != nil {
			st.add(doctree.Block{Kind: m[1], Title: strings.TrimSpace(m[2]), Line: st.pos + 1})
			st.pos++
			continue
		}
		if s.directive != nil {
			if m := s.directive.FindStringSubmatch(line); m != nil {
				if err := st.directive(m); err != nil {
					return nil, err
				}
				continue
			}
		}
		st.paragraph()
	}
	return st.blocks, nil
}

func (st *scan) add(b doctree.Block) {
	if classes := st.classes[b.Kind]; len(classes) > 0 {
		b.Classes = append([]string(nil), classes...)
	}
	st.blocks = append(st.blocks, b)
}

func (st *scan) directive(m []string) error {
	b := doctree.Block{
		Kind:  m[1],
		ID:    m[2],
		Title: strings.TrimSpace(m[3]),
		Line:  st.pos + 1,
	}
	st.pos++

	var body strings.Builder
	switch st.cfg.Continuation {
	case ContinuationTerminator:
		// Content is kept verbatim up to the terminator.
		for {
			if st.pos >= len(st.lines) {
				return &MalformedDirectiveError{Kind: b.Kind, Line: b.Line}
			}
			line := st.lines[st.pos]
			st.pos++
			if strings.HasSuffix(line, st.cfg.Terminator) {
				body.WriteString(strings.TrimSuffix(line, st.cfg.Terminator))
				break
			}
			body.WriteString(line)
			body.WriteByte('\n')
		}
		b.Content = body.String()
	default:
		for st.pos < len(st.lines) && strings.HasPrefix(st.lines[st.pos], st.cfg.QuoteMarker) {
			rest := st.lines[st.pos][len(st.cfg.QuoteMarker):]
			if st.cfg.QuoteSeparator != "" {
				rest = strings.TrimPrefix(rest, st.cfg.QuoteSeparator)
			}
			body.WriteString(rest)
			body.WriteByte('\n')
			st.pos++
		}
		b.Content = strings.TrimSpace(body.String())
	}
	st.add(b)
	return nil
}

func (st *scan) paragraph() {
	start := st.pos
	for st.pos < len(st.lines) && !isBlank(st.lines[st.pos]) {
		st.pos++
	}
	st.add(doctree.Block{
		Content: strings.TrimSpace(strings.Join(st.lines[start:st.pos], "\n")),
		Line:    start + 1,
	})
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dgallion1/notemark/internal/doctree"
	"github.com/dgallion1/notemark/internal/numbering"
	"github.com/dgallion1/notemark/internal/parser"
	"github.com/dgallion1/notemark/internal/refs"
	"github.com/dgallion1/notemark/internal/render"
	"github.com/dgallion1/notemark/internal/sanitize"
)

// Markup describes the document syntax and its presentation. It is read
// from a JSON or TOML file; keys left out keep their defaults.
type Markup struct {
	Directives     []string            `json:"directives" toml:"directives"`
	AllDirectives  []string            `json:"all_directives" toml:"all_directives"` // older name for Directives
	HeaderMarker   string              `json:"header_marker" toml:"header_marker"`
	Continuation   string              `json:"continuation" toml:"continuation"`
	QuoteMarker    string              `json:"quote_marker" toml:"quote_marker"`
	QuoteSeparator *string             `json:"quote_separator" toml:"quote_separator"`
	Terminator     string              `json:"terminator" toml:"terminator"`
	Numbering      []numbering.Node    `json:"numbering" toml:"numbering"`
	Classes        map[string][]string `json:"classes" toml:"classes"`
	Labels         map[string]string   `json:"labels" toml:"labels"`

	DisplayDelims     []sanitize.Pair `json:"latex_display_delims" toml:"latex_display_delims"`
	InlineDelims      []sanitize.Pair `json:"latex_inline_delims" toml:"latex_inline_delims"`
	SanitizeDelimiter string          `json:"latex_sanitize_delimiter" toml:"latex_sanitize_delimiter"`

	RefOpen            string `json:"ref_open" toml:"ref_open"`
	RefClose           string `json:"ref_close" toml:"ref_close"`
	MaxExpansionFactor int    `json:"max_expansion_factor" toml:"max_expansion_factor"`

	Renderer      string `json:"renderer" toml:"renderer"`
	TemplatesPath string `json:"templates_path" toml:"templates_path"`
}

// DefaultMarkup returns the built-in syntax.
func DefaultMarkup() Markup {
	scan := parser.DefaultScanConfig()
	sep := scan.QuoteSeparator
	def := parser.DefaultConfig()
	rc := refs.DefaultConfig()
	return Markup{
		Directives:     scan.Directives,
		HeaderMarker:   string(scan.HeaderMarker),
		Continuation:   string(scan.Continuation),
		QuoteMarker:    scan.QuoteMarker,
		QuoteSeparator: &sep,
		Terminator:     scan.Terminator,
		Numbering:      def.Numbering,
		Classes: map[string][]string{
			"statement": {"DEFINITION", "LEMMA", "PROPOSITION", "THEOREM", "COROLLARY"},
			"aside":     {"EXAMPLE", "EXERCISE", "REMARK", "PROOF"},
		},
		DisplayDelims:      append([]sanitize.Pair(nil), sanitize.DisplayMath...),
		InlineDelims:       append([]sanitize.Pair(nil), sanitize.InlineMath...),
		SanitizeDelimiter:  sanitize.DefaultSentinel,
		RefOpen:            rc.Open,
		RefClose:           rc.Close,
		MaxExpansionFactor: rc.ExpansionFactor,
		Renderer:           render.RendererGoldmark,
	}
}

// LoadMarkup reads a markup file. ".toml" files are decoded as TOML,
// everything else as JSON. An empty path returns the defaults.
func LoadMarkup(path string) (Markup, error) {
	if path == "" {
		return DefaultMarkup(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Markup{}, fmt.Errorf("read markup config: %w", err)
	}
	m, err := ParseMarkup(data, strings.ToLower(filepath.Ext(path)) == ".toml")
	if err != nil {
		return Markup{}, fmt.Errorf("%s: %w", path, err)
	}
	// Relative template directories are relative to the config file.
	if m.TemplatesPath != "" && !filepath.IsAbs(m.TemplatesPath) {
		m.TemplatesPath = filepath.Join(filepath.Dir(path), m.TemplatesPath)
	}
	return m, nil
}

// ParseMarkup decodes a markup config and fills in defaults.
func ParseMarkup(data []byte, isTOML bool) (Markup, error) {
	var m Markup
	if isTOML {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return Markup{}, fmt.Errorf("decode toml: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return Markup{}, fmt.Errorf("decode json: %w", err)
		}
	}
	m.fillDefaults()
	return m, nil
}

func (m *Markup) fillDefaults() {
	def := DefaultMarkup()
	if len(m.Directives) == 0 {
		m.Directives = m.AllDirectives
	}
	m.AllDirectives = nil
	if len(m.Directives) == 0 {
		m.Directives = def.Directives
	}
	if m.HeaderMarker == "" {
		m.HeaderMarker = def.HeaderMarker
	}
	if m.Continuation == "" {
		m.Continuation = def.Continuation
	}
	if m.QuoteMarker == "" {
		m.QuoteMarker = def.QuoteMarker
	}
	if m.QuoteSeparator == nil {
		m.QuoteSeparator = def.QuoteSeparator
	}
	if m.Terminator == "" {
		m.Terminator = def.Terminator
	}
	if m.Numbering == nil {
		m.Numbering = def.Numbering
	}
	if m.Classes == nil {
		m.Classes = def.Classes
	}
	if m.DisplayDelims == nil {
		m.DisplayDelims = def.DisplayDelims
	}
	if m.InlineDelims == nil {
		m.InlineDelims = def.InlineDelims
	}
	if m.SanitizeDelimiter == "" {
		m.SanitizeDelimiter = def.SanitizeDelimiter
	}
	if m.RefOpen == "" {
		m.RefOpen = def.RefOpen
	}
	if m.RefClose == "" {
		m.RefClose = def.RefClose
	}
	if m.MaxExpansionFactor == 0 {
		m.MaxExpansionFactor = def.MaxExpansionFactor
	}
	if m.Renderer == "" {
		m.Renderer = def.Renderer
	}
}

// Validate reports the first problem that would make conversions fail or
// misbehave.
func (m Markup) Validate() error {
	if len(m.HeaderMarker) != 1 {
		return fmt.Errorf("header_marker must be a single character, got %q", m.HeaderMarker)
	}
	if m.MaxExpansionFactor < 0 {
		return fmt.Errorf("max_expansion_factor must not be negative")
	}
	if m.SanitizeDelimiter == "" {
		return fmt.Errorf("latex_sanitize_delimiter must not be empty")
	}
	for _, p := range m.Pairs() {
		if p.Left == "" || p.Right == "" {
			return fmt.Errorf("latex delimiter pair %q/%q has an empty side", p.Left, p.Right)
		}
		if strings.Contains(p.Left, m.SanitizeDelimiter) || strings.Contains(p.Right, m.SanitizeDelimiter) {
			return fmt.Errorf("latex delimiter pair %q/%q contains the sanitize delimiter", p.Left, p.Right)
		}
	}
	if _, err := render.ByName(m.Renderer); err != nil {
		return err
	}
	if _, err := parser.NewScanner(m.ScanConfig()); err != nil {
		return err
	}
	if _, err := numbering.New(m.Numbering); err != nil {
		return fmt.Errorf("numbering: %w", err)
	}

	known := make(map[string]bool, len(m.Directives))
	for _, d := range m.Directives {
		known[d] = true
	}
	var unknown []string
	walkKinds(m.Numbering, func(kind string) {
		header := doctree.Block{Kind: kind}.IsHeader(m.HeaderMarker[0])
		if !known[kind] && !header {
			unknown = append(unknown, kind)
		}
	})
	if len(unknown) > 0 {
		return fmt.Errorf("numbering: kinds %v are neither directives nor headers", unknown)
	}
	for class, kinds := range m.Classes {
		if !doctree.ValidID(class) {
			return fmt.Errorf("classes: name %q must use lowercase letters, digits and hyphens", class)
		}
		if len(kinds) == 0 {
			return fmt.Errorf("classes: %q has no kinds", class)
		}
	}
	return nil
}

func walkKinds(nodes []numbering.Node, fn func(string)) {
	for _, n := range nodes {
		for _, k := range n.Kinds {
			fn(k)
		}
		walkKinds(n.Children, fn)
	}
}

// ScanConfig returns the scanner settings.
func (m Markup) ScanConfig() parser.ScanConfig {
	cfg := parser.ScanConfig{
		Directives:   m.Directives,
		Continuation: parser.Continuation(m.Continuation),
		QuoteMarker:  m.QuoteMarker,
		Terminator:   m.Terminator,
		Classes:      m.Classes,
	}
	if m.HeaderMarker != "" {
		cfg.HeaderMarker = m.HeaderMarker[0]
	}
	if m.QuoteSeparator != nil {
		cfg.QuoteSeparator = *m.QuoteSeparator
	}
	return cfg
}

// ParserConfig returns everything parser.Parse needs.
func (m Markup) ParserConfig() parser.Config {
	return parser.Config{
		Scan:      m.ScanConfig(),
		Numbering: m.Numbering,
		Refs: refs.Config{
			Open:            m.RefOpen,
			Close:           m.RefClose,
			ExpansionFactor: m.MaxExpansionFactor,
		},
	}
}

// Pairs returns display delimiters followed by inline delimiters.
func (m Markup) Pairs() []sanitize.Pair {
	pairs := make([]sanitize.Pair, 0, len(m.DisplayDelims)+len(m.InlineDelims))
	pairs = append(pairs, m.DisplayDelims...)
	return append(pairs, m.InlineDelims...)
}

// NewSanitizer returns a sanitizer for one block.
func (m Markup) NewSanitizer() *sanitize.Sanitizer {
	return sanitize.New(m.Pairs(), m.SanitizeDelimiter)
}

// LinkLookup returns the reference lookup using the configured labels.
func (m Markup) LinkLookup() refs.LinkLookup {
	return refs.LinkLookup{Labels: m.Labels}
}

// PageOptions returns the page assembly settings.
func (m Markup) PageOptions() render.PageOptions {
	opts := render.PageOptions{TemplatesPath: m.TemplatesPath, Labels: m.Labels}
	if m.HeaderMarker != "" {
		opts.HeaderMarker = m.HeaderMarker[0]
	}
	return opts
}

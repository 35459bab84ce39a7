package doctree

import (
	"regexp"
	"strconv"
	"strings"
)

// Document is the result of parsing one block-markup text.
type Document struct {
	Title  string  // Title of the first header block, if any
	Blocks []Block // Blocks in source order
}

// Block is one typed unit of document content.
type Block struct {
	Kind    string   `json:"kind"`    // Header marker run, directive name, or "" for paragraphs
	ID      string   `json:"id"`      // Cross-reference target, "" if none
	Title   string   `json:"title"`   // Caption text
	Content string   `json:"content"` // Body text (empty for headers)
	Number  Number   `json:"number"`  // Hierarchical number, empty when unnumbered
	Classes []string `json:"classes"` // Configured classes this block's kind belongs to
	Line    int      `json:"line"`    // 1-based source line of the block's first line
}

// Number is a hierarchical position such as [2 1] for "section 2, item 1".
type Number []int

// Dotted renders the number as "2.1".
func (n Number) Dotted() string {
	return n.join(".")
}

// Scored renders the number as "2_1", suitable for anchors.
func (n Number) Scored() string {
	return n.join("_")
}

func (n Number) join(sep string) string {
	parts := make([]string, len(n))
	for i, v := range n {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

// Equal reports whether two numbers hold the same counters.
func (n Number) Equal(other Number) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}

// IsParagraph reports whether the block is untyped prose.
func (b Block) IsParagraph() bool {
	return b.Kind == ""
}

// IsHeader reports whether the block kind is a run of the given marker.
func (b Block) IsHeader(marker byte) bool {
	if b.Kind == "" {
		return false
	}
	for i := 0; i < len(b.Kind); i++ {
		if b.Kind[i] != marker {
			return false
		}
	}
	return true
}

// Is reports whether the block belongs to the named class.
func (b Block) Is(class string) bool {
	for _, c := range b.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Anchor returns the HTML anchor for the block: its id when set, otherwise
// a slug built from the kind, number and title.
func (b Block) Anchor() string {
	if b.ID != "" {
		return b.ID
	}
	parts := []string{}
	if kind := Slugify(b.Kind); kind != "" {
		parts = append(parts, kind)
	}
	if len(b.Number) > 0 {
		parts = append(parts, b.Number.Scored())
	}
	if title := Slugify(b.Title); title != "" {
		parts = append(parts, title)
	}
	if len(parts) == 0 {
		return "line-" + strconv.Itoa(b.Line)
	}
	return strings.Join(parts, "-")
}

// Lookup returns the first block with the given id.
func (d *Document) Lookup(id string) (*Block, bool) {
	return Find(d.Blocks, id)
}

// Find returns the first block in blocks with the given id. Duplicate ids
// resolve to the earliest block.
func Find(blocks []Block, id string) (*Block, bool) {
	if id == "" {
		return nil, false
	}
	for i := range blocks {
		if blocks[i].ID == id {
			return &blocks[i], true
		}
	}
	return nil, false
}

// DuplicateIDs returns every id used by more than one block, in order of
// first repetition.
func DuplicateIDs(blocks []Block) []string {
	seen := make(map[string]int)
	var dups []string
	for _, b := range blocks {
		if b.ID == "" {
			continue
		}
		seen[b.ID]++
		if seen[b.ID] == 2 {
			dups = append(dups, b.ID)
		}
	}
	return dups
}

var (
	idPattern   = regexp.MustCompile(`^[a-z0-9-]+$`)
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// ValidID reports whether s uses only lowercase alphanumerics and hyphens.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// Slugify converts a string to an anchor-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

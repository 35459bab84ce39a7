// Package numbering assigns hierarchical numbers to blocks from a tree of
// counter groups.
//
// The tree passed to New is configuration and is never modified. Each Engine
// keeps its own counters, so one Engine numbers exactly one document.
package numbering

import (
	"errors"
	"fmt"

	"github.com/dgallion1/notemark/internal/doctree"
)

// Node declares the block kinds that advance one counter and the nested
// counting scopes below it.
type Node struct {
	Kinds    []string `json:"types" toml:"types"`
	Children []Node   `json:"children" toml:"children"`
}

// ErrEngineUsed is returned when Assign is called a second time.
var ErrEngineUsed = errors.New("numbering engine already used for a document")

// AmbiguousKindError reports a kind configured on more than one node.
type AmbiguousKindError struct {
	Kind string
}

func (e *AmbiguousKindError) Error() string {
	return fmt.Sprintf("numbering: kind %q appears in more than one counter node", e.Kind)
}

// counter is the runtime mirror of one Node. Nodes are stored in depth-first
// preorder, so the subtree of node i occupies indices (i, end).
type counter struct {
	parent int
	end    int
	count  int
}

// Engine holds the live counters for one numbering pass.
type Engine struct {
	counters []counter
	byKind   map[string]int
	used     bool
}

// New validates the tree and returns an engine with all counters at zero.
func New(tree []Node) (*Engine, error) {
	e := &Engine{byKind: make(map[string]int)}
	for _, root := range tree {
		if err := e.flatten(root, -1); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) flatten(n Node, parent int) error {
	idx := len(e.counters)
	e.counters = append(e.counters, counter{parent: parent})
	for _, kind := range n.Kinds {
		if _, dup := e.byKind[kind]; dup {
			return &AmbiguousKindError{Kind: kind}
		}
		e.byKind[kind] = idx
	}
	for _, child := range n.Children {
		if err := e.flatten(child, idx); err != nil {
			return err
		}
	}
	e.counters[idx].end = len(e.counters)
	return nil
}

// Track advances the counter owning kind, resets everything nested under
// it, and returns the counter path from the tree root down to that node.
// Kinds not present in the tree yield an empty number.
func (e *Engine) Track(kind string) doctree.Number {
	idx, ok := e.byKind[kind]
	if !ok {
		return doctree.Number{}
	}
	e.counters[idx].count++
	for i := idx + 1; i < e.counters[idx].end; i++ {
		e.counters[i].count = 0
	}

	depth := 0
	for i := idx; i >= 0; i = e.counters[i].parent {
		depth++
	}
	num := make(doctree.Number, depth)
	for i := idx; i >= 0; i = e.counters[i].parent {
		depth--
		num[depth] = e.counters[i].count
	}
	return num
}

// Assign numbers every block in order.
func (e *Engine) Assign(blocks []doctree.Block) error {
	if e.used {
		return ErrEngineUsed
	}
	e.used = true
	for i := range blocks {
		blocks[i].Number = e.Track(blocks[i].Kind)
	}
	return nil
}

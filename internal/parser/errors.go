package parser

import "fmt"

// MalformedDirectiveError reports a directive whose terminator never
// appears before the end of input.
type MalformedDirectiveError struct {
	Kind string
	Line int // 1-based line of the opening directive
}

func (e *MalformedDirectiveError) Error() string {
	return fmt.Sprintf("line %d: %s directive is never terminated", e.Line, e.Kind)
}

package filter

import (
	"errors"
	"fmt"
)

// ErrUnknownGrammar is returned by NewParser for an unregistered version/variant pair.
var ErrUnknownGrammar = errors.New("unknown filter grammar")

// SyntaxError reports a filter string that is not well-formed.
type SyntaxError struct {
	// Offset is the byte offset of the offending token in the filter string.
	Offset int
	// Message is a human-readable cause.
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("filter syntax error at offset %d: %s", e.Offset, e.Message)
}

func syntaxErrorf(offset int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}

package spec

import (
	"fmt"
	"strings"
)

// CyclicReferenceError reports a $ref chain that loops back on itself.
// Resolution aborts rather than expanding the cycle forever.
type CyclicReferenceError struct {
	Cycle []string
}

func (e *CyclicReferenceError) Error() string {
	return fmt.Sprintf("cyclic reference: %s", strings.Join(e.Cycle, " -> "))
}

// UnresolvedReferenceError reports a $ref whose target does not exist in
// the document.
type UnresolvedReferenceError struct {
	Ref string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %q", e.Ref)
}

// DocumentError reports a structurally invalid specification document.
type DocumentError struct {
	Path   string
	Reason string
}

func (e *DocumentError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid document: %s", e.Reason)
	}
	return fmt.Sprintf("invalid document at %s: %s", e.Path, e.Reason)
}

func documentErrorf(path, format string, args ...any) *DocumentError {
	return &DocumentError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

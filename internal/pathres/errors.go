package pathres

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution errors.
var (
	// ErrUnresolved is returned when no rule matches the expression.
	ErrUnresolved = errors.New("could not resolve path expression")

	// ErrAboveRoot is returned when relative navigation would climb past
	// the filesystem root.
	ErrAboveRoot = errors.New("cannot navigate above filesystem root")

	// ErrOutsideRoot is returned when a resolved path falls outside the
	// configured workspace root.
	ErrOutsideRoot = errors.New("path is outside the workspace root")
)

// AmbiguousError is returned when an expression matches more than one
// directory entry equally well. Candidates carry the real entry names so the
// caller can surface them instead of guessing.
type AmbiguousError struct {
	Expression string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous path %q: matches %s", e.Expression, strings.Join(e.Candidates, ", "))
}

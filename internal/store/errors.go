package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Read and Update when the target file is absent.
var ErrNotFound = errors.New("file not found")

// PathError reports a rejected document path. Rejection is fail-closed: any
// path that is absolute, empty, or escapes the root is refused before the
// filesystem is touched.
type PathError struct {
	Path   string
	Reason error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid path %q: %v", e.Path, e.Reason)
}

func (e *PathError) Unwrap() error { return e.Reason }

func notFound(rel string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, rel)
}

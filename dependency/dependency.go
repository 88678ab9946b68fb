// Package dependency reports external tooling (document rasterisers, OCR
// engines) that the pipeline needs but cannot reach. It is the only failure
// the pipeline surfaces to its callers as a hard error.
package dependency

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrMissing matches every *Error via errors.Is.
var ErrMissing = errors.New("required dependency missing")

// Error names the tool that is missing or failing.
type Error struct {
	Tool string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrMissing, e.Tool)
	}
	return fmt.Sprintf("%s: %s: %v", ErrMissing, e.Tool, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is ErrMissing.
func (e *Error) Is(target error) bool { return target == ErrMissing }

// Missing wraps err as a dependency failure for tool.
func Missing(tool string, err error) error {
	return &Error{Tool: tool, Err: err}
}

// Lookup resolves a binary on PATH. A miss is reported as *Error.
func Lookup(tool string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", Missing(tool, err)
	}
	return path, nil
}

// Tool extracts the tool name from err, if err is a dependency failure.
func Tool(err error) (string, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Tool, true
	}
	return "", false
}

package tzdata

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord is wrapped by errors for lines that match no record shape.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrOrphanContinuation is wrapped by errors for continuation lines with no open zone.
	ErrOrphanContinuation = errors.New("orphan continuation")
)

// ParseError is an error on one source line.
type ParseError struct {
	Pos  Pos
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q: %v", e.Pos, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}

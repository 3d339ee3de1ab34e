package bundle

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ngrash/tzbundle/tzdata"
)

// ErrorKind is a coarse-grained categorization for build errors and warnings.
// It implements error so that errors.Is(err, KindDuplicateZone) works on
// joined build errors.
type ErrorKind string

const (
	KindUnreadableSource    ErrorKind = "unreadable_source"
	KindMalformedRecord     ErrorKind = "malformed_record"
	KindOrphanContinuation  ErrorKind = "orphan_continuation"
	KindDuplicateZone       ErrorKind = "duplicate_zone"
	KindDuplicateLink       ErrorKind = "duplicate_link"
	KindDanglingRule        ErrorKind = "dangling_rule"
	KindUnresolvedAlias     ErrorKind = "unresolved_alias"
	KindAliasCycle          ErrorKind = "alias_cycle"
	KindOrphanMetadata      ErrorKind = "orphan_metadata"
	KindShadowedLink        ErrorKind = "shadowed_link"
	KindUnknownPlatformZone ErrorKind = "unknown_platform_zone"
)

func (k ErrorKind) Error() string {
	return string(k)
}

// Error is a build error or warning about one named object.
type Error struct {
	Kind ErrorKind
	Name string     // zone, link, rule set or platform name; optional
	Pos  tzdata.Pos // optional
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := string(e.Kind)
	if e.Pos != (tzdata.Pos{}) {
		base = e.Pos.String() + ": " + base
	}
	if e.Name != "" {
		base += " " + strconv.Quote(e.Name)
	}
	if e.Err != nil {
		base += ": " + e.Err.Error()
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && e.Kind == k
}

// IsKind reports whether err, or any error it wraps or joins, is of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return errors.Is(err, kind)
}

// Errors flattens err into the *Error values it joins, in order.
func Errors(err error) []*Error {
	var out []*Error
	var walk func(error)
	walk = func(err error) {
		if e, ok := err.(*Error); ok {
			out = append(out, e)
			return
		}
		if j, ok := err.(interface{ Unwrap() []error }); ok {
			for _, err := range j.Unwrap() {
				walk(err)
			}
		}
	}
	if err != nil {
		walk(err)
	}
	return out
}

func newError(kind ErrorKind, name string, pos tzdata.Pos, format string, args ...any) *Error {
	var err error
	if format != "" {
		err = fmt.Errorf(format, args...)
	}
	return &Error{Kind: kind, Name: name, Pos: pos, Err: err}
}

// recordErrors classifies the per-line errors returned by tzdata.Parse.
// Positions are left to the wrapped *tzdata.ParseError.
func recordErrors(err error) []*Error {
	if err == nil {
		return nil
	}
	var errs []error
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs = j.Unwrap()
	} else {
		errs = []error{err}
	}
	out := make([]*Error, 0, len(errs))
	for _, err := range errs {
		kind := KindMalformedRecord
		if errors.Is(err, tzdata.ErrOrphanContinuation) {
			kind = KindOrphanContinuation
		}
		out = append(out, &Error{Kind: kind, Err: err})
	}
	return out
}

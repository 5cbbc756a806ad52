package sats

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a codec failure.
type ErrorKind int

const (
	// InvalidSchema reports a descriptor that cannot be constructed, such as
	// a product with two fields of the same name.
	InvalidSchema ErrorKind = iota + 1
	// TypeMismatch reports a value whose shape does not match its descriptor.
	TypeMismatch
	// TruncatedInput reports a reader exhausted in the middle of a value.
	TruncatedInput
	// InvalidTag reports a sum tag (or presence/bool byte) out of range.
	InvalidTag
	// InvalidLength reports a length prefix that exceeds the remaining input.
	InvalidLength
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidSchema:
		return "InvalidSchema"
	case TypeMismatch:
		return "TypeMismatch"
	case TruncatedInput:
		return "TruncatedInput"
	case InvalidTag:
		return "InvalidTag"
	case InvalidLength:
		return "InvalidLength"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the error type returned by every operation in this package.
type Error struct {
	Kind ErrorKind
	// Path names the offending field or variant, e.g. "args.msg" or
	// "rows[2].name.some". Empty when the failure is at the top level.
	Path    string
	Message string
}

// Sentinels for use with errors.Is. ErrSats matches any *Error.
var (
	ErrSats           = &Error{}
	ErrInvalidSchema  = &Error{Kind: InvalidSchema}
	ErrTypeMismatch   = &Error{Kind: TypeMismatch}
	ErrTruncatedInput = &Error{Kind: TruncatedInput}
	ErrInvalidTag     = &Error{Kind: InvalidTag}
	ErrInvalidLength  = &Error{Kind: InvalidLength}
)

// Registry lookup failures.
var (
	ErrUnknownTable   = errors.New("sats: unknown table")
	ErrUnknownReducer = errors.New("sats: unknown reducer")
)

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is supports errors.Is. A target with a zero Kind matches any *Error;
// otherwise the kinds must be equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == 0 || t.Kind == e.Kind
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// atPath stamps err with path if it is an *Error that has no path yet.
func atPath(err error, path string) error {
	var e *Error
	if path == "" || !errors.As(err, &e) || e.Path != "" {
		return err
	}
	return &Error{Kind: e.Kind, Path: path, Message: e.Message}
}

// prefixPath prepends seg to the path of err when err is an *Error.
func prefixPath(err error, seg string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	path := seg
	switch {
	case e.Path == "":
	case strings.HasPrefix(e.Path, "["):
		path += e.Path
	default:
		path += "." + e.Path
	}
	return &Error{Kind: e.Kind, Path: path, Message: e.Message}
}

// KindOf returns the ErrorKind of err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

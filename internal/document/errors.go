package document

import (
	"errors"
	"fmt"
)

// Kind classifies structural failures. Content anomalies are never errors.
type Kind int

const (
	// InvalidInputKind: the input is neither a path nor a conversion result.
	InvalidInputKind Kind = iota + 1
	// NotFoundKind: a referenced source or cache file does not exist.
	NotFoundKind
	// MalformedCacheKind: a cached conversion result failed validation.
	// Callers treat it as a cache miss.
	MalformedCacheKind
)

func (k Kind) String() string {
	switch k {
	case InvalidInputKind:
		return "invalid input"
	case NotFoundKind:
		return "not found"
	case MalformedCacheKind:
		return "malformed cache"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput   = &Error{Kind: InvalidInputKind}
	ErrNotFound       = &Error{Kind: NotFoundKind}
	ErrMalformedCache = &Error{Kind: MalformedCacheKind}
)

// Error is a typed document error carrying the offending path.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of Op and Path.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Package xeterr defines the error kinds shared by every XET component, as
// specified in §7. It generalizes the teacher's pkg/wire.Error (a numeric
// protocol error code with an optional retry hint) into the closed set of
// kinds a CAS client can fail with.
package xeterr

import "fmt"

// Kind identifies the category of failure, per §7.
type Kind int

const (
	// Unknown is the zero value; never constructed deliberately.
	Unknown Kind = iota

	// Truncated means a parser ran out of bytes before it finished a record.
	Truncated
	// BadMagic means a header's magic tag did not match.
	BadMagic
	// UnsupportedVersion means a header declared a version this code does not handle.
	UnsupportedVersion
	// OversizeXorb means a xorb builder rejected a chunk because the xorb is full.
	OversizeXorb
	// InvalidCompression means a chunk header named an unknown compression mode.
	InvalidCompression
	// RemoteError means the CAS server returned a non-2xx HTTP status.
	RemoteError
	// RemoteTimeout means an HTTP request exceeded its session timeout.
	RemoteTimeout
	// HashMismatch means a recomputed hash differs from the declared one.
	HashMismatch
)

func (k Kind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case BadMagic:
		return "bad_magic"
	case UnsupportedVersion:
		return "unsupported_version"
	case OversizeXorb:
		return "oversize_xorb"
	case InvalidCompression:
		return "invalid_compression"
	case RemoteError:
		return "remote_error"
	case RemoteTimeout:
		return "remote_timeout"
	case HashMismatch:
		return "hash_mismatch"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every XET package.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status, only meaningful for Kind == RemoteError
	URL     string
	Cause   error
}

// New creates an *Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error that wraps cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewRemoteError creates a RemoteError carrying the HTTP status and the URL
// that produced it, per §4.7 ("Non-404 HTTP errors propagate as a single
// RemoteError{status, url} kind").
func NewRemoteError(status int, url string) *Error {
	return &Error{
		Kind:    RemoteError,
		Message: fmt.Sprintf("remote returned status %d", status),
		Status:  status,
		URL:     url,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == RemoteError {
		return fmt.Sprintf("xet: %s: status=%d url=%s", e.Kind, e.Status, e.URL)
	}
	if e.Cause != nil {
		return fmt.Sprintf("xet: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("xet: %s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, xeterr.Truncated) style comparisons work against a
// sentinel *Error carrying only a Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel returns a comparable *Error for use with errors.Is, e.g.
// errors.Is(err, xeterr.Sentinel(xeterr.Truncated)).
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

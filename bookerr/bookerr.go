// Package bookerr defines the single error-kind sum type shared by every
// format boundary in bookforge.
package bookerr

import "fmt"

// Kind classifies why an operation failed. Every exported parse/write
// operation that can fail returns an *Error carrying one of these.
type Kind int

const (
	// InputIo means the underlying byte source failed a read (short read,
	// closed handle).
	InputIo Kind = iota + 1
	// InvalidContainer means a structural expectation of the outer format
	// was violated (bad ZIP central directory, PalmDB offsets out of
	// order, missing CONT magic).
	InvalidContainer
	// InvalidHeader means a header magic or length field inside an
	// otherwise valid container was wrong (no "EXTH", INDX without IDXT).
	InvalidHeader
	// UnsupportedFeature means encrypted MOBI, unrecognized compression,
	// an Ion type outside the supported subset, or an unsupported ZIP
	// compression method.
	UnsupportedFeature
	// MissingReference means a declared id did not resolve (OPF spine
	// item absent from manifest, TOC target missing from every chapter).
	MissingReference
	// TextDecode means bytes declared as UTF-8 failed to decode and no
	// fallback was available.
	TextDecode
	// WriteIo means the downstream writer rejected bytes.
	WriteIo
)

func (k Kind) String() string {
	switch k {
	case InputIo:
		return "input_io"
	case InvalidContainer:
		return "invalid_container"
	case InvalidHeader:
		return "invalid_header"
	case UnsupportedFeature:
		return "unsupported_feature"
	case MissingReference:
		return "missing_reference"
	case TextDecode:
		return "text_decode"
	case WriteIo:
		return "write_io"
	default:
		return "unknown"
	}
}

// Error is the sum type every format boundary returns on failure. Context
// is a free-form string added by the call site (e.g. a record index or
// file path); Cause, when non-nil, is the underlying error being wrapped.
type Error struct {
	Kind    Kind
	Context string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		if e.Context != "" {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Context)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is match on Kind alone when the target is an *Error,
// e.g. errors.Is(err, bookerr.Sentinel(bookerr.InputIo)).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New builds an *Error of the given kind with a context string.
func New(kind Kind, context string) *Error {
	return &Error{Kind: kind, Context: context}
}

// Wrap builds an *Error of the given kind wrapping cause, with a context
// string describing where the failure occurred.
func Wrap(kind Kind, context string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Cause: cause}
}

// Sentinel wraps a bare Kind as an *Error with no context, so callers can
// write errors.Is(err, bookerr.Sentinel(bookerr.InputIo)).
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }

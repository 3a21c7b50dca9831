// Package symerrors has the error kinds that the analysis core surfaces to
// its callers, per the error handling design: every kind is returned to the
// caller and none are retried internally.
package symerrors

import "fmt"

// Kind identifies which of the fixed error categories a kindedError belongs
// to. Callers that need to branch on error category use KindOf or Is below,
// both of which look through wrapped causes.
type Kind int

const (
	// KindArityMismatch is returned when a term is constructed with the
	// wrong number of arguments for its symbol.
	KindArityMismatch Kind = iota
	// KindParseError is returned when textual term input is malformed.
	KindParseError
	// KindCycleDetected is returned when a filtered topological sort finds
	// a cycle in the filtered edge set.
	KindCycleDetected
	// KindCancelled is returned when a cooperative cancellation check
	// observes that the caller asked the operation to stop.
	KindCancelled
	// KindStateOverflow is returned when a state or label index would
	// exceed the packed-representation limits.
	KindStateOverflow
	// KindInternalInvariantViolation is returned instead of aborting when
	// a release build observes a programmer error (partition
	// inconsistency, stack underflow, protection-set desync).
	KindInternalInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindArityMismatch:
		return "ArityMismatch"
	case KindParseError:
		return "ParseError"
	case KindCycleDetected:
		return "CycleDetected"
	case KindCancelled:
		return "Cancelled"
	case KindStateOverflow:
		return "StateOverflow"
	case KindInternalInvariantViolation:
		return "InternalInvariantViolation"
	default:
		return "UnknownErrorKind"
	}
}

// kindedError is a typed error carrying a Kind, a technical message, and an
// optional wrapped cause.
type kindedError struct {
	kind Kind
	msg  string
	wrap error
}

func (e *kindedError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *kindedError) Unwrap() error {
	return e.wrap
}

// Kind returns the error's Kind.
func (e *kindedError) Kind() Kind {
	return e.kind
}

// New returns a new error of the given kind with the given technical
// message.
func New(kind Kind, msg string) error {
	return &kindedError{kind: kind, msg: msg}
}

// Newf is like New but builds msg from a format string and arguments.
func Newf(kind Kind, format string, a ...interface{}) error {
	return New(kind, fmt.Sprintf(format, a...))
}

// Wrap returns a new error of the given kind that wraps cause.
func Wrap(kind Kind, cause error, msg string) error {
	if msg == "" {
		msg = fmt.Sprintf("got %s", kind)
	}
	return &kindedError{kind: kind, msg: msg, wrap: cause}
}

// Wrapf is like Wrap but builds msg from a format string and arguments.
func Wrapf(kind Kind, cause error, format string, a ...interface{}) error {
	return Wrap(kind, cause, fmt.Sprintf(format, a...))
}

// KindOf returns the Kind of err if it (or something it wraps) is a
// kindedError, and ok=false otherwise.
func KindOf(err error) (k Kind, ok bool) {
	type kinder interface{ Kind() Kind }
	for err != nil {
		if ke, isKinder := err.(kinder); isKinder {
			return ke.Kind(), true
		}
		unwrapper, isWrapper := err.(interface{ Unwrap() error })
		if !isWrapper {
			break
		}
		err = unwrapper.Unwrap()
	}
	return 0, false
}

// Is reports whether err is (or wraps) an error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// ArityMismatch builds a KindArityMismatch error.
func ArityMismatch(format string, a ...interface{}) error {
	return Newf(KindArityMismatch, format, a...)
}

// ParseError builds a KindParseError error.
func ParseError(format string, a ...interface{}) error {
	return Newf(KindParseError, format, a...)
}

// CycleDetected builds a KindCycleDetected error.
func CycleDetected(format string, a ...interface{}) error {
	return Newf(KindCycleDetected, format, a...)
}

// Cancelled builds a KindCancelled error.
func Cancelled(format string, a ...interface{}) error {
	return Newf(KindCancelled, format, a...)
}

// StateOverflow builds a KindStateOverflow error.
func StateOverflow(format string, a ...interface{}) error {
	return Newf(KindStateOverflow, format, a...)
}

// InternalInvariantViolation builds a KindInternalInvariantViolation error.
// In debug builds callers may prefer to panic instead; this constructor is
// for the release-mode non-corrupting path described in the error handling
// design.
func InternalInvariantViolation(format string, a ...interface{}) error {
	return Newf(KindInternalInvariantViolation, format, a...)
}

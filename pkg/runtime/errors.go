package runtime

import (
	"errors"
	"fmt"

	"squiggle/interpreter-go/pkg/dist"
)

// ErrorKind classifies evaluation failures.
type ErrorKind int

const (
	ErrOther ErrorKind = iota
	ErrNotAFunction
	ErrNotADecorator
	ErrArity
	ErrNoMatchingSignature
	ErrAmbiguous
	ErrArrayIndexNotFound
	ErrDictPropertyNotFound
	ErrExpectedType
	ErrDomain
	ErrDistribution
	ErrArgument
	ErrThrow
	ErrCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNotAFunction:
		return "NotAFunction"
	case ErrNotADecorator:
		return "NotADecorator"
	case ErrArity:
		return "ArityError"
	case ErrNoMatchingSignature:
		return "NoMatchingSignature"
	case ErrAmbiguous:
		return "Ambiguous"
	case ErrArrayIndexNotFound:
		return "ArrayIndexNotFound"
	case ErrDictPropertyNotFound:
		return "DictPropertyNotFound"
	case ErrExpectedType:
		return "ExpectedType"
	case ErrDomain:
		return "DomainError"
	case ErrDistribution:
		return "DistributionError"
	case ErrArgument:
		return "ArgumentError"
	case ErrThrow:
		return "Throw"
	case ErrCancelled:
		return "Cancelled"
	default:
		return "Other"
	}
}

// Error is a value-level evaluation failure without source position; the
// interpreter attaches locations and frames.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrArity, ErrNoMatchingSignature, ErrThrow, ErrCancelled:
		return e.Message
	case ErrNotAFunction:
		return e.Message + " is not a function"
	case ErrNotADecorator:
		return e.Message + " is not a decorator"
	case ErrExpectedType:
		return "Expected type: " + e.Message
	case ErrDomain:
		return "Domain Error: " + e.Message
	case ErrDistribution:
		if e.Err != nil {
			return "Distribution Math Error: " + e.Err.Error()
		}
		return "Distribution Math Error: " + e.Message
	case ErrArgument:
		return "Argument Error: " + e.Message
	case ErrAmbiguous:
		return "Ambiguous Error: " + e.Message
	case ErrArrayIndexNotFound, ErrDictPropertyNotFound:
		return e.Message
	default:
		return "Error: " + e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ArityError(expected, got int) *Error {
	return NewError(ErrArity, "%d arguments expected. Instead %d argument(s) were passed.", expected, got)
}

func ExpectedTypeError(typeName string, got Value) *Error {
	return NewError(ErrExpectedType, "%s but got: %s", typeName, ToString(got))
}

// ErrCancelledEvaluation is returned once the evaluation context is done.
var ErrCancelledEvaluation = &Error{Kind: ErrCancelled, Message: "Evaluation cancelled"}

// DistError wraps a distribution failure; other errors pass through.
func DistError(err error) error {
	if err == nil {
		return nil
	}
	var de *dist.Error
	var oe *dist.OperationError
	if errors.As(err, &de) && de.Kind == dist.ArgumentError {
		return &Error{Kind: ErrArgument, Message: de.Message, Err: err}
	}
	if errors.As(err, &de) || errors.As(err, &oe) {
		return &Error{Kind: ErrDistribution, Err: err}
	}
	return err
}

// KindOf returns the kind of err, or ErrOther when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrOther
}

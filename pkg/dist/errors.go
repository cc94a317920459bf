package dist

import (
	"errors"
	"fmt"
)

// OperationErrorKind classifies failures of a single scalar operation.
type OperationErrorKind int

const (
	DivisionByZero OperationErrorKind = iota
	ComplexNumber
	Infinity
	NegativeInfinity
	SampleMapNeedsNtoNFunction
	PdfInvalid
	OtherOperationError
)

// OperationError is returned by scalar operations such as division.
type OperationError struct {
	Kind    OperationErrorKind
	Message string
}

func (e *OperationError) Error() string {
	switch e.Kind {
	case DivisionByZero:
		return "Cannot divide by zero"
	case ComplexNumber:
		return "Operation returned complex result"
	case Infinity:
		return "Operation returned positive infinity"
	case NegativeInfinity:
		return "Operation returned negative infinity"
	case SampleMapNeedsNtoNFunction:
		return "SampleMap needs a function that converts a number to a number"
	case PdfInvalid:
		return "This Pdf is invalid"
	default:
		return e.Message
	}
}

// ErrorKind classifies distribution errors.
type ErrorKind int

const (
	NotYetImplemented ErrorKind = iota
	Unreachable
	DistributionVerticalShiftIsInvalid
	TooFewSamples
	TooFewSamplesForConversionToPointSet
	ArgumentError
	OperationFailed
	LogarithmOfDistribution
	XYShapeError
	RequestedStrategyInvalid
	OtherError
)

// Error is the error type of every fallible distribution operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Op      *OperationError
}

func (e *Error) Error() string {
	switch e.Kind {
	case NotYetImplemented:
		return "Function not yet implemented"
	case Unreachable:
		return "Unreachable"
	case DistributionVerticalShiftIsInvalid:
		return "Distribution vertical shift is invalid"
	case TooFewSamples:
		return "Too few samples when constructing sample set"
	case TooFewSamplesForConversionToPointSet:
		return "Too Few Samples to convert to point set"
	case OperationFailed:
		if e.Op != nil {
			return e.Op.Error()
		}
		return e.Message
	case LogarithmOfDistribution:
		return "Logarithm of input error: " + e.Message
	case XYShapeError:
		return "XY Shape Error: " + e.Message
	case RequestedStrategyInvalid:
		return "Requested strategy invalid: " + e.Message
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e.Op != nil {
		return e.Op
	}
	return nil
}

// ErrUnreachable is returned when strategy selection ends up in a state it
// cannot act on.
var ErrUnreachable = &Error{Kind: Unreachable}

func argumentError(format string, args ...any) *Error {
	return &Error{Kind: ArgumentError, Message: fmt.Sprintf(format, args...)}
}

func otherError(msg string) *Error {
	return &Error{Kind: OtherError, Message: msg}
}

// wrapOperation turns a scalar failure into a distribution error.
func wrapOperation(err error) error {
	var op *OperationError
	if errors.As(err, &op) {
		return &Error{Kind: OperationFailed, Op: op}
	}
	return err
}

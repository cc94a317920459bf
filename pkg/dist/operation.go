package dist

import (
	"math"

	"squiggle/interpreter-go/pkg/dist/pointset"
)

// AlgebraicOp is a binary operation on the random variables themselves.
type AlgebraicOp int

const (
	OpAdd AlgebraicOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpPower
	OpLogarithm
)

func (op AlgebraicOp) String() string {
	switch op {
	case OpAdd:
		return "Add"
	case OpSubtract:
		return "Subtract"
	case OpMultiply:
		return "Multiply"
	case OpDivide:
		return "Divide"
	case OpPower:
		return "Power"
	default:
		return "Logarithm"
	}
}

// Symbol is the operator used when recording sample-set lineage.
func (op AlgebraicOp) Symbol() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpPower:
		return "^"
	default:
		return "log"
	}
}

// Apply evaluates the operation on two numbers.
func (op AlgebraicOp) Apply(a, b float64) (float64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSubtract:
		return a - b, nil
	case OpMultiply:
		return a * b, nil
	case OpDivide:
		if b == 0 {
			return 0, &OperationError{Kind: DivisionByZero}
		}
		return a / b, nil
	case OpPower:
		if a < 0 && b != math.Trunc(b) {
			return 0, &OperationError{Kind: ComplexNumber}
		}
		return math.Pow(a, b), nil
	default:
		return logarithm(a, b)
	}
}

// logarithm is log base b of a.
func logarithm(a, b float64) (float64, error) {
	switch {
	case b == 1:
		return 0, &OperationError{Kind: DivisionByZero}
	case b == 0:
		return 0, nil
	case a > 0 && b > 0:
		return math.Log(a) / math.Log(b), nil
	case a == 0:
		return 0, &OperationError{Kind: NegativeInfinity}
	default:
		return 0, &OperationError{Kind: ComplexNumber}
	}
}

func (op AlgebraicOp) convolution() (pointset.ConvolutionOp, bool) {
	switch op {
	case OpAdd:
		return pointset.ConvAdd, true
	case OpSubtract:
		return pointset.ConvSubtract, true
	case OpMultiply:
		return pointset.ConvMultiply, true
	}
	return 0, false
}

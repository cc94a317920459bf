package compiler

// IndexLookupFunction is the builtin that implements `a.b` and `a[b]`.
const IndexLookupFunction = "$_atIndex_$"

var infixFunctions = map[string]string{
	"+":  "add",
	"-":  "subtract",
	"*":  "multiply",
	"/":  "divide",
	"^":  "pow",
	".+": "dotAdd",
	".-": "dotSubtract",
	".*": "dotMultiply",
	"./": "dotDivide",
	".^": "dotPow",
	"==": "equal",
	"!=": "unequal",
	"<":  "smaller",
	"<=": "smallerEq",
	">":  "larger",
	">=": "largerEq",
	"&&": "and",
	"||": "or",
	"to": "credibleIntervalToDistribution",
}

var unaryFunctions = map[string]string{
	"-":  "unaryMinus",
	"!":  "not",
	".-": "unaryDotMinus",
}

// InfixFunction returns the builtin name an infix operator desugars to.
func InfixFunction(op string) (string, bool) {
	name, ok := infixFunctions[op]
	return name, ok
}

// UnaryFunction returns the builtin name a prefix operator desugars to.
func UnaryFunction(op string) (string, bool) {
	name, ok := unaryFunctions[op]
	return name, ok
}

// UnitFunction names the builtin that scales a literal with the given unit
// suffix, such as fromUnit_k.
func UnitFunction(unit string) string { return "fromUnit_" + unit }

// DecoratorFunction names the builtin that applies @name.
func DecoratorFunction(name string) string { return "Tag." + name }

// Package typechecker checks unit-type annotations such as `x :: m/s = 1`.
// Every variable gets an unknown unit dimension; multiplication and division
// combine dimensions, while addition, subtraction, comparison and `to`
// require both sides to agree. The resulting linear system is solved by
// Gaussian elimination and any row that reduces to `0 = units` is reported
// as a conflict. The checker only reports; it never rewrites the program.
package typechecker

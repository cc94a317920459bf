// Package interpreter reduces compiled IR programs to values. Evaluation
// uses an explicit value stack for locals and a captures vector for the
// enclosing lambda's closed-over values; builtins are dispatched through the
// runtime registry and call back into user lambdas through the reducer.
// Runtime failures carry the failing node's location and a stack trace of
// user lambda frames.
package interpreter

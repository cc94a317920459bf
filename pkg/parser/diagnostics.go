package parser

import (
	"errors"
	"fmt"

	"squiggle/interpreter-go/pkg/ast"
)

// ParseError includes a message plus the source location it refers to.
type ParseError struct {
	Message  string
	Location ast.LocationRange
	// Incomplete is set when the input ended before the construct did; the
	// REPL uses it to ask for another line.
	Incomplete bool
}

func (e *ParseError) Error() string {
	return e.Message
}

// IsIncomplete reports whether err is a parse error caused by truncated input.
func IsIncomplete(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr) && perr.Incomplete
}

func describeToken(tok Token) string {
	switch tok.Type {
	case EOF:
		return "end of input"
	case STRING:
		return fmt.Sprintf("%q", tok.Str)
	default:
		return fmt.Sprintf("%q", tok.Lexeme)
	}
}

func (p *parser) errorf(tok Token, format string, args ...any) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Location: ast.LocationRange{
			Source: p.sourceID,
			Start:  tok.Start,
			End:    tok.End,
		},
		Incomplete: tok.Type == EOF,
	}
}

func (p *parser) expectedError(expected string) *ParseError {
	tok := p.peek()
	return p.errorf(tok, "syntax error: expected %s but %s found", expected, describeToken(tok))
}

package ast

import "fmt"

// Position is a single point in a source file. Line and Column are 1-based,
// Offset is the 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

// LocationRange ties a node back to the source it was parsed from.
type LocationRange struct {
	Source string
	Start  Position
	End    Position
}

// Span merges two ranges from the same source into one covering both.
func Span(from, to LocationRange) LocationRange {
	return LocationRange{Source: from.Source, Start: from.Start, End: to.End}
}

// Contains reports whether the byte offset falls inside the range.
func (l LocationRange) Contains(offset int) bool {
	return offset >= l.Start.Offset && offset <= l.End.Offset
}

// IsZero reports whether the range was never set.
func (l LocationRange) IsZero() bool {
	return l == LocationRange{}
}

func (l LocationRange) String() string {
	if l.Source == "" {
		return fmt.Sprintf("line %d, column %d", l.Start.Line, l.Start.Column)
	}
	return fmt.Sprintf("line %d, column %d, file %s", l.Start.Line, l.Start.Column, l.Source)
}

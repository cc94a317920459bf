package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/ir"
	"squiggle/interpreter-go/pkg/runtime"
)

const (
	topFrameName       = "<top>"
	anonymousFrameName = "<anonymous>"
	maxTraceFrames     = 8
)

// Frame is one line of a stack trace: the function that was running and the
// position it had reached.
type Frame struct {
	Name     string
	Location ast.LocationRange
}

// RuntimeError is an evaluation failure annotated with where it happened.
// Frames[0] is the innermost position.
type RuntimeError struct {
	Kind     runtime.ErrorKind
	Message  string
	Location ast.LocationRange
	Frames   []Frame
	Err      error
}

func (e *RuntimeError) Error() string { return e.Message }

func (e *RuntimeError) Unwrap() error { return e.Err }

type callFrame struct {
	name string
	site ast.LocationRange
}

func (s *evalState) pushCallFrame(name string, site ast.LocationRange) {
	if name == "" {
		name = anonymousFrameName
	}
	s.callStack = append(s.callStack, callFrame{name: name, site: site})
}

func (s *evalState) popCallFrame() {
	s.callStack = s.callStack[:len(s.callStack)-1]
}

// snapshotFrames turns the call stack into trace lines, starting at loc in
// the innermost function and walking out through each call site.
func (s *evalState) snapshotFrames(loc ast.LocationRange) []Frame {
	frames := make([]Frame, 0, len(s.callStack)+1)
	for idx := len(s.callStack) - 1; idx >= 0; idx-- {
		frames = append(frames, Frame{Name: s.callStack[idx].name, Location: loc})
		loc = s.callStack[idx].site
	}
	return append(frames, Frame{Name: topFrameName, Location: loc})
}

func (s *evalState) attachRuntimeContext(err error, node ir.Node) error {
	if err == nil || node == nil {
		return err
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return err
	}
	loc := node.Location()
	return &RuntimeError{
		Kind:     runtime.KindOf(err),
		Message:  err.Error(),
		Location: loc,
		Frames:   s.snapshotFrames(loc),
		Err:      err,
	}
}

// DescribeError formats err with its stack trace, when it has one.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	var re *RuntimeError
	if !errors.As(err, &re) {
		return err.Error()
	}
	var b strings.Builder
	b.WriteString(re.Message)
	if len(re.Frames) == 0 {
		return b.String()
	}
	b.WriteString("\nStack trace:")
	for idx, frame := range re.Frames {
		if idx == maxTraceFrames {
			fmt.Fprintf(&b, "\n  ... %d more", len(re.Frames)-maxTraceFrames)
			break
		}
		if frame.Location.IsZero() {
			fmt.Fprintf(&b, "\n  %s", frame.Name)
			continue
		}
		fmt.Fprintf(&b, "\n  %s at %s", frame.Name, frame.Location)
	}
	return b.String()
}

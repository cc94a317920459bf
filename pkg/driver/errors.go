package driver

import (
	"errors"
	"fmt"
	"strings"

	"squiggle/interpreter-go/pkg/interpreter"
	"squiggle/interpreter-go/pkg/parser"
	"squiggle/interpreter-go/pkg/typechecker"
)

// ErrNeedToRun is returned by Output for a module that has not run since
// its last change.
var ErrNeedToRun = errors.New("Need to run")

type ImportErrorKind int

const (
	ImportNotFound ImportErrorKind = iota
	ImportCyclic
	ImportResolve
)

func (k ImportErrorKind) String() string {
	switch k {
	case ImportNotFound:
		return "not found"
	case ImportCyclic:
		return "cyclic"
	case ImportResolve:
		return "resolve"
	}
	return fmt.Sprintf("ImportErrorKind(%d)", int(k))
}

// ImportError reports a module that could not be loaded. Chain lists the
// import path from the root module down to ID.
type ImportError struct {
	Kind  ImportErrorKind
	ID    string
	Chain []string
	Err   error
}

func (e *ImportError) Error() string {
	switch e.Kind {
	case ImportCyclic:
		return "Cyclic import " + e.ID
	case ImportResolve:
		if e.Err != nil {
			return fmt.Sprintf("Can't resolve import %s: %v", e.ID, e.Err)
		}
		return "Can't resolve import " + e.ID
	default:
		return "Can't find source with id " + e.ID
	}
}

func (e *ImportError) Unwrap() error { return e.Err }

// DependencyError marks a module that did not run because one of its
// dependencies failed.
type DependencyError struct {
	ID  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("Dependency %s failed: %v", e.ID, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// DescribeError renders err for a terminal: runtime errors get their stack
// trace, import errors their chain and syntax errors their position.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	var dep *DependencyError
	if errors.As(err, &dep) {
		return fmt.Sprintf("Dependency %s failed:\n%s", dep.ID, DescribeError(dep.Err))
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		var b strings.Builder
		b.WriteString(ie.Error())
		if len(ie.Chain) > 0 {
			b.WriteString("\nImport chain:\n  ")
			b.WriteString(strings.Join(ie.Chain, " -> "))
		}
		return b.String()
	}
	var pe *parser.ParseError
	if errors.As(err, &pe) && !pe.Location.IsZero() {
		return fmt.Sprintf("%s (%s)", pe.Message, pe.Location)
	}
	var ue *typechecker.UnitError
	if errors.As(err, &ue) && !ue.Location.IsZero() {
		return fmt.Sprintf("%s (%s)", ue.Message, ue.Location)
	}
	return interpreter.DescribeError(err)
}

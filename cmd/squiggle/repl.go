package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"squiggle/interpreter-go/pkg/driver"
	"squiggle/interpreter-go/pkg/parser"
	"squiggle/interpreter-go/pkg/runtime"
)

const (
	promptMain  = "squiggle> "
	promptCont  = "...       "
	historyFile = ".squiggle_history"
)

const replHelp = `Enter squiggle code; bindings persist across entries.
Commands:
  :help        show this help
  :bindings    show the current bindings
  :reset       forget every binding
  :quit        leave the REPL
`

// replSession gives each entry continues edges to every earlier successful
// entry, oldest first, so later definitions shadow earlier ones.
type replSession struct {
	s       *session
	counter int
	history []string
}

func (r *replSession) eval(ctx context.Context, code string) (string, error) {
	r.counter++
	id := r.s.scratchID(fmt.Sprintf("[repl-%d]", r.counter))
	r.s.project.SetSource(id, code)
	if err := r.s.project.SetContinues(id, r.history); err != nil {
		return "", err
	}
	if err := r.s.project.RunWithImports(ctx, id); err != nil {
		r.s.project.RemoveSource(id)
		return "", err
	}
	out, err := r.s.project.Output(id)
	if err != nil {
		return "", err
	}
	r.history = append(r.history, id)
	if _, void := out.Result.(runtime.VoidValue); void {
		return runtime.ToString(out.Bindings), nil
	}
	return runtime.ToString(out.Result), nil
}

func (r *replSession) bindings() string {
	merged := runtime.NewDict()
	for _, id := range r.history {
		out, err := r.s.project.Output(id)
		if err != nil {
			return driver.DescribeError(err)
		}
		merged = merged.Merge(out.Bindings)
	}
	return runtime.ToString(merged)
}

func (r *replSession) reset() {
	for _, id := range r.s.project.SourceIDs() {
		r.s.project.RemoveSource(id)
	}
	r.history = nil
}

// handle runs one complete input and reports whether the REPL should exit.
func (r *replSession) handle(ctx context.Context, w io.Writer, code string) bool {
	trimmed := strings.TrimSpace(code)
	switch {
	case trimmed == "":
		return false
	case strings.HasPrefix(trimmed, ":"):
		switch strings.Fields(trimmed)[0] {
		case ":quit", ":exit":
			return true
		case ":help":
			fmt.Fprint(w, replHelp)
		case ":bindings":
			fmt.Fprintln(w, r.bindings())
		case ":reset":
			r.reset()
			fmt.Fprintln(w, "bindings cleared.")
		default:
			fmt.Fprintln(w, "unknown command. Type :help for help.")
		}
		return false
	}
	text, err := r.eval(ctx, code)
	if err != nil {
		fmt.Fprintln(w, driver.DescribeError(err))
		return false
	}
	fmt.Fprintln(w, text)
	return false
}

func runRepl(args []string) int {
	opts, code, ok := parseCommandFlags("repl", args)
	if !ok {
		return code
	}
	if len(opts.args) > 0 {
		fmt.Fprintf(os.Stderr, "squiggle repl does not take arguments (received %s)\n", strings.Join(opts.args, " "))
		return 1
	}
	ctx := context.Background()
	s, err := newSession(ctx, opts, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "squiggle repl: %v\n", err)
		return 1
	}
	repl := &replSession{s: s}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	for {
		input, ok := readEntry(ln)
		if !ok {
			fmt.Fprintln(os.Stdout)
			break
		}
		if strings.TrimSpace(input) != "" {
			ln.AppendHistory(strings.ReplaceAll(input, "\n", " "))
		}
		if repl.handle(ctx, os.Stdout, input) {
			break
		}
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return 0
}

// readEntry keeps prompting while the buffer parses as truncated input.
func readEntry(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the pending input.
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := parser.Parse(src, "repl"); err != nil && parser.IsIncomplete(err) && strings.TrimSpace(line) != "" {
			continue
		}
		return src, true
	}
}

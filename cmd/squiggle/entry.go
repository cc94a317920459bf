package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"time"

	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/driver"
	"squiggle/interpreter-go/pkg/interpreter"
	"squiggle/interpreter-go/pkg/linker"
	"squiggle/interpreter-go/pkg/parser"
	"squiggle/interpreter-go/pkg/runtime"
	"squiggle/interpreter-go/pkg/typechecker"
)

const evalSourceName = "[eval]"

type outputMode string

const (
	outputNone              outputMode = "none"
	outputResultOrBindings  outputMode = "result-or-bindings"
	outputResultAndBindings outputMode = "result-and-bindings"
)

type runOptions struct {
	command       string
	eval          string
	output        string
	quiet         bool
	showBindings  bool
	sampleCount   int
	xyPointLength int
	seed          string
	time          bool
	configPath    string
	logEvents     bool
	runner        string
	args          []string
	set           map[string]bool
}

// parseRunFlags accepts flags before and after positional arguments.
func parseRunFlags(command string, args []string) (*runOptions, error) {
	opts := &runOptions{command: command, set: map[string]bool{}}
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.eval, "e", "", "")
	fs.StringVar(&opts.eval, "eval", "", "")
	fs.StringVar(&opts.output, "output", string(outputResultOrBindings), "")
	fs.BoolVar(&opts.quiet, "q", false, "")
	fs.BoolVar(&opts.quiet, "quiet", false, "")
	fs.BoolVar(&opts.showBindings, "b", false, "")
	fs.BoolVar(&opts.showBindings, "show-bindings", false, "")
	fs.IntVar(&opts.sampleCount, "sample-count", 0, "")
	fs.IntVar(&opts.xyPointLength, "xy-point-length", 0, "")
	fs.StringVar(&opts.seed, "seed", "", "")
	fs.BoolVar(&opts.time, "time", false, "")
	fs.BoolVar(&opts.time, "t", false, "")
	fs.StringVar(&opts.configPath, "config", "", "")
	fs.BoolVar(&opts.logEvents, "log-events", false, "")
	fs.StringVar(&opts.runner, "runner", "in-process", "")
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		opts.args = append(opts.args, args[0])
		args = args[1:]
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

func (o *runOptions) outputMode() (outputMode, error) {
	if o.quiet && o.showBindings {
		return "", fmt.Errorf("--quiet and --show-bindings can't be set at the same time")
	}
	switch {
	case o.quiet:
		return outputNone, nil
	case o.showBindings:
		return outputResultAndBindings, nil
	}
	switch mode := outputMode(strings.ToLower(strings.TrimSpace(o.output))); mode {
	case outputNone, outputResultOrBindings, outputResultAndBindings:
		return mode, nil
	}
	return "", fmt.Errorf("unknown --output value '%s' (expected none, result-or-bindings or result-and-bindings)", o.output)
}

// session is a configured project plus the entry module, when there is one.
type session struct {
	config  *driver.Config
	project *driver.Project
	linker  driver.Linker
	git     bool
	cwd     string
	entryID string
	source  string
}

func newSession(ctx context.Context, opts *runOptions, needEntry bool) (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if len(opts.args) > 1 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(opts.args[1:], " "))
	}
	var file string
	if len(opts.args) == 1 {
		file = opts.args[0]
	}
	hasEval := opts.set["e"] || opts.set["eval"]
	if file != "" && hasEval {
		return nil, fmt.Errorf("squiggle %s takes either a file or -e, not both", opts.command)
	}

	start := cwd
	if file != "" {
		start = filepath.Dir(file)
	}
	cfg, err := loadSettings(opts, start)
	if err != nil {
		return nil, err
	}

	s := &session{config: cfg, cwd: cwd}
	if cfg.Git != nil {
		l, err := linker.NewGitLinker(ctx, *cfg.Git)
		if err != nil {
			return nil, err
		}
		s.linker, s.git = l, true
	} else {
		roots := make([]string, 0, len(cfg.Paths))
		for _, p := range cfg.Paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, fmt.Errorf("resolve search path %q: %w", p, err)
			}
			roots = append(roots, filepath.ToSlash(abs))
		}
		s.linker = linker.NewOSLinker(roots...)
	}

	projectOpts := []driver.Option{driver.WithLinker(s.linker), driver.WithEnv(cfg.Environment)}
	if opts.logEvents {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		projectOpts = append(projectOpts, driver.WithLogger(logger))
	}
	switch strings.ToLower(strings.TrimSpace(opts.runner)) {
	case "", "in-process":
	case "serializing":
		projectOpts = append(projectOpts, driver.WithRunner(&driver.SerializingRunner{}))
	default:
		return nil, fmt.Errorf("unknown --runner value '%s' (expected in-process or serializing)", opts.runner)
	}
	s.project = driver.NewProject(projectOpts...)

	switch {
	case hasEval:
		s.entryID = s.scratchID(evalSourceName)
		s.source = opts.eval
	case file != "":
		if err := s.loadEntry(ctx, file); err != nil {
			return nil, err
		}
	case needEntry:
		return nil, fmt.Errorf("squiggle %s requires a source file or -e <code>", opts.command)
	default:
		return s, nil
	}
	s.project.SetSource(s.entryID, s.source)
	return s, nil
}

// scratchID names an in-memory module so that relative imports resolve
// against the working directory.
func (s *session) scratchID(name string) string {
	if s.git {
		return name
	}
	return path.Join(filepath.ToSlash(s.cwd), name)
}

func (s *session) loadEntry(ctx context.Context, file string) error {
	if s.git {
		s.entryID = path.Clean(filepath.ToSlash(file))
		src, err := s.linker.LoadSource(ctx, s.entryID)
		if err != nil {
			return err
		}
		s.source = src
		return nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("resolve entry path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return err
	}
	s.entryID = filepath.ToSlash(abs)
	s.source = string(data)
	return nil
}

// loadSettings layers squiggle.yaml, SQUIGGLE_* variables and flags.
func loadSettings(opts *runOptions, start string) (*driver.Config, error) {
	configPath := opts.configPath
	if configPath == "" {
		found, err := driver.FindConfig(start)
		if err != nil {
			return nil, err
		}
		configPath = found
	}
	cfg := driver.DefaultConfig()
	if configPath != "" {
		loaded, err := driver.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if opts.set["sample-count"] {
		if opts.sampleCount <= 0 {
			return nil, fmt.Errorf("--sample-count must be positive")
		}
		cfg.Environment.SampleCount = opts.sampleCount
	}
	if opts.set["xy-point-length"] {
		if opts.xyPointLength <= 0 {
			return nil, fmt.Errorf("--xy-point-length must be positive")
		}
		cfg.Environment.XYPointLength = opts.xyPointLength
	}
	if opts.set["seed"] {
		cfg.Environment.Seed = opts.seed
	}
	return cfg, nil
}

func parseCommandFlags(command string, args []string) (*runOptions, int, bool) {
	opts, err := parseRunFlags(command, args)
	if errors.Is(err, flag.ErrHelp) {
		printUsage()
		return nil, 0, false
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "squiggle %s: %v\n", command, err)
		return nil, 1, false
	}
	return opts, 0, true
}

func runEntry(args []string) int {
	opts, code, ok := parseCommandFlags("run", args)
	if !ok {
		return code
	}
	mode, err := opts.outputMode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "squiggle run: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := newSession(ctx, opts, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "squiggle run: %v\n", err)
		return 1
	}

	started := time.Now()
	runErr := s.project.RunWithImports(ctx, s.entryID)
	elapsed := time.Since(started)

	code = 0
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "Error:")
		fmt.Fprintln(os.Stderr, driver.DescribeError(runErr))
		code = 1
	} else {
		out, err := s.project.Output(s.entryID)
		if err != nil {
			fmt.Fprintln(os.Stderr, driver.DescribeError(err))
			return 1
		}
		printOutput(os.Stdout, out, mode)
	}
	if opts.time {
		fmt.Fprintf(os.Stdout, "Time: %.3fs\n", elapsed.Seconds())
	}
	return code
}

func printOutput(w io.Writer, out *interpreter.Output, mode outputMode) {
	switch mode {
	case outputResultOrBindings:
		if _, void := out.Result.(runtime.VoidValue); void {
			fmt.Fprintln(w, runtime.ToString(out.Bindings))
		} else {
			fmt.Fprintln(w, runtime.ToString(out.Result))
		}
	case outputResultAndBindings:
		fmt.Fprintln(w, "Result:")
		fmt.Fprintln(w, runtime.ToString(out.Result))
		fmt.Fprintln(w, "Bindings:")
		fmt.Fprintln(w, runtime.ToString(out.Bindings))
	}
}

// runCheck parses, unit-checks and compiles the entry without evaluating
// it. Imports are bound to empty records.
func runCheck(args []string) int {
	opts, code, ok := parseCommandFlags("check", args)
	if !ok {
		return code
	}
	s, err := newSession(context.Background(), opts, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "squiggle check: %v\n", err)
		return 1
	}
	prog, err := parser.Parse(s.source, s.entryID)
	if err != nil {
		fmt.Fprintln(os.Stderr, driver.DescribeError(err))
		return 1
	}
	report, err := typechecker.CheckUnits(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, driver.DescribeError(err))
		return 1
	}
	externals := make(map[string]runtime.Value, len(prog.Imports))
	for _, imp := range prog.Imports {
		externals[imp.Variable.Value] = runtime.NewDict()
	}
	interp := interpreter.New(interpreter.Config{Env: s.config.Environment})
	if _, _, err := interp.Compile(s.source, s.entryID, externals); err != nil {
		fmt.Fprintln(os.Stderr, driver.DescribeError(err))
		return 1
	}
	for _, vt := range report.Types {
		fmt.Fprintf(os.Stdout, "%s :: %s (%s)\n", vt.Name, vt.Unit, shortLocation(vt.Location))
	}
	fmt.Fprintln(os.Stdout, "check: ok")
	return 0
}

func shortLocation(l ast.LocationRange) string {
	return fmt.Sprintf("%d:%d", l.Start.Line, l.Start.Column)
}

// runDeps loads every import reachable from the entry and prints the module
// graph.
func runDeps(args []string) int {
	opts, code, ok := parseCommandFlags("deps", args)
	if !ok {
		return code
	}
	ctx := context.Background()
	s, err := newSession(ctx, opts, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "squiggle deps: %v\n", err)
		return 1
	}
	loadErr := s.project.LoadImports(ctx, s.entryID)
	if err := s.project.WriteGraph(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "squiggle deps: %v\n", err)
		return 1
	}
	if loadErr != nil {
		fmt.Fprintln(os.Stderr, driver.DescribeError(loadErr))
		return 1
	}
	return 0
}

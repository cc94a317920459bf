package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureCLI(t *testing.T, args []string) (int, string, string) {
	t.Helper()

	stdout := os.Stdout
	stderr := os.Stderr

	rOut, wOut, err := os.Pipe()
	if err != nil {
		t.Fatalf("stdout pipe: %v", err)
	}
	rErr, wErr, err := os.Pipe()
	if err != nil {
		t.Fatalf("stderr pipe: %v", err)
	}

	os.Stdout = wOut
	os.Stderr = wErr

	code := run(args)

	if err := wOut.Close(); err != nil {
		t.Fatalf("stdout close: %v", err)
	}
	if err := wErr.Close(); err != nil {
		t.Fatalf("stderr close: %v", err)
	}

	os.Stdout = stdout
	os.Stderr = stderr

	outBytes, err := io.ReadAll(rOut)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	errBytes, err := io.ReadAll(rErr)
	if err != nil {
		t.Fatalf("read stderr: %v", err)
	}
	return code, string(outBytes), string(errBytes)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	t.Cleanup(func() {
		if chdirErr := os.Chdir(oldWD); chdirErr != nil {
			t.Fatalf("restore working directory: %v", chdirErr)
		}
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
}

const smallEnv = "--sample-count=500"

func TestRunEvalOutputModes(t *testing.T) {
	chdir(t, t.TempDir())
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"run", smallEnv, "-e", "1 + 2"}, "3\n"},
		{[]string{"run", "-e", "x = 1\ny = 2"}, "{x: 1, y: 2}\n"},
		{[]string{"run", "-b", "-e", "x = 3\nx * 2"}, "Result:\n6\nBindings:\n{x: 3}\n"},
		{[]string{"run", "--output", "result-and-bindings", "-e", "x = 3\nx * 2"}, "Result:\n6\nBindings:\n{x: 3}\n"},
		{[]string{"run", "--output=none", "-e", "1"}, ""},
		{[]string{"run", "-q", "-e", "1"}, ""},
		{[]string{"run", "--runner", "serializing", "-e", "f(x) = x * 3\nf(4)"}, "12\n"},
		{[]string{"-e", "2 * 5"}, "10\n"},
	}
	for _, tc := range cases {
		code, stdout, stderr := captureCLI(t, tc.args)
		if code != 0 {
			t.Fatalf("%v: exit %d (stderr=%q)", tc.args, code, stderr)
		}
		if stdout != tc.want {
			t.Fatalf("%v: stdout=%q want=%q", tc.args, stdout, tc.want)
		}
	}
}

func TestRunFileWithRelativeImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "rates.squiggle"), `export growth = 3`)
	writeFile(t, filepath.Join(dir, "model.squiggle"), `
import "./lib/rates.squiggle" as rates
rates.growth * 7
`)
	chdir(t, dir)

	code, stdout, stderr := captureCLI(t, []string{"run", "model.squiggle", "--time"})
	if code != 0 {
		t.Fatalf("exit %d (stderr=%q)", code, stderr)
	}
	if !strings.HasPrefix(stdout, "21\nTime: ") {
		t.Fatalf("stdout=%q", stdout)
	}

	code, stdout, stderr = captureCLI(t, []string{"deps", "model.squiggle"})
	if code != 0 {
		t.Fatalf("deps exit %d (stderr=%q)", code, stderr)
	}
	for _, want := range []string{"runOrder:", "as: rates", "rates.squiggle"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("deps output missing %q:\n%s", want, stdout)
		}
	}
}

func TestRunReportsErrors(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, filepath.Join(dir, "missing.squiggle"), `import "./nope.squiggle" as nope
nope`)

	cases := []struct {
		args      []string
		fragments []string
	}{
		{[]string{"run", "-e", "z + 1"}, []string{"Error:", "z is not defined"}},
		{[]string{"run", "-e", "f(x) = x.missing\nf({a: 1})"}, []string{"Error:", "Stack trace:"}},
		{[]string{"run", "missing.squiggle"}, []string{"Can't find source with id", "Import chain:"}},
		{[]string{"run", "--output", "everything", "-e", "1"}, []string{"unknown --output value"}},
		{[]string{"run", "-q", "-b", "-e", "1"}, []string{"can't be set at the same time"}},
		{[]string{"run", "--runner", "threads", "-e", "1"}, []string{"unknown --runner value"}},
		{[]string{"run"}, []string{"requires a source file"}},
		{[]string{"run", "a.squiggle", "b.squiggle"}, []string{"unexpected arguments"}},
		{[]string{"run", "--sample-count", "0", "-e", "1"}, []string{"--sample-count must be positive"}},
	}
	for _, tc := range cases {
		code, _, stderr := captureCLI(t, tc.args)
		if code != 1 {
			t.Fatalf("%v: exit %d, want 1", tc.args, code)
		}
		for _, fragment := range tc.fragments {
			if !strings.Contains(stderr, fragment) {
				t.Fatalf("%v: stderr %q missing %q", tc.args, stderr, fragment)
			}
		}
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, filepath.Join(dir, "ok.squiggle"), `
import "./other.squiggle" as other
x = 1
other.y + x
`)
	writeFile(t, filepath.Join(dir, "bad.squiggle"), "x = 1 +")

	code, stdout, stderr := captureCLI(t, []string{"check", "ok.squiggle"})
	if code != 0 {
		t.Fatalf("exit %d (stderr=%q)", code, stderr)
	}
	if !strings.Contains(stdout, "check: ok") {
		t.Fatalf("stdout=%q", stdout)
	}

	code, _, stderr = captureCLI(t, []string{"check", "bad.squiggle"})
	if code != 1 || !strings.Contains(stderr, "line ") {
		t.Fatalf("exit %d stderr=%q", code, stderr)
	}
}

func TestConfigAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, filepath.Join(dir, "squiggle.yaml"), `
environment:
  sampleCount: 50
  seed: from-config
`)
	code, _, stderr := captureCLI(t, []string{"run", "-e", "1"})
	if code != 0 {
		t.Fatalf("exit %d (stderr=%q)", code, stderr)
	}

	t.Setenv("SQUIGGLE_SAMPLE_COUNT", "lots")
	code, _, stderr = captureCLI(t, []string{"run", "-e", "1"})
	if code != 1 || !strings.Contains(stderr, "SQUIGGLE_SAMPLE_COUNT") {
		t.Fatalf("exit %d stderr=%q", code, stderr)
	}

	t.Setenv("SQUIGGLE_SAMPLE_COUNT", "")
	writeFile(t, filepath.Join(dir, "strict.yaml"), "unknown: 1")
	code, _, stderr = captureCLI(t, []string{"run", "--config", "strict.yaml", "-e", "1"})
	if code != 1 || !strings.Contains(stderr, "config: parse") {
		t.Fatalf("exit %d stderr=%q", code, stderr)
	}
}

func TestVersionAndHelp(t *testing.T) {
	code, stdout, _ := captureCLI(t, []string{"--version"})
	if code != 0 || strings.TrimSpace(stdout) != cliToolVersion {
		t.Fatalf("exit %d stdout=%q", code, stdout)
	}
	code, _, stderr := captureCLI(t, []string{"--help"})
	if code != 0 || !strings.Contains(stderr, "Usage:") {
		t.Fatalf("exit %d stderr=%q", code, stderr)
	}
	code, _, _ = captureCLI(t, nil)
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
}

func TestParseRunFlagsInterleaved(t *testing.T) {
	opts, err := parseRunFlags("run", []string{"model.squiggle", "--seed", "abc", "-t"})
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.args) != 1 || opts.args[0] != "model.squiggle" {
		t.Fatalf("args=%v", opts.args)
	}
	if opts.seed != "abc" || !opts.time || !opts.set["seed"] {
		t.Fatalf("opts=%+v", opts)
	}
}

func TestReplSessionKeepsBindings(t *testing.T) {
	chdir(t, t.TempDir())
	opts, err := parseRunFlags("repl", []string{smallEnv})
	if err != nil {
		t.Fatal(err)
	}
	s, err := newSession(context.Background(), opts, false)
	if err != nil {
		t.Fatal(err)
	}
	repl := &replSession{s: s}
	var out bytes.Buffer
	steps := []struct {
		input string
		want  string
	}{
		{"x = 2", "{x: 2}\n"},
		{"y = x * 10", "{y: 20}\n"},
		{"x + y", "22\n"},
		{"x = 5", "{x: 5}\n"},
		{"x + y", "25\n"},
		{"nope + 1", "nope is not defined"},
		{":bindings", "{x: 5, y: 20}\n"},
		{":reset", "bindings cleared.\n"},
		{":bindings", "{}\n"},
	}
	for _, step := range steps {
		out.Reset()
		if repl.handle(context.Background(), &out, step.input) {
			t.Fatalf("%q ended the session", step.input)
		}
		if !strings.Contains(out.String(), step.want) {
			t.Fatalf("%q: output=%q want %q", step.input, out.String(), step.want)
		}
	}
	if !repl.handle(context.Background(), &out, ":quit") {
		t.Fatalf(":quit did not end the session")
	}
}

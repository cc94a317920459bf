package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigBasic(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
environment:
  sampleCount: 500
  seed: fixed
paths:
  - ./lib
  - /abs/models
git:
  url: ./models-repo
  revision: main
  dir: /models/
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Environment.SampleCount != 500 || cfg.Environment.Seed != "fixed" {
		t.Fatalf("environment=%+v", cfg.Environment)
	}
	if cfg.Environment.XYPointLength != 1000 {
		t.Fatalf("XYPointLength = %d, want default 1000", cfg.Environment.XYPointLength)
	}
	if got, want := cfg.Paths[0], filepath.Join(dir, "lib"); got != want {
		t.Fatalf("Paths[0] = %q, want %q", got, want)
	}
	if got := cfg.Paths[1]; got != "/abs/models" {
		t.Fatalf("Paths[1] = %q", got)
	}
	if cfg.Git == nil || cfg.Git.URL != filepath.Join(dir, "models-repo") || cfg.Git.Revision != "main" || cfg.Git.Dir != "models" {
		t.Fatalf("git=%+v", cfg.Git)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
environment:
  samples: 10
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "samples") {
		t.Fatalf("error does not name the key: %v", err)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		contents string
		fragment string
	}{
		{"environment:\n  sampleCount: 0", "sampleCount must be positive"},
		{"environment:\n  xyPointLength: -1", "xyPointLength must be positive"},
		{"git:\n  revision: main", "git: missing url"},
	}
	for _, tc := range cases {
		path := writeConfig(t, t.TempDir(), tc.contents)
		_, err := LoadConfig(path)
		if err == nil || !strings.Contains(err.Error(), tc.fragment) {
			t.Fatalf("%q: err=%v, want fragment %q", tc.contents, err, tc.fragment)
		}
	}
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Environment != DefaultConfig().Environment {
		t.Fatalf("environment=%+v", cfg.Environment)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SQUIGGLE_SAMPLE_COUNT":    "42",
		"SQUIGGLE_XY_POINT_LENGTH": " 64 ",
		"SQUIGGLE_SEED":            "env-seed",
		"SQUIGGLE_PATH":            "/a" + string(os.PathListSeparator) + " " + string(os.PathListSeparator) + "/b",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Environment.SampleCount != 42 || cfg.Environment.XYPointLength != 64 || cfg.Environment.Seed != "env-seed" {
		t.Fatalf("environment=%+v", cfg.Environment)
	}
	if got := strings.Join(cfg.Paths, ","); got != "/a,/b" {
		t.Fatalf("paths=%s", got)
	}

	env["SQUIGGLE_SAMPLE_COUNT"] = "many"
	if err := DefaultConfig().ApplyEnv(lookup); err == nil || !strings.Contains(err.Error(), "SQUIGGLE_SAMPLE_COUNT") {
		t.Fatalf("err=%v", err)
	}
}

func TestFindConfigWalksParents(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "paths: [lib]")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(nested, "main.squiggle")
	if err := os.WriteFile(file, []byte("1"), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, start := range []string{nested, file} {
		got, err := FindConfig(start)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("FindConfig(%s) = %q, want %q", start, got, want)
		}
	}
}

package linker

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/driver"
	"squiggle/interpreter-go/pkg/runtime"
)

var testEnv = dist.Env{SampleCount: 1000, XYPointLength: 200, Seed: "linker"}

func TestMapLinker(t *testing.T) {
	l := NewMapLinker(map[string]string{"a": "1"})
	l.Set("b", "2")
	if id, err := l.Resolve("b", "a"); err != nil || id != "b" {
		t.Fatalf("resolve=%q err=%v", id, err)
	}
	if _, err := l.Resolve(" ", "a"); err == nil {
		t.Fatalf("expected error for empty import")
	}
	src, err := l.LoadSource(context.Background(), "b")
	if err != nil || src != "2" {
		t.Fatalf("source=%q err=%v", src, err)
	}
	if _, err := l.LoadSource(context.Background(), "c"); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestResolveRelative(t *testing.T) {
	cases := []struct {
		name, from, want string
		fails            bool
	}{
		{"./b.squiggle", "a.squiggle", "b.squiggle", false},
		{"./lib/b.squiggle", "models/a.squiggle", "models/lib/b.squiggle", false},
		{"../b.squiggle", "models/a.squiggle", "b.squiggle", false},
		{"../b.squiggle", "a.squiggle", "", true},
		{"../b.squiggle", "/src/models/a.squiggle", "/src/b.squiggle", false},
	}
	for _, tc := range cases {
		got, err := resolveRelative(tc.name, tc.from)
		if tc.fails {
			if err == nil {
				t.Fatalf("%s from %s: expected error, got %q", tc.name, tc.from, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%s from %s: got=%q err=%v want=%q", tc.name, tc.from, got, err, tc.want)
		}
	}
}

func TestFSLinker(t *testing.T) {
	mem := memfs.New()
	files := map[string]string{
		"models/main.squiggle":     "import \"./lib/rate.squiggle\" as rate\nimport \"shared.squiggle\" as shared\nrate.r * shared.k",
		"models/lib/rate.squiggle": "export r = 3",
		"vendor/shared.squiggle":   "export k = 7",
	}
	for name, src := range files {
		if err := util.WriteFile(mem, name, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	l := NewFSLinker(mem, "vendor")
	if id, err := l.Resolve("shared.squiggle", "models/main.squiggle"); err != nil || id != "vendor/shared.squiggle" {
		t.Fatalf("resolve=%q err=%v", id, err)
	}
	if _, err := l.Resolve("missing.squiggle", "models/main.squiggle"); err == nil {
		t.Fatalf("expected error for missing bare import")
	}
	if _, err := NewFSLinker(mem).Resolve("shared.squiggle", "models/main.squiggle"); err == nil || !strings.Contains(err.Error(), "only relative imports") {
		t.Fatalf("err=%v", err)
	}

	p := driver.NewProject(driver.WithLinker(l), driver.WithEnv(testEnv))
	entry, err := l.LoadSource(context.Background(), "models/main.squiggle")
	if err != nil {
		t.Fatal(err)
	}
	p.SetSource("models/main.squiggle", entry)
	if err := p.RunWithImports(context.Background(), "models/main.squiggle"); err != nil {
		t.Fatalf("run: %s", driver.DescribeError(err))
	}
	out, err := p.Output("models/main.squiggle")
	if err != nil {
		t.Fatal(err)
	}
	if got := runtime.ToString(out.Result); got != "21" {
		t.Fatalf("result=%s want=21", got)
	}
}

func commitAll(t *testing.T, dir string, repo *git.Repository, message string) string {
	t.Helper()
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == filepath.Join(dir, ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		_, err = worktree.Add(filepath.ToSlash(rel))
		return err
	}); err != nil {
		t.Fatalf("stage files: %v", err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Squiggle",
			Email: "squiggle@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGitLinkerReadsCommittedSources(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	writeFile(t, filepath.Join(dir, "models", "main.squiggle"), "import \"./lib.squiggle\" as lib\nlib.x + 1")
	writeFile(t, filepath.Join(dir, "models", "lib.squiggle"), "export x = 1")
	first := commitAll(t, dir, repo, "first")

	writeFile(t, filepath.Join(dir, "models", "lib.squiggle"), "export x = 10")
	commitAll(t, dir, repo, "second")
	writeFile(t, filepath.Join(dir, "models", "lib.squiggle"), "export x = 100")

	run := func(revision string) string {
		t.Helper()
		l, err := NewGitLinker(context.Background(), driver.GitSource{URL: dir, Revision: revision, Dir: "models"})
		if err != nil {
			t.Fatalf("NewGitLinker: %v", err)
		}
		src, err := l.LoadSource(context.Background(), "main.squiggle")
		if err != nil {
			t.Fatal(err)
		}
		p := driver.NewProject(driver.WithLinker(l), driver.WithEnv(testEnv))
		p.SetSource("main.squiggle", src)
		if err := p.RunWithImports(context.Background(), "main.squiggle"); err != nil {
			t.Fatalf("run: %s", driver.DescribeError(err))
		}
		out, err := p.Output("main.squiggle")
		if err != nil {
			t.Fatal(err)
		}
		return runtime.ToString(out.Result)
	}

	if got := run(""); got != "11" {
		t.Fatalf("HEAD result=%s want=11", got)
	}
	if got := run(first); got != "2" {
		t.Fatalf("first result=%s want=2", got)
	}

	l, err := NewGitLinker(context.Background(), driver.GitSource{URL: dir, Revision: first})
	if err != nil {
		t.Fatal(err)
	}
	if l.Commit() != first {
		t.Fatalf("commit=%s want=%s", l.Commit(), first)
	}
	if _, err := l.LoadSource(context.Background(), "missing.squiggle"); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := NewGitLinker(context.Background(), driver.GitSource{URL: dir, Revision: "no-such-branch"}); err == nil {
		t.Fatalf("expected error for unknown revision")
	}
}

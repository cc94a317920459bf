package linker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5/memfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"squiggle/interpreter-go/pkg/driver"
)

// GitLinker serves sources committed at one revision of a git repository.
// Ids are paths relative to the configured directory of the repository.
// The working tree is never read, so uncommitted edits are invisible.
type GitLinker struct {
	tree   *object.Tree
	dir    string
	commit plumbing.Hash
}

// NewGitLinker opens src.URL as a local repository, or clones it into memory
// when it is a remote URL, and pins src.Revision (HEAD when empty).
func NewGitLinker(ctx context.Context, src driver.GitSource) (*GitLinker, error) {
	repo, err := openRepository(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	revision := strings.TrimSpace(src.Revision)
	if revision == "" {
		revision = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("resolve revision %s: %w", revision, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("git commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("git tree %s: %w", hash, err)
	}
	return &GitLinker{tree: tree, dir: strings.Trim(src.Dir, "/"), commit: *hash}, nil
}

func openRepository(ctx context.Context, url string) (*git.Repository, error) {
	if url == "" {
		return nil, errors.New("git: missing url")
	}
	if !strings.Contains(url, "://") && !strings.HasPrefix(url, "git@") {
		repo, err := git.PlainOpen(url)
		if err != nil {
			return nil, fmt.Errorf("git open %s: %w", url, err)
		}
		return repo, nil
	}
	repo, err := git.CloneContext(ctx, memory.NewStorage(), memfs.New(), &git.CloneOptions{URL: url})
	if err != nil {
		return nil, fmt.Errorf("git clone %s: %w", url, err)
	}
	return repo, nil
}

// Commit is the resolved revision.
func (l *GitLinker) Commit() string { return l.commit.String() }

func (l *GitLinker) Resolve(name, fromID string) (string, error) {
	if isRelative(name) {
		return resolveRelative(name, fromID)
	}
	return path.Clean(strings.TrimPrefix(name, "/")), nil
}

func (l *GitLinker) LoadSource(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	file, err := l.tree.File(path.Join(l.dir, id))
	if err != nil {
		return "", fmt.Errorf("linker: %s at %s: %w", id, l.commit, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return "", fmt.Errorf("linker: open %s: %w", id, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("linker: read %s: %w", id, err)
	}
	return string(data), nil
}

package linker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// FSLinker reads sources from a billy filesystem. Ids are slash-separated
// paths in that filesystem. Relative imports resolve against the importing
// file; bare imports are looked up under each search root in order.
type FSLinker struct {
	fs    billy.Filesystem
	roots []string
}

func NewFSLinker(fs billy.Filesystem, roots ...string) *FSLinker {
	return &FSLinker{fs: fs, roots: roots}
}

// NewOSLinker serves the host filesystem. Ids are absolute paths.
func NewOSLinker(roots ...string) *FSLinker {
	return NewFSLinker(osfs.New("/"), roots...)
}

func (l *FSLinker) Resolve(name, fromID string) (string, error) {
	if isRelative(name) {
		return resolveRelative(name, fromID)
	}
	if len(l.roots) == 0 {
		return "", fmt.Errorf("linker: only relative imports are supported, got %q", name)
	}
	for _, root := range l.roots {
		candidate := path.Join(root, name)
		info, err := l.fs.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("linker: stat %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("linker: %q not found in search paths", name)
}

func (l *FSLinker) LoadSource(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := util.ReadFile(l.fs, id)
	if err != nil {
		return "", fmt.Errorf("linker: read %s: %w", id, err)
	}
	return string(data), nil
}

// Package linker implements driver.Linker over in-memory maps, billy
// filesystems and git revisions.
package linker

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"squiggle/interpreter-go/pkg/driver"
)

var (
	_ driver.Linker = (*MapLinker)(nil)
	_ driver.Linker = (*FSLinker)(nil)
	_ driver.Linker = (*GitLinker)(nil)
)

// MapLinker serves sources from memory. Import strings are used as ids
// unchanged.
type MapLinker struct {
	mu      sync.RWMutex
	sources map[string]string
}

func NewMapLinker(sources map[string]string) *MapLinker {
	l := &MapLinker{sources: make(map[string]string, len(sources))}
	for id, src := range sources {
		l.sources[id] = src
	}
	return l
}

func (l *MapLinker) Set(id, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources[id] = source
}

func (l *MapLinker) Resolve(name, fromID string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("linker: empty import")
	}
	return name, nil
}

func (l *MapLinker) LoadSource(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	src, ok := l.sources[id]
	if !ok {
		return "", fmt.Errorf("linker: no source %q", id)
	}
	return src, nil
}

func isRelative(name string) bool {
	return strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../")
}

// resolveRelative joins a ./ or ../ import onto the directory of fromID.
// The result must stay inside the tree the ids are relative to.
func resolveRelative(name, fromID string) (string, error) {
	joined := path.Join(path.Dir(fromID), name)
	if strings.HasPrefix(fromID, "/") {
		return joined, nil
	}
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return "", fmt.Errorf("linker: import %q from %s escapes the source root", name, fromID)
	}
	return joined, nil
}

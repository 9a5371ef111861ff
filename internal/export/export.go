// Package export writes generated briefings as markdown files under a
// sandboxed directory.
package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".md"

var (
	ErrMissingID  = errors.New("export: missing session id")
	ErrEscapeRoot = errors.New("export: path escapes root")
	ErrNotFound   = errors.New("export: briefing not found")
)

// Dir is a briefing export directory.
type Dir struct {
	root string
}

// NewDir constructs an export dir rooted at root (default data/briefings).
func NewDir(root string) Dir {
	resolved := strings.TrimSpace(root)
	if resolved == "" {
		resolved = filepath.Join("data", "briefings")
	}
	return Dir{root: resolved}
}

// Root returns the configured root.
func (d Dir) Root() string {
	return d.root
}

// Write stores markdown for sessionID, replacing any previous export.
func (d Dir) Write(sessionID, markdown string) (string, error) {
	p, err := d.resolvePath(sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, []byte(markdown), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return p, nil
}

// Read returns the exported markdown for sessionID.
func (d Dir) Read(sessionID string) (string, error) {
	p, err := d.resolvePath(sessionID)
	if err != nil {
		return "", err
	}
	out, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// List returns exported session ids in lexical order.
func (d Dir) List() ([]string, error) {
	root, err := filepath.Abs(d.root)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}
			return walkErr
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		ids = append(ids, strings.TrimSuffix(filepath.ToSlash(rel), fileExt))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (d Dir) resolvePath(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrMissingID
	}
	if filepath.IsAbs(id) {
		return "", ErrEscapeRoot
	}
	root, err := filepath.Abs(d.root)
	if err != nil {
		return "", err
	}
	p := filepath.Clean(filepath.Join(root, id+fileExt))
	if !isWithin(p, root) {
		return "", ErrEscapeRoot
	}
	return p, nil
}

func isWithin(path string, root string) bool {
	p := filepath.Clean(path)
	r := filepath.Clean(root)
	if p == r {
		return false
	}
	return strings.HasPrefix(p, r+string(os.PathSeparator))
}

package sessions

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

const sessionFileExt = ".jsonl"

type SessionFile struct {
	Path    string
	ModTime time.Time
	Size    int64
}

func IsSessionFile(path string) bool {
	return filepath.Ext(path) == sessionFileExt
}

// ListSessionFiles returns every .jsonl file below root, newest
// modification time first (ties ordered by path). Symlinked directories are
// followed once per resolved target, so link cycles terminate.
func ListSessionFiles(root string) ([]SessionFile, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", core.ErrNoSessionsDirectory, root)
	}

	w := walker{visited: make(map[string]bool)}
	if err := w.walk(root, true); err != nil {
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	sort.Slice(w.files, func(i, j int) bool {
		a, b := w.files[i], w.files[j]
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		return a.Path < b.Path
	})
	return w.files, nil
}

// FindLatestSessionFile returns the most recently modified session file.
func FindLatestSessionFile(root string) (string, error) {
	files, err := ListSessionFiles(root)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s", core.ErrNoSessionFiles, root)
	}
	return files[0].Path, nil
}

type walker struct {
	visited map[string]bool
	files   []SessionFile
}

func (w *walker) walk(dir string, isRoot bool) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		real = dir
	}
	if w.visited[real] {
		return nil
	}
	w.visited[real] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		if isRoot {
			return err
		}
		return nil // unreadable subdirectory
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if err := w.walk(path, false); err != nil {
				return err
			}
			continue
		}

		// os.Stat follows symlinks, so linked directories are walked too.
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			if err := w.walk(path, false); err != nil {
				return err
			}
			continue
		}
		if info.Mode().IsRegular() && IsSessionFile(path) {
			w.files = append(w.files, SessionFile{Path: path, ModTime: info.ModTime(), Size: info.Size()})
		}
	}
	return nil
}

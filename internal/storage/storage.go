package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const timestampLayout = "20060102_150405"

// DebugStore writes raw page snapshots for offline inspection. Every write
// is best effort: callers log the error and carry on.
type DebugStore struct {
	mu     sync.Mutex
	dir    string
	prefix string
	now    func() time.Time
}

func NewDebugStore(dir string) *DebugStore {
	return &DebugStore{
		dir:    dir,
		prefix: "amazon_page",
		now:    time.Now,
	}
}

// Save writes html to <dir>/<prefix>_<reason>_<timestamp>.html and returns
// the file path.
func (ds *DebugStore) Save(reason, html string) (string, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if err := os.MkdirAll(ds.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create debug dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s.html", ds.prefix, reason, ds.now().Format(timestampLayout))
	path := filepath.Join(ds.dir, name)

	// Write to temp file first for atomicity
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("failed to write debug html: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return "", fmt.Errorf("failed to move debug html: %w", err)
	}

	return path, nil
}


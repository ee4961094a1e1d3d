package sessions

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/janekbaraniewski/codexusage/internal/core"
)

const DefaultCacheSize = 64

type cachedSnapshot struct {
	modTime  time.Time
	size     int64
	snapshot core.UsageSnapshot
}

// SnapshotCache memoizes ParseLatestSnapshot per file. An entry is reused
// only while the file's modification time and size are unchanged, so an
// appended reading is always picked up.
type SnapshotCache struct {
	entries *lru.Cache[string, cachedSnapshot]
}

func NewSnapshotCache(size int) (*SnapshotCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, cachedSnapshot](size)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot cache: %w", err)
	}
	return &SnapshotCache{entries: entries}, nil
}

func (c *SnapshotCache) Snapshot(path string) (core.UsageSnapshot, error) {
	if c == nil {
		return ParseLatestSnapshot(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		c.entries.Remove(path)
		return ParseLatestSnapshot(path)
	}

	if hit, ok := c.entries.Get(path); ok && hit.modTime.Equal(info.ModTime()) && hit.size == info.Size() {
		return hit.snapshot, nil
	}

	snap, err := ParseLatestSnapshot(path)
	if err != nil {
		c.entries.Remove(path)
		return core.UsageSnapshot{}, err
	}
	c.entries.Add(path, cachedSnapshot{modTime: info.ModTime(), size: info.Size(), snapshot: snap})
	return snap, nil
}

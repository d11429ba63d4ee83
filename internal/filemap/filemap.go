// Package filemap serves file contents by path relative to an indexed
// root directory, through a bounded in-memory read-through cache.
package filemap

import (
	"bytes"
	"context"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/JerrySMith13/portablemedia/internal/index"
	"github.com/JerrySMith13/portablemedia/internal/metrics"
)

// cacheCapacity bounds the number of cached file contents. Eviction is
// least-recently-used.
const cacheCapacity = 20

// FileMap composes the directory snapshot, the content cache, and disk
// reads. It is safe for concurrent use: the snapshot is immutable and
// the cache serializes its own bookkeeping internally. Disk reads run
// outside the cache lock, deduplicated per path.
type FileMap struct {
	rootPath string
	snap     *index.Snapshot
	cache    *lru.Cache[string, []byte]
	reads    singleflight.Group
}

// New indexes rootPath and returns a FileMap serving its contents.
// Indexing anomalies that are skipped rather than fatal are reported
// to sink. Construction blocks until the index is complete; it either
// yields a usable FileMap or an error, never a partial one.
func New(rootPath string, sink index.Sink) (*FileMap, error) {
	snap, err := index.Build(rootPath, sink)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, []byte](cacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("create content cache: %w", err)
	}
	return &FileMap{
		rootPath: rootPath,
		snap:     snap,
		cache:    cache,
	}, nil
}

// Snapshot returns the immutable directory snapshot.
func (m *FileMap) Snapshot() *index.Snapshot {
	return m.snap
}

// GetFile returns the contents of the file at path, relative to the
// indexed root and excluding the root directory's own name (for a root
// of "media", use "clip.mp4", not "media/clip.mp4"). The path is used
// as the cache key exactly as given.
//
// A cached entry is returned even if the underlying file has changed
// or been deleted since it was first read. On a miss the path is
// resolved against the snapshot (index.ErrNotFound and
// index.ErrNotDirectory surface unchanged), then the file is read from
// disk and cached. Requesting a directory path is not special-cased:
// it fails with whatever error reading the directory as a file yields.
func (m *FileMap) GetFile(_ context.Context, path string) ([]byte, error) {
	if data, ok := m.cache.Get(path); ok {
		metrics.RecordCacheHit()
		return data, nil
	}

	// Collapse concurrent misses for the same path into one disk read;
	// misses for distinct paths proceed in parallel. Hit/miss counts
	// follow the actual cache probes: a caller whose re-check inside
	// the flight finds the entry already cached is a hit, and callers
	// that share the flight's result probed nothing.
	v, err, _ := m.reads.Do(path, func() (any, error) {
		if data, ok := m.cache.Get(path); ok {
			metrics.RecordCacheHit()
			return data, nil
		}
		metrics.RecordCacheMiss()
		data, err := m.readFromDisk(path)
		if err != nil {
			return nil, err
		}
		if evicted := m.cache.Add(path, data); evicted {
			metrics.RecordCacheEviction()
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (m *FileMap) readFromDisk(path string) ([]byte, error) {
	id, err := m.snap.Resolve(path)
	if err != nil {
		return nil, err
	}
	// The indexed size is only a capacity hint; the file may have grown,
	// shrunk, or vanished since indexing, and the read decides.
	sizeHint := m.snap.Node(id).Size

	f, err := os.Open(m.rootPath + "/" + path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := bytes.NewBuffer(make([]byte, 0, int(sizeHint)+1))
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

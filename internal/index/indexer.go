package index

import (
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"
)

// Build indexes the directory tree rooted at rootPath and returns an
// immutable Snapshot of it. The walk is single-threaded and blocking;
// the snapshot is only published to callers after the whole pass
// succeeds.
//
// A symlink anywhere beneath the root fails the entire build, as does
// any error reading an entry's metadata. A directory listing that fails
// partway, or an entry whose name is not valid UTF-8, is skipped and
// reported to sink at medium severity; the rest of the build continues.
func Build(rootPath string, sink Sink) (*Snapshot, error) {
	if sink == nil {
		sink = NopSink
	}

	// Stat (not Lstat): the root path itself may be reached through a
	// symlink, only entries beneath it are rejected.
	fi, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("open root %s: %w", rootPath, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("root path %s: %w", rootPath, ErrNotDirectory)
	}

	b := &builder{sink: sink}
	if _, err := b.add(rootPath, fi); err != nil {
		return nil, err
	}
	return &Snapshot{nodes: b.nodes}, nil
}

type builder struct {
	nodes []Node
	sink  Sink
}

// add appends the entry at path (with metadata fi) and its subtree to
// the arena, returning the new node's ID. Parents are appended before
// their children, so the first node added is always the root.
func (b *builder) add(path string, fi fs.FileInfo) (NodeID, error) {
	if fi.Mode()&fs.ModeSymlink != 0 {
		return 0, fmt.Errorf("%s is a symlink: %w", path, ErrUnsupportedEntry)
	}

	name, err := entryName(path)
	if err != nil {
		return 0, err
	}

	id := NodeID(len(b.nodes))
	if !fi.IsDir() {
		b.nodes = append(b.nodes, Node{Name: name, Size: fi.Size()})
		return id, nil
	}
	b.nodes = append(b.nodes, Node{Name: name})

	entries, err := os.ReadDir(path)
	if err != nil {
		// Whatever entries were listed before the failure are still
		// indexed; the remainder is skipped.
		b.sink.Notify(SeverityMedium, fmt.Sprintf("error listing directory %s, skipping unread entries: %v", path, err))
	}

	children := make(map[string]NodeID, len(entries))
	for _, entry := range entries {
		childName := entry.Name()
		if !utf8.ValidString(childName) {
			b.sink.Notify(SeverityMedium, fmt.Sprintf("filename %q in directory %s is not valid UTF-8, skipping entry", childName, path))
			continue
		}
		childPath := path + "/" + childName
		childFi, err := os.Lstat(childPath)
		if err != nil {
			return 0, fmt.Errorf("stat %s: %w", childPath, err)
		}
		childID, err := b.add(childPath, childFi)
		if err != nil {
			return 0, err
		}
		children[childName] = childID
	}
	b.nodes[id].Children = children
	return id, nil
}

// entryName derives a node name from the final '/'-delimited segment of
// the supplied path.
func entryName(path string) (string, error) {
	segs := strings.Split(path, "/")
	if len(segs) == 0 {
		return "", fmt.Errorf("cannot derive entry name from path %q", path)
	}
	return segs[len(segs)-1], nil
}

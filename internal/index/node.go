// Package index builds and queries an immutable snapshot of a local
// directory tree. The snapshot is taken once; later filesystem changes
// are not observed.
package index

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a path has no entry in the snapshot.
	ErrNotFound = errors.New("file not found in snapshot")

	// ErrNotDirectory is returned when a path traverses through a
	// regular file, or the indexed root is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrUnsupportedEntry is returned when indexing encounters an entry
	// type the snapshot cannot represent (symlinks).
	ErrUnsupportedEntry = errors.New("unsupported directory entry")
)

// NodeID addresses a node inside a Snapshot.
type NodeID int32

// RootID is the NodeID of the indexed root directory.
const RootID NodeID = 0

// Node is one filesystem entry captured at index time.
//
// Children is non-nil (possibly empty) exactly when the entry is a
// directory and nil exactly when it is a regular file. There is no
// other type tag.
type Node struct {
	Name     string
	Size     int64
	Children map[string]NodeID
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Children != nil
}

// Snapshot is the immutable result of one indexing pass. All nodes live
// in a single arena slice and reference each other by NodeID, so the
// tree can be shared freely across goroutines without synchronization.
type Snapshot struct {
	nodes []Node
}

// Node returns the node for id. The returned pointer aliases the arena
// and must be treated as read-only.
func (s *Snapshot) Node(id NodeID) *Node {
	return &s.nodes[id]
}

// Root returns the root directory node.
func (s *Snapshot) Root() *Node {
	return &s.nodes[RootID]
}

// Len returns the total number of indexed entries.
func (s *Snapshot) Len() int {
	return len(s.nodes)
}

// Resolve walks the snapshot along a '/'-separated path relative to the
// indexed root. The empty path resolves to the root itself; every
// non-empty path, including a bare top-level filename, descends one
// segment at a time.
func (s *Snapshot) Resolve(path string) (NodeID, error) {
	cur := RootID
	if path == "" {
		return cur, nil
	}
	for _, seg := range strings.Split(path, "/") {
		n := &s.nodes[cur]
		if n.Children == nil {
			return 0, fmt.Errorf("%s in %s: %w", n.Name, path, ErrNotDirectory)
		}
		next, ok := n.Children[seg]
		if !ok {
			return 0, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		cur = next
	}
	return cur, nil
}

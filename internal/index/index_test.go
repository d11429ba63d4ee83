package index

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// recorder collects sink notifications for assertions.
type recorder struct {
	mu     sync.Mutex
	events []string
	sevs   []Severity
}

func (r *recorder) Notify(sev Severity, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, msg)
	r.sevs = append(r.sevs, sev)
}

// newTestRoot builds the reference layout: testfile1.txt (13 bytes),
// testfile2.mp4, and subdirectory test2 containing nested.txt.
func newTestRoot(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "test_dir")
	if err := os.Mkdir(root, 0755); err != nil {
		t.Fatalf("mkdir root: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "testfile1.txt"), []byte("Hello, world!"), 0644); err != nil {
		t.Fatalf("write testfile1: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "testfile2.mp4"), []byte{0x00, 0x01, 0x02, 0x03}, 0644); err != nil {
		t.Fatalf("write testfile2: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "test2"), 0755); err != nil {
		t.Fatalf("mkdir test2: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "test2", "nested.txt"), []byte("nested"), 0644); err != nil {
		t.Fatalf("write nested: %v", err)
	}
	return root
}

func TestBuildSnapshotShape(t *testing.T) {
	root := newTestRoot(t)

	snap, err := Build(root, NopSink)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	head := snap.Root()
	if head.Name != "test_dir" {
		t.Errorf("root name: got %q, want %q", head.Name, "test_dir")
	}
	if head.Size != 0 {
		t.Errorf("root size: got %d, want 0", head.Size)
	}
	if head.Children == nil {
		t.Fatal("root has no children map")
	}
	if len(head.Children) != 3 {
		t.Fatalf("root children: got %d, want 3", len(head.Children))
	}
	for _, name := range []string{"testfile1.txt", "testfile2.mp4", "test2"} {
		if _, ok := head.Children[name]; !ok {
			t.Errorf("root missing child %q", name)
		}
	}

	leaf := snap.Node(head.Children["testfile1.txt"])
	if leaf.Size != 13 {
		t.Errorf("testfile1.txt size: got %d, want 13", leaf.Size)
	}
	if leaf.IsDir() {
		t.Error("testfile1.txt indexed as directory")
	}

	sub := snap.Node(head.Children["test2"])
	if !sub.IsDir() {
		t.Error("test2 not indexed as directory")
	}
	if len(sub.Children) != 1 {
		t.Errorf("test2 children: got %d, want 1", len(sub.Children))
	}
}

func TestBuildEmptyDirectory(t *testing.T) {
	root := t.TempDir()

	snap, err := Build(root, NopSink)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	head := snap.Root()
	if head.Children == nil {
		t.Fatal("empty directory should still carry a children map")
	}
	if len(head.Children) != 0 {
		t.Errorf("children: got %d, want 0", len(head.Children))
	}
}

func TestBuildRootMissing(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "no_such_dir"), NopSink)
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestBuildRootNotDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Build(file, NopSink)
	if !errors.Is(err, ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory, got %v", err)
	}
}

func TestBuildSymlinkFailsWholeBuild(t *testing.T) {
	root := newTestRoot(t)
	target := filepath.Join(root, "testfile1.txt")
	if err := os.Symlink(target, filepath.Join(root, "test2", "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	snap, err := Build(root, NopSink)
	if !errors.Is(err, ErrUnsupportedEntry) {
		t.Fatalf("expected ErrUnsupportedEntry, got %v", err)
	}
	if snap != nil {
		t.Error("no snapshot should be produced when the build fails")
	}
}

func TestBuildSkipsInvalidUTF8Name(t *testing.T) {
	root := newTestRoot(t)
	// Raw bytes in the name; valid on Linux filesystems, not valid UTF-8.
	bad := filepath.Join(root, "bad\xff\xfe.txt")
	if err := os.WriteFile(bad, []byte("x"), 0644); err != nil {
		t.Skipf("filesystem rejects non-UTF-8 names: %v", err)
	}

	rec := &recorder{}
	snap, err := Build(root, rec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := len(snap.Root().Children); got != 3 {
		t.Errorf("root children: got %d, want 3 (bad name skipped)", got)
	}
	if len(rec.events) != 1 {
		t.Fatalf("sink notifications: got %d, want 1", len(rec.events))
	}
	if rec.sevs[0] != SeverityMedium {
		t.Errorf("severity: got %v, want medium", rec.sevs[0])
	}
	if !strings.Contains(rec.events[0], "not valid UTF-8") {
		t.Errorf("unexpected anomaly message: %q", rec.events[0])
	}
}

func TestBuildUnreadableDirIsRecoverable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := newTestRoot(t)
	locked := filepath.Join(root, "locked")
	if err := os.Mkdir(locked, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Chmod(locked, 0000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	rec := &recorder{}
	snap, err := Build(root, rec)
	if err != nil {
		t.Fatalf("Build should recover from a listing error: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("sink notifications: got %d, want 1", len(rec.events))
	}
	if rec.sevs[0] != SeverityMedium {
		t.Errorf("severity: got %v, want medium", rec.sevs[0])
	}

	// The unreadable directory is still present, just with nothing
	// listed beneath it.
	id, err := snap.Resolve("locked")
	if err != nil {
		t.Fatalf("Resolve locked: %v", err)
	}
	if got := len(snap.Node(id).Children); got != 0 {
		t.Errorf("locked children: got %d, want 0", got)
	}
}

func TestResolve(t *testing.T) {
	root := newTestRoot(t)
	snap, err := Build(root, NopSink)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Empty path resolves to the root node.
	id, err := snap.Resolve("")
	if err != nil {
		t.Fatalf(`Resolve(""): %v`, err)
	}
	if id != RootID {
		t.Errorf(`Resolve(""): got node %d, want root`, id)
	}

	// A single-segment path descends; it is not the root.
	id, err = snap.Resolve("testfile1.txt")
	if err != nil {
		t.Fatalf("Resolve single segment: %v", err)
	}
	if id == RootID {
		t.Error("single-segment path aliased to root")
	}
	if got := snap.Node(id).Name; got != "testfile1.txt" {
		t.Errorf("resolved name: got %q", got)
	}

	id, err = snap.Resolve("test2/nested.txt")
	if err != nil {
		t.Fatalf("Resolve nested: %v", err)
	}
	if got := snap.Node(id).Name; got != "nested.txt" {
		t.Errorf("resolved name: got %q", got)
	}

	if _, err := snap.Resolve("missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing final segment: got %v, want ErrNotFound", err)
	}
	if _, err := snap.Resolve("test2/missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing nested segment: got %v, want ErrNotFound", err)
	}
	if _, err := snap.Resolve("testfile1.txt/impossible"); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("traversal through file: got %v, want ErrNotDirectory", err)
	}
}

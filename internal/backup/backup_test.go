package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/percept/internal/store"
)

func seedStore(t *testing.T, s store.GraphStore) {
	t.Helper()
	ctx := context.Background()

	nodes := []store.Node{
		{ID: "visual_cat", Embedding: []float32{0.8, 0.2, 0.9}, ActivationCount: 2, Confidence: 0.5},
		{ID: "visual_animal", Embedding: []float32{0.6, 0.4, 0.7}, Confidence: 0.5},
	}
	for _, n := range nodes {
		if err := s.AddNode(ctx, n); err != nil {
			t.Fatalf("AddNode(%s) failed: %v", n.ID, err)
		}
	}
	err := s.AddEdge(ctx, store.Edge{Source: "visual_cat", Target: "visual_animal", Weight: 0.9, CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
}

func TestBackupAndRestore(t *testing.T) {
	ctx := context.Background()
	src := store.NewInMemoryGraphStore()
	seedStore(t, src)

	path := filepath.Join(t.TempDir(), "backup.json")
	backup, err := Backup(ctx, src, path)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if len(backup.Nodes) != 2 || len(backup.Edges) != 1 {
		t.Fatalf("backup contents: %d nodes, %d edges; want 2, 1", len(backup.Nodes), len(backup.Edges))
	}
	if backup.Nodes[0].ID != "visual_cat" {
		t.Errorf("insertion order lost in backup: first node %s", backup.Nodes[0].ID)
	}

	dst := store.NewInMemoryGraphStore()
	result, err := Restore(ctx, dst, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if result.NodesRestored != 2 || result.EdgesRestored != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	// Activation counters travel with the backup.
	node, err := dst.GetNode(ctx, "visual_cat")
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if node == nil || node.ActivationCount != 2 {
		t.Errorf("restored node = %+v, want activation count 2", node)
	}
}

func TestRestoreMergeSkipsExisting(t *testing.T) {
	ctx := context.Background()
	src := store.NewInMemoryGraphStore()
	seedStore(t, src)

	path := filepath.Join(t.TempDir(), "backup.json")
	if _, err := Backup(ctx, src, path); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	dst := store.NewInMemoryGraphStore()
	if err := dst.AddNode(ctx, store.Node{ID: "visual_cat", Embedding: []float32{1, 1, 1}}); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}

	result, err := Restore(ctx, dst, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if result.NodesSkipped != 1 {
		t.Errorf("NodesSkipped = %d, want 1", result.NodesSkipped)
	}
	if result.NodesRestored != 1 {
		t.Errorf("NodesRestored = %d, want 1", result.NodesRestored)
	}

	// The existing node is left untouched in merge mode.
	node, _ := dst.GetNode(ctx, "visual_cat")
	if node.Embedding[0] != 1 {
		t.Errorf("merge overwrote existing node: %v", node.Embedding)
	}
}

func TestRestoreStrictFailsOnConflict(t *testing.T) {
	ctx := context.Background()
	src := store.NewInMemoryGraphStore()
	seedStore(t, src)

	path := filepath.Join(t.TempDir(), "backup.json")
	if _, err := Backup(ctx, src, path); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	dst := store.NewInMemoryGraphStore()
	if err := dst.AddNode(ctx, store.Node{ID: "visual_cat", Embedding: []float32{1, 1, 1}}); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}

	if _, err := Restore(ctx, dst, path, RestoreStrict); err == nil {
		t.Error("expected strict restore to fail on existing node")
	}
}

func TestRestoreRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "nodes": [], "edges": []}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err := Restore(context.Background(), store.NewInMemoryGraphStore(), path, RestoreMerge)
	if err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestGenerateBackupPath(t *testing.T) {
	path := GenerateBackupPath("/tmp/backups")
	if filepath.Dir(path) != "/tmp/backups" {
		t.Errorf("unexpected dir: %s", path)
	}
	base := filepath.Base(path)
	if filepath.Ext(base) != ".json" {
		t.Errorf("expected .json extension: %s", base)
	}
}

func TestRotateBackups(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"percept-backup-20260101-000000.json",
		"percept-backup-20260102-000000.json",
		"percept-backup-20260103-000000.json",
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	if err := RotateBackups(dir, 2); err != nil {
		t.Fatalf("RotateBackups failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d backups after rotation, want 2", len(entries))
	}

	// Oldest should be gone
	if _, err := os.Stat(filepath.Join(dir, names[0])); !os.IsNotExist(err) {
		t.Error("oldest backup should have been removed")
	}
}

func TestRotateBackups_MissingDir(t *testing.T) {
	if err := RotateBackups(filepath.Join(t.TempDir(), "nope"), 2); err != nil {
		t.Errorf("missing dir should not error: %v", err)
	}
}

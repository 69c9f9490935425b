package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocalPerceptPath(t *testing.T) {
	got := LocalPerceptPath("/tmp/project")
	want := filepath.Join("/tmp/project", ".percept")
	if got != want {
		t.Errorf("LocalPerceptPath() = %s, want %s", got, want)
	}
}

func TestGlobalPerceptPath(t *testing.T) {
	got, err := GlobalPerceptPath()
	if err != nil {
		t.Fatalf("GlobalPerceptPath failed: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir failed: %v", err)
	}
	want := filepath.Join(home, ".percept")
	if got != want {
		t.Errorf("GlobalPerceptPath() = %s, want %s", got, want)
	}
}

func TestEnsureLocalPerceptDir(t *testing.T) {
	root := t.TempDir()

	if err := EnsureLocalPerceptDir(root); err != nil {
		t.Fatalf("EnsureLocalPerceptDir failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(root, ".percept"))
	if err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}

	// Idempotent on existing directory
	if err := EnsureLocalPerceptDir(root); err != nil {
		t.Errorf("second EnsureLocalPerceptDir failed: %v", err)
	}
}

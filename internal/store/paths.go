// Package store provides graph storage implementations.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// GlobalPerceptPath returns the path to the global .percept directory.
// On Unix: ~/.percept
// On Windows: %USERPROFILE%\.percept
func GlobalPerceptPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".percept"), nil
}

// LocalPerceptPath returns the path to the local .percept directory
// for the given project root.
func LocalPerceptPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".percept")
}

// EnsureLocalPerceptDir creates the local .percept directory if it doesn't exist.
func EnsureLocalPerceptDir(projectRoot string) error {
	if err := os.MkdirAll(LocalPerceptPath(projectRoot), 0755); err != nil {
		return fmt.Errorf("failed to create .percept directory: %w", err)
	}
	return nil
}

// EnsureGlobalPerceptDir creates the global .percept directory if it doesn't exist.
func EnsureGlobalPerceptDir() error {
	globalPath, err := GlobalPerceptPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(globalPath, 0755); err != nil {
		return fmt.Errorf("failed to create global .percept directory: %w", err)
	}
	return nil
}

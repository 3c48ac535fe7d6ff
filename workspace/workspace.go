/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package workspace manages the scratch directories that repositories
// are cloned into while an issue is being worked on.
package workspace

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager creates and removes per-attempt clone directories under a
// single base directory.
type Manager struct {
	baseDir string
}

// NewManager returns a Manager rooted at baseDir, creating it if needed.
func NewManager(baseDir string) (*Manager, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("workspace base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace base %s: %w", baseDir, err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// BaseDir returns the directory workspaces are created under.
func (m *Manager) BaseDir() string { return m.baseDir }

// Create makes a fresh empty directory for a clone of owner/repo and
// returns its path. The random suffix keeps concurrent attempts on the
// same repository apart.
func (m *Manager) Create(owner, repo string) (string, error) {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating workspace suffix: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%s", sanitize(owner), sanitize(repo), hex.EncodeToString(buf[:]))
	path := filepath.Join(m.baseDir, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		return "", fmt.Errorf("creating workspace %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes a workspace directory. Paths outside the base
// directory are refused.
func (m *Manager) Remove(path string) error {
	rel, err := filepath.Rel(m.baseDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove %s: not under %s", path, m.baseDir)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing workspace %s: %w", path, err)
	}
	return nil
}

// List returns the paths of all current workspace directories.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(m.baseDir, e.Name()))
		}
	}
	return out, nil
}

// sanitize keeps directory names filesystem-safe.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}

package appconfig

import (
	"os"
	"path/filepath"
	"strings"
)

// RepoConfigName is the per-repository config file; its presence also marks a repo root.
const RepoConfigName = ".bake.yaml"

// FindRepoRoot walks up from start to the closest directory that is a VCS checkout
// or carries a repo config file. It returns "" when there is none.
func FindRepoRoot(start string) string {
	start = strings.TrimSpace(start)
	if start == "" {
		return ""
	}
	info, err := os.Stat(start)
	if err == nil && !info.IsDir() {
		start = filepath.Dir(start)
	}
	current := start
	for {
		if isRepoRoot(current) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

func isRepoRoot(dir string) bool {
	if dir == "" {
		return false
	}
	// .git is a file in worktrees and submodules.
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if fi, err := os.Stat(filepath.Join(dir, ".hg")); err == nil && fi.IsDir() {
		return true
	}
	if fi, err := os.Stat(filepath.Join(dir, RepoConfigName)); err == nil && !fi.IsDir() {
		return true
	}
	return false
}

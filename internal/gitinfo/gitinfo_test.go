package gitinfo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=bake", "GIT_AUTHOR_EMAIL=bake@example.com",
		"GIT_COMMITTER_NAME=bake", "GIT_COMMITTER_EMAIL=bake@example.com",
		"GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_NOSYSTEM=1",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestHead(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run(t, dir, "init", "-q")
	run(t, dir, "commit", "-q", "--allow-empty", "-m", "init")

	commit, dirty, err := Head(context.Background(), dir)
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if len(commit) < 40 || dirty {
		t.Fatalf("commit=%q dirty=%v", commit, dirty)
	}

	if err := os.WriteFile(filepath.Join(dir, "local.conf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, dirty, err = Head(context.Background(), dir); err != nil || !dirty {
		t.Fatalf("dirty=%v err=%v", dirty, err)
	}
}

func TestHeadOutsideRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(t.TempDir()))
	if _, _, err := Head(context.Background(), t.TempDir()); err == nil {
		t.Fatalf("expected error outside a repository")
	}
}

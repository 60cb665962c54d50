package appconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_RepoOverridesGlobal(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(dir, "global.yaml")
	repo := filepath.Join(dir, "repo.yaml")
	writeFile(t, global, `defaults:
  workDir: /srv/work
  kasCommand: kas
  logLevel: debug
  lenient: true
  environment:
    DL_DIR: /srv/dl
    SSTATE_DIR: /srv/sstate
`)
	writeFile(t, repo, `defaults:
  kasCommand: kas-container --isar
  environment:
    SSTATE_DIR: /mnt/sstate
`)
	cfg, err := Load(context.Background(), global, repo)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := cfg.Defaults
	if d.WorkDir != "/srv/work" || d.KasCommand != "kas-container --isar" || d.LogLevel != "debug" {
		t.Fatalf("defaults=%+v", d)
	}
	if d.Lenient == nil || !*d.Lenient {
		t.Fatalf("lenient=%v", d.Lenient)
	}
	if d.Environment["DL_DIR"] != "/srv/dl" || d.Environment["SSTATE_DIR"] != "/mnt/sstate" {
		t.Fatalf("environment=%v", d.Environment)
	}
}

func TestLoad_MissingFilesAreEmpty(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(context.Background(), filepath.Join(dir, "nope.yaml"), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Defaults.WorkDir != "" || cfg.Defaults.Environment != nil {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "defaults: [unterminated\n")
	if _, err := Load(context.Background(), "", path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFindRepoRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := filepath.Join(root, "kas", "machines", "qemu.yml")
	writeFile(t, doc, "header: {version: 14}\n")
	if got := FindRepoRoot(doc); got != root {
		t.Fatalf("root=%q want %q", got, root)
	}

	nested := filepath.Join(root, "layers", "meta-bsp")
	writeFile(t, filepath.Join(nested, RepoConfigName), "defaults: {}\n")
	if got := FindRepoRoot(filepath.Join(nested, "kas")); got != nested {
		t.Fatalf("nested root=%q want %q", got, nested)
	}
	if DefaultRepoPath(nested) != filepath.Join(nested, RepoConfigName) {
		t.Fatalf("repo path=%q", DefaultRepoPath(nested))
	}
}

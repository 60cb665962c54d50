package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestPlanTable(t *testing.T) {
	isolateEnv(t)
	work, base := writeProject(t)

	got, err := execute(t, "plan", "--work-dir", work, base)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{
		"Build system: openembedded (oe-init-build-env)\n",
		"Machine:      qemuarm64\n",
		"Distro:       poky-tiny\n",
		"Targets:      core-image-base\n",
		"Build dir:    " + filepath.Join(work, "build") + "\n",
		"Passthrough: DL_DIR\n",
		filepath.Join(filepath.Dir(base), "common.yml") + "\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("plan missing %q:\n%s", want, got)
		}
	}
	var repoLine string
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "poky ") {
			repoLine = line
		}
	}
	for _, want := range []string{"clone", "kirkstone", "meta,meta-poky"} {
		if !strings.Contains(repoLine, want) {
			t.Fatalf("repo row %q missing %q", repoLine, want)
		}
	}
	if strings.Index(got, "common.yml") > strings.Index(got, "base.yml") {
		t.Fatalf("sources not listed in merge order:\n%s", got)
	}
}

func TestPlanJSON(t *testing.T) {
	isolateEnv(t)
	work, base := writeProject(t)

	got, err := execute(t, "plan", "--work-dir", work, "--format", "json", base)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var view struct {
		Digest  string   `json:"digest"`
		Machine string   `json:"machine"`
		Sources []string `json:"sources"`
		Repos   []struct {
			ID   string `json:"id"`
			Path string `json:"path"`
		} `json:"repos"`
	}
	if err := json.Unmarshal([]byte(got), &view); err != nil {
		t.Fatalf("decode: %v\n%s", err, got)
	}
	if view.Machine != "qemuarm64" || len(view.Sources) != 2 || !strings.HasPrefix(view.Digest, "sha256:") {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.Repos) != 1 || view.Repos[0].Path != filepath.Join(work, "poky") {
		t.Fatalf("repos=%+v", view.Repos)
	}
}

func TestTrimLeftToWidth(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{in: "/work/poky", width: 20, want: "/work/poky"},
		{in: "/work/poky/meta", width: 8, want: "…ky/meta"},
		{in: "/work/poky", width: 1, want: "…"},
	}
	for _, tt := range tests {
		got := trimLeftToWidth(tt.in, tt.width)
		if got != tt.want {
			t.Fatalf("trimLeftToWidth(%q, %d)=%q want %q", tt.in, tt.width, got, tt.want)
		}
		if runewidth.StringWidth(got) > tt.width {
			t.Fatalf("%q wider than %d", got, tt.width)
		}
	}
}

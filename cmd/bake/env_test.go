package main

import (
	"strings"
	"testing"
)

func TestEnvCommandPrintsCatalogAndValues(t *testing.T) {
	isolateEnv(t)
	t.Setenv("KAS_MACHINE", "raspberrypi4")

	got, err := execute(t, "env")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"CATEGORY", "VARIABLE", "VALUE", "DESCRIPTION", "BAKE_CONFIG", "BAKE_FEATURE_<FLAG>", "KAS_TARGET", "KAS_WORK_DIR"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, got)
		}
	}
	if !strings.Contains(got, "raspberrypi4") {
		t.Fatalf("expected KAS_MACHINE value to be shown, got:\n%s", got)
	}
}

func TestEnvCommandHidesInternalByDefault(t *testing.T) {
	isolateEnv(t)
	got, err := execute(t, "env")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(got, "BB_ENV_PASSTHROUGH_ADDITIONS") {
		t.Fatalf("expected internal variables to be hidden, got:\n%s", got)
	}
	got, err = execute(t, "env", "--all")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(got, "BB_ENV_PASSTHROUGH_ADDITIONS") {
		t.Fatalf("expected internal variables with --all, got:\n%s", got)
	}
}

func TestEnvCommandOnlySetAndFiltering(t *testing.T) {
	isolateEnv(t)
	t.Setenv("KAS_DISTRO", "poky-tiny")

	got, err := execute(t, "env", "--set", "--category", "overrides", "--match", "distro")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(got, "KAS_DISTRO") {
		t.Fatalf("expected KAS_DISTRO, got:\n%s", got)
	}
	if strings.Contains(got, "KAS_MACHINE") || strings.Contains(got, "BAKE_CONFIG") {
		t.Fatalf("expected other variables to be filtered out, got:\n%s", got)
	}
}

func TestEnvCommandFormats(t *testing.T) {
	isolateEnv(t)
	got, err := execute(t, "env", "--format", "json", "--set")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(got, `"variable": "BAKE_CONFIG"`) {
		t.Fatalf("expected JSON output to include BAKE_CONFIG, got:\n%s", got)
	}
	got, err = execute(t, "env", "--format", "yaml", "--match", "KAS_TASK")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(got, "variable: KAS_TASK") {
		t.Fatalf("expected YAML output to include KAS_TASK, got:\n%s", got)
	}
	if _, err := execute(t, "env", "--format", "xml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

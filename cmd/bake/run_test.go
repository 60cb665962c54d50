package main

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/example/bake/internal/executor"
)

func TestCheckoutDryRun(t *testing.T) {
	isolateEnv(t)
	work, base := writeProject(t)

	got, err := execute(t, "checkout", "--dry-run", "--work-dir", work, base)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{
		"clone git https://git.yoctoproject.org/git/poky -> " + filepath.Join(work, "poky") + " (kirkstone)\n",
		"write " + filepath.Join(work, "build") + "/conf/bblayers.conf\n",
		"    " + filepath.Join(work, "poky", "meta-poky") + " \\\n",
		"    DISTRO ??= \"poky-tiny\"\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("dry run missing %q:\n%s", want, got)
		}
	}
}

func TestBuildDryRunHonorsOverrides(t *testing.T) {
	isolateEnv(t)
	work, base := writeProject(t)
	t.Setenv("KAS_TARGET", "core-image-sato mc:rpi:core-image-base")
	t.Setenv("KAS_TASK", "populate_sdk")

	got, err := execute(t, "build", "--dry-run", "--work-dir", work, base)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{
		"source oe-init-build-env " + filepath.Join(work, "build") + "\n",
		"export DL_DIR=/srv/downloads\n",
		"export BB_ENV_PASSTHROUGH_ADDITIONS=DL_DIR\n",
		"bitbake -c populate_sdk core-image-sato mc:rpi:core-image-base\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("dry run missing %q:\n%s", want, got)
		}
	}
}

func TestBuildRunsKasCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script executor")
	}
	isolateEnv(t)
	work, base := writeProject(t)
	record := filepath.Join(work, "record.txt")
	script := filepath.Join(work, "fake-kas.sh")
	writeFile(t, script, "#!/bin/sh\necho \"$@\" > "+record+"\necho \"$KAS_MACHINE|$KAS_BUILD_DIR\" >> "+record+"\n")

	if _, err := execute(t, "build", "--work-dir", work, "--kas-command", "/bin/sh "+script, base); err != nil {
		t.Fatalf("execute: %v", err)
	}
	raw, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}
	want := "build " + base + "\nqemuarm64|" + filepath.Join(work, "build") + "\n"
	if string(raw) != want {
		t.Fatalf("record=%q want %q", raw, want)
	}
}

func TestCheckoutKasFailureIsTyped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script executor")
	}
	isolateEnv(t)
	work, base := writeProject(t)

	_, err := execute(t, "checkout", "--work-dir", work, "--kas-command", "/bin/sh -c 'exit 2' kas", base)
	var cerr *executor.CheckoutError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CheckoutError, got %v", err)
	}
}

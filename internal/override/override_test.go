package override

import (
	"testing"

	"github.com/example/bake/internal/project"
	"github.com/google/go-cmp/cmp"
)

func TestApply_TargetReplacesMergedList(t *testing.T) {
	doc := &project.Document{Target: []string{"a"}}
	ov := FromEnviron([]string{"KAS_TARGET=b c"})
	got, err := Apply(doc, ov)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, got.Target); diff != "" {
		t.Fatalf("target mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, doc.Target); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestApply_EmptyValuesAreIgnored(t *testing.T) {
	doc := &project.Document{
		Machine: project.Ptr("qemuarm64"),
		Distro:  project.Ptr("poky-tiny"),
		Task:    project.Ptr("fetch"),
		Target:  []string{"core-image-base"},
	}
	ov := FromEnviron([]string{"KAS_MACHINE=", "KAS_TARGET=   ", "UNRELATED=1"})
	if !ov.Empty() {
		t.Fatalf("expected empty overrides, got %+v", ov)
	}
	got, err := Apply(doc, ov)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Fatalf("document changed (-want +got):\n%s", diff)
	}
}

func TestApply_AllFields(t *testing.T) {
	lookup := EnvironLookup([]string{
		"KAS_MACHINE=raspberrypi4",
		"KAS_DISTRO=poky-altcfg",
		"KAS_TASK=populate_sdk",
		"KAS_TARGET=mc:rpi:core-image-base\tzlib-native",
	})
	got, err := Apply(&project.Document{}, FromLookup(lookup))
	if err != nil {
		t.Fatal(err)
	}
	s := Effective(got)
	want := Settings{
		Machine: "raspberrypi4",
		Distro:  "poky-altcfg",
		Task:    "populate_sdk",
		Targets: []string{"mc:rpi:core-image-base", "zlib-native"},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"rpi"}, s.Multiconfigs()); diff != "" {
		t.Fatalf("multiconfigs mismatch (-want +got):\n%s", diff)
	}
}

func TestEffective_Defaults(t *testing.T) {
	s := Effective(&project.Document{})
	if s.Machine != DefaultMachine || s.Distro != DefaultDistro || s.Task != DefaultTask {
		t.Fatalf("settings=%+v", s)
	}
	if diff := cmp.Diff([]string{DefaultTarget}, s.Targets); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
}

func TestFromEnviron_UsesProcessEnv(t *testing.T) {
	t.Setenv(EnvMachine, "genericx86-64")
	ov := FromEnviron(nil)
	if ov.Machine != "genericx86-64" {
		t.Fatalf("machine=%q", ov.Machine)
	}
}

func TestPassthrough(t *testing.T) {
	doc := &project.Document{Env: map[string]project.Optional{
		"SSTATE_DIR":  project.Some("/srv/sstate"),
		"DL_DIR":      project.Some("/srv/dl"),
		"BB_NUMBER":   project.None(),
		"SSTATE_MIRR": project.None(),
	}}
	lookup := EnvironLookup([]string{"DL_DIR=/mnt/dl", "BB_NUMBER=8"})
	values, names := Passthrough(doc, lookup)
	wantValues := map[string]string{
		"SSTATE_DIR": "/srv/sstate",
		"DL_DIR":     "/mnt/dl",
		"BB_NUMBER":  "8",
	}
	if diff := cmp.Diff(wantValues, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"BB_NUMBER", "DL_DIR", "SSTATE_DIR", "SSTATE_MIRR"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestTargets_SplitsOnWhitespaceOnly(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "a;b c", want: []string{"a;b", "c"}},
		{raw: "a|b", want: []string{"a|b"}},
		{raw: "  x  &y >z ", want: []string{"x", "&y", ">z"}},
		{raw: "'quoted name'", want: []string{"'quoted", "name'"}},
	}
	for _, tt := range tests {
		got, err := Overrides{Target: tt.raw}.Targets()
		if err != nil {
			t.Fatalf("%q: %v", tt.raw, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("%q mismatch (-want +got):\n%s", tt.raw, diff)
		}
	}
}

package merge

import (
	"testing"

	"github.com/example/bake/internal/project"
	"github.com/google/go-cmp/cmp"
)

func parse(t *testing.T, src string) *project.Document {
	t.Helper()
	doc, err := project.Parse("test.yml", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestDocuments_ScalarOrderSensitive(t *testing.T) {
	a := parse(t, "header: {version: 14}\nmachine: qemux86-64\ndistro: poky\n")
	b := parse(t, "header: {version: 14}\nmachine: raspberrypi4\n")

	ab := Documents([]*project.Document{a, b})
	if *ab.Machine != "raspberrypi4" {
		t.Fatalf("[a b] machine=%q", *ab.Machine)
	}
	if *ab.Distro != "poky" {
		t.Fatalf("absent scalar must not clear earlier value, distro=%v", ab.Distro)
	}
	ba := Documents([]*project.Document{b, a})
	if *ba.Machine != "qemux86-64" {
		t.Fatalf("[b a] machine=%q", *ba.Machine)
	}
}

func TestDocuments_TargetReplaces(t *testing.T) {
	a := parse(t, "header: {version: 14}\ntarget: [a, b]\n")
	b := parse(t, "header: {version: 14}\ntarget: [c]\n")
	c := parse(t, "header: {version: 14}\nmachine: x\n")
	got := Documents([]*project.Document{a, b, c})
	if diff := cmp.Diff([]string{"c"}, got.Target); diff != "" {
		t.Fatalf("target mismatch (-want +got):\n%s", diff)
	}
}

func TestDocuments_EnvUnion(t *testing.T) {
	a := parse(t, "header: {version: 14}\nenv:\n  A: one\n  B: two\n  C:\n")
	b := parse(t, "header: {version: 14}\nenv:\n  B:\n  C: three\n  D: four\n")
	got := Documents([]*project.Document{a, b})
	want := map[string]project.Optional{
		"A": project.Some("one"),
		"B": project.None(),
		"C": project.Some("three"),
		"D": project.Some("four"),
	}
	if diff := cmp.Diff(want, got.Env); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestDocuments_RepoFieldwise(t *testing.T) {
	a := parse(t, `
header: {version: 14}
repos:
  self:
  poky:
    url: https://git.yoctoproject.org/git/poky
    branch: kirkstone
    layers:
      meta:
      meta-poky:
    patches:
      20-x: {repo: self, path: x.patch}
`)
	b := parse(t, `
header: {version: 14}
repos:
  poky:
    commit: abc123
    layers:
      meta-poky: disabled
      meta-yocto-bsp:
    patches:
      10-y: {repo: self, path: y.patch}
  self:
`)
	got := Documents([]*project.Document{a, b})
	poky := got.Repos["poky"]
	if poky == nil {
		t.Fatalf("poky missing: %v", got.Repos)
	}
	if *poky.URL != "https://git.yoctoproject.org/git/poky" || *poky.Branch != "kirkstone" || *poky.Commit != "abc123" {
		t.Fatalf("poky scalars url=%v branch=%v commit=%v", poky.URL, poky.Branch, poky.Commit)
	}
	wantLayers := map[string]project.Optional{
		"meta":           project.None(),
		"meta-poky":      project.Some("disabled"),
		"meta-yocto-bsp": project.None(),
	}
	if diff := cmp.Diff(wantLayers, poky.Layers); diff != "" {
		t.Fatalf("layers mismatch (-want +got):\n%s", diff)
	}
	if len(poky.Patches) != 2 {
		t.Fatalf("patches=%v", poky.Patches)
	}
	if self, ok := got.Repos["self"]; !ok || self != nil {
		t.Fatalf("self=%#v present=%v", self, ok)
	}
}

func TestDocuments_DoesNotMutateInputs(t *testing.T) {
	a := parse(t, "header: {version: 14}\nenv: {A: one}\nrepos:\n  r: {layers: {meta: null}}\n")
	b := parse(t, "header: {version: 14}\nenv: {A: two}\nrepos:\n  r: {layers: {extra: null}}\n")
	got := Documents([]*project.Document{a, b})
	got.Env["Z"] = project.None()
	if v, _ := a.Env["A"].Get(); v != "one" || len(a.Env) != 1 {
		t.Fatalf("input env mutated: %v", a.Env)
	}
	if len(a.Repos["r"].Layers) != 1 {
		t.Fatalf("input layers mutated: %v", a.Repos["r"].Layers)
	}
	if got.Header.Version != "" || got.Header.Includes != nil {
		t.Fatalf("header must be discarded, got %+v", got.Header)
	}
}

func TestRepo_BodylessOverrideKeepsBase(t *testing.T) {
	base := &project.Repo{URL: project.Ptr("https://example.com/x")}
	if got := Repo(base, nil); got == nil || *got.URL != "https://example.com/x" {
		t.Fatalf("got %#v", got)
	}
	if got := Repo(nil, nil); got != nil {
		t.Fatalf("nil+nil should stay nil, got %#v", got)
	}
}

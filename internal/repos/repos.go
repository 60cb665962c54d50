// File: internal/repos/repos.go
// Brief: Checkout paths, enabled layers and patch order for the effective document.

package repos

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/bake/internal/buildctx"
	"github.com/example/bake/internal/project"
)

// Operation is what the checkout executor has to do for a repo.
type Operation string

const (
	OpClone Operation = "clone"
	OpNone  Operation = "none"
)

// RootLayer is the layer key naming the repo root itself.
const RootLayer = "."

var disabledMarkers = map[string]struct{}{
	"disabled": {},
	"excluded": {},
	"n":        {},
	"no":       {},
	"0":        {},
	"false":    {},
}

// UnknownPatchRepoError reports a patch whose source repo is not part of the effective document.
type UnknownPatchRepoError struct {
	Repo    string
	PatchID string
	Ref     string
}

func (e *UnknownPatchRepoError) Error() string {
	return fmt.Sprintf("repo %q: patch %q refers to unknown repository %q", e.Repo, e.PatchID, e.Ref)
}

// Layer is one enabled layer.
type Layer struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Patch is one patch in apply order.
type Patch struct {
	ID   string `json:"id"`
	Repo string `json:"repo"`
	File string `json:"file"`
	Path string `json:"path"`
}

// ResolvedRepo is a repo of the effective document with every path resolved.
type ResolvedRepo struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	URL       string      `json:"url,omitempty"`
	VCS       project.VCS `json:"vcs,omitempty"`
	Commit    string      `json:"commit,omitempty"`
	Branch    string      `json:"branch,omitempty"`
	Refspec   string      `json:"refspec,omitempty"`
	Operation Operation   `json:"operation"`
	Layers    []Layer     `json:"layers"`
	Patches   []Patch     `json:"patches,omitempty"`
}

// LayerEnabled reports whether a layer marker keeps the layer in the build.
func LayerEnabled(marker project.Optional) bool {
	v, ok := marker.Get()
	if !ok {
		return true
	}
	_, off := disabledMarkers[strings.ToLower(strings.TrimSpace(v))]
	return !off
}

// Resolve resolves every repo of doc, sorted by id. topDir is the checkout of the
// repository holding the top-level document; when empty the work dir is used.
func Resolve(doc *project.Document, bc buildctx.Context, topDir string) ([]ResolvedRepo, error) {
	if doc == nil || len(doc.Repos) == 0 {
		return nil, nil
	}
	if topDir == "" {
		topDir = bc.WorkDir
	}
	ids := make([]string, 0, len(doc.Repos))
	dirs := make(map[string]string, len(doc.Repos))
	for id, r := range doc.Repos {
		ids = append(ids, id)
		dirs[id] = r.CheckoutDir(id, bc.WorkDir, topDir)
	}
	sort.Strings(ids)

	out := make([]ResolvedRepo, 0, len(ids))
	for _, id := range ids {
		r := doc.Repos[id]
		rr := ResolvedRepo{
			ID:        id,
			Name:      r.RepoName(id),
			Path:      dirs[id],
			Operation: OpNone,
			Layers:    layers(r, dirs[id]),
		}
		if r != nil {
			rr.URL = deref(r.URL)
			rr.Commit = deref(r.Commit)
			rr.Branch = deref(r.Branch)
			rr.Refspec = deref(r.Refspec)
			if r.Remote() {
				rr.Operation = OpClone
				rr.VCS = r.VCSKind()
			}
			ps, err := patches(id, r, dirs)
			if err != nil {
				return nil, err
			}
			rr.Patches = ps
		}
		out = append(out, rr)
	}
	return out, nil
}

func layers(r *project.Repo, dir string) []Layer {
	if r == nil || len(r.Layers) == 0 {
		return []Layer{{Name: RootLayer, Path: dir}}
	}
	names := make([]string, 0, len(r.Layers))
	for name := range r.Layers {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Layer, 0, len(names))
	for _, name := range names {
		if !LayerEnabled(r.Layers[name]) {
			continue
		}
		out = append(out, Layer{Name: name, Path: filepath.Join(dir, name)})
	}
	return out
}

func patches(id string, r *project.Repo, dirs map[string]string) ([]Patch, error) {
	if len(r.Patches) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(r.Patches))
	for pid := range r.Patches {
		ids = append(ids, pid)
	}
	sort.Strings(ids)
	out := make([]Patch, 0, len(ids))
	for _, pid := range ids {
		p := r.Patches[pid]
		src, ok := dirs[p.Repo]
		if !ok {
			return nil, &UnknownPatchRepoError{Repo: id, PatchID: pid, Ref: p.Repo}
		}
		out = append(out, Patch{ID: pid, Repo: p.Repo, File: p.Path, Path: filepath.Join(src, p.Path)})
	}
	return out, nil
}

// Patches flattens the patches of all repos into global apply order: by patch id,
// then by the repo they apply to.
func Patches(resolved []ResolvedRepo) []AppliedPatch {
	var out []AppliedPatch
	for _, rr := range resolved {
		for _, p := range rr.Patches {
			out = append(out, AppliedPatch{Target: rr.ID, Patch: p})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// AppliedPatch is a patch together with the repo it is applied to.
type AppliedPatch struct {
	Target string `json:"target"`
	Patch
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// File: internal/merge/merge.go
// Brief: Field-wise merge of ordered project documents.

// Package merge folds an ordered list of kas documents into one effective document.
// Later documents override earlier ones: scalars by last non-absent value, target by
// replacement, maps by key-wise union.
package merge

import (
	"maps"

	"github.com/example/bake/internal/project"
)

// Documents merges docs in order. The header of the result is always empty and the
// inputs are left untouched.
func Documents(docs []*project.Document) *project.Document {
	out := &project.Document{}
	for _, d := range docs {
		if d == nil {
			continue
		}
		mergeDocument(out, d)
	}
	return out
}

func mergeDocument(dst *project.Document, src *project.Document) {
	if src.BuildSystem != nil {
		v := *src.BuildSystem
		dst.BuildSystem = &v
	}
	overrideString(&dst.Machine, src.Machine)
	overrideString(&dst.Distro, src.Distro)
	overrideString(&dst.Task, src.Task)
	if len(src.Target) > 0 {
		dst.Target = append([]string(nil), src.Target...)
	}
	dst.Env = unionMap(dst.Env, src.Env)
	dst.LocalConfHeader = unionMap(dst.LocalConfHeader, src.LocalConfHeader)
	dst.BBLayersConfHeader = unionMap(dst.BBLayersConfHeader, src.BBLayersConfHeader)

	if src.Repos != nil {
		if dst.Repos == nil {
			dst.Repos = make(map[string]*project.Repo, len(src.Repos))
		}
		for id, r := range src.Repos {
			base, exists := dst.Repos[id]
			if !exists {
				dst.Repos[id] = r.Clone()
				continue
			}
			dst.Repos[id] = Repo(base, r)
		}
	}
}

// Repo merges override on top of base. A bodyless override keeps base as is.
func Repo(base, override *project.Repo) *project.Repo {
	if override == nil {
		return base.Clone()
	}
	if base == nil {
		return override.Clone()
	}
	out := base.Clone()
	overrideString(&out.Name, override.Name)
	overrideString(&out.URL, override.URL)
	overrideString(&out.Commit, override.Commit)
	overrideString(&out.Branch, override.Branch)
	overrideString(&out.Refspec, override.Refspec)
	overrideString(&out.Path, override.Path)
	if override.VCS != nil {
		v := *override.VCS
		out.VCS = &v
	}
	out.Layers = unionMap(out.Layers, override.Layers)
	out.Patches = unionMap(out.Patches, override.Patches)
	return out
}

func overrideString(dst **string, src *string) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

func unionMap[V any](dst, src map[string]V) map[string]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	maps.Copy(dst, src)
	return dst
}

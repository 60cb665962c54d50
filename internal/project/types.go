// File: internal/project/types.go
// Brief: kas project document model.

package project

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Document is one parsed kas configuration file.
type Document struct {
	Header Header `yaml:"header"`

	BuildSystem *BuildSystem        `yaml:"build_system,omitempty"`
	Machine     *string             `yaml:"machine,omitempty"`
	Distro      *string             `yaml:"distro,omitempty"`
	Target      []string            `yaml:"target,omitempty"`
	Env         map[string]Optional `yaml:"env,omitempty"`
	Task        *string             `yaml:"task,omitempty"`
	Repos       map[string]*Repo    `yaml:"repos,omitempty"`

	LocalConfHeader    map[string]string `yaml:"local_conf_header,omitempty"`
	BBLayersConfHeader map[string]string `yaml:"bblayers_conf_header,omitempty"`
}

// Header steers include expansion. It never survives into the effective configuration.
type Header struct {
	Version  string    `yaml:"version"`
	Includes []Include `yaml:"includes,omitempty"`
}

// Include references another configuration file. With Repo set, File is relative to that
// repository's root. An empty Repo means the repository holding the including document,
// and File is then relative to the including document's directory, not the repo root.
type Include struct {
	Repo string `yaml:"repo"`
	File string `yaml:"file"`
}

func (i Include) String() string {
	if i.Repo == "" {
		return i.File
	}
	return i.Repo + ":" + i.File
}

// Repo describes a repository and the layers it contributes.
type Repo struct {
	Name    *string `yaml:"name,omitempty"`
	URL     *string `yaml:"url,omitempty"`
	VCS     *VCS    `yaml:"vcs,omitempty"`
	Commit  *string `yaml:"commit,omitempty"`
	Branch  *string `yaml:"branch,omitempty"`
	Refspec *string `yaml:"refspec,omitempty"`
	Path    *string `yaml:"path,omitempty"`

	Layers  map[string]Optional `yaml:"layers,omitempty"`
	Patches map[string]Patch    `yaml:"patches,omitempty"`
}

// Patch is a single patch file or quilt series applied to the owning repo.
type Patch struct {
	Repo string `yaml:"repo"`
	Path string `yaml:"path"`
}

// BuildSystem is the bitbake based build framework.
type BuildSystem string

const (
	OpenEmbedded BuildSystem = "openembedded"
	Isar         BuildSystem = "isar"
)

// ParseBuildSystem accepts openembedded, oe and isar in any case.
func ParseBuildSystem(raw string) (BuildSystem, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openembedded", "oe":
		return OpenEmbedded, nil
	case "isar":
		return Isar, nil
	default:
		return "", fmt.Errorf("invalid build_system %q, expected 'openembedded', 'oe' or 'isar'", raw)
	}
}

// InitScript is the environment setup script the build system ships.
func (b BuildSystem) InitScript() string {
	if b == Isar {
		return "isar-init-build-env"
	}
	return "oe-init-build-env"
}

// VCS is the version control system a repo is fetched with.
type VCS string

const (
	Git VCS = "git"
	Hg  VCS = "hg"
)

// ParseVCS accepts git and hg in any case.
func ParseVCS(raw string) (VCS, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "git":
		return Git, nil
	case "hg":
		return Hg, nil
	default:
		return "", fmt.Errorf("invalid vcs %q, expected 'git' or 'hg'", raw)
	}
}

// Optional distinguishes a key that is present without a value from one carrying a value.
type Optional struct {
	Value string
	Set   bool
}

// Some returns an Optional holding v.
func Some(v string) Optional { return Optional{Value: v, Set: true} }

// None returns an empty Optional.
func None() Optional { return Optional{} }

// Get returns the value and whether one was supplied.
func (o Optional) Get() (string, bool) { return o.Value, o.Set }

func (o Optional) String() string {
	if !o.Set {
		return "<none>"
	}
	return o.Value
}

// MarshalYAML encodes None as null.
func (o Optional) MarshalYAML() (any, error) {
	if !o.Set {
		return nil, nil
	}
	return o.Value, nil
}

// RepoName is the directory name the repo is checked out under.
func (r *Repo) RepoName(id string) string {
	if r != nil && r.Name != nil && strings.TrimSpace(*r.Name) != "" {
		return *r.Name
	}
	return id
}

// Remote reports whether the repo has to be fetched.
func (r *Repo) Remote() bool {
	return r != nil && r.URL != nil && strings.TrimSpace(*r.URL) != ""
}

// VCSKind returns the configured VCS, defaulting to git.
func (r *Repo) VCSKind() VCS {
	if r == nil || r.VCS == nil {
		return Git
	}
	return *r.VCS
}

// CheckoutDir returns the directory the repo occupies. An explicit path wins (relative
// paths are taken from workDir); a remote repo is checked out under workDir by name.
// Anything else, including a bodyless entry, is the top repository at topDir.
func (r *Repo) CheckoutDir(id, workDir, topDir string) string {
	if r == nil {
		return topDir
	}
	if r.Path != nil && strings.TrimSpace(*r.Path) != "" {
		p := *r.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(workDir, p)
		}
		return filepath.Clean(p)
	}
	if r.Remote() {
		return filepath.Join(workDir, r.RepoName(id))
	}
	return topDir
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Header: Header{
			Version:  d.Header.Version,
			Includes: append([]Include(nil), d.Header.Includes...),
		},
		BuildSystem:        clonePtr(d.BuildSystem),
		Machine:            clonePtr(d.Machine),
		Distro:             clonePtr(d.Distro),
		Target:             append([]string(nil), d.Target...),
		Env:                cloneMap(d.Env),
		Task:               clonePtr(d.Task),
		LocalConfHeader:    cloneMap(d.LocalConfHeader),
		BBLayersConfHeader: cloneMap(d.BBLayersConfHeader),
	}
	if d.Repos != nil {
		out.Repos = make(map[string]*Repo, len(d.Repos))
		for id, r := range d.Repos {
			out.Repos[id] = r.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the repo; nil stays nil.
func (r *Repo) Clone() *Repo {
	if r == nil {
		return nil
	}
	return &Repo{
		Name:    clonePtr(r.Name),
		URL:     clonePtr(r.URL),
		VCS:     clonePtr(r.VCS),
		Commit:  clonePtr(r.Commit),
		Branch:  clonePtr(r.Branch),
		Refspec: clonePtr(r.Refspec),
		Path:    clonePtr(r.Path),
		Layers:  cloneMap(r.Layers),
		Patches: cloneMap(r.Patches),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

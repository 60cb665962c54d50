// File: internal/override/override.go
// Brief: Process environment overrides applied on top of the merged document.

// Package override applies the fixed set of KAS_* override variables to an already
// merged document and derives the effective machine, distro, targets and task.
package override

import (
	"os"
	"sort"
	"strings"

	"github.com/example/bake/internal/project"
)

const (
	EnvMachine = "KAS_MACHINE"
	EnvDistro  = "KAS_DISTRO"
	EnvTarget  = "KAS_TARGET"
	EnvTask    = "KAS_TASK"
)

// Compiled-in values used when neither the environment nor any document sets a field.
const (
	DefaultMachine = "qemux86-64"
	DefaultDistro  = "poky"
	DefaultTarget  = "core-image-minimal"
	DefaultTask    = "build"
)

// Overrides holds the raw override values taken from the invocation environment.
// Empty fields leave the document untouched.
type Overrides struct {
	Machine string
	Distro  string
	Target  string
	Task    string
}

// FromLookup reads the override variables through lookup.
func FromLookup(lookup func(string) (string, bool)) Overrides {
	get := func(name string) string {
		if lookup == nil {
			return ""
		}
		v, _ := lookup(name)
		return v
	}
	return Overrides{
		Machine: get(EnvMachine),
		Distro:  get(EnvDistro),
		Target:  get(EnvTarget),
		Task:    get(EnvTask),
	}
}

// FromEnviron reads the override variables from a KEY=VALUE list. A nil list means
// the current process environment.
func FromEnviron(environ []string) Overrides {
	if environ == nil {
		environ = os.Environ()
	}
	return FromLookup(EnvironLookup(environ))
}

// EnvironLookup turns a KEY=VALUE list into a lookup function. Later entries win.
func EnvironLookup(environ []string) func(string) (string, bool) {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		k, v, ok := strings.Cut(entry, "=")
		if !ok || k == "" {
			continue
		}
		values[k] = v
	}
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

// Empty reports whether no override is active.
func (o Overrides) Empty() bool {
	return strings.TrimSpace(o.Machine) == "" &&
		strings.TrimSpace(o.Distro) == "" &&
		strings.TrimSpace(o.Target) == "" &&
		strings.TrimSpace(o.Task) == ""
}

// Targets splits the target override on whitespace. Quotes and shell metacharacters
// are kept as part of the target names.
func (o Overrides) Targets() ([]string, error) {
	return strings.Fields(o.Target), nil
}

// Apply returns a copy of doc with the active overrides applied. doc itself is not modified.
func Apply(doc *project.Document, o Overrides) (*project.Document, error) {
	out := doc.Clone()
	if out == nil {
		out = &project.Document{}
	}
	if v := strings.TrimSpace(o.Machine); v != "" {
		out.Machine = &v
	}
	if v := strings.TrimSpace(o.Distro); v != "" {
		out.Distro = &v
	}
	if v := strings.TrimSpace(o.Task); v != "" {
		out.Task = &v
	}
	targets, err := o.Targets()
	if err != nil {
		return nil, err
	}
	if len(targets) > 0 {
		out.Target = targets
	}
	return out, nil
}

// Settings are the effective build parameters after overrides and defaults.
type Settings struct {
	BuildSystem project.BuildSystem `json:"buildSystem,omitempty"`
	Machine     string              `json:"machine"`
	Distro      string              `json:"distro"`
	Targets     []string            `json:"targets"`
	Task        string              `json:"task"`
}

// Effective fills unset fields of doc with the compiled-in defaults.
func Effective(doc *project.Document) Settings {
	s := Settings{
		Machine: DefaultMachine,
		Distro:  DefaultDistro,
		Targets: []string{DefaultTarget},
		Task:    DefaultTask,
	}
	if doc == nil {
		return s
	}
	if doc.BuildSystem != nil {
		s.BuildSystem = *doc.BuildSystem
	}
	if doc.Machine != nil {
		s.Machine = *doc.Machine
	}
	if doc.Distro != nil {
		s.Distro = *doc.Distro
	}
	if doc.Task != nil {
		s.Task = *doc.Task
	}
	if len(doc.Target) > 0 {
		s.Targets = append([]string(nil), doc.Target...)
	}
	return s
}

// Multiconfigs lists the multiconfig names referenced by mc: or multiconfig: targets,
// sorted and without duplicates.
func (s Settings) Multiconfigs() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range s.Targets {
		if !strings.HasPrefix(t, "mc:") && !strings.HasPrefix(t, "multiconfig:") {
			continue
		}
		parts := strings.SplitN(t, ":", 3)
		if len(parts) < 2 || parts[1] == "" {
			continue
		}
		if _, ok := seen[parts[1]]; ok {
			continue
		}
		seen[parts[1]] = struct{}{}
		out = append(out, parts[1])
	}
	sort.Strings(out)
	return out
}

// Passthrough resolves the document's env whitelist against the invocation environment.
// values holds every variable with a value from lookup or from its default; names lists
// all whitelisted variable names, sorted.
func Passthrough(doc *project.Document, lookup func(string) (string, bool)) (values map[string]string, names []string) {
	values = map[string]string{}
	if doc == nil {
		return values, nil
	}
	for name, def := range doc.Env {
		names = append(names, name)
		if lookup != nil {
			if v, ok := lookup(name); ok {
				values[name] = v
				continue
			}
		}
		if v, ok := def.Get(); ok {
			values[name] = v
		}
	}
	sort.Strings(names)
	return values, names
}

// File: internal/buildctx/buildctx.go
// Brief: Normalized, immutable build context handed to checkout/build executors.

// Package buildctx builds the directory and environment context a build runs in.
// Paths are expanded and canonicalized when set so that a bad path is reported once,
// from Build, before anything is executed.
package buildctx

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"

	"github.com/mitchellh/go-homedir"
)

const (
	EnvWorkDir    = "KAS_WORK_DIR"
	EnvBuildDir   = "KAS_BUILD_DIR"
	EnvRepoRefDir = "KAS_REPO_REF_DIR"

	// DefaultBuildDirName is joined to the work dir when no build dir is given.
	DefaultBuildDirName = "build"
)

// PathError reports a context path that could not be expanded or canonicalized.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Context is the resolved build context. Treat it as read-only; Env returns a copy.
type Context struct {
	WorkDir       string
	BuildDir      string
	RepoRefDir    string
	ForceCheckout *bool
	Update        *bool
	environment   map[string]string
}

// Environment returns a copy of the context environment.
func (c Context) Environment() map[string]string {
	return maps.Clone(c.environment)
}

// Environ renders the KAS_* directory variables plus the context environment as
// sorted KEY=VALUE pairs.
func (c Context) Environ() []string {
	out := make([]string, 0, len(c.environment)+3)
	keys := make([]string, 0, len(c.environment))
	for k := range c.environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+c.environment[k])
	}
	out = append(out, EnvWorkDir+"="+c.WorkDir, EnvBuildDir+"="+c.BuildDir)
	if c.RepoRefDir != "" {
		out = append(out, EnvRepoRefDir+"="+c.RepoRefDir)
	}
	return out
}

// Builder assembles a Context. The first failure is kept and reported by Build.
type Builder struct {
	ctx Context
	err error
}

// NewBuilder starts a context rooted at workDir. The work dir must exist.
func NewBuilder(workDir string) *Builder {
	b := &Builder{ctx: Context{environment: map[string]string{}}}
	b.ctx.WorkDir = b.canonical("work dir", workDir, false)
	return b
}

// WithBuildDir sets the build dir. It may not exist yet, but its parent must.
func (b *Builder) WithBuildDir(dir string) *Builder {
	b.ctx.BuildDir = b.canonical("build dir", dir, true)
	return b
}

// WithRepoRefDir sets the directory holding reference clones. An empty dir clears it.
func (b *Builder) WithRepoRefDir(dir string) *Builder {
	if dir == "" {
		b.ctx.RepoRefDir = ""
		return b
	}
	b.ctx.RepoRefDir = b.canonical("repo ref dir", dir, false)
	return b
}

func (b *Builder) ForceCheckout(v bool) *Builder {
	b.ctx.ForceCheckout = &v
	return b
}

func (b *Builder) Update(v bool) *Builder {
	b.ctx.Update = &v
	return b
}

// Env adds one environment variable to the context.
func (b *Builder) Env(key, value string) *Builder {
	if key == "" {
		b.fail(&PathError{Field: "env", Path: value, Err: errors.New("empty variable name")})
		return b
	}
	b.ctx.environment[key] = value
	return b
}

// Build returns the finished context or the first recorded failure.
func (b *Builder) Build() (Context, error) {
	if b.err != nil {
		return Context{}, b.err
	}
	out := b.ctx
	if out.BuildDir == "" {
		out.BuildDir = filepath.Join(out.WorkDir, DefaultBuildDirName)
	}
	out.environment = maps.Clone(b.ctx.environment)
	return out, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// canonical expands ~, makes p absolute and resolves symlinks. When mayBeMissing is set
// only the parent has to exist.
func (b *Builder) canonical(field, p string, mayBeMissing bool) string {
	if b.err != nil {
		return ""
	}
	if p == "" {
		b.fail(&PathError{Field: field, Path: p, Err: errors.New("path is empty")})
		return ""
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		b.fail(&PathError{Field: field, Path: p, Err: err})
		return ""
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		b.fail(&PathError{Field: field, Path: p, Err: err})
		return ""
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved
	}
	if !mayBeMissing || !errors.Is(err, os.ErrNotExist) {
		b.fail(&PathError{Field: field, Path: p, Err: err})
		return ""
	}
	parent, perr := filepath.EvalSymlinks(filepath.Dir(abs))
	if perr != nil {
		b.fail(&PathError{Field: field, Path: p, Err: perr})
		return ""
	}
	return filepath.Join(parent, filepath.Base(abs))
}

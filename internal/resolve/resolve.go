// File: internal/resolve/resolve.go
// Brief: End-to-end resolution: include expansion, merge, overrides, build context, repos.

// Package resolve runs the whole configuration pipeline for one invocation. Every check
// completes before Resolve returns, so executors only ever see a fully resolved result.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/opencontainers/go-digest"

	"github.com/example/bake/internal/appconfig"
	"github.com/example/bake/internal/buildctx"
	"github.com/example/bake/internal/include"
	"github.com/example/bake/internal/merge"
	"github.com/example/bake/internal/override"
	"github.com/example/bake/internal/project"
	"github.com/example/bake/internal/repos"
)

// EnvPassthroughAdditions lists the passed-through variable names for bitbake.
const EnvPassthroughAdditions = "BB_ENV_PASSTHROUGH_ADDITIONS"

// Options describe one resolution.
type Options struct {
	// Files are the top-level documents. Each entry may join several files with ':'.
	Files []string
	// WorkDir defaults to KAS_WORK_DIR, then the current directory.
	WorkDir string
	// BuildDir defaults to KAS_BUILD_DIR, then <work dir>/build.
	BuildDir string
	// RepoRefDir defaults to KAS_REPO_REF_DIR.
	RepoRefDir    string
	ForceCheckout *bool
	Update        *bool
	// Environ is the invocation environment as KEY=VALUE pairs; nil means os.Environ.
	Environ []string
	// Repos resolves repository ids not declared by any document, e.g. existing checkouts.
	Repos    include.RepoLookup
	Loader   include.Loader
	Lenient  bool
	Parallel bool
	Log      logr.Logger
}

// Result is the fully resolved configuration.
type Result struct {
	// Sources are the expanded documents in merge order.
	Sources []include.Entry
	// Document is the effective document after merge and overrides.
	Document *project.Document
	Settings override.Settings
	Context  buildctx.Context
	Repos    []repos.ResolvedRepo
	// Passthrough are the whitelisted env names, sorted.
	Passthrough []string
	TopDir      string
	Digest      digest.Digest
}

// SplitFiles expands ':'-joined file lists.
func SplitFiles(files []string) []string {
	var out []string
	for _, f := range files {
		for _, part := range strings.Split(f, ":") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Resolve runs the pipeline.
func Resolve(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Log
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	lookup := override.EnvironLookup(environ)

	files := SplitFiles(opts.Files)
	if len(files) == 0 {
		return nil, errors.New("no configuration file given")
	}
	roots, topDir, err := rootSources(files)
	if err != nil {
		return nil, err
	}

	builder, err := newContextBuilder(opts, lookup)
	if err != nil {
		return nil, err
	}
	base, err := builder.Build()
	if err != nil {
		return nil, err
	}
	log.V(1).Info("build context", "workDir", base.WorkDir, "buildDir", base.BuildDir, "topDir", topDir)

	loader := opts.Loader
	if loader == nil {
		fl := include.FileLoader{}
		if opts.Lenient {
			fl.Options = append(fl.Options, project.Lenient())
		}
		loader = fl
	}
	resolver := &include.Resolver{
		Loader:   loader,
		Repos:    opts.Repos,
		WorkDir:  base.WorkDir,
		Parallel: opts.Parallel,
		Log:      log.WithName("include"),
	}
	entries, err := resolver.ResolveAll(ctx, roots)
	if err != nil {
		return nil, err
	}
	docs := make([]*project.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e.Doc)
	}
	merged := merge.Documents(docs)

	effective, err := override.Apply(merged, override.FromLookup(lookup))
	if err != nil {
		return nil, err
	}

	values, names := override.Passthrough(effective, lookup)
	for _, name := range names {
		if v, ok := values[name]; ok {
			builder.Env(name, v)
		}
	}
	if len(names) > 0 {
		builder.Env(EnvPassthroughAdditions, strings.Join(names, " "))
	}
	bc, err := builder.Build()
	if err != nil {
		return nil, err
	}

	resolved, err := repos.Resolve(effective, bc, topDir)
	if err != nil {
		return nil, err
	}
	for _, rr := range resolved {
		log.V(1).Info("repository resolved", "repo", rr.ID, "path", rr.Path, "operation", rr.Operation, "layers", len(rr.Layers), "patches", len(rr.Patches))
	}

	dgst, err := Digest(effective)
	if err != nil {
		return nil, err
	}
	return &Result{
		Sources:     entries,
		Document:    effective,
		Settings:    override.Effective(effective),
		Context:     bc,
		Repos:       resolved,
		Passthrough: names,
		TopDir:      topDir,
		Digest:      dgst,
	}, nil
}

// Digest fingerprints an effective document by its canonical YAML encoding.
func Digest(doc *project.Document) (digest.Digest, error) {
	raw, err := project.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode effective configuration: %w", err)
	}
	return digest.FromBytes(raw), nil
}

// MixedReposError reports top-level files that live in different repositories.
type MixedReposError struct {
	First, Other       string
	FirstDir, OtherDir string
}

func (e *MixedReposError) Error() string {
	return fmt.Sprintf("top-level configs must be in the same repository: %s is in %s, %s is in %s",
		e.First, e.FirstDir, e.Other, e.OtherDir)
}

// rootSources maps the top-level files onto the repository holding the first one.
func rootSources(files []string) ([]include.Source, string, error) {
	abs := make([]string, 0, len(files))
	for _, f := range files {
		p, err := filepath.Abs(f)
		if err != nil {
			return nil, "", fmt.Errorf("config %s: %w", f, err)
		}
		if canonical, err := filepath.EvalSymlinks(p); err == nil {
			p = canonical
		}
		abs = append(abs, p)
	}
	repoRoot := appconfig.FindRepoRoot(abs[0])
	topDir := repoRoot
	if topDir == "" {
		topDir = filepath.Dir(abs[0])
	}
	roots := make([]include.Source, 0, len(abs))
	for i, p := range abs {
		rel, err := filepath.Rel(topDir, p)
		outside := err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
		if outside || appconfig.FindRepoRoot(p) != repoRoot {
			other := appconfig.FindRepoRoot(p)
			if other == "" {
				other = filepath.Dir(p)
			}
			return nil, "", &MixedReposError{First: files[0], Other: files[i], FirstDir: topDir, OtherDir: other}
		}
		roots = append(roots, include.Source{Dir: topDir, File: rel})
	}
	return roots, topDir, nil
}

func newContextBuilder(opts Options, lookup func(string) (string, bool)) (*buildctx.Builder, error) {
	pick := func(explicit, env string) string {
		if strings.TrimSpace(explicit) != "" {
			return explicit
		}
		if v, ok := lookup(env); ok && strings.TrimSpace(v) != "" {
			return v
		}
		return ""
	}
	work := pick(opts.WorkDir, buildctx.EnvWorkDir)
	if work == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine work dir: %w", err)
		}
		work = cwd
	}
	b := buildctx.NewBuilder(work)
	if dir := pick(opts.BuildDir, buildctx.EnvBuildDir); dir != "" {
		b.WithBuildDir(dir)
	}
	if dir := pick(opts.RepoRefDir, buildctx.EnvRepoRefDir); dir != "" {
		b.WithRepoRefDir(dir)
	}
	if opts.ForceCheckout != nil {
		b.ForceCheckout(*opts.ForceCheckout)
	}
	if opts.Update != nil {
		b.Update(*opts.Update)
	}
	return b, nil
}

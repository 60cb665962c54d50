// File: internal/include/resolver.go
// Brief: Depth-first expansion of document includes into an ordered document list.

// Package include expands the include graph of a root document. The result lists every
// reachable document once, includes before their includer, root last; that is the order
// the merger folds them in.
package include

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/example/bake/internal/project"
)

const prefetchLimit = 8

// Source identifies a document inside a repository.
type Source struct {
	// RepoID is the id of the repository holding the document; empty for the top repository.
	RepoID string
	// Dir is the repository root.
	Dir string
	// File is the document path relative to Dir.
	File string
	// Doc is the parsed document. When nil the resolver loads it.
	Doc *project.Document
}

// Label is the human readable form used in errors and logs.
func (s Source) Label() string {
	if s.RepoID == "" {
		return s.File
	}
	return s.RepoID + ":" + s.File
}

func (s Source) path() string {
	return filepath.Clean(filepath.Join(s.Dir, s.File))
}

// Entry is one expanded document.
type Entry struct {
	Source
	Path string
}

// Resolver expands includes. The zero Logger discards.
type Resolver struct {
	Loader  Loader
	Repos   RepoLookup
	WorkDir string
	// Parallel pre-reads the includes of each document concurrently. Output order is unaffected.
	Parallel bool
	Log      logr.Logger
}

type loaded struct {
	doc *project.Document
	err error
}

type walk struct {
	r        *Resolver
	loader   Loader
	topDir   string
	declared map[string]string
	onPath   map[string]bool
	emitted  map[string]bool
	chain    []string
	out      []Entry

	mu    sync.Mutex
	cache map[string]loaded
}

// Resolve returns the documents reachable from root in merge order.
func (r *Resolver) Resolve(ctx context.Context, root Source) ([]Entry, error) {
	return r.ResolveAll(ctx, []Source{root})
}

// ResolveAll expands several top-level documents of the same repository in order, as if
// they were the includes of one virtual document. The first root's Dir is the top repository.
func (r *Resolver) ResolveAll(ctx context.Context, roots []Source) ([]Entry, error) {
	if len(roots) == 0 {
		return nil, nil
	}
	w := &walk{
		r:        r,
		loader:   r.Loader,
		topDir:   roots[0].Dir,
		declared: map[string]string{},
		onPath:   map[string]bool{},
		emitted:  map[string]bool{},
		cache:    map[string]loaded{},
	}
	if w.loader == nil {
		w.loader = FileLoader{}
	}
	for _, root := range roots {
		if root.RepoID != "" {
			if _, ok := w.declared[root.RepoID]; !ok {
				w.declared[root.RepoID] = root.Dir
			}
		}
	}
	for _, root := range roots {
		if err := w.visit(ctx, root); err != nil {
			return nil, err
		}
	}
	return w.out, nil
}

func (w *walk) repoDir(id string) (string, bool) {
	if dir, ok := w.declared[id]; ok {
		return dir, true
	}
	if w.r.Repos != nil {
		return w.r.Repos.RepoDir(id)
	}
	return "", false
}

func (w *walk) declare(doc *project.Document) {
	for id, repo := range doc.Repos {
		if _, ok := w.repoDir(id); ok {
			continue
		}
		dir := repo.CheckoutDir(id, w.r.WorkDir, w.topDir)
		w.declared[id] = dir
		w.r.Log.V(1).Info("repository declared", "repo", id, "dir", dir)
	}
}

func (w *walk) load(ctx context.Context, src Source) (*project.Document, error) {
	if src.Doc != nil {
		return src.Doc, nil
	}
	p := src.path()
	w.mu.Lock()
	hit, ok := w.cache[p]
	w.mu.Unlock()
	if ok {
		return hit.doc, hit.err
	}
	doc, err := w.loader.Load(ctx, p)
	w.mu.Lock()
	w.cache[p] = loaded{doc: doc, err: err}
	w.mu.Unlock()
	return doc, err
}

func (w *walk) visit(ctx context.Context, src Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := src.path()
	if w.onPath[key] {
		chain := append(append([]string(nil), w.chain...), src.Label())
		return &IncludeCycleError{Chain: chain}
	}
	if w.emitted[key] {
		w.r.Log.V(1).Info("include already expanded", "file", src.Label())
		return nil
	}

	doc, err := w.load(ctx, src)
	if err != nil {
		return err
	}
	src.Doc = doc

	w.onPath[key] = true
	w.chain = append(w.chain, src.Label())
	defer func() {
		delete(w.onPath, key)
		w.chain = w.chain[:len(w.chain)-1]
	}()

	w.declare(doc)

	if w.r.Parallel && len(doc.Header.Includes) > 1 {
		if err := w.prefetch(ctx, w.known(src, doc.Header.Includes)); err != nil {
			return err
		}
	}
	// Each include is located only after its earlier siblings expanded, since those may
	// declare the repo it names.
	for _, inc := range doc.Header.Includes {
		child, err := w.child(src, inc)
		if err != nil {
			return err
		}
		w.r.Log.V(1).Info("expanding include", "from", src.Label(), "file", child.Label())
		if err := w.visit(ctx, child); err != nil {
			return err
		}
	}

	w.emitted[key] = true
	w.out = append(w.out, Entry{Source: src, Path: key})
	return nil
}

// child locates an include of parent. Includes without a repo are relative to the
// including document; repo-qualified ones are relative to that repository's root.
func (w *walk) child(parent Source, inc project.Include) (Source, error) {
	if inc.Repo == "" {
		rel := filepath.Join(filepath.Dir(parent.File), inc.File)
		return Source{RepoID: parent.RepoID, Dir: parent.Dir, File: filepath.Clean(rel)}, nil
	}
	dir, ok := w.repoDir(inc.Repo)
	if !ok {
		return Source{}, &UnresolvedRepoError{Repo: inc.Repo, File: inc.File, From: parent.Label()}
	}
	return Source{RepoID: inc.Repo, Dir: dir, File: filepath.Clean(inc.File)}, nil
}

// known lists the includes that can already be located. The rest wait for the
// sequential walk.
func (w *walk) known(parent Source, incs []project.Include) []Source {
	out := make([]Source, 0, len(incs))
	for _, inc := range incs {
		if child, err := w.child(parent, inc); err == nil {
			out = append(out, child)
		}
	}
	return out
}

// prefetch warms the cache; load errors are kept and surface when the include is visited.
func (w *walk) prefetch(ctx context.Context, children []Source) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(prefetchLimit)
	for _, child := range children {
		child := child
		eg.Go(func() error {
			_, _ = w.load(ctx, child)
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("read includes: %w", err)
	}
	return nil
}

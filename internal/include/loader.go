// File: internal/include/loader.go
// Brief: Document loading and repository lookup used during include expansion.

package include

import (
	"context"

	"github.com/example/bake/internal/project"
)

// Loader reads and parses one document.
type Loader interface {
	Load(ctx context.Context, path string) (*project.Document, error)
}

// FileLoader parses documents from the local filesystem.
type FileLoader struct {
	Options []project.ParseOption
}

func (l FileLoader) Load(ctx context.Context, path string) (*project.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return project.ParseFile(path, l.Options...)
}

// RepoLookup maps a repository id to its checkout directory.
type RepoLookup interface {
	RepoDir(id string) (string, bool)
}

// StaticRepos is a fixed id -> directory table.
type StaticRepos map[string]string

func (s StaticRepos) RepoDir(id string) (string, bool) {
	dir, ok := s[id]
	return dir, ok
}

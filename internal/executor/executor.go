// File: internal/executor/executor.go
// Brief: Checkout and build executor contracts plus their typed failures.

// Package executor defines how a resolved configuration is handed to the tools that
// fetch repositories and run the build. Implementations receive the effective document
// and build context only after resolution has fully succeeded.
package executor

import (
	"context"
	"fmt"

	"github.com/example/bake/internal/buildctx"
	"github.com/example/bake/internal/project"
)

// Checkouter fetches every repo, applies patches in order and writes the layer
// configuration under the build dir.
type Checkouter interface {
	Checkout(ctx context.Context, doc *project.Document, bc buildctx.Context) error
}

// Builder runs the build system for the effective machine, distro, targets and task.
type Builder interface {
	Build(ctx context.Context, doc *project.Document, bc buildctx.Context) error
}

// CheckoutError wraps a failed checkout.
type CheckoutError struct {
	Err error
}

func (e *CheckoutError) Error() string { return fmt.Sprintf("checkout failed: %v", e.Err) }

func (e *CheckoutError) Unwrap() error { return e.Err }

// BuildError wraps a failed build.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string { return fmt.Sprintf("build failed: %v", e.Err) }

func (e *BuildError) Unwrap() error { return e.Err }

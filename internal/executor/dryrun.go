// File: internal/executor/dryrun.go
// Brief: Executor that reports what a checkout or build would do.

package executor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"

	"github.com/example/bake/internal/bbconf"
	"github.com/example/bake/internal/buildctx"
	"github.com/example/bake/internal/override"
	"github.com/example/bake/internal/project"
	"github.com/example/bake/internal/repos"
)

// DryRun prints the planned steps to Out and changes nothing.
type DryRun struct {
	Out io.Writer
	// TopDir is the checkout of the repository holding the top-level document.
	TopDir string
	Log    logr.Logger
}

func (d DryRun) Checkout(ctx context.Context, doc *project.Document, bc buildctx.Context) error {
	if err := ctx.Err(); err != nil {
		return &CheckoutError{Err: err}
	}
	resolved, err := repos.Resolve(doc, bc, d.TopDir)
	if err != nil {
		return &CheckoutError{Err: err}
	}
	out := d.writer()
	for _, rr := range resolved {
		switch rr.Operation {
		case repos.OpClone:
			ref := firstNonEmpty(rr.Commit, rr.Branch, rr.Refspec, "default branch")
			fmt.Fprintf(out, "clone %s %s -> %s (%s)\n", rr.VCS, rr.URL, rr.Path, ref)
		default:
			fmt.Fprintf(out, "use %s at %s\n", rr.ID, rr.Path)
		}
		d.Log.V(1).Info("dry-run checkout", "repo", rr.ID, "operation", rr.Operation)
	}
	for _, p := range repos.Patches(resolved) {
		fmt.Fprintf(out, "patch %s: apply %s (%s)\n", p.Target, p.ID, p.Path)
	}
	settings := override.Effective(doc)
	layers := bbconf.BBLayers(doc, resolved)
	fmt.Fprintf(out, "write %s/conf/bblayers.conf\n%s", bc.BuildDir, indent(layers))
	local := bbconf.LocalConf(doc, settings)
	fmt.Fprintf(out, "write %s/conf/local.conf\n%s", bc.BuildDir, indent(local))
	return nil
}

func (d DryRun) Build(ctx context.Context, doc *project.Document, bc buildctx.Context) error {
	if err := ctx.Err(); err != nil {
		return &BuildError{Err: err}
	}
	s := override.Effective(doc)
	bs := s.BuildSystem
	if bs == "" {
		bs = project.OpenEmbedded
	}
	out := d.writer()
	fmt.Fprintf(out, "source %s %s\n", bs.InitScript(), bc.BuildDir)
	for _, kv := range bc.Environ() {
		fmt.Fprintf(out, "export %s\n", kv)
	}
	fmt.Fprintf(out, "bitbake -c %s %s\n", s.Task, strings.Join(s.Targets, " "))
	d.Log.V(1).Info("dry-run build", "machine", s.Machine, "distro", s.Distro, "task", s.Task)
	return nil
}

func (d DryRun) writer() io.Writer {
	if d.Out == nil {
		return io.Discard
	}
	return d.Out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func indent(text string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		b.WriteString("    ")
		b.WriteString(line)
	}
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

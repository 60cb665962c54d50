// File: internal/executor/kascli.go
// Brief: Executor delegating checkout and build to an external kas binary.

package executor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"

	"github.com/example/bake/internal/buildctx"
	"github.com/example/bake/internal/override"
	"github.com/example/bake/internal/project"
)

// DefaultKasCommand is used when KasCLI.Command is empty.
const DefaultKasCommand = "kas"

// KasCLI runs `kas checkout` and `kas build` on the original configuration files. The
// effective settings are exported as KAS_* variables so kas sees the same result.
type KasCLI struct {
	// Command is a shell-quoted command line, e.g. "kas-container --isar".
	Command string
	// Files are the configuration files handed to kas, joined with ':'.
	Files []string
	// Environ is the base process environment; nil means os.Environ.
	Environ []string
	Stdout  io.Writer
	Stderr  io.Writer
	Log     logr.Logger
}

func (k KasCLI) Checkout(ctx context.Context, doc *project.Document, bc buildctx.Context) error {
	if err := k.run(ctx, doc, bc, subCommand("checkout", bc)); err != nil {
		return &CheckoutError{Err: err}
	}
	return nil
}

func (k KasCLI) Build(ctx context.Context, doc *project.Document, bc buildctx.Context) error {
	if err := k.run(ctx, doc, bc, subCommand("build", bc)); err != nil {
		return &BuildError{Err: err}
	}
	return nil
}

func subCommand(name string, bc buildctx.Context) []string {
	args := []string{name}
	if bc.Update != nil && *bc.Update {
		args = append(args, "--update")
	}
	if bc.ForceCheckout != nil && *bc.ForceCheckout {
		args = append(args, "--force-checkout")
	}
	return args
}

// CommandLine returns the argv for one kas sub command.
func (k KasCLI) CommandLine(sub []string) ([]string, error) {
	raw := strings.TrimSpace(k.Command)
	if raw == "" {
		raw = DefaultKasCommand
	}
	argv, err := shellwords.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse kas command %q", raw)
	}
	if len(argv) == 0 {
		return nil, errors.Errorf("kas command %q is empty", raw)
	}
	argv = append(argv, sub...)
	if len(k.Files) > 0 {
		argv = append(argv, strings.Join(k.Files, ":"))
	}
	return argv, nil
}

// Environment returns the environment the kas process runs with.
func (k KasCLI) Environment(doc *project.Document, bc buildctx.Context) []string {
	base := k.Environ
	if base == nil {
		base = os.Environ()
	}
	s := override.Effective(doc)
	env := append([]string(nil), base...)
	env = append(env, bc.Environ()...)
	env = append(env,
		override.EnvMachine+"="+s.Machine,
		override.EnvDistro+"="+s.Distro,
		override.EnvTarget+"="+strings.Join(s.Targets, " "),
		override.EnvTask+"="+s.Task,
	)
	return env
}

func (k KasCLI) run(ctx context.Context, doc *project.Document, bc buildctx.Context, sub []string) error {
	argv, err := k.CommandLine(sub)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = bc.WorkDir
	cmd.Env = k.Environment(doc, bc)
	cmd.Stdout = k.Stdout
	cmd.Stderr = k.Stderr
	k.Log.V(1).Info("running kas", "argv", argv, "dir", cmd.Dir)
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s %s", argv[0], strings.Join(sub, " "))
	}
	return nil
}

// File: cmd/bake/run.go
// Brief: CLI command wiring and implementation for 'checkout' and 'build'.

package main

import (
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/example/bake/internal/executor"
	"github.com/example/bake/internal/resolve"
)

type runOptions struct {
	resolveOptions
	kasCommand string
	dryRun     bool
}

func (o *runOptions) addFlags(cmd *cobra.Command) {
	o.resolveOptions.addFlags(cmd)
	o.addCheckoutFlags(cmd)
	cmd.Flags().StringVar(&o.kasCommand, "kas-command", "", "Command line used to invoke kas (default: kas)")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Print the steps instead of running kas")
}

type executorSet interface {
	executor.Checkouter
	executor.Builder
}

func (o *runOptions) newExecutor(cmd *cobra.Command, files []string, res *resolve.Result) executorSet {
	log := logr.FromContextOrDiscard(cmd.Context())
	if o.dryRun {
		return executor.DryRun{Out: cmd.OutOrStdout(), TopDir: res.TopDir, Log: log.WithName("dry-run")}
	}
	// kas runs inside the work dir, so relative file names would point elsewhere.
	abs := make([]string, 0, len(files))
	for _, f := range files {
		if p, err := filepath.Abs(f); err == nil {
			f = p
		}
		abs = append(abs, f)
	}
	d := defaultsFrom(cmd.Context())
	return executor.KasCLI{
		Command: firstSet(o.kasCommand, d.KasCommand, executor.DefaultKasCommand),
		Files:   abs,
		Environ: environWithDefaults(os.Environ(), d.Environment),
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		Log:     log.WithName("kas"),
	}
}

func newCheckoutCommand() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "checkout CONFIG[:CONFIG...] [CONFIG...]",
		Short: "Check out the repositories of a configuration and write the bitbake conf files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.resolve(cmd, args)
			if err != nil {
				return err
			}
			return opts.newExecutor(cmd, resolve.SplitFiles(args), res).Checkout(cmd.Context(), res.Document, res.Context)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func newBuildCommand() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "build CONFIG[:CONFIG...] [CONFIG...]",
		Short: "Build the targets of a configuration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.resolve(cmd, args)
			if err != nil {
				return err
			}
			return opts.newExecutor(cmd, resolve.SplitFiles(args), res).Build(cmd.Context(), res.Document, res.Context)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

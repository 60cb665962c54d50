package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/example/bake/internal/appconfig"
	"github.com/example/bake/internal/featureflags"
	"github.com/example/bake/internal/resolve"
)

type defaultsKey struct{}

func withDefaults(ctx context.Context, d appconfig.Defaults) context.Context {
	return context.WithValue(ctx, defaultsKey{}, d)
}

func defaultsFrom(ctx context.Context) appconfig.Defaults {
	if ctx == nil {
		return appconfig.Defaults{}
	}
	d, _ := ctx.Value(defaultsKey{}).(appconfig.Defaults)
	return d
}

// loadDefaults reads ~/.bake/config.yaml and the .bake.yaml of the enclosing repository.
func loadDefaults(ctx context.Context) (appconfig.Defaults, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return appconfig.Defaults{}, err
	}
	cfg, err := appconfig.Load(ctx, appconfig.DefaultGlobalPath(), appconfig.DefaultRepoPath(appconfig.FindRepoRoot(cwd)))
	if err != nil {
		return appconfig.Defaults{}, err
	}
	return cfg.Defaults, nil
}

// resolveOptions are the flags shared by every command that resolves a configuration.
type resolveOptions struct {
	workDir       string
	buildDir      string
	repoRefDir    string
	lenient       bool
	parallel      bool
	update        bool
	forceCheckout bool
	timeout       time.Duration
}

func (o *resolveOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.workDir, "work-dir", "", "Directory repositories are checked out into (default: $KAS_WORK_DIR or the current directory)")
	cmd.Flags().StringVar(&o.buildDir, "build-dir", "", "Bitbake build directory (default: $KAS_BUILD_DIR or <work-dir>/build)")
	cmd.Flags().StringVar(&o.repoRefDir, "repo-ref-dir", "", "Directory of reference clones (default: $KAS_REPO_REF_DIR)")
	cmd.Flags().BoolVar(&o.lenient, "lenient", false, "Ignore unknown keys in configuration files instead of failing")
	cmd.Flags().BoolVar(&o.parallel, "parallel-includes", false, "Read the includes of each document concurrently")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "Abort resolution after this long (0 disables the limit)")
}

func (o *resolveOptions) addCheckoutFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.update, "update", false, "Pull new upstream changes for repos that track a branch")
	cmd.Flags().BoolVar(&o.forceCheckout, "force-checkout", false, "Discard local changes in repo checkouts")
}

// options folds flags, config defaults and feature flags into resolve.Options.
// Explicit flags win over defaults; unset directories fall through to KAS_* variables.
func (o *resolveOptions) options(cmd *cobra.Command, files []string) resolve.Options {
	ctx := cmd.Context()
	d := defaultsFrom(ctx)
	opts := resolve.Options{
		Files:      files,
		WorkDir:    firstSet(o.workDir, d.WorkDir),
		BuildDir:   firstSet(o.buildDir, d.BuildDir),
		RepoRefDir: firstSet(o.repoRefDir, d.RepoRefDir),
		Environ:    environWithDefaults(os.Environ(), d.Environment),
		Lenient:    o.lenient,
		Parallel:   o.parallel,
		Log:        logr.FromContextOrDiscard(ctx),
	}
	if !cmd.Flags().Changed("lenient") && d.Lenient != nil {
		opts.Lenient = *d.Lenient
	}
	if !cmd.Flags().Changed("parallel-includes") && d.Parallel != nil {
		opts.Parallel = *d.Parallel
	}
	if featureflags.FromContext(ctx).Enabled(featureflags.FeatureParallelIncludeReads) {
		opts.Parallel = true
	}
	if cmd.Flags().Lookup("update") != nil {
		opts.Update = &o.update
		opts.ForceCheckout = &o.forceCheckout
	}
	return opts
}

func (o *resolveOptions) resolve(cmd *cobra.Command, files []string) (*resolve.Result, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	res, err := resolve.Resolve(ctx, o.options(cmd, files))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// environWithDefaults appends config-provided variables the process environment does not set.
func environWithDefaults(environ []string, defaults map[string]string) []string {
	if len(defaults) == 0 {
		return environ
	}
	set := make(map[string]struct{}, len(environ))
	for _, kv := range environ {
		if k, _, ok := strings.Cut(kv, "="); ok {
			set[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := append([]string(nil), environ...)
	for _, k := range keys {
		if _, ok := set[k]; ok {
			continue
		}
		out = append(out, fmt.Sprintf("%s=%s", k, defaults[k]))
	}
	return out
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

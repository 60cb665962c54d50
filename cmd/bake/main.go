// main.go bootstraps bake: it builds the root Cobra command and executes it with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/bake/internal/buildctx"
	"github.com/example/bake/internal/executor"
	"github.com/example/bake/internal/featureflags"
	"github.com/example/bake/internal/include"
	"github.com/example/bake/internal/logging"
	"github.com/example/bake/internal/project"
	"github.com/example/bake/internal/repos"
	"github.com/example/bake/internal/resolve"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(os.Stderr, err)
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	logLevel := "info"
	var featureFlagValues []string
	var applyConfig func() error
	cmd := &cobra.Command{
		Use:           "bake",
		Short:         "Resolve kas project configurations and hand them to checkout and build",
		Long:          "bake parses kas YAML configurations, expands includes, merges them, applies KAS_* overrides and drives checkout/build executors with the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(); err != nil {
				return err
			}
			flags, err := featureflags.Resolve(featureFlagValues, featureflags.EnabledFromEnv(nil))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			defaults, err := loadDefaults(ctx)
			if err != nil {
				return err
			}
			level := logLevel
			if !cmd.Flags().Changed("log-level") && defaults.LogLevel != "" {
				level = defaults.LogLevel
			}
			logger, err := logging.New(level, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if names := flags.EnabledNames(); len(names) > 0 {
				logger.V(1).Info("feature flags enabled", "features", names)
			}
			ctx = featureflags.ContextWithFlags(ctx, flags)
			ctx = withDefaults(ctx, defaults)
			ctx = logr.NewContext(ctx, logger)
			cmd.Root().SetContext(ctx)
			cmd.SetContext(ctx)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level for bake output (debug, info, warn, error)")
	cmd.PersistentFlags().StringSliceVar(&featureFlagValues, "feature", nil, featureFlagUsage())

	dumpCmd := newDumpCommand()
	planCmd := newPlanCommand()
	diffCmd := newDiffCommand()
	checkoutCmd := newCheckoutCommand()
	buildCmd := newBuildCommand()
	cmd.AddCommand(
		dumpCmd,
		planCmd,
		diffCmd,
		checkoutCmd,
		buildCmd,
		newEnvCommand(),
		newVersionCommand(),
	)
	cmd.Example = `  # Print the effective configuration of a machine config plus a feature fragment
  bake dump kas/machine/qemuarm64.yml:kas/feature/debug.yml

  # Show repos, layers and patches without touching the work dir
  KAS_MACHINE=raspberrypi4 bake plan kas/base.yml

  # Hand the resolved project to kas
  bake build --kas-command "kas-container" kas/base.yml`
	decorateCommandHelp(cmd, "Global Flags")
	applyConfig = bindViper(cmd, dumpCmd, planCmd, diffCmd, checkoutCmd, buildCmd)
	return cmd
}

// bindViper maps BAKE_<FLAG> variables and the BAKE_CONFIG file onto the flags of commands.
// The returned func applies them to every flag not set on the command line.
func bindViper(commands ...*cobra.Command) func() error {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("BAKE")
	v.AutomaticEnv()
	configFile := os.Getenv("BAKE_CONFIG")
	configureConfigFile(v, configFile)

	return func() error {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				return err
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			return err
		}
		for _, cmd := range commands {
			for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed || !v.IsSet(f.Name) {
						return
					}
					val := fmt.Sprintf("%v", v.Get(f.Name))
					if val != "" {
						_ = f.Value.Set(val)
					}
				})
			}
		}
		return nil
	}
}

func featureFlagUsage() string {
	var b strings.Builder
	b.WriteString("Enable bake feature flags (repeat or pass comma-separated names)")
	for _, def := range featureflags.Definitions() {
		fmt.Fprintf(&b, "\n  %s [%s]: %s Also %s=1.", def.Name, def.Stage, def.Description, def.EnvVar())
	}
	return b.String()
}

func handleError(w io.Writer, err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	var (
		parseErr *project.ParseError
		repoErr  *include.UnresolvedRepoError
		cycleErr *include.IncludeCycleError
		patchErr *repos.UnknownPatchRepoError
		pathErr  *buildctx.PathError
		buildErr *executor.BuildError
		mixedErr *resolve.MixedReposError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		message = fmt.Sprintf("%s\nHint: resolution timed out; raise --timeout or check for slow network filesystems.", err)
	case errors.Is(err, project.ErrUnknownField):
		message = fmt.Sprintf("%s\nHint: the key is not part of the kas schema. Fix the typo or pass --lenient to ignore it.", err)
	case errors.As(err, &parseErr):
		message = fmt.Sprintf("%s\nHint: check the YAML syntax of %s.", err, parseErr.Source)
	case errors.As(err, &repoErr):
		message = fmt.Sprintf("%s\nHint: declare %q under repos in %s or an earlier include.", err, repoErr.Repo, repoErr.From)
	case errors.As(err, &cycleErr):
		message = fmt.Sprintf("%s\nHint: remove one of the includes in the chain above.", err)
	case errors.As(err, &patchErr):
		message = fmt.Sprintf("%s\nHint: patches name the repo holding the patch file; add %q to repos.", err, patchErr.Ref)
	case errors.As(err, &pathErr):
		message = fmt.Sprintf("%s\nHint: the %s must exist; set it with a flag or %s/%s.", err, pathErr.Field, buildctx.EnvWorkDir, buildctx.EnvBuildDir)
	case errors.As(err, &mixedErr):
		message = fmt.Sprintf("%s\nHint: include %s from a config in %s instead of listing it on the command line.", err, mixedErr.Other, mixedErr.FirstDir)
	case errors.As(err, &buildErr):
		message = fmt.Sprintf("%s\nHint: rerun with --log-level debug to see the kas command line.", err)
	}
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), message)
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "bake"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "bake"))
	}
	return dirs
}

package envcatalog

type VarInfo struct {
	Category    string
	Name        string
	Description string
	Dynamic     bool
	Internal    bool
}

func Catalog() []VarInfo {
	return []VarInfo{
		{
			Category:    "Config",
			Name:        "BAKE_CONFIG",
			Description: "Path to a bake CLI config file (flag values in YAML).",
		},
		{
			Category:    "Config",
			Name:        "BAKE_<FLAG>",
			Dynamic:     true,
			Description: "Set any bake CLI flag via environment (hyphens become underscores). Example: BAKE_LOG_LEVEL=debug.",
		},
		{
			Category:    "Output",
			Name:        "NO_COLOR",
			Description: "Disable ANSI color output (any non-empty value).",
		},
		{
			Category:    "Features",
			Name:        "BAKE_FEATURE_<FLAG>",
			Dynamic:     true,
			Description: "Enable a feature flag. Example: BAKE_FEATURE_PARALLEL_INCLUDE_READS=1.",
		},
		{
			Category:    "Overrides",
			Name:        "KAS_MACHINE",
			Description: "Replace the machine of the effective configuration.",
		},
		{
			Category:    "Overrides",
			Name:        "KAS_DISTRO",
			Description: "Replace the distro of the effective configuration.",
		},
		{
			Category:    "Overrides",
			Name:        "KAS_TARGET",
			Description: "Replace the target list; whitespace separated.",
		},
		{
			Category:    "Overrides",
			Name:        "KAS_TASK",
			Description: "Replace the bitbake task of the effective configuration.",
		},
		{
			Category:    "Build context",
			Name:        "KAS_WORK_DIR",
			Description: "Work directory repositories are checked out under (default: current directory).",
		},
		{
			Category:    "Build context",
			Name:        "KAS_BUILD_DIR",
			Description: "Build directory (default: <work dir>/build).",
		},
		{
			Category:    "Build context",
			Name:        "KAS_REPO_REF_DIR",
			Description: "Directory of reference clones used as VCS alternates.",
		},
		{
			Category:    "Build context",
			Name:        "<env key>",
			Dynamic:     true,
			Description: "Variables listed under `env` in the configuration are passed through to the build; the process value wins over the default.",
		},
		{
			Category:    "Build context",
			Name:        "BB_ENV_PASSTHROUGH_ADDITIONS",
			Internal:    true,
			Description: "Exported to the build executor with the names of all passed-through variables.",
		},
	}
}

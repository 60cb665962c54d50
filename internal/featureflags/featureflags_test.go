// File: internal/featureflags/featureflags_test.go
// Brief: Feature flag resolution from flags, environment and context.

package featureflags

import (
	"context"
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	flags, err := Resolve([]string{"Parallel_Include_Reads"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !flags.Enabled(FeatureParallelIncludeReads) {
		t.Fatalf("expected feature %s to be enabled", FeatureParallelIncludeReads)
	}
	if names := flags.EnabledNames(); len(names) != 1 || names[0] != FeatureParallelIncludeReads {
		t.Fatalf("enabled names=%v", names)
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve([]string{"parallel-include-reads,not-a-real-flag"})
	if !errors.Is(err, ErrUnknownFeature) {
		t.Fatalf("expected ErrUnknownFeature, got %v", err)
	}
}

func TestEnabledFromEnv(t *testing.T) {
	env := []string{
		"BAKE_FEATURE_PARALLEL_INCLUDE_READS=yes",
		"SOME_OTHER=value",
		"BAKE_FEATURE_BOGUS=0",
		"KAS_FEATURE_PARALLEL_INCLUDE_READS=1",
	}
	list := EnabledFromEnv(env)
	if len(list) != 1 || list[0] != "parallel-include-reads" {
		t.Fatalf("enabled=%v", list)
	}
	flags, err := Resolve(list)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !flags.Enabled(FeatureParallelIncludeReads) {
		t.Fatalf("expected env to enable %s", FeatureParallelIncludeReads)
	}
}

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	if len(defs) != 1 || defs[0].Name != FeatureParallelIncludeReads {
		t.Fatalf("definitions=%v", defs)
	}
	if defs[0].EnvVar() != "BAKE_FEATURE_PARALLEL_INCLUDE_READS" {
		t.Fatalf("env var=%q", defs[0].EnvVar())
	}
	flags, err := Resolve(nil)
	if err != nil {
		t.Fatal(err)
	}
	if names := flags.EnabledNames(); len(names) != 0 {
		t.Fatalf("default flags should be off, got %v", names)
	}
}

func TestContextHelpers(t *testing.T) {
	flags, err := Resolve([]string{"parallel-include-reads"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := ContextWithFlags(context.Background(), flags)
	if !FromContext(ctx).Enabled(FeatureParallelIncludeReads) {
		t.Fatalf("expected flag to survive context round-trip")
	}
	if FromContext(context.Background()).Enabled(FeatureParallelIncludeReads) {
		t.Fatalf("zero context should not report feature enabled")
	}
}

func TestEnabledFromEnvUsesProcessEnv(t *testing.T) {
	t.Setenv("BAKE_FEATURE_PARALLEL_INCLUDE_READS", "true")
	flags, err := Resolve(EnabledFromEnv(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !flags.Enabled(FeatureParallelIncludeReads) {
		t.Fatalf("expected process env to enable flag")
	}
}

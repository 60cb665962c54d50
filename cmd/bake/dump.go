// File: cmd/bake/dump.go
// Brief: CLI command wiring and implementation for 'dump'.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/example/bake/internal/project"
	"github.com/example/bake/internal/resolve"
)

func newDumpCommand() *cobra.Command {
	var (
		opts       resolveOptions
		format     string
		digestOnly bool
	)
	cmd := &cobra.Command{
		Use:   "dump CONFIG[:CONFIG...] [CONFIG...]",
		Short: "Print the effective configuration as a single flat document",
		Long: `Resolve the given configuration files and print the result with all includes
expanded, documents merged and KAS_* overrides applied. The output is itself a valid
configuration file without includes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.resolve(cmd, args)
			if err != nil {
				return err
			}
			if digestOnly {
				fmt.Fprintln(cmd.OutOrStdout(), res.Digest)
				return nil
			}
			return writeDump(cmd.OutOrStdout(), res, format)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml, json")
	cmd.Flags().BoolVar(&digestOnly, "digest", false, "Print only the digest of the effective configuration")
	return cmd
}

// dumpDocument is the effective document stamped with the header version of the last
// top-level file, so the output parses again.
func dumpDocument(res *resolve.Result) *project.Document {
	doc := res.Document.Clone()
	if doc == nil {
		doc = &project.Document{}
	}
	doc.Header = project.Header{}
	if n := len(res.Sources); n > 0 && res.Sources[n-1].Doc != nil {
		doc.Header.Version = res.Sources[n-1].Doc.Header.Version
	}
	return doc
}

func renderDump(res *resolve.Result) ([]byte, error) {
	return project.Marshal(dumpDocument(res))
}

func writeDump(w io.Writer, res *resolve.Result, format string) error {
	raw, err := renderDump(res)
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yaml", "yml":
	case "json":
		if raw, err = yaml.YAMLToJSON(raw); err != nil {
			return fmt.Errorf("convert to json: %w", err)
		}
		raw = append(raw, '\n')
	default:
		return fmt.Errorf("unsupported --format %q (expected yaml or json)", format)
	}
	_, err = w.Write(raw)
	return err
}

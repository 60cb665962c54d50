package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/example/bake/internal/envcatalog"
)

type envRow struct {
	Category    string `json:"category"`
	Variable    string `json:"variable"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description"`
}

func envRows(showAll bool, getenv func(string) string) []envRow {
	catalog := envcatalog.Catalog()
	rows := make([]envRow, 0, len(catalog))
	for _, v := range catalog {
		if v.Internal && !showAll {
			continue
		}
		row := envRow{Category: v.Category, Variable: v.Name, Description: v.Description}
		if !v.Dynamic {
			row.Value = strings.TrimSpace(getenv(v.Name))
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Variable < rows[j].Variable
	})
	return rows
}

func filterEnvRows(rows []envRow, category, match string, onlySet bool) []envRow {
	category = strings.TrimSpace(category)
	match = strings.ToLower(strings.TrimSpace(match))
	var out []envRow
	for _, row := range rows {
		if category != "" && !strings.EqualFold(row.Category, category) {
			continue
		}
		if match != "" && !strings.Contains(strings.ToLower(row.Variable+"\n"+row.Category+"\n"+row.Description), match) {
			continue
		}
		if onlySet && row.Value == "" {
			continue
		}
		out = append(out, row)
	}
	return out
}

func newEnvCommand() *cobra.Command {
	var (
		format   string
		showAll  bool
		onlySet  bool
		category string
		match    string
	)
	cmd := &cobra.Command{
		Use:   "env",
		Short: "List the environment variables bake and kas read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := filterEnvRows(envRows(showAll, os.Getenv), category, match, onlySet)
			out := cmd.OutOrStdout()
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "table":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tVARIABLE\tVALUE\tDESCRIPTION")
				for _, row := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Category, row.Variable, row.Value, row.Description)
				}
				return tw.Flush()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			case "yaml", "yml":
				raw, err := yaml.Marshal(rows)
				if err != nil {
					return err
				}
				_, err = out.Write(raw)
				return err
			default:
				return fmt.Errorf("unsupported --format %q (expected table, json, or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json, yaml")
	cmd.Flags().BoolVar(&showAll, "all", false, "Include variables bake only sets for child processes")
	cmd.Flags().BoolVar(&onlySet, "set", false, "Show only variables with a non-empty value")
	cmd.Flags().StringVar(&category, "category", "", "Filter to a category (case-insensitive)")
	cmd.Flags().StringVar(&match, "match", "", "Filter by substring of name, category or description")
	return cmd
}

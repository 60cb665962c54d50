package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/bake/internal/version"
)

func newVersionCommand() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the bake version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, info.Version)
				return nil
			}
			fmt.Fprintf(out, "bake %s (%s, %s)\n", info.Version, info.Platform, info.GoVersion)
			for _, kv := range [][2]string{
				{"commit", info.GitCommit},
				{"tree", info.GitTreeState},
				{"built", info.BuildDate},
			} {
				if kv[1] != "" && kv[1] != "unknown" {
					fmt.Fprintf(out, "  %s: %s\n", kv[0], kv[1])
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print just the version number")
	return cmd
}

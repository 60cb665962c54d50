// File: cmd/bake/diff.go
// Brief: CLI command wiring and implementation for 'diff'.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

var errConfigsDiffer = errors.New("effective configurations differ")

func newDiffCommand() *cobra.Command {
	var (
		opts     resolveOptions
		exitCode bool
	)
	cmd := &cobra.Command{
		Use:   "diff BEFORE[:CONFIG...] AFTER[:CONFIG...]",
		Short: "Compare the effective configurations of two file sets",
		Long: `Resolve both arguments with the same build context and print a unified diff of
their effective configurations. Each argument may join several files with ':'.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := opts.resolve(cmd, args[:1])
			if err != nil {
				return err
			}
			after, err := opts.resolve(cmd, args[1:])
			if err != nil {
				return err
			}
			a, err := renderDump(before)
			if err != nil {
				return err
			}
			b, err := renderDump(after)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if before.Digest == after.Digest {
				fmt.Fprintf(out, "no differences (%s)\n", before.Digest)
				return nil
			}
			text, err := renderUnifiedDiff(string(a), string(b), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
			if exitCode {
				return errConfigsDiffer
			}
			return nil
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Fail when the configurations differ")
	return cmd
}

func renderUnifiedDiff(before, after, fromFile, toFile string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.TrimRight(before, "\n") + "\n"),
		B:        difflib.SplitLines(strings.TrimRight(after, "\n") + "\n"),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}

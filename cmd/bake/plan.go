// File: cmd/bake/plan.go
// Brief: CLI command wiring and implementation for 'plan'.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/example/bake/internal/gitinfo"
	"github.com/example/bake/internal/project"
	"github.com/example/bake/internal/repos"
	"github.com/example/bake/internal/resolve"
)

func newPlanCommand() *cobra.Command {
	var (
		opts   resolveOptions
		format string
		width  int
	)
	cmd := &cobra.Command{
		Use:   "plan CONFIG[:CONFIG...] [CONFIG...]",
		Short: "Show the repositories, layers and patches a checkout would use",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.resolve(cmd, args)
			if err != nil {
				return err
			}
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "table":
				if !cmd.Flags().Changed("path-width") {
					width = terminalPathWidth(cmd.OutOrStdout(), width)
				}
				writePlan(cmd.OutOrStdout(), planView(cmd.Context(), res), width)
				return nil
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(planView(cmd.Context(), res))
			default:
				return fmt.Errorf("unsupported --format %q (expected table or json)", format)
			}
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	cmd.Flags().IntVar(&width, "path-width", 48, "Truncate paths in the repo table to this many columns (0 disables)")
	return cmd
}

type planJSON struct {
	Digest      string               `json:"digest"`
	BuildSystem project.BuildSystem  `json:"buildSystem"`
	InitScript  string               `json:"initScript"`
	Machine     string               `json:"machine"`
	Distro      string               `json:"distro"`
	Targets     []string             `json:"targets"`
	Task        string               `json:"task"`
	WorkDir     string               `json:"workDir"`
	BuildDir    string               `json:"buildDir"`
	RepoRefDir  string               `json:"repoRefDir,omitempty"`
	TopDir      string               `json:"topDir"`
	TopCommit   string               `json:"topCommit,omitempty"`
	TopDirty    bool                 `json:"topDirty,omitempty"`
	Sources     []string             `json:"sources"`
	Repos       []repos.ResolvedRepo `json:"repos"`
	Patches     []repos.AppliedPatch `json:"patches,omitempty"`
	Passthrough []string             `json:"passthrough,omitempty"`
}

func planView(ctx context.Context, res *resolve.Result) planJSON {
	sources := make([]string, 0, len(res.Sources))
	for _, e := range res.Sources {
		sources = append(sources, e.Path)
	}
	bs := res.Settings.BuildSystem
	if bs == "" {
		bs = project.OpenEmbedded
	}
	view := planJSON{
		Digest:      res.Digest.String(),
		BuildSystem: bs,
		InitScript:  bs.InitScript(),
		Machine:     res.Settings.Machine,
		Distro:      res.Settings.Distro,
		Targets:     res.Settings.Targets,
		Task:        res.Settings.Task,
		WorkDir:     res.Context.WorkDir,
		BuildDir:    res.Context.BuildDir,
		RepoRefDir:  res.Context.RepoRefDir,
		TopDir:      res.TopDir,
		Sources:     sources,
		Repos:       res.Repos,
		Patches:     repos.Patches(res.Repos),
		Passthrough: res.Passthrough,
	}
	if commit, dirty, err := gitinfo.Head(ctx, res.TopDir); err == nil {
		view.TopCommit, view.TopDirty = commit, dirty
	} else {
		logr.FromContextOrDiscard(ctx).V(1).Info("top repository has no git metadata", "dir", res.TopDir, "err", err.Error())
	}
	return view
}

func writePlan(w io.Writer, view planJSON, pathWidth int) {
	label := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s\n", label("Digest:      "), view.Digest)
	fmt.Fprintf(w, "%s %s (%s)\n", label("Build system:"), view.BuildSystem, view.InitScript)
	fmt.Fprintf(w, "%s %s\n", label("Machine:     "), view.Machine)
	fmt.Fprintf(w, "%s %s\n", label("Distro:      "), view.Distro)
	fmt.Fprintf(w, "%s %s\n", label("Targets:     "), strings.Join(view.Targets, " "))
	fmt.Fprintf(w, "%s %s\n", label("Task:        "), view.Task)
	fmt.Fprintf(w, "%s %s\n", label("Work dir:    "), view.WorkDir)
	fmt.Fprintf(w, "%s %s\n", label("Build dir:   "), view.BuildDir)
	if view.RepoRefDir != "" {
		fmt.Fprintf(w, "%s %s\n", label("Repo ref dir:"), view.RepoRefDir)
	}
	top := view.TopDir
	if view.TopCommit != "" {
		top += " @ " + view.TopCommit
		if view.TopDirty {
			top += " (modified)"
		}
	}
	fmt.Fprintf(w, "%s %s\n", label("Top repo:    "), top)

	fmt.Fprintln(w)
	fmt.Fprintln(w, label("Sources:"))
	for _, s := range view.Sources {
		fmt.Fprintf(w, "  %s\n", s)
	}

	fmt.Fprintln(w)
	writeRepoTable(w, view.Repos, pathWidth)

	if len(view.Patches) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, label("Patches:"))
		for _, p := range view.Patches {
			fmt.Fprintf(w, "  %s  %s  %s\n", p.Target, p.ID, p.Path)
		}
	}
	if len(view.Passthrough) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s\n", label("Passthrough:"), strings.Join(view.Passthrough, " "))
	}
}

func writeRepoTable(w io.Writer, resolved []repos.ResolvedRepo, pathWidth int) {
	headers := []string{"REPO", "OPERATION", "REF", "PATH", "LAYERS"}
	rows := make([][]string, 0, len(resolved))
	for _, rr := range resolved {
		layers := make([]string, 0, len(rr.Layers))
		for _, l := range rr.Layers {
			layers = append(layers, l.Name)
		}
		path := rr.Path
		if pathWidth > 0 {
			path = trimLeftToWidth(path, pathWidth)
		}
		rows = append(rows, []string{
			rr.ID,
			string(rr.Operation),
			firstSet(rr.Commit, rr.Branch, rr.Refspec, "-"),
			path,
			strings.Join(layers, ","),
		})
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	fmt.Fprintln(w, joinCells(headers, widths, nil))
	for _, row := range rows {
		fmt.Fprintln(w, joinCells(row, widths, operationColor(repos.Operation(row[1]))))
	}
}

// joinCells pads each cell to its column width. paint colors the operation column after
// padding so escape sequences do not disturb alignment.
func joinCells(cells []string, widths []int, paint *color.Color) string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		padded := cell
		if i < len(cells)-1 {
			padded = runewidth.FillRight(cell, widths[i])
		}
		if i == 1 && paint != nil {
			padded = paint.Sprint(padded)
		}
		out[i] = padded
	}
	return strings.Join(out, "  ")
}

func operationColor(op repos.Operation) *color.Color {
	if op == repos.OpClone {
		return color.New(color.FgGreen)
	}
	return color.New(color.FgCyan)
}

// terminalPathWidth gives the path column half of the terminal when w is one.
func terminalPathWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fallback
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 {
		return fallback
	}
	return max(24, cols/2)
}

// trimLeftToWidth keeps the tail of s, which for paths is the informative part.
func trimLeftToWidth(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	runes := []rune(s)
	avail := width - 1
	used := 0
	start := len(runes)
	for start > 0 {
		rw := runewidth.RuneWidth(runes[start-1])
		if used+rw > avail {
			break
		}
		used += rw
		start--
	}
	return "…" + string(runes[start:])
}

// gitinfo.go reads the checked-out commit of a local repository for plan output.
package gitinfo

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Head returns the commit checked out in dir and whether the work tree has local changes.
func Head(ctx context.Context, dir string) (commit string, dirty bool, err error) {
	output, err := git(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", false, err
	}
	commit = strings.TrimSpace(output)
	status, err := git(ctx, dir, "status", "--porcelain")
	if err != nil {
		return commit, false, fmt.Errorf("git status: %w", err)
	}
	return commit, strings.TrimSpace(status) != "", nil
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s in %s: %w", strings.Join(args, " "), dir, err)
	}
	return string(out), nil
}

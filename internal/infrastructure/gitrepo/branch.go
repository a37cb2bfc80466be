// Package gitrepo reads state from the local git working copy.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrDetachedHead = errors.New("HEAD is detached")

// CurrentBranch returns the checked-out branch of the working copy at dir as refs/heads/<name>.
func CurrentBranch(ctx context.Context, dir string) (string, error) {
	args := []string{"rev-parse", "--abbrev-ref", "HEAD"}
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse %s: %w", dir, err)
	}

	name := strings.TrimSpace(string(out))
	if name == "" || name == "HEAD" {
		return "", ErrDetachedHead
	}
	return "refs/heads/" + name, nil
}

// Package worktree wraps the git CLI for worktree operations.
//
// Agent workspaces are backed by linked git worktrees, and worktree
// manipulation needs full git compatibility (sparse checkouts, hooks,
// per-repo config), so this package shells out to `git -C` rather than
// reimplementing the plumbing with a Go git library — go-git in
// particular cannot create linked worktrees.
package worktree

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/agentree/internal/model"
)

// Info is one entry of `git worktree list --porcelain`.
type Info struct {
	// Path is the worktree directory.
	Path string

	// Branch is the full ref ("refs/heads/x"), empty when detached.
	Branch string

	// HEAD is the checked-out commit SHA.
	HEAD string
}

// Manager runs git worktree operations against a repository. It is
// stateless; the struct exists so a custom git binary path or logging
// can be added without breaking callers.
type Manager struct{}

// NewManager returns a worktree Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Add creates a worktree for branch at path. A branch that does not
// exist yet is created from base (HEAD when base is empty); an existing
// branch is checked out as-is, since `-b` would refuse it.
func (m *Manager) Add(repoRoot, branch, path, base string) error {
	if m.BranchExists(repoRoot, branch) {
		_, err := runGit(repoRoot, "worktree", "add", path, branch)
		return err
	}

	args := []string{"worktree", "add", "-b", branch, path}
	if base != "" {
		args = append(args, base)
	}
	_, err := runGit(repoRoot, args...)
	return err
}

// Remove deletes the worktree at path. force allows removal with
// uncommitted or untracked changes, which is the common case when an
// agent session is abandoned midway.
func (m *Manager) Remove(repoRoot, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)

	_, err := runGit(repoRoot, args...)
	return err
}

// List returns all worktrees of the repository, the main checkout included.
func (m *Manager) List(repoRoot string) ([]Info, error) {
	out, err := runGit(repoRoot, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(out), nil
}

// Prune drops stale worktree bookkeeping for directories deleted by
// hand, so a re-created workspace does not trip over leftover metadata.
func (m *Manager) Prune(repoRoot string) error {
	_, err := runGit(repoRoot, "worktree", "prune")
	return err
}

// RepoRoot resolves the top-level directory of the working tree
// containing path.
func (m *Manager) RepoRoot(path string) (string, error) {
	out, err := runGit(path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CurrentBranch returns the short branch name checked out at path, or
// "HEAD" when detached.
func (m *Manager) CurrentBranch(path string) (string, error) {
	out, err := runGit(path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// BranchExists reports whether the ref resolves in the repository.
func (m *Manager) BranchExists(repoRoot, branch string) bool {
	_, err := runGit(repoRoot, "rev-parse", "--verify", "refs/heads/"+branch)
	return err == nil
}

// Exists reports whether path is a directory on disk. Used to detect
// orphaned workspaces whose worktree was deleted outside agentree.
func (m *Manager) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// DefaultPath returns the conventional location for a new worktree:
// a sibling of the repository named <repo>-<workspace>, or the same
// shape under parentDir when one is configured.
func DefaultPath(repoRoot, workspace, parentDir string) string {
	dir := filepath.Dir(repoRoot)
	if parentDir != "" {
		dir = parentDir
	}
	return filepath.Join(dir, filepath.Base(repoRoot)+"-"+workspace)
}

// runGit executes git with -C dir so the process working directory is
// never changed. stderr is folded into the error; stdout is returned.
func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if s := strings.TrimSpace(stderr.String()); s != "" {
			msg = fmt.Sprintf("%s: %s", msg, s)
		}
		return "", model.WrapCLIError(model.ExitGitError, msg, err)
	}
	return stdout.String(), nil
}

// parsePorcelain parses `git worktree list --porcelain` output: blocks
// of key-value lines separated by blank lines.
func parsePorcelain(out string) []Info {
	var infos []Info
	var current *Info

	flush := func() {
		if current != nil {
			infos = append(infos, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			flush()
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "worktree":
			flush()
			current = &Info{Path: value}
		case "HEAD":
			if current != nil {
				current.HEAD = value
			}
		case "branch":
			if current != nil {
				current.Branch = value
			}
		}
	}
	flush()
	return infos
}

// Package tmux wraps tmux session operations via subprocess. Each
// workspace gets a detached session named after it, created in the
// worktree directory and optionally running the project's agent command.
package tmux

import (
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// ErrInvalidSessionName rejects names tmux would mangle or silently
// misroute: dots and colons have target-syntax meaning in tmux.
var ErrInvalidSessionName = errors.New("invalid tmux session name")

var sessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionName checks a name is safe to pass to tmux -t.
// Workspace names already satisfy this by construction; the check guards
// direct callers.
func ValidateSessionName(name string) error {
	if name == "" || !sessionNameRe.MatchString(name) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidSessionName, name, sessionNameRe.String())
	}
	return nil
}

// Available reports whether a tmux binary is on PATH. tmux integration
// is best-effort: its absence downgrades create to plain worktree setup.
func Available() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

// HasSession reports whether a session with exactly this name exists.
// The "=" prefix disables tmux's prefix matching, which would otherwise
// let "api" match a session named "api-v2".
func HasSession(name string) bool {
	if err := ValidateSessionName(name); err != nil {
		return false
	}
	return exec.Command("tmux", "has-session", "-t", "="+name).Run() == nil
}

// NewSession starts a detached session in dir. A non-empty command runs
// in the initial window; otherwise tmux starts the default shell.
func NewSession(name, dir, command string) error {
	if err := ValidateSessionName(name); err != nil {
		return err
	}

	args := []string{"new-session", "-d", "-s", name, "-c", dir}
	if command != "" {
		args = append(args, command)
	}
	return run(args...)
}

// KillSession terminates the session. A session that is already gone is
// treated as success, mirroring the registry's idempotent release.
func KillSession(name string) error {
	if err := ValidateSessionName(name); err != nil {
		return err
	}
	if !HasSession(name) {
		return nil
	}
	return run("kill-session", "-t", "="+name)
}

// run executes tmux, folding stderr into the returned error.
func run(args ...string) error {
	cmd := exec.Command("tmux", args...)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("tmux %s: %w", strings.Join(args, " "), err)
		}
		return fmt.Errorf("tmux %s: %s: %w", strings.Join(args, " "), msg, err)
	}
	return nil
}

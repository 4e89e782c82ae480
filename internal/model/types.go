package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// WorkspaceStatus is the lifecycle state of a workspace as observed at
// command time. It is derived, never stored: the registry knows which
// ports a workspace holds, git knows whether its worktree exists, and
// Docker/tmux know whether anything is running in it.
type WorkspaceStatus string

const (
	// StatusRunning means the workspace has at least one running
	// container or an attached tmux session.
	StatusRunning WorkspaceStatus = "running"

	// StatusStopped means the worktree exists but nothing is running.
	StatusStopped WorkspaceStatus = "stopped"

	// StatusOrphaned means the registry still holds ports for the
	// workspace but its worktree directory no longer exists — typically
	// the directory was deleted by hand instead of `agentree remove`.
	StatusOrphaned WorkspaceStatus = "orphaned"
)

// String satisfies fmt.Stringer.
func (s WorkspaceStatus) String() string {
	return string(s)
}

// Workspace is the aggregate the CLI operates on: one git worktree paired
// with the ports it holds in the global registry.
type Workspace struct {
	// Name is the sanitized, unique workspace identifier. It doubles as
	// the registry environment name, the Compose project name, and the
	// tmux session name.
	Name string `json:"name"`

	// Branch is the git branch checked out in the worktree.
	Branch string `json:"branch"`

	// Path is the absolute path of the worktree directory.
	Path string `json:"path"`

	// ProjectRoot is the absolute path of the source repository. It is
	// the registry's project namespace key.
	ProjectRoot string `json:"projectRoot"`

	// Ports maps environment-variable names to the host ports allocated
	// for this workspace.
	Ports map[string]int `json:"ports,omitempty"`

	// Status is the derived lifecycle state.
	Status WorkspaceStatus `json:"status"`

	// CreatedAt is when the workspace was created, taken from the
	// earliest registry allocation timestamp. Zero when the workspace
	// holds no ports.
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// nameRegex constrains workspace names to alphanumerics and hyphens with
// alphanumeric endpoints. The name is reused as a tmux session name and
// a Compose project name, both of which choke on dots and colons.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)

// ValidateName reports whether name is usable as a workspace identifier.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("workspace name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid workspace name %q: only alphanumerics and hyphens, starting and ending with an alphanumeric", name)
	}
	return nil
}

// SanitizeName derives a workspace name from a git branch name.
// Separators become hyphens, everything else non-alphanumeric is
// dropped, and an empty result falls back to "workspace".
func SanitizeName(branch string) string {
	name := strings.ReplaceAll(branch, "/", "-")
	name = strings.ReplaceAll(name, "_", "-")

	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	name = strings.Trim(b.String(), "-")

	if name == "" {
		return "workspace"
	}
	return name
}

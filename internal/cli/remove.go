// remove.go implements "agentree remove": tear down the tmux session and
// worktree, then release the workspace's ports back to the registry.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/agentree/internal/config"
	"github.com/shinji-kodama/agentree/internal/model"
	"github.com/shinji-kodama/agentree/internal/registry"
	"github.com/shinji-kodama/agentree/internal/tmux"
	"github.com/shinji-kodama/agentree/internal/worktree"
)

// removeFlags holds the remove command's flag values.
type removeFlags struct {
	force bool // --force: remove worktrees with uncommitted changes
}

// NewRemoveCommand builds the "remove" subcommand.
func NewRemoveCommand() *cobra.Command {
	flags := &removeFlags{}

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a workspace and release its ports",
		Long: `Remove the named workspace: kill its tmux session, delete its git
worktree, and release every port it holds. Released ports are immediately
available to new workspaces.

Removal is idempotent — removing a half-deleted (orphaned) workspace
cleans up whatever is left.

Examples:
  agentree remove feature-auth
  agentree remove --force feature-auth`,

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Remove even with uncommitted changes")

	return cmd
}

// runRemove tears down the named workspace. Teardown order matters:
// session first (it may hold files open in the worktree), worktree
// second, ports last — if an earlier step fails the ports stay
// registered and a rerun finishes the job.
func runRemove(name string, flags *removeFlags) error {
	if err := model.ValidateName(name); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid workspace name", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	wm := worktree.NewManager()

	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "cannot determine working directory", err)
	}
	projectRoot, err := wm.RepoRoot(cwd)
	if err != nil {
		return model.WrapCLIError(model.ExitGitError, "not inside a git repository", err)
	}

	if tmux.Available() && tmux.HasSession(name) {
		if err := tmux.KillSession(name); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "cannot kill tmux session", err)
		}
		VerboseLog("Killed tmux session %q", name)
	}

	worktreeRemoved := false
	infos, err := wm.List(projectRoot)
	if err != nil {
		return err
	}
	if path, ok := findWorkspaceWorktree(projectRoot, infos, name); ok {
		if wm.Exists(path) {
			if err := wm.Remove(projectRoot, path, flags.force); err != nil {
				return err
			}
			worktreeRemoved = true
			VerboseLog("Removed worktree %s", path)
		} else {
			// Directory deleted by hand; drop the stale bookkeeping.
			if err := wm.Prune(projectRoot); err != nil {
				VerboseLog("Prune failed: %v", err)
			}
		}
	}

	reg := registry.New(cfg.RegistryPath)
	released, err := reg.Release(projectRoot, name)
	if err != nil {
		return registryError(err)
	}
	VerboseLog("Released %d port(s)", released)

	if !worktreeRemoved && released == 0 {
		return model.NewCLIError(model.ExitWorkspaceNotFound,
			fmt.Sprintf("no workspace %q in this project", name))
	}

	printRemoveResult(name, worktreeRemoved, released)
	return nil
}

// findWorkspaceWorktree locates the worktree belonging to the named
// workspace. The worktree path itself is not recorded anywhere (the
// registry stores only ports), so two join keys are tried: the
// sanitized branch name, and the <repo>-<name> directory suffix that
// covers workspaces created with `create --name`.
func findWorkspaceWorktree(projectRoot string, infos []worktree.Info, name string) (string, bool) {
	prefix := filepath.Base(projectRoot) + "-"

	for _, info := range infos {
		// Never treat the main checkout as a removable workspace.
		if info.Path == projectRoot {
			continue
		}
		branch := strings.TrimPrefix(info.Branch, "refs/heads/")
		if branch != "" && model.SanitizeName(branch) == name {
			return info.Path, true
		}
		if base := filepath.Base(info.Path); strings.HasPrefix(base, prefix) &&
			strings.TrimPrefix(base, prefix) == name {
			return info.Path, true
		}
	}
	return "", false
}

// printRemoveResult renders the outcome as text or JSON.
func printRemoveResult(name string, worktreeRemoved bool, released int) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]any{
			"name":            name,
			"worktreeRemoved": worktreeRemoved,
			"portsReleased":   released,
		}, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Removed workspace %q (%d port(s) released)\n", name, released)
}

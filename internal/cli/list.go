// list.go implements "agentree list": a joined view of the port
// registry, the repository's worktrees, and (best-effort) Docker and
// tmux liveness.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/agentree/internal/config"
	"github.com/shinji-kodama/agentree/internal/docker"
	"github.com/shinji-kodama/agentree/internal/model"
	"github.com/shinji-kodama/agentree/internal/registry"
	"github.com/shinji-kodama/agentree/internal/tmux"
	"github.com/shinji-kodama/agentree/internal/worktree"
)

// NewListCommand builds the "list" subcommand.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List this project's workspaces and their ports",
		Long: `List every workspace of the current project: its branch, worktree path,
allocated ports, and status.

Status is derived from what actually exists:
  running   a workspace container or tmux session is live
  stopped   the worktree exists but nothing is running
  orphaned  ports are still registered but the worktree is gone

Docker being unreachable downgrades the view (no container status)
instead of failing; run with --verbose to see why.`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

// runList assembles the workspace listing.
//
// The registry is the source of truth for which workspaces exist: a
// workspace without ports (empty env template) still shows up through
// its worktree, but a workspace whose worktree was deleted by hand
// shows up through its ports as orphaned.
func runList() error {
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

	reg := registry.New(cfg.RegistryPath)
	rows, err := reg.AllocationsForProject(projectRoot)
	if err != nil {
		return registryError(err)
	}

	// Ports grouped by workspace name.
	portsByName := make(map[string]map[string]int)
	for _, row := range rows {
		if portsByName[row.Environment] == nil {
			portsByName[row.Environment] = make(map[string]int)
		}
		portsByName[row.Environment][row.VarName] = row.Port
	}

	infos, err := wm.List(projectRoot)
	if err != nil {
		return err
	}

	running := dockerRunningWorkspaces(projectRoot)

	workspaces := joinWorkspaces(projectRoot, infos, portsByName, running, wm)
	printWorkspaceList(workspaces)
	return nil
}

// dockerRunningWorkspaces asks Docker which workspaces have a running
// container. Any failure degrades to "none known" — list must work on
// machines without a daemon.
func dockerRunningWorkspaces(projectRoot string) map[string]bool {
	cli, err := docker.NewClient()
	if err != nil {
		VerboseLog("Docker unavailable: %v", err)
		return nil
	}
	defer cli.Close()

	ctx := context.Background()
	if err := cli.Ping(ctx); err != nil {
		VerboseLog("Docker unavailable: %v", err)
		return nil
	}

	containers, err := cli.ListProjectContainers(ctx, projectRoot)
	if err != nil {
		VerboseLog("Container listing failed: %v", err)
		return nil
	}
	return docker.RunningWorkspaces(containers)
}

// joinWorkspaces merges worktree entries with registry allocations into
// one Workspace per name, sorted by name.
func joinWorkspaces(projectRoot string, infos []worktree.Info, portsByName map[string]map[string]int, running map[string]bool, wm *worktree.Manager) []*model.Workspace {
	byName := make(map[string]*model.Workspace)

	for _, info := range infos {
		// The main checkout is not a workspace.
		if info.Path == projectRoot {
			continue
		}
		branch := strings.TrimPrefix(info.Branch, "refs/heads/")
		if branch == "" {
			continue
		}
		name := resolveWorkspaceName(projectRoot, info, portsByName)
		byName[name] = &model.Workspace{
			Name:        name,
			Branch:      branch,
			Path:        info.Path,
			ProjectRoot: projectRoot,
			Status:      model.StatusStopped,
		}
	}

	for name, ports := range portsByName {
		ws, ok := byName[name]
		if !ok {
			ws = &model.Workspace{
				Name:        name,
				ProjectRoot: projectRoot,
				Status:      model.StatusOrphaned,
			}
			byName[name] = ws
		}
		ws.Ports = ports
	}

	tmuxUp := tmux.Available()
	for _, ws := range byName {
		if ws.Path != "" && !wm.Exists(ws.Path) {
			ws.Status = model.StatusOrphaned
			continue
		}
		if ws.Status == model.StatusOrphaned {
			continue
		}
		if running[ws.Name] || (tmuxUp && tmux.HasSession(ws.Name)) {
			ws.Status = model.StatusRunning
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*model.Workspace, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}

// resolveWorkspaceName recovers a worktree's workspace name. The
// sanitized branch name is the usual source, but `create --name`
// registers ports under a custom name while the branch keeps its own;
// those worktrees are recognized through the <repo>-<name> directory
// convention of worktree.DefaultPath. Whichever candidate actually
// holds ports wins, so the registry row and the worktree join into one
// workspace instead of a stopped/orphaned pair.
func resolveWorkspaceName(projectRoot string, info worktree.Info, portsByName map[string]map[string]int) string {
	branch := strings.TrimPrefix(info.Branch, "refs/heads/")
	fromBranch := model.SanitizeName(branch)
	if _, ok := portsByName[fromBranch]; ok {
		return fromBranch
	}

	prefix := filepath.Base(projectRoot) + "-"
	base := filepath.Base(info.Path)
	if suffix := strings.TrimPrefix(base, prefix); suffix != base {
		if _, ok := portsByName[suffix]; ok {
			return suffix
		}
	}
	return fromBranch
}

// printWorkspaceList renders the listing as a table or JSON array.
func printWorkspaceList(workspaces []*model.Workspace) {
	if IsJSONOutput() {
		if workspaces == nil {
			workspaces = []*model.Workspace{}
		}
		data, _ := json.MarshalIndent(workspaces, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(workspaces) == 0 {
		fmt.Println("No workspaces in this project.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBRANCH\tSTATUS\tPORTS\tPATH")
	for _, ws := range workspaces {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			ws.Name,
			valueOrDash(ws.Branch),
			ws.Status,
			valueOrDash(formatPorts(ws.Ports)),
			valueOrDash(ws.Path),
		)
	}
	w.Flush()
}

// formatPorts renders a port map as "VAR=port,VAR=port", ordered by
// port ascending.
func formatPorts(ports map[string]int) string {
	pairs := sortPorts(ports)
	parts := make([]string, 0, len(pairs))
	for _, pv := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%d", pv.Name, pv.Port))
	}
	return strings.Join(parts, ",")
}

// valueOrDash substitutes "-" for empty table cells.
func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// create.go implements "agentree create", the primary workflow: worktree
// plus port allocation plus rendered .env, optionally wrapped in a tmux
// session.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/agentree/internal/compose"
	"github.com/shinji-kodama/agentree/internal/config"
	"github.com/shinji-kodama/agentree/internal/envfile"
	"github.com/shinji-kodama/agentree/internal/model"
	"github.com/shinji-kodama/agentree/internal/registry"
	"github.com/shinji-kodama/agentree/internal/tmux"
	"github.com/shinji-kodama/agentree/internal/worktree"
)

// createFlags holds the create command's flag values.
type createFlags struct {
	base   string // --base: starting point for a new branch
	path   string // --path: custom worktree location
	name   string // --name: custom workspace name
	noTmux bool   // --no-tmux: skip session launch
}

// NewCreateCommand builds the "create" subcommand.
func NewCreateCommand() *cobra.Command {
	flags := &createFlags{}

	cmd := &cobra.Command{
		Use:   "create <branch>",
		Short: "Create a workspace with its own worktree and ports",
		Long: `Create a git worktree for the branch, allocate a unique port for every
*_PORT variable in the project's env template, render the workspace .env,
and (when configured) start a tmux session running the agent command.

Examples:
  agentree create feature-auth
  agentree create --base main fix/login
  agentree create --name review-17 pr-17
  agentree create --no-tmux feature-auth`,

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.base, "base", "", "Base branch/commit for a new branch (default: HEAD)")
	cmd.Flags().StringVar(&flags.path, "path", "", "Worktree directory (default: ../<repo>-<name>)")
	cmd.Flags().StringVar(&flags.name, "name", "", "Workspace name (default: sanitized branch name)")
	cmd.Flags().BoolVar(&flags.noTmux, "no-tmux", false, "Do not start a tmux session")

	return cmd
}

// runCreate orchestrates workspace creation.
func runCreate(branch string, flags *createFlags) error {
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
	VerboseLog("Project root: %s", projectRoot)

	name := flags.name
	if name == "" {
		name = model.SanitizeName(branch)
	}
	if err := model.ValidateName(name); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid workspace name", err)
	}
	VerboseLog("Workspace name: %s", name)

	reg := registry.New(cfg.RegistryPath)

	// Refuse to reuse a name that still holds ports: either the
	// workspace exists, or it is an orphan that should be removed first.
	existing, err := reg.PortsForEnvironment(projectRoot, name)
	if err != nil {
		return registryError(err)
	}
	if len(existing) > 0 {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("workspace %q already holds ports; run `agentree remove %s` first", name, name))
	}

	path := flags.path
	if path == "" {
		path = worktree.DefaultPath(projectRoot, name, cfg.WorktreeDir)
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "cannot resolve worktree path", err)
	}
	VerboseLog("Worktree path: %s", path)

	proj, err := config.LoadProject(projectRoot)
	if err != nil {
		return err
	}

	templatePath := filepath.Join(projectRoot, proj.EnvTemplate)
	varNames, err := envfile.ScanPortVariables(templatePath)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "cannot scan env template", err)
	}
	VerboseLog("Port variables: %v", varNames)

	if err := wm.Add(projectRoot, branch, path, flags.base); err != nil {
		return err
	}
	VerboseLog("Worktree created")

	ports, err := reg.Allocate(projectRoot, name, varNames, cfg.PortRange)
	if err != nil {
		// The worktree exists but owns nothing; take it back out so a
		// failed create leaves no trace.
		if rmErr := wm.Remove(projectRoot, path, true); rmErr != nil {
			VerboseLog("Rollback failed, worktree %s left behind: %v", path, rmErr)
		}

		var exhausted *registry.ExhaustedRangeError
		if errors.As(err, &exhausted) {
			return model.WrapCLIError(model.ExitPortAllocationFailed,
				"port range exhausted; widen ports.min/ports.max or remove unused workspaces", err)
		}
		return registryError(err)
	}
	VerboseLog("Allocated %d port(s)", len(ports))

	createdAt := time.Now().UTC()

	if err := envfile.WriteWorkspaceEnv(templatePath, filepath.Join(path, ".env"), ports); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "cannot write workspace .env", err)
	}

	if proj.ComposeFile != "" {
		labels := compose.Labels(name, projectRoot, createdAt)
		data, err := compose.GenerateOverride(name, proj.Services, labels)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "cannot generate compose override", err)
		}
		overridePath := filepath.Join(path, compose.OverrideFileName)
		if err := compose.WriteOverride(overridePath, data); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "cannot write compose override", err)
		}
		VerboseLog("Compose override written: %s", overridePath)
	}

	sessionStarted := false
	if cfg.TmuxEnabled && !flags.noTmux {
		if tmux.Available() {
			if err := tmux.NewSession(name, path, proj.Command); err != nil {
				// The workspace is fully usable without the session;
				// report and carry on.
				VerboseLog("tmux session not started: %v", err)
			} else {
				sessionStarted = true
			}
		} else {
			VerboseLog("tmux not found on PATH, skipping session")
		}
	}

	ws := &model.Workspace{
		Name:        name,
		Branch:      branch,
		Path:        path,
		ProjectRoot: projectRoot,
		Ports:       ports,
		Status:      model.StatusStopped,
		CreatedAt:   createdAt,
	}
	if sessionStarted {
		ws.Status = model.StatusRunning
	}

	printCreateResult(ws, sessionStarted)
	return nil
}

// registryError maps registry storage failures onto the CLI exit code.
func registryError(err error) error {
	return model.WrapCLIError(model.ExitRegistryError, "port registry unavailable", err)
}

// printCreateResult renders the outcome as text or JSON.
func printCreateResult(ws *model.Workspace, sessionStarted bool) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(ws, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Created workspace %q\n", ws.Name)
	fmt.Printf("  Branch:  %s\n", ws.Branch)
	fmt.Printf("  Path:    %s\n", ws.Path)

	if len(ws.Ports) > 0 {
		fmt.Println("  Ports:")
		for _, pv := range sortPorts(ws.Ports) {
			fmt.Printf("    %-20s %d\n", pv.Name, pv.Port)
		}
	}

	if sessionStarted {
		fmt.Printf("\nAttach with: tmux attach -t %s\n", ws.Name)
	}
}

// portVar is a (variable, port) pair used for sorted display.
type portVar struct {
	Name string
	Port int
}

// sortPorts flattens a port map ordered by port number, which matches
// allocation order under first-fit.
func sortPorts(ports map[string]int) []portVar {
	out := make([]portVar, 0, len(ports))
	for name, port := range ports {
		out = append(out, portVar{Name: name, Port: port})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

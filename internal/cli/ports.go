// ports.go implements "agentree ports": read-only registry queries,
// either for a single workspace or summarized across the project.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/agentree/internal/config"
	"github.com/shinji-kodama/agentree/internal/model"
	"github.com/shinji-kodama/agentree/internal/registry"
	"github.com/shinji-kodama/agentree/internal/worktree"
)

// NewPortsCommand builds the "ports" subcommand.
func NewPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports [name]",
		Short: "Show allocated ports for a workspace or the whole project",
		Long: `Show port allocations from the registry. With a workspace name, print
that workspace's variable-to-port mapping; without one, print every
allocation of the current project grouped by workspace.

A workspace with no allocations prints an empty result — only a
registry that cannot be read is an error.

Examples:
  agentree ports
  agentree ports feature-auth
  agentree ports --json feature-auth`,

		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runPorts(name)
		},
	}
}

// runPorts queries the registry without mutating it.
func runPorts(name string) error {
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

	if name != "" {
		if err := model.ValidateName(name); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "invalid workspace name", err)
		}
		ports, err := reg.PortsForEnvironment(projectRoot, name)
		if err != nil {
			return registryError(err)
		}
		printWorkspacePorts(name, ports)
		return nil
	}

	rows, err := reg.AllocationsForProject(projectRoot)
	if err != nil {
		return registryError(err)
	}
	printProjectPorts(rows)
	return nil
}

// printWorkspacePorts renders one workspace's variable→port mapping.
func printWorkspacePorts(name string, ports map[string]int) {
	if IsJSONOutput() {
		if ports == nil {
			ports = map[string]int{}
		}
		data, _ := json.MarshalIndent(map[string]any{
			"name":  name,
			"ports": ports,
		}, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(ports) == 0 {
		fmt.Printf("No ports allocated to workspace %q.\n", name)
		return
	}

	for _, pv := range sortPorts(ports) {
		fmt.Printf("%-24s %d\n", pv.Name, pv.Port)
	}
}

// printProjectPorts renders the project-wide allocation table, already
// sorted by port from the registry.
func printProjectPorts(rows []registry.ProjectAllocation) {
	if IsJSONOutput() {
		if rows == nil {
			rows = []registry.ProjectAllocation{}
		}
		data, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(rows) == 0 {
		fmt.Println("No ports allocated in this project.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "WORKSPACE\tVARIABLE\tPORT")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\n", row.Environment, row.VarName, row.Port)
	}
	w.Flush()
}

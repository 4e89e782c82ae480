package docker

import (
	"context"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/shinji-kodama/agentree/internal/compose"
	"github.com/shinji-kodama/agentree/internal/model"
)

// ContainerInfo is the slice of Docker container state the CLI cares about.
type ContainerInfo struct {
	// ID is the container identifier.
	ID string

	// Name is the primary container name without the leading slash.
	Name string

	// State is the Docker lifecycle state string ("running", "exited", ...).
	State string

	// Workspace is the owning workspace name, from the agentree label.
	Workspace string
}

// ListProjectContainers returns every agentree-managed container (running
// or stopped) belonging to the given project root, across all of the
// project's workspaces.
func (c *Client) ListProjectContainers(ctx context.Context, projectRoot string) ([]ContainerInfo, error) {
	f := filters.NewArgs(
		filters.Arg("label", compose.LabelManagedBy+"="+compose.ManagedByValue),
		filters.Arg("label", compose.LabelProject+"="+projectRoot),
	)

	list, err := c.inner.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "cannot list containers", err)
	}

	infos := make([]ContainerInfo, 0, len(list))
	for _, ctr := range list {
		name := ""
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}
		infos = append(infos, ContainerInfo{
			ID:        ctr.ID,
			Name:      name,
			State:     ctr.State,
			Workspace: ctr.Labels[compose.LabelWorkspace],
		})
	}
	return infos, nil
}

// RunningWorkspaces reduces a container listing to the set of workspace
// names with at least one running container.
func RunningWorkspaces(containers []ContainerInfo) map[string]bool {
	running := make(map[string]bool)
	for _, ctr := range containers {
		if ctr.Workspace != "" && ctr.State == "running" {
			running[ctr.Workspace] = true
		}
	}
	return running
}

// Package docker wraps the Docker Engine SDK for workspace container
// discovery. Containers started from a workspace's compose project carry
// agentree labels (see the compose package); this package finds them so
// `agentree list` can report which workspaces actually have something
// running. Docker being unreachable is never fatal for read paths — the
// CLI degrades to registry-and-git-only output.
package docker

import (
	"context"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/agentree/internal/model"
)

// pingTimeout bounds the daemon liveness probe. Docker Desktop on macOS
// can take a few seconds to answer the first request.
const pingTimeout = 5 * time.Second

// Client wraps the Docker SDK client to keep the exposed surface small.
type Client struct {
	inner *client.Client
}

// NewClient connects to the Docker daemon using the standard environment
// configuration (DOCKER_HOST et al.) with API version negotiation, so
// one binary works against old and new daemons alike.
func NewClient() (*Client, error) {
	inner, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "cannot create Docker client", err)
	}
	return &Client{inner: inner}, nil
}

// Ping verifies the daemon is actually reachable; a client can be
// constructed without a daemon present.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(ctx); err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning, "Docker daemon not reachable", err)
	}
	return nil
}

// Close releases the client's underlying HTTP connections.
func (c *Client) Close() error {
	return c.inner.Close()
}

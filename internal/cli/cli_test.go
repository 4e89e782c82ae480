package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/agentree/internal/model"
	"github.com/shinji-kodama/agentree/internal/worktree"
)

// TestSortPorts verifies display ordering follows port number, which
// under first-fit allocation matches the order ports were handed out.
func TestSortPorts(t *testing.T) {
	pairs := sortPorts(map[string]int{
		"WEB_PORT": 30002,
		"DB_PORT":  30000,
		"API_PORT": 30001,
	})

	require.Len(t, pairs, 3)
	assert.Equal(t, portVar{Name: "DB_PORT", Port: 30000}, pairs[0])
	assert.Equal(t, portVar{Name: "API_PORT", Port: 30001}, pairs[1])
	assert.Equal(t, portVar{Name: "WEB_PORT", Port: 30002}, pairs[2])
}

// TestFormatPorts verifies the compact table rendering.
func TestFormatPorts(t *testing.T) {
	assert.Equal(t, "", formatPorts(nil))
	assert.Equal(t, "DB_PORT=30000,WEB_PORT=30001", formatPorts(map[string]int{
		"WEB_PORT": 30001,
		"DB_PORT":  30000,
	}))
}

// TestValueOrDash verifies empty table cells render as a dash.
func TestValueOrDash(t *testing.T) {
	assert.Equal(t, "-", valueOrDash(""))
	assert.Equal(t, "x", valueOrDash("x"))
}

// TestJoinWorkspaces verifies the three-way join of worktrees, registry
// ports, and liveness into workspace rows.
func TestJoinWorkspaces(t *testing.T) {
	wm := worktree.NewManager()
	projectRoot := t.TempDir()
	livePath := t.TempDir()
	gonePath := filepath.Join(t.TempDir(), "deleted")

	infos := []worktree.Info{
		// Main checkout, must be skipped.
		{Path: projectRoot, Branch: "refs/heads/main"},
		{Path: livePath, Branch: "refs/heads/agentree-test-alpha"},
		{Path: gonePath, Branch: "refs/heads/agentree-test-beta"},
	}
	portsByName := map[string]map[string]int{
		"agentree-test-alpha": {"WEB_PORT": 30000},
		// Ports with no worktree at all: orphan.
		"agentree-test-gamma": {"DB_PORT": 30001},
	}

	workspaces := joinWorkspaces(projectRoot, infos, portsByName, nil, wm)
	require.Len(t, workspaces, 3)

	// Sorted by name.
	assert.Equal(t, "agentree-test-alpha", workspaces[0].Name)
	assert.Equal(t, "agentree-test-beta", workspaces[1].Name)
	assert.Equal(t, "agentree-test-gamma", workspaces[2].Name)

	alpha := workspaces[0]
	assert.Equal(t, "agentree-test-alpha", alpha.Branch)
	assert.Equal(t, livePath, alpha.Path)
	assert.Equal(t, map[string]int{"WEB_PORT": 30000}, alpha.Ports)
	assert.NotEqual(t, model.StatusOrphaned, alpha.Status)

	// Worktree directory gone: orphaned even though git still lists it.
	assert.Equal(t, model.StatusOrphaned, workspaces[1].Status)

	gamma := workspaces[2]
	assert.Equal(t, model.StatusOrphaned, gamma.Status)
	assert.Empty(t, gamma.Path)
	assert.Equal(t, map[string]int{"DB_PORT": 30001}, gamma.Ports)
}

// TestJoinWorkspacesCustomName verifies a workspace created with a
// custom name — ports registered under the name while the branch keeps
// its own — joins into a single row via the <repo>-<name> directory
// convention instead of splitting into a stopped/orphaned pair.
func TestJoinWorkspacesCustomName(t *testing.T) {
	wm := worktree.NewManager()
	projectRoot := filepath.Join(t.TempDir(), "api")
	require.NoError(t, os.MkdirAll(projectRoot, 0o755))
	path := filepath.Join(t.TempDir(), "api-review-17")
	require.NoError(t, os.MkdirAll(path, 0o755))

	infos := []worktree.Info{
		{Path: path, Branch: "refs/heads/pr-17"},
	}
	portsByName := map[string]map[string]int{
		"review-17": {"HTTP_PORT": 30000},
	}

	workspaces := joinWorkspaces(projectRoot, infos, portsByName, nil, wm)
	require.Len(t, workspaces, 1)

	ws := workspaces[0]
	assert.Equal(t, "review-17", ws.Name)
	assert.Equal(t, "pr-17", ws.Branch)
	assert.Equal(t, path, ws.Path)
	assert.Equal(t, map[string]int{"HTTP_PORT": 30000}, ws.Ports)
	assert.NotEqual(t, model.StatusOrphaned, ws.Status)
}

// TestFindWorkspaceWorktree verifies both join keys: the sanitized
// branch name and the <repo>-<name> directory suffix used by custom
// workspace names.
func TestFindWorkspaceWorktree(t *testing.T) {
	projectRoot := "/home/dev/api"
	infos := []worktree.Info{
		{Path: "/home/dev/api", Branch: "refs/heads/main"},
		{Path: "/home/dev/api-feature-auth", Branch: "refs/heads/feature/auth"},
		{Path: "/home/dev/api-review-17", Branch: "refs/heads/pr-17"},
	}

	path, ok := findWorkspaceWorktree(projectRoot, infos, "feature-auth")
	require.True(t, ok)
	assert.Equal(t, "/home/dev/api-feature-auth", path)

	path, ok = findWorkspaceWorktree(projectRoot, infos, "review-17")
	require.True(t, ok)
	assert.Equal(t, "/home/dev/api-review-17", path)

	// The main checkout never matches, even by name.
	_, ok = findWorkspaceWorktree(projectRoot, infos, "main")
	assert.False(t, ok)

	_, ok = findWorkspaceWorktree(projectRoot, infos, "absent")
	assert.False(t, ok)
}

// TestJoinWorkspacesRunning verifies container liveness promotes a
// workspace to running.
func TestJoinWorkspacesRunning(t *testing.T) {
	wm := worktree.NewManager()
	projectRoot := t.TempDir()
	path := t.TempDir()

	infos := []worktree.Info{
		{Path: path, Branch: "refs/heads/agentree-test-run"},
	}
	running := map[string]bool{"agentree-test-run": true}

	workspaces := joinWorkspaces(projectRoot, infos, nil, running, wm)
	require.Len(t, workspaces, 1)
	assert.Equal(t, model.StatusRunning, workspaces[0].Status)
}

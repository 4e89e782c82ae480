package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadProjectDefaults verifies a repository without agentree.jsonc
// gets the documented defaults, with compose integration off when no
// docker-compose.yml exists.
func TestLoadProjectDefaults(t *testing.T) {
	root := t.TempDir()

	p, err := LoadProject(root)
	require.NoError(t, err)

	assert.Equal(t, ".env.template", p.EnvTemplate)
	assert.Empty(t, p.ComposeFile)
	assert.Empty(t, p.Services)
	assert.Empty(t, p.Command)
}

// TestLoadProjectComposeAutodetect verifies the conventional compose
// file turns compose integration on by default.
func TestLoadProjectComposeAutodetect(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "docker-compose.yml"),
		[]byte("services: {}\n"), 0o644))

	p, err := LoadProject(root)
	require.NoError(t, err)
	assert.Equal(t, "docker-compose.yml", p.ComposeFile)
}

// TestLoadProjectJSONC verifies the project file is parsed with comment
// support and overrides the defaults.
func TestLoadProjectJSONC(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFileName), []byte(`{
		// template the scanner reads for *_PORT variables
		"envTemplate": "env/agent.env.tmpl",
		"composeFile": "compose/dev.yml",
		"services": ["app", "db"],
		"command": "claude", // launched inside tmux
	}`), 0o644))

	p, err := LoadProject(root)
	require.NoError(t, err)

	assert.Equal(t, "env/agent.env.tmpl", p.EnvTemplate)
	assert.Equal(t, "compose/dev.yml", p.ComposeFile)
	assert.Equal(t, []string{"app", "db"}, p.Services)
	assert.Equal(t, "claude", p.Command)
}

// TestLoadProjectMalformed verifies broken JSONC is an error — the file
// exists, so it was written on purpose.
func TestLoadProjectMalformed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFileName),
		[]byte(`{"envTemplate": `), 0o644))

	_, err := LoadProject(root)
	assert.Error(t, err)
}

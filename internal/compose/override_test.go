package compose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestGenerateOverride verifies the generated document isolates the
// Compose project under the workspace name and labels every service.
func TestGenerateOverride(t *testing.T) {
	createdAt := time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)
	labels := Labels("feature-auth", "/proj/a", createdAt)

	data, err := GenerateOverride("feature-auth", []string{"db", "app"}, labels)
	require.NoError(t, err)

	var doc struct {
		Name     string `yaml:"name"`
		Services map[string]struct {
			Labels map[string]string `yaml:"labels"`
		} `yaml:"services"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))

	assert.Equal(t, "feature-auth", doc.Name,
		"the project name namespaces containers, networks, and volumes")
	require.Len(t, doc.Services, 2)

	for _, svc := range []string{"app", "db"} {
		got := doc.Services[svc].Labels
		assert.Equal(t, ManagedByValue, got[LabelManagedBy])
		assert.Equal(t, "feature-auth", got[LabelWorkspace])
		assert.Equal(t, "/proj/a", got[LabelProject])
		assert.Equal(t, "2026-02-28T10:00:00Z", got[LabelCreatedAt])
	}
}

// TestGenerateOverrideNoServices verifies a project with no labeled
// services still gets the project-name isolation.
func TestGenerateOverrideNoServices(t *testing.T) {
	data, err := GenerateOverride("ws", nil, Labels("ws", "/p", time.Now()))
	require.NoError(t, err)

	var doc struct {
		Name     string         `yaml:"name"`
		Services map[string]any `yaml:"services"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "ws", doc.Name)
	assert.Empty(t, doc.Services)
}

// TestGenerateOverrideDeterministic verifies regenerating with the same
// inputs produces identical bytes regardless of service order.
func TestGenerateOverrideDeterministic(t *testing.T) {
	labels := Labels("ws", "/p", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	a, err := GenerateOverride("ws", []string{"app", "db", "cache"}, labels)
	require.NoError(t, err)
	b, err := GenerateOverride("ws", []string{"cache", "db", "app"}, labels)
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
}

// TestGenerateOverrideHeader verifies the do-not-edit header survives in
// front of valid YAML.
func TestGenerateOverrideHeader(t *testing.T) {
	data, err := GenerateOverride("ws", nil, Labels("ws", "/p", time.Now()))
	require.NoError(t, err)

	assert.Contains(t, string(data), "# Generated by agentree")
	assert.Contains(t, string(data), "do not edit")
}

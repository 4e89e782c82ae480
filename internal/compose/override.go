// Package compose generates the per-workspace Docker Compose override
// file.
//
// Port numbers never appear in the override: the project's compose file
// publishes ports through ${VAR} references (e.g. "${HTTP_PORT}:3000")
// which Docker Compose resolves from the workspace's rendered .env. The
// override's job is isolation and discovery — a per-workspace Compose
// project name (which namespaces container, network, and volume names)
// and management labels that let `agentree list` find the workspace's
// containers through the Docker API.
//
// Compose merges override files over the base file in order, so the
// override only declares what changes.
package compose

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Label keys applied to every labeled service. The "agentree." prefix
// namespaces them away from labels set by Compose itself or other tools.
const (
	// LabelManagedBy marks containers created through agentree.
	LabelManagedBy = "agentree.managed-by"

	// LabelWorkspace carries the workspace name.
	LabelWorkspace = "agentree.workspace"

	// LabelProject carries the absolute source repository path — the
	// same string the port registry uses as its project namespace.
	LabelProject = "agentree.project"

	// LabelCreatedAt carries the workspace creation time, RFC 3339.
	LabelCreatedAt = "agentree.created-at"
)

// ManagedByValue is the constant value of LabelManagedBy.
const ManagedByValue = "agentree"

// OverrideFileName is the generated file's name inside the worktree.
const OverrideFileName = "docker-compose.agentree.yml"

// override is the YAML document written to the worktree.
type override struct {
	Name     string                     `yaml:"name"`
	Services map[string]serviceOverride `yaml:"services,omitempty"`
}

type serviceOverride struct {
	Labels map[string]string `yaml:"labels"`
}

// Labels builds the management label set for a workspace.
func Labels(workspace, projectRoot string, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelWorkspace: workspace,
		LabelProject:   projectRoot,
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// GenerateOverride produces the override YAML for a workspace. Every
// named service receives the full label set; the top-level name scopes
// the whole Compose project to the workspace. Services are emitted in
// sorted order so regenerated files diff cleanly.
func GenerateOverride(workspace string, services []string, labels map[string]string) ([]byte, error) {
	doc := override{Name: workspace}

	if len(services) > 0 {
		doc.Services = make(map[string]serviceOverride, len(services))
		sorted := make([]string, len(services))
		copy(sorted, services)
		sort.Strings(sorted)

		for _, svc := range sorted {
			svcLabels := make(map[string]string, len(labels))
			for k, v := range labels {
				svcLabels[k] = v
			}
			doc.Services[svc] = serviceOverride{Labels: svcLabels}
		}
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("serialize compose override: %w", err)
	}

	header := fmt.Sprintf("# Generated by agentree for workspace %q.\n# Regenerated on every create; do not edit.\n", workspace)
	return append([]byte(header), data...), nil
}

// WriteOverride writes the override into the worktree.
func WriteOverride(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write compose override %s: %w", path, err)
	}
	return nil
}

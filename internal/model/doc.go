// Package model defines the domain types shared across the agentree CLI:
// the workspace aggregate, its lifecycle status, name sanitation rules,
// and the CLIError type that carries process exit codes.
package model

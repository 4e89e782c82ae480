// Command agentree manages isolated git-worktree workspaces with
// globally unique port assignments for coding-agent sessions.
package main

import (
	"github.com/shinji-kodama/agentree/internal/cli"
)

// Build metadata, injected via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}

// Package cli implements the cobra commands for agentree.
//
// Each subcommand (create, remove, list, ports) lives in its own file.
// This file defines the root command, the global --json/--verbose flags,
// and the error-to-exit-code translation.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/agentree/internal/model"
)

// Global flag variables, bound to persistent flags on the root command
// and therefore inherited by every subcommand.
var (
	// jsonOutput switches stdout to machine-readable JSON.
	jsonOutput bool

	// verbose enables progress logging on stderr.
	verbose bool
)

// Version, Commit, and Date identify the binary. They are injected from
// main, which receives them from the build system via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand builds the root command with all subcommands attached.
// The root itself only carries help text and global flags.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentree",
		Short: "Isolated git-worktree workspaces for coding-agent sessions",
		Long: `agentree creates disposable development workspaces, one git worktree per
coding-agent session, with globally unique port assignments so concurrent
workspaces never fight over the same port.

Ports are drawn from a machine-wide registry: every *_PORT variable in the
project's env template gets the lowest free port in the configured range,
and removing a workspace returns its ports immediately.`,

		// Errors are formatted by Execute (text or JSON), so cobra's
		// own printing is turned off.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewCreateCommand())
	rootCmd.AddCommand(NewRemoveCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewPortsCommand())

	return rootCmd
}

// Execute runs the root command and exits the process with the error's
// exit code: CLIError values carry their own, everything else is 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError writes an error to stderr, honoring --json. Errors go to
// stderr even in JSON mode; stdout is reserved for command output.
func printError(message string, underlying error) {
	if jsonOutput {
		payload := map[string]any{"message": message}
		if underlying != nil {
			payload["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]any{"error": payload}, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// VerboseLog prints progress output to stderr when --verbose is set.
func VerboseLog(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput reports whether --json is set.
func IsJSONOutput() bool {
	return jsonOutput
}

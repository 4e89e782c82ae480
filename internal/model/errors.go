package model

import "fmt"

// ExitCode defines the CLI process exit codes. Scripts and CI systems
// rely on these to distinguish outcomes without parsing error text.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error.
	ExitGeneralError ExitCode = 1

	// ExitGitError indicates a git operation failed.
	ExitGitError ExitCode = 2

	// ExitPortAllocationFailed indicates the port range was exhausted.
	ExitPortAllocationFailed ExitCode = 3

	// ExitRegistryError indicates the port registry file could not be
	// read or written.
	ExitRegistryError ExitCode = 4

	// ExitWorkspaceNotFound indicates the named workspace does not exist.
	ExitWorkspaceNotFound ExitCode = 5

	// ExitDockerNotRunning indicates the Docker daemon is not reachable.
	ExitDockerNotRunning ExitCode = 6

	// ExitConfigError indicates invalid user or project configuration.
	ExitConfigError ExitCode = 7
)

// CLIError is an error that carries a process exit code. The command
// layer returns these; Execute in the cli package translates them into
// os.Exit values.
type CLIError struct {
	Code    ExitCode
	Message string
	Err     error
}

// Error satisfies the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with no underlying cause.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError wrapping an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

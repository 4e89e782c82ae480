package registry

import "fmt"

// ExhaustedRangeError is returned by Allocate when every port in the
// configured range is already held by a live allocation. The failing
// call commits nothing — ports found for earlier variables in the same
// call are discarded rather than leaked.
//
// Remediation is user-facing: widen the configured range or remove
// workspaces that are no longer needed.
type ExhaustedRangeError struct {
	// VarName is the variable that could not be assigned a port.
	VarName string

	// Range is the range that was exhausted.
	Range Range
}

// Error satisfies the error interface.
func (e *ExhaustedRangeError) Error() string {
	return fmt.Sprintf("no free port in range %d-%d for variable %q",
		e.Range.Min, e.Range.Max, e.VarName)
}

// StorageError wraps a failure to read, decode, lock, or write the
// registry file. It is deliberately distinct from an empty registry:
// an existing file that cannot be read must surface as an error, never
// be treated as "no allocations" — doing so would silently destroy the
// real allocations on the next write.
type StorageError struct {
	// Op is the storage operation that failed: "lock", "read",
	// "decode", or "write".
	Op string

	// Path is the registry file path.
	Path string

	// Err is the underlying error.
	Err error
}

// Error satisfies the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("port registry %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *StorageError) Unwrap() error {
	return e.Err
}

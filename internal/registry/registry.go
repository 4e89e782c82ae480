package registry

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

// Range is an inclusive port range from which new allocations are drawn.
type Range struct {
	Min int
	Max int
}

// DefaultRange returns the default allocation range, 30000-39999.
// The range only constrains NEW allocations — entries recorded under an
// older configured range stay valid and are never revalidated.
func DefaultRange() Range {
	return Range{Min: 30000, Max: 39999}
}

// Allocation is one live port binding. A port exists in the registry iff
// some workspace currently holds it; there is no reserved or pending state.
type Allocation struct {
	// Project is the absolute path of the owning project. It acts as a
	// namespace: two projects never share allocations even when their
	// workspace names collide.
	Project string `json:"project"`

	// Environment is the sanitized workspace name holding the port.
	Environment string `json:"environment"`

	// VarName is the environment-variable key the port was allocated
	// for. Unique within one (project, environment) pair.
	VarName string `json:"varName"`

	// AllocatedAt records when the port was handed out. Informational
	// only — it participates in no allocation logic.
	AllocatedAt time.Time `json:"allocatedAt"`
}

// ProjectAllocation is one row of a project-wide allocation listing.
type ProjectAllocation struct {
	Environment string `json:"environment"`
	VarName     string `json:"varName"`
	Port        int    `json:"port"`
}

// Registry provides allocate/release/query operations backed by a single
// JSON file. Each operation loads the full file, works on the in-memory
// value, and (for mutations) writes the full file back in one shot under
// an exclusive advisory lock. Nothing is cached between operations, so a
// Registry value is safe to construct per command invocation.
type Registry struct {
	path string
	lock *flock.Flock
}

// New returns a Registry bound to the given storage path. The file is
// created lazily on the first allocation; queries against a path that has
// never been written behave as an empty registry.
//
// The advisory lock uses a sibling ".lock" file rather than the registry
// file itself, because the persist step replaces the registry file by
// rename and a lock held on the old inode would no longer exclude anyone.
func New(path string) *Registry {
	return &Registry{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the registry file location.
func (r *Registry) Path() string {
	return r.path
}

// ensureDir creates the registry's parent directory. Every operation
// calls this before acquiring the lock: on a first run nothing exists
// yet, and the lock file cannot be created in a missing directory.
func (r *Registry) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return &StorageError{Op: "lock", Path: r.path, Err: err}
	}
	return nil
}

// Allocate hands out one port per entry of varNames, in input order, for
// the given (project, environment) pair, and durably records the result.
//
// Selection is strictly ascending first-fit: the scan starts at rng.Min
// and takes the lowest port not already held by a live allocation,
// including ports handed out earlier within this same call. First-fit is
// a deliberate choice over randomized assignment — an operator can
// reconstruct port numbers by allocation order.
//
// On success the returned map holds exactly one port per requested name.
// Duplicate names in varNames are the caller's error: each duplicate
// still consumes a port and is recorded, but the map keeps only the last.
//
// If any variable cannot be placed, Allocate fails with
// *ExhaustedRangeError and commits nothing — partial allocation would
// leak ports that no workspace could ever release.
func (r *Registry) Allocate(project, environment string, varNames []string, rng Range) (map[string]int, error) {
	if err := r.ensureDir(); err != nil {
		return nil, err
	}
	if err := r.lock.Lock(); err != nil {
		return nil, &StorageError{Op: "lock", Path: r.path, Err: err}
	}
	defer func() { _ = r.lock.Unlock() }()

	allocs, err := loadAllocations(r.path)
	if err != nil {
		return nil, err
	}

	// A zero-variable request allocates nothing and writes nothing, but
	// the load above still runs so corruption surfaces here exactly as
	// it would on any other call.
	ports := make(map[string]int, len(varNames))
	if len(varNames) == 0 {
		return ports, nil
	}

	now := time.Now().UTC()
	for _, name := range varNames {
		port, ok := lowestFree(allocs, rng)
		if !ok {
			return nil, &ExhaustedRangeError{VarName: name, Range: rng}
		}
		allocs[port] = Allocation{
			Project:     project,
			Environment: environment,
			VarName:     name,
			AllocatedAt: now,
		}
		ports[name] = port
	}

	if err := saveAllocations(r.path, allocs); err != nil {
		return nil, err
	}
	return ports, nil
}

// Release removes every allocation held by the (project, environment)
// pair and returns how many were removed. Releasing a pair that holds
// nothing is a valid no-op, not an error — repeated or out-of-order
// removals must be safe. When nothing matches, the file is not rewritten.
//
// Released ports are immediately eligible for reuse by any future
// Allocate call, with no grace period.
func (r *Registry) Release(project, environment string) (int, error) {
	if err := r.ensureDir(); err != nil {
		return 0, err
	}
	if err := r.lock.Lock(); err != nil {
		return 0, &StorageError{Op: "lock", Path: r.path, Err: err}
	}
	defer func() { _ = r.lock.Unlock() }()

	allocs, err := loadAllocations(r.path)
	if err != nil {
		return 0, err
	}

	removed := 0
	for port, a := range allocs {
		if a.Project == project && a.Environment == environment {
			delete(allocs, port)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	if err := saveAllocations(r.path, allocs); err != nil {
		return 0, err
	}
	return removed, nil
}

// PortsForEnvironment returns the live variable→port mapping for exactly
// one (project, environment) pair. An unknown pair yields an empty map.
func (r *Registry) PortsForEnvironment(project, environment string) (map[string]int, error) {
	allocs, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	ports := make(map[string]int)
	for port, a := range allocs {
		if a.Project == project && a.Environment == environment {
			ports[a.VarName] = port
		}
	}
	return ports, nil
}

// AllocationsForProject returns every live allocation belonging to the
// project, across all its workspaces, sorted by port ascending for
// deterministic display. Allocations of other projects are excluded even
// when workspace names match.
func (r *Registry) AllocationsForProject(project string) ([]ProjectAllocation, error) {
	allocs, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	var rows []ProjectAllocation
	for port, a := range allocs {
		if a.Project == project {
			rows = append(rows, ProjectAllocation{
				Environment: a.Environment,
				VarName:     a.VarName,
				Port:        port,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Port < rows[j].Port })
	return rows, nil
}

// snapshot loads the current allocation table under a shared lock.
// Queries never mutate, so concurrent readers may overlap freely; only
// writers need exclusion.
func (r *Registry) snapshot() (map[int]Allocation, error) {
	if err := r.ensureDir(); err != nil {
		return nil, err
	}
	if err := r.lock.RLock(); err != nil {
		return nil, &StorageError{Op: "lock", Path: r.path, Err: err}
	}
	defer func() { _ = r.lock.Unlock() }()

	return loadAllocations(r.path)
}

// lowestFree returns the smallest port in rng not present in allocs.
func lowestFree(allocs map[int]Allocation, rng Range) (int, bool) {
	for port := rng.Min; port <= rng.Max; port++ {
		if _, taken := allocs[port]; !taken {
			return port, true
		}
	}
	return 0, false
}

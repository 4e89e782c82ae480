// Package registry implements the global port allocation registry.
//
// The registry is the single source of truth for which host ports are
// held by which workspace, across every project on the machine. It hands
// out ports with an ascending first-fit scan over a configured range
// (default 30000-39999), guarantees a port is never live in two
// allocations at once, and reclaims ports the moment a workspace is
// removed.
//
// State lives in one JSON file under the user's config directory. Every
// operation is a self-contained load → mutate → persist sequence guarded
// by an advisory file lock; no registry state is cached between calls.
// Mutations are all-or-nothing: either every port requested in a call is
// durably recorded, or the file is left untouched.
package registry

// store.go handles serialization of the registry file.
//
// On-disk shape (schema version 1):
//
//	{
//	  "version": 1,
//	  "allocations": {
//	    "30000": {
//	      "project": "/abs/path/to/project",
//	      "environment": "feature-auth",
//	      "varName": "HTTP_PORT",
//	      "allocatedAt": "2026-02-28T10:00:00Z"
//	    }
//	  }
//	}
//
// Port numbers are the map keys (as strings, since JSON object keys are
// strings), which makes port uniqueness structural rather than something
// the code has to police. The file carries project paths and workspace
// names, so it is written with owner-only permissions.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// schemaVersion is the registry file format version. Readers reject any
// other version rather than guessing at the layout.
const schemaVersion = 1

// registryFile is the JSON document persisted to disk.
type registryFile struct {
	Version     int                   `json:"version"`
	Allocations map[string]Allocation `json:"allocations"`
}

// loadAllocations reads the registry file into a port-keyed map.
//
// A file that does not exist yet is the one case that legitimately
// defaults to an empty registry (first run, nothing allocated). Every
// other failure — unreadable file, malformed JSON, unparseable port key,
// unknown schema version — surfaces as *StorageError.
func loadAllocations(path string) (map[int]Allocation, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[int]Allocation), nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Path: path, Err: err}
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &StorageError{Op: "decode", Path: path, Err: err}
	}
	if file.Version != schemaVersion {
		return nil, &StorageError{
			Op:   "decode",
			Path: path,
			Err:  fmt.Errorf("unsupported registry schema version %d (want %d)", file.Version, schemaVersion),
		}
	}

	allocs := make(map[int]Allocation, len(file.Allocations))
	for key, a := range file.Allocations {
		port, err := strconv.Atoi(key)
		if err != nil {
			return nil, &StorageError{
				Op:   "decode",
				Path: path,
				Err:  fmt.Errorf("invalid port key %q: %w", key, err),
			}
		}
		allocs[port] = a
	}
	return allocs, nil
}

// saveAllocations writes the full allocation table back to disk in a
// single shot. The bytes go to a temporary file in the same directory
// which is then renamed over the registry path, so a concurrently
// starting reader never observes a half-written file.
func saveAllocations(path string, allocs map[int]Allocation) error {
	file := registryFile{
		Version:     schemaVersion,
		Allocations: make(map[string]Allocation, len(allocs)),
	}
	for port, a := range allocs {
		file.Allocations[strconv.Itoa(port)] = a
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	data = append(data, '\n')

	// 0700 on the directory and 0600 on the file: the registry reveals
	// project paths and workspace names, so no group/world access.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &StorageError{Op: "write", Path: path, Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Package envfile scans dotenv templates for port variables and renders
// workspace .env files with allocated port values.
//
// The template (conventionally .env.template, configurable per project)
// declares which variables need ports by naming convention: every key
// ending in _PORT gets one. The scanner reports those keys in file
// order, which fixes the allocation order — with first-fit assignment
// that makes the resulting port numbers predictable from the template
// alone.
//
// Parsing defers to joho/godotenv so quoting, export prefixes, and
// comment handling match what docker compose and shells do with the
// rendered file.
package envfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// portSuffix is the naming convention that marks a variable as needing
// an allocated port.
const portSuffix = "_PORT"

// ScanPortVariables returns the *_PORT variable names declared in the
// template at path, in file order. A template that does not exist yields
// an empty list — a project without port variables is perfectly valid —
// but a template that exists and fails to parse is an error.
func ScanPortVariables(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env template %s: %w", path, err)
	}

	vars, err := godotenv.UnmarshalBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse env template %s: %w", path, err)
	}

	// godotenv returns an unordered map; recover declaration order by
	// walking the raw lines and keeping the keys godotenv accepted.
	var names []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		key := lineKey(line)
		if key == "" || seen[key] {
			continue
		}
		if _, ok := vars[key]; ok && strings.HasSuffix(key, portSuffix) {
			names = append(names, key)
			seen[key] = true
		}
	}
	return names, nil
}

// lineKey extracts the variable name from a dotenv line, or "" when the
// line declares nothing (blank, comment, malformed).
func lineKey(line string) string {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") {
		return ""
	}
	s = strings.TrimPrefix(s, "export ")
	key, _, found := strings.Cut(s, "=")
	if !found {
		return ""
	}
	return strings.TrimSpace(key)
}

// template.go renders a workspace .env from the project's template.
package envfile

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Render substitutes allocated port values into the template text. Lines
// whose key appears in ports are rewritten as KEY=value (preserving an
// `export ` prefix); every other line — comments, blanks, non-port
// variables — passes through verbatim so the rendered .env stays
// recognizably the team's template.
func Render(template []byte, ports map[string]int) []byte {
	lines := strings.Split(string(template), "\n")
	for i, line := range lines {
		key := lineKey(line)
		if key == "" {
			continue
		}
		port, ok := ports[key]
		if !ok {
			continue
		}
		prefix := ""
		if strings.HasPrefix(strings.TrimSpace(line), "export ") {
			prefix = "export "
		}
		lines[i] = fmt.Sprintf("%s%s=%s", prefix, key, strconv.Itoa(port))
	}
	return []byte(strings.Join(lines, "\n"))
}

// WriteWorkspaceEnv renders the template at templatePath and writes the
// result to envPath with owner-only permissions — rendered .env files
// routinely carry credentials copied from the template.
//
// A missing template writes a minimal .env containing only the port
// assignments, so workspaces always have their ports on disk even in
// projects without a template.
func WriteWorkspaceEnv(templatePath, envPath string, ports map[string]int) error {
	template, err := os.ReadFile(templatePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read env template %s: %w", templatePath, err)
		}
		template = portOnlyTemplate(ports)
	}

	if err := os.WriteFile(envPath, Render(template, ports), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", envPath, err)
	}
	return nil
}

// portOnlyTemplate synthesizes a template declaring just the allocated
// port variables, sorted for deterministic output.
func portOnlyTemplate(ports map[string]int) []byte {
	names := make([]string, 0, len(ports))
	for name := range ports {
		names = append(names, name)
	}
	// Stable order so repeated renders produce identical files.
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=\n", name)
	}
	return []byte(b.String())
}

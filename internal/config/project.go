// project.go loads the optional per-repository agentree.jsonc file.
//
// The file is JSONC (JSON with comments), parsed with the same
// tidwall/jsonc strip-then-unmarshal approach used for devcontainer.json
// style configs, so teams can annotate their settings in place.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/agentree/internal/model"
)

// ProjectFileName is the per-repository configuration file, looked up at
// the repository root.
const ProjectFileName = "agentree.jsonc"

// Project holds per-repository settings.
type Project struct {
	// EnvTemplate is the dotenv template scanned for *_PORT variables
	// and rendered into each workspace's .env. Relative to the repo
	// root. Default ".env.template".
	EnvTemplate string `json:"envTemplate"`

	// ComposeFile is the repository's Docker Compose file, used to
	// generate the per-workspace override. Empty disables compose
	// integration. Default "docker-compose.yml" when the file exists.
	ComposeFile string `json:"composeFile"`

	// Services lists the compose services that should carry workspace
	// labels. Empty means "label none" (the override still isolates the
	// project name).
	Services []string `json:"services"`

	// Command is the agent command launched in the workspace's tmux
	// session. Empty means an interactive shell.
	Command string `json:"command"`
}

// LoadProject reads agentree.jsonc from the repository root. A missing
// file yields defaults; an unreadable or malformed file is an error —
// the user wrote it on purpose.
func LoadProject(repoRoot string) (*Project, error) {
	p := &Project{
		EnvTemplate: ".env.template",
	}
	// Compose integration defaults on only when the conventional file
	// is actually present.
	if _, err := os.Stat(filepath.Join(repoRoot, "docker-compose.yml")); err == nil {
		p.ComposeFile = "docker-compose.yml"
	}

	data, err := os.ReadFile(filepath.Join(repoRoot, ProjectFileName))
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "cannot read "+ProjectFileName, err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), p); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "cannot parse "+ProjectFileName, err)
	}
	return p, nil
}

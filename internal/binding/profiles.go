package binding

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile overrides how one agent kind is built
type Profile struct {
	Model            string `yaml:"model"`
	MaxTurns         uint64 `yaml:"max_turns"`
	SystemPromptPath string `yaml:"system_prompt_path"`
	MaxResults       int    `yaml:"max_results"`
}

// Profiles maps agent kinds to their overrides
type Profiles map[Kind]Profile

// profileFile represents the structure of the agent profile file
type profileFile struct {
	Agents map[string]Profile `yaml:"agents"`
}

// LoadProfiles reads the agent profile file at path
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	return ParseProfiles(data)
}

// ParseProfiles decodes agent profiles. Only the data and search kinds are
// accepted
func ParseProfiles(data []byte) (Profiles, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}

	profiles := make(Profiles, len(file.Agents))
	for name, profile := range file.Agents {
		kind := Kind(name)
		if kind != KindData && kind != KindSearch {
			return nil, fmt.Errorf("unknown agent kind %q in profiles", name)
		}
		profiles[kind] = profile
	}

	return profiles, nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bretkramer/ethos-content-creator/internal/simulate"
)

// defaultProfiles covers the usual cohorts when no profiles file is given.
var defaultProfiles = map[string]simulate.Profile{
	"diligent": {CompletionRate: 0.95, ScoreMean: 85, ScoreStddev: 10},
	"average":  {CompletionRate: 0.7, ScoreMean: 65, ScoreStddev: 15},
	"sparse":   {CompletionRate: 0.3, ScoreMean: 50, ScoreStddev: 20},
}

// LoadProfiles reads the publish profiles file (YAML map of name ->
// profile) or returns the built-in set when path is empty.
func LoadProfiles(path string) (map[string]simulate.Profile, error) {
	if path == "" {
		return defaultProfiles, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var out map[string]simulate.Profile
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("profiles file %s is empty", path)
	}
	return out, nil
}

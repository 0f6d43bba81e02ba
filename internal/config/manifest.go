package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PluginManifest describes a resolver plugin's dispatch metadata — the
// weight/preference/target-time/scope tuple ResolverPipeline needs to build
// a PluginAdaptor, kept in a YAML sidecar file next to the plugin binary or
// shared library.
type PluginManifest struct {
	Name       string `yaml:"name"`
	Classname  string `yaml:"classname"`
	Weight     int    `yaml:"weight"`
	Preference int    `yaml:"preference"`
	TargetTime int    `yaml:"target_time_ms"`
	Scope      string `yaml:"scope"` // "local" or "any"
}

// LoadManifest parses a single plugin manifest file.
func LoadManifest(path string) (*PluginManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m PluginManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Scope == "" {
		m.Scope = "any"
	}
	return &m, nil
}

// LoadManifests parses every manifest file in a directory.
func LoadManifests(dir string) ([]*PluginManifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read manifest dir %s: %w", dir, err)
	}
	var manifests []*PluginManifest
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m, err := LoadManifest(dir + "/" + e.Name())
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

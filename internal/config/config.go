// Package config loads the daemon's JSON configuration document and the
// per-plugin YAML dispatch manifests described in spec §6. It produces
// typed values for the core to consume; it does not implement the plugin
// loader itself (an out-of-scope external collaborator).
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Daemon is the top-level JSON configuration document.
type Daemon struct {
	Name        string                     `json:"name"`
	HTTPBase    string                     `json:"httpbase"`
	DB          string                     `json:"db"`
	WWWRoot     string                     `json:"www_root"`
	DisableAuth bool                       `json:"disableauth"`
	AuthDB      string                     `json:"authdb"`
	Plugins     map[string]json.RawMessage `json:"plugins"`
}

// Load reads and parses the JSON configuration file at path.
func Load(path string) (*Daemon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var d Daemon
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &d, nil
}

// Default returns a minimal configuration suitable for running without a
// config file on disk (used by tests and `playdard -default`).
func Default() *Daemon {
	return &Daemon{
		Name:     "playdard",
		HTTPBase: "http://localhost:60210/",
		WWWRoot:  "./www",
		Plugins:  map[string]json.RawMessage{},
	}
}

// PluginConfig unmarshals the plugin-specific subtree for name, if present.
func (d *Daemon) PluginConfig(name string, out interface{}) (bool, error) {
	raw, ok := d.Plugins[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("parse plugins.%s: %w", name, err)
	}
	return true, nil
}

// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/geodeza/mapmeasure/internal/geo"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30m" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Config represents the root configuration file structure.
type Config struct {
	Attribution string   `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Maps        []Map    `yaml:"maps" json:"maps"`
	ZoomLimit   int      `yaml:"zoom,omitempty"`
	SessionTTL  Duration `yaml:"session_ttl,omitempty"`
}

// Map represents a single viewer map configuration.
type Map struct {
	Index *int `yaml:"index,omitempty" json:"index,omitempty"`

	// defining locations directly in config.yaml
	LocationsInline []geo.Location `yaml:"locations_inline,omitempty" json:"-"`

	Name         string   `yaml:"name" json:"name"`
	Street       string   `yaml:"street" json:"-"`
	Satellite    string   `yaml:"satellite" json:"-"`
	LocationsURL string   `yaml:"locations,omitempty" json:"-"`
	Attribution  string   `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Aliases      []string `yaml:"aliases,omitempty" json:"-"`
	ZoomLimit    int      `yaml:"zoom,omitempty" json:"zoom"`
	TileSize     int      `yaml:"tile_size,omitempty" json:"-"` // only when processing single image
	NoStreet     bool     `yaml:"-" json:"no_street,omitempty"`
	NoSatellite  bool     `yaml:"-" json:"no_satellite,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

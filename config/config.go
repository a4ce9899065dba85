package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/hjson/hjson-go/v4"

	"github.com/gorustyt/tilemesh/common/logger"
	"github.com/gorustyt/tilemesh/tilemesh"
)

// Config is the settings file of the tilemesh command.
type Config struct {
	Log      logger.Options    `json:"log"`
	Build    tilemesh.Settings `json:"build"`
	Keep     bool              `json:"keepIntermediates"`
	Geometry string            `json:"geometry"`
	Output   string            `json:"output"`
	Image    string            `json:"image"`
	Archive  string            `json:"archive"`
	Events   string            `json:"events"`
}

func Default() *Config {
	return &Config{
		Log:    logger.DefaultOptions(),
		Build:  tilemesh.DefaultSettings(),
		Output: "all_tiles_navmesh.bin",
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse overlays hjson data on the defaults.
func Parse(data []byte) (*Config, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	c := Default()
	if err := hjson.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, c.validate()
}

// Load reads the file at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) BuildMode() tilemesh.BuildMode {
	if c.Keep {
		return tilemesh.KeepIntermediates
	}
	return tilemesh.ReleaseIntermediates
}

func (c *Config) validate() error {
	b := c.Build
	switch {
	case b.CellSize <= 0 || b.CellHeight <= 0:
		return fmt.Errorf("config: cell size and height must be positive")
	case b.TileSize <= 0:
		return fmt.Errorf("config: tile size must be positive")
	case b.VertsPerPoly < 3:
		return fmt.Errorf("config: vertsPerPoly must be at least 3")
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/tilemesh/tilemesh"
)

const sample = `
# agent for the dungeon set
{
  geometry: dungeon.obj
  output: dungeon.bin
  events: dungeon.events
  keepIntermediates: true
  build: {
    cellSize: 0.25
    agentRadius: 0.5
    monotone: true
    tileSize: 64
  }
  log: {
    level: debug
    console: false
  }
}
`

func TestParse(t *testing.T) {
	c, err := Parse(append([]byte{0xEF, 0xBB, 0xBF}, sample...))
	require.NoError(t, err)

	assert.Equal(t, "dungeon.obj", c.Geometry)
	assert.Equal(t, "dungeon.bin", c.Output)
	assert.Equal(t, "dungeon.events", c.Events)
	assert.Equal(t, tilemesh.KeepIntermediates, c.BuildMode())
	assert.Equal(t, float32(0.25), c.Build.CellSize)
	assert.Equal(t, float32(0.5), c.Build.AgentRadius)
	assert.True(t, c.Build.Monotone)
	assert.Equal(t, 64, c.Build.TileSize)
	assert.Equal(t, tilemesh.DefaultSettings().AgentHeight, c.Build.AgentHeight)
	assert.Equal(t, "debug", c.Log.Level)
	assert.False(t, c.Log.Console)
	assert.Equal(t, 64, c.Log.MaxSizeMB)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "{ build: { cellSize: [ } }"},
		{"cell size", "{ build: { cellSize: 0 } }"},
		{"tile size", "{ build: { tileSize: -1 } }"},
		{"verts per poly", "{ build: { vertsPerPoly: 2 } }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	path := filepath.Join(t.TempDir(), "tilemesh.hjson")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dungeon.obj", c.Geometry)

	_, err = Load(filepath.Join(t.TempDir(), "missing.hjson"))
	assert.Error(t, err)
}

package testcase

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/tilemesh"
)

const sample = `s Tile Mesh
f flat.obj

pf 2 0 2 34 0 34 0xffff 0x0000
pf 2 0 2 34 0 34 ffff 0001
pf 2 0 2 80 0 80 ffff 0
rc 2 0 2 34 0 34 ffff 0
x ignored row
`

func builtQuery(t *testing.T) *tilemesh.Manager {
	t.Helper()
	s := tilemesh.DefaultSettings()
	s.TileSize = 32
	m := tilemesh.NewManager(tilemesh.WithSettings(s))
	m.SetGeom(geom.FlatSquare(36, 0, 4))
	require.True(t, m.Build(true))
	return m
}

func TestParse(t *testing.T) {
	tc, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, "Tile Mesh", tc.SampleName)
	assert.Equal(t, "flat.obj", tc.GeomFileName)
	require.Len(t, tc.Tests, 4)

	first := tc.Tests[0]
	assert.Equal(t, TestPathfind, first.Type)
	assert.Equal(t, [3]float32{2, 0, 2}, first.Start)
	assert.Equal(t, [3]float32{34, 0, 34}, first.End)
	assert.Equal(t, uint16(0xffff), first.IncludeFlags)
	assert.Equal(t, uint16(0), first.ExcludeFlags)
	assert.Equal(t, uint16(1), tc.Tests[1].ExcludeFlags)
	assert.Equal(t, TestRaycast, tc.Tests[3].Type)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"too few values", "pf 1 2 3\n"},
		{"bad float", "pf 1 2 x 4 5 6 ffff 0\n"},
		{"bad flags", "pf 1 2 3 4 5 6 zz 0\n"},
		{"flags overflow", "pf 1 2 3 4 5 6 fffff 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader("s x\n" + tt.data))
			assert.ErrorIs(t, err, ErrSyntax)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestRun(t *testing.T) {
	m := builtQuery(t)
	tc, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	failed := tc.Run(m.Query())
	assert.Equal(t, 3, failed)

	ok := tc.Tests[0]
	require.NoError(t, ok.Err)
	assert.NotZero(t, ok.StartRef)
	assert.NotZero(t, ok.EndRef)
	assert.Equal(t, ok.StartRef, ok.Polys[0])
	assert.Equal(t, ok.EndRef, ok.Polys[len(ok.Polys)-1])
	assert.False(t, ok.Partial)

	// every polygon carries the walk flag
	assert.ErrorIs(t, tc.Tests[1].Err, ErrNoPoly)
	assert.ErrorIs(t, tc.Tests[2].Err, ErrNoPoly)
	assert.ErrorIs(t, tc.Tests[3].Err, ErrUnsupported)

	var buf bytes.Buffer
	require.NoError(t, tc.Report(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], "ok")
	assert.Contains(t, lines[4], "not supported")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	tc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, tc.Tests, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

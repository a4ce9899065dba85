package geom

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/tilemesh/common"
)

const quadObj = `# unit quad
v 0 0 0
v 0 0 1
v 1 0 1
v 1 0 0
vn 0 1 0
f 1//1 2//1 3//1 4//1
`

func TestParseObj(t *testing.T) {
	m, err := ParseObj(strings.NewReader(quadObj), 2)
	require.NoError(t, err)
	assert.Equal(t, 4, m.VertCount())
	assert.Equal(t, 2, m.TriCount())
	assert.Equal(t, []int32{0, 1, 2, 0, 2, 3}, m.Tris)
	assert.Equal(t, float32(2), m.Verts[5])
	assert.InDelta(t, 1, m.Normals[1], 1e-6)
	assert.InDelta(t, 1, m.Normals[4], 1e-6)
}

func TestParseObjNegativeIndicesAndErrors(t *testing.T) {
	m, err := ParseObj(strings.NewReader("v 0 0 0\nv 0 0 1\nv 1 0 1\nf -3 -2 -1\n"), 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2}, m.Tris)

	_, err = ParseObj(strings.NewReader("v 0 0\n"), 1)
	assert.ErrorContains(t, err, "line 1")
	_, err = ParseObj(strings.NewReader("v 0 0 0\nf a b c\n"), 1)
	assert.Error(t, err)

	// out of range faces are dropped
	m, err = ParseObj(strings.NewReader("v 0 0 0\nf 1 2 3\n"), 1)
	require.NoError(t, err)
	assert.Zero(t, m.TriCount())
}

func TestChunkyTriMesh(t *testing.T) {
	g := FlatSquare(100, 0, 40)
	cm := NewChunkyTriMesh(g.Mesh.Verts, g.Mesh.Tris, 64)
	require.NotEmpty(t, cm.Nodes)
	assert.LessOrEqual(t, cm.MaxTrisPerChunk, 64)
	assert.Len(t, cm.Tris, len(g.Mesh.Tris))

	all := cm.ChunksOverlappingRect([2]float32{-1, -1}, [2]float32{101, 101})
	total := 0
	for _, id := range all {
		total += len(cm.NodeTris(id)) / 3
	}
	assert.Equal(t, g.Mesh.TriCount(), total)

	some := cm.ChunksOverlappingRect([2]float32{0, 0}, [2]float32{10, 10})
	assert.NotEmpty(t, some)
	assert.Less(t, len(some), len(all))
	for _, id := range some {
		n := cm.Nodes[id]
		assert.True(t, checkOverlapRect([2]float32{0, 0}, [2]float32{10, 10}, n.Bmin, n.Bmax))
	}

	assert.Empty(t, cm.ChunksOverlappingRect([2]float32{200, 200}, [2]float32{300, 300}))
	assert.NotEmpty(t, cm.ChunksOverlappingSegment([2]float32{-5, 50}, [2]float32{105, 50}))
	assert.Empty(t, cm.ChunksOverlappingSegment([2]float32{-5, 150}, [2]float32{105, 150}))
}

func TestFlatSquare(t *testing.T) {
	g := FlatSquare(256, 1, 4)
	assert.Equal(t, common.Vec3{0, 1, 0}, g.MeshBMin)
	assert.Equal(t, common.Vec3{256, 1, 256}, g.MeshBMax)
	assert.Equal(t, 32, g.Mesh.TriCount())
	for i := 0; i < len(g.Mesh.Normals); i += 3 {
		assert.InDelta(t, 1, g.Mesh.Normals[i+1], 1e-6)
	}
}

func TestGeomSetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.obj"), []byte(quadObj), 0o644))

	g, err := LoadMesh(filepath.Join(dir, "quad.obj"))
	require.NoError(t, err)
	require.NoError(t, g.AddOffMeshConnection(common.Vec3{0.1, 0, 0.1}, common.Vec3{0.9, 0, 0.9}, 0.5, true, 5, 8))
	require.NoError(t, g.AddConvexVolume([]float32{0, 0, 0, 0, 0, 0.5, 0.5, 0, 0.5}, -1, 1, 1))
	g.BuildSettings = &BuildSettings{CellSize: 0.3, CellHeight: 0.2, TileSize: 32, NavMeshBMax: common.Vec3{1, 0, 1}}

	var buf bytes.Buffer
	require.NoError(t, g.WriteGeomSet(&buf, "quad.obj"))
	path := filepath.Join(dir, "quad.gset")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "quad.obj", loaded.Mesh.Name)
	require.Len(t, loaded.OffMeshCons, 1)
	assert.Equal(t, g.OffMeshCons[0], loaded.OffMeshCons[0])
	require.Len(t, loaded.Volumes, 1)
	assert.Equal(t, g.Volumes[0], loaded.Volumes[0])
	require.NotNil(t, loaded.BuildSettings)
	assert.Equal(t, common.Vec3{1, 0, 1}, loaded.NavMeshBoundsMax())
	assert.InDelta(t, 0.3, loaded.BuildSettings.CellSize, 1e-6)

	_, err = ParseGeomSet(strings.NewReader("s 1 2 3\n"), dir)
	assert.Error(t, err)
	_, err = ParseGeomSet(strings.NewReader("c 0 0 0 1 1 1 1 0 0 0\n"), dir)
	assert.ErrorIs(t, err, ErrNoMesh)
}

func TestVolumeAndConnectionLimits(t *testing.T) {
	g := FlatSquare(10, 0, 1)
	assert.ErrorIs(t, g.AddConvexVolume(make([]float32, 3*(MaxConvexVolPts+1)), 0, 1, 1), ErrTooManyItems)
	for i := 0; i < MaxOffMeshConnections; i++ {
		require.NoError(t, g.AddOffMeshConnection(common.Vec3{}, common.Vec3{1, 0, 1}, 1, false, 0, 1))
	}
	assert.ErrorIs(t, g.AddOffMeshConnection(common.Vec3{}, common.Vec3{}, 1, false, 0, 1), ErrTooManyItems)
	assert.Equal(t, uint32(1000), g.OffMeshCons[0].UserID)
	g.DeleteOffMeshConnection(0)
	assert.Len(t, g.OffMeshCons, MaxOffMeshConnections-1)
}

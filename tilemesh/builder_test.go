package tilemesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/recast"
)

func TestContourVertCount(t *testing.T) {
	cset := &recast.RcContourSet{Conts: []recast.RcContour{{Nverts: 4}, {Nverts: 2}, {Nverts: 0}, {Nverts: 7}}}
	assert.Equal(t, 11, contourVertCount(cset))
	assert.Zero(t, contourVertCount(&recast.RcContourSet{}))
}

// islandGeom returns a flat floor cut by null area strips into n*n small
// islands. Every island becomes its own region with a four vertex contour.
func islandGeom(t *testing.T, s Settings, n int) *geom.InputGeom {
	t.Helper()
	const pitch = 4
	cs := s.CellSize
	size := float32(pitch*n+1) * cs
	g := geom.FlatSquare(size, 0, 8)
	for k := 1; k < n; k++ {
		c0 := (float32(k*pitch) + 0.25) * cs
		c1 := (float32(k*pitch) + 0.75) * cs
		require.NoError(t, g.AddConvexVolume([]float32{c0, 0, 0, c1, 0, 0, c1, 0, size, c0, 0, size}, -1, 2, recast.RC_NULL_AREA))
		require.NoError(t, g.AddConvexVolume([]float32{0, 0, c0, 0, 0, c1, size, 0, c1, size, 0, c0}, -1, 2, recast.RC_NULL_AREA))
	}
	return g
}

func islandJob(t *testing.T, n int) tileJob {
	t.Helper()
	s := DefaultSettings()
	s.CellSize = 0.5
	s.AgentRadius = 0
	s.RegionMinSize = 0
	s.RegionMergeSize = 0
	s.TileSize = 4*n + 8
	g := islandGeom(t, s, n)
	tbmin, tbmax := tileBounds(s, g.NavMeshBoundsMin(), g.NavMeshBoundsMax(), 0, 0)
	return tileJob{cfg: s.tileConfig(tbmin, tbmax), set: s, geom: g}
}

func TestBuildTileMeshIslands(t *testing.T) {
	res, err := buildTileMesh(recast.NewRcContext(nil), islandJob(t, 6))
	require.NoError(t, err)
	assert.NotEmpty(t, res.data)
	assert.GreaterOrEqual(t, res.polys, 6*6)
}

func TestBuildTileMeshVertexCeiling(t *testing.T) {
	if testing.Short() {
		t.Skip("dense tile")
	}
	// 129*129 islands need more than 0xfffe contour vertices in one tile.
	res, err := buildTileMesh(recast.NewRcContext(nil), islandJob(t, 129))
	assert.ErrorIs(t, err, ErrTooManyVerts)
	assert.Nil(t, res.data)
}

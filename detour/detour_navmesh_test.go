package detour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quadTile builds a single 10x10 quad tile at grid cell (tx, 0). portalDirs
// maps an edge index to its portal direction (0 is x-, 2 is x+). All other
// edges are borders.
func quadTile(t *testing.T, tx int, portalDirs map[int]int) []byte {
	t.Helper()
	const nvp = 6
	polys := make([]int, nvp*2)
	for i := range polys {
		polys[i] = MESH_NULL_IDX
	}
	copy(polys, []int{0, 1, 2, 3})
	for j := 0; j < 4; j++ {
		if dir, ok := portalDirs[j]; ok {
			polys[nvp+j] = 0x8000 | dir
		}
	}
	x0 := float32(tx * 10)
	params := &DtNavMeshCreateParams{
		Verts:          []int{0, 0, 0, 0, 0, 10, 10, 0, 10, 10, 0, 0},
		VertCount:      4,
		Polys:          polys,
		PolyFlags:      []uint16{1},
		PolyAreas:      []uint8{0},
		PolyCount:      1,
		Nvp:            nvp,
		TileX:          tx,
		Bmin:           [3]float32{x0, 0, 0},
		Bmax:           [3]float32{x0 + 10, 1, 10},
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.9,
		Cs:             1,
		Ch:             1,
		BuildBvTree:    true,
	}
	data, ok := DtCreateNavMeshData(params)
	require.True(t, ok)
	return data
}

func newTestMesh(t *testing.T) *NavMesh {
	t.Helper()
	nav := &NavMesh{}
	status := nav.Init(&NavMeshParams{TileWidth: 10, TileHeight: 10, MaxTiles: 4, MaxPolys: 4})
	require.True(t, status.Succeed())
	return nav
}

func countLinks(tile *DtMeshTile, poly *DtPoly) (internal, external int) {
	for i := poly.FirstLink; i != DT_NULL_LINK; i = tile.Links[i].Next {
		if tile.Links[i].Side == 0xff {
			internal++
		} else {
			external++
		}
	}
	return internal, external
}

func TestNavMeshDataRoundTrip(t *testing.T) {
	data := quadTile(t, 0, nil)
	var decoded NavMeshData
	require.NoError(t, decoded.FromBin(data))
	assert.Equal(t, int32(DT_NAVMESH_MAGIC), decoded.Header.Magic)
	assert.Equal(t, int32(1), decoded.Header.PolyCount)
	assert.Equal(t, data, decoded.ToBin())
	require.Error(t, (&NavMeshData{}).FromBin(data[:len(data)-1]))
}

func TestNavMeshInitRejectsBadParams(t *testing.T) {
	nav := &NavMesh{}
	assert.True(t, nav.Init(&NavMeshParams{TileWidth: 1, TileHeight: 1}).Failed())
	// 22 tile bits and 10 poly bits leave no room for the salt.
	assert.True(t, nav.Init(&NavMeshParams{TileWidth: 1, TileHeight: 1, MaxTiles: 1 << 22, MaxPolys: 1 << 10}).Failed())
	// 31 tile bits are refused before any tile storage exists.
	assert.True(t, nav.Init(&NavMeshParams{TileWidth: 1, TileHeight: 1, MaxTiles: 0x7fffffff, MaxPolys: 1}).Failed())
	assert.Zero(t, nav.MaxTiles())
}

func TestNavMeshAddTileConnectsNeighbours(t *testing.T) {
	nav := newTestMesh(t)
	left := quadTile(t, 0, map[int]int{2: 2})
	right := quadTile(t, 1, map[int]int{0: 0})

	leftRef, status := nav.AddTile(left, DT_TILE_FREE_DATA, 0)
	require.True(t, status.Succeed())
	rightRef, status := nav.AddTile(right, DT_TILE_FREE_DATA, 0)
	require.True(t, status.Succeed())
	assert.Equal(t, 2, nav.TileCount())
	assert.Equal(t, leftRef, nav.TileRefAt(0, 0, 0))
	assert.Equal(t, rightRef, nav.TileRefAt(1, 0, 0))

	tx, ty := nav.CalcTileLoc([]float32{15, 0, 5})
	assert.Equal(t, []int{1, 0}, []int{tx, ty})

	leftTile := nav.TileByRef(leftRef)
	require.NotNil(t, leftTile)
	_, ext := countLinks(leftTile, &leftTile.Polys[0])
	assert.Equal(t, 1, ext)
	rightTile := nav.TileByRef(rightRef)
	link := rightTile.Links[rightTile.Polys[0].FirstLink]
	assert.Equal(t, nav.PolyRefBase(leftTile), link.Ref)
	assert.Equal(t, uint8(4), link.Side)

	// the blob handed to the mesh stays untouched
	assert.Equal(t, quadTile(t, 0, map[int]int{2: 2}), leftTile.Data)
}

func TestNavMeshAddTileRejects(t *testing.T) {
	nav := newTestMesh(t)
	data := quadTile(t, 0, nil)
	_, status := nav.AddTile(data, 0, 0)
	require.True(t, status.Succeed())

	_, status = nav.AddTile(quadTile(t, 0, nil), 0, 0)
	assert.True(t, status.Detail(DT_ALREADY_OCCUPIED))

	bad := quadTile(t, 1, nil)
	bad[0] ^= 0xff
	_, status = nav.AddTile(bad, 0, 0)
	assert.True(t, status.Detail(DT_WRONG_MAGIC))

	old := quadTile(t, 1, nil)
	old[4] = 1
	_, status = nav.AddTile(old, 0, 0)
	assert.True(t, status.Detail(DT_WRONG_VERSION))
	assert.Equal(t, 1, nav.TileCount())
}

func TestNavMeshRemoveTile(t *testing.T) {
	nav := newTestMesh(t)
	left := quadTile(t, 0, map[int]int{2: 2})
	right := quadTile(t, 1, map[int]int{0: 0})
	leftRef, _ := nav.AddTile(left, 0, 0)
	rightRef, _ := nav.AddTile(right, 0, 0)
	polyRef := nav.PolyRefBase(nav.TileByRef(rightRef))

	data, status := nav.RemoveTile(rightRef)
	require.True(t, status.Succeed())
	assert.Equal(t, right, data)
	assert.Nil(t, nav.TileByRef(rightRef))
	assert.False(t, nav.IsValidPolyRef(polyRef))
	assert.Equal(t, 1, nav.TileCount())

	leftTile := nav.TileByRef(leftRef)
	_, ext := countLinks(leftTile, &leftTile.Polys[0])
	assert.Zero(t, ext)

	_, status = nav.RemoveTile(rightRef)
	assert.True(t, status.Failed())

	// restoring under the old reference keeps polygon refs stable
	restored, status := nav.AddTile(data, 0, rightRef)
	require.True(t, status.Succeed())
	assert.Equal(t, rightRef, restored)
	assert.True(t, nav.IsValidPolyRef(polyRef))
}

func TestNavMeshSaltSkipsZero(t *testing.T) {
	nav := newTestMesh(t)
	data := quadTile(t, 0, nil)
	seen := map[DtTileRef]bool{}
	for i := 0; i < 8; i++ {
		ref, status := nav.AddTile(data, 0, 0)
		require.True(t, status.Succeed())
		assert.NotZero(t, nav.TileByRef(ref).Salt())
		seen[ref] = true
		data, status = nav.RemoveTile(ref)
		require.True(t, status.Succeed())
	}
	assert.Greater(t, len(seen), 1)
}

package tilemesh

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/tilemesh/common"
	"github.com/gorustyt/tilemesh/detour"
	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/message"
)

// smallSettings give a 4x4 grid over a 36 unit square.
func smallSettings() Settings {
	s := DefaultSettings()
	s.TileSize = 32
	return s
}

func newFlatManager(t *testing.T, size float32, s Settings, opts ...Option) *Manager {
	t.Helper()
	m := NewManager(append([]Option{WithSettings(s)}, opts...)...)
	m.SetGeom(geom.FlatSquare(size, 0, 4))
	return m
}

func tileData(m *Manager, tx, ty int) []byte {
	tile := m.NavMesh().TileAt(tx, ty, 0)
	if tile == nil {
		return nil
	}
	return bytes.Clone(tile.Data)
}

func TestBuildRequiresGeometry(t *testing.T) {
	m := NewManager()
	assert.False(t, m.Build(true))
	assert.Nil(t, m.NavMesh())

	g := geom.FlatSquare(10, 0, 1)
	g.Chunky = nil
	m.SetGeom(g)
	assert.False(t, m.Build(true))
	assert.ErrorIs(t, m.BuildTileAt(0, 0), ErrNotBuilt)
}

func TestBuildFlatSquare(t *testing.T) {
	var msgs []string
	m := newFlatManager(t, 256, DefaultSettings(), WithProgress(func(s string) { msgs = append(msgs, s) }))
	require.True(t, m.Build(true))

	tw, th := m.GridSize()
	assert.Equal(t, 7, tw)
	assert.Equal(t, 7, th)
	maxTiles, maxPolys := m.Limits()
	assert.Equal(t, 64, maxTiles)
	assert.Equal(t, 1<<16, maxPolys)
	require.NotNil(t, m.Query())

	nav := m.NavMesh()
	assert.Equal(t, tw*th, nav.TileCount())
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			tile := nav.TileAt(x, y, 0)
			require.NotNil(t, tile, "tile (%d,%d)", x, y)
			assert.NotEmpty(t, tile.Data)
			require.GreaterOrEqual(t, tile.Header.PolyCount, int32(1))
			for i := range tile.Polys {
				assert.Equal(t, uint16(FlagWalk), tile.Polys[i].Flags)
				assert.Equal(t, uint8(AreaGround), tile.Polys[i].GetArea())
			}
		}
	}
	assert.Equal(t, tw*th, m.Stats().TilesBuilt)
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "100%")

	m.RemoveAllTiles()
	assert.Zero(t, nav.TileCount())
}

func TestBuildFlatSquareMonotone(t *testing.T) {
	s := smallSettings()
	s.Monotone = true
	m := newFlatManager(t, 36, s)
	require.True(t, m.Build(true))

	tw, th := m.GridSize()
	require.Equal(t, []int{4, 4}, []int{tw, th})
	nav := m.NavMesh()
	assert.Equal(t, tw*th, nav.TileCount())
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			tile := nav.TileAt(x, y, 0)
			require.NotNil(t, tile, "tile (%d,%d)", x, y)
			assert.GreaterOrEqual(t, tile.Header.PolyCount, int32(1), "tile (%d,%d)", x, y)
		}
	}
	assert.Equal(t, tw*th, m.Stats().TilesBuilt)
}

func TestRebuildTileIsIdempotent(t *testing.T) {
	m := newFlatManager(t, 36, smallSettings())
	require.True(t, m.Build(true))
	before := m.NavMesh().TileCount()
	first := tileData(m, 1, 1)
	require.NotNil(t, first)

	for i := 0; i < 2; i++ {
		require.NoError(t, m.BuildTileAt(1, 1))
		assert.Equal(t, first, tileData(m, 1, 1))
		assert.Len(t, m.NavMesh().TilesAt(1, 1), 1)
		assert.Equal(t, before, m.NavMesh().TileCount())
	}

	m.BuildAllTiles()
	assert.Equal(t, first, tileData(m, 1, 1))
	assert.Equal(t, before, m.NavMesh().TileCount())
}

func TestWholeAndSingleTileBuildsMatch(t *testing.T) {
	whole := newFlatManager(t, 36, smallSettings())
	require.True(t, whole.Build(true))

	single := newFlatManager(t, 36, smallSettings())
	require.True(t, single.Build(false))
	assert.Zero(t, single.NavMesh().TileCount())

	ts := smallSettings().TileWorldSize()
	tw, th := whole.GridSize()
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			pos := []float32{(float32(x) + 0.5) * ts, 0, (float32(y) + 0.5) * ts}
			gx, gy := single.GetTilePos(pos)
			require.Equal(t, []int{x, y}, []int{gx, gy})
			require.NoError(t, single.BuildTile(pos))
			assert.Equal(t, tileData(whole, x, y), tileData(single, x, y), "tile (%d,%d)", x, y)
		}
	}
	assert.Equal(t, whole.NavMesh().TileCount(), single.NavMesh().TileCount())
}

func TestGetTilePos(t *testing.T) {
	m := newFlatManager(t, 36, smallSettings())
	tests := []struct {
		pos    []float32
		tx, ty int
	}{
		{[]float32{0, 0, 0}, 0, 0},
		{[]float32{9.5, 0, 0.1}, 0, 0},
		{[]float32{9.7, 0, 19.3}, 1, 2},
		{[]float32{35.9, 0, 35.9}, 3, 3},
		{[]float32{-0.1, 0, 5}, -1, 0},
	}
	for _, tt := range tests {
		tx, ty := m.GetTilePos(tt.pos)
		assert.Equal(t, []int{tt.tx, tt.ty}, []int{tx, ty}, "before build %v", tt.pos)
	}
	require.True(t, m.Build(false))
	for _, tt := range tests {
		tx, ty := m.GetTilePos(tt.pos)
		assert.Equal(t, []int{tt.tx, tt.ty}, []int{tx, ty}, "after build %v", tt.pos)
	}
}

func TestOutOfRangeTiles(t *testing.T) {
	m := newFlatManager(t, 36, smallSettings())
	require.True(t, m.Build(true))
	count := m.NavMesh().TileCount()

	for _, c := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 4}} {
		assert.ErrorIs(t, m.BuildTileAt(c[0], c[1]), ErrOutOfRange)
		assert.ErrorIs(t, m.RemoveTileAt(c[0], c[1]), ErrOutOfRange)
	}
	assert.ErrorIs(t, m.BuildTile([]float32{100, 0, 100}), ErrOutOfRange)
	assert.ErrorIs(t, m.RemoveTile([]float32{-5, 0, 1}), ErrOutOfRange)
	assert.Equal(t, count, m.NavMesh().TileCount())
}

func TestRemoveTile(t *testing.T) {
	m := newFlatManager(t, 36, smallSettings())
	require.True(t, m.Build(true))
	nav := m.NavMesh()
	count := nav.TileCount()
	pos := []float32{15, 0, 5}
	old := tileData(m, 1, 0)

	require.NoError(t, m.RemoveTile(pos))
	assert.Nil(t, nav.TileAt(1, 0, 0))
	assert.Equal(t, count-1, nav.TileCount())
	require.NoError(t, m.RemoveTile(pos))

	require.NoError(t, m.BuildTile(pos))
	assert.Equal(t, old, tileData(m, 1, 0))
	assert.Equal(t, count, nav.TileCount())
}

func TestBoundsOverrideLeavesEmptyTiles(t *testing.T) {
	m := newFlatManager(t, 36, smallSettings())
	m.SetBounds(common.Vec3{0, -1, 0}, common.Vec3{72, 1, 36})
	require.True(t, m.Build(true))

	tw, th := m.GridSize()
	assert.Equal(t, 8, tw)
	assert.Equal(t, 4, th)
	assert.Equal(t, 16, m.NavMesh().TileCount())
	for y := 0; y < th; y++ {
		for x := 4; x < tw; x++ {
			assert.Nil(t, m.NavMesh().TileAt(x, y, 0), "tile (%d,%d)", x, y)
		}
	}
	require.NoError(t, m.BuildTileAt(6, 1))
	assert.Nil(t, m.NavMesh().TileAt(6, 1, 0))

	m.ClearBounds()
	bmin, bmax := m.Bounds()
	assert.Equal(t, m.Geom().MeshBMin, bmin)
	assert.Equal(t, m.Geom().MeshBMax, bmax)
}

func TestWaterVolumeSwims(t *testing.T) {
	const size, half = 36, 18
	m := NewManager(WithSettings(smallSettings()))
	g := geom.FlatSquare(size, 0, 4)
	require.NoError(t, g.AddConvexVolume([]float32{
		-1, 0, -1,
		-1, 0, size + 1,
		half, 0, size + 1,
		half, 0, -1,
	}, -1, 1, uint8(AreaWater)))
	m.SetGeom(g)
	require.True(t, m.Build(true))

	var swim, walk int
	nav := m.NavMesh()
	for i := 0; i < nav.MaxTiles(); i++ {
		tile := nav.GetTile(i)
		if tile.Header == nil {
			continue
		}
		for j := range tile.Polys {
			p := &tile.Polys[j]
			switch PolyFlags(p.Flags) {
			case FlagSwim:
				swim++
				assert.Equal(t, uint8(AreaWater), p.GetArea())
				for k := 0; k < int(p.VertCount); k++ {
					assert.LessOrEqual(t, tile.Verts[int(p.Verts[k])*3], float32(half+1))
				}
			case FlagWalk:
				walk++
				for k := 0; k < int(p.VertCount); k++ {
					assert.GreaterOrEqual(t, tile.Verts[int(p.Verts[k])*3], float32(half-1))
				}
			default:
				t.Errorf("unexpected flags %#x", p.Flags)
			}
		}
	}
	assert.Positive(t, swim)
	assert.Positive(t, walk)
}

func TestKeepIntermediates(t *testing.T) {
	m := newFlatManager(t, 36, smallSettings())
	require.True(t, m.Build(false))
	require.NoError(t, m.BuildTileAt(0, 0))
	assert.Nil(t, m.Intermediates())

	m.SetBuildMode(KeepIntermediates)
	require.NoError(t, m.BuildTileAt(2, 1))
	inter := m.Intermediates()
	require.NotNil(t, inter)
	assert.Equal(t, 2, inter.TileX)
	assert.Equal(t, 1, inter.TileY)
	assert.NotNil(t, inter.Solid)
	assert.NotNil(t, inter.Chf)
	assert.NotNil(t, inter.Cset)
	require.NotNil(t, inter.PMesh)
	assert.Equal(t, m.Stats().TilePolyCount, inter.PMesh.Npolys)
	assert.Equal(t, len(tileData(m, 2, 1)), m.Stats().TileMemUsage)

	m.SetBuildMode(ReleaseIntermediates)
	assert.Nil(t, m.Intermediates())
}

func TestOffMeshConnectionsAreBaked(t *testing.T) {
	m := NewManager(WithSettings(smallSettings()))
	g := geom.FlatSquare(36, 0, 4)
	require.NoError(t, g.AddOffMeshConnection(common.Vec3{3, 0, 3}, common.Vec3{6, 0, 6}, 0.6, true, uint8(AreaJump), uint16(FlagJump)))
	m.SetGeom(g)
	require.True(t, m.Build(true))

	tile := m.NavMesh().TileAt(0, 0, 0)
	require.NotNil(t, tile)
	require.Len(t, tile.OffMeshCons, 1)
	assert.Equal(t, uint8(detour.DT_OFFMESH_CON_BIDIR), tile.OffMeshCons[0].Flags)
	assert.Empty(t, m.NavMesh().TileAt(1, 1, 0).OffMeshCons)
}

func TestFindPathAcrossBuiltTiles(t *testing.T) {
	m := newFlatManager(t, 36, smallSettings())
	require.True(t, m.Build(true))
	q := m.Query()
	filter := detour.NewDtQueryFilter()
	ext := []float32{1, 2, 1}

	start := []float32{2, 0, 2}
	end := []float32{34, 0, 34}
	startRef, _, status := q.FindNearestPoly(start, ext, filter)
	require.True(t, status.Succeed())
	require.NotZero(t, startRef)
	endRef, _, status := q.FindNearestPoly(end, ext, filter)
	require.True(t, status.Succeed())
	require.NotZero(t, endRef)

	path, status := q.FindPath(startRef, endRef, start, end, filter, 256)
	require.True(t, status.Succeed())
	assert.False(t, status.Detail(detour.DT_PARTIAL_RESULT))
	assert.Equal(t, startRef, path[0])
	assert.Equal(t, endRef, path[len(path)-1])
}

func TestTileEvents(t *testing.T) {
	var events []message.TileEvent
	m := newFlatManager(t, 36, smallSettings(), WithEvents(func(e *message.TileEvent) {
		events = append(events, *e)
	}))
	require.True(t, m.Build(true))
	require.Len(t, events, 16)
	for _, e := range events {
		assert.Equal(t, message.TileBuilt, e.Kind)
		assert.NotZero(t, e.Ref)
		assert.Positive(t, e.DataSize)
		assert.Positive(t, e.Polys)
	}
	last := events[len(events)-1]
	assert.Equal(t, []int32{3, 3}, []int32{last.X, last.Y})

	events = events[:0]
	require.NoError(t, m.BuildTileAt(2, 2))
	require.Len(t, events, 2)
	assert.Equal(t, message.TileRemoved, events[0].Kind)
	assert.Equal(t, message.TileBuilt, events[1].Kind)
	assert.Equal(t, int32(len(tileData(m, 2, 2))), events[1].DataSize)

	events = events[:0]
	m.RemoveAllTiles()
	assert.Len(t, events, 16)
}

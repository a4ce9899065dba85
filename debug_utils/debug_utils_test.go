package debug_utils

import (
	"bufio"
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/tilemesh/common"
	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/recast"
	"github.com/gorustyt/tilemesh/tilemesh"
)

var white = DuRGBA(255, 255, 255, 255)

func builtManager(t *testing.T, mode tilemesh.BuildMode, offMesh bool) *tilemesh.Manager {
	t.Helper()
	s := tilemesh.DefaultSettings()
	s.TileSize = 32
	m := tilemesh.NewManager(tilemesh.WithSettings(s), tilemesh.WithBuildMode(mode))
	g := geom.FlatSquare(36, 0, 4)
	if offMesh {
		require.NoError(t, g.AddOffMeshConnection(common.Vec3{3, 0, 3}, common.Vec3{6, 0, 6}, 0.6, true,
			uint8(tilemesh.AreaJump), uint16(tilemesh.FlagJump)))
	}
	m.SetGeom(g)
	require.True(t, m.Build(true))
	return m
}

func TestColors(t *testing.T) {
	c := DuRGBA(1, 2, 3, 4)
	var back Colorb
	back.FromInt(c.Int())
	assert.Equal(t, c, back)
	assert.Equal(t, uint32(0x04030201), c.Int())

	tests := []struct {
		name string
		got  Colorb
		want Colorb
	}{
		{"int zero", DuIntToCol(0, 255), DuRGBA(63, 63, 63, 255)},
		{"int all bits", DuIntToCol(63, 128), DuRGBA(252, 252, 252, 128)},
		{"darken", DuDarkenCol(DuRGBA(200, 100, 50, 10)), DuRGBA(100, 50, 25, 10)},
		{"lerp start", DuLerpCol(DuRGBA(0, 0, 0, 0), white, 0), DuRGBA(0, 0, 0, 0)},
		{"lerp end", DuLerpCol(DuRGBA(0, 0, 0, 0), white, 255), white},
		{"trans", DuTransCol(white, 7), DuRGBA(255, 255, 255, 7)},
		{"water", AreaToCol(uint8(tilemesh.AreaWater)), DuRGBA(0, 0, 255, 255)},
		{"unknown area", AreaToCol(40), DuIntToCol(40, 255)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestDisplayList(t *testing.T) {
	dl := NewDuDisplayList()
	DuDebugDrawBoxWire(dl, 0, 0, 0, 1, 1, 1, white, 1)
	DuDebugDrawGridXZ(dl, 0, 0, 0, 2, 3, 1, white, 1)
	assert.Equal(t, 12+7, dl.Count(DU_DRAW_LINES))
	assert.Zero(t, dl.Count(DU_DRAW_TRIS))

	replay := NewDuDisplayList()
	dl.Draw(replay)
	assert.Equal(t, dl.Count(DU_DRAW_LINES), replay.Count(DU_DRAW_LINES))

	dl.Clear()
	assert.Zero(t, dl.Count(DU_DRAW_LINES))
	dl.Vertex(0, 0, 0, white)
	assert.Zero(t, dl.Count(DU_DRAW_POINTS))
}

func TestDrawNavMesh(t *testing.T) {
	m := builtManager(t, tilemesh.ReleaseIntermediates, true)
	nav := m.NavMesh()

	var tris, verts int
	for i := 0; i < nav.MaxTiles(); i++ {
		if h := nav.GetTile(i).Header; h != nil {
			tris += int(h.DetailTriCount)
			verts += int(h.VertCount)
		}
	}
	require.NotZero(t, tris)

	plain := NewDuDisplayList()
	DuDebugDrawNavMesh(plain, nav, 0)
	assert.Equal(t, tris, plain.Count(DU_DRAW_TRIS))
	assert.Equal(t, verts, plain.Count(DU_DRAW_POINTS))

	full := NewDuDisplayList()
	DuDebugDrawNavMesh(full, nav, DU_DRAWNAVMESH_OFFMESHCONS|DU_DRAWNAVMESH_TILE_BOUNDS|DU_DRAWNAVMESH_COLOR_TILES)
	assert.Equal(t, tris, full.Count(DU_DRAW_TRIS))
	assert.Greater(t, full.Count(DU_DRAW_LINES), plain.Count(DU_DRAW_LINES)+16*12)

	DuDebugDrawNavMesh(nil, nav, 0)
	DuDebugDrawNavMesh(plain, nil, 0)
}

func TestRasterRendersNavMesh(t *testing.T) {
	m := builtManager(t, tilemesh.ReleaseIntermediates, false)
	bmin, bmax := m.Bounds()
	r := NewRaster(bmin[:], bmax[:], 8, white)
	DuDebugDrawNavMesh(r, m.NavMesh(), 0)

	img := r.Image()
	assert.Equal(t, 36*8+2*rasterPad, img.Bounds().Dx())
	assert.Equal(t, 36*8+2*rasterPad, img.Bounds().Dy())

	px, py := r.Project(18, 18)
	assert.NotEqual(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(int(px), int(py)), "centre should be covered")
	assert.Equal(t, uint8(255), img.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), img.RGBAAt(0, 0).G)

	var buf bytes.Buffer
	require.NoError(t, r.WritePNG(&buf))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestRasterClampsScale(t *testing.T) {
	r := NewRaster([]float32{0, 0, 0}, []float32{10000, 1, 10}, 100, white)
	assert.LessOrEqual(t, r.Image().Bounds().Dx(), maxRasterSide)
}

func TestRasterLabel(t *testing.T) {
	r := NewRaster([]float32{0, 0, 0}, []float32{10, 1, 10}, 10, white)
	r.Label(1, 5, "0,0", DuRGBA(0, 0, 0, 255))
	img := r.Image()
	dark := 0
	for y := 30; y < 60; y++ {
		for x := 10; x < 50; x++ {
			if img.RGBAAt(x, y).R < 128 {
				dark++
			}
		}
	}
	assert.NotZero(t, dark)
}

func TestDrawRecastStages(t *testing.T) {
	m := builtManager(t, tilemesh.KeepIntermediates, false)
	require.NoError(t, m.BuildTileAt(1, 1))
	inter := m.Intermediates()
	require.NotNil(t, inter)

	dl := NewDuDisplayList()
	DuDebugDrawPolyMesh(dl, inter.PMesh)
	assert.NotZero(t, dl.Count(DU_DRAW_TRIS))
	assert.NotZero(t, dl.Count(DU_DRAW_LINES))

	dl.Clear()
	DuDebugDrawContours(dl, inter.Cset, 255)
	assert.NotZero(t, dl.Count(DU_DRAW_LINES))

	dl.Clear()
	DuDebugDrawCompactHeightfieldRegions(dl, inter.Chf)
	assert.Equal(t, inter.Chf.SpanCount, dl.Count(DU_DRAW_QUADS))
}

func countPrefix(t *testing.T, s, prefix string) int {
	t.Helper()
	n := 0
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), prefix) {
			n++
		}
	}
	return n
}

func TestDumpToObj(t *testing.T) {
	m := builtManager(t, tilemesh.KeepIntermediates, false)
	require.NoError(t, m.BuildTileAt(1, 1))
	pmesh := m.Intermediates().PMesh
	dmesh := m.Intermediates().DMesh

	faces := 0
	for i := 0; i < pmesh.Npolys; i++ {
		p := pmesh.Polys[i*pmesh.Nvp*2:]
		for j := 2; j < pmesh.Nvp && p[j] != recast.RC_MESH_NULL_IDX; j++ {
			faces++
		}
	}

	var buf bytes.Buffer
	require.NoError(t, DuDumpPolyMeshToObj(pmesh, &buf))
	assert.Equal(t, pmesh.Nverts, countPrefix(t, buf.String(), "v "))
	assert.Equal(t, faces, countPrefix(t, buf.String(), "f "))

	buf.Reset()
	require.NoError(t, DuDumpPolyMeshDetailToObj(dmesh, &buf))
	assert.Equal(t, dmesh.Nverts, countPrefix(t, buf.String(), "v "))
	assert.Equal(t, dmesh.Ntris, countPrefix(t, buf.String(), "f "))

	assert.Error(t, DuDumpPolyMeshToObj(nil, &buf))
	assert.Error(t, DuDumpPolyMeshDetailToObj(nil, &buf))
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := builtManager(t, tilemesh.KeepIntermediates, false)
	require.NoError(t, m.BuildTileAt(2, 1))
	inter := m.Intermediates()

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, inter))
	s, err := ReadSnapshot(&buf)
	require.NoError(t, err)

	assert.Equal(t, 2, s.TileX)
	assert.Equal(t, 1, s.TileY)
	assert.Equal(t, inter.Config, s.Config)
	assert.Equal(t, inter.TriCount, s.TriCount)
	require.NotNil(t, s.PMesh)
	assert.Equal(t, inter.PMesh.Npolys, s.PMesh.Npolys)
	assert.Equal(t, inter.PMesh.Verts, s.PMesh.Verts)
	assert.Equal(t, inter.PMesh.Areas, s.PMesh.Areas)
	require.NotNil(t, s.DMesh)
	assert.Equal(t, inter.DMesh.Tris, s.DMesh.Tris)
	require.NotNil(t, s.Contours)
	assert.Equal(t, len(inter.Cset.Conts), len(s.Contours.Conts))

	assert.Error(t, WriteSnapshot(&buf, nil))
	_, err = ReadSnapshot(bytes.NewReader([]byte{0xc1}))
	assert.Error(t, err)
}

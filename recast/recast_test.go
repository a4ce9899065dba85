package recast

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plane returns a 10x10 quad at height y, wound so its normal points up.
func plane(y float32) ([]float32, []int32) {
	verts := []float32{
		0, y, 0,
		0, y, 10,
		10, y, 10,
		10, y, 0,
	}
	return verts, []int32{0, 1, 2, 0, 2, 3}
}

func TestCalcBounds(t *testing.T) {
	bmin, bmax := RcCalcBounds([]float32{1, 2, 3, -1, 5, 0, 4, -2, 1})
	assert.Equal(t, mgl32.Vec3{-1, -2, 0}, bmin)
	assert.Equal(t, mgl32.Vec3{4, 5, 3}, bmax)
}

func TestCalcGridSize(t *testing.T) {
	tests := []struct {
		name   string
		bmax   mgl32.Vec3
		cs     float32
		sx, sz int
	}{
		{"unit cells", mgl32.Vec3{10, 1, 5}, 1, 10, 5},
		{"rounds to nearest", mgl32.Vec3{10, 1, 10}, 0.3, 33, 33},
		{"flat 256", mgl32.Vec3{256, 0, 256}, 0.3, 853, 853},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sx, sz := RcCalcGridSize(mgl32.Vec3{}, tt.bmax, tt.cs)
			assert.Equal(t, tt.sx, sx)
			assert.Equal(t, tt.sz, sz)
		})
	}
}

func TestMarkWalkableTriangles(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		0, 0, 1,
		1, 0, 1,
		0, 0, 0,
		0, 1, 0,
		0, 1, 1,
	}
	tris := []int32{0, 1, 2, 3, 4, 5}
	areas := make([]uint8, 2)
	RcMarkWalkableTriangles(nil, 45, verts, tris, areas)
	assert.Equal(t, []uint8{RC_WALKABLE_AREA, RC_NULL_AREA}, areas)

	areas = []uint8{RC_WALKABLE_AREA, RC_WALKABLE_AREA}
	RcClearUnwalkableTriangles(nil, 45, verts, tris, areas)
	assert.Equal(t, []uint8{RC_WALKABLE_AREA, RC_NULL_AREA}, areas)
}

func TestAddSpanMerges(t *testing.T) {
	hf, ok := RcCreateHeightfield(nil, 1, 1, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, 1, 1)
	require.True(t, ok)

	require.True(t, RcAddSpan(nil, hf, 0, 0, 0, 2, 1, 1))
	require.True(t, RcAddSpan(nil, hf, 0, 0, 5, 7, 1, 1))
	s := hf.Spans[0]
	require.NotNil(t, s.Next)
	assert.Equal(t, []int{0, 2, 5, 7}, []int{s.Smin, s.Smax, s.Next.Smin, s.Next.Smax})

	// bridging span swallows both and keeps the higher area at a shared top
	require.True(t, RcAddSpan(nil, hf, 0, 0, 1, 7, RC_WALKABLE_AREA, 1))
	s = hf.Spans[0]
	assert.Nil(t, s.Next)
	assert.Equal(t, 0, s.Smin)
	assert.Equal(t, 7, s.Smax)
	assert.Equal(t, uint8(RC_WALKABLE_AREA), s.Area)
}

func TestRasterizeFlatTriangle(t *testing.T) {
	hf, ok := RcCreateHeightfield(nil, 10, 10, mgl32.Vec3{}, mgl32.Vec3{10, 2, 10}, 1, 0.5)
	require.True(t, ok)
	verts, tris := plane(0.5)
	areas := []uint8{RC_WALKABLE_AREA, RC_WALKABLE_AREA}
	require.True(t, RcRasterizeTriangles(nil, verts, tris, areas, hf, 1))

	for z := 0; z < hf.Height; z++ {
		for x := 0; x < hf.Width; x++ {
			s := hf.Spans[x+z*hf.Width]
			require.NotNil(t, s, "cell %d,%d", x, z)
			assert.Equal(t, 1, s.Smin)
			assert.Equal(t, 2, s.Smax)
			assert.Nil(t, s.Next)
		}
	}
}

type pipeline struct {
	chf   *RcCompactHeightfield
	cset  *RcContourSet
	mesh  *RcPolyMesh
	dmesh *RcPolyMeshDetail
}

func buildPlane(t *testing.T, monotone bool, markWater bool) pipeline {
	t.Helper()
	const (
		cs     = 0.3
		ch     = 0.2
		height = 10
		climb  = 4
		radius = 2
	)
	verts, tris := plane(0)
	bmin, bmax := RcCalcBounds(verts)
	bmax[1] += 1
	w, h := RcCalcGridSize(bmin, bmax, cs)
	hf, ok := RcCreateHeightfield(nil, w, h, bmin, bmax, cs, ch)
	require.True(t, ok)

	areas := make([]uint8, len(tris)/3)
	RcMarkWalkableTriangles(nil, 45, verts, tris, areas)
	require.True(t, RcRasterizeTriangles(nil, verts, tris, areas, hf, climb))
	RcFilterLowHangingWalkableObstacles(nil, climb, hf)
	RcFilterLedgeSpans(nil, height, climb, hf)
	RcFilterWalkableLowHeightSpans(nil, height, hf)

	chf, ok := RcBuildCompactHeightfield(nil, height, climb, hf)
	require.True(t, ok)
	require.True(t, RcErodeWalkableArea(nil, radius, chf))
	if markWater {
		RcMarkConvexPolyArea(nil, []float32{0, 0, 0, 0, 0, 5, 10, 0, 5, 10, 0, 0}, -1, 1, 1, chf)
	}

	if monotone {
		require.True(t, RcBuildRegionsMonotone(nil, chf, 0, 8, 20))
	} else {
		require.True(t, RcBuildDistanceField(nil, chf))
		require.True(t, RcBuildRegions(nil, chf, 0, 8, 20))
	}

	cset, ok := RcBuildContours(nil, chf, 1.3, int(12/cs), RC_CONTOUR_TESS_WALL_EDGES)
	require.True(t, ok)
	mesh, ok := RcBuildPolyMesh(nil, cset, 6)
	require.True(t, ok)
	dmesh, ok := RcBuildPolyMeshDetail(nil, mesh, chf, 6*cs, ch)
	require.True(t, ok)
	return pipeline{chf: chf, cset: cset, mesh: mesh, dmesh: dmesh}
}

func TestBuildPipelineFlatPlane(t *testing.T) {
	for _, monotone := range []bool{false, true} {
		p := buildPlane(t, monotone, false)
		assert.Positive(t, p.chf.MaxRegions, "monotone=%v", monotone)
		assert.Positive(t, p.cset.Nconts())
		require.Positive(t, p.mesh.Npolys)
		assert.Equal(t, 6, p.mesh.Nvp)
		assert.Equal(t, p.mesh.Npolys, p.dmesh.Nmeshes)

		for i := 0; i < p.mesh.Nverts; i++ {
			v := p.mesh.Verts[i*3 : i*3+3]
			assert.LessOrEqual(t, v[0], p.chf.Width)
			assert.LessOrEqual(t, v[2], p.chf.Height)
			assert.Equal(t, p.mesh.Verts[1], v[1])
		}
		for i := 0; i < p.mesh.Npolys; i++ {
			assert.Equal(t, uint8(RC_WALKABLE_AREA), p.mesh.Areas[i])
			nv := 0
			for j := 0; j < p.mesh.Nvp; j++ {
				if p.mesh.Polys[i*2*p.mesh.Nvp+j] != RC_MESH_NULL_IDX {
					nv++
				}
			}
			assert.GreaterOrEqual(t, nv, 3)
		}
		for i := 0; i < p.dmesh.Nverts; i++ {
			assert.InDelta(t, p.dmesh.Verts[1], p.dmesh.Verts[i*3+1], 1e-4)
		}
	}
}

func TestBuildPipelineMarksAreas(t *testing.T) {
	p := buildPlane(t, false, true)
	seen := map[uint8]bool{}
	for i := 0; i < p.mesh.Npolys; i++ {
		seen[p.mesh.Areas[i]] = true
	}
	assert.True(t, seen[1])
	assert.True(t, seen[RC_WALKABLE_AREA])
}

func TestBuildPipelineDeterministic(t *testing.T) {
	a := buildPlane(t, false, false)
	b := buildPlane(t, false, false)
	assert.Equal(t, a.mesh.Verts, b.mesh.Verts)
	assert.Equal(t, a.mesh.Polys, b.mesh.Polys)
	assert.Equal(t, a.dmesh.Verts, b.dmesh.Verts)
	assert.Equal(t, a.dmesh.Tris, b.dmesh.Tris)
}

func TestEmptyHeightfieldHasNoContours(t *testing.T) {
	hf, ok := RcCreateHeightfield(nil, 8, 8, mgl32.Vec3{}, mgl32.Vec3{8, 1, 8}, 1, 1)
	require.True(t, ok)
	chf, ok := RcBuildCompactHeightfield(nil, 2, 1, hf)
	require.True(t, ok)
	require.True(t, RcBuildDistanceField(nil, chf))
	require.True(t, RcBuildRegions(nil, chf, 0, 8, 20))
	cset, ok := RcBuildContours(nil, chf, 1.3, 12, RC_CONTOUR_TESS_WALL_EDGES)
	require.True(t, ok)
	assert.Zero(t, cset.Nconts())
}

func TestContextTimers(t *testing.T) {
	ctx := NewRcContext(nil)
	ctx.StartTimer(RC_TIMER_TOTAL)
	ctx.StopTimer(RC_TIMER_TOTAL)
	assert.GreaterOrEqual(t, ctx.AccumulatedTime(RC_TIMER_TOTAL), time.Duration(0))
	ctx.ResetTimers()
	assert.Zero(t, ctx.AccumulatedTime(RC_TIMER_TOTAL))
}

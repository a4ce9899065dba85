package detour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTileMesh(t *testing.T) (*NavMesh, *NavMeshQuery) {
	t.Helper()
	nav := newTestMesh(t)
	_, status := nav.AddTile(quadTile(t, 0, map[int]int{2: 2}), 0, 0)
	require.True(t, status.Succeed())
	_, status = nav.AddTile(quadTile(t, 1, map[int]int{0: 0}), 0, 0)
	require.True(t, status.Succeed())
	q, status := NewNavMeshQuery(nav, 2048)
	require.True(t, status.Succeed())
	return nav, q
}

func TestFindNearestPoly(t *testing.T) {
	nav, q := twoTileMesh(t)
	filter := NewDtQueryFilter()
	ext := []float32{2, 4, 2}

	tests := []struct {
		name  string
		pos   []float32
		tileX int
		found bool
	}{
		{"left tile", []float32{5, 0.5, 5}, 0, true},
		{"right tile", []float32{15, 0.5, 5}, 1, true},
		{"outside", []float32{50, 0, 50}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, pt, status := q.FindNearestPoly(tt.pos, ext, filter)
			require.True(t, status.Succeed())
			if !tt.found {
				assert.Zero(t, ref)
				return
			}
			require.NotZero(t, ref)
			tile, _, status := nav.TileAndPolyByRef(ref)
			require.True(t, status.Succeed())
			assert.Equal(t, int32(tt.tileX), tile.Header.X)
			assert.InDelta(t, 0, pt[1], 1e-4)
			assert.InDelta(t, tt.pos[0], pt[0], 1e-4)
		})
	}
}

func TestFindPathAcrossTiles(t *testing.T) {
	_, q := twoTileMesh(t)
	filter := NewDtQueryFilter()
	ext := []float32{2, 4, 2}
	start := []float32{2, 0, 5}
	end := []float32{18, 0, 5}
	startRef, _, _ := q.FindNearestPoly(start, ext, filter)
	endRef, _, _ := q.FindNearestPoly(end, ext, filter)
	require.NotZero(t, startRef)
	require.NotZero(t, endRef)

	path, status := q.FindPath(startRef, endRef, start, end, filter, 16)
	require.True(t, status.Succeed())
	assert.False(t, status.Detail(DT_PARTIAL_RESULT))
	assert.Equal(t, []DtPolyRef{startRef, endRef}, path)

	path, status = q.FindPath(startRef, endRef, start, end, filter, 1)
	assert.True(t, status.Detail(DT_BUFFER_TOO_SMALL))
	assert.Equal(t, []DtPolyRef{startRef}, path)

	// excluding the target flags leaves only a partial path
	filter.SetExcludeFlags(1)
	path, status = q.FindPath(startRef, endRef, start, end, filter, 16)
	assert.True(t, status.Detail(DT_PARTIAL_RESULT))
	assert.Equal(t, []DtPolyRef{startRef}, path)

	_, status = q.FindPath(0, endRef, start, end, filter, 16)
	assert.True(t, status.Detail(DT_INVALID_PARAM))
}

func TestGetPolyHeight(t *testing.T) {
	nav, q := twoTileMesh(t)
	ref := nav.PolyRefBase(nav.TileAt(0, 0, 0))
	h, status := q.GetPolyHeight(ref, []float32{3, 5, 3})
	require.True(t, status.Succeed())
	assert.InDelta(t, 0, h, 1e-5)

	_, status = q.GetPolyHeight(ref, []float32{30, 5, 3})
	assert.True(t, status.Failed())
}

func TestNodePool(t *testing.T) {
	pool := NewDtNodePool(2, 4)
	a := pool.GetNode(10)
	require.NotNil(t, a)
	assert.Same(t, a, pool.GetNode(10))
	assert.Equal(t, uint32(1), pool.GetNodeIdx(a))
	assert.Same(t, a, pool.GetNodeAtIdx(1))
	require.NotNil(t, pool.GetNode(11))
	assert.Nil(t, pool.GetNode(12))
	assert.Nil(t, pool.FindNode(12))

	pool.Clear()
	assert.Zero(t, pool.NodeCount())
	assert.Nil(t, pool.FindNode(10))
}

func TestNodeQueueOrdersByTotal(t *testing.T) {
	q := NewNodeQueue(func(a, b *DtNode) bool { return a.Total < b.Total })
	nodes := []*DtNode{{Total: 5}, {Total: 1}, {Total: 3}}
	for _, n := range nodes {
		q.Offer(n)
	}
	nodes[0].Total = 0
	q.Update(nodes[0])

	var got []float32
	for !q.Empty() {
		got = append(got, q.Poll().Total)
	}
	assert.Equal(t, []float32{0, 1, 3}, got)
}

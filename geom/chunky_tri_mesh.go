package geom

import (
	"math"
	"slices"
)

// ChunkyTriMeshNode is a node of the xz bounding volume tree over the input triangles.
// Leaf nodes have I >= 0 and own N triangles starting at triangle I; internal nodes
// store a negative escape offset in I.
type ChunkyTriMeshNode struct {
	Bmin [2]float32
	Bmax [2]float32
	I    int
	N    int
}

// ChunkyTriMesh partitions triangles into chunks so a tile build only touches the
// triangles overlapping its bounds.
type ChunkyTriMesh struct {
	Nodes           []ChunkyTriMeshNode
	Tris            []int32 // reordered so every leaf's triangles are contiguous
	MaxTrisPerChunk int
}

type boundsItem struct {
	bmin [2]float32
	bmax [2]float32
	i    int
}

func calcExtends(items []boundsItem) (bmin, bmax [2]float32) {
	bmin = items[0].bmin
	bmax = items[0].bmax
	for _, it := range items[1:] {
		bmin[0] = min(bmin[0], it.bmin[0])
		bmin[1] = min(bmin[1], it.bmin[1])
		bmax[0] = max(bmax[0], it.bmax[0])
		bmax[1] = max(bmax[1], it.bmax[1])
	}
	return bmin, bmax
}

func longestAxis(x, y float32) int {
	if y > x {
		return 1
	}
	return 0
}

func (cm *ChunkyTriMesh) subdivide(items []boundsItem, imin, imax, trisPerChunk int, inTris []int32) {
	inum := imax - imin
	icur := len(cm.Nodes)
	cm.Nodes = append(cm.Nodes, ChunkyTriMeshNode{})
	bmin, bmax := calcExtends(items[imin:imax])
	cm.Nodes[icur].Bmin = bmin
	cm.Nodes[icur].Bmax = bmax

	if inum <= trisPerChunk {
		// Leaf
		cm.Nodes[icur].I = len(cm.Tris) / 3
		cm.Nodes[icur].N = inum
		for _, it := range items[imin:imax] {
			cm.Tris = append(cm.Tris, inTris[it.i*3:it.i*3+3]...)
		}
		return
	}

	// Split
	axis := longestAxis(bmax[0]-bmin[0], bmax[1]-bmin[1])
	slices.SortStableFunc(items[imin:imax], func(a, b boundsItem) int {
		switch {
		case a.bmin[axis] < b.bmin[axis]:
			return -1
		case a.bmin[axis] > b.bmin[axis]:
			return 1
		}
		return 0
	})

	isplit := imin + inum/2
	cm.subdivide(items, imin, isplit, trisPerChunk, inTris)
	cm.subdivide(items, isplit, imax, trisPerChunk, inTris)

	// Negative index means escape.
	cm.Nodes[icur].I = -(len(cm.Nodes) - icur)
}

// NewChunkyTriMesh builds the chunk tree. trisPerChunk bounds the size of each leaf.
func NewChunkyTriMesh(verts []float32, tris []int32, trisPerChunk int) *ChunkyTriMesh {
	ntris := len(tris) / 3
	cm := &ChunkyTriMesh{}
	if ntris == 0 || trisPerChunk <= 0 {
		return cm
	}
	nchunks := (ntris + trisPerChunk - 1) / trisPerChunk
	cm.Nodes = make([]ChunkyTriMeshNode, 0, nchunks*4)
	cm.Tris = make([]int32, 0, ntris*3)

	// Build tree
	items := make([]boundsItem, ntris)
	for i := range items {
		t := tris[i*3 : i*3+3]
		it := &items[i]
		it.i = i
		// Calc triangle XZ bounds.
		it.bmin = [2]float32{verts[t[0]*3+0], verts[t[0]*3+2]}
		it.bmax = it.bmin
		for j := 1; j < 3; j++ {
			v := verts[t[j]*3 : t[j]*3+3]
			it.bmin[0] = min(it.bmin[0], v[0])
			it.bmin[1] = min(it.bmin[1], v[2])
			it.bmax[0] = max(it.bmax[0], v[0])
			it.bmax[1] = max(it.bmax[1], v[2])
		}
	}
	cm.subdivide(items, 0, ntris, trisPerChunk, tris)

	// Calc max tris per node.
	for _, node := range cm.Nodes {
		if node.I >= 0 {
			cm.MaxTrisPerChunk = max(cm.MaxTrisPerChunk, node.N)
		}
	}
	return cm
}

func checkOverlapRect(amin, amax, bmin, bmax [2]float32) bool {
	return !(amin[0] > bmax[0] || amax[0] < bmin[0] || amin[1] > bmax[1] || amax[1] < bmin[1])
}

// ChunksOverlappingRect returns the leaf node ids whose bounds overlap the xz rectangle.
func (cm *ChunkyTriMesh) ChunksOverlappingRect(bmin, bmax [2]float32) []int {
	return cm.traverse(func(n *ChunkyTriMeshNode) bool {
		return checkOverlapRect(bmin, bmax, n.Bmin, n.Bmax)
	})
}

// ChunksOverlappingSegment returns the leaf node ids whose bounds the xz segment p-q crosses.
func (cm *ChunkyTriMesh) ChunksOverlappingSegment(p, q [2]float32) []int {
	return cm.traverse(func(n *ChunkyTriMeshNode) bool {
		return checkOverlapSegment(p, q, n.Bmin, n.Bmax)
	})
}

// NodeTris returns the triangle indices owned by leaf node id.
func (cm *ChunkyTriMesh) NodeTris(id int) []int32 {
	n := &cm.Nodes[id]
	return cm.Tris[n.I*3 : (n.I+n.N)*3]
}

func (cm *ChunkyTriMesh) traverse(overlaps func(*ChunkyTriMeshNode) bool) []int {
	var ids []int
	for i := 0; i < len(cm.Nodes); {
		node := &cm.Nodes[i]
		overlap := overlaps(node)
		isLeafNode := node.I >= 0
		if isLeafNode && overlap {
			ids = append(ids, i)
		}
		if overlap || isLeafNode {
			i++
		} else {
			i += -node.I
		}
	}
	return ids
}

func checkOverlapSegment(p, q, bmin, bmax [2]float32) bool {
	const eps = 1e-6
	tmin, tmax := float32(0), float32(1)
	d := [2]float32{q[0] - p[0], q[1] - p[1]}
	for i := 0; i < 2; i++ {
		if math.Abs(float64(d[i])) < eps {
			// Ray is parallel to slab. No hit if origin not within slab
			if p[i] < bmin[i] || p[i] > bmax[i] {
				return false
			}
			continue
		}
		// Compute intersection t value of ray with near and far plane of slab
		ood := 1.0 / d[i]
		t1 := (bmin[i] - p[i]) * ood
		t2 := (bmax[i] - p[i]) * ood
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}

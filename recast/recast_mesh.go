package recast

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/tilemesh/common"
)

// RcPolyMesh represents a polygon mesh suitable for use in building a navigation mesh.
type RcPolyMesh struct {
	Verts        []int      ///< The mesh vertices. [Form: (x, y, z) * #Nverts]
	Polys        []int      ///< Polygon and neighbor data. [Length: #Maxpolys * 2 * #Nvp]
	Regs         []int      ///< The region id assigned to each polygon. [Length: #Maxpolys]
	Flags        []uint16   ///< The user defined flags for each polygon. [Length: #Maxpolys]
	Areas        []uint8    ///< The area id assigned to each polygon. [Length: #Maxpolys]
	Nverts       int        ///< The number of vertices.
	Npolys       int        ///< The number of polygons.
	Maxpolys     int        ///< The number of allocated polygons.
	Nvp          int        ///< The maximum number of vertices per polygon.
	Bmin         mgl32.Vec3 ///< The minimum bounds in world space. [(x, y, z)]
	Bmax         mgl32.Vec3 ///< The maximum bounds in world space. [(x, y, z)]
	Cs           float32    ///< The size of each cell. (On the xz-plane.)
	Ch           float32    ///< The height of each cell. (The minimum increment along the y-axis.)
	BorderSize   int        ///< The AABB border size used to generate the source data from which the mesh was derived.
	MaxEdgeError float32    ///< The max error of the polygon edges in the mesh.
}

const (
	vertexBucketCount = 1 << 12
	indexMask         = 0x0fffffff
	indexRemovable    = 0x80000000
)

type rcEdge struct {
	vert     [2]int
	polyEdge [2]int
	poly     [2]int
}

func buildMeshAdjacency(polys []int, npolys, nverts, vertsPerPoly int) bool {
	// Based on code by Eric Lengyel from:
	// https://web.archive.org/web/20080704083314/http://www.terathon.com/code/edges.php
	maxEdgeCount := npolys * vertsPerPoly
	firstEdge := make([]int, nverts)
	nextEdge := make([]int, maxEdgeCount)
	edges := make([]rcEdge, 0, maxEdgeCount)
	for i := range firstEdge {
		firstEdge[i] = -1
	}

	edgeVerts := func(t []int, j int) (int, int) {
		v0 := t[j]
		v1 := t[0]
		if j+1 < vertsPerPoly && t[j+1] != RC_MESH_NULL_IDX {
			v1 = t[j+1]
		}
		return v0, v1
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*vertsPerPoly*2:]
		for j := 0; j < vertsPerPoly; j++ {
			if t[j] == RC_MESH_NULL_IDX {
				break
			}
			v0, v1 := edgeVerts(t, j)
			if v0 < v1 {
				edges = append(edges, rcEdge{
					vert:     [2]int{v0, v1},
					poly:     [2]int{i, i},
					polyEdge: [2]int{j, 0},
				})
				// Insert edge
				nextEdge[len(edges)-1] = firstEdge[v0]
				firstEdge[v0] = len(edges) - 1
			}
		}
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*vertsPerPoly*2:]
		for j := 0; j < vertsPerPoly; j++ {
			if t[j] == RC_MESH_NULL_IDX {
				break
			}
			v0, v1 := edgeVerts(t, j)
			if v0 > v1 {
				for e := firstEdge[v1]; e != -1; e = nextEdge[e] {
					edge := &edges[e]
					if edge.vert[1] == v0 && edge.poly[0] == edge.poly[1] {
						edge.poly[1] = i
						edge.polyEdge[1] = j
						break
					}
				}
			}
		}
	}

	// Store adjacency
	for _, e := range edges {
		if e.poly[0] != e.poly[1] {
			p0 := polys[e.poly[0]*vertsPerPoly*2:]
			p1 := polys[e.poly[1]*vertsPerPoly*2:]
			p0[vertsPerPoly+e.polyEdge[0]] = e.poly[1]
			p1[vertsPerPoly+e.polyEdge[1]] = e.poly[0]
		}
	}
	return true
}

func computeVertexHash(x, y, z int) int {
	const (
		h1 uint32 = 0x8da6b343 // Large multiplicative constants;
		h2 uint32 = 0xd8163841 // here arbitrarily chosen primes
		h3 uint32 = 0xcb1ab31f
	)
	n := h1*uint32(x) + h2*uint32(y) + h3*uint32(z)
	return int(n & (vertexBucketCount - 1))
}

func addVertex(x, y, z int, verts, firstVert, nextVert []int, nv *int) int {
	bucket := computeVertexHash(x, 0, z)
	i := firstVert[bucket]
	for i != -1 {
		v := verts[i*3:]
		if v[0] == x && common.Abs(v[1]-y) <= 2 && v[2] == z {
			return i
		}
		i = nextVert[i] // next
	}

	// Could not find, create new.
	i = *nv
	*nv++
	v := verts[i*3:]
	v[0] = x
	v[1] = y
	v[2] = z
	nextVert[i] = firstVert[bucket]
	firstVert[bucket] = i
	return i
}

func polyVert(verts, indices []int, i int) []int {
	return verts[(indices[i]&indexMask)*4:]
}

// diagonalie reports whether (v_i, v_j) is a proper internal or external diagonal of P,
// ignoring edges incident to v_i and v_j.
func diagonalie(i, j, n int, verts, indices []int, loose bool) bool {
	d0 := polyVert(verts, indices, i)
	d1 := polyVert(verts, indices, j)

	// For each edge (k,k+1) of P
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		// Skip edges incident to i or j
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := polyVert(verts, indices, k)
		p1 := polyVert(verts, indices, k1)
		if vequal(d0, p0) || vequal(d1, p0) || vequal(d0, p1) || vequal(d1, p1) {
			continue
		}
		if loose {
			if intersectProp(d0, d1, p0, p1) {
				return false
			}
		} else if intersect(d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

// inCone reports whether the diagonal (i,j) is strictly internal to the polygon P in the
// neighborhood of the i endpoint.
func inCone(i, j, n int, verts, indices []int) bool {
	pi := polyVert(verts, indices, i)
	pj := polyVert(verts, indices, j)
	pi1 := polyVert(verts, indices, next(i, n))
	pin1 := polyVert(verts, indices, prev(i, n))

	// If P[i] is a convex vertex [ i+1 left or on (i-1,i) ].
	if leftOn(pin1, pi, pi1) {
		return left(pi, pj, pin1) && left(pj, pi, pi1)
	}
	// Assume (i-1,i,i+1) not collinear.
	// else P[i] is reflex.
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

func inConeLoose(i, j, n int, verts, indices []int) bool {
	pi := polyVert(verts, indices, i)
	pj := polyVert(verts, indices, j)
	pi1 := polyVert(verts, indices, next(i, n))
	pin1 := polyVert(verts, indices, prev(i, n))

	// If P[i] is a convex vertex [ i+1 left or on (i-1,i) ].
	if leftOn(pin1, pi, pi1) {
		return leftOn(pi, pj, pin1) && leftOn(pj, pi, pi1)
	}
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

// diagonal reports whether (v_i, v_j) is a proper internal diagonal of P.
func diagonal(i, j, n int, verts, indices []int) bool {
	return inCone(i, j, n, verts, indices) && diagonalie(i, j, n, verts, indices, false)
}

func diagonalLoose(i, j, n int, verts, indices []int) bool {
	return inConeLoose(i, j, n, verts, indices) && diagonalie(i, j, n, verts, indices, true)
}

// triangulate ear-clips the polygon described by indices into verts (stride 4) and
// returns the triangle count, negated if the contour could not be fully triangulated.
func triangulate(n int, verts, indices, tris []int) int {
	ntris := 0

	// The last bit of the index is used to indicate if the vertex can be removed.
	for i := 0; i < n; i++ {
		i1 := next(i, n)
		i2 := next(i1, n)
		if diagonal(i, i2, n, verts, indices) {
			indices[i1] |= indexRemovable
		}
	}

	for n > 3 {
		minLen := -1
		mini := -1
		for i := 0; i < n; i++ {
			i1 := next(i, n)
			if indices[i1]&indexRemovable != 0 {
				p0 := polyVert(verts, indices, i)
				p2 := polyVert(verts, indices, next(i1, n))
				dx := p2[0] - p0[0]
				dy := p2[2] - p0[2]
				l := dx*dx + dy*dy
				if minLen < 0 || l < minLen {
					minLen = l
					mini = i
				}
			}
		}

		if mini == -1 {
			// We might get here because the contour has overlapping segments.
			// Try to recover by loosing up the inCone test a bit so that a diagonal
			// can be found and we can continue.
			minLen = -1
			mini = -1
			for i := 0; i < n; i++ {
				i1 := next(i, n)
				i2 := next(i1, n)
				if diagonalLoose(i, i2, n, verts, indices) {
					p0 := polyVert(verts, indices, i)
					p2 := polyVert(verts, indices, next(i2, n))
					dx := p2[0] - p0[0]
					dy := p2[2] - p0[2]
					l := dx*dx + dy*dy
					if minLen < 0 || l < minLen {
						minLen = l
						mini = i
					}
				}
			}
			if mini == -1 {
				// The contour is messed up. This sometimes happens
				// if the contour simplification is too aggressive.
				return -ntris
			}
		}

		i := mini
		i1 := next(i, n)
		i2 := next(i1, n)

		tris[ntris*3+0] = indices[i] & indexMask
		tris[ntris*3+1] = indices[i1] & indexMask
		tris[ntris*3+2] = indices[i2] & indexMask
		ntris++

		// Removes P[i1] by copying P[i+1]...P[n-1] left one index.
		n--
		for k := i1; k < n; k++ {
			indices[k] = indices[k+1]
		}

		if i1 >= n {
			i1 = 0
		}
		i = prev(i1, n)
		// Update diagonal flags.
		if diagonal(prev(i, n), i1, n, verts, indices) {
			indices[i] |= indexRemovable
		} else {
			indices[i] &= indexMask
		}
		if diagonal(i, next(i1, n), n, verts, indices) {
			indices[i1] |= indexRemovable
		} else {
			indices[i1] &= indexMask
		}
	}

	// Append the remaining triangle.
	tris[ntris*3+0] = indices[0] & indexMask
	tris[ntris*3+1] = indices[1] & indexMask
	tris[ntris*3+2] = indices[2] & indexMask
	ntris++
	return ntris
}

func countPolyVerts(p []int, nvp int) int {
	for i := 0; i < nvp; i++ {
		if p[i] == RC_MESH_NULL_IDX {
			return i
		}
	}
	return nvp
}

func uleft(a, b, c []int) bool {
	return (b[0]-a[0])*(c[2]-a[2])-(c[0]-a[0])*(b[2]-a[2]) < 0
}

func getPolyMergeValue(pa, pb, verts []int, nvp int) (val, ea, eb int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)

	// If the merged polygon would be too big, do not merge.
	if na+nb-2 > nvp {
		return -1, 0, 0
	}

	// Check if the polygons share an edge.
	ea = -1
	eb = -1
	for i := 0; i < na; i++ {
		va0 := pa[i]
		va1 := pa[(i+1)%na]
		if va0 > va1 {
			va0, va1 = va1, va0
		}
		for j := 0; j < nb; j++ {
			vb0 := pb[j]
			vb1 := pb[(j+1)%nb]
			if vb0 > vb1 {
				vb0, vb1 = vb1, vb0
			}
			if va0 == vb0 && va1 == vb1 {
				ea = i
				eb = j
				break
			}
		}
	}

	// No common edge, cannot merge.
	if ea == -1 || eb == -1 {
		return -1, ea, eb
	}

	// Check to see if the merged polygon would be convex.
	va := pa[(ea+na-1)%na]
	vb := pa[ea]
	vc := pb[(eb+2)%nb]
	if !uleft(verts[va*3:], verts[vb*3:], verts[vc*3:]) {
		return -1, ea, eb
	}

	va = pb[(eb+nb-1)%nb]
	vb = pb[eb]
	vc = pa[(ea+2)%na]
	if !uleft(verts[va*3:], verts[vb*3:], verts[vc*3:]) {
		return -1, ea, eb
	}

	va = pa[ea]
	vb = pa[(ea+1)%na]

	dx := verts[va*3+0] - verts[vb*3+0]
	dy := verts[va*3+2] - verts[vb*3+2]
	return dx*dx + dy*dy, ea, eb
}

func mergePolyVerts(pa, pb []int, ea, eb int, tmp []int, nvp int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)

	// Merge polygons.
	for i := 0; i < nvp; i++ {
		tmp[i] = RC_MESH_NULL_IDX
	}
	n := 0
	// Add pa
	for i := 0; i < na-1; i++ {
		tmp[n] = pa[(ea+1+i)%na]
		n++
	}
	// Add pb
	for i := 0; i < nb-1; i++ {
		tmp[n] = pb[(eb+1+i)%nb]
		n++
	}
	copy(pa[:nvp], tmp[:nvp])
}

// mergePolys greedily merges the npolys polygons in polys (stride nvp) while the result
// stays convex. regs and areas, when not nil, are kept in step with the polygons.
func mergePolys(polys []int, npolys int, verts []int, nvp int, regs []int, areas []uint8) int {
	tmpPoly := make([]int, nvp)
	for {
		// Find best polygons to merge.
		bestMergeVal := 0
		bestPa, bestPb, bestEa, bestEb := 0, 0, 0, 0
		for j := 0; j < npolys-1; j++ {
			pj := polys[j*nvp:]
			for k := j + 1; k < npolys; k++ {
				pk := polys[k*nvp:]
				v, ea, eb := getPolyMergeValue(pj, pk, verts, nvp)
				if v > bestMergeVal {
					bestMergeVal = v
					bestPa = j
					bestPb = k
					bestEa = ea
					bestEb = eb
				}
			}
		}
		if bestMergeVal <= 0 {
			return npolys
		}

		// Found best, merge.
		pa := polys[bestPa*nvp:]
		pb := polys[bestPb*nvp:]
		mergePolyVerts(pa, pb, bestEa, bestEb, tmpPoly, nvp)
		if regs != nil && regs[bestPa] != regs[bestPb] {
			regs[bestPa] = RC_MULTIPLE_REGS
		}
		last := polys[(npolys-1)*nvp:]
		if bestPb != npolys-1 {
			copy(pb[:nvp], last[:nvp])
		}
		if regs != nil {
			regs[bestPb] = regs[npolys-1]
		}
		if areas != nil {
			areas[bestPb] = areas[npolys-1]
		}
		npolys--
	}
}

func canRemoveVertex(mesh *RcPolyMesh, rem int) bool {
	nvp := mesh.Nvp

	// Count number of polygons to remove.
	numTouchedVerts := 0
	numRemainingEdges := 0
	for i := 0; i < mesh.Npolys; i++ {
		p := mesh.Polys[i*nvp*2:]
		nv := countPolyVerts(p, nvp)
		numRemoved := 0
		numVerts := 0
		for j := 0; j < nv; j++ {
			if p[j] == rem {
				numTouchedVerts++
				numRemoved++
			}
			numVerts++
		}
		if numRemoved > 0 {
			numRemainingEdges += numVerts - (numRemoved + 1)
		}
	}

	// There would be too few edges remaining to create a polygon.
	// This can happen for example when a tip of a triangle is marked
	// as deletion, but there are no other polys that share the vertex.
	// In this case, the vertex should not be removed.
	if numRemainingEdges <= 2 {
		return false
	}

	// Find edges which share the removed vertex.
	edges := make([]int, 0, numTouchedVerts*2*3)
	for i := 0; i < mesh.Npolys; i++ {
		p := mesh.Polys[i*nvp*2:]
		nv := countPolyVerts(p, nvp)

		// Collect edges which touches the removed vertex.
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			if p[j] == rem || p[k] == rem {
				// Arrange edge so that a=rem.
				a := p[j]
				b := p[k]
				if b == rem {
					a, b = b, a
				}

				// Check if the edge exists
				exists := false
				for m := 0; m < len(edges)/3; m++ {
					e := edges[m*3:]
					if e[1] == b {
						// Exists, increment vertex share count.
						e[2]++
						exists = true
					}
				}
				// Add new edge.
				if !exists {
					edges = append(edges, a, b, 1)
				}
			}
		}
	}

	// There should be no more than 2 open edges.
	// This catches the case that two non-adjacent polygons
	// share the removed vertex. In that case, do not remove the vertex.
	numOpenEdges := 0
	for i := 0; i < len(edges)/3; i++ {
		if edges[i*3+2] < 2 {
			numOpenEdges++
		}
	}
	return numOpenEdges <= 2
}

func removeVertex(ctx *RcContext, mesh *RcPolyMesh, rem int, maxTris int) bool {
	nvp := mesh.Nvp

	var edges []int // (a, b, reg, area) * n
	for i := 0; i < mesh.Npolys; i++ {
		p := mesh.Polys[i*nvp*2:]
		nv := countPolyVerts(p, nvp)
		hasRem := false
		for j := 0; j < nv; j++ {
			if p[j] == rem {
				hasRem = true
			}
		}
		if !hasRem {
			continue
		}
		// Collect edges which does not touch the removed vertex.
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			if p[j] != rem && p[k] != rem {
				edges = append(edges, p[k], p[j], mesh.Regs[i], int(mesh.Areas[i]))
			}
		}
		// Remove the polygon.
		last := mesh.Npolys - 1
		if i != last {
			copy(p[:nvp], mesh.Polys[last*nvp*2:last*nvp*2+nvp])
		}
		for j := nvp; j < nvp*2; j++ {
			p[j] = RC_MESH_NULL_IDX
		}
		mesh.Regs[i] = mesh.Regs[last]
		mesh.Areas[i] = mesh.Areas[last]
		mesh.Npolys--
		i--
	}

	// Remove vertex.
	for i := rem; i < mesh.Nverts-1; i++ {
		mesh.Verts[i*3+0] = mesh.Verts[(i+1)*3+0]
		mesh.Verts[i*3+1] = mesh.Verts[(i+1)*3+1]
		mesh.Verts[i*3+2] = mesh.Verts[(i+1)*3+2]
	}
	mesh.Nverts--

	// Adjust indices to match the removed vertex layout.
	for i := 0; i < mesh.Npolys; i++ {
		p := mesh.Polys[i*nvp*2:]
		nv := countPolyVerts(p, nvp)
		for j := 0; j < nv; j++ {
			if p[j] > rem {
				p[j]--
			}
		}
	}
	nedges := len(edges) / 4
	for i := 0; i < nedges; i++ {
		if edges[i*4+0] > rem {
			edges[i*4+0]--
		}
		if edges[i*4+1] > rem {
			edges[i*4+1]--
		}
	}

	if nedges == 0 {
		return true
	}

	// Start with one vertex, keep appending connected
	// segments to the start and end of the hole.
	hole := []int{edges[0]}
	hreg := []int{edges[2]}
	harea := []int{edges[3]}

	for nedges > 0 {
		match := false
		for i := 0; i < nedges; i++ {
			ea := edges[i*4+0]
			eb := edges[i*4+1]
			r := edges[i*4+2]
			a := edges[i*4+3]
			add := false
			if hole[0] == eb {
				// The segment matches the beginning of the hole boundary.
				hole = slices.Insert(hole, 0, ea)
				hreg = slices.Insert(hreg, 0, r)
				harea = slices.Insert(harea, 0, a)
				add = true
			} else if hole[len(hole)-1] == ea {
				// The segment matches the end of the hole boundary.
				hole = append(hole, eb)
				hreg = append(hreg, r)
				harea = append(harea, a)
				add = true
			}
			if add {
				// The edge segment was added, remove it.
				copy(edges[i*4:i*4+4], edges[(nedges-1)*4:nedges*4])
				nedges--
				match = true
				i--
			}
		}
		if !match {
			break
		}
	}

	nhole := len(hole)
	tris := make([]int, nhole*3)
	tverts := make([]int, nhole*4)
	thole := make([]int, nhole)

	// Generate temp vertex array for triangulation.
	for i, pi := range hole {
		tverts[i*4+0] = mesh.Verts[pi*3+0]
		tverts[i*4+1] = mesh.Verts[pi*3+1]
		tverts[i*4+2] = mesh.Verts[pi*3+2]
		tverts[i*4+3] = 0
		thole[i] = i
	}

	// Triangulate the hole.
	ntris := triangulate(nhole, tverts, thole, tris)
	if ntris < 0 {
		ntris = -ntris
		ctx.Log(RC_LOG_WARNING, "removeVertex: triangulate() returned bad results.")
	}

	// Merge the hole triangles back to polygons.
	polys := make([]int, (ntris+1)*nvp)
	pregs := make([]int, ntris)
	pareas := make([]uint8, ntris)
	for i := range polys {
		polys[i] = RC_MESH_NULL_IDX
	}

	// Build initial polygons.
	npolys := 0
	for j := 0; j < ntris; j++ {
		t := tris[j*3:]
		if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
			polys[npolys*nvp+0] = hole[t[0]]
			polys[npolys*nvp+1] = hole[t[1]]
			polys[npolys*nvp+2] = hole[t[2]]

			// If this polygon covers multiple region types then mark it as such
			if hreg[t[0]] != hreg[t[1]] || hreg[t[1]] != hreg[t[2]] {
				pregs[npolys] = RC_MULTIPLE_REGS
			} else {
				pregs[npolys] = hreg[t[0]]
			}
			pareas[npolys] = uint8(harea[t[0]])
			npolys++
		}
	}
	if npolys == 0 {
		return true
	}

	// Merge polygons.
	if nvp > 3 {
		npolys = mergePolys(polys, npolys, mesh.Verts, nvp, pregs, pareas)
	}

	// Store polygons.
	for i := 0; i < npolys; i++ {
		if mesh.Npolys >= maxTris {
			break
		}
		p := mesh.Polys[mesh.Npolys*nvp*2:]
		for j := 0; j < nvp*2; j++ {
			p[j] = RC_MESH_NULL_IDX
		}
		copy(p[:nvp], polys[i*nvp:i*nvp+nvp])
		mesh.Regs[mesh.Npolys] = pregs[i]
		mesh.Areas[mesh.Npolys] = pareas[i]
		mesh.Npolys++
		if mesh.Npolys > maxTris {
			ctx.Log(RC_LOG_ERROR, "removeVertex: Too many polygons %d (max:%d).", mesh.Npolys, maxTris)
			return false
		}
	}
	return true
}

// RcBuildPolyMesh builds a polygon mesh from the provided contours.
func RcBuildPolyMesh(ctx *RcContext, cset *RcContourSet, nvp int) (*RcPolyMesh, bool) {
	ctx.StartTimer(RC_TIMER_BUILD_POLYMESH)
	defer ctx.StopTimer(RC_TIMER_BUILD_POLYMESH)

	mesh := &RcPolyMesh{
		Bmin:         cset.Bmin,
		Bmax:         cset.Bmax,
		Cs:           cset.Cs,
		Ch:           cset.Ch,
		BorderSize:   cset.BorderSize,
		MaxEdgeError: cset.MaxError,
		Nvp:          nvp,
	}

	maxVertices := 0
	maxTris := 0
	maxVertsPerCont := 0
	for i := range cset.Conts {
		// Skip null contours.
		if cset.Conts[i].Nverts < 3 {
			continue
		}
		maxVertices += cset.Conts[i].Nverts
		maxTris += cset.Conts[i].Nverts - 2
		maxVertsPerCont = max(maxVertsPerCont, cset.Conts[i].Nverts)
	}

	if maxVertices >= 0xfffe {
		ctx.Log(RC_LOG_ERROR, "rcBuildPolyMesh: Too many vertices %d.", maxVertices)
		return nil, false
	}

	vflags := make([]uint8, maxVertices)
	mesh.Verts = make([]int, maxVertices*3)
	mesh.Polys = make([]int, maxTris*nvp*2)
	mesh.Regs = make([]int, maxTris)
	mesh.Areas = make([]uint8, maxTris)
	mesh.Maxpolys = maxTris
	for i := range mesh.Polys {
		mesh.Polys[i] = RC_MESH_NULL_IDX
	}

	nextVert := make([]int, maxVertices)
	firstVert := make([]int, vertexBucketCount)
	for i := range firstVert {
		firstVert[i] = -1
	}

	indices := make([]int, maxVertsPerCont)
	tris := make([]int, maxVertsPerCont*3)
	polys := make([]int, maxVertsPerCont*nvp)

	for i := range cset.Conts {
		cont := &cset.Conts[i]
		// Skip null contours.
		if cont.Nverts < 3 {
			continue
		}

		// Triangulate contour
		for j := 0; j < cont.Nverts; j++ {
			indices[j] = j
		}
		ntris := triangulate(cont.Nverts, cont.Verts, indices, tris)
		if ntris <= 0 {
			// Bad triangulation, should not happen.
			ctx.Log(RC_LOG_WARNING, "rcBuildPolyMesh: Bad triangulation Contour %d.", i)
			ntris = -ntris
		}

		// Add and merge vertices.
		for j := 0; j < cont.Nverts; j++ {
			v := cont.Verts[j*4:]
			indices[j] = addVertex(v[0], v[1], v[2], mesh.Verts, firstVert, nextVert, &mesh.Nverts)
			if v[3]&RC_BORDER_VERTEX != 0 {
				// This vertex should be removed.
				vflags[indices[j]] = 1
			}
		}

		// Build initial polygons.
		npolys := 0
		for j := range polys {
			polys[j] = RC_MESH_NULL_IDX
		}
		for j := 0; j < ntris; j++ {
			t := tris[j*3:]
			if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
				polys[npolys*nvp+0] = indices[t[0]]
				polys[npolys*nvp+1] = indices[t[1]]
				polys[npolys*nvp+2] = indices[t[2]]
				npolys++
			}
		}
		if npolys == 0 {
			continue
		}

		// Merge polygons.
		if nvp > 3 {
			npolys = mergePolys(polys, npolys, mesh.Verts, nvp, nil, nil)
		}

		// Store polygons.
		for j := 0; j < npolys; j++ {
			p := mesh.Polys[mesh.Npolys*nvp*2:]
			copy(p[:nvp], polys[j*nvp:j*nvp+nvp])
			mesh.Regs[mesh.Npolys] = cont.Reg
			mesh.Areas[mesh.Npolys] = cont.Area
			mesh.Npolys++
			if mesh.Npolys > maxTris {
				ctx.Log(RC_LOG_ERROR, "rcBuildPolyMesh: Too many polygons %d (max:%d).", mesh.Npolys, maxTris)
				return nil, false
			}
		}
	}

	// Remove edge vertices.
	for i := 0; i < mesh.Nverts; i++ {
		if vflags[i] == 0 {
			continue
		}
		if !canRemoveVertex(mesh, i) {
			continue
		}
		if !removeVertex(ctx, mesh, i, maxTris) {
			// Failed to remove vertex
			ctx.Log(RC_LOG_ERROR, "rcBuildPolyMesh: Failed to remove edge vertex %d.", i)
			return nil, false
		}
		// Remove vertex
		// Note: mesh.Nverts is already decremented inside removeVertex()!
		// Fixup vertex flags
		copy(vflags[i:mesh.Nverts], vflags[i+1:mesh.Nverts+1])
		i--
	}

	// Calculate adjacency.
	if !buildMeshAdjacency(mesh.Polys, mesh.Npolys, mesh.Nverts, nvp) {
		ctx.Log(RC_LOG_ERROR, "rcBuildPolyMesh: Adjacency failed.")
		return nil, false
	}

	// Find portal edges
	if mesh.BorderSize > 0 {
		w := cset.Width
		h := cset.Height
		for i := 0; i < mesh.Npolys; i++ {
			p := mesh.Polys[i*2*nvp:]
			for j := 0; j < nvp; j++ {
				if p[j] == RC_MESH_NULL_IDX {
					break
				}
				// Skip connected edges.
				if p[nvp+j] != RC_MESH_NULL_IDX {
					continue
				}
				nj := j + 1
				if nj >= nvp || p[nj] == RC_MESH_NULL_IDX {
					nj = 0
				}
				va := mesh.Verts[p[j]*3:]
				vb := mesh.Verts[p[nj]*3:]

				if va[0] == 0 && vb[0] == 0 {
					p[nvp+j] = 0x8000 | 0
				} else if va[2] == h && vb[2] == h {
					p[nvp+j] = 0x8000 | 1
				} else if va[0] == w && vb[0] == w {
					p[nvp+j] = 0x8000 | 2
				} else if va[2] == 0 && vb[2] == 0 {
					p[nvp+j] = 0x8000 | 3
				}
			}
		}
	}

	// Just allocate the mesh flags array. The user is responsible to fill it.
	mesh.Flags = make([]uint16, mesh.Maxpolys)

	if mesh.Nverts > 0xffff {
		ctx.Log(RC_LOG_ERROR, "rcBuildPolyMesh: The resulting mesh has too many vertices %d (max %d). Data can be corrupted.", mesh.Nverts, 0xffff)
	}
	if mesh.Npolys > 0xffff {
		ctx.Log(RC_LOG_ERROR, "rcBuildPolyMesh: The resulting mesh has too many polygons %d (max %d). Data can be corrupted.", mesh.Npolys, 0xffff)
	}
	return mesh, true
}

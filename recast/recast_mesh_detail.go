package recast

import (
	"math"

	"github.com/gorustyt/tilemesh/common"
)

const RC_UNSET_HEIGHT = 0xffff

// RcPolyMeshDetail contains triangle meshes that represent detailed height data associated
// with the polygons in its associated polygon mesh object.
type RcPolyMeshDetail struct {
	Meshes  []uint32  ///< The sub-mesh data. [(baseVertIndex, vertCount, baseTriIndex, triCount) * #Nmeshes]
	Verts   []float32 ///< The mesh vertices. [(x, y, z) * #Nverts]
	Tris    []uint8   ///< The mesh triangles. [(vertIndexA, vertIndexB, vertIndexC, flags) * #Ntris]
	Nmeshes int       ///< The number of sub-meshes defined by #Meshes.
	Nverts  int       ///< The number of vertices in #Verts.
	Ntris   int       ///< The number of triangles in #Tris.
}

type rcHeightPatch struct {
	data                      []int
	xmin, ymin, width, height int
}

func vdot2(a, b []float32) float32 {
	return a[0]*b[0] + a[2]*b[2]
}

func vdistSq2(p, q []float32) float32 {
	dx := q[0] - p[0]
	dy := q[2] - p[2]
	return dx*dx + dy*dy
}

func vdist2(p, q []float32) float32 {
	return common.Sqrtf(vdistSq2(p, q))
}

func vcross2(p1, p2, p3 []float32) float32 {
	u1 := p2[0] - p1[0]
	v1 := p2[2] - p1[2]
	u2 := p3[0] - p1[0]
	v2 := p3[2] - p1[2]
	return u1*v2 - v1*u2
}

// circumCircle writes the xz circumcenter of the triangle to c and returns its radius.
func circumCircle(p1, p2, p3, c []float32) (float32, bool) {
	const EPS = 1e-6
	// Calculate the circle relative to p1, to avoid some precision issues.
	var v1, v2, v3 [3]float32
	common.Vsub(v2[:], p2, p1)
	common.Vsub(v3[:], p3, p1)

	cp := vcross2(v1[:], v2[:], v3[:])
	if common.Abs(cp) > EPS {
		v1Sq := vdot2(v1[:], v1[:])
		v2Sq := vdot2(v2[:], v2[:])
		v3Sq := vdot2(v3[:], v3[:])
		c[0] = (v1Sq*(v2[2]-v3[2]) + v2Sq*(v3[2]-v1[2]) + v3Sq*(v1[2]-v2[2])) / (2 * cp)
		c[1] = 0
		c[2] = (v1Sq*(v3[0]-v2[0]) + v2Sq*(v1[0]-v3[0]) + v3Sq*(v2[0]-v1[0])) / (2 * cp)
		r := vdist2(c, v1[:])
		common.Vadd(c, c, p1)
		return r, true
	}
	common.Vcopy(c, p1)
	return 0, false
}

func distPtTri(p, a, b, c []float32) float32 {
	var v0, v1, v2 [3]float32
	common.Vsub(v0[:], c, a)
	common.Vsub(v1[:], b, a)
	common.Vsub(v2[:], p, a)

	dot00 := vdot2(v0[:], v0[:])
	dot01 := vdot2(v0[:], v1[:])
	dot02 := vdot2(v0[:], v2[:])
	dot11 := vdot2(v1[:], v1[:])
	dot12 := vdot2(v1[:], v2[:])

	// Compute barycentric coordinates
	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	// If point lies inside the triangle, return interpolated y-coord.
	const EPS = 1e-4
	if u >= -EPS && v >= -EPS && (u+v) <= 1+EPS {
		y := a[1] + v0[1]*u + v1[1]*v
		return common.Abs(y - p[1])
	}
	return math.MaxFloat32
}

func distPtSeg(pt, p, q []float32) float32 {
	pqx := q[0] - p[0]
	pqy := q[1] - p[1]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dy := pt[1] - p[1]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqy*pqy + pqz*pqz
	t := pqx*dx + pqy*dy + pqz*dz
	if d > 0 {
		t /= d
	}
	t = common.Clamp(t, 0, 1)

	dx = p[0] + t*pqx - pt[0]
	dy = p[1] + t*pqy - pt[1]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dy*dy + dz*dz
}

func distPtSeg2d(pt, p, q []float32) float32 {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = common.Clamp(t, 0, 1)

	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dz*dz
}

func distToTriMesh(p, verts []float32, tris []int) float32 {
	dmin := float32(math.MaxFloat32)
	for i := 0; i < len(tris)/4; i++ {
		va := verts[tris[i*4+0]*3:]
		vb := verts[tris[i*4+1]*3:]
		vc := verts[tris[i*4+2]*3:]
		d := distPtTri(p, va, vb, vc)
		if d < dmin {
			dmin = d
		}
	}
	if dmin == math.MaxFloat32 {
		return -1
	}
	return dmin
}

// distToPoly returns the xz distance to the polygon outline, negative when p is inside.
func distToPoly(nvert int, verts, p []float32) float32 {
	dmin := float32(math.MaxFloat32)
	c := false
	for i, j := 0, nvert-1; i < nvert; j, i = i, i+1 {
		vi := verts[i*3:]
		vj := verts[j*3:]
		if ((vi[2] > p[2]) != (vj[2] > p[2])) &&
			(p[0] < (vj[0]-vi[0])*(p[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
		dmin = min(dmin, distPtSeg2d(p, vj, vi))
	}
	if c {
		return -dmin
	}
	return dmin
}

func getHeight(fx, fy, fz, cs, ics, ch float32, radius int, hp *rcHeightPatch) int {
	ix := int(math.Floor(float64(fx*ics + 0.01)))
	iz := int(math.Floor(float64(fz*ics + 0.01)))
	ix = common.Clamp(ix-hp.xmin, 0, hp.width-1)
	iz = common.Clamp(iz-hp.ymin, 0, hp.height-1)
	h := hp.data[ix+iz*hp.width]
	if h != RC_UNSET_HEIGHT {
		return h
	}

	// Special case when data might be bad.
	// Walk adjacent cells in a spiral up to 'radius', and look
	// for a pixel which has a valid height.
	x, z, dx, dz := 1, 0, 1, 0
	maxSize := radius*2 + 1
	maxIter := maxSize*maxSize - 1

	nextRingIterStart := 8
	nextRingIters := 16

	dmin := float32(math.MaxFloat32)
	for i := 0; i < maxIter; i++ {
		nx := ix + x
		nz := iz + z

		if nx >= 0 && nz >= 0 && nx < hp.width && nz < hp.height {
			nh := hp.data[nx+nz*hp.width]
			if nh != RC_UNSET_HEIGHT {
				d := common.Abs(float32(nh)*ch - fy)
				if d < dmin {
					h = nh
					dmin = d
				}
			}
		}

		// The spiral visits rings of growing size. Once a ring is complete
		// and a height was found, the closest one is good enough.
		if i+1 == nextRingIterStart {
			if h != RC_UNSET_HEIGHT {
				break
			}
			nextRingIterStart += nextRingIters
			nextRingIters += 8
		}

		if x == z || (x < 0 && x == -z) || (x > 0 && x == 1-z) {
			dx, dz = -dz, dx
		}
		x += dx
		z += dz
	}
	return h
}

const (
	evUndef = -1
	evHull  = -2
)

func findEdge(edges []int, s, t int) int {
	for i := 0; i < len(edges)/4; i++ {
		e := edges[i*4:]
		if (e[0] == s && e[1] == t) || (e[0] == t && e[1] == s) {
			return i
		}
	}
	return evUndef
}

func addEdge(ctx *RcContext, edges *[]int, maxEdges, s, t, l, r int) int {
	nedges := len(*edges) / 4
	if nedges >= maxEdges {
		ctx.Log(RC_LOG_ERROR, "addEdge: Too many edges (%d/%d).", nedges, maxEdges)
		return evUndef
	}

	// Add edge if not already in the triangulation.
	e := findEdge(*edges, s, t)
	if e == evUndef {
		*edges = append(*edges, s, t, l, r)
		return nedges
	}
	return evUndef
}

func updateLeftFace(e []int, s, t, f int) {
	if e[0] == s && e[1] == t && e[2] == evUndef {
		e[2] = f
	} else if e[1] == s && e[0] == t && e[3] == evUndef {
		e[3] = f
	}
}

func overlapSegSeg2d(a, b, c, d []float32) bool {
	a1 := vcross2(a, b, d)
	a2 := vcross2(a, b, c)
	if a1*a2 < 0 {
		a3 := vcross2(c, d, a)
		a4 := a3 + a2 - a1
		if a3*a4 < 0 {
			return true
		}
	}
	return false
}

func overlapEdges(pts []float32, edges []int, s1, t1 int) bool {
	for i := 0; i < len(edges)/4; i++ {
		s0 := edges[i*4+0]
		t0 := edges[i*4+1]
		// Same or connected edges do not overlap.
		if s0 == s1 || s0 == t1 || t0 == s1 || t0 == t1 {
			continue
		}
		if overlapSegSeg2d(pts[s0*3:], pts[t0*3:], pts[s1*3:], pts[t1*3:]) {
			return true
		}
	}
	return false
}

func completeFacet(ctx *RcContext, pts []float32, npts int, edges *[]int, maxEdges int, nfaces *int, e int) {
	const EPS = 1e-5

	edge := (*edges)[e*4:]

	// Cache s and t.
	var s, t int
	if edge[2] == evUndef {
		s = edge[0]
		t = edge[1]
	} else if edge[3] == evUndef {
		s = edge[1]
		t = edge[0]
	} else {
		// Edge already completed.
		return
	}

	// Find best point on left of edge.
	pt := npts
	var c [3]float32
	r := float32(-1)
	for u := 0; u < npts; u++ {
		if u == s || u == t {
			continue
		}
		if vcross2(pts[s*3:], pts[t*3:], pts[u*3:]) <= EPS {
			continue
		}
		if r < 0 {
			// The circle is not updated yet, do it now.
			pt = u
			r, _ = circumCircle(pts[s*3:], pts[t*3:], pts[u*3:], c[:])
			continue
		}
		d := vdist2(c[:], pts[u*3:])
		const tol = 0.001
		if d > r*(1+tol) {
			// Outside current circumcircle, skip.
			continue
		} else if d < r*(1-tol) {
			// Inside safe circumcircle, update circle.
			pt = u
			r, _ = circumCircle(pts[s*3:], pts[t*3:], pts[u*3:], c[:])
		} else {
			// Inside epsilon circumcircle, do extra tests to make sure the edge is valid.
			// s-u and t-u cannot overlap with s-pt nor t-pt if they exists.
			if overlapEdges(pts, *edges, s, u) {
				continue
			}
			if overlapEdges(pts, *edges, t, u) {
				continue
			}
			// Edge is valid.
			pt = u
			r, _ = circumCircle(pts[s*3:], pts[t*3:], pts[u*3:], c[:])
		}
	}

	// Add new triangle or update edge info if s-t is on hull.
	if pt < npts {
		// Update face information of edge being completed.
		updateLeftFace((*edges)[e*4:], s, t, *nfaces)

		// Add new edge or update face info of old edge.
		e = findEdge(*edges, pt, s)
		if e == evUndef {
			addEdge(ctx, edges, maxEdges, pt, s, *nfaces, evUndef)
		} else {
			updateLeftFace((*edges)[e*4:], pt, s, *nfaces)
		}

		// Add new edge or update face info of old edge.
		e = findEdge(*edges, t, pt)
		if e == evUndef {
			addEdge(ctx, edges, maxEdges, t, pt, *nfaces, evUndef)
		} else {
			updateLeftFace((*edges)[e*4:], t, pt, *nfaces)
		}

		*nfaces++
	} else {
		updateLeftFace((*edges)[e*4:], s, t, evHull)
	}
}

func delaunayHull(ctx *RcContext, npts int, pts []float32, hull []int, tris, edges []int) ([]int, []int) {
	nfaces := 0
	maxEdges := npts * 10
	edges = edges[:0]

	for i, j := 0, len(hull)-1; i < len(hull); j, i = i, i+1 {
		addEdge(ctx, &edges, maxEdges, hull[j], hull[i], evHull, evUndef)
	}

	for currentEdge := 0; currentEdge < len(edges)/4; currentEdge++ {
		if edges[currentEdge*4+2] == evUndef {
			completeFacet(ctx, pts, npts, &edges, maxEdges, &nfaces, currentEdge)
		}
		if edges[currentEdge*4+3] == evUndef {
			completeFacet(ctx, pts, npts, &edges, maxEdges, &nfaces, currentEdge)
		}
	}

	// Create tris
	tris = tris[:0]
	for i := 0; i < nfaces*4; i++ {
		tris = append(tris, -1)
	}

	for i := 0; i < len(edges)/4; i++ {
		e := edges[i*4:]
		if e[3] >= 0 {
			// Left face
			t := tris[e[3]*4:]
			if t[0] == -1 {
				t[0] = e[0]
				t[1] = e[1]
			} else if t[0] == e[1] {
				t[2] = e[0]
			} else if t[1] == e[0] {
				t[2] = e[1]
			}
		}
		if e[2] >= 0 {
			// Right
			t := tris[e[2]*4:]
			if t[0] == -1 {
				t[0] = e[1]
				t[1] = e[0]
			} else if t[0] == e[0] {
				t[2] = e[1]
			} else if t[1] == e[1] {
				t[2] = e[0]
			}
		}
	}

	for i := 0; i < len(tris)/4; i++ {
		t := tris[i*4:]
		if t[0] == -1 || t[1] == -1 || t[2] == -1 {
			ctx.Log(RC_LOG_WARNING, "delaunayHull: Removing dangling face %d [%d,%d,%d].", i, t[0], t[1], t[2])
			n := len(tris)
			copy(t[:4], tris[n-4:])
			tris = tris[:n-4]
			i--
		}
	}
	return tris, edges
}

// polyMinExtent calculates the minimum extent of the polygon.
func polyMinExtent(verts []float32, nverts int) float32 {
	minDist := float32(math.MaxFloat32)
	for i := 0; i < nverts; i++ {
		ni := (i + 1) % nverts
		p1 := verts[i*3:]
		p2 := verts[ni*3:]
		maxEdgeDist := float32(0)
		for j := 0; j < nverts; j++ {
			if j == i || j == ni {
				continue
			}
			d := distPtSeg2d(verts[j*3:], p1, p2)
			maxEdgeDist = max(maxEdgeDist, d)
		}
		minDist = min(minDist, maxEdgeDist)
	}
	return common.Sqrtf(minDist)
}

func triangulateHull(verts []float32, hull []int, nin int, tris []int) []int {
	nhull := len(hull)
	start, left, right := 0, 1, nhull-1

	// Start from an ear with shortest perimeter.
	// This tends to favor well formed triangles as starting point.
	dmin := float32(math.MaxFloat32)
	for i := 0; i < nhull; i++ {
		if hull[i] >= nin {
			// Ears are triangles with original vertices as middle vertex while others are actually line segments on edges
			continue
		}
		pi := prev(i, nhull)
		ni := next(i, nhull)
		pv := verts[hull[pi]*3:]
		cv := verts[hull[i]*3:]
		nv := verts[hull[ni]*3:]
		d := vdist2(pv, cv) + vdist2(cv, nv) + vdist2(nv, pv)
		if d < dmin {
			start = i
			left = ni
			right = pi
			dmin = d
		}
	}

	// Add first triangle
	tris = append(tris, hull[start], hull[left], hull[right], 0)

	// Triangulate the polygon by moving left or right,
	// depending on which triangle has shorter perimeter.
	for next(left, nhull) != right {
		// Check to see if se should advance left or right.
		nleft := next(left, nhull)
		nright := prev(right, nhull)

		cvleft := verts[hull[left]*3:]
		nvleft := verts[hull[nleft]*3:]
		cvright := verts[hull[right]*3:]
		nvright := verts[hull[nright]*3:]
		dleft := vdist2(cvleft, nvleft) + vdist2(nvleft, cvright)
		dright := vdist2(cvright, nvright) + vdist2(cvleft, nvright)

		if dleft < dright {
			tris = append(tris, hull[left], hull[nleft], hull[right], 0)
			left = nleft
		} else {
			tris = append(tris, hull[left], hull[nright], hull[right], 0)
			right = nright
		}
	}
	return tris
}

func getJitterX(i int) float32 {
	return (float32((uint32(i)*0x8da6b343)&0xffff) / 65535.0 * 2.0) - 1.0
}

func getJitterY(i int) float32 {
	return (float32((uint32(i)*0xd8163841)&0xffff) / 65535.0 * 2.0) - 1.0
}

func onHull(a, b int, hull []int) bool {
	// All internal sampled points come after the hull so we can early out for those.
	if a >= len(hull) || b >= len(hull) {
		return false
	}
	for j, i := len(hull)-1, 0; i < len(hull); j, i = i, i+1 {
		if a == hull[j] && b == hull[i] {
			return true
		}
	}
	return false
}

// setTriFlags marks the triangle edges lying on the polygon hull.
func setTriFlags(tris []int, hull []int) {
	// Matches DT_DETAIL_EDGE_BOUNDARY
	const detailEdgeBoundary = 0x1
	for i := 0; i < len(tris); i += 4 {
		a := tris[i+0]
		b := tris[i+1]
		c := tris[i+2]
		flags := 0
		if onHull(a, b, hull) {
			flags |= detailEdgeBoundary << 0
		}
		if onHull(b, c, hull) {
			flags |= detailEdgeBoundary << 2
		}
		if onHull(c, a, hull) {
			flags |= detailEdgeBoundary << 4
		}
		tris[i+3] = flags
	}
}

const (
	detailMaxVerts        = 127
	detailMaxTris         = 255 // Max tris for delaunay is 2n-2-k (n=num verts, k=num hull verts).
	detailMaxVertsPerEdge = 32
)

type detailScratch struct {
	verts   []float32
	hull    []int
	tris    []int
	edges   []int
	samples []int
	queue   []int
}

func newDetailScratch() *detailScratch {
	return &detailScratch{
		verts: make([]float32, 256*3),
		hull:  make([]int, 0, detailMaxVerts),
	}
}

// buildPolyDetail samples the polygon in into s.verts and triangulates it into s.tris.
func buildPolyDetail(ctx *RcContext, in []float32, nin int, sampleDist, sampleMaxError float32,
	heightSearchRadius int, chf *RcCompactHeightfield, hp *rcHeightPatch, s *detailScratch) int {
	var edge [(detailMaxVertsPerEdge + 1) * 3]float32
	verts := s.verts
	hull := s.hull[:0]
	nverts := nin
	copy(verts, in[:nin*3])
	s.edges = s.edges[:0]
	s.tris = s.tris[:0]

	cs := chf.Cs
	ics := 1.0 / cs

	// Calculate minimum extents of the polygon based on input data.
	minExtent := polyMinExtent(verts, nverts)

	// Tessellate outlines.
	// This is done in separate pass in order to ensure
	// seamless height values across the ply boundaries.
	if sampleDist > 0 {
		for i, j := 0, nin-1; i < nin; j, i = i, i+1 {
			vj := in[j*3:]
			vi := in[i*3:]
			swapped := false
			// Make sure the segments are always handled in same order
			// using lexological sort or else there will be seams.
			if common.Abs(vj[0]-vi[0]) < 1e-6 {
				if vj[2] > vi[2] {
					vj, vi = vi, vj
					swapped = true
				}
			} else if vj[0] > vi[0] {
				vj, vi = vi, vj
				swapped = true
			}
			// Create samples along the edge.
			dx := vi[0] - vj[0]
			dy := vi[1] - vj[1]
			dz := vi[2] - vj[2]
			d := common.Sqrtf(dx*dx + dz*dz)
			nn := 1 + int(math.Floor(float64(d/sampleDist)))
			if nn >= detailMaxVertsPerEdge {
				nn = detailMaxVertsPerEdge - 1
			}
			if nverts+nn >= detailMaxVerts {
				nn = detailMaxVerts - 1 - nverts
			}

			for k := 0; k <= nn; k++ {
				u := float32(k) / float32(nn)
				pos := edge[k*3:]
				pos[0] = vj[0] + dx*u
				pos[1] = vj[1] + dy*u
				pos[2] = vj[2] + dz*u
				pos[1] = float32(getHeight(pos[0], pos[1], pos[2], cs, ics, chf.Ch, heightSearchRadius, hp)) * chf.Ch
			}
			// Simplify samples.
			var idx [detailMaxVertsPerEdge]int
			idx[0] = 0
			idx[1] = nn
			nidx := 2
			for k := 0; k < nidx-1; {
				a := idx[k]
				b := idx[k+1]
				va := edge[a*3:]
				vb := edge[b*3:]
				// Find maximum deviation along the segment.
				maxd := float32(0)
				maxi := -1
				for m := a + 1; m < b; m++ {
					dev := distPtSeg(edge[m*3:], va, vb)
					if dev > maxd {
						maxd = dev
						maxi = m
					}
				}
				// If the max deviation is larger than accepted error,
				// add new point, else continue to next segment.
				if maxi != -1 && maxd > common.Sqr(sampleMaxError) {
					for m := nidx; m > k; m-- {
						idx[m] = idx[m-1]
					}
					idx[k+1] = maxi
					nidx++
				} else {
					k++
				}
			}

			hull = append(hull, j)
			// Add new vertices.
			if swapped {
				for k := nidx - 2; k > 0; k-- {
					copy(verts[nverts*3:nverts*3+3], edge[idx[k]*3:])
					hull = append(hull, nverts)
					nverts++
				}
			} else {
				for k := 1; k < nidx-1; k++ {
					copy(verts[nverts*3:nverts*3+3], edge[idx[k]*3:])
					hull = append(hull, nverts)
					nverts++
				}
			}
		}
	} else {
		for i := 0; i < nin; i++ {
			hull = append(hull, i)
		}
	}
	s.hull = hull

	// If the polygon minimum extent is small (sliver or small triangle), do not try to add internal points.
	if minExtent < sampleDist*2 {
		s.tris = triangulateHull(verts, hull, nin, s.tris)
		setTriFlags(s.tris, hull)
		return nverts
	}

	// Tessellate the base mesh.
	// triangulateHull tends to create a bit better triangulation for long thin
	// triangles than delaunayHull when there are no internal points.
	s.tris = triangulateHull(verts, hull, nin, s.tris)

	if len(s.tris) == 0 {
		// Could not triangulate the poly, make sure there is some valid data there.
		ctx.Log(RC_LOG_WARNING, "buildPolyDetail: Could not triangulate polygon (%d verts).", nverts)
		return nverts
	}

	if sampleDist > 0 {
		// Create sample locations in a grid.
		var bmin, bmax [3]float32
		copy(bmin[:], in[:3])
		copy(bmax[:], in[:3])
		for i := 1; i < nin; i++ {
			common.Vmin(bmin[:], in[i*3:])
			common.Vmax(bmax[:], in[i*3:])
		}
		x0 := int(math.Floor(float64(bmin[0] / sampleDist)))
		x1 := int(math.Ceil(float64(bmax[0] / sampleDist)))
		z0 := int(math.Floor(float64(bmin[2] / sampleDist)))
		z1 := int(math.Ceil(float64(bmax[2] / sampleDist)))
		s.samples = s.samples[:0]
		for z := z0; z < z1; z++ {
			for x := x0; x < x1; x++ {
				pt := [3]float32{float32(x) * sampleDist, (bmax[1] + bmin[1]) * 0.5, float32(z) * sampleDist}
				// Make sure the samples are not too close to the edges.
				if distToPoly(nin, in, pt[:]) > -sampleDist/2 {
					continue
				}
				s.samples = append(s.samples, x, getHeight(pt[0], pt[1], pt[2], cs, ics, chf.Ch, heightSearchRadius, hp), z, 0) // Not added
			}
		}

		// Add the samples starting from the one that has the most
		// error. The procedure stops when all samples are added
		// or when the max error is within threshold.
		nsamples := len(s.samples) / 4
		for iter := 0; iter < nsamples; iter++ {
			if nverts >= detailMaxVerts {
				break
			}

			// Find sample with most error.
			var bestpt [3]float32
			bestd := float32(0)
			besti := -1
			for i := 0; i < nsamples; i++ {
				sample := s.samples[i*4:]
				if sample[3] != 0 {
					continue // skip added.
				}
				// The sample location is jittered to get rid of some bad triangulations
				// which are cause by symmetrical data from the grid structure.
				pt := [3]float32{
					float32(sample[0])*sampleDist + getJitterX(i)*cs*0.1,
					float32(sample[1]) * chf.Ch,
					float32(sample[2])*sampleDist + getJitterY(i)*cs*0.1,
				}
				d := distToTriMesh(pt[:], verts, s.tris)
				if d < 0 {
					continue // did not hit the mesh.
				}
				if d > bestd {
					bestd = d
					besti = i
					bestpt = pt
				}
			}
			// If the max error is within accepted threshold, stop tessellating.
			if bestd <= sampleMaxError || besti == -1 {
				break
			}
			// Mark sample as added.
			s.samples[besti*4+3] = 1
			// Add the new sample point.
			copy(verts[nverts*3:nverts*3+3], bestpt[:])
			nverts++

			// Create new triangulation.
			// TODO: Incremental add instead of full rebuild.
			s.tris, s.edges = delaunayHull(ctx, nverts, verts, hull, s.tris, s.edges)
		}
	}

	ntris := len(s.tris) / 4
	if ntris > detailMaxTris {
		s.tris = s.tris[:detailMaxTris*4]
		ctx.Log(RC_LOG_ERROR, "rcBuildPolyMeshDetail: Shrinking triangle count from %d to max %d.", ntris, detailMaxTris)
	}
	setTriFlags(s.tris, hull)
	return nverts
}

func (hp *rcHeightPatch) fill(v int) {
	for i := range hp.data[:hp.width*hp.height] {
		hp.data[i] = v
	}
}

func seedArrayWithPolyCenter(ctx *RcContext, chf *RcCompactHeightfield, poly []int, npoly int,
	verts []int, bs int, hp *rcHeightPatch, array []int) []int {
	// Note: Reads to the compact heightfield are offset by border size (bs)
	// since border size offset is already removed from the polymesh vertices.
	offset := [9 * 2]int{
		0, 0,
		-1, -1,
		0, -1,
		1, -1,
		1, 0,
		1, 1,
		0, 1,
		-1, 1,
		-1, 0,
	}

	// Find cell closest to a poly vertex
	startCellX, startCellY, startSpanIndex := 0, 0, -1
	dmin := RC_UNSET_HEIGHT
	for j := 0; j < npoly && dmin > 0; j++ {
		for k := 0; k < 9 && dmin > 0; k++ {
			ax := verts[poly[j]*3+0] + offset[k*2+0]
			ay := verts[poly[j]*3+1]
			az := verts[poly[j]*3+2] + offset[k*2+1]
			if ax < hp.xmin || ax >= hp.xmin+hp.width || az < hp.ymin || az >= hp.ymin+hp.height {
				continue
			}
			c := chf.Cells[(ax+bs)+(az+bs)*chf.Width]
			for i, ni := c.Index, c.Index+c.Count; i < ni && dmin > 0; i++ {
				d := common.Abs(ay - chf.Spans[i].Y)
				if d < dmin {
					startCellX = ax
					startCellY = az
					startSpanIndex = i
					dmin = d
				}
			}
		}
	}

	array = array[:0]
	if startSpanIndex == -1 {
		ctx.Log(RC_LOG_WARNING, "Could not find a seed span for the polygon center walk")
		hp.fill(RC_UNSET_HEIGHT)
		return array
	}

	// Find center of the polygon
	pcx, pcy := 0, 0
	for j := 0; j < npoly; j++ {
		pcx += verts[poly[j]*3+0]
		pcy += verts[poly[j]*3+2]
	}
	pcx /= npoly
	pcy /= npoly

	// Use seeds array as a stack for DFS
	array = append(array, startCellX, startCellY, startSpanIndex)

	dirs := [4]int{0, 1, 2, 3}
	hp.fill(0)
	// DFS to move to the center. Note that we need a DFS here and can not just move
	// directly towards the center without recording intermediate nodes, even though the polygons
	// are convex. In very rare we can get stuck due to contour simplification if we do not
	// record nodes.
	cx, cy, ci := -1, -1, -1
	for {
		if len(array) < 3 {
			ctx.Log(RC_LOG_WARNING, "Walk towards polygon center failed to reach center")
			break
		}

		n := len(array)
		cx, cy, ci = array[n-3], array[n-2], array[n-1]
		array = array[:n-3]

		if cx == pcx && cy == pcy {
			break
		}

		// If we are already at the correct X-position, prefer direction
		// directly towards the center in the Y-axis; otherwise prefer
		// direction in the X-axis
		var directDir int
		if cx == pcx {
			dy := -1
			if pcy > cy {
				dy = 1
			}
			directDir = common.GetDirForOffset(0, dy)
		} else {
			dx := -1
			if pcx > cx {
				dx = 1
			}
			directDir = common.GetDirForOffset(dx, 0)
		}

		// Push the direct dir last so we start with this on next iteration
		dirs[directDir], dirs[3] = dirs[3], dirs[directDir]

		cs := &chf.Spans[ci]
		for i := 0; i < 4; i++ {
			dir := dirs[i]
			if RcGetCon(cs, dir) == RC_NOT_CONNECTED {
				continue
			}

			newX := cx + common.GetDirOffsetX(dir)
			newY := cy + common.GetDirOffsetY(dir)

			hpx := newX - hp.xmin
			hpy := newY - hp.ymin
			if hpx < 0 || hpx >= hp.width || hpy < 0 || hpy >= hp.height {
				continue
			}
			if hp.data[hpx+hpy*hp.width] != 0 {
				continue
			}

			hp.data[hpx+hpy*hp.width] = 1
			array = append(array, newX, newY, chf.Cells[(newX+bs)+(newY+bs)*chf.Width].Index+RcGetCon(cs, dir))
		}

		dirs[directDir], dirs[3] = dirs[3], dirs[directDir]
	}

	// getHeightData assumes the array contains triples of (x, y, spanIndex)
	array = append(array[:0], cx+bs, cy+bs, ci)

	hp.fill(RC_UNSET_HEIGHT)
	hp.data[cx-hp.xmin+(cy-hp.ymin)*hp.width] = chf.Spans[ci].Y
	return array
}

func getHeightData(ctx *RcContext, chf *RcCompactHeightfield, poly []int, npoly int,
	verts []int, bs int, hp *rcHeightPatch, queue []int, region int) []int {
	// Note: Reads to the compact heightfield are offset by border size (bs)
	// since border size offset is already removed from the polymesh vertices.
	queue = queue[:0]
	// Set all heights to RC_UNSET_HEIGHT.
	hp.fill(RC_UNSET_HEIGHT)

	empty := true

	// We cannot sample from this poly if it was created from polys
	// of different regions. If it was then it could potentially be overlapping
	// with polys of that region and the heights sampled here could be wrong.
	if region != RC_MULTIPLE_REGS {
		// Copy the height from the same region, and mark region borders
		// as seed points to fill the rest.
		for hy := 0; hy < hp.height; hy++ {
			y := hp.ymin + hy + bs
			for hx := 0; hx < hp.width; hx++ {
				x := hp.xmin + hx + bs
				c := chf.Cells[x+y*chf.Width]
				for i, ni := c.Index, c.Index+c.Count; i < ni; i++ {
					s := &chf.Spans[i]
					if s.Reg != region {
						continue
					}
					// Store height
					hp.data[hx+hy*hp.width] = s.Y
					empty = false

					// If any of the neighbours is not in same region,
					// add the current location as flood fill start
					border := false
					for dir := 0; dir < 4; dir++ {
						if RcGetCon(s, dir) != RC_NOT_CONNECTED {
							ax := x + common.GetDirOffsetX(dir)
							ay := y + common.GetDirOffsetY(dir)
							ai := chf.Cells[ax+ay*chf.Width].Index + RcGetCon(s, dir)
							if chf.Spans[ai].Reg != region {
								border = true
								break
							}
						}
					}
					if border {
						queue = append(queue, x, y, i)
					}
					break
				}
			}
		}
	}

	// if the polygon does not contain any points from the current region (rare, but happens)
	// or if it could potentially be overlapping polygons of the same region,
	// then use the center as the seed point.
	if empty {
		queue = seedArrayWithPolyCenter(ctx, chf, poly, npoly, verts, bs, hp, queue)
	}

	const retractSize = 256
	head := 0

	// We assume the seed is centered in the polygon, so a BFS to collect
	// height data will ensure we do not move onto overlapping polygons and
	// sample wrong heights.
	for head*3 < len(queue) {
		cx := queue[head*3+0]
		cy := queue[head*3+1]
		ci := queue[head*3+2]
		head++
		if head >= retractSize {
			head = 0
			if len(queue) > retractSize*3 {
				copy(queue, queue[retractSize*3:])
			}
			queue = queue[:len(queue)-retractSize*3]
		}

		cs := &chf.Spans[ci]
		for dir := 0; dir < 4; dir++ {
			if RcGetCon(cs, dir) == RC_NOT_CONNECTED {
				continue
			}

			ax := cx + common.GetDirOffsetX(dir)
			ay := cy + common.GetDirOffsetY(dir)
			hx := ax - hp.xmin - bs
			hy := ay - hp.ymin - bs

			if uint(hx) >= uint(hp.width) || uint(hy) >= uint(hp.height) {
				continue
			}

			if hp.data[hx+hy*hp.width] != RC_UNSET_HEIGHT {
				continue
			}

			ai := chf.Cells[ax+ay*chf.Width].Index + RcGetCon(cs, dir)
			hp.data[hx+hy*hp.width] = chf.Spans[ai].Y

			queue = append(queue, ax, ay, ai)
		}
	}
	return queue
}

// RcBuildPolyMeshDetail builds a detail mesh from the provided polygon mesh.
func RcBuildPolyMeshDetail(ctx *RcContext, mesh *RcPolyMesh, chf *RcCompactHeightfield,
	sampleDist, sampleMaxError float32) (*RcPolyMeshDetail, bool) {
	ctx.StartTimer(RC_TIMER_BUILD_POLYMESHDETAIL)
	defer ctx.StopTimer(RC_TIMER_BUILD_POLYMESHDETAIL)

	dmesh := &RcPolyMeshDetail{}
	if mesh.Nverts == 0 || mesh.Npolys == 0 {
		return dmesh, true
	}

	nvp := mesh.Nvp
	cs := mesh.Cs
	ch := mesh.Ch
	orig := mesh.Bmin
	borderSize := mesh.BorderSize
	heightSearchRadius := max(1, int(math.Ceil(float64(mesh.MaxEdgeError))))

	bounds := make([]int, mesh.Npolys*4)
	poly := make([]float32, nvp*3)

	// Find max size for a polygon area.
	nPolyVerts := 0
	maxhw, maxhh := 0, 0
	for i := 0; i < mesh.Npolys; i++ {
		p := mesh.Polys[i*nvp*2:]
		xmin, xmax := chf.Width, 0
		ymin, ymax := chf.Height, 0
		for j := 0; j < nvp; j++ {
			if p[j] == RC_MESH_NULL_IDX {
				break
			}
			v := mesh.Verts[p[j]*3:]
			xmin = min(xmin, v[0])
			xmax = max(xmax, v[0])
			ymin = min(ymin, v[2])
			ymax = max(ymax, v[2])
			nPolyVerts++
		}
		xmin = max(0, xmin-1)
		xmax = min(chf.Width, xmax+1)
		ymin = max(0, ymin-1)
		ymax = min(chf.Height, ymax+1)
		bounds[i*4+0] = xmin
		bounds[i*4+1] = xmax
		bounds[i*4+2] = ymin
		bounds[i*4+3] = ymax
		if xmin >= xmax || ymin >= ymax {
			continue
		}
		maxhw = max(maxhw, xmax-xmin)
		maxhh = max(maxhh, ymax-ymin)
	}

	hp := &rcHeightPatch{data: make([]int, maxhw*maxhh)}

	dmesh.Nmeshes = mesh.Npolys
	dmesh.Meshes = make([]uint32, dmesh.Nmeshes*4)
	vcap := nPolyVerts + nPolyVerts/2
	dmesh.Verts = make([]float32, 0, vcap*3)
	dmesh.Tris = make([]uint8, 0, vcap*2*4)

	scratch := newDetailScratch()
	for i := 0; i < mesh.Npolys; i++ {
		p := mesh.Polys[i*nvp*2:]

		// Store polygon vertices for processing.
		npoly := 0
		for j := 0; j < nvp; j++ {
			if p[j] == RC_MESH_NULL_IDX {
				break
			}
			v := mesh.Verts[p[j]*3:]
			poly[j*3+0] = float32(v[0]) * cs
			poly[j*3+1] = float32(v[1]) * ch
			poly[j*3+2] = float32(v[2]) * cs
			npoly++
		}

		// Get the height data from the area of the polygon.
		hp.xmin = bounds[i*4+0]
		hp.ymin = bounds[i*4+2]
		hp.width = bounds[i*4+1] - bounds[i*4+0]
		hp.height = bounds[i*4+3] - bounds[i*4+2]
		scratch.queue = getHeightData(ctx, chf, p, npoly, mesh.Verts, borderSize, hp, scratch.queue, mesh.Regs[i])

		// Build detail mesh.
		nverts := buildPolyDetail(ctx, poly, npoly, sampleDist, sampleMaxError, heightSearchRadius, chf, hp, scratch)
		verts := scratch.verts

		// Move detail verts to world space.
		for j := 0; j < nverts; j++ {
			verts[j*3+0] += orig[0]
			verts[j*3+1] += orig[1] + chf.Ch
			verts[j*3+2] += orig[2]
		}

		// Store detail submesh.
		ntris := len(scratch.tris) / 4

		dmesh.Meshes[i*4+0] = uint32(dmesh.Nverts)
		dmesh.Meshes[i*4+1] = uint32(nverts)
		dmesh.Meshes[i*4+2] = uint32(dmesh.Ntris)
		dmesh.Meshes[i*4+3] = uint32(ntris)

		// Store vertices
		dmesh.Verts = append(dmesh.Verts, verts[:nverts*3]...)
		dmesh.Nverts += nverts

		// Store triangles
		for j := 0; j < ntris; j++ {
			t := scratch.tris[j*4:]
			dmesh.Tris = append(dmesh.Tris, uint8(t[0]), uint8(t[1]), uint8(t[2]), uint8(t[3]))
			dmesh.Ntris++
		}
	}
	return dmesh, true
}

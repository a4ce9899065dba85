package detour

import (
	"math"

	"github.com/gorustyt/tilemesh/common"
)

const maxConnectingPolys = 4

func (m *NavMesh) connectIntLinks(tile *DtMeshTile) {
	if tile == nil {
		return
	}
	base := m.PolyRefBase(tile)
	for i := 0; i < int(tile.Header.PolyCount); i++ {
		poly := &tile.Polys[i]
		poly.FirstLink = DT_NULL_LINK

		if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
			continue
		}

		// Build edge links backwards so that the links will be
		// in the linked list from lowest index to highest.
		for j := int(poly.VertCount) - 1; j >= 0; j-- {
			// Skip hard and non-internal edges.
			if poly.Neis[j] == 0 || (poly.Neis[j]&DT_EXT_LINK) != 0 {
				continue
			}

			idx := allocLink(tile)
			if idx != DT_NULL_LINK {
				link := &tile.Links[idx]
				link.Ref = base | DtPolyRef(poly.Neis[j]-1)
				link.Edge = uint8(j)
				link.Side = 0xff
				link.Bmin = 0
				link.Bmax = 0
				// Add to linked list.
				link.Next = poly.FirstLink
				poly.FirstLink = idx
			}
		}
	}
}

func (m *NavMesh) baseOffMeshLinks(tile *DtMeshTile) {
	if tile == nil {
		return
	}
	base := m.PolyRefBase(tile)

	// Base off-mesh connection start points.
	for i := 0; i < int(tile.Header.OffMeshConCount); i++ {
		con := &tile.OffMeshCons[i]
		poly := &tile.Polys[con.Poly]

		halfExtents := []float32{con.Rad, tile.Header.WalkableClimb, con.Rad}

		// Find polygon to connect to.
		p := con.Pos[0:3] // First vertex
		ref, nearestPt := m.findNearestPolyInTile(tile, p, halfExtents)
		if ref == 0 {
			continue
		}
		// findNearestPoly may return too optimistic results, further check to make sure.
		if common.Sqr(nearestPt[0]-p[0])+common.Sqr(nearestPt[2]-p[2]) > common.Sqr(con.Rad) {
			continue
		}
		// Make sure the location is on current mesh.
		v := common.GetVert3(tile.Verts, poly.Verts[0])
		common.Vcopy(v, nearestPt[:])

		// Link off-mesh connection to target poly.
		idx := allocLink(tile)
		if idx != DT_NULL_LINK {
			link := &tile.Links[idx]
			link.Ref = ref
			link.Edge = 0
			link.Side = 0xff
			link.Bmin = 0
			link.Bmax = 0
			// Add to linked list.
			link.Next = poly.FirstLink
			poly.FirstLink = idx
		}

		// Start end-point is always connect back to off-mesh connection.
		tidx := allocLink(tile)
		if tidx != DT_NULL_LINK {
			landPolyIdx := uint16(m.DecodePolyIdPoly(ref))
			landPoly := &tile.Polys[landPolyIdx]
			link := &tile.Links[tidx]
			link.Ref = base | DtPolyRef(con.Poly)
			link.Edge = 0xff
			link.Side = 0xff
			link.Bmin = 0
			link.Bmax = 0
			// Add to linked list.
			link.Next = landPoly.FirstLink
			landPoly.FirstLink = tidx
		}
	}
}

func (m *NavMesh) connectExtLinks(tile, target *DtMeshTile, side int) {
	if tile == nil {
		return
	}

	// Connect border links.
	for i := 0; i < int(tile.Header.PolyCount); i++ {
		poly := &tile.Polys[i]

		// Create new links.
		nv := int(poly.VertCount)
		for j := 0; j < nv; j++ {
			// Skip non-portal edges.
			if (poly.Neis[j] & DT_EXT_LINK) == 0 {
				continue
			}

			dir := int(poly.Neis[j] & 0xff)
			if side != -1 && dir != side {
				continue
			}

			// Create new links
			va := common.GetVert3(tile.Verts, poly.Verts[j])
			vb := common.GetVert3(tile.Verts, poly.Verts[(j+1)%nv])
			nei, neia := m.findConnectingPolys(va, vb, target, dtOppositeTile(dir))
			for k := range nei {
				idx := allocLink(tile)
				if idx == DT_NULL_LINK {
					continue
				}
				link := &tile.Links[idx]
				link.Ref = nei[k]
				link.Edge = uint8(j)
				link.Side = uint8(dir)

				link.Next = poly.FirstLink
				poly.FirstLink = idx

				// Compress portal limits to a byte value.
				if dir == 0 || dir == 4 {
					tmin := (neia[k*2+0] - va[2]) / (vb[2] - va[2])
					tmax := (neia[k*2+1] - va[2]) / (vb[2] - va[2])
					if tmin > tmax {
						tmin, tmax = tmax, tmin
					}
					link.Bmin = uint8(math.Round(float64(common.Clamp(tmin, 0, 1) * 255)))
					link.Bmax = uint8(math.Round(float64(common.Clamp(tmax, 0, 1) * 255)))
				} else if dir == 2 || dir == 6 {
					tmin := (neia[k*2+0] - va[0]) / (vb[0] - va[0])
					tmax := (neia[k*2+1] - va[0]) / (vb[0] - va[0])
					if tmin > tmax {
						tmin, tmax = tmax, tmin
					}
					link.Bmin = uint8(math.Round(float64(common.Clamp(tmin, 0, 1) * 255)))
					link.Bmax = uint8(math.Round(float64(common.Clamp(tmax, 0, 1) * 255)))
				}
			}
		}
	}
}

func (m *NavMesh) connectExtOffMeshLinks(tile, target *DtMeshTile, side int) {
	if tile == nil {
		return
	}

	// Connect off-mesh links.
	// We are interested on links which land from target tile to this tile.
	oppositeSide := uint8(0xff)
	if side != -1 {
		oppositeSide = uint8(dtOppositeTile(side))
	}

	for i := 0; i < int(target.Header.OffMeshConCount); i++ {
		targetCon := &target.OffMeshCons[i]
		if targetCon.Side != oppositeSide {
			continue
		}

		targetPoly := &target.Polys[targetCon.Poly]
		// Skip off-mesh connections which start location could not be connected at all.
		if targetPoly.FirstLink == DT_NULL_LINK {
			continue
		}

		halfExtents := []float32{targetCon.Rad, target.Header.WalkableClimb, targetCon.Rad}

		// Find polygon to connect to.
		p := targetCon.Pos[3:6]
		ref, nearestPt := m.findNearestPolyInTile(tile, p, halfExtents)
		if ref == 0 {
			continue
		}
		// findNearestPoly may return too optimistic results, further check to make sure.
		if common.Sqr(nearestPt[0]-p[0])+common.Sqr(nearestPt[2]-p[2]) > common.Sqr(targetCon.Rad) {
			continue
		}
		// Make sure the location is on current mesh.
		v := common.GetVert3(target.Verts, targetPoly.Verts[1])
		common.Vcopy(v, nearestPt[:])

		// Link off-mesh connection to target poly.
		idx := allocLink(target)
		if idx != DT_NULL_LINK {
			link := &target.Links[idx]
			link.Ref = ref
			link.Edge = 1
			link.Side = oppositeSide
			link.Bmin = 0
			link.Bmax = 0
			// Add to linked list.
			link.Next = targetPoly.FirstLink
			targetPoly.FirstLink = idx
		}

		// Link target poly to off-mesh connection.
		if (targetCon.Flags & DT_OFFMESH_CON_BIDIR) != 0 {
			tidx := allocLink(tile)
			if tidx != DT_NULL_LINK {
				landPolyIdx := uint16(m.DecodePolyIdPoly(ref))
				landPoly := &tile.Polys[landPolyIdx]
				link := &tile.Links[tidx]
				link.Ref = m.PolyRefBase(target) | DtPolyRef(targetCon.Poly)
				link.Edge = 0xff
				if side == -1 {
					link.Side = 0xff
				} else {
					link.Side = uint8(side)
				}
				link.Bmin = 0
				link.Bmax = 0
				// Add to linked list.
				link.Next = landPoly.FirstLink
				landPoly.FirstLink = tidx
			}
		}
	}
}

// findConnectingPolys returns the polygons of tile whose portal edges on side overlap the
// segment va-vb, together with the overlapping extent of each along the slab axis.
func (m *NavMesh) findConnectingPolys(va, vb []float32, tile *DtMeshTile, side int) ([]DtPolyRef, []float32) {
	if tile == nil {
		return nil, nil
	}

	amin, amax := calcSlabEndPoints(va, vb, side)
	apos := getSlabCoord(va, side)

	// Remove links pointing to 'side' and compact the links array.
	m1 := uint16(DT_EXT_LINK | side)
	var (
		refs  []DtPolyRef
		areas []float32
	)

	base := m.PolyRefBase(tile)

	for i := 0; i < int(tile.Header.PolyCount); i++ {
		poly := &tile.Polys[i]
		nv := int(poly.VertCount)
		for j := 0; j < nv; j++ {
			// Skip edges which do not point to the right side.
			if poly.Neis[j] != m1 {
				continue
			}

			vc := common.GetVert3(tile.Verts, poly.Verts[j])
			vd := common.GetVert3(tile.Verts, poly.Verts[(j+1)%nv])
			bpos := getSlabCoord(vc, side)

			// Segments are not close enough.
			if common.Abs(apos-bpos) > 0.01 {
				continue
			}

			// Check if the segments touch.
			bmin, bmax := calcSlabEndPoints(vc, vd, side)

			if !overlapSlabs(amin[:], amax[:], bmin[:], bmax[:], 0.01, tile.Header.WalkableClimb) {
				continue
			}

			// Add return value.
			if len(refs) < maxConnectingPolys {
				areas = append(areas, max(amin[0], bmin[0]), min(amax[0], bmax[0]))
				refs = append(refs, base|DtPolyRef(i))
			}
			break
		}
	}
	return refs, areas
}

func (m *NavMesh) unconnectLinks(tile, target *DtMeshTile) {
	if tile == nil || target == nil {
		return
	}

	targetNum := m.DecodePolyIdTile(DtPolyRef(m.TileRef(target)))

	for i := 0; i < int(tile.Header.PolyCount); i++ {
		poly := &tile.Polys[i]
		j := poly.FirstLink
		pj := DT_NULL_LINK
		for j != DT_NULL_LINK {
			if m.DecodePolyIdTile(tile.Links[j].Ref) == targetNum {
				// Remove link.
				nj := tile.Links[j].Next
				if pj == DT_NULL_LINK {
					poly.FirstLink = nj
				} else {
					tile.Links[pj].Next = nj
				}
				freeLink(tile, j)
				j = nj
			} else {
				// Advance
				pj = j
				j = tile.Links[j].Next
			}
		}
	}
}

// queryPolygonsInTile returns the polygons of the tile overlapping the query box.
func (m *NavMesh) queryPolygonsInTile(tile *DtMeshTile, qmin, qmax []float32, maxPolys int) []DtPolyRef {
	var polys []DtPolyRef
	base := m.PolyRefBase(tile)
	if tile.BvTree != nil {
		tbmin := tile.Header.Bmin[:]
		tbmax := tile.Header.Bmax[:]
		qfac := tile.Header.BvQuantFactor

		// Calculate quantized box
		var bmin, bmax [3]uint16
		// dtClamp query box to world box.
		minx := common.Clamp(qmin[0], tbmin[0], tbmax[0]) - tbmin[0]
		miny := common.Clamp(qmin[1], tbmin[1], tbmax[1]) - tbmin[1]
		minz := common.Clamp(qmin[2], tbmin[2], tbmax[2]) - tbmin[2]
		maxx := common.Clamp(qmax[0], tbmin[0], tbmax[0]) - tbmin[0]
		maxy := common.Clamp(qmax[1], tbmin[1], tbmax[1]) - tbmin[1]
		maxz := common.Clamp(qmax[2], tbmin[2], tbmax[2]) - tbmin[2]
		// Quantize
		bmin[0] = uint16(uint32(qfac*minx) & 0xfffe)
		bmin[1] = uint16(uint32(qfac*miny) & 0xfffe)
		bmin[2] = uint16(uint32(qfac*minz) & 0xfffe)
		bmax[0] = uint16(uint32(qfac*maxx+1) | 1)
		bmax[1] = uint16(uint32(qfac*maxy+1) | 1)
		bmax[2] = uint16(uint32(qfac*maxz+1) | 1)

		// Traverse tree
		node := 0
		end := int(tile.Header.BvNodeCount)
		for node < end {
			n := &tile.BvTree[node]
			overlap := common.OverlapQuantBounds(bmin[:], bmax[:], n.Bmin[:], n.Bmax[:])
			isLeafNode := n.I >= 0

			if isLeafNode && overlap {
				if len(polys) < maxPolys {
					polys = append(polys, base|DtPolyRef(n.I))
				}
			}

			if overlap || isLeafNode {
				node++
			} else {
				node += int(-n.I)
			}
		}
		return polys
	}

	var bmin, bmax [3]float32
	for i := 0; i < int(tile.Header.PolyCount); i++ {
		p := &tile.Polys[i]
		// Do not return off-mesh connection polygons.
		if p.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
			continue
		}
		// Calc polygon bounds.
		v := common.GetVert3(tile.Verts, p.Verts[0])
		copy(bmin[:], v)
		copy(bmax[:], v)
		for j := 1; j < int(p.VertCount); j++ {
			v = common.GetVert3(tile.Verts, p.Verts[j])
			common.Vmin(bmin[:], v)
			common.Vmax(bmax[:], v)
		}
		if common.OverlapBounds(qmin, qmax, bmin[:], bmax[:]) {
			if len(polys) < maxPolys {
				polys = append(polys, base|DtPolyRef(i))
			}
		}
	}
	return polys
}

// findNearestPolyInTile returns the polygon of the tile nearest to center inside the
// half-extents box, and the closest point on it.
func (m *NavMesh) findNearestPolyInTile(tile *DtMeshTile, center, halfExtents []float32) (DtPolyRef, [3]float32) {
	var bmin, bmax, nearestPt [3]float32
	common.Vsub(bmin[:], center, halfExtents)
	common.Vadd(bmax[:], center, halfExtents)

	// Get nearby polygons from proximity grid.
	polys := m.queryPolygonsInTile(tile, bmin[:], bmax[:], 128)

	// Find nearest polygon amongst the nearby polygons.
	var nearest DtPolyRef
	nearestDistanceSqr := float32(math.MaxFloat32)
	for _, ref := range polys {
		closestPtPoly, posOverPoly := m.closestPointOnPoly(ref, center)

		// If a point is directly over a polygon and closer than
		// climb height, favor that instead of straight line nearest point.
		var diff [3]float32
		common.Vsub(diff[:], center, closestPtPoly[:])
		var d float32
		if posOverPoly {
			d = common.Abs(diff[1]) - tile.Header.WalkableClimb
			if d > 0 {
				d = d * d
			} else {
				d = 0
			}
		} else {
			d = common.Vdot(diff[:], diff[:])
		}

		if d < nearestDistanceSqr {
			nearestPt = closestPtPoly
			nearestDistanceSqr = d
			nearest = ref
		}
	}
	return nearest, nearestPt
}

func (m *NavMesh) closestPointOnPoly(ref DtPolyRef, pos []float32) (closest [3]float32, posOverPoly bool) {
	tile, poly, ip := m.tileAndPolyByRefUnsafe(ref)
	copy(closest[:], pos)
	if h, ok := m.getPolyHeight(tile, poly, ip, pos); ok {
		closest[1] = h
		return closest, true
	}

	// Off-mesh connections don't have detail polygons.
	if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		v0 := common.GetVert3(tile.Verts, poly.Verts[0])
		v1 := common.GetVert3(tile.Verts, poly.Verts[1])
		_, t := common.DistancePtSegSqr2D(pos, v0, v1)
		common.Vlerp(closest[:], v0, v1, t)
		return closest, false
	}

	// Outside poly that is not an offmesh connection.
	closest = m.closestPointOnDetailEdges(tile, poly, ip, pos, true)
	return closest, false
}

// getPolyHeight returns the height of the detail surface of poly at pos, if pos lies inside.
func (m *NavMesh) getPolyHeight(tile *DtMeshTile, poly *DtPoly, ip int, pos []float32) (float32, bool) {
	// Off-mesh connections do not have detail polys and getting height
	// over them does not make sense.
	if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		return 0, false
	}

	pd := &tile.DetailMeshes[ip]

	var verts [DT_VERTS_PER_POLYGON * 3]float32
	nv := int(poly.VertCount)
	for i := 0; i < nv; i++ {
		copy(verts[i*3:i*3+3], common.GetVert3(tile.Verts, poly.Verts[i]))
	}

	if !common.PointInPoly(nv, verts[:], pos) {
		return 0, false
	}

	// Find height at the location.
	for j := 0; j < int(pd.TriCount); j++ {
		t := common.GetVert4(tile.DetailTris, int(pd.TriBase)+j)
		var v [3][]float32
		for k := 0; k < 3; k++ {
			v[k] = m.detailVert(tile, poly, pd, t[k])
		}
		if h, ok := common.ClosestHeightPointTriangle(pos, v[0], v[1], v[2]); ok {
			return h, true
		}
	}

	// If all triangle checks failed above (can happen with degenerate triangles
	// or larger floating point values) the point is on an edge, so just select
	// closest. This should almost never happen so the extra iteration here is ok.
	closest := m.closestPointOnDetailEdges(tile, poly, ip, pos, false)
	return closest[1], true
}

func (m *NavMesh) detailVert(tile *DtMeshTile, poly *DtPoly, pd *DtPolyDetail, i uint8) []float32 {
	if i < poly.VertCount {
		return common.GetVert3(tile.Verts, poly.Verts[i])
	}
	return common.GetVert3(tile.DetailVerts, int(pd.VertBase)+int(i-poly.VertCount))
}

func (m *NavMesh) closestPointOnDetailEdges(tile *DtMeshTile, poly *DtPoly, ip int, pos []float32, onlyBoundary bool) (closest [3]float32) {
	pd := &tile.DetailMeshes[ip]

	dmin := float32(math.MaxFloat32)
	tmin := float32(0)
	var pmin, pmax []float32

	for i := 0; i < int(pd.TriCount); i++ {
		tris := common.GetVert4(tile.DetailTris, int(pd.TriBase)+i)
		const anyBoundaryEdge = (DT_DETAIL_EDGE_BOUNDARY << 0) |
			(DT_DETAIL_EDGE_BOUNDARY << 2) |
			(DT_DETAIL_EDGE_BOUNDARY << 4)
		if onlyBoundary && (tris[3]&anyBoundaryEdge) == 0 {
			continue
		}

		var v [3][]float32
		for j := 0; j < 3; j++ {
			v[j] = m.detailVert(tile, poly, pd, tris[j])
		}

		for k, j := 0, 2; k < 3; j, k = k, k+1 {
			if (GetDetailTriEdgeFlags(tris[3], j)&DT_DETAIL_EDGE_BOUNDARY) == 0 &&
				(onlyBoundary || tris[j] < tris[k]) {
				// Only looking at boundary edges and this is internal, or
				// this is an inner edge that we will see again or have already seen.
				continue
			}

			d, t := common.DistancePtSegSqr2D(pos, v[j], v[k])
			if d < dmin {
				dmin = d
				tmin = t
				pmin = v[j]
				pmax = v[k]
			}
		}
	}

	if pmin == nil {
		copy(closest[:], pos)
		return closest
	}
	common.Vlerp(closest[:], pmin, pmax, tmin)
	return closest
}

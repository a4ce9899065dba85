package detour

import (
	"math"

	"github.com/gorustyt/tilemesh/common"
)

const H_SCALE = 0.999 // Search heuristic scale.

// DtQueryFilter defines polygon filtering and traversal costs for navigation mesh query operations.
type DtQueryFilter struct {
	areaCost     [DT_MAX_AREAS]float32 ///< Cost per area type.
	includeFlags uint16                ///< Flags for polygons that can be visited.
	excludeFlags uint16                ///< Flags for polygons that should not be visited.
}

// NewDtQueryFilter returns a filter that visits every polygon with unit cost.
func NewDtQueryFilter() *DtQueryFilter {
	f := &DtQueryFilter{includeFlags: 0xffff}
	for i := range f.areaCost {
		f.areaCost[i] = 1.0
	}
	return f
}

func (filter *DtQueryFilter) GetAreaCost(i int) float32 { return filter.areaCost[i] }
func (filter *DtQueryFilter) SetAreaCost(i int, cost float32) { filter.areaCost[i] = cost }
func (filter *DtQueryFilter) GetIncludeFlags() uint16 { return filter.includeFlags }
func (filter *DtQueryFilter) SetIncludeFlags(flags uint16) { filter.includeFlags = flags }
func (filter *DtQueryFilter) GetExcludeFlags() uint16 { return filter.excludeFlags }
func (filter *DtQueryFilter) SetExcludeFlags(flags uint16) { filter.excludeFlags = flags }
func (filter *DtQueryFilter) getCost(pa, pb []float32, curPoly *DtPoly) float32 {
	return common.Vdist(pa, pb) * filter.areaCost[curPoly.GetArea()]
}

func (filter *DtQueryFilter) passFilter(poly *DtPoly) bool {
	return (poly.Flags&filter.includeFlags) != 0 && (poly.Flags&filter.excludeFlags) == 0
}

// NavMeshQuery provides the ability to perform pathfinding related queries against a navigation mesh.
type NavMeshQuery struct {
	nav      *NavMesh
	nodePool *DtNodePool
	openList NodeQueue[*DtNode]
}

// NewNavMeshQuery creates a query object bound to nav with a search pool of maxNodes nodes.
func NewNavMeshQuery(nav *NavMesh, maxNodes int) (*NavMeshQuery, DtStatus) {
	if nav == nil || maxNodes <= 0 || maxNodes >= int(DT_NULL_IDX) {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	hashSize := int(common.NextPow2(uint32(maxNodes / 4)))
	if hashSize == 0 {
		hashSize = 1
	}
	return &NavMeshQuery{
		nav:      nav,
		nodePool: NewDtNodePool(maxNodes, hashSize),
		openList: NewNodeQueue(func(a, b *DtNode) bool { return a.Total < b.Total }),
	}, DT_SUCCESS
}

// NodePool returns the search node pool.
func (q *NavMeshQuery) NodePool() *DtNodePool { return q.nodePool }

// AttachedNavMesh returns the navigation mesh the query object is using.
func (q *NavMeshQuery) AttachedNavMesh() *NavMesh { return q.nav }

// QueryPolygons finds polygons that overlap the search box.
func (q *NavMeshQuery) QueryPolygons(center, halfExtents []float32, filter *DtQueryFilter, maxPolys int) ([]DtPolyRef, DtStatus) {
	if len(center) < 3 || len(halfExtents) < 3 || filter == nil || maxPolys <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	var bmin, bmax [3]float32
	common.Vsub(bmin[:], center, halfExtents)
	common.Vadd(bmax[:], center, halfExtents)

	// Find tiles the query touches.
	minx, miny := q.nav.CalcTileLoc(bmin[:])
	maxx, maxy := q.nav.CalcTileLoc(bmax[:])

	var polys []DtPolyRef
	status := DT_SUCCESS
	for y := miny; y <= maxy; y++ {
		for x := minx; x <= maxx; x++ {
			for _, tile := range q.nav.TilesAt(x, y) {
				for _, ref := range q.nav.queryPolygonsInTile(tile, bmin[:], bmax[:], math.MaxInt) {
					_, poly, _ := q.nav.tileAndPolyByRefUnsafe(ref)
					if !filter.passFilter(poly) {
						continue
					}
					if len(polys) >= maxPolys {
						status |= DT_BUFFER_TOO_SMALL
						continue
					}
					polys = append(polys, ref)
				}
			}
		}
	}
	return polys, status
}

// FindNearestPoly finds the polygon nearest to the specified center point.
// A zero reference with a success status means no polygon was inside the search box.
func (q *NavMeshQuery) FindNearestPoly(center, halfExtents []float32, filter *DtQueryFilter) (DtPolyRef, [3]float32, DtStatus) {
	var nearestPt [3]float32
	polys, status := q.QueryPolygons(center, halfExtents, filter, 128)
	if status.Failed() {
		return 0, nearestPt, status
	}

	var nearestRef DtPolyRef
	nearestDistanceSqr := float32(math.MaxFloat32)
	for _, ref := range polys {
		tile, _, _ := q.nav.tileAndPolyByRefUnsafe(ref)
		closest, posOverPoly := q.nav.closestPointOnPoly(ref, center)

		// If a point is directly over a polygon and closer than
		// climb height, favor that instead of straight line nearest point.
		var diff [3]float32
		common.Vsub(diff[:], center, closest[:])
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
			nearestPt = closest
			nearestDistanceSqr = d
			nearestRef = ref
		}
	}
	return nearestRef, nearestPt, DT_SUCCESS
}

// ClosestPointOnPoly finds the closest point on the specified polygon.
func (q *NavMeshQuery) ClosestPointOnPoly(ref DtPolyRef, pos []float32) ([3]float32, bool, DtStatus) {
	if !q.nav.IsValidPolyRef(ref) || len(pos) < 3 {
		return [3]float32{}, false, DT_FAILURE | DT_INVALID_PARAM
	}
	closest, over := q.nav.closestPointOnPoly(ref, pos)
	return closest, over, DT_SUCCESS
}

// GetPolyHeight gets the height of the polygon at the provided position using the detail mesh.
func (q *NavMeshQuery) GetPolyHeight(ref DtPolyRef, pos []float32) (float32, DtStatus) {
	tile, poly, status := q.nav.TileAndPolyByRef(ref)
	if status.Failed() {
		return 0, status
	}
	if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		v0 := common.GetVert3(tile.Verts, poly.Verts[0])
		v1 := common.GetVert3(tile.Verts, poly.Verts[1])
		_, t := common.DistancePtSegSqr2D(pos, v0, v1)
		return v0[1] + (v1[1]-v0[1])*t, DT_SUCCESS
	}
	_, _, ip := q.nav.tileAndPolyByRefUnsafe(ref)
	if h, ok := q.nav.getPolyHeight(tile, poly, ip, pos); ok {
		return h, DT_SUCCESS
	}
	return 0, DT_FAILURE | DT_INVALID_PARAM
}

// getPortalPoints returns the portal points between two adjacent polygons.
func (q *NavMeshQuery) getPortalPoints(from DtPolyRef, fromPoly *DtPoly, fromTile *DtMeshTile,
	to DtPolyRef, toPoly *DtPoly, toTile *DtMeshTile) (left, right [3]float32, status DtStatus) {
	// Find the link that points to the 'to' polygon.
	var link *DtLink
	for i := fromPoly.FirstLink; i != DT_NULL_LINK; i = fromTile.Links[i].Next {
		if fromTile.Links[i].Ref == to {
			link = &fromTile.Links[i]
			break
		}
	}
	if link == nil {
		return left, right, DT_FAILURE | DT_INVALID_PARAM
	}

	// Handle off-mesh connections.
	if fromPoly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		// Find link that points to first vertex.
		for i := fromPoly.FirstLink; i != DT_NULL_LINK; i = fromTile.Links[i].Next {
			if fromTile.Links[i].Ref == to {
				v := fromTile.Links[i].Edge
				copy(left[:], common.GetVert3(fromTile.Verts, fromPoly.Verts[v]))
				copy(right[:], common.GetVert3(fromTile.Verts, fromPoly.Verts[v]))
				return left, right, DT_SUCCESS
			}
		}
		return left, right, DT_FAILURE | DT_INVALID_PARAM
	}

	if toPoly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		for i := toPoly.FirstLink; i != DT_NULL_LINK; i = toTile.Links[i].Next {
			if toTile.Links[i].Ref == from {
				v := toTile.Links[i].Edge
				copy(left[:], common.GetVert3(toTile.Verts, toPoly.Verts[v]))
				copy(right[:], common.GetVert3(toTile.Verts, toPoly.Verts[v]))
				return left, right, DT_SUCCESS
			}
		}
		return left, right, DT_FAILURE | DT_INVALID_PARAM
	}

	// Find portal vertices.
	v0 := fromPoly.Verts[link.Edge]
	v1 := fromPoly.Verts[(int(link.Edge)+1)%int(fromPoly.VertCount)]
	copy(left[:], common.GetVert3(fromTile.Verts, v0))
	copy(right[:], common.GetVert3(fromTile.Verts, v1))

	// If the link is at tile boundary, clamp the vertices to
	// the link width.
	if link.Side != 0xff {
		// Unpack portal limits.
		if link.Bmin != 0 || link.Bmax != 255 {
			s := float32(1.0 / 255.0)
			tmin := float32(link.Bmin) * s
			tmax := float32(link.Bmax) * s
			a := common.GetVert3(fromTile.Verts, v0)
			b := common.GetVert3(fromTile.Verts, v1)
			common.Vlerp(left[:], a, b, tmin)
			common.Vlerp(right[:], a, b, tmax)
		}
	}
	return left, right, DT_SUCCESS
}

func (q *NavMeshQuery) getEdgeMidPoint(from DtPolyRef, fromPoly *DtPoly, fromTile *DtMeshTile,
	to DtPolyRef, toPoly *DtPoly, toTile *DtMeshTile) (mid [3]float32, status DtStatus) {
	left, right, status := q.getPortalPoints(from, fromPoly, fromTile, to, toPoly, toTile)
	if status.Failed() {
		return mid, status
	}
	mid[0] = (left[0] + right[0]) * 0.5
	mid[1] = (left[1] + right[1]) * 0.5
	mid[2] = (left[2] + right[2]) * 0.5
	return mid, DT_SUCCESS
}

// FindPath finds a path from the start polygon to the end polygon using A*.
// When the end cannot be reached the path leads to the polygon nearest to it and
// the status carries DT_PARTIAL_RESULT.
func (q *NavMeshQuery) FindPath(startRef, endRef DtPolyRef, startPos, endPos []float32,
	filter *DtQueryFilter, maxPath int) ([]DtPolyRef, DtStatus) {
	// Validate input
	if !q.nav.IsValidPolyRef(startRef) || !q.nav.IsValidPolyRef(endRef) ||
		len(startPos) < 3 || len(endPos) < 3 || filter == nil || maxPath <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	if startRef == endRef {
		return []DtPolyRef{startRef}, DT_SUCCESS
	}

	q.nodePool.Clear()
	q.openList.Reset()

	startNode := q.nodePool.GetNode(startRef)
	copy(startNode.Pos[:], startPos)
	startNode.Pidx = 0
	startNode.Cost = 0
	startNode.Total = common.Vdist(startPos, endPos) * H_SCALE
	startNode.Flags = DT_NODE_OPEN
	q.openList.Offer(startNode)

	lastBestNode := startNode
	lastBestNodeCost := startNode.Total

	outOfNodes := false

	for !q.openList.Empty() {
		// Remove node from open list and put it in closed list.
		bestNode := q.openList.Poll()
		bestNode.Flags &^= DT_NODE_OPEN
		bestNode.Flags |= DT_NODE_CLOSED

		// Reached the goal, stop searching.
		if bestNode.Id == endRef {
			lastBestNode = bestNode
			break
		}

		// Get current poly and tile.
		// The API input has been checked already, skip checking internal data.
		bestRef := bestNode.Id
		bestTile, bestPoly, _ := q.nav.tileAndPolyByRefUnsafe(bestRef)

		// Get parent poly and tile.
		var parentRef DtPolyRef
		if bestNode.Pidx != 0 {
			parentRef = q.nodePool.GetNodeAtIdx(bestNode.Pidx).Id
		}

		for i := bestPoly.FirstLink; i != DT_NULL_LINK; i = bestTile.Links[i].Next {
			neighbourRef := bestTile.Links[i].Ref

			// Skip invalid ids and do not expand back to where we came from.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			// Get neighbour poly and tile.
			neighbourTile, neighbourPoly, _ := q.nav.tileAndPolyByRefUnsafe(neighbourRef)
			if !filter.passFilter(neighbourPoly) {
				continue
			}

			neighbourNode := q.nodePool.GetNode(neighbourRef)
			if neighbourNode == nil {
				outOfNodes = true
				continue
			}

			// If the node is visited the first time, calculate node position.
			if neighbourNode.Flags == 0 {
				neighbourNode.Pos, _ = q.getEdgeMidPoint(bestRef, bestPoly, bestTile,
					neighbourRef, neighbourPoly, neighbourTile)
			}

			// Calculate cost and heuristic.
			var cost, heuristic float32

			// Special case for last node.
			curCost := filter.getCost(bestNode.Pos[:], neighbourNode.Pos[:], bestPoly)
			if neighbourRef == endRef {
				endCost := filter.getCost(neighbourNode.Pos[:], endPos, neighbourPoly)
				cost = bestNode.Cost + curCost + endCost
				heuristic = 0
			} else {
				cost = bestNode.Cost + curCost
				heuristic = common.Vdist(neighbourNode.Pos[:], endPos) * H_SCALE
			}

			total := cost + heuristic

			// The node is already in open list and the new result is worse, skip.
			if (neighbourNode.Flags&DT_NODE_OPEN) != 0 && total >= neighbourNode.Total {
				continue
			}
			// The node is already visited and process, and the new result is worse, skip.
			if (neighbourNode.Flags&DT_NODE_CLOSED) != 0 && total >= neighbourNode.Total {
				continue
			}

			// Add or update the node.
			neighbourNode.Pidx = q.nodePool.GetNodeIdx(bestNode)
			neighbourNode.Flags &^= DT_NODE_CLOSED
			neighbourNode.Cost = cost
			neighbourNode.Total = total

			if (neighbourNode.Flags & DT_NODE_OPEN) != 0 {
				// Already in open, update node location.
				q.openList.Update(neighbourNode)
			} else {
				// Put the node in open list.
				neighbourNode.Flags |= DT_NODE_OPEN
				q.openList.Offer(neighbourNode)
			}

			// Update nearest node to target so far.
			if heuristic < lastBestNodeCost {
				lastBestNodeCost = heuristic
				lastBestNode = neighbourNode
			}
		}
	}

	path, status := q.getPathToNode(lastBestNode, maxPath)
	if lastBestNode.Id != endRef {
		status |= DT_PARTIAL_RESULT
	}
	if outOfNodes {
		status |= DT_OUT_OF_NODES
	}
	return path, status
}

func (q *NavMeshQuery) getPathToNode(endNode *DtNode, maxPath int) ([]DtPolyRef, DtStatus) {
	// Find the length of the entire path.
	length := 0
	for cur := endNode; cur != nil; cur = q.nodePool.GetNodeAtIdx(cur.Pidx) {
		length++
	}

	// If the path cannot be fully stored then advance to the last node we will be able to store.
	cur := endNode
	writeCount := length
	for ; writeCount > maxPath; writeCount-- {
		cur = q.nodePool.GetNodeAtIdx(cur.Pidx)
	}

	// Write path
	path := make([]DtPolyRef, writeCount)
	for i := writeCount - 1; i >= 0; i-- {
		path[i] = cur.Id
		cur = q.nodePool.GetNodeAtIdx(cur.Pidx)
	}

	if length > maxPath {
		return path, DT_SUCCESS | DT_BUFFER_TOO_SMALL
	}
	return path, DT_SUCCESS
}

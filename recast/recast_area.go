package recast

import (
	"github.com/gorustyt/tilemesh/common"
)

// neighbourIndex returns the span index reached from span s in column (x, z) through dir.
func neighbourIndex(chf *RcCompactHeightfield, s *RcCompactSpan, x, z, dir int) (nx, nz, ni int) {
	nx = x + common.GetDirOffsetX(dir)
	nz = z + common.GetDirOffsetY(dir)
	ni = chf.Cells[nx+nz*chf.Width].Index + RcGetCon(s, dir)
	return
}

func relaxDistance(dist []uint8, to, from, cost int) {
	nd := min(int(dist[from])+cost, 255)
	if nd < int(dist[to]) {
		dist[to] = uint8(nd)
	}
}

// RcErodeWalkableArea erodes the walkable area within the heightfield by the specified radius.
func RcErodeWalkableArea(ctx *RcContext, erosionRadius int, chf *RcCompactHeightfield) bool {
	ctx.StartTimer(RC_TIMER_ERODE_AREA)
	defer ctx.StopTimer(RC_TIMER_ERODE_AREA)

	xSize := chf.Width
	zSize := chf.Height
	distanceToBoundary := make([]uint8, chf.SpanCount)
	for i := range distanceToBoundary {
		distanceToBoundary[i] = 0xff
	}

	// Mark boundary cells.
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			cell := chf.Cells[x+z*xSize]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				if chf.Areas[spanIndex] == RC_NULL_AREA {
					distanceToBoundary[spanIndex] = 0
					continue
				}
				span := &chf.Spans[spanIndex]

				// Check that there is a non-null adjacent span in each of the 4 cardinal directions.
				neighborCount := 0
				for dir := 0; dir < 4; dir++ {
					if RcGetCon(span, dir) == RC_NOT_CONNECTED {
						break
					}
					_, _, ni := neighbourIndex(chf, span, x, z, dir)
					if chf.Areas[ni] == RC_NULL_AREA {
						break
					}
					neighborCount++
				}
				// At least one missing neighbour, so this is a boundary cell.
				if neighborCount != 4 {
					distanceToBoundary[spanIndex] = 0
				}
			}
		}
	}

	// Pass 1
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			cell := chf.Cells[x+z*xSize]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				span := &chf.Spans[spanIndex]
				if RcGetCon(span, 0) != RC_NOT_CONNECTED {
					// (-1,0)
					aX, aZ, aIndex := neighbourIndex(chf, span, x, z, 0)
					relaxDistance(distanceToBoundary, spanIndex, aIndex, 2)
					// (-1,-1)
					aSpan := &chf.Spans[aIndex]
					if RcGetCon(aSpan, 3) != RC_NOT_CONNECTED {
						_, _, bIndex := neighbourIndex(chf, aSpan, aX, aZ, 3)
						relaxDistance(distanceToBoundary, spanIndex, bIndex, 3)
					}
				}
				if RcGetCon(span, 3) != RC_NOT_CONNECTED {
					// (0,-1)
					aX, aZ, aIndex := neighbourIndex(chf, span, x, z, 3)
					relaxDistance(distanceToBoundary, spanIndex, aIndex, 2)
					// (1,-1)
					aSpan := &chf.Spans[aIndex]
					if RcGetCon(aSpan, 2) != RC_NOT_CONNECTED {
						_, _, bIndex := neighbourIndex(chf, aSpan, aX, aZ, 2)
						relaxDistance(distanceToBoundary, spanIndex, bIndex, 3)
					}
				}
			}
		}
	}

	// Pass 2
	for z := zSize - 1; z >= 0; z-- {
		for x := xSize - 1; x >= 0; x-- {
			cell := chf.Cells[x+z*xSize]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				span := &chf.Spans[spanIndex]
				if RcGetCon(span, 2) != RC_NOT_CONNECTED {
					// (1,0)
					aX, aZ, aIndex := neighbourIndex(chf, span, x, z, 2)
					relaxDistance(distanceToBoundary, spanIndex, aIndex, 2)
					// (1,1)
					aSpan := &chf.Spans[aIndex]
					if RcGetCon(aSpan, 1) != RC_NOT_CONNECTED {
						_, _, bIndex := neighbourIndex(chf, aSpan, aX, aZ, 1)
						relaxDistance(distanceToBoundary, spanIndex, bIndex, 3)
					}
				}
				if RcGetCon(span, 1) != RC_NOT_CONNECTED {
					// (0,1)
					aX, aZ, aIndex := neighbourIndex(chf, span, x, z, 1)
					relaxDistance(distanceToBoundary, spanIndex, aIndex, 2)
					// (-1,1)
					aSpan := &chf.Spans[aIndex]
					if RcGetCon(aSpan, 0) != RC_NOT_CONNECTED {
						_, _, bIndex := neighbourIndex(chf, aSpan, aX, aZ, 0)
						relaxDistance(distanceToBoundary, spanIndex, bIndex, 3)
					}
				}
			}
		}
	}

	minBoundaryDistance := erosionRadius * 2
	for spanIndex := 0; spanIndex < chf.SpanCount; spanIndex++ {
		if int(distanceToBoundary[spanIndex]) < minBoundaryDistance {
			chf.Areas[spanIndex] = RC_NULL_AREA
		}
	}
	return true
}

// RcMarkBoxArea applies an area id to all spans within the specified bounding box.
func RcMarkBoxArea(ctx *RcContext, boxMin, boxMax []float32, areaID uint8, chf *RcCompactHeightfield) {
	ctx.StartTimer(RC_TIMER_MARK_BOX_AREA)
	defer ctx.StopTimer(RC_TIMER_MARK_BOX_AREA)

	minX := int((boxMin[0] - chf.Bmin[0]) / chf.Cs)
	minY := int((boxMin[1] - chf.Bmin[1]) / chf.Ch)
	minZ := int((boxMin[2] - chf.Bmin[2]) / chf.Cs)
	maxX := int((boxMax[0] - chf.Bmin[0]) / chf.Cs)
	maxY := int((boxMax[1] - chf.Bmin[1]) / chf.Ch)
	maxZ := int((boxMax[2] - chf.Bmin[2]) / chf.Cs)

	if maxX < 0 || minX >= chf.Width || maxZ < 0 || minZ >= chf.Height {
		return
	}
	minX = max(minX, 0)
	maxX = min(maxX, chf.Width-1)
	minZ = max(minZ, 0)
	maxZ = min(maxZ, chf.Height-1)

	for z := minZ; z <= maxZ; z++ {
		for x := minX; x <= maxX; x++ {
			cell := chf.Cells[x+z*chf.Width]
			for i := cell.Index; i < cell.Index+cell.Count; i++ {
				s := &chf.Spans[i]
				if s.Y < minY || s.Y > maxY {
					continue
				}
				if chf.Areas[i] == RC_NULL_AREA {
					continue
				}
				chf.Areas[i] = areaID
			}
		}
	}
}

// RcMarkConvexPolyArea applies the area id to all spans within the specified convex
// polygon. verts holds the polygon on the xz-plane; the y range is [minY, maxY].
func RcMarkConvexPolyArea(ctx *RcContext, verts []float32, minY, maxY float32, areaID uint8, chf *RcCompactHeightfield) {
	ctx.StartTimer(RC_TIMER_MARK_CONVEXPOLY_AREA)
	defer ctx.StopTimer(RC_TIMER_MARK_CONVEXPOLY_AREA)

	nverts := len(verts) / 3
	if nverts < 3 {
		return
	}
	var bmin, bmax [3]float32
	common.Vcopy(bmin[:], verts)
	common.Vcopy(bmax[:], verts)
	for i := 1; i < nverts; i++ {
		common.Vmin(bmin[:], verts[i*3:])
		common.Vmax(bmax[:], verts[i*3:])
	}
	bmin[1] = minY
	bmax[1] = maxY

	minx := int((bmin[0] - chf.Bmin[0]) / chf.Cs)
	miny := int((bmin[1] - chf.Bmin[1]) / chf.Ch)
	minz := int((bmin[2] - chf.Bmin[2]) / chf.Cs)
	maxx := int((bmax[0] - chf.Bmin[0]) / chf.Cs)
	maxy := int((bmax[1] - chf.Bmin[1]) / chf.Ch)
	maxz := int((bmax[2] - chf.Bmin[2]) / chf.Cs)

	if maxx < 0 || minx >= chf.Width || maxz < 0 || minz >= chf.Height {
		return
	}
	minx = max(minx, 0)
	maxx = min(maxx, chf.Width-1)
	minz = max(minz, 0)
	maxz = min(maxz, chf.Height-1)

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			cell := chf.Cells[x+z*chf.Width]
			for i := cell.Index; i < cell.Index+cell.Count; i++ {
				s := &chf.Spans[i]
				if chf.Areas[i] == RC_NULL_AREA {
					continue
				}
				if s.Y >= miny && s.Y <= maxy {
					point := [3]float32{
						chf.Bmin[0] + (float32(x)+0.5)*chf.Cs,
						0,
						chf.Bmin[2] + (float32(z)+0.5)*chf.Cs,
					}
					if common.PointInPoly(nverts, verts, point[:]) {
						chf.Areas[i] = areaID
					}
				}
			}
		}
	}
}

package recast

import (
	"math"

	"github.com/gorustyt/tilemesh/common"
)

const (
	rcAxisX = 0
	rcAxisY = 1
	rcAxisZ = 2
)

func allocSpan(hf *RcHeightfield) *RcSpan {
	// If necessary, allocate new page and update the freelist.
	if hf.Freelist == nil {
		pool := &RcSpanPool{next: hf.Pools}
		hf.Pools = pool
		freeList := hf.Freelist
		for i := RC_SPANS_PER_POOL - 1; i >= 0; i-- {
			pool.items[i].Next = freeList
			freeList = &pool.items[i]
		}
		hf.Freelist = freeList
	}
	s := hf.Freelist
	hf.Freelist = s.Next
	return s
}

func freeSpan(hf *RcHeightfield, s *RcSpan) {
	if s == nil {
		return
	}
	s.Next = hf.Freelist
	hf.Freelist = s
}

// addSpan inserts a span into the column at (x, z), merging it with any spans it overlaps.
func addSpan(hf *RcHeightfield, x, z, smin, smax int, areaID uint8, flagMergeThreshold int) bool {
	newSpan := allocSpan(hf)
	newSpan.Smin = smin
	newSpan.Smax = smax
	newSpan.Area = areaID
	newSpan.Next = nil

	columnIndex := x + z*hf.Width
	var previousSpan *RcSpan
	currentSpan := hf.Spans[columnIndex]

	// Insert the new span, possibly merging it with existing spans.
	for currentSpan != nil {
		if currentSpan.Smin > newSpan.Smax {
			// Current span is completely after the new span, break.
			break
		}
		if currentSpan.Smax < newSpan.Smin {
			// Current span is completely before the new span. Keep going.
			previousSpan = currentSpan
			currentSpan = currentSpan.Next
			continue
		}
		// The new span overlaps with an existing span. Merge them.
		if currentSpan.Smin < newSpan.Smin {
			newSpan.Smin = currentSpan.Smin
		}
		if currentSpan.Smax > newSpan.Smax {
			newSpan.Smax = currentSpan.Smax
		}
		// Merge flags.
		if common.Abs(newSpan.Smax-currentSpan.Smax) <= flagMergeThreshold {
			newSpan.Area = max(newSpan.Area, currentSpan.Area)
		}
		// Remove the current span since it's now merged with newSpan.
		next := currentSpan.Next
		freeSpan(hf, currentSpan)
		if previousSpan != nil {
			previousSpan.Next = next
		} else {
			hf.Spans[columnIndex] = next
		}
		currentSpan = next
	}

	if previousSpan != nil {
		newSpan.Next = previousSpan.Next
		previousSpan.Next = newSpan
	} else {
		newSpan.Next = hf.Spans[columnIndex]
		hf.Spans[columnIndex] = newSpan
	}
	return true
}

// RcAddSpan adds a span to the specified heightfield.
func RcAddSpan(ctx *RcContext, hf *RcHeightfield, x, z, smin, smax int, areaID uint8, flagMergeThreshold int) bool {
	if !addSpan(hf, x, z, smin, smax, areaID, flagMergeThreshold) {
		ctx.Log(RC_LOG_ERROR, "rcAddSpan: Out of memory.")
		return false
	}
	return true
}

// dividePoly divides a convex polygon of max 12 vertices into two convex polygons
// across a separating axis.
func dividePoly(inVerts []float32, inVertsCount int, outVerts1, outVerts2 []float32, axisOffset float32, axis int) (outVerts1Count, outVerts2Count int) {
	// How far positive or negative away from the separating axis is each vertex.
	var inVertAxisDelta [12]float32
	for inVert := 0; inVert < inVertsCount; inVert++ {
		inVertAxisDelta[inVert] = axisOffset - inVerts[inVert*3+axis]
	}

	poly1Vert := 0
	poly2Vert := 0
	for inVertA, inVertB := 0, inVertsCount-1; inVertA < inVertsCount; inVertB, inVertA = inVertA, inVertA+1 {
		// If the two vertices are on the same side of the separating axis
		sameSide := (inVertAxisDelta[inVertA] >= 0) == (inVertAxisDelta[inVertB] >= 0)
		if !sameSide {
			s := inVertAxisDelta[inVertB] / (inVertAxisDelta[inVertB] - inVertAxisDelta[inVertA])
			outVerts1[poly1Vert*3+0] = inVerts[inVertB*3+0] + (inVerts[inVertA*3+0]-inVerts[inVertB*3+0])*s
			outVerts1[poly1Vert*3+1] = inVerts[inVertB*3+1] + (inVerts[inVertA*3+1]-inVerts[inVertB*3+1])*s
			outVerts1[poly1Vert*3+2] = inVerts[inVertB*3+2] + (inVerts[inVertA*3+2]-inVerts[inVertB*3+2])*s
			common.Vcopy(outVerts2[poly2Vert*3:], outVerts1[poly1Vert*3:])
			poly1Vert++
			poly2Vert++

			// add the inVertA point to the right polygon. Do NOT add points that are on the dividing line
			// since these were already added above
			if inVertAxisDelta[inVertA] > 0 {
				common.Vcopy(outVerts1[poly1Vert*3:], inVerts[inVertA*3:])
				poly1Vert++
			} else if inVertAxisDelta[inVertA] < 0 {
				common.Vcopy(outVerts2[poly2Vert*3:], inVerts[inVertA*3:])
				poly2Vert++
			}
		} else {
			// add the inVertA point to the right polygon. Addition is done even for points on the dividing line
			if inVertAxisDelta[inVertA] >= 0 {
				common.Vcopy(outVerts1[poly1Vert*3:], inVerts[inVertA*3:])
				poly1Vert++
				if inVertAxisDelta[inVertA] != 0 {
					continue
				}
			}
			common.Vcopy(outVerts2[poly2Vert*3:], inVerts[inVertA*3:])
			poly2Vert++
		}
	}
	return poly1Vert, poly2Vert
}

func rasterizeTri(v0, v1, v2 []float32, areaID uint8, hf *RcHeightfield,
	hfBBMin, hfBBMax []float32, cellSize, inverseCellSize, inverseCellHeight float32, flagMergeThreshold int) bool {
	// Calculate the bounding box of the triangle.
	var triBBMin, triBBMax [3]float32
	common.Vcopy(triBBMin[:], v0)
	common.Vmin(triBBMin[:], v1)
	common.Vmin(triBBMin[:], v2)
	common.Vcopy(triBBMax[:], v0)
	common.Vmax(triBBMax[:], v1)
	common.Vmax(triBBMax[:], v2)

	// If the triangle does not touch the bounding box of the heightfield, skip the triangle.
	if !common.OverlapBounds(triBBMin[:], triBBMax[:], hfBBMin, hfBBMax) {
		return true
	}

	w := hf.Width
	h := hf.Height
	by := hfBBMax[1] - hfBBMin[1]

	// Calculate the footprint of the triangle on the grid's z-axis
	z0 := int((triBBMin[2] - hfBBMin[2]) * inverseCellSize)
	z1 := int((triBBMax[2] - hfBBMin[2]) * inverseCellSize)
	// use -1 rather than 0 to cut the polygon properly at the start of the tile
	z0 = common.Clamp(z0, -1, h-1)
	z1 = common.Clamp(z1, 0, h-1)

	// Clip the triangle into all grid cells it touches.
	var buf [7 * 3 * 4]float32
	in := buf[0:21]
	inRow := buf[21:42]
	p1 := buf[42:63]
	p2 := buf[63:84]

	copy(in[0:3], v0)
	copy(in[3:6], v1)
	copy(in[6:9], v2)
	nvIn := 3
	var nvRow int

	for z := z0; z <= z1; z++ {
		// Clip polygon to row. Store the remaining polygon as well
		cellZ := hfBBMin[2] + float32(z)*cellSize
		nvRow, nvIn = dividePoly(in, nvIn, inRow, p1, cellZ+cellSize, rcAxisZ)
		in, p1 = p1, in

		if nvRow < 3 {
			continue
		}
		if z < 0 {
			continue
		}

		// find X-axis bounds of the row
		minX := inRow[0]
		maxX := inRow[0]
		for vert := 1; vert < nvRow; vert++ {
			minX = min(minX, inRow[vert*3])
			maxX = max(maxX, inRow[vert*3])
		}
		x0 := int((minX - hfBBMin[0]) * inverseCellSize)
		x1 := int((maxX - hfBBMin[0]) * inverseCellSize)
		if x1 < 0 || x0 >= w {
			continue
		}
		x0 = common.Clamp(x0, -1, w-1)
		x1 = common.Clamp(x1, 0, w-1)

		var nv int
		nv2 := nvRow
		for x := x0; x <= x1; x++ {
			// Clip polygon to column. store the remaining polygon as well
			cx := hfBBMin[0] + float32(x)*cellSize
			nv, nv2 = dividePoly(inRow, nv2, p1, p2, cx+cellSize, rcAxisX)
			inRow, p2 = p2, inRow

			if nv < 3 {
				continue
			}
			if x < 0 {
				continue
			}

			// Calculate min and max of the span.
			spanMin := p1[1]
			spanMax := p1[1]
			for vert := 1; vert < nv; vert++ {
				spanMin = min(spanMin, p1[vert*3+1])
				spanMax = max(spanMax, p1[vert*3+1])
			}
			spanMin -= hfBBMin[1]
			spanMax -= hfBBMin[1]

			// Skip the span if it's completely outside the heightfield bounding box
			if spanMax < 0 {
				continue
			}
			if spanMin > by {
				continue
			}
			// Clamp the span to the heightfield bounding box.
			if spanMin < 0 {
				spanMin = 0
			}
			if spanMax > by {
				spanMax = by
			}

			// Snap the span to the heightfield height grid.
			spanMinCellIndex := common.Clamp(int(math.Floor(float64(spanMin*inverseCellHeight))), 0, RC_SPAN_MAX_HEIGHT)
			spanMaxCellIndex := common.Clamp(int(math.Ceil(float64(spanMax*inverseCellHeight))), spanMinCellIndex+1, RC_SPAN_MAX_HEIGHT)

			if !addSpan(hf, x, z, spanMinCellIndex, spanMaxCellIndex, areaID, flagMergeThreshold) {
				return false
			}
		}
	}
	return true
}

// RcRasterizeTriangle rasterizes a single triangle into the specified heightfield.
func RcRasterizeTriangle(ctx *RcContext, v0, v1, v2 []float32, areaID uint8, hf *RcHeightfield, flagMergeThreshold int) bool {
	ctx.StartTimer(RC_TIMER_RASTERIZE_TRIANGLES)
	defer ctx.StopTimer(RC_TIMER_RASTERIZE_TRIANGLES)

	inverseCellSize := 1.0 / hf.Cs
	inverseCellHeight := 1.0 / hf.Ch
	if !rasterizeTri(v0, v1, v2, areaID, hf, hf.Bmin[:], hf.Bmax[:], hf.Cs, inverseCellSize, inverseCellHeight, flagMergeThreshold) {
		ctx.Log(RC_LOG_ERROR, "rcRasterizeTriangle: Out of memory.")
		return false
	}
	return true
}

// RcRasterizeTriangles rasterizes indexed triangle data into the specified heightfield.
// areas holds one area id per triangle.
func RcRasterizeTriangles(ctx *RcContext, verts []float32, tris []int32, areas []uint8, hf *RcHeightfield, flagMergeThreshold int) bool {
	ctx.StartTimer(RC_TIMER_RASTERIZE_TRIANGLES)
	defer ctx.StopTimer(RC_TIMER_RASTERIZE_TRIANGLES)

	inverseCellSize := 1.0 / hf.Cs
	inverseCellHeight := 1.0 / hf.Ch
	for triIndex := 0; triIndex < len(tris)/3; triIndex++ {
		v0 := common.GetVert3(verts, tris[triIndex*3+0])
		v1 := common.GetVert3(verts, tris[triIndex*3+1])
		v2 := common.GetVert3(verts, tris[triIndex*3+2])
		if !rasterizeTri(v0, v1, v2, areas[triIndex], hf, hf.Bmin[:], hf.Bmax[:], hf.Cs, inverseCellSize, inverseCellHeight, flagMergeThreshold) {
			ctx.Log(RC_LOG_ERROR, "rcRasterizeTriangles: Out of memory.")
			return false
		}
	}
	return true
}

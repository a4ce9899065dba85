package recast

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/tilemesh/common"
)

const (
	/// The number of spans allocated per span spool.
	RC_SPANS_PER_POOL = 2048
	/// Defines the number of bits allocated to RcSpan.Smin and RcSpan.Smax.
	RC_SPAN_HEIGHT_BITS = 13
	/// Defines the maximum value for RcSpan.Smin and RcSpan.Smax.
	RC_SPAN_MAX_HEIGHT = (1 << RC_SPAN_HEIGHT_BITS) - 1
)

type RcSpan struct {
	Smin int     ///< The lower limit of the span. [Limit: < #smax]
	Smax int     ///< The upper limit of the span. [Limit: <= #RC_SPAN_MAX_HEIGHT]
	Area uint8   ///< The area id assigned to the span.
	Next *RcSpan ///< The next span higher up in column.
}

// RcSpanPool is a memory pool used for quick allocation of spans within a heightfield.
type RcSpanPool struct {
	next  *RcSpanPool
	items [RC_SPANS_PER_POOL]RcSpan
}

// RcHeightfield is a dynamic heightfield representing obstructed space.
type RcHeightfield struct {
	Width    int         ///< The width of the heightfield. (Along the x-axis in cell units.)
	Height   int         ///< The height of the heightfield. (Along the z-axis in cell units.)
	Bmin     mgl32.Vec3  ///< The minimum bounds in world space. [(x, y, z)]
	Bmax     mgl32.Vec3  ///< The maximum bounds in world space. [(x, y, z)]
	Cs       float32     ///< The size of each cell. (On the xz-plane.)
	Ch       float32     ///< The height of each cell. (The minimum increment along the y-axis.)
	Spans    []*RcSpan   ///< Heightfield of spans (width*height).
	Pools    *RcSpanPool ///< Linked list of span pools.
	Freelist *RcSpan     ///< The next free span.
}

// RcCreateHeightfield initializes a new heightfield.
func RcCreateHeightfield(ctx *RcContext, width, height int, bmin, bmax mgl32.Vec3, cs, ch float32) (*RcHeightfield, bool) {
	if width <= 0 || height <= 0 || cs <= 0 || ch <= 0 {
		ctx.Log(RC_LOG_ERROR, "rcCreateHeightfield: invalid size %dx%d (cs=%f ch=%f)", width, height, cs, ch)
		return nil, false
	}
	return &RcHeightfield{
		Width:  width,
		Height: height,
		Bmin:   bmin,
		Bmax:   bmax,
		Cs:     cs,
		Ch:     ch,
		Spans:  make([]*RcSpan, width*height),
	}, true
}

// SpanCount returns the number of spans in the field, walkable or not.
func (hf *RcHeightfield) SpanCount() int {
	n := 0
	for _, s := range hf.Spans {
		for ; s != nil; s = s.Next {
			n++
		}
	}
	return n
}

// RcFilterLowHangingWalkableObstacles marks non-walkable spans as walkable if their maximum
// is within walkableClimb of the walkable neighbour below.
func RcFilterLowHangingWalkableObstacles(ctx *RcContext, walkableClimb int, heightfield *RcHeightfield) {
	ctx.StartTimer(RC_TIMER_FILTER_LOW_OBSTACLES)
	defer ctx.StopTimer(RC_TIMER_FILTER_LOW_OBSTACLES)

	xSize := heightfield.Width
	zSize := heightfield.Height
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			var previousSpan *RcSpan
			previousWasWalkable := false
			previousArea := uint8(RC_NULL_AREA)
			for span := heightfield.Spans[x+z*xSize]; span != nil; previousSpan, span = span, span.Next {
				walkable := span.Area != RC_NULL_AREA
				// If current span is not walkable, but there is walkable span just below it
				// and the height difference is small enough for the agent to walk over,
				// mark the current span as walkable too.
				if !walkable && previousWasWalkable {
					if common.Abs(span.Smax-previousSpan.Smax) <= walkableClimb {
						span.Area = previousArea
					}
				}
				// Copy the original walkable value regardless of whether we changed it,
				// so a run of non-walkable spans is not marked walkable.
				previousWasWalkable = walkable
				previousArea = span.Area
			}
		}
	}
}

// RcFilterLedgeSpans marks spans that are ledges as not-walkable.
func RcFilterLedgeSpans(ctx *RcContext, walkableHeight, walkableClimb int, heightfield *RcHeightfield) {
	ctx.StartTimer(RC_TIMER_FILTER_BORDER)
	defer ctx.StopTimer(RC_TIMER_FILTER_BORDER)

	const maxHeight = 0xffff
	xSize := heightfield.Width
	zSize := heightfield.Height
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			for span := heightfield.Spans[x+z*xSize]; span != nil; span = span.Next {
				if span.Area == RC_NULL_AREA {
					continue
				}
				floor := span.Smax
				ceiling := maxHeight
				if span.Next != nil {
					ceiling = span.Next.Smin
				}

				// The difference between this walkable area and the lowest neighbor walkable area.
				lowestNeighborFloorDifference := maxHeight
				// Min and max height of accessible neighbours.
				lowestTraversableNeighborFloor := span.Smax
				highestTraversableNeighborFloor := span.Smax

				for dir := 0; dir < 4; dir++ {
					nx := x + common.GetDirOffsetX(dir)
					nz := z + common.GetDirOffsetY(dir)
					// Skip neighbours which are out of bounds.
					if nx < 0 || nz < 0 || nx >= xSize || nz >= zSize {
						lowestNeighborFloorDifference = -walkableClimb - 1
						break
					}
					neighborSpan := heightfield.Spans[nx+nz*xSize]

					// The most we can step down to the neighbor is the walkableClimb distance.
					neighborCeiling := maxHeight
					if neighborSpan != nil {
						neighborCeiling = neighborSpan.Smin
					}
					if min(ceiling, neighborCeiling)-floor >= walkableHeight {
						lowestNeighborFloorDifference = -walkableClimb - 1
						break
					}

					for ; neighborSpan != nil; neighborSpan = neighborSpan.Next {
						neighborFloor := neighborSpan.Smax
						neighborCeiling = maxHeight
						if neighborSpan.Next != nil {
							neighborCeiling = neighborSpan.Next.Smin
						}
						// Only consider neighboring areas that have enough overlap to be potentially traversable.
						if min(ceiling, neighborCeiling)-max(floor, neighborFloor) < walkableHeight {
							continue
						}
						neighborFloorDifference := neighborFloor - floor
						lowestNeighborFloorDifference = min(lowestNeighborFloorDifference, neighborFloorDifference)

						if common.Abs(neighborFloorDifference) <= walkableClimb {
							lowestTraversableNeighborFloor = min(lowestTraversableNeighborFloor, neighborFloor)
							highestTraversableNeighborFloor = max(highestTraversableNeighborFloor, neighborFloor)
						} else if neighborFloorDifference < -walkableClimb {
							// We already know this will be considered a ledge span so we can early-out
							break
						}
					}
				}

				if lowestNeighborFloorDifference < -walkableClimb {
					span.Area = RC_NULL_AREA
				} else if highestTraversableNeighborFloor-lowestTraversableNeighborFloor > walkableClimb {
					// If the difference between all neighbor floors is too large, this is a steep slope.
					span.Area = RC_NULL_AREA
				}
			}
		}
	}
}

// RcFilterWalkableLowHeightSpans marks walkable spans as not walkable if the clearance above
// the span is less than the specified walkableHeight.
func RcFilterWalkableLowHeightSpans(ctx *RcContext, walkableHeight int, heightfield *RcHeightfield) {
	ctx.StartTimer(RC_TIMER_FILTER_WALKABLE)
	defer ctx.StopTimer(RC_TIMER_FILTER_WALKABLE)

	const maxHeight = 0xffff
	for _, span := range heightfield.Spans {
		for ; span != nil; span = span.Next {
			floor := span.Smax
			ceiling := maxHeight
			if span.Next != nil {
				ceiling = span.Next.Smin
			}
			if ceiling-floor < walkableHeight {
				span.Area = RC_NULL_AREA
			}
		}
	}
}

package recast

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/tilemesh/common"
)

// RcConfig specifies a configuration to use when performing Recast builds.
type RcConfig struct {
	/// The width of the field along the x-axis. [Limit: >= 0] [Units: vx]
	Width int

	/// The height of the field along the z-axis. [Limit: >= 0] [Units: vx]
	Height int

	/// The width/height size of tile's on the xz-plane. [Limit: >= 0] [Units: vx]
	TileSize int

	/// The size of the non-navigable border around the heightfield. [Limit: >=0] [Units: vx]
	BorderSize int

	/// The xz-plane cell size to use for fields. [Limit: > 0] [Units: wu]
	Cs float32

	/// The y-axis cell size to use for fields. [Limit: > 0] [Units: wu]
	Ch float32

	/// The minimum bounds of the field's AABB. [(x, y, z)] [Units: wu]
	Bmin mgl32.Vec3

	/// The maximum bounds of the field's AABB. [(x, y, z)] [Units: wu]
	Bmax mgl32.Vec3

	/// The maximum slope that is considered walkable. [Limits: 0 <= value < 90] [Units: Degrees]
	WalkableSlopeAngle float32

	/// Minimum floor to 'ceiling' height that will still allow the floor area to
	/// be considered walkable. [Limit: >= 3] [Units: vx]
	WalkableHeight int

	/// Maximum ledge height that is considered to still be traversable. [Limit: >=0] [Units: vx]
	WalkableClimb int

	/// The distance to erode/shrink the walkable area of the heightfield away from
	/// obstructions.  [Limit: >=0] [Units: vx]
	WalkableRadius int

	/// The maximum allowed length for contour edges along the border of the mesh. [Limit: >=0] [Units: vx]
	MaxEdgeLen int

	/// The maximum distance a simplified contour's border edges should deviate
	/// the original raw contour. [Limit: >=0] [Units: vx]
	MaxSimplificationError float32

	/// The minimum number of cells allowed to form isolated island areas. [Limit: >=0] [Units: vx]
	MinRegionArea int

	/// Any regions with a span count smaller than this value will, if possible,
	/// be merged with larger regions. [Limit: >=0] [Units: vx]
	MergeRegionArea int

	/// The maximum number of vertices allowed for polygons generated during the
	/// contour to polygon conversion process. [Limit: >= 3]
	MaxVertsPerPoly int

	/// Sets the sampling distance to use when generating the detail mesh.
	/// (For height detail only.) [Limits: 0 or >= 0.9] [Units: wu]
	DetailSampleDist float32

	/// The maximum distance the detail mesh surface should deviate from heightfield
	/// data. (For height detail only.) [Limit: >=0] [Units: wu]
	DetailSampleMaxError float32
}

const (
	/// The default area id used to indicate a walkable polygon.
	/// This is also the maximum allowed area id, and the only non-null area id
	/// recognized by some steps in the build process.
	RC_WALKABLE_AREA = 63
	/// Represents the null area.
	RC_NULL_AREA = 0
	/// The value returned by RcGetCon if the specified direction is not connected
	/// to another span. (Has no neighbor.)
	RC_NOT_CONNECTED = 0x3f
	/// Heightfield border flag. If a heightfield region ID has this bit set,
	/// then the region is a border region and its spans are considered unwalkable.
	RC_BORDER_REG = 0x8000
	/// Polygon touches multiple regions.
	RC_MULTIPLE_REGS = 0
	/// Border vertex flag on contour vertices.
	RC_BORDER_VERTEX = 0x10000
	/// Area border flag on contour vertices.
	RC_AREA_BORDER = 0x20000
	/// Applied to the region id field of contour vertices to extract the region id.
	RC_CONTOUR_REG_MASK = 0xffff
	/// An value which indicates an invalid index within a mesh.
	RC_MESH_NULL_IDX = 0xffff

	RC_CONTOUR_TESS_WALL_EDGES = 0x01
	RC_CONTOUR_TESS_AREA_EDGES = 0x02
)

// RcCalcBounds calculates the bounding box of an array of vertices.
func RcCalcBounds(verts []float32) (bmin, bmax mgl32.Vec3) {
	if len(verts) < 3 {
		return
	}
	copy(bmin[:], verts)
	copy(bmax[:], verts)
	for i := 1; i < len(verts)/3; i++ {
		v := common.GetVert3(verts, i)
		common.Vmin(bmin[:], v)
		common.Vmax(bmax[:], v)
	}
	return
}

// RcCalcGridSize calculates the grid size based on the bounding box and grid cell size.
func RcCalcGridSize(bmin, bmax mgl32.Vec3, cs float32) (sizeX, sizeZ int) {
	sizeX = int((bmax[0]-bmin[0])/cs + 0.5)
	sizeZ = int((bmax[2]-bmin[2])/cs + 0.5)
	return
}

func calcTriNormal(v0, v1, v2 []float32, norm []float32) {
	var e0, e1 [3]float32
	common.Vsub(e0[:], v1, v0)
	common.Vsub(e1[:], v2, v0)
	common.Vcross(norm, e0[:], e1[:])
	common.Vnormalize(norm)
}

// RcMarkWalkableTriangles sets the area id of every triangle whose slope is below
// walkableSlopeAngle to RC_WALKABLE_AREA. Other entries of areas are left unchanged.
func RcMarkWalkableTriangles(ctx *RcContext, walkableSlopeAngle float32, verts []float32, tris []int32, areas []uint8) {
	walkableThr := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	var norm [3]float32
	for i := 0; i < len(tris)/3; i++ {
		tri := tris[i*3:]
		calcTriNormal(common.GetVert3(verts, tri[0]), common.GetVert3(verts, tri[1]), common.GetVert3(verts, tri[2]), norm[:])
		if norm[1] > walkableThr {
			areas[i] = RC_WALKABLE_AREA
		}
	}
}

// RcClearUnwalkableTriangles resets the area id of every too-steep triangle to RC_NULL_AREA.
func RcClearUnwalkableTriangles(ctx *RcContext, walkableSlopeAngle float32, verts []float32, tris []int32, areas []uint8) {
	walkableLimitY := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	var norm [3]float32
	for i := 0; i < len(tris)/3; i++ {
		tri := tris[i*3:]
		calcTriNormal(common.GetVert3(verts, tri[0]), common.GetVert3(verts, tri[1]), common.GetVert3(verts, tri[2]), norm[:])
		if norm[1] <= walkableLimitY {
			areas[i] = RC_NULL_AREA
		}
	}
}

// RcCompactCell provides information on the content of a cell column in a compact heightfield.
type RcCompactCell struct {
	Index int ///< Index to the first span in the column.
	Count int ///< Number of spans in the column.
}

// RcCompactSpan represents a span of unobstructed space within a compact heightfield.
type RcCompactSpan struct {
	Y   int    ///< The lower extent of the span. (Measured from the heightfield's base.)
	Reg int    ///< The id of the region the span belongs to. (Or zero if not in a region.)
	Con uint32 ///< Packed neighbor connection data.
	H   int    ///< The height of the span.  (Measured from #y.)
}

// RcCompactHeightfield is a compact, static heightfield representing unobstructed space.
type RcCompactHeightfield struct {
	Width          int             ///< The width of the heightfield. (Along the x-axis in cell units.)
	Height         int             ///< The height of the heightfield. (Along the z-axis in cell units.)
	SpanCount      int             ///< The number of spans in the heightfield.
	WalkableHeight int             ///< The walkable height used during the build of the field.
	WalkableClimb  int             ///< The walkable climb used during the build of the field.
	BorderSize     int             ///< The AABB border size used during the build of the field.
	MaxDistance    int             ///< The maximum distance value of any span within the field.
	MaxRegions     int             ///< The maximum region id of any span within the field.
	Bmin           mgl32.Vec3      ///< The minimum bounds in world space. [(x, y, z)]
	Bmax           mgl32.Vec3      ///< The maximum bounds in world space. [(x, y, z)]
	Cs             float32         ///< The size of each cell. (On the xz-plane.)
	Ch             float32         ///< The height of each cell. (The minimum increment along the y-axis.)
	Cells          []RcCompactCell ///< Array of cells. [Size: width*height]
	Spans          []RcCompactSpan ///< Array of spans. [Size: SpanCount]
	Dist           []int           ///< Array containing border distance data. [Size: SpanCount]
	Areas          []uint8         ///< Array containing area id data. [Size: SpanCount]
}

// RcSetCon sets the neighbor connection data for the specified direction.
func RcSetCon(s *RcCompactSpan, dir int, i int) {
	shift := uint32(dir * 6)
	s.Con = (s.Con &^ (uint32(0x3f) << shift)) | ((uint32(i) & 0x3f) << shift)
}

// RcGetCon gets neighbor connection data for the specified direction.
func RcGetCon(s *RcCompactSpan, dir int) int {
	shift := uint32(dir * 6)
	return int((s.Con >> shift) & 0x3f)
}

func getHeightFieldSpanCount(hf *RcHeightfield) int {
	spanCount := 0
	for _, s := range hf.Spans {
		for ; s != nil; s = s.Next {
			if s.Area != RC_NULL_AREA {
				spanCount++
			}
		}
	}
	return spanCount
}

// RcBuildCompactHeightfield builds a compact heightfield representing open space, from a
// heightfield representing solid space.
func RcBuildCompactHeightfield(ctx *RcContext, walkableHeight, walkableClimb int, hf *RcHeightfield) (*RcCompactHeightfield, bool) {
	ctx.StartTimer(RC_TIMER_BUILD_COMPACTHEIGHTFIELD)
	defer ctx.StopTimer(RC_TIMER_BUILD_COMPACTHEIGHTFIELD)

	w := hf.Width
	h := hf.Height
	spanCount := getHeightFieldSpanCount(hf)

	chf := &RcCompactHeightfield{
		Width:          w,
		Height:         h,
		SpanCount:      spanCount,
		WalkableHeight: walkableHeight,
		WalkableClimb:  walkableClimb,
		Bmin:           hf.Bmin,
		Bmax:           hf.Bmax,
		Cs:             hf.Cs,
		Ch:             hf.Ch,
		Cells:          make([]RcCompactCell, w*h),
		Spans:          make([]RcCompactSpan, spanCount),
		Areas:          make([]uint8, spanCount),
	}
	chf.Bmax[1] += float32(walkableHeight) * hf.Ch

	const maxHeight = 0xffff
	idx := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := hf.Spans[x+y*w]
			if s == nil {
				continue
			}
			c := &chf.Cells[x+y*w]
			c.Index = idx
			c.Count = 0
			for ; s != nil; s = s.Next {
				if s.Area == RC_NULL_AREA {
					continue
				}
				bot := s.Smax
				top := maxHeight
				if s.Next != nil {
					top = s.Next.Smin
				}
				chf.Spans[idx].Y = common.Clamp(bot, 0, 0xffff)
				chf.Spans[idx].H = common.Clamp(top-bot, 0, 0xff)
				chf.Areas[idx] = s.Area
				idx++
				c.Count++
			}
		}
	}

	// Find neighbour connections.
	const maxLayers = RC_NOT_CONNECTED - 1
	tooHighNeighbour := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				for dir := 0; dir < 4; dir++ {
					RcSetCon(s, dir, RC_NOT_CONNECTED)
					nx := x + common.GetDirOffsetX(dir)
					ny := y + common.GetDirOffsetY(dir)
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					// Iterate over all neighbour spans and check if any of the is
					// accessible from current cell.
					nc := chf.Cells[nx+ny*w]
					for k := nc.Index; k < nc.Index+nc.Count; k++ {
						ns := &chf.Spans[k]
						bot := max(s.Y, ns.Y)
						top := min(s.Y+s.H, ns.Y+ns.H)
						if top-bot >= walkableHeight && common.Abs(ns.Y-s.Y) <= walkableClimb {
							lidx := k - nc.Index
							if lidx < 0 || lidx > maxLayers {
								tooHighNeighbour = max(tooHighNeighbour, lidx)
								continue
							}
							RcSetCon(s, dir, lidx)
							break
						}
					}
				}
			}
		}
	}
	if tooHighNeighbour > maxLayers {
		ctx.Log(RC_LOG_ERROR, "rcBuildCompactHeightfield: Heightfield has too many layers %d (max: %d)", tooHighNeighbour, maxLayers)
	}
	return chf, true
}

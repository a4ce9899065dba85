package detour

import (
	"errors"
	"fmt"

	"github.com/gorustyt/tilemesh/common/rw"
)

const (
	/// The maximum number of vertices per navigation polygon.
	DT_VERTS_PER_POLYGON = 6

	DT_NULL_LINK uint32 = 0xffffffff

	/// A flag that indicates that an entity links to an external entity.
	/// (E.g. A polygon edge is a portal that links to another polygon.)
	DT_EXT_LINK = 0x8000

	/// A flag that indicates that an off-mesh connection can be traversed in both directions. (Is bidirectional.)
	DT_OFFMESH_CON_BIDIR = 1

	/// A magic number used to detect compatibility of navigation tile data.
	DT_NAVMESH_MAGIC = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'

	/// A version number used to detect compatibility of navigation tile data.
	DT_NAVMESH_VERSION = 7

	/// The maximum number of user defined area ids.
	DT_MAX_AREAS = 64

	/// The navigation mesh owns the tile memory and is responsible for freeing it.
	DT_TILE_FREE_DATA = 0x01
)

const (
	/// The polygon is a standard convex polygon that is part of the surface of the mesh.
	DT_POLYTYPE_GROUND = 0
	/// The polygon is an off-mesh connection consisting of two vertices.
	DT_POLYTYPE_OFFMESH_CONNECTION = 1
)

const DT_DETAIL_EDGE_BOUNDARY = 0x01 ///< Detail triangle edge is part of the poly boundary

// Encoded sizes of the tile data sections.
const (
	meshHeaderSize   = 100
	polySize         = 32
	linkSize         = 12
	polyDetailSize   = 10
	bvNodeSize       = 16
	offMeshConSize   = 36
	navMeshParamSize = 28
)

var (
	ErrWrongMagic   = errors.New("detour: wrong tile magic")
	ErrWrongVersion = errors.New("detour: wrong tile version")
)

type DtPolyRef uint32
type DtTileRef uint32

// DtPoly defines a polygon within a DtMeshTile object.
type DtPoly struct {
	/// Index to first link in linked list. (Or #DT_NULL_LINK if there is no link.)
	FirstLink uint32

	/// The indices of the polygon's vertices.
	/// The actual vertices are located in DtMeshTile::verts.
	Verts [DT_VERTS_PER_POLYGON]uint16

	/// Packed data representing neighbor polygons references and flags for each edge.
	Neis [DT_VERTS_PER_POLYGON]uint16

	/// The user defined polygon flags.
	Flags uint16

	/// The number of vertices in the polygon.
	VertCount uint8

	/// The bit packed area id and polygon type.
	AreaAndtype uint8
}

func (p *DtPoly) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(p.FirstLink)
	w.WriteInt16s(p.Verts[:])
	w.WriteInt16s(p.Neis[:])
	w.WriteInt16(p.Flags)
	w.WriteInt8(p.VertCount)
	w.WriteInt8(p.AreaAndtype)
}

func (p *DtPoly) FromBin(r *rw.ReaderWriter) {
	p.FirstLink = r.ReadUInt32()
	r.ReadUInt16s(p.Verts[:])
	r.ReadUInt16s(p.Neis[:])
	p.Flags = r.ReadUInt16()
	p.VertCount = r.ReadUInt8()
	p.AreaAndtype = r.ReadUInt8()
}

// SetArea sets the user defined area id. [Limit: < #DT_MAX_AREAS]
func (p *DtPoly) SetArea(a uint8) { p.AreaAndtype = (p.AreaAndtype & 0xc0) | (a & 0x3f) }

// SetType sets the polygon type. (See: #dtPolyTypes.)
func (p *DtPoly) SetType(t uint8) { p.AreaAndtype = (p.AreaAndtype & 0x3f) | (t << 6) }

// GetArea gets the user defined area id.
func (p *DtPoly) GetArea() uint8 { return p.AreaAndtype & 0x3f }

// GetType gets the polygon type. (See: #dtPolyTypes)
func (p *DtPoly) GetType() uint8 { return p.AreaAndtype >> 6 }

// DtPolyDetail defines the location of detail sub-mesh data within a DtMeshTile.
type DtPolyDetail struct {
	VertBase  uint32 ///< The offset of the vertices in the DtMeshTile::detailVerts array.
	TriBase   uint32 ///< The offset of the triangles in the DtMeshTile::detailTris array.
	VertCount uint8  ///< The number of vertices in the sub-mesh.
	TriCount  uint8  ///< The number of triangles in the sub-mesh.
}

func (d *DtPolyDetail) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(d.VertBase)
	w.WriteInt32(d.TriBase)
	w.WriteInt8(d.VertCount)
	w.WriteInt8(d.TriCount)
}

func (d *DtPolyDetail) FromBin(r *rw.ReaderWriter) {
	d.VertBase = r.ReadUInt32()
	d.TriBase = r.ReadUInt32()
	d.VertCount = r.ReadUInt8()
	d.TriCount = r.ReadUInt8()
}

// DtLink defines a link between polygons.
type DtLink struct {
	Ref  DtPolyRef ///< Neighbour reference. (The neighbor that is linked to.)
	Next uint32    ///< Index of the next link.
	Edge uint8     ///< Index of the polygon edge that owns this link.
	Side uint8     ///< If a boundary link, defines on which side the link is.
	Bmin uint8     ///< If a boundary link, defines the minimum sub-edge area.
	Bmax uint8     ///< If a boundary link, defines the maximum sub-edge area.
}

// DtBVNode is a bounding volume node.
type DtBVNode struct {
	Bmin [3]uint16 ///< Minimum bounds of the node's AABB. [(x, y, z)]
	Bmax [3]uint16 ///< Maximum bounds of the node's AABB. [(x, y, z)]
	I    int32     ///< The node's index. (Negative for escape sequence.)
}

func (d *DtBVNode) ToBin(w *rw.ReaderWriter) {
	w.WriteInt16s(d.Bmin[:])
	w.WriteInt16s(d.Bmax[:])
	w.WriteInt32(d.I)
}

func (d *DtBVNode) FromBin(r *rw.ReaderWriter) {
	r.ReadUInt16s(d.Bmin[:])
	r.ReadUInt16s(d.Bmax[:])
	d.I = r.ReadInt32()
}

// DtOffMeshConnection defines a navigation mesh off-mesh connection within a DtMeshTile object.
// An off-mesh connection is a user defined traversable connection made up to two vertices.
type DtOffMeshConnection struct {
	/// The endpoints of the connection. [(ax, ay, az, bx, by, bz)]
	Pos [6]float32

	/// The radius of the endpoints. [Limit: >= 0]
	Rad float32

	/// The polygon reference of the connection within the tile.
	Poly uint16

	/// Link flags.
	Flags uint8

	/// End point side.
	Side uint8

	/// The id of the offmesh connection. (User assigned when the navigation mesh is built.)
	UserId uint32
}

func (d *DtOffMeshConnection) ToBin(w *rw.ReaderWriter) {
	w.WriteFloat32s(d.Pos[:])
	w.WriteFloat32(d.Rad)
	w.WriteInt16(d.Poly)
	w.WriteInt8(d.Flags)
	w.WriteInt8(d.Side)
	w.WriteInt32(d.UserId)
}

func (d *DtOffMeshConnection) FromBin(r *rw.ReaderWriter) {
	r.ReadFloat32s(d.Pos[:])
	d.Rad = r.ReadFloat32()
	d.Poly = r.ReadUInt16()
	d.Flags = r.ReadUInt8()
	d.Side = r.ReadUInt8()
	d.UserId = r.ReadUInt32()
}

// DtMeshHeader provides high level information related to a DtMeshTile object.
type DtMeshHeader struct {
	Magic           int32  ///< Tile magic number. (Used to identify the data format.)
	Version         int32  ///< Tile data format version number.
	X               int32  ///< The x-position of the tile within the DtNavMesh tile grid. (x, y, layer)
	Y               int32  ///< The y-position of the tile within the DtNavMesh tile grid. (x, y, layer)
	Layer           int32  ///< The layer of the tile within the DtNavMesh tile grid. (x, y, layer)
	UserId          uint32 ///< The user defined id of the tile.
	PolyCount       int32  ///< The number of polygons in the tile.
	VertCount       int32  ///< The number of vertices in the tile.
	MaxLinkCount    int32  ///< The number of allocated links.
	DetailMeshCount int32  ///< The number of sub-meshes in the detail mesh.

	/// The number of unique vertices in the detail mesh. (In addition to the polygon vertices.)
	DetailVertCount int32

	DetailTriCount  int32      ///< The number of triangles in the detail mesh.
	BvNodeCount     int32      ///< The number of bounding volume nodes. (Zero if bounding volumes are disabled.)
	OffMeshConCount int32      ///< The number of off-mesh connections.
	OffMeshBase     int32      ///< The index of the first polygon which is an off-mesh connection.
	WalkableHeight  float32    ///< The height of the agents using the tile.
	WalkableRadius  float32    ///< The radius of the agents using the tile.
	WalkableClimb   float32    ///< The maximum climb height of the agents using the tile.
	Bmin            [3]float32 ///< The minimum bounds of the tile's AABB. [(x, y, z)]
	Bmax            [3]float32 ///< The maximum bounds of the tile's AABB. [(x, y, z)]

	/// The bounding volume quantization factor.
	BvQuantFactor float32
}

func (d *DtMeshHeader) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(d.Magic)
	w.WriteInt32(d.Version)
	w.WriteInt32(d.X)
	w.WriteInt32(d.Y)
	w.WriteInt32(d.Layer)
	w.WriteInt32(d.UserId)
	w.WriteInt32(d.PolyCount)
	w.WriteInt32(d.VertCount)
	w.WriteInt32(d.MaxLinkCount)
	w.WriteInt32(d.DetailMeshCount)
	w.WriteInt32(d.DetailVertCount)
	w.WriteInt32(d.DetailTriCount)
	w.WriteInt32(d.BvNodeCount)
	w.WriteInt32(d.OffMeshConCount)
	w.WriteInt32(d.OffMeshBase)
	w.WriteFloat32(d.WalkableHeight)
	w.WriteFloat32(d.WalkableRadius)
	w.WriteFloat32(d.WalkableClimb)
	w.WriteFloat32s(d.Bmin[:])
	w.WriteFloat32s(d.Bmax[:])
	w.WriteFloat32(d.BvQuantFactor)
}

func (d *DtMeshHeader) FromBin(r *rw.ReaderWriter) {
	d.Magic = r.ReadInt32()
	d.Version = r.ReadInt32()
	d.X = r.ReadInt32()
	d.Y = r.ReadInt32()
	d.Layer = r.ReadInt32()
	d.UserId = r.ReadUInt32()
	d.PolyCount = r.ReadInt32()
	d.VertCount = r.ReadInt32()
	d.MaxLinkCount = r.ReadInt32()
	d.DetailMeshCount = r.ReadInt32()
	d.DetailVertCount = r.ReadInt32()
	d.DetailTriCount = r.ReadInt32()
	d.BvNodeCount = r.ReadInt32()
	d.OffMeshConCount = r.ReadInt32()
	d.OffMeshBase = r.ReadInt32()
	d.WalkableHeight = r.ReadFloat32()
	d.WalkableRadius = r.ReadFloat32()
	d.WalkableClimb = r.ReadFloat32()
	r.ReadFloat32s(d.Bmin[:])
	r.ReadFloat32s(d.Bmax[:])
	d.BvQuantFactor = r.ReadFloat32()
}

// NavMeshParams configures a multi-tile navigation mesh. The values are used to
// allocate space during the initialization of a navigation mesh.
type NavMeshParams struct {
	Orig       [3]float32 ///< The world space origin of the navigation mesh's tile space. [(x, y, z)]
	TileWidth  float32    ///< The width of each tile. (Along the x-axis.)
	TileHeight float32    ///< The height of each tile. (Along the z-axis.)
	MaxTiles   int32      ///< The maximum number of tiles the navigation mesh can contain.
	MaxPolys   int32      ///< The maximum number of polygons each tile can contain.
}

func (d *NavMeshParams) FromBin(r *rw.ReaderWriter) {
	r.ReadFloat32s(d.Orig[:])
	d.TileWidth = r.ReadFloat32()
	d.TileHeight = r.ReadFloat32()
	d.MaxTiles = r.ReadInt32()
	d.MaxPolys = r.ReadInt32()
}

func (d *NavMeshParams) ToBin(w *rw.ReaderWriter) {
	w.WriteFloat32s(d.Orig[:])
	w.WriteFloat32(d.TileWidth)
	w.WriteFloat32(d.TileHeight)
	w.WriteInt32(d.MaxTiles)
	w.WriteInt32(d.MaxPolys)
}

// NavMeshData is the decoded form of a tile blob produced by DtCreateNavMeshData.
// The links section of a blob is reserved space only; links are created when the
// tile is added to a NavMesh.
type NavMeshData struct {
	Header      DtMeshHeader
	NavVerts    []float32
	NavPolys    []DtPoly
	NavDMeshes  []DtPolyDetail
	NavDVerts   []float32
	NavDTris    []uint8
	NavBvtree   []DtBVNode
	OffMeshCons []DtOffMeshConnection
}

func padTo4(w *rw.ReaderWriter, n int) {
	w.PadZero(dtAlign4(n) - n)
}

func skipTo4(r *rw.ReaderWriter, n int) {
	r.Skip(dtAlign4(n) - n)
}

// ToBin encodes the tile. Every section starts on a 4 byte boundary.
func (d *NavMeshData) ToBin() []byte {
	w := rw.NewWriter()
	d.Header.ToBin(w)
	w.WriteFloat32s(d.NavVerts)
	for i := range d.NavPolys {
		d.NavPolys[i].ToBin(w)
	}
	w.PadZero(linkSize * int(d.Header.MaxLinkCount))
	for i := range d.NavDMeshes {
		d.NavDMeshes[i].ToBin(w)
	}
	padTo4(w, polyDetailSize*len(d.NavDMeshes))
	w.WriteFloat32s(d.NavDVerts)
	w.WriteInt8s(d.NavDTris)
	padTo4(w, len(d.NavDTris))
	for i := range d.NavBvtree {
		d.NavBvtree[i].ToBin(w)
	}
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].ToBin(w)
	}
	return w.GetWriteBytes()
}

// FromBin decodes a tile blob. It fails on a foreign magic, a foreign version or a short buffer.
func (d *NavMeshData) FromBin(data []byte) error {
	r := rw.NewReader(data)
	d.Header.FromBin(r)
	if err := r.Err(); err != nil {
		return fmt.Errorf("tile header: %w", err)
	}
	h := &d.Header
	if h.Magic != DT_NAVMESH_MAGIC {
		return ErrWrongMagic
	}
	if h.Version != DT_NAVMESH_VERSION {
		return ErrWrongVersion
	}
	if h.VertCount < 0 || h.PolyCount < 0 || h.MaxLinkCount < 0 || h.DetailMeshCount < 0 ||
		h.DetailVertCount < 0 || h.DetailTriCount < 0 || h.BvNodeCount < 0 || h.OffMeshConCount < 0 {
		return fmt.Errorf("tile header: negative section size: %w", rw.ErrShortBuffer)
	}
	if need := dataSize(h); need > len(data) {
		return fmt.Errorf("tile needs %d bytes, got %d: %w", need, len(data), rw.ErrShortBuffer)
	}

	d.NavVerts = make([]float32, 3*h.VertCount)
	r.ReadFloat32s(d.NavVerts)
	d.NavPolys = make([]DtPoly, h.PolyCount)
	for i := range d.NavPolys {
		d.NavPolys[i].FromBin(r)
	}
	r.Skip(linkSize * int(h.MaxLinkCount))
	d.NavDMeshes = make([]DtPolyDetail, h.DetailMeshCount)
	for i := range d.NavDMeshes {
		d.NavDMeshes[i].FromBin(r)
	}
	skipTo4(r, polyDetailSize*len(d.NavDMeshes))
	d.NavDVerts = make([]float32, 3*h.DetailVertCount)
	r.ReadFloat32s(d.NavDVerts)
	d.NavDTris = make([]uint8, 4*h.DetailTriCount)
	r.ReadUInt8s(d.NavDTris)
	skipTo4(r, len(d.NavDTris))
	d.NavBvtree = make([]DtBVNode, h.BvNodeCount)
	for i := range d.NavBvtree {
		d.NavBvtree[i].FromBin(r)
	}
	d.OffMeshCons = make([]DtOffMeshConnection, h.OffMeshConCount)
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].FromBin(r)
	}
	return r.Err()
}

// dataSize returns the encoded byte size of a tile described by h.
func dataSize(h *DtMeshHeader) int {
	return meshHeaderSize +
		4*3*int(h.VertCount) +
		polySize*int(h.PolyCount) +
		linkSize*int(h.MaxLinkCount) +
		dtAlign4(polyDetailSize*int(h.DetailMeshCount)) +
		4*3*int(h.DetailVertCount) +
		dtAlign4(4*int(h.DetailTriCount)) +
		bvNodeSize*int(h.BvNodeCount) +
		offMeshConSize*int(h.OffMeshConCount)
}

// DtMeshTile defines a navigation mesh tile.
type DtMeshTile struct {
	salt uint32 ///< Counter describing modifications to the tile.
	idx  int    ///< Slot of the tile in the owning NavMesh.

	linksFreeList uint32                ///< Index to the next free link.
	Header        *DtMeshHeader         ///< The tile header.
	Polys         []DtPoly              ///< The tile polygons. [Size: DtMeshHeader::polyCount]
	Verts         []float32             ///< The tile vertices. [(x, y, z) * DtMeshHeader::vertCount]
	Links         []DtLink              ///< The tile links. [Size: DtMeshHeader::maxLinkCount]
	DetailMeshes  []DtPolyDetail        ///< The tile's detail sub-meshes. [Size: DtMeshHeader::detailMeshCount]
	DetailVerts   []float32             ///< The detail mesh's unique vertices. [(x, y, z) * DtMeshHeader::detailVertCount]
	DetailTris    []uint8               ///< The detail mesh's triangles. [(vertA, vertB, vertC, triFlags) * DtMeshHeader::detailTriCount]
	BvTree        []DtBVNode            ///< The tile bounding volume nodes. [Size: DtMeshHeader::bvNodeCount]
	OffMeshCons   []DtOffMeshConnection ///< The tile off-mesh connections. [Size: DtMeshHeader::offMeshConCount]
	Data          []byte                ///< The tile data. (Not directly accessed under normal situations.)
	Flags         int                   ///< Tile flags. (See: #dtTileFlags)
	next          *DtMeshTile           ///< The next free tile, or the next tile in the spatial grid.
}

// Salt returns the modification counter of the tile slot.
func (t *DtMeshTile) Salt() uint32 { return t.salt }

// GetDetailTriEdgeFlags extracts the edge flags of the specified detail triangle edge.
func GetDetailTriEdgeFlags(triFlags uint8, edgeIndex int) int {
	return (int(triFlags) >> (edgeIndex * 2)) & 0x3
}

package detour

import (
	"errors"
	"math"

	"github.com/gorustyt/tilemesh/common"
)

// NavMesh is a navigation mesh based on tiles of convex polygons.
// It owns the byte buffer of every tile added to it.
type NavMesh struct {
	params     NavMeshParams ///< Current initialization params.
	orig       [3]float32    ///< Origin of the tile (0,0)
	tileWidth  float32       ///< Dimensions of each tile.
	tileHeight float32
	maxTiles   int ///< Max number of tiles.

	tileLutSize int ///< Tile hash lookup size (must be pot).
	tileLutMask int ///< Tile hash lookup mask.

	posLookup []*DtMeshTile ///< Tile hash lookup.
	nextFree  *DtMeshTile   ///< Freelist of tiles.
	tiles     []DtMeshTile  ///< List of tiles.

	saltBits uint32 ///< Number of salt bits in the tile ID.
	tileBits uint32 ///< Number of tile bits in the tile ID.
	polyBits uint32 ///< Number of poly bits in the tile ID.
}

// Init initializes the navigation mesh for tiled use.
func (m *NavMesh) Init(params *NavMeshParams) DtStatus {
	if params.MaxTiles <= 0 || params.MaxPolys <= 0 {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	// ID bits are checked before anything is allocated for the tiles.
	tileBits := common.Ilog2(common.NextPow2(uint32(params.MaxTiles)))
	polyBits := common.Ilog2(common.NextPow2(uint32(params.MaxPolys)))
	if tileBits+polyBits >= 32 {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	// Only allow 31 salt bits, since the salt mask is calculated using 32bit uint and it will overflow.
	saltBits := min(31, 32-tileBits-polyBits)
	if saltBits < 10 {
		return DT_FAILURE | DT_INVALID_PARAM
	}

	m.params = *params
	m.orig = params.Orig
	m.tileWidth = params.TileWidth
	m.tileHeight = params.TileHeight
	m.tileBits, m.polyBits, m.saltBits = tileBits, polyBits, saltBits

	// Init tiles
	m.maxTiles = int(params.MaxTiles)
	m.tileLutSize = int(common.NextPow2(uint32(params.MaxTiles / 4)))
	if m.tileLutSize == 0 {
		m.tileLutSize = 1
	}
	m.tileLutMask = m.tileLutSize - 1

	m.tiles = make([]DtMeshTile, m.maxTiles)
	m.posLookup = make([]*DtMeshTile, m.tileLutSize)
	m.nextFree = nil
	for i := m.maxTiles - 1; i >= 0; i-- {
		m.tiles[i].salt = 1
		m.tiles[i].idx = i
		m.tiles[i].next = m.nextFree
		m.nextFree = &m.tiles[i]
	}
	return DT_SUCCESS
}

// Params returns the parameters used to initialize the navigation mesh.
func (m *NavMesh) Params() *NavMeshParams {
	return &m.params
}

// MaxTiles returns the maximum number of tiles supported by the navigation mesh.
func (m *NavMesh) MaxTiles() int {
	return m.maxTiles
}

// GetTile returns the tile at the specified index. Slots without data have a nil Header.
func (m *NavMesh) GetTile(i int) *DtMeshTile {
	return &m.tiles[i]
}

// TileCount returns the number of tiles currently in the mesh.
func (m *NavMesh) TileCount() int {
	n := 0
	for i := range m.tiles {
		if m.tiles[i].Header != nil {
			n++
		}
	}
	return n
}

// EncodePolyId derives a standard polygon reference.
func (m *NavMesh) EncodePolyId(salt, it, ip uint32) DtPolyRef {
	return DtPolyRef((salt << (m.polyBits + m.tileBits)) | (it << m.polyBits) | ip)
}

// DecodePolyId decodes a standard polygon reference.
func (m *NavMesh) DecodePolyId(ref DtPolyRef) (salt, it, ip uint32) {
	saltMask := uint32(1)<<m.saltBits - 1
	tileMask := uint32(1)<<m.tileBits - 1
	polyMask := uint32(1)<<m.polyBits - 1
	salt = (uint32(ref) >> (m.polyBits + m.tileBits)) & saltMask
	it = (uint32(ref) >> m.polyBits) & tileMask
	ip = uint32(ref) & polyMask
	return salt, it, ip
}

// DecodePolyIdSalt extracts a tile's salt value from the specified polygon reference.
func (m *NavMesh) DecodePolyIdSalt(ref DtPolyRef) uint32 {
	saltMask := uint32(1)<<m.saltBits - 1
	return (uint32(ref) >> (m.polyBits + m.tileBits)) & saltMask
}

// DecodePolyIdTile extracts the tile's index from the specified polygon reference.
func (m *NavMesh) DecodePolyIdTile(ref DtPolyRef) uint32 {
	tileMask := uint32(1)<<m.tileBits - 1
	return (uint32(ref) >> m.polyBits) & tileMask
}

// DecodePolyIdPoly extracts the polygon's index (within its tile) from the specified polygon reference.
func (m *NavMesh) DecodePolyIdPoly(ref DtPolyRef) uint32 {
	polyMask := uint32(1)<<m.polyBits - 1
	return uint32(ref) & polyMask
}

// PolyRefBase gets the polygon reference for the tile's base polygon.
func (m *NavMesh) PolyRefBase(tile *DtMeshTile) DtPolyRef {
	if tile == nil {
		return 0
	}
	return m.EncodePolyId(tile.salt, uint32(tile.idx), 0)
}

// TileRef gets the tile reference for the specified tile.
func (m *NavMesh) TileRef(tile *DtMeshTile) DtTileRef {
	if tile == nil {
		return 0
	}
	return DtTileRef(m.EncodePolyId(tile.salt, uint32(tile.idx), 0))
}

// TileByRef gets the tile for the specified tile reference, or nil if the reference is stale.
func (m *NavMesh) TileByRef(ref DtTileRef) *DtMeshTile {
	if ref == 0 {
		return nil
	}
	tileIndex := m.DecodePolyIdTile(DtPolyRef(ref))
	tileSalt := m.DecodePolyIdSalt(DtPolyRef(ref))
	if int(tileIndex) >= m.maxTiles {
		return nil
	}
	tile := &m.tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil
	}
	return tile
}

// CalcTileLoc calculates the tile grid location for the specified world position.
func (m *NavMesh) CalcTileLoc(pos []float32) (tx, ty int) {
	tx = int(math.Floor(float64((pos[0] - m.orig[0]) / m.tileWidth)))
	ty = int(math.Floor(float64((pos[2] - m.orig[2]) / m.tileHeight)))
	return tx, ty
}

// TileAt gets the tile at the specified grid location, or nil.
func (m *NavMesh) TileAt(x, y, layer int) *DtMeshTile {
	// Find tile based on hash.
	h := computeTileHash(x, y, m.tileLutMask)
	for tile := m.posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil &&
			int(tile.Header.X) == x &&
			int(tile.Header.Y) == y &&
			int(tile.Header.Layer) == layer {
			return tile
		}
	}
	return nil
}

// TilesAt gets all tiles at the specified grid location. (All layers.)
func (m *NavMesh) TilesAt(x, y int) []*DtMeshTile {
	var tiles []*DtMeshTile
	// Find tile based on hash.
	h := computeTileHash(x, y, m.tileLutMask)
	for tile := m.posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil && int(tile.Header.X) == x && int(tile.Header.Y) == y {
			tiles = append(tiles, tile)
		}
	}
	return tiles
}

func (m *NavMesh) neighbourTilesAt(x, y, side int) []*DtMeshTile {
	nx, ny := x, y
	switch side {
	case 0:
		nx++
	case 1:
		nx++
		ny++
	case 2:
		ny++
	case 3:
		nx--
		ny++
	case 4:
		nx--
	case 5:
		nx--
		ny--
	case 6:
		ny--
	case 7:
		nx++
		ny--
	}
	return m.TilesAt(nx, ny)
}

// TileRefAt gets the tile reference for the tile at specified grid location, or 0.
func (m *NavMesh) TileRefAt(x, y, layer int) DtTileRef {
	return m.TileRef(m.TileAt(x, y, layer))
}

// TileAndPolyByRef gets the tile and polygon for the specified polygon reference.
func (m *NavMesh) TileAndPolyByRef(ref DtPolyRef) (*DtMeshTile, *DtPoly, DtStatus) {
	if ref == 0 {
		return nil, nil, DT_FAILURE
	}
	salt, it, ip := m.DecodePolyId(ref)
	if int(it) >= m.maxTiles {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := &m.tiles[it]
	if tile.salt != salt || tile.Header == nil {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if int(ip) >= int(tile.Header.PolyCount) {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	return tile, &tile.Polys[ip], DT_SUCCESS
}

// tileAndPolyByRefUnsafe skips validation; only use with references known to be valid.
func (m *NavMesh) tileAndPolyByRefUnsafe(ref DtPolyRef) (*DtMeshTile, *DtPoly, int) {
	_, it, ip := m.DecodePolyId(ref)
	tile := &m.tiles[it]
	return tile, &tile.Polys[ip], int(ip)
}

// IsValidPolyRef checks the validity of a polygon reference.
func (m *NavMesh) IsValidPolyRef(ref DtPolyRef) bool {
	_, _, status := m.TileAndPolyByRef(ref)
	return status.Succeed()
}

func allocLink(tile *DtMeshTile) uint32 {
	if tile.linksFreeList == DT_NULL_LINK {
		return DT_NULL_LINK
	}
	link := tile.linksFreeList
	tile.linksFreeList = tile.Links[link].Next
	return link
}

func freeLink(tile *DtMeshTile, link uint32) {
	tile.Links[link].Next = tile.linksFreeList
	tile.linksFreeList = link
}

// AddTile adds a tile to the navigation mesh. data is taken over by the mesh and must not be
// modified afterwards. A non-zero lastRef restores the tile under its previous reference.
func (m *NavMesh) AddTile(data []byte, flags int, lastRef DtTileRef) (DtTileRef, DtStatus) {
	decoded := &NavMeshData{}
	if err := decoded.FromBin(data); err != nil {
		switch {
		case errors.Is(err, ErrWrongMagic):
			return 0, DT_FAILURE | DT_WRONG_MAGIC
		case errors.Is(err, ErrWrongVersion):
			return 0, DT_FAILURE | DT_WRONG_VERSION
		}
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	header := &decoded.Header

	// Make sure the location is free.
	if m.TileAt(int(header.X), int(header.Y), int(header.Layer)) != nil {
		return 0, DT_FAILURE | DT_ALREADY_OCCUPIED
	}

	// Allocate a tile.
	var tile *DtMeshTile
	if lastRef == 0 {
		if m.nextFree != nil {
			tile = m.nextFree
			m.nextFree = tile.next
			tile.next = nil
		}
	} else {
		// Try to relocate the tile to specific index with same salt.
		tileIndex := int(m.DecodePolyIdTile(DtPolyRef(lastRef)))
		if tileIndex >= m.maxTiles {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		// Try to find the specific tile id from the free list.
		target := &m.tiles[tileIndex]
		var prev *DtMeshTile
		tile = m.nextFree
		for tile != nil && tile != target {
			prev = tile
			tile = tile.next
		}
		// Could not find the correct location.
		if tile != target {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		// Remove from freelist
		if prev == nil {
			m.nextFree = tile.next
		} else {
			prev.next = tile.next
		}

		// Restore salt.
		tile.salt = m.DecodePolyIdSalt(DtPolyRef(lastRef))
	}

	// Make sure we could allocate a tile.
	if tile == nil {
		return 0, DT_FAILURE | DT_OUT_OF_MEMORY
	}

	// Insert tile into the position lut.
	h := computeTileHash(int(header.X), int(header.Y), m.tileLutMask)
	tile.next = m.posLookup[h]
	m.posLookup[h] = tile

	// Patch header pointers.
	tile.Verts = decoded.NavVerts
	tile.Polys = decoded.NavPolys
	tile.Links = make([]DtLink, header.MaxLinkCount)
	tile.DetailMeshes = decoded.NavDMeshes
	tile.DetailVerts = decoded.NavDVerts
	tile.DetailTris = decoded.NavDTris
	tile.BvTree = decoded.NavBvtree
	tile.OffMeshCons = decoded.OffMeshCons

	// If there are no items in the bvtree, reset the tree pointer.
	if header.BvNodeCount == 0 {
		tile.BvTree = nil
	}

	// Build links freelist
	tile.linksFreeList = 0
	if header.MaxLinkCount == 0 {
		tile.linksFreeList = DT_NULL_LINK
	} else {
		tile.Links[header.MaxLinkCount-1].Next = DT_NULL_LINK
		for i := 0; i < int(header.MaxLinkCount)-1; i++ {
			tile.Links[i].Next = uint32(i + 1)
		}
	}

	// Init tile.
	tile.Header = header
	tile.Data = data
	tile.Flags = flags

	m.connectIntLinks(tile)

	// Base off-mesh connections to their starting polygons and connect connections inside the tile.
	m.baseOffMeshLinks(tile)
	m.connectExtOffMeshLinks(tile, tile, -1)

	// Create connections with neighbour tiles.

	// Connect with layers in current tile.
	for _, nei := range m.TilesAt(int(header.X), int(header.Y)) {
		if nei == tile {
			continue
		}
		m.connectExtLinks(tile, nei, -1)
		m.connectExtLinks(nei, tile, -1)
		m.connectExtOffMeshLinks(tile, nei, -1)
		m.connectExtOffMeshLinks(nei, tile, -1)
	}

	// Connect with neighbour tiles.
	for i := 0; i < 8; i++ {
		for _, nei := range m.neighbourTilesAt(int(header.X), int(header.Y), i) {
			m.connectExtLinks(tile, nei, i)
			m.connectExtLinks(nei, tile, dtOppositeTile(i))
			m.connectExtOffMeshLinks(tile, nei, i)
			m.connectExtOffMeshLinks(nei, tile, dtOppositeTile(i))
		}
	}

	return m.TileRef(tile), DT_SUCCESS
}

// RemoveTile removes the specified tile from the navigation mesh and hands back its data.
func (m *NavMesh) RemoveTile(ref DtTileRef) ([]byte, DtStatus) {
	if ref == 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tileIndex := m.DecodePolyIdTile(DtPolyRef(ref))
	tileSalt := m.DecodePolyIdSalt(DtPolyRef(ref))
	if int(tileIndex) >= m.maxTiles {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := &m.tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	// Remove tile from hash lookup.
	x, y := int(tile.Header.X), int(tile.Header.Y)
	h := computeTileHash(x, y, m.tileLutMask)
	var prev *DtMeshTile
	for cur := m.posLookup[h]; cur != nil; cur = cur.next {
		if cur == tile {
			if prev != nil {
				prev.next = cur.next
			} else {
				m.posLookup[h] = cur.next
			}
			break
		}
		prev = cur
	}

	// Remove connections to neighbour tiles.
	// Disconnect from other layers in current tile.
	for _, nei := range m.TilesAt(x, y) {
		if nei == tile {
			continue
		}
		m.unconnectLinks(nei, tile)
	}

	// Disconnect from neighbour tiles.
	for i := 0; i < 8; i++ {
		for _, nei := range m.neighbourTilesAt(x, y, i) {
			m.unconnectLinks(nei, tile)
		}
	}

	data := tile.Data

	// Reset tile.
	tile.Header = nil
	tile.Flags = 0
	tile.linksFreeList = 0
	tile.Polys = nil
	tile.Verts = nil
	tile.Links = nil
	tile.DetailMeshes = nil
	tile.DetailVerts = nil
	tile.DetailTris = nil
	tile.BvTree = nil
	tile.OffMeshCons = nil
	tile.Data = nil

	// Update salt, salt should never be zero.
	tile.salt = (tile.salt + 1) & (uint32(1)<<m.saltBits - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	// Add to free list.
	tile.next = m.nextFree
	m.nextFree = tile

	return data, DT_SUCCESS
}

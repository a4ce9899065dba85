package debug_utils

import (
	"github.com/gorustyt/tilemesh/detour"
)

type DrawNavMeshFlags int

const (
	DU_DRAWNAVMESH_OFFMESHCONS DrawNavMeshFlags = 1 << iota
	DU_DRAWNAVMESH_COLOR_TILES
	DU_DRAWNAVMESH_TILE_BOUNDS
)

// DuDebugDrawNavMesh draws every loaded tile of nav.
func DuDebugDrawNavMesh(dd DuDebugDraw, nav *detour.NavMesh, flags DrawNavMeshFlags) {
	if dd == nil || nav == nil {
		return
	}
	for i := 0; i < nav.MaxTiles(); i++ {
		tile := nav.GetTile(i)
		if tile.Header == nil {
			continue
		}
		DrawMeshTile(dd, tile, i, flags)
	}
}

// DrawMeshTile draws the detail triangles of a tile coloured by area, or by
// tile slot with DU_DRAWNAVMESH_COLOR_TILES, followed by its edges.
func DrawMeshTile(dd DuDebugDraw, tile *detour.DtMeshTile, slot int, flags DrawNavMeshFlags) {
	tileCol := DuIntToCol(slot, 192)
	dd.Begin(DU_DRAW_TRIS, 1)
	for i := range tile.Polys[:tile.Header.PolyCount] {
		p := &tile.Polys[i]
		if p.GetType() == detour.DT_POLYTYPE_OFFMESH_CONNECTION {
			continue
		}
		col := DuTransCol(AreaToCol(p.GetArea()), 192)
		if flags&DU_DRAWNAVMESH_COLOR_TILES != 0 {
			col = tileCol
		}
		pd := &tile.DetailMeshes[i]
		for j := 0; j < int(pd.TriCount); j++ {
			t := tile.DetailTris[(int(pd.TriBase)+j)*4:]
			for k := 0; k < 3; k++ {
				v := detailVertex(tile, p, pd, t[k])
				dd.Vertex(v[0], v[1], v[2], col)
			}
		}
	}
	dd.End()

	drawPolyBoundaries(dd, tile, DuRGBA(0, 48, 64, 32), 1.5, true)
	drawPolyBoundaries(dd, tile, DuRGBA(0, 48, 64, 220), 2.5, false)

	if flags&DU_DRAWNAVMESH_TILE_BOUNDS != 0 {
		h := tile.Header
		DuDebugDrawBoxWire(dd, h.Bmin[0], h.Bmin[1], h.Bmin[2], h.Bmax[0], h.Bmax[1], h.Bmax[2],
			DuRGBA(255, 255, 255, 128), 1)
	}
	if flags&DU_DRAWNAVMESH_OFFMESHCONS != 0 {
		drawOffMeshConnections(dd, tile)
	}

	dd.Begin(DU_DRAW_POINTS, 3)
	vcol := DuRGBA(0, 0, 0, 196)
	for i := 0; i < int(tile.Header.VertCount); i++ {
		v := tile.Verts[i*3:]
		dd.Vertex(v[0], v[1], v[2], vcol)
	}
	dd.End()
}

func detailVertex(tile *detour.DtMeshTile, p *detour.DtPoly, pd *detour.DtPolyDetail, idx uint8) []float32 {
	if idx < p.VertCount {
		return tile.Verts[int(p.Verts[idx])*3:]
	}
	return tile.DetailVerts[(int(pd.VertBase)+int(idx-p.VertCount))*3:]
}

// drawPolyBoundaries draws either the inner edges shared by two polygons or
// the outer edges, portals to neighbour tiles included.
func drawPolyBoundaries(dd DuDebugDraw, tile *detour.DtMeshTile, col Colorb, lineWidth float32, inner bool) {
	dd.Begin(DU_DRAW_LINES, lineWidth)
	for i := range tile.Polys[:tile.Header.PolyCount] {
		p := &tile.Polys[i]
		if p.GetType() == detour.DT_POLYTYPE_OFFMESH_CONNECTION {
			continue
		}
		for j := 0; j < int(p.VertCount); j++ {
			c := col
			nei := p.Neis[j]
			if inner {
				if nei == 0 {
					continue
				}
				if nei&detour.DT_EXT_LINK != 0 {
					if !hasEdgeLink(tile, p, j) {
						continue
					}
					c = DuRGBA(255, 255, 255, 48)
				}
			} else if nei != 0 {
				continue
			}
			v0 := tile.Verts[int(p.Verts[j])*3:]
			v1 := tile.Verts[int(p.Verts[(j+1)%int(p.VertCount)])*3:]
			dd.Vertex(v0[0], v0[1], v0[2], c)
			dd.Vertex(v1[0], v1[1], v1[2], c)
		}
	}
	dd.End()
}

func hasEdgeLink(tile *detour.DtMeshTile, p *detour.DtPoly, edge int) bool {
	for k := p.FirstLink; k != detour.DT_NULL_LINK; k = tile.Links[k].Next {
		if int(tile.Links[k].Edge) == edge {
			return true
		}
	}
	return false
}

func drawOffMeshConnections(dd DuDebugDraw, tile *detour.DtMeshTile) {
	dd.Begin(DU_DRAW_LINES, 2)
	for i := range tile.Polys[:tile.Header.PolyCount] {
		p := &tile.Polys[i]
		if p.GetType() != detour.DT_POLYTYPE_OFFMESH_CONNECTION {
			continue
		}
		con := &tile.OffMeshCons[i-int(tile.Header.OffMeshBase)]
		col := DuDarkenCol(AreaToCol(p.GetArea()))
		va := tile.Verts[int(p.Verts[0])*3:]
		vb := tile.Verts[int(p.Verts[1])*3:]

		startSet, endSet := false, false
		for k := p.FirstLink; k != detour.DT_NULL_LINK; k = tile.Links[k].Next {
			switch tile.Links[k].Edge {
			case 0:
				startSet = true
			case 1:
				endSet = true
			}
		}
		dd.Vertex(va[0], va[1], va[2], col)
		dd.Vertex(con.Pos[0], con.Pos[1], con.Pos[2], col)
		DuAppendCircle(dd, con.Pos[0], con.Pos[1]+0.1, con.Pos[2], con.Rad, linkCol(startSet))
		dd.Vertex(vb[0], vb[1], vb[2], col)
		dd.Vertex(con.Pos[3], con.Pos[4], con.Pos[5], col)
		DuAppendCircle(dd, con.Pos[3], con.Pos[4]+0.1, con.Pos[5], con.Rad, linkCol(endSet))
		DuAppendArc(dd, va[0], va[1], va[2], vb[0], vb[1], vb[2], 0.25, col)
	}
	dd.End()
}

func linkCol(linked bool) Colorb {
	if linked {
		return DuRGBA(220, 32, 16, 196)
	}
	return DuRGBA(0, 0, 0, 64)
}

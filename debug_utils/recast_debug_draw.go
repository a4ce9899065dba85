package debug_utils

import (
	"github.com/gorustyt/tilemesh/recast"
)

// DuDebugDrawPolyMesh draws the polygons of pmesh filled by area with their
// edges on top.
func DuDebugDrawPolyMesh(dd DuDebugDraw, pmesh *recast.RcPolyMesh) {
	if dd == nil || pmesh == nil {
		return
	}
	nvp := pmesh.Nvp
	cs, ch := pmesh.Cs, pmesh.Ch
	orig := pmesh.Bmin
	vert := func(i int) (x, y, z float32) {
		v := pmesh.Verts[i*3:]
		return orig[0] + float32(v[0])*cs, orig[1] + float32(v[1]+1)*ch, orig[2] + float32(v[2])*cs
	}

	dd.Begin(DU_DRAW_TRIS, 1)
	for i := 0; i < pmesh.Npolys; i++ {
		p := pmesh.Polys[i*nvp*2:]
		col := DuTransCol(AreaToCol(pmesh.Areas[i]), 64)
		if pmesh.Areas[i] == recast.RC_NULL_AREA {
			col = DuRGBA(0, 0, 0, 64)
		}
		for j := 2; j < nvp; j++ {
			if p[j] == recast.RC_MESH_NULL_IDX {
				break
			}
			for _, k := range [3]int{p[0], p[j-1], p[j]} {
				x, y, z := vert(k)
				dd.Vertex(x, y, z, col)
			}
		}
	}
	dd.End()

	coln := DuRGBA(0, 48, 64, 32)
	colb := DuRGBA(0, 48, 64, 220)
	dd.Begin(DU_DRAW_LINES, 1.5)
	for i := 0; i < pmesh.Npolys; i++ {
		p := pmesh.Polys[i*nvp*2:]
		for j := 0; j < nvp; j++ {
			if p[j] == recast.RC_MESH_NULL_IDX {
				break
			}
			nj := j + 1
			if nj >= nvp || p[nj] == recast.RC_MESH_NULL_IDX {
				nj = 0
			}
			col := coln
			if p[nvp+j]&0x8000 != 0 {
				col = colb
			}
			x, y, z := vert(p[j])
			dd.Vertex(x, y, z, col)
			x, y, z = vert(p[nj])
			dd.Vertex(x, y, z, col)
		}
	}
	dd.End()
}

// DuDebugDrawContours draws the simplified contours coloured by region.
func DuDebugDrawContours(dd DuDebugDraw, cset *recast.RcContourSet, alpha int) {
	if dd == nil || cset == nil {
		return
	}
	orig := cset.Bmin
	cs, ch := cset.Cs, cset.Ch
	dd.Begin(DU_DRAW_LINES, 2.5)
	for i := range cset.Conts {
		c := &cset.Conts[i]
		if c.Nverts == 0 {
			continue
		}
		color := DuIntToCol(c.Reg, alpha)
		bcolor := DuLerpCol(color, DuRGBA(255, 255, 255, alpha), 128)
		for j, k := 0, c.Nverts-1; j < c.Nverts; k, j = j, j+1 {
			va := c.Verts[k*4:]
			vb := c.Verts[j*4:]
			col := color
			if va[3]&recast.RC_AREA_BORDER != 0 {
				col = bcolor
			}
			dd.Vertex(orig[0]+float32(va[0])*cs, orig[1]+float32(va[1]+1)*ch, orig[2]+float32(va[2])*cs, col)
			dd.Vertex(orig[0]+float32(vb[0])*cs, orig[1]+float32(vb[1]+1)*ch, orig[2]+float32(vb[2])*cs, col)
		}
	}
	dd.End()
}

// DuDebugDrawCompactHeightfieldRegions draws one quad per span coloured by
// region id. Spans outside any region are black.
func DuDebugDrawCompactHeightfieldRegions(dd DuDebugDraw, chf *recast.RcCompactHeightfield) {
	if dd == nil || chf == nil {
		return
	}
	cs, ch := chf.Cs, chf.Ch
	dd.Begin(DU_DRAW_QUADS, 1)
	for y := 0; y < chf.Height; y++ {
		for x := 0; x < chf.Width; x++ {
			fx := chf.Bmin[0] + float32(x)*cs
			fz := chf.Bmin[2] + float32(y)*cs
			c := &chf.Cells[x+y*chf.Width]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				fy := chf.Bmin[1] + float32(s.Y)*ch
				col := DuRGBA(0, 0, 0, 64)
				if s.Reg != 0 {
					col = DuIntToCol(s.Reg, 192)
				}
				dd.Vertex(fx, fy, fz, col)
				dd.Vertex(fx, fy, fz+cs, col)
				dd.Vertex(fx+cs, fy, fz+cs, col)
				dd.Vertex(fx+cs, fy, fz, col)
			}
		}
	}
	dd.End()
}

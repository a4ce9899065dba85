package debug_utils

import (
	"math"
)

type DuDebugDrawPrimitives int

const (
	DU_DRAW_POINTS DuDebugDrawPrimitives = iota
	DU_DRAW_LINES
	DU_DRAW_TRIS
	DU_DRAW_QUADS
)

// Vertices returns how many vertices make up one primitive.
func (p DuDebugDrawPrimitives) Vertices() int {
	switch p {
	case DU_DRAW_POINTS:
		return 1
	case DU_DRAW_LINES:
		return 2
	case DU_DRAW_TRIS:
		return 3
	default:
		return 4
	}
}

// DuDebugDraw receives batches of primitives. Begin starts a batch, size is
// the point or line width.
type DuDebugDraw interface {
	Begin(prim DuDebugDrawPrimitives, size float32)
	Vertex(x, y, z float32, color Colorb)
	End()
}

type displayVertex struct {
	Pos   [3]float32
	Color Colorb
}

type displayBatch struct {
	Prim  DuDebugDrawPrimitives
	Size  float32
	Verts []displayVertex
}

// DuDisplayList records draw calls so they can be inspected or replayed.
type DuDisplayList struct {
	batches []displayBatch
	cur     *displayBatch
}

func NewDuDisplayList() *DuDisplayList {
	return &DuDisplayList{}
}

func (d *DuDisplayList) Begin(prim DuDebugDrawPrimitives, size float32) {
	d.batches = append(d.batches, displayBatch{Prim: prim, Size: size})
	d.cur = &d.batches[len(d.batches)-1]
}

func (d *DuDisplayList) Vertex(x, y, z float32, color Colorb) {
	if d.cur == nil {
		return
	}
	d.cur.Verts = append(d.cur.Verts, displayVertex{Pos: [3]float32{x, y, z}, Color: color})
}

func (d *DuDisplayList) End() {
	d.cur = nil
}

// Count returns the number of whole primitives of kind prim.
func (d *DuDisplayList) Count(prim DuDebugDrawPrimitives) int {
	n := 0
	for _, b := range d.batches {
		if b.Prim == prim {
			n += len(b.Verts) / prim.Vertices()
		}
	}
	return n
}

func (d *DuDisplayList) Clear() {
	d.batches = d.batches[:0]
	d.cur = nil
}

// Draw replays the list into dd.
func (d *DuDisplayList) Draw(dd DuDebugDraw) {
	for _, b := range d.batches {
		dd.Begin(b.Prim, b.Size)
		for _, v := range b.Verts {
			dd.Vertex(v.Pos[0], v.Pos[1], v.Pos[2], v.Color)
		}
		dd.End()
	}
}

func evalArc(x0, y0, z0, dx, dy, dz, h, u float32) (x, y, z float32) {
	x = x0 + dx*u
	y = y0 + dy*u + h*(1-(u*2-1)*(u*2-1))
	z = z0 + dz*u
	return
}

// DuAppendArc appends line segments of a parabolic arc from p0 to p1.
func DuAppendArc(dd DuDebugDraw, x0, y0, z0, x1, y1, z1, h float32, col Colorb) {
	const numArcPts = 8
	const pad = 0.05
	const arcPtsScale = (1.0 - pad*2) / numArcPts
	dx := x1 - x0
	dy := y1 - y0
	dz := z1 - z0
	length := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
	px, py, pz := evalArc(x0, y0, z0, dx, dy, dz, length*h, pad)
	for i := 1; i <= numArcPts; i++ {
		u := pad + float32(i)*arcPtsScale
		qx, qy, qz := evalArc(x0, y0, z0, dx, dy, dz, length*h, u)
		dd.Vertex(px, py, pz, col)
		dd.Vertex(qx, qy, qz, col)
		px, py, pz = qx, qy, qz
	}
}

func DuAppendCircle(dd DuDebugDraw, x, y, z, r float32, col Colorb) {
	const numSeg = 40
	var dir [numSeg * 2]float32
	for i := 0; i < numSeg; i++ {
		a := float64(i) / numSeg * math.Pi * 2
		dir[i*2] = float32(math.Cos(a))
		dir[i*2+1] = float32(math.Sin(a))
	}
	for i, j := 0, numSeg-1; i < numSeg; j, i = i, i+1 {
		dd.Vertex(x+dir[j*2]*r, y, z+dir[j*2+1]*r, col)
		dd.Vertex(x+dir[i*2]*r, y, z+dir[i*2+1]*r, col)
	}
}

func DuAppendCross(dd DuDebugDraw, x, y, z, s float32, col Colorb) {
	dd.Vertex(x-s, y, z, col)
	dd.Vertex(x+s, y, z, col)
	dd.Vertex(x, y-s, z, col)
	dd.Vertex(x, y+s, z, col)
	dd.Vertex(x, y, z-s, col)
	dd.Vertex(x, y, z+s, col)
}

// DuAppendBoxWire appends the twelve edges of an axis aligned box.
func DuAppendBoxWire(dd DuDebugDraw, minx, miny, minz, maxx, maxy, maxz float32, col Colorb) {
	corners := [8][3]float32{
		{minx, miny, minz}, {maxx, miny, minz}, {maxx, miny, maxz}, {minx, miny, maxz},
		{minx, maxy, minz}, {maxx, maxy, minz}, {maxx, maxy, maxz}, {minx, maxy, maxz},
	}
	edges := [12][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	for _, e := range edges {
		a, b := corners[e[0]], corners[e[1]]
		dd.Vertex(a[0], a[1], a[2], col)
		dd.Vertex(b[0], b[1], b[2], col)
	}
}

func DuDebugDrawBoxWire(dd DuDebugDraw, minx, miny, minz, maxx, maxy, maxz float32, col Colorb, lineWidth float32) {
	if dd == nil {
		return
	}
	dd.Begin(DU_DRAW_LINES, lineWidth)
	DuAppendBoxWire(dd, minx, miny, minz, maxx, maxy, maxz, col)
	dd.End()
}

// DuDebugDrawGridXZ draws a w by h grid of square cells on the xz plane.
func DuDebugDrawGridXZ(dd DuDebugDraw, ox, oy, oz float32, w, h int, size float32, col Colorb, lineWidth float32) {
	if dd == nil {
		return
	}
	dd.Begin(DU_DRAW_LINES, lineWidth)
	for i := 0; i <= h; i++ {
		dd.Vertex(ox, oy, oz+float32(i)*size, col)
		dd.Vertex(ox+float32(w)*size, oy, oz+float32(i)*size, col)
	}
	for i := 0; i <= w; i++ {
		dd.Vertex(ox+float32(i)*size, oy, oz, col)
		dd.Vertex(ox+float32(i)*size, oy, oz+float32(h)*size, col)
	}
	dd.End()
}

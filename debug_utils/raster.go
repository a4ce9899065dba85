package debug_utils

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const (
	rasterPad     = 8
	maxRasterSide = 4096
)

// Raster is a top down DuDebugDraw that renders the xz plane into an image.
// World x grows to the right and world z grows downwards.
type Raster struct {
	img   *image.RGBA
	z     *vector.Rasterizer
	bmin  [3]float32
	scale float32

	prim  DuDebugDrawPrimitives
	size  float32
	verts []displayVertex
}

// NewRaster covers bmin..bmax at pixelsPerUnit, shrinking the scale when the
// image would exceed the size limit.
func NewRaster(bmin, bmax []float32, pixelsPerUnit float32, background Colorb) *Raster {
	ext := max(bmax[0]-bmin[0], bmax[2]-bmin[2], 1e-3)
	if ext*pixelsPerUnit > maxRasterSide-2*rasterPad {
		pixelsPerUnit = (maxRasterSide - 2*rasterPad) / ext
	}
	w := min(int(math.Ceil(float64((bmax[0]-bmin[0])*pixelsPerUnit))), maxRasterSide-2*rasterPad) + 2*rasterPad
	h := min(int(math.Ceil(float64((bmax[2]-bmin[2])*pixelsPerUnit))), maxRasterSide-2*rasterPad) + 2*rasterPad
	r := &Raster{
		img:   image.NewRGBA(image.Rect(0, 0, w, h)),
		z:     vector.NewRasterizer(w, h),
		bmin:  [3]float32{bmin[0], bmin[1], bmin[2]},
		scale: pixelsPerUnit,
	}
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(background.NRGBA()), image.Point{}, draw.Src)
	return r
}

func (r *Raster) Image() *image.RGBA {
	return r.img
}

// Project maps a world position to pixel coordinates.
func (r *Raster) Project(x, z float32) (px, py float32) {
	return (x-r.bmin[0])*r.scale + rasterPad, (z-r.bmin[2])*r.scale + rasterPad
}

func (r *Raster) Begin(prim DuDebugDrawPrimitives, size float32) {
	r.prim = prim
	r.size = max(size, 1)
	r.verts = r.verts[:0]
}

func (r *Raster) Vertex(x, y, z float32, color Colorb) {
	r.verts = append(r.verts, displayVertex{Pos: [3]float32{x, y, z}, Color: color})
	if len(r.verts) < r.prim.Vertices() {
		return
	}
	switch r.prim {
	case DU_DRAW_POINTS:
		r.point(r.verts[0])
	case DU_DRAW_LINES:
		r.line(r.verts[0], r.verts[1])
	default:
		r.polygon(r.verts)
	}
	r.verts = r.verts[:0]
}

func (r *Raster) End() {
	r.verts = r.verts[:0]
}

// Label prints text with its baseline at the world position.
func (r *Raster) Label(x, z float32, text string, col Colorb) {
	px, py := r.Project(x, z)
	d := font.Drawer{
		Dst:  r.img,
		Src:  image.NewUniform(col.NRGBA()),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(px), int(py)),
	}
	d.DrawString(text)
}

func (r *Raster) point(v displayVertex) {
	px, py := r.Project(v.Pos[0], v.Pos[2])
	s := r.size / 2
	r.fill([][2]float32{{px - s, py - s}, {px + s, py - s}, {px + s, py + s}, {px - s, py + s}}, v.Color)
}

func (r *Raster) line(a, b displayVertex) {
	ax, ay := r.Project(a.Pos[0], a.Pos[2])
	bx, by := r.Project(b.Pos[0], b.Pos[2])
	dx, dy := bx-ax, by-ay
	l := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if l < 1e-6 {
		r.point(a)
		return
	}
	nx, ny := -dy/l*r.size/2, dx/l*r.size/2
	r.fill([][2]float32{{ax + nx, ay + ny}, {bx + nx, by + ny}, {bx - nx, by - ny}, {ax - nx, ay - ny}}, a.Color)
}

func (r *Raster) polygon(vs []displayVertex) {
	pts := make([][2]float32, len(vs))
	for i, v := range vs {
		pts[i][0], pts[i][1] = r.Project(v.Pos[0], v.Pos[2])
	}
	r.fill(pts, vs[0].Color)
}

// fill rasterizes a closed polygon inside its clipped bounding box only.
func (r *Raster) fill(pts [][2]float32, col Colorb) {
	minx, miny := pts[0][0], pts[0][1]
	maxx, maxy := minx, miny
	for _, p := range pts[1:] {
		minx, maxx = min(minx, p[0]), max(maxx, p[0])
		miny, maxy = min(miny, p[1]), max(maxy, p[1])
	}
	box := image.Rect(int(math.Floor(float64(minx))), int(math.Floor(float64(miny))),
		int(math.Ceil(float64(maxx)))+1, int(math.Ceil(float64(maxy)))+1).Intersect(r.img.Bounds())
	if box.Empty() {
		return
	}
	ox, oy := float32(box.Min.X), float32(box.Min.Y)
	r.z.Reset(box.Dx(), box.Dy())
	r.z.MoveTo(pts[0][0]-ox, pts[0][1]-oy)
	for _, p := range pts[1:] {
		r.z.LineTo(p[0]-ox, p[1]-oy)
	}
	r.z.ClosePath()
	r.z.Draw(r.img, box, image.NewUniform(col.NRGBA()), image.Point{})
}

func (r *Raster) WritePNG(w io.Writer) error {
	return png.Encode(w, r.img)
}

func (r *Raster) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WritePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("debug_utils: encode %s: %w", path, err)
	}
	return f.Close()
}

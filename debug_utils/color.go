package debug_utils

import (
	"image/color"

	"github.com/gorustyt/tilemesh/tilemesh"
)

// Colorb is an 8-bit RGBA colour, not premultiplied.
type Colorb [4]uint8

func (c Colorb) R() uint8 {
	return c[0]
}

func (c Colorb) G() uint8 {
	return c[1]
}

func (c Colorb) B() uint8 {
	return c[2]
}

func (c Colorb) A() uint8 {
	return c[3]
}

func (c Colorb) Int() uint32 {
	return uint32(c.R()) | (uint32(c.G()) << 8) | (uint32(c.B()) << 16) | (uint32(c.A()) << 24)
}

func (c *Colorb) FromInt(col uint32) {
	c[0] = uint8(col & 0xff)
	c[1] = uint8((col >> 8) & 0xff)
	c[2] = uint8((col >> 16) & 0xff)
	c[3] = uint8((col >> 24) & 0xff)
}

// NRGBA converts to the image/color form.
func (c Colorb) NRGBA() color.NRGBA {
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

func DuRGBA[T int | int32 | uint8](r, g, b, a T) Colorb {
	return Colorb{uint8(r), uint8(g), uint8(b), uint8(a)}
}

func DuRGBAf(fr, fg, fb, fa float32) Colorb {
	return DuRGBA(uint8(fr*255), uint8(fg*255), uint8(fb*255), uint8(fa*255))
}

func Bit(a, b int) int {
	return (a & (1 << b)) >> b
}

// DuIntToCol spreads small integers over distinguishable colours.
func DuIntToCol(i, a int) Colorb {
	r := Bit(i, 1) + Bit(i, 3)*2 + 1
	g := Bit(i, 2) + Bit(i, 4)*2 + 1
	b := Bit(i, 0) + Bit(i, 5)*2 + 1
	return DuRGBA(r*63, g*63, b*63, a)
}

func duMultCol(col Colorb, d uint8) Colorb {
	return Colorb{
		uint8(uint32(col[0]) * uint32(d) >> 8),
		uint8(uint32(col[1]) * uint32(d) >> 8),
		uint8(uint32(col[2]) * uint32(d) >> 8),
		col[3],
	}
}

func DuDarkenCol(col Colorb) Colorb {
	return Colorb{col[0] >> 1, col[1] >> 1, col[2] >> 1, col[3]}
}

// DuLerpCol blends ca towards cb by u/255.
func DuLerpCol(ca, cb Colorb, u uint8) Colorb {
	res := Colorb{}
	for i := range res {
		res[i] = uint8((uint32(ca[i])*(255-uint32(u)) + uint32(cb[i])*uint32(u)) / 255)
	}
	return res
}

func DuTransCol(c Colorb, a uint8) Colorb {
	c[3] = a
	return c
}

var areaColors = map[tilemesh.AreaType]Colorb{
	tilemesh.AreaGround: DuRGBA(0, 192, 255, 255),
	tilemesh.AreaWater:  DuRGBA(0, 0, 255, 255),
	tilemesh.AreaRoad:   DuRGBA(50, 20, 12, 255),
	tilemesh.AreaDoor:   DuRGBA(0, 255, 255, 255),
	tilemesh.AreaGrass:  DuRGBA(0, 255, 0, 255),
	tilemesh.AreaJump:   DuRGBA(255, 255, 0, 255),
}

// AreaToCol colours the known area types, anything else by its id.
func AreaToCol(area uint8) Colorb {
	if c, ok := areaColors[tilemesh.AreaType(area)]; ok {
		return c
	}
	return DuIntToCol(int(area), 255)
}

package common

import "github.com/go-gl/mathgl/mgl32"

type Vec3 = mgl32.Vec3
type Vec2 = mgl32.Vec2

type IT interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

type IIndex interface {
	~int | ~int8 | ~int16 | ~int32 | ~uint | ~uint8 | ~uint16 | ~uint32
}

func GetVert3[T IT, T1 IIndex](verts []T, index T1) []T {
	i := int(index) * 3
	return verts[i : i+3]
}

func GetVert2[T IT, T1 IIndex](verts []T, index T1) []T {
	i := int(index) * 2
	return verts[i : i+2]
}

func GetVert4[T IT, T1 IIndex](verts []T, index T1) []T {
	i := int(index) * 4
	return verts[i : i+4]
}

// Prev returns the previous index of a ring of size n.
func Prev[T IIndex](i, n T) T {
	if i > 0 {
		return i - 1
	}
	return n - 1
}

// Next returns the next index of a ring of size n.
func Next[T IIndex](i, n T) T {
	if i+1 < n {
		return i + 1
	}
	return 0
}

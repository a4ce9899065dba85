package geom

// FlatSquare returns a horizontal size x size square at height y starting at the
// origin, split into divisions x divisions quads. Triangles are wound with an
// upward normal.
func FlatSquare(size, y float32, divisions int) *InputGeom {
	divisions = max(divisions, 1)
	step := size / float32(divisions)
	m := &ObjMesh{Name: "flat", Scale: 1}
	for z := 0; z <= divisions; z++ {
		for x := 0; x <= divisions; x++ {
			m.addVertex(float32(x)*step, y, float32(z)*step)
		}
	}
	row := divisions + 1
	for z := 0; z < divisions; z++ {
		for x := 0; x < divisions; x++ {
			v0 := z*row + x
			v1 := (z+1)*row + x
			v2 := (z+1)*row + x + 1
			v3 := z*row + x + 1
			m.addTriangle(v0, v1, v2)
			m.addTriangle(v0, v2, v3)
		}
	}
	m.calcNormals()
	return NewInputGeom(m)
}

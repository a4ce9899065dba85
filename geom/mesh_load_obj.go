package geom

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorustyt/tilemesh/common"
)

// maxFaceVerts caps the polygon size accepted from a single face line.
const maxFaceVerts = 32

// ObjMesh holds triangle soup loaded from a Wavefront OBJ file.
type ObjMesh struct {
	Name    string
	Scale   float32
	Verts   []float32 // (x, y, z) * VertCount
	Tris    []int32   // (a, b, c) * TriCount
	Normals []float32 // per triangle (x, y, z)
}

func (m *ObjMesh) VertCount() int { return len(m.Verts) / 3 }
func (m *ObjMesh) TriCount() int  { return len(m.Tris) / 3 }

// LoadObj reads an OBJ file from disk.
func LoadObj(path string) (*ObjMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ParseObj(f, 1)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	m.Name = filepath.Base(path)
	return m, nil
}

// ParseObj parses vertex and face records. Faces with more than three vertices are
// fanned into triangles, and normals are computed once the whole file is read.
func ParseObj(r io.Reader, scale float32) (*ObjMesh, error) {
	m := &ObjMesh{Scale: scale}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimSpace(sc.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		fields := strings.Fields(row)
		var err error
		switch fields[0] {
		case "v":
			err = m.parseVertex(fields[1:])
		case "f":
			err = m.parseFace(fields[1:])
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	m.calcNormals()
	return m, nil
}

func (m *ObjMesh) parseVertex(ss []string) error {
	if len(ss) < 3 {
		return fmt.Errorf("vertex needs 3 components, got %d", len(ss))
	}
	var v [3]float32
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(ss[i], 32)
		if err != nil {
			return err
		}
		v[i] = float32(f)
	}
	m.addVertex(v[0], v[1], v[2])
	return nil
}

func (m *ObjMesh) parseFace(ss []string) error {
	nv := m.VertCount()
	var face []int
	for _, s := range ss {
		if len(face) >= maxFaceVerts {
			break
		}
		// v, v/vt, v//vn and v/vt/vn all start with the position index.
		idx, _, _ := strings.Cut(s, "/")
		vi, err := strconv.Atoi(idx)
		if err != nil {
			return err
		}
		if vi < 0 {
			vi += nv
		} else {
			vi--
		}
		face = append(face, vi)
	}
	for i := 2; i < len(face); i++ {
		a, b, c := face[0], face[i-1], face[i]
		if a < 0 || a >= nv || b < 0 || b >= nv || c < 0 || c >= nv {
			continue
		}
		m.addTriangle(a, b, c)
	}
	return nil
}

func (m *ObjMesh) addVertex(x, y, z float32) {
	m.Verts = append(m.Verts, x*m.Scale, y*m.Scale, z*m.Scale)
}

func (m *ObjMesh) addTriangle(a, b, c int) {
	m.Tris = append(m.Tris, int32(a), int32(b), int32(c))
}

func (m *ObjMesh) calcNormals() {
	m.Normals = make([]float32, len(m.Tris))
	var e0, e1 [3]float32
	for i := 0; i < len(m.Tris); i += 3 {
		v0 := common.GetVert3(m.Verts, m.Tris[i])
		v1 := common.GetVert3(m.Verts, m.Tris[i+1])
		v2 := common.GetVert3(m.Verts, m.Tris[i+2])
		common.Vsub(e0[:], v1, v0)
		common.Vsub(e1[:], v2, v0)
		n := m.Normals[i : i+3]
		common.Vcross(n, e0[:], e1[:])
		common.Vnormalize(n)
	}
}

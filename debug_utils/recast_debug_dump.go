package debug_utils

import (
	"bufio"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gorustyt/tilemesh/recast"
	"github.com/gorustyt/tilemesh/tilemesh"
)

// DuDumpPolyMeshToObj writes pmesh as a Wavefront OBJ with one face per
// polygon.
func DuDumpPolyMeshToObj(pmesh *recast.RcPolyMesh, w io.Writer) error {
	if pmesh == nil {
		return fmt.Errorf("debug_utils: dump poly mesh: no mesh")
	}
	bw := bufio.NewWriter(w)
	nvp := pmesh.Nvp
	cs, ch := pmesh.Cs, pmesh.Ch
	orig := pmesh.Bmin

	fmt.Fprint(bw, "# Recast Navmesh\no NavMesh\n\n")
	for i := 0; i < pmesh.Nverts; i++ {
		v := pmesh.Verts[i*3:]
		x := orig[0] + float32(v[0])*cs
		y := orig[1] + float32(v[1]+1)*ch + 0.1
		z := orig[2] + float32(v[2])*cs
		fmt.Fprintf(bw, "v %f %f %f\n", x, y, z)
	}
	fmt.Fprint(bw, "\n")
	for i := 0; i < pmesh.Npolys; i++ {
		p := pmesh.Polys[i*nvp*2:]
		for j := 2; j < nvp; j++ {
			if p[j] == recast.RC_MESH_NULL_IDX {
				break
			}
			fmt.Fprintf(bw, "f %d %d %d\n", p[0]+1, p[j-1]+1, p[j]+1)
		}
	}
	return bw.Flush()
}

// DuDumpPolyMeshDetailToObj writes the detail triangles of dmesh as OBJ.
func DuDumpPolyMeshDetailToObj(dmesh *recast.RcPolyMeshDetail, w io.Writer) error {
	if dmesh == nil {
		return fmt.Errorf("debug_utils: dump detail mesh: no mesh")
	}
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "# Recast Navmesh\no NavMesh\n\n")
	for i := 0; i < dmesh.Nverts; i++ {
		v := dmesh.Verts[i*3:]
		fmt.Fprintf(bw, "v %f %f %f\n", v[0], v[1], v[2])
	}
	fmt.Fprint(bw, "\n")
	for i := 0; i < dmesh.Nmeshes; i++ {
		m := dmesh.Meshes[i*4:]
		bverts, btris, ntris := m[0], m[2], m[3]
		for j := uint32(0); j < ntris; j++ {
			t := dmesh.Tris[(btris+j)*4:]
			fmt.Fprintf(bw, "f %d %d %d\n",
				bverts+uint32(t[0])+1, bverts+uint32(t[1])+1, bverts+uint32(t[2])+1)
		}
	}
	return bw.Flush()
}

// Snapshot is the msgpack form of the kept stage results of one tile build.
// Heightfields are left out.
type Snapshot struct {
	TileX    int                      `msgpack:"tileX"`
	TileY    int                      `msgpack:"tileY"`
	Config   recast.RcConfig          `msgpack:"config"`
	TriCount int                      `msgpack:"triCount"`
	Contours *recast.RcContourSet     `msgpack:"contours"`
	PMesh    *recast.RcPolyMesh       `msgpack:"pmesh"`
	DMesh    *recast.RcPolyMeshDetail `msgpack:"dmesh"`
}

func NewSnapshot(inter *tilemesh.Intermediates) *Snapshot {
	return &Snapshot{
		TileX:    inter.TileX,
		TileY:    inter.TileY,
		Config:   inter.Config,
		TriCount: inter.TriCount,
		Contours: inter.Cset,
		PMesh:    inter.PMesh,
		DMesh:    inter.DMesh,
	}
}

func WriteSnapshot(w io.Writer, inter *tilemesh.Intermediates) error {
	if inter == nil {
		return fmt.Errorf("debug_utils: snapshot: nothing kept")
	}
	return msgpack.NewEncoder(w).Encode(NewSnapshot(inter))
}

func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	s := new(Snapshot)
	if err := msgpack.NewDecoder(r).Decode(s); err != nil {
		return nil, fmt.Errorf("debug_utils: snapshot: %w", err)
	}
	return s, nil
}

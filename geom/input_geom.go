package geom

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorustyt/tilemesh/common"
)

const (
	MaxConvexVolPts       = 12
	MaxOffMeshConnections = 256
	MaxVolumes            = 256

	trisPerChunk = 256
)

var (
	ErrNoMesh       = errors.New("geom: geometry set has no mesh")
	ErrTooManyItems = errors.New("geom: too many items")
)

// ConvexVolume marks every walkable span inside an extruded xz polygon with Area.
type ConvexVolume struct {
	Verts      []float32 // (x, y, z) * nverts, at most MaxConvexVolPts
	Hmin, Hmax float32
	Area       uint8
}

// OffMeshConnection is a user authored link between two points of the mesh.
type OffMeshConnection struct {
	Start, End common.Vec3
	Rad        float32
	Bidir      bool
	Area       uint8
	Flags      uint16
	UserID     uint32
}

// BuildSettings is the build configuration stored alongside a geometry set.
type BuildSettings struct {
	CellSize             float32
	CellHeight           float32
	AgentHeight          float32
	AgentRadius          float32
	AgentMaxClimb        float32
	AgentMaxSlope        float32
	RegionMinSize        float32
	RegionMergeSize      float32
	EdgeMaxLen           float32
	EdgeMaxError         float32
	VertsPerPoly         float32
	DetailSampleDist     float32
	DetailSampleMaxError float32
	PartitionType        int
	NavMeshBMin          common.Vec3
	NavMeshBMax          common.Vec3
	TileSize             float32
}

// InputGeom is the geometry source of a build: triangle soup with its chunk tree,
// convex area volumes and off-mesh connections.
type InputGeom struct {
	Mesh          *ObjMesh
	Chunky        *ChunkyTriMesh
	MeshBMin      common.Vec3
	MeshBMax      common.Vec3
	BuildSettings *BuildSettings

	OffMeshCons []OffMeshConnection
	Volumes     []ConvexVolume
}

// NewInputGeom wraps mesh and builds its chunk tree.
func NewInputGeom(mesh *ObjMesh) *InputGeom {
	g := &InputGeom{Mesh: mesh}
	g.MeshBMin, g.MeshBMax = calcBounds(mesh.Verts)
	g.Chunky = NewChunkyTriMesh(mesh.Verts, mesh.Tris, trisPerChunk)
	return g
}

func calcBounds(verts []float32) (bmin, bmax common.Vec3) {
	if len(verts) < 3 {
		return
	}
	copy(bmin[:], verts[:3])
	copy(bmax[:], verts[:3])
	for i := 3; i+2 < len(verts); i += 3 {
		common.Vmin(bmin[:], verts[i:i+3])
		common.Vmax(bmax[:], verts[i:i+3])
	}
	return
}

// LoadMesh loads an OBJ file as the geometry source.
func LoadMesh(path string) (*InputGeom, error) {
	mesh, err := LoadObj(path)
	if err != nil {
		return nil, err
	}
	return NewInputGeom(mesh), nil
}

// Load picks the loader from the file extension (.obj or .gset).
func Load(path string) (*InputGeom, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gset":
		return LoadGeomSet(path)
	default:
		return LoadMesh(path)
	}
}

// NavMeshBoundsMin returns the build bounds, preferring the geometry set's settings.
func (g *InputGeom) NavMeshBoundsMin() common.Vec3 {
	if g.BuildSettings != nil {
		return g.BuildSettings.NavMeshBMin
	}
	return g.MeshBMin
}

func (g *InputGeom) NavMeshBoundsMax() common.Vec3 {
	if g.BuildSettings != nil {
		return g.BuildSettings.NavMeshBMax
	}
	return g.MeshBMax
}

func (g *InputGeom) AddConvexVolume(verts []float32, hmin, hmax float32, area uint8) error {
	if len(g.Volumes) >= MaxVolumes || len(verts)/3 > MaxConvexVolPts {
		return ErrTooManyItems
	}
	g.Volumes = append(g.Volumes, ConvexVolume{
		Verts: append([]float32(nil), verts[:len(verts)/3*3]...),
		Hmin:  hmin,
		Hmax:  hmax,
		Area:  area,
	})
	return nil
}

func (g *InputGeom) DeleteConvexVolume(i int) {
	g.Volumes = append(g.Volumes[:i], g.Volumes[i+1:]...)
}

// AddOffMeshConnection appends a connection and assigns it the next user id.
func (g *InputGeom) AddOffMeshConnection(start, end common.Vec3, rad float32, bidir bool, area uint8, flags uint16) error {
	if len(g.OffMeshCons) >= MaxOffMeshConnections {
		return ErrTooManyItems
	}
	g.OffMeshCons = append(g.OffMeshCons, OffMeshConnection{
		Start:  start,
		End:    end,
		Rad:    rad,
		Bidir:  bidir,
		Area:   area,
		Flags:  flags,
		UserID: uint32(1000 + len(g.OffMeshCons)),
	})
	return nil
}

func (g *InputGeom) DeleteOffMeshConnection(i int) {
	g.OffMeshCons = append(g.OffMeshCons[:i], g.OffMeshCons[i+1:]...)
}

// LoadGeomSet reads a geometry set file. Lines are keyed by their first token:
//
//	f <mesh file>
//	c <sx sy sz ex ey ez> <rad> <bidir> <area> <flags>
//	v <nverts> <area> <hmin> <hmax>, followed by nverts "x y z" lines
//	s <build settings>
func LoadGeomSet(path string) (*InputGeom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := ParseGeomSet(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return g, nil
}

// ParseGeomSet parses a geometry set. Mesh paths are resolved relative to dir.
func ParseGeomSet(r io.Reader, dir string) (*InputGeom, error) {
	var (
		g        *InputGeom
		cons     []OffMeshConnection
		vols     []ConvexVolume
		settings *BuildSettings
	)
	sc := bufio.NewScanner(r)
	line := 0
	next := func() ([]string, bool) {
		for sc.Scan() {
			line++
			row := strings.TrimSpace(sc.Text())
			if row != "" && !strings.HasPrefix(row, "#") {
				return strings.Fields(row), true
			}
		}
		return nil, false
	}
	for {
		fields, ok := next()
		if !ok {
			break
		}
		switch fields[0] {
		case "f":
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: missing mesh path", line)
			}
			p := strings.Join(fields[1:], " ")
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			mesh, err := LoadObj(p)
			if err != nil {
				return nil, err
			}
			g = NewInputGeom(mesh)
		case "c":
			v, err := parseFloats(fields[1:], 10)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			cons = append(cons, OffMeshConnection{
				Start:  common.Vec3{v[0], v[1], v[2]},
				End:    common.Vec3{v[3], v[4], v[5]},
				Rad:    v[6],
				Bidir:  v[7] != 0,
				Area:   uint8(v[8]),
				Flags:  uint16(v[9]),
				UserID: uint32(1000 + len(cons)),
			})
		case "v":
			v, err := parseFloats(fields[1:], 4)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			nv := int(v[0])
			if nv < 0 || nv > MaxConvexVolPts {
				return nil, fmt.Errorf("line %d: %d volume points: %w", line, nv, ErrTooManyItems)
			}
			vol := ConvexVolume{Area: uint8(v[1]), Hmin: v[2], Hmax: v[3]}
			for i := 0; i < nv; i++ {
				pf, ok := next()
				if !ok {
					return nil, fmt.Errorf("line %d: %w", line, io.ErrUnexpectedEOF)
				}
				p, err := parseFloats(pf, 3)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				vol.Verts = append(vol.Verts, p...)
			}
			vols = append(vols, vol)
		case "s":
			v, err := parseFloats(fields[1:], 21)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			settings = &BuildSettings{
				CellSize:             v[0],
				CellHeight:           v[1],
				AgentHeight:          v[2],
				AgentRadius:          v[3],
				AgentMaxClimb:        v[4],
				AgentMaxSlope:        v[5],
				RegionMinSize:        v[6],
				RegionMergeSize:      v[7],
				EdgeMaxLen:           v[8],
				EdgeMaxError:         v[9],
				VertsPerPoly:         v[10],
				DetailSampleDist:     v[11],
				DetailSampleMaxError: v[12],
				PartitionType:        int(v[13]),
				NavMeshBMin:          common.Vec3{v[14], v[15], v[16]},
				NavMeshBMax:          common.Vec3{v[17], v[18], v[19]},
				TileSize:             v[20],
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNoMesh
	}
	g.OffMeshCons = cons
	g.Volumes = vols
	g.BuildSettings = settings
	return g, nil
}

// WriteGeomSet writes the geometry set in the format read by ParseGeomSet.
func (g *InputGeom) WriteGeomSet(w io.Writer, meshPath string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "f %s\n", meshPath)
	if s := g.BuildSettings; s != nil {
		fmt.Fprintf(bw, "s %f %f %f %f %f %f %f %f %f %f %f %f %f %d %f %f %f %f %f %f %f\n",
			s.CellSize, s.CellHeight, s.AgentHeight, s.AgentRadius, s.AgentMaxClimb, s.AgentMaxSlope,
			s.RegionMinSize, s.RegionMergeSize, s.EdgeMaxLen, s.EdgeMaxError, s.VertsPerPoly,
			s.DetailSampleDist, s.DetailSampleMaxError, s.PartitionType,
			s.NavMeshBMin[0], s.NavMeshBMin[1], s.NavMeshBMin[2],
			s.NavMeshBMax[0], s.NavMeshBMax[1], s.NavMeshBMax[2], s.TileSize)
	}
	for _, c := range g.OffMeshCons {
		bidir := 0
		if c.Bidir {
			bidir = 1
		}
		fmt.Fprintf(bw, "c %f %f %f %f %f %f %f %d %d %d\n",
			c.Start[0], c.Start[1], c.Start[2], c.End[0], c.End[1], c.End[2], c.Rad, bidir, c.Area, c.Flags)
	}
	for _, vol := range g.Volumes {
		fmt.Fprintf(bw, "v %d %d %f %f\n", len(vol.Verts)/3, vol.Area, vol.Hmin, vol.Hmax)
		for i := 0; i+2 < len(vol.Verts); i += 3 {
			fmt.Fprintf(bw, "%f %f %f\n", vol.Verts[i], vol.Verts[i+1], vol.Verts[i+2])
		}
	}
	return bw.Flush()
}

func parseFloats(ss []string, n int) ([]float32, error) {
	if len(ss) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(ss))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(ss[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

package tilemesh

import (
	"bufio"
	"fmt"
	"io"
	"os"

	assert "github.com/arl/assertgo"

	"github.com/gorustyt/tilemesh/common/rw"
	"github.com/gorustyt/tilemesh/detour"
)

const (
	SetMagic   = 'M'<<24 | 'S'<<16 | 'E'<<8 | 'T'
	SetVersion = 1

	setHeaderSize  = 3*4 + navParamsSize
	navParamsSize  = 3*4 + 2*4 + 2*4
	tileHeaderSize = 4 + 4
)

// SetHeader leads a saved nav mesh set.
type SetHeader struct {
	Magic    int32
	Version  int32
	NumTiles int32
	Params   detour.NavMeshParams
}

func (h *SetHeader) toBin(w *rw.ReaderWriter) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteInt32(h.NumTiles)
	h.Params.ToBin(w)
}

func (h *SetHeader) fromBin(r *rw.ReaderWriter) {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	h.NumTiles = r.ReadInt32()
	h.Params.FromBin(r)
}

// validate reports the first structural problem of a set header.
func (h *SetHeader) validate() error {
	if h.Magic != SetMagic {
		return fmt.Errorf("%w: %#x", ErrBadMagic, uint32(h.Magic))
	}
	if h.Version != SetVersion {
		return fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	if h.NumTiles < 0 {
		return fmt.Errorf("%w: negative tile count %d", ErrTruncated, h.NumTiles)
	}
	return nil
}

// Save writes every tile holding data, preceded by the set header.
func Save(w io.Writer, nav *detour.NavMesh) error {
	if nav == nil {
		return ErrNotBuilt
	}
	hdr := SetHeader{Magic: SetMagic, Version: SetVersion, Params: *nav.Params()}
	for i := 0; i < nav.MaxTiles(); i++ {
		tile := nav.GetTile(i)
		if tile.Header == nil || len(tile.Data) == 0 {
			continue
		}
		hdr.NumTiles++
	}

	buf := rw.NewWriter()
	hdr.toBin(buf)
	for i := 0; i < nav.MaxTiles(); i++ {
		tile := nav.GetTile(i)
		if tile.Header == nil || len(tile.Data) == 0 {
			continue
		}
		buf.WriteInt32(uint32(nav.TileRef(tile)))
		buf.WriteInt32(len(tile.Data))
		buf.WriteBytes(tile.Data)
	}
	_, err := w.Write(buf.GetWriteBytes())
	return err
}

func SaveFile(path string, nav *detour.NavMesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Save(f, nav); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// setSource yields successive chunks of a saved set.
type setSource interface {
	read(n int) ([]byte, error)
}

type streamSource struct {
	r io.Reader
}

// read grows its buffer with the bytes actually present, so a corrupted
// size never allocates more than the stream holds.
func (s streamSource) read(n int) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(s.r, int64(n)))
	if err != nil {
		return nil, err
	}
	if len(b) < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, len(b))
	}
	return b, nil
}

// memSource reads from a caller supplied buffer and never reads past its end.
type memSource struct {
	data []byte
	off  int
}

func (s *memSource) read(n int) ([]byte, error) {
	ok := n >= 0 && s.off+n <= len(s.data)
	assert.True(ok, "nav mesh set read of %d bytes at offset %d overruns %d byte buffer", n, s.off, len(s.data))
	if !ok {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, s.off, len(s.data)-s.off)
	}
	b := make([]byte, n)
	copy(b, s.data[s.off:])
	s.off += n
	return b, nil
}

// Load reads a saved set from r. Nothing is returned on any failure.
func Load(r io.Reader) (*detour.NavMesh, error) {
	return decodeSet(streamSource{r: bufio.NewReader(r)})
}

func LoadFile(path string) (*detour.NavMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// LoadMem reads a saved set from an in-memory buffer. Reads past the end of
// data fail with ErrTruncated, and abort in debug builds.
func LoadMem(data []byte) (*detour.NavMesh, error) {
	return decodeSet(&memSource{data: data})
}

// ReadSetHeader decodes and validates only the leading set header.
func ReadSetHeader(data []byte) (SetHeader, error) {
	var hdr SetHeader
	b, err := (&memSource{data: data}).read(setHeaderSize)
	if err != nil {
		return hdr, err
	}
	hdr.fromBin(rw.NewReader(b))
	return hdr, hdr.validate()
}

func decodeSet(src setSource) (*detour.NavMesh, error) {
	b, err := src.read(setHeaderSize)
	if err != nil {
		return nil, err
	}
	var hdr SetHeader
	hdr.fromBin(rw.NewReader(b))
	if err := hdr.validate(); err != nil {
		return nil, err
	}

	nav := &detour.NavMesh{}
	if status := nav.Init(&hdr.Params); status.Failed() {
		return nil, fmt.Errorf("%w: status %#x", ErrInitFailed, uint32(status))
	}

	for i := 0; i < int(hdr.NumTiles); i++ {
		b, err := src.read(tileHeaderSize)
		if err != nil {
			return nil, err
		}
		r := rw.NewReader(b)
		ref := detour.DtTileRef(r.ReadUInt32())
		size := r.ReadInt32()
		if ref == 0 || size == 0 {
			break
		}
		if size < 0 {
			return nil, fmt.Errorf("%w: tile %d has size %d", ErrTruncated, i, size)
		}
		data, err := src.read(int(size))
		if err != nil {
			return nil, err
		}
		if _, status := nav.AddTile(data, detour.DT_TILE_FREE_DATA, ref); status.Failed() {
			return nil, fmt.Errorf("%w: tile %d status %#x", ErrAddTile, i, uint32(status))
		}
	}
	return nav, nil
}

// SaveFile writes the current nav mesh to path.
func (m *Manager) SaveFile(path string) error {
	if m.nav == nil {
		return ErrNotBuilt
	}
	return SaveFile(path, m.nav)
}

// LoadFile replaces the current nav mesh with the set stored at path. On
// failure the current mesh is kept.
func (m *Manager) LoadFile(path string) error {
	nav, err := LoadFile(path)
	if err != nil {
		m.log.Errorw("load nav mesh set", "path", path, "error", err)
		return err
	}
	return m.install(nav)
}

// LoadMem is LoadFile for an in-memory set.
func (m *Manager) LoadMem(data []byte) error {
	nav, err := LoadMem(data)
	if err != nil {
		m.log.Errorw("load nav mesh set from memory", "size", len(data), "error", err)
		return err
	}
	return m.install(nav)
}

func (m *Manager) install(nav *detour.NavMesh) error {
	query, status := detour.NewNavMeshQuery(nav, MaxQueryNodes)
	if status.Failed() {
		return fmt.Errorf("%w: query status %#x", ErrInitFailed, uint32(status))
	}
	params := nav.Params()
	m.nav, m.query = nav, query
	m.bmin = params.Orig
	m.maxTiles, m.maxPolysPerTile = int(params.MaxTiles), int(params.MaxPolys)
	m.tw, m.th = 0, 0
	if m.geom != nil {
		_, m.bmax = m.Bounds()
		m.tw, m.th = m.settings.GridSize(m.bmin, m.bmax)
	}
	m.inter = nil
	m.log.Infow("nav mesh set loaded", "tiles", nav.TileCount())
	return nil
}

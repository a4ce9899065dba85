package tilemesh

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/tilemesh/detour"
)

type savedTile struct {
	ref  detour.DtTileRef
	data []byte
}

func savedTiles(nav *detour.NavMesh) []savedTile {
	var res []savedTile
	for i := 0; i < nav.MaxTiles(); i++ {
		tile := nav.GetTile(i)
		if tile.Header == nil {
			continue
		}
		res = append(res, savedTile{ref: nav.TileRef(tile), data: tile.Data})
	}
	return res
}

func builtSet(t *testing.T) (*Manager, []byte) {
	t.Helper()
	m := newFlatManager(t, 36, smallSettings())
	require.True(t, m.Build(true))
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, m.NavMesh()))
	return m, buf.Bytes()
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, data := builtSet(t)
	want := savedTiles(m.NavMesh())
	require.Len(t, want, 16)

	hdr, err := ReadSetHeader(data)
	require.NoError(t, err)
	assert.Equal(t, int32(SetMagic), hdr.Magic)
	assert.Equal(t, int32(SetVersion), hdr.Version)
	assert.Equal(t, int32(16), hdr.NumTiles)
	assert.Equal(t, *m.NavMesh().Params(), hdr.Params)

	path := filepath.Join(t.TempDir(), "all_tiles_navmesh.bin")
	require.NoError(t, m.SaveFile(path))

	loaders := map[string]func() (*detour.NavMesh, error){
		"mem":    func() (*detour.NavMesh, error) { return LoadMem(data) },
		"reader": func() (*detour.NavMesh, error) { return Load(bytes.NewReader(data)) },
		"file":   func() (*detour.NavMesh, error) { return LoadFile(path) },
	}
	for name, load := range loaders {
		t.Run(name, func(t *testing.T) {
			nav, err := load()
			require.NoError(t, err)
			assert.Equal(t, *m.NavMesh().Params(), *nav.Params())
			assert.Equal(t, want, savedTiles(nav))

			var again bytes.Buffer
			require.NoError(t, Save(&again, nav))
			assert.Equal(t, data, again.Bytes())
		})
	}
}

func TestSaveSkipsEmptySlots(t *testing.T) {
	m, _ := builtSet(t)
	require.NoError(t, m.RemoveTileAt(0, 0))
	require.NoError(t, m.RemoveTileAt(3, 3))

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, m.NavMesh()))
	hdr, err := ReadSetHeader(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, int32(14), hdr.NumTiles)

	m.RemoveAllTiles()
	buf.Reset()
	require.NoError(t, Save(&buf, m.NavMesh()))
	assert.Len(t, buf.Bytes(), setHeaderSize)
	nav, err := LoadMem(buf.Bytes())
	require.NoError(t, err)
	assert.Zero(t, nav.TileCount())
}

func TestLoadRejectsBadHeader(t *testing.T) {
	_, data := builtSet(t)
	tests := []struct {
		name   string
		offset int
		value  uint32
		err    error
	}{
		{"magic", 0, 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V', ErrBadMagic},
		{"version", 4, 2, ErrBadVersion},
		{"tile count", 8, 0xffffffff, ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := bytes.Clone(data)
			binary.LittleEndian.PutUint32(bad[tt.offset:], tt.value)

			nav, err := LoadMem(bad)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, nav)
			nav, err = Load(bytes.NewReader(bad))
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, nav)
		})
	}
}

func TestManagerLoadFailureKeepsMesh(t *testing.T) {
	m, data := builtSet(t)
	nav := m.NavMesh()
	query := m.Query()

	bad := bytes.Clone(data)
	bad[0] ^= 0xff
	assert.ErrorIs(t, m.LoadMem(bad), ErrBadMagic)
	assert.Same(t, nav, m.NavMesh())
	assert.Same(t, query, m.Query())
	assert.Equal(t, 16, nav.TileCount())

	require.NoError(t, m.LoadMem(data))
	assert.NotSame(t, nav, m.NavMesh())
	assert.Equal(t, 16, m.NavMesh().TileCount())
	tw, th := m.GridSize()
	assert.Equal(t, 4, tw)
	assert.Equal(t, 4, th)
}

func TestLoadMemTruncated(t *testing.T) {
	_, data := builtSet(t)
	cuts := []int{0, 10, setHeaderSize - 1, setHeaderSize + 4, setHeaderSize + tileHeaderSize + 20, len(data) - 1}
	for _, n := range cuts {
		nav, err := LoadMem(data[:n])
		assert.ErrorIs(t, err, ErrTruncated, "cut at %d", n)
		assert.Nil(t, nav)

		nav, err = Load(bytes.NewReader(data[:n]))
		assert.ErrorIs(t, err, ErrTruncated, "stream cut at %d", n)
		assert.Nil(t, nav)
	}
	_, err := ReadSetHeader(data[:12])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestLoadStopsAtZeroRecord(t *testing.T) {
	_, data := builtSet(t)
	padded := append(bytes.Clone(data), make([]byte, tileHeaderSize)...)
	binary.LittleEndian.PutUint32(padded[8:], 17)

	nav, err := LoadMem(padded)
	require.NoError(t, err)
	assert.Equal(t, 16, nav.TileCount())
}

func TestLoadRejectsBadParams(t *testing.T) {
	_, data := builtSet(t)
	tests := []struct {
		name     string
		maxTiles uint32
		maxPolys uint32
	}{
		{"huge tile count", 0x7fffffff, 1},
		{"no salt bits left", 1 << 16, 1 << 10},
		{"zero polys", 16, 0},
		{"negative tiles", 0xffffffff, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdr := bytes.Clone(data[:setHeaderSize])
			binary.LittleEndian.PutUint32(hdr[8:], 0)
			binary.LittleEndian.PutUint32(hdr[32:], tt.maxTiles)
			binary.LittleEndian.PutUint32(hdr[36:], tt.maxPolys)

			nav, err := LoadMem(hdr)
			assert.ErrorIs(t, err, ErrInitFailed)
			assert.Nil(t, nav)
			nav, err = Load(bytes.NewReader(hdr))
			assert.ErrorIs(t, err, ErrInitFailed)
			assert.Nil(t, nav)
		})
	}
}

func TestLoadHugeTileSize(t *testing.T) {
	_, data := builtSet(t)
	bad := bytes.Clone(data[:setHeaderSize+tileHeaderSize+64])
	binary.LittleEndian.PutUint32(bad[setHeaderSize+4:], 0x7fffffff)

	nav, err := Load(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Nil(t, nav)
	nav, err = LoadMem(bad)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Nil(t, nav)
}

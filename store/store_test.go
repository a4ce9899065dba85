package store

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/tilemesh"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite://" + filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func savedSet(t *testing.T, size float32) (tilemesh.Settings, []byte) {
	t.Helper()
	settings := tilemesh.DefaultSettings()
	settings.TileSize = 32
	m := tilemesh.NewManager(tilemesh.WithSettings(settings))
	m.SetGeom(geom.FlatSquare(size, 0, 2))
	require.True(t, m.Build(true))
	var buf bytes.Buffer
	require.NoError(t, tilemesh.Save(&buf, m.NavMesh()))
	return settings, buf.Bytes()
}

func TestPutGet(t *testing.T) {
	s := openStore(t)
	settings, data := savedSet(t, 24)
	require.NoError(t, s.Put("arena", settings, data))

	e, err := s.Get("arena")
	require.NoError(t, err)
	assert.Equal(t, "arena", e.Name)
	assert.Equal(t, settings, e.Settings)
	assert.Equal(t, data, e.Data)
	assert.Equal(t, int32(9), e.NumTiles)

	nav, err := s.LoadNavMesh("arena")
	require.NoError(t, err)
	assert.Equal(t, 9, nav.TileCount())
}

func TestPutReplaces(t *testing.T) {
	s := openStore(t)
	settings, small := savedSet(t, 9)
	require.NoError(t, s.Put("arena", settings, small))
	_, big := savedSet(t, 24)
	require.NoError(t, s.Put("arena", settings, big))

	e, err := s.Get("arena")
	require.NoError(t, err)
	assert.Equal(t, big, e.Data)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int32(9), list[0].NumTiles)
	assert.Nil(t, list[0].Data)
}

func TestPutRejectsBadSet(t *testing.T) {
	s := openStore(t)
	err := s.Put("junk", tilemesh.DefaultSettings(), []byte("not a nav mesh set at all, just text padding"))
	assert.ErrorIs(t, err, tilemesh.ErrBadMagic)
	_, err = s.Get("junk")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	s := openStore(t)
	settings, data := savedSet(t, 9)
	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, s.Put(name, settings, data))
	}
	list, err := s.List()
	require.NoError(t, err)
	var names []string
	for _, e := range list {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	require.NoError(t, s.Delete("b"))
	assert.ErrorIs(t, s.Delete("b"), ErrNotFound)
	_, err = s.LoadNavMesh("b")
	assert.ErrorIs(t, err, ErrNotFound)
	list, err = s.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

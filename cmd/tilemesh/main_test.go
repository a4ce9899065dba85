package main

import (
	"bytes"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/tilemesh/debug_utils"
	"github.com/gorustyt/tilemesh/message"
)

const flatObj = `# 24 x 24 floor
v 0 0 0
v 24 0 0
v 24 0 24
v 0 0 24
f 1 4 3 2
`

const quietConfig = `{
  log: { console: false }
  build: { tileSize: 32 }
}`

func fixture(t *testing.T) (dir, cfg, obj string) {
	t.Helper()
	dir = t.TempDir()
	cfg = filepath.Join(dir, "tilemesh.hjson")
	obj = filepath.Join(dir, "flat.obj")
	require.NoError(t, os.WriteFile(cfg, []byte(quietConfig), 0o644))
	require.NoError(t, os.WriteFile(obj, []byte(flatObj), 0o644))
	return dir, cfg, obj
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(args...)
	require.NoError(t, err, out)
	return out
}

func TestBuildInfoArchive(t *testing.T) {
	dir, cfg, obj := fixture(t)
	bin := filepath.Join(dir, "flat.bin")
	img := filepath.Join(dir, "flat.png")
	events := filepath.Join(dir, "flat.events")
	db := "sqlite://" + filepath.Join(dir, "archive.db")

	out := run(t, "build", "--config", cfg, "--geom", obj, "--out", bin,
		"--image", img, "--archive", db, "--events", events)
	assert.Contains(t, out, "Building tiles: 100%")
	assert.Contains(t, out, "built 9 tiles")
	assert.Contains(t, out, `archived as "flat"`)

	f, err := os.Open(img)
	require.NoError(t, err)
	_, err = png.Decode(f)
	f.Close()
	require.NoError(t, err)

	evData, err := os.ReadFile(events)
	require.NoError(t, err)
	r := message.NewReader(bytes.NewReader(evData))
	built := 0
	for {
		e, err := r.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, message.TileBuilt, e.Kind)
		assert.NotZero(t, e.Ref)
		built++
	}
	assert.Equal(t, 9, built)

	out = run(t, "info", bin)
	assert.Contains(t, out, "version 1, 9 tiles")
	assert.Contains(t, out, "POLYS")

	out = run(t, "archive", "--db", db, "list")
	assert.Contains(t, out, "flat")

	got := filepath.Join(dir, "got.bin")
	run(t, "archive", "--db", db, "get", "flat", "--out", got)
	want, err := os.ReadFile(bin)
	require.NoError(t, err)
	gotData, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, want, gotData)

	run(t, "archive", "--db", db, "delete", "flat")
	_, err = execute("archive", "--db", db, "delete", "flat")
	assert.Error(t, err)
}

func TestDumpWritesStageFiles(t *testing.T) {
	dir, cfg, obj := fixture(t)
	outDir := filepath.Join(dir, "dump")
	out := run(t, "dump", "--config", cfg, "--geom", obj, "--x", "1", "--y", "1", "--dir", outDir)

	for _, name := range []string{"tile_1_1.obj", "tile_1_1_detail.obj", "tile_1_1.msgpack", "tile_1_1_regions.png"} {
		path := filepath.Join(outDir, name)
		assert.FileExists(t, path)
		assert.Contains(t, out, path)
	}

	f, err := os.Open(filepath.Join(outDir, "tile_1_1.msgpack"))
	require.NoError(t, err)
	defer f.Close()
	s, err := debug_utils.ReadSnapshot(f)
	require.NoError(t, err)
	assert.Equal(t, 1, s.TileX)
	assert.Equal(t, 1, s.TileY)
	assert.NotZero(t, s.PMesh.Npolys)
}

func TestCommandErrors(t *testing.T) {
	dir, cfg, _ := fixture(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no geometry", []string{"build", "--config", cfg}},
		{"missing geometry", []string{"build", "--config", cfg, "--geom", filepath.Join(dir, "nope.obj")}},
		{"info needs a file", []string{"info"}},
		{"info bad set", []string{"info", cfg}},
		{"dump outside grid", []string{"dump", "--config", cfg, "--geom", filepath.Join(dir, "flat.obj"), "--x", "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestCheck(t *testing.T) {
	dir, cfg, obj := fixture(t)
	cases := filepath.Join(dir, "flat.txt")
	require.NoError(t, os.WriteFile(cases, []byte("s flat\nf flat.obj\npf 2 0 2 22 0 22 ffff 0\n"), 0o644))

	out := run(t, "check", "--config", cfg, cases)
	assert.Contains(t, out, "ok")

	bin := filepath.Join(dir, "flat.bin")
	run(t, "build", "--config", cfg, "--geom", obj, "--out", bin)
	out = run(t, "check", "--config", cfg, "--navmesh", bin, cases)
	assert.Contains(t, out, "ok")

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("pf 2 0 2 22 0 22 ffff 1\n"), 0o644))
	out, err := execute("check", "--config", cfg, "--navmesh", bin, bad)
	assert.EqualError(t, err, "1 of 1 tests failed")
	assert.Contains(t, out, "no polygon")
}

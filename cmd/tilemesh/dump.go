package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gorustyt/tilemesh/common/logger"
	"github.com/gorustyt/tilemesh/debug_utils"
	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/tilemesh"
)

func DumpCmd() *cobra.Command {
	var src sourceFlags
	var tx, ty int
	var dir string
	c := &cobra.Command{
		Use:   "dump",
		Short: "build one tile and write its stage results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := src.load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer log.Sync()

			g, err := geom.Load(cfg.Geometry)
			if err != nil {
				return err
			}
			m := tilemesh.NewManager(
				tilemesh.WithLogger(log),
				tilemesh.WithSettings(cfg.Build),
				tilemesh.WithBuildMode(tilemesh.KeepIntermediates),
			)
			m.SetGeom(g)
			if !m.Build(false) {
				return fmt.Errorf("build %s failed", cfg.Geometry)
			}
			if err := m.BuildTileAt(tx, ty); err != nil {
				return err
			}
			inter := m.Intermediates()
			if inter == nil {
				return fmt.Errorf("tile %d,%d produced no polygons", tx, ty)
			}
			files, err := dumpTile(inter, dir)
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return err
		},
	}
	src.register(c)
	c.Flags().IntVar(&tx, "x", 0, "tile x")
	c.Flags().IntVar(&ty, "y", 0, "tile y")
	c.Flags().StringVar(&dir, "dir", ".", "output directory")
	return c
}

// dumpTile writes the poly mesh and detail mesh as OBJ, the msgpack snapshot
// and a region image. It returns the files written so far.
func dumpTile(inter *tilemesh.Intermediates, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	prefix := filepath.Join(dir, fmt.Sprintf("tile_%d_%d", inter.TileX, inter.TileY))
	var written []string
	write := func(path string, fn func(f *os.File) error) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	steps := []struct {
		path string
		fn   func(f *os.File) error
	}{
		{prefix + ".obj", func(f *os.File) error { return debug_utils.DuDumpPolyMeshToObj(inter.PMesh, f) }},
		{prefix + "_detail.obj", func(f *os.File) error { return debug_utils.DuDumpPolyMeshDetailToObj(inter.DMesh, f) }},
		{prefix + ".msgpack", func(f *os.File) error { return debug_utils.WriteSnapshot(f, inter) }},
		{prefix + "_regions.png", func(f *os.File) error { return regionImage(inter).WritePNG(f) }},
	}
	for _, s := range steps {
		if err := write(s.path, s.fn); err != nil {
			return written, err
		}
	}
	return written, nil
}

func regionImage(inter *tilemesh.Intermediates) *debug_utils.Raster {
	chf := inter.Chf
	r := debug_utils.NewRaster(chf.Bmin[:], chf.Bmax[:], 2/chf.Cs, debug_utils.DuRGBA(255, 255, 255, 255))
	debug_utils.DuDebugDrawCompactHeightfieldRegions(r, chf)
	debug_utils.DuDebugDrawContours(r, inter.Cset, 255)
	debug_utils.DuDebugDrawPolyMesh(r, inter.PMesh)
	return r
}

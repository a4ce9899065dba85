package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gorustyt/tilemesh/common/logger"
	"github.com/gorustyt/tilemesh/config"
	"github.com/gorustyt/tilemesh/debug_utils"
	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/message"
	"github.com/gorustyt/tilemesh/store"
	"github.com/gorustyt/tilemesh/tilemesh"
)

// sourceFlags override the geometry and settings of the config file.
type sourceFlags struct {
	configFile string
	geometry   string
}

func (f *sourceFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.configFile, "config", "", "hjson config file")
	c.Flags().StringVar(&f.geometry, "geom", "", "input geometry (.obj or .gset)")
}

// readConfig reads the config file and applies the flag overrides.
func (f *sourceFlags) readConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	override(&cfg.Geometry, f.geometry)
	return cfg, nil
}

// load is readConfig for commands that need input geometry.
func (f *sourceFlags) load() (*config.Config, error) {
	cfg, err := f.readConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Geometry == "" {
		return nil, errors.New("no input geometry, set geometry in the config or pass --geom")
	}
	return cfg, nil
}

func BuildCmd() *cobra.Command {
	var src sourceFlags
	var output, image, archive, events, name string
	c := &cobra.Command{
		Use:   "build",
		Short: "build every tile and save the nav mesh set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := src.load()
			if err != nil {
				return err
			}
			override(&cfg.Output, output)
			override(&cfg.Image, image)
			override(&cfg.Archive, archive)
			override(&cfg.Events, events)
			return runBuild(cfg, name, cmd.OutOrStdout())
		},
	}
	src.register(c)
	c.Flags().StringVar(&output, "out", "", "nav mesh set output file")
	c.Flags().StringVar(&image, "image", "", "write a top down PNG of the result")
	c.Flags().StringVar(&archive, "archive", "", "sqlite archive to store the result in")
	c.Flags().StringVar(&name, "name", "", "archive entry name, defaults to the geometry file name")
	c.Flags().StringVar(&events, "events", "", "write the tile event stream to this file")
	return c
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func runBuild(cfg *config.Config, name string, out io.Writer) (err error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	g, err := geom.Load(cfg.Geometry)
	if err != nil {
		return err
	}
	opts := []tilemesh.Option{
		tilemesh.WithLogger(log),
		tilemesh.WithSettings(cfg.Build),
		tilemesh.WithBuildMode(cfg.BuildMode()),
		tilemesh.WithProgress(func(msg string) { fmt.Fprintln(out, msg) }),
	}
	if cfg.Events != "" {
		f, cerr := os.Create(cfg.Events)
		if cerr != nil {
			return cerr
		}
		bw := bufio.NewWriter(f)
		defer func() {
			if ferr := bw.Flush(); err == nil {
				err = ferr
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		opts = append(opts, tilemesh.WithEvents(eventSink(message.NewWriter(bw), log)))
	}

	m := tilemesh.NewManager(opts...)
	m.SetGeom(g)
	if !m.Build(true) {
		return fmt.Errorf("build %s failed", cfg.Geometry)
	}

	var buf bytes.Buffer
	if err := tilemesh.Save(&buf, m.NavMesh()); err != nil {
		return err
	}
	if err := os.WriteFile(cfg.Output, buf.Bytes(), 0o644); err != nil {
		return err
	}
	st := m.Stats()
	fmt.Fprintf(out, "built %d tiles in %.2fs, wrote %s (%d bytes)\n",
		st.TilesBuilt, st.TotalBuildTime.Seconds(), cfg.Output, buf.Len())

	if cfg.Image != "" {
		if err := renderNavMesh(m, cfg.Image); err != nil {
			return err
		}
	}
	if cfg.Archive != "" {
		if name == "" {
			base := filepath.Base(cfg.Geometry)
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		s, err := store.Open(cfg.Archive)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Put(name, m.Settings(), buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(out, "archived as %q\n", name)
	}
	return nil
}

func eventSink(w *message.Writer, log *zap.SugaredLogger) func(*message.TileEvent) {
	return func(e *message.TileEvent) {
		if err := w.Write(e); err != nil {
			log.Warnw("write tile event", "kind", e.Kind, "x", e.X, "y", e.Y, "error", err)
		}
	}
}

const pixelsPerUnit = 8

// renderNavMesh draws the built tiles over the tile grid, each tile labelled
// with its coordinate.
func renderNavMesh(m *tilemesh.Manager, path string) error {
	bmin, bmax := m.Bounds()
	r := debug_utils.NewRaster(bmin[:], bmax[:], pixelsPerUnit, debug_utils.DuRGBA(255, 255, 255, 255))
	debug_utils.DuDebugDrawNavMesh(r, m.NavMesh(), debug_utils.DU_DRAWNAVMESH_OFFMESHCONS)

	tw, th := m.GridSize()
	ts := m.Settings().TileWorldSize()
	debug_utils.DuDebugDrawGridXZ(r, bmin[0], bmin[1], bmin[2], tw, th, ts, debug_utils.DuRGBA(0, 0, 0, 96), 1)
	label := debug_utils.DuRGBA(0, 0, 0, 200)
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			r.Label(bmin[0]+float32(x)*ts+ts*0.1, bmin[2]+float32(y)*ts+ts*0.3, fmt.Sprintf("%d,%d", x, y), label)
		}
	}
	return r.SavePNG(path)
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gorustyt/tilemesh/common/logger"
	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/testcase"
	"github.com/gorustyt/tilemesh/tilemesh"
)

func CheckCmd() *cobra.Command {
	var src sourceFlags
	var navFile string
	c := &cobra.Command{
		Use:   "check <testcase>",
		Short: "run scripted path queries against a built or saved nav mesh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := testcase.Load(args[0])
			if err != nil {
				return err
			}
			if src.geometry == "" && tc.GeomFileName != "" && navFile == "" {
				src.geometry = filepath.Join(filepath.Dir(args[0]), tc.GeomFileName)
			}
			m, err := checkManager(&src, navFile)
			if err != nil {
				return err
			}
			failed := tc.Run(m.Query())
			if err := tc.Report(cmd.OutOrStdout()); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tests failed", failed, len(tc.Tests))
			}
			return nil
		},
	}
	src.register(c)
	c.Flags().StringVar(&navFile, "navmesh", "", "saved nav mesh set to query instead of building")
	return c
}

func checkManager(src *sourceFlags, navFile string) (*tilemesh.Manager, error) {
	load := src.load
	if navFile != "" {
		load = src.readConfig
	}
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	m := tilemesh.NewManager(tilemesh.WithLogger(log), tilemesh.WithSettings(cfg.Build))
	if navFile != "" {
		if err := m.LoadFile(navFile); err != nil {
			return nil, err
		}
		return m, nil
	}
	g, err := geom.Load(cfg.Geometry)
	if err != nil {
		return nil, err
	}
	m.SetGeom(g)
	if !m.Build(true) {
		return nil, fmt.Errorf("build %s failed", cfg.Geometry)
	}
	return m, nil
}

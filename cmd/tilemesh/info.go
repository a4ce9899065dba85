package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gorustyt/tilemesh/tilemesh"
)

func InfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "describe a saved nav mesh set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return printSetInfo(cmd.OutOrStdout(), data)
		},
	}
}

func printSetInfo(out io.Writer, data []byte) error {
	hdr, err := tilemesh.ReadSetHeader(data)
	if err != nil {
		return err
	}
	nav, err := tilemesh.LoadMem(data)
	if err != nil {
		return err
	}
	p := hdr.Params
	fmt.Fprintf(out, "version %d, %d tiles\n", hdr.Version, hdr.NumTiles)
	fmt.Fprintf(out, "origin (%.2f, %.2f, %.2f), tile %.2f x %.2f, max %d tiles of %d polys\n",
		p.Orig[0], p.Orig[1], p.Orig[2], p.TileWidth, p.TileHeight, p.MaxTiles, p.MaxPolys)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "X\tY\tREF\tPOLYS\tVERTS\tOFFMESH\tBYTES")
	for i := 0; i < nav.MaxTiles(); i++ {
		tile := nav.GetTile(i)
		h := tile.Header
		if h == nil {
			continue
		}
		fmt.Fprintf(tw, "%d\t%d\t%#x\t%d\t%d\t%d\t%d\n",
			h.X, h.Y, uint32(nav.TileRef(tile)), h.PolyCount, h.VertCount, h.OffMeshConCount, len(tile.Data))
	}
	return tw.Flush()
}

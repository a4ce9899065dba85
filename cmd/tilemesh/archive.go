package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gorustyt/tilemesh/store"
)

func ArchiveCmd() *cobra.Command {
	var dsn string
	c := &cobra.Command{
		Use:   "archive",
		Short: "manage archived nav mesh sets",
	}
	c.PersistentFlags().StringVar(&dsn, "db", "sqlite://tilemesh.db", "archive database")

	withStore := func(fn func(cmd *cobra.Command, s *store.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(dsn)
			if err != nil {
				return err
			}
			defer s.Close()
			return fn(cmd, s, args)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "list archived sets",
		RunE: withStore(func(cmd *cobra.Command, s *store.Store, args []string) error {
			entries, err := s.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTILES\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Name, e.NumTiles, e.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		}),
	}

	var out string
	get := &cobra.Command{
		Use:   "get <name>",
		Short: "write an archived set to a file",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s *store.Store, args []string) error {
			e, err := s.Get(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = e.Name + ".bin"
			}
			if err := os.WriteFile(out, e.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d tiles, tile size %d)\n", out, e.NumTiles, e.Settings.TileSize)
			return nil
		}),
	}
	get.Flags().StringVar(&out, "out", "", "output file, defaults to <name>.bin")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "remove an archived set",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s *store.Store, args []string) error {
			return s.Delete(args[0])
		}),
	}

	c.AddCommand(list, get, del)
	return c
}

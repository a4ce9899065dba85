package main

import (
	"os"

	"github.com/spf13/cobra"
)

const VERSION = "1.0.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tilemesh",
		Short:        "tiled navigation mesh builder",
		Version:      VERSION,
		SilenceUsage: true,
	}
	root.AddCommand(
		BuildCmd(),
		DumpCmd(),
		CheckCmd(),
		InfoCmd(),
		ArchiveCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.log")
	opts := DefaultOptions()
	opts.Console = false
	opts.File = path
	log, err := New(opts)
	require.NoError(t, err)
	log.Infow("tile built", "x", 1, "y", 2)
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "tile built")
}

func TestNewRejectsBadLevel(t *testing.T) {
	opts := DefaultOptions()
	opts.Level = "loud"
	_, err := New(opts)
	require.Error(t, err)
}

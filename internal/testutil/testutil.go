// Package testutil provides shared test helpers for setting up vaults and
// block stores.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/linktitle/internal/blockstore"
	"github.com/starford/linktitle/internal/storage"
)

// TestStore opens a block store in a temporary directory that is closed
// when the test ends.
func TestStore(t *testing.T, opts ...blockstore.Option) *blockstore.Store {
	t.Helper()
	s, err := blockstore.Open(filepath.Join(t.TempDir(), "linktitle.db"), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestVault creates a temporary vault directory with a storage.FS.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	files, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return files.Root(), files
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

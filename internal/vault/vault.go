// Package vault keeps the block store and the page files on disk in step.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/linktitle/internal/apperr"
	"github.com/starford/linktitle/internal/models"
	"github.com/starford/linktitle/internal/outline"
	"github.com/starford/linktitle/internal/storage"
)

// PageStore is the subset of the block store the vault needs.
type PageStore interface {
	GetPage(ctx context.Context, name string) (*models.Page, error)
	PageTree(ctx context.Context, name string) (*models.Page, []models.Block, error)
	ImportPage(ctx context.Context, page models.Page, tree []models.Block) error
	DeletePage(ctx context.Context, name string) error
	SetPageChecksum(ctx context.Context, name, checksum string) error
	Checksums(ctx context.Context) (map[string]string, error)
}

// PageName maps a vault-relative file path to a page name.
func PageName(p string) string {
	return strings.TrimSuffix(path.Clean(strings.ReplaceAll(p, "\\", "/")), storage.PageExt)
}

// PagePath maps a page name to its vault-relative file path.
func PagePath(name string) string {
	return name + storage.PageExt
}

// Sync brings the store up to date with the vault:
//   - new/changed files are parsed and imported
//   - pages whose file is gone are deleted
func Sync(ctx context.Context, pages PageStore, files storage.Provider, logger *slog.Logger) error {
	metas, err := files.List("")
	if err != nil {
		return err
	}
	checksums, err := pages.Checksums(ctx)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		name := PageName(m.Path)
		disk[name] = struct{}{}
		if checksums[name] == m.Checksum {
			continue
		}
		data, err := files.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := importFile(ctx, pages, files, name, data); err != nil {
			logger.Warn("sync: import failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: imported", slog.String("page", name))
		}
	}

	// Pages never written to disk have no checksum and are kept.
	for name, cs := range checksums {
		if _, ok := disk[name]; ok || cs == "" {
			continue
		}
		if err := pages.DeletePage(ctx, name); err != nil {
			logger.Warn("sync: delete failed", slog.String("page", name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("page", name))
		}
	}
	return nil
}

// importFile parses data into the store. Blocks that came without an id::
// property are written back so their ids stay stable across imports.
func importFile(ctx context.Context, pages PageStore, files storage.Provider, name string, data []byte) error {
	doc, err := outline.Parse(data)
	if err != nil {
		return err
	}
	page := models.Page{Name: name, Title: doc.Title, Checksum: storage.Checksum(data)}
	if err := pages.ImportPage(ctx, page, doc.Blocks); err != nil {
		return err
	}
	if outline.MissingIDs(doc.Blocks) {
		return exportPage(ctx, pages, files, name)
	}
	return nil
}

// exportPage renders the page to disk. The checksum is stored before the
// write so the watcher recognises the file as already imported.
func exportPage(ctx context.Context, pages PageStore, files storage.Provider, name string) error {
	page, tree, err := pages.PageTree(ctx, name)
	if err != nil {
		return err
	}
	data := outline.Render(page.Title, tree)
	if err := pages.SetPageChecksum(ctx, name, storage.Checksum(data)); err != nil {
		return err
	}
	if err := files.Write(PagePath(name), data); err != nil {
		return fmt.Errorf("vault: export %s: %w", name, err)
	}
	return nil
}

// upToDate reports whether the stored checksum of name already matches data.
func upToDate(ctx context.Context, pages PageStore, name string, data []byte) bool {
	p, err := pages.GetPage(ctx, name)
	return err == nil && p.Checksum == storage.Checksum(data)
}

func ignoreMissing(err error) error {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

package vault

import (
	"context"
	"log/slog"

	"github.com/starford/linktitle/internal/models"
	"github.com/starford/linktitle/internal/storage"
)

// Feed is the change feed Mirror listens on.
type Feed interface {
	Subscribe() chan models.TxEvent
	Unsubscribe(ch chan models.TxEvent)
}

// Mirror writes pages back to disk after every block mutation until ctx is
// cancelled or the feed closes. Imports are not mirrored since they come
// from disk in the first place.
func Mirror(ctx context.Context, pages PageStore, files storage.Provider, feed Feed, logger *slog.Logger) error {
	ch := feed.Subscribe()
	defer feed.Unsubscribe(ch)

	logger.Info("mirror: started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("mirror: stopped")
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if ev.Page == "" {
				continue
			}
			switch ev.Op {
			case models.OpInsertBlocks, models.OpSaveBlock, models.OpDeleteBlocks:
				if err := exportPage(ctx, pages, files, ev.Page); ignoreMissing(err) != nil {
					logger.Warn("mirror: export failed", slog.String("page", ev.Page), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("mirror: exported", slog.String("page", ev.Page), slog.String("op", ev.Op))
			case models.OpDeletePage:
				if err := files.Delete(PagePath(ev.Page)); ignoreMissing(err) != nil {
					logger.Warn("mirror: delete failed", slog.String("page", ev.Page), slog.String("error", err.Error()))
				}
			}
		}
	}
}

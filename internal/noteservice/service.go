// Package noteservice coordinates the block store, the link formatter and
// the command registry for the transports.
package noteservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/linktitle/internal/apperr"
	"github.com/starford/linktitle/internal/blockstore"
	"github.com/starford/linktitle/internal/linkfmt"
	"github.com/starford/linktitle/internal/models"
	"github.com/starford/linktitle/internal/plugin"
	"github.com/starford/linktitle/internal/storage"
)

// PageDetail is a page with its block tree.
type PageDetail struct {
	models.Page
	Blocks []models.Block `json:"blocks"`
}

// Service coordinates store and formatter operations.
type Service struct {
	store    *blockstore.Store
	engine   *linkfmt.Engine
	titles   linkfmt.TitleResolver
	commands *plugin.Registry
}

// NewService creates a new note service.
func NewService(store *blockstore.Store, engine *linkfmt.Engine, titles linkfmt.TitleResolver, commands *plugin.Registry) *Service {
	return &Service{store: store, engine: engine, titles: titles, commands: commands}
}

// ListPages returns every page.
func (s *Service) ListPages(ctx context.Context) ([]models.Page, error) {
	pages, err := s.store.ListPages(ctx)
	return nonNilSlice(pages), err
}

// GetPage returns a page and its full block tree.
func (s *Service) GetPage(ctx context.Context, name string) (*PageDetail, error) {
	page, tree, err := s.store.PageTree(ctx, name)
	if err != nil {
		return nil, err
	}
	return &PageDetail{Page: *page, Blocks: nonNilSlice(tree)}, nil
}

// CreatePage creates an empty page. Names map to page files, so empty,
// hidden and parent-relative names are rejected.
func (s *Service) CreatePage(ctx context.Context, name, title string) (*models.Page, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" || !storage.IsPageFile(name+storage.PageExt) {
		return nil, fmt.Errorf("page name %q: %w", name, apperr.ErrInvalidInput)
	}
	return s.store.CreatePage(ctx, name, title)
}

// DeletePage removes a page and its blocks.
func (s *Service) DeletePage(ctx context.Context, name string) error {
	return s.store.DeletePage(ctx, name)
}

// AppendBlock adds a top-level block at the end of page.
func (s *Service) AppendBlock(ctx context.Context, page, content string) (*models.Block, error) {
	return s.store.AppendBlock(ctx, page, content)
}

// GetBlock returns a block with its direct children.
func (s *Service) GetBlock(ctx context.Context, uuid string) (*models.Block, error) {
	return s.store.GetBlock(ctx, uuid)
}

// UpdateBlock replaces a block's content and returns the stored block.
func (s *Service) UpdateBlock(ctx context.Context, uuid, content string) (*models.Block, error) {
	if err := s.store.UpdateBlock(ctx, uuid, content); err != nil {
		return nil, err
	}
	return s.store.GetBlock(ctx, uuid)
}

// DeleteBlock removes a block and its subtree.
func (s *Service) DeleteBlock(ctx context.Context, uuid string) error {
	return s.store.DeleteBlock(ctx, uuid)
}

// InsertBlock creates a block relative to target.
func (s *Service) InsertBlock(ctx context.Context, target, content string, opts models.InsertOptions) (*models.Block, error) {
	return s.store.InsertBlock(ctx, target, content, opts)
}

// PreferredFormat returns the configured note syntax, or "".
func (s *Service) PreferredFormat(ctx context.Context) (string, error) {
	return s.store.PreferredFormat(ctx)
}

// SetPreferredFormat validates and stores the note syntax.
func (s *Service) SetPreferredFormat(ctx context.Context, name string) (string, error) {
	spec, ok := linkfmt.LookupFormat(name)
	if !ok {
		return "", fmt.Errorf("format %q (want one of %s): %w",
			name, strings.Join(linkfmt.FormatNames(), ", "), apperr.ErrInvalidInput)
	}
	if err := s.store.SetPreferredFormat(ctx, spec.Name); err != nil {
		return "", err
	}
	return spec.Name, nil
}

// Selection returns the selected block uuids.
func (s *Service) Selection(ctx context.Context) ([]string, error) {
	sel, err := s.store.Selection(ctx)
	return nonNilSlice(sel), err
}

// SetSelection replaces the selected block uuids.
func (s *Service) SetSelection(ctx context.Context, uuids []string) error {
	return s.store.SetSelection(ctx, uuids)
}

// Commands lists the registered user commands.
func (s *Service) Commands() []plugin.CommandInfo {
	return s.commands.List()
}

// RunCommand invokes a user command.
func (s *Service) RunCommand(ctx context.Context, key string, uuids []string) (any, error) {
	return s.commands.Invoke(ctx, key, uuids)
}

// FormatBlocks rewrites the URLs of the given blocks.
func (s *Service) FormatBlocks(ctx context.Context, uuids []string) ([]linkfmt.Result, error) {
	if len(uuids) == 0 {
		return nil, fmt.Errorf("no blocks given: %w", apperr.ErrInvalidInput)
	}
	return s.engine.Run(ctx, uuids...)
}

// RewriteText rewrites free text without touching the store. An empty
// syntax selects the preferred format.
func (s *Service) RewriteText(ctx context.Context, text, syntax string) (linkfmt.Outcome, error) {
	var spec linkfmt.FormatSpec
	if syntax == "" {
		var err error
		if spec, err = s.engine.Spec(ctx); err != nil {
			return linkfmt.Outcome{}, err
		}
	} else {
		var ok bool
		if spec, ok = linkfmt.LookupFormat(syntax); !ok {
			return linkfmt.Outcome{}, fmt.Errorf("format %q: %w", syntax, apperr.ErrInvalidInput)
		}
	}
	return linkfmt.Rewrite(ctx, text, spec, s.titles.Resolve, nil), nil
}

// ResolveTitle returns the display title for a URL, or "".
func (s *Service) ResolveTitle(ctx context.Context, rawURL string) string {
	return s.titles.Resolve(ctx, rawURL)
}

// Search delegates full-text search to the store.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]blockstore.SearchResult, error) {
	res, err := s.store.Search(ctx, query, limit)
	return nonNilSlice(res), err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

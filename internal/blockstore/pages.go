package blockstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/linktitle/internal/apperr"
	"github.com/starford/linktitle/internal/models"
)

// CreatePage inserts an empty page. It fails with apperr.ErrAlreadyExists
// when the name is taken.
func (s *Store) CreatePage(ctx context.Context, name, title string) (*models.Page, error) {
	if name == "" {
		return nil, errors.New("blockstore: create page: empty name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO pages (name, title, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, title, now)
	if err != nil {
		return nil, fmt.Errorf("blockstore: create page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("blockstore: page %q: %w", name, apperr.ErrAlreadyExists)
	}

	// Pages travel in insertBlocks too; Name marks the entity as a page.
	s.publish(models.TxEvent{
		Op:     models.OpInsertBlocks,
		Page:   name,
		Blocks: []models.Entity{{Name: name, Page: name}},
	})
	return &models.Page{Name: name, Title: title, UpdatedAt: now}, nil
}

// GetPage returns one page without its blocks.
func (s *Store) GetPage(ctx context.Context, name string) (*models.Page, error) {
	var p models.Page
	err := s.conn.QueryRowContext(ctx,
		`SELECT name, title, checksum, updated_at FROM pages WHERE name = ?`, name,
	).Scan(&p.Name, &p.Title, &p.Checksum, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blockstore: page %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("blockstore: get page: %w", err)
	}
	return &p, nil
}

// ListPages returns all pages ordered by name.
func (s *Store) ListPages(ctx context.Context) ([]models.Page, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT name, title, checksum, updated_at FROM pages ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("blockstore: list pages: %w", err)
	}
	defer rows.Close()

	var out []models.Page
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.Name, &p.Title, &p.Checksum, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Checksums maps every page name to its stored file checksum.
func (s *Store) Checksums(ctx context.Context) (map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name, checksum FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("blockstore: checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// SetPageChecksum records the checksum of the page file last written or
// imported.
func (s *Store) SetPageChecksum(ctx context.Context, name, checksum string) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE pages SET checksum = ? WHERE name = ?`, checksum, name)
	if err != nil {
		return fmt.Errorf("blockstore: set checksum: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("blockstore: page %q: %w", name, apperr.ErrNotFound)
	}
	return nil
}

// DeletePage removes a page and all of its blocks.
func (s *Store) DeletePage(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("blockstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDeletePage(tx, name)
	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE page = ?`, name); err != nil {
		return fmt.Errorf("blockstore: delete blocks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("blockstore: delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("blockstore: page %q: %w", name, apperr.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.publish(models.TxEvent{Op: models.OpDeletePage, Page: name, Blocks: []models.Entity{{Name: name, Page: name}}})
	return nil
}

// PageTree returns the page and its full block tree.
func (s *Store) PageTree(ctx context.Context, name string) (*models.Page, []models.Block, error) {
	page, err := s.GetPage(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE page = ? ORDER BY parent, position`, name)
	if err != nil {
		return nil, nil, fmt.Errorf("blockstore: page tree: %w", err)
	}
	defer rows.Close()

	byParent := make(map[string][]models.Block)
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, nil, err
		}
		byParent[b.Parent] = append(byParent[b.Parent], b)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return page, buildTree(byParent, ""), nil
}

func buildTree(byParent map[string][]models.Block, parent string) []models.Block {
	siblings := byParent[parent]
	out := make([]models.Block, 0, len(siblings))
	for i, b := range siblings {
		if i > 0 {
			b.Left = siblings[i-1].UUID
		} else {
			b.Left = parent
		}
		b.Children = buildTree(byParent, b.UUID)
		out = append(out, b)
	}
	return out
}

// ImportPage replaces the page's blocks with tree, creating the page if
// needed. Blocks without a UUID get a fresh one. The resulting event is
// importPage, which never triggers a rewrite.
func (s *Store) ImportPage(ctx context.Context, page models.Page, tree []models.Block) error {
	if page.Name == "" {
		return errors.New("blockstore: import page: empty name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("blockstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.timestamp()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (name, title, checksum, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, page.Name, page.Title, page.Checksum, now)
	if err != nil {
		return fmt.Errorf("blockstore: upsert page: %w", err)
	}

	ftsDeletePage(tx, page.Name)
	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE page = ?`, page.Name); err != nil {
		return fmt.Errorf("blockstore: clear page: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO blocks (uuid, page, parent, position, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			page       = excluded.page,
			parent     = excluded.parent,
			position   = excluded.position,
			content    = excluded.content,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("blockstore: prepare block insert: %w", err)
	}
	defer stmt.Close()

	var insert func(parent string, blocks []models.Block) error
	insert = func(parent string, blocks []models.Block) error {
		for i, b := range blocks {
			id := b.UUID
			if id == "" {
				id = uuid.NewString()
			}
			if _, err := stmt.ExecContext(ctx, id, page.Name, parent, i, b.Content, now, now); err != nil {
				return fmt.Errorf("blockstore: insert block: %w", err)
			}
			if err := ftsUpsert(tx, id, page.Name, b.Content); err != nil {
				return err
			}
			if err := insert(id, b.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert("", tree); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.publish(models.TxEvent{Op: models.OpImportPage, Page: page.Name})
	return nil
}

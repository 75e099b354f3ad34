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

const blockColumns = `uuid, page, parent, position, content, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(row scanner) (models.Block, error) {
	var b models.Block
	err := row.Scan(&b.UUID, &b.Page, &b.Parent, &b.Position, &b.Content, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getBlock(ctx context.Context, q queryer, id string) (models.Block, error) {
	b, err := scanBlock(q.QueryRowContext(ctx, `SELECT `+blockColumns+` FROM blocks WHERE uuid = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("blockstore: block %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return b, fmt.Errorf("blockstore: get block: %w", err)
	}
	return b, nil
}

// leftOf returns the previous sibling of b, or its parent when b comes first.
func leftOf(ctx context.Context, q queryer, b models.Block) (string, error) {
	var left string
	err := q.QueryRowContext(ctx, `
		SELECT uuid FROM blocks
		WHERE page = ? AND parent = ? AND position < ?
		ORDER BY position DESC LIMIT 1
	`, b.Page, b.Parent, b.Position).Scan(&left)
	if errors.Is(err, sql.ErrNoRows) {
		return b.Parent, nil
	}
	if err != nil {
		return "", fmt.Errorf("blockstore: left sibling: %w", err)
	}
	return left, nil
}

func children(ctx context.Context, q queryer, parent string) ([]models.Block, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE parent = ? ORDER BY position`, parent)
	if err != nil {
		return nil, fmt.Errorf("blockstore: children: %w", err)
	}
	defer rows.Close()

	var out []models.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		if len(out) > 0 {
			b.Left = out[len(out)-1].UUID
		} else {
			b.Left = parent
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBlock returns a block with Left set and its direct children loaded.
func (s *Store) GetBlock(ctx context.Context, id string) (*models.Block, error) {
	b, err := getBlock(ctx, s.conn, id)
	if err != nil {
		return nil, err
	}
	if b.Left, err = leftOf(ctx, s.conn, b); err != nil {
		return nil, err
	}
	if b.Children, err = children(ctx, s.conn, b.UUID); err != nil {
		return nil, err
	}
	return &b, nil
}

// AppendBlock adds a top-level block at the end of page.
func (s *Store) AppendBlock(ctx context.Context, page, content string) (*models.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.GetPage(ctx, page); err != nil {
		return nil, err
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("blockstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	pos, err := nextPosition(ctx, tx, page, "")
	if err != nil {
		return nil, err
	}
	b, err := s.insertAt(ctx, tx, page, "", pos, content)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.publishInsert(b)
	return &b, nil
}

// InsertBlock creates a block next to or under target.
//
// With Sibling the new block goes right after target (or right before it
// with Before). Otherwise it becomes the last child of target (or the first
// with Before). Focus makes it the focused block.
func (s *Store) InsertBlock(ctx context.Context, target, content string, opts models.InsertOptions) (*models.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("blockstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	anchor, err := getBlock(ctx, tx, target)
	if err != nil {
		return nil, err
	}

	parent, pos := anchor.UUID, 0
	switch {
	case opts.Sibling && opts.Before:
		parent, pos = anchor.Parent, anchor.Position
	case opts.Sibling:
		parent, pos = anchor.Parent, anchor.Position+1
	case !opts.Before:
		if pos, err = nextPosition(ctx, tx, anchor.Page, parent); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE blocks SET position = position + 1
		WHERE page = ? AND parent = ? AND position >= ?
	`, anchor.Page, parent, pos); err != nil {
		return nil, fmt.Errorf("blockstore: shift siblings: %w", err)
	}

	b, err := s.insertAt(ctx, tx, anchor.Page, parent, pos, content)
	if err != nil {
		return nil, err
	}
	if opts.Focus {
		if err := putSetting(ctx, tx, settingFocus, b.UUID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.publishInsert(b)
	return &b, nil
}

func nextPosition(ctx context.Context, q queryer, page, parent string) (int, error) {
	var pos int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM blocks WHERE page = ? AND parent = ?`,
		page, parent).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("blockstore: next position: %w", err)
	}
	return pos, nil
}

func (s *Store) insertAt(ctx context.Context, tx *sql.Tx, page, parent string, pos int, content string) (models.Block, error) {
	now := s.timestamp()
	b := models.Block{
		UUID:      uuid.NewString(),
		Page:      page,
		Parent:    parent,
		Position:  pos,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO blocks (uuid, page, parent, position, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.UUID, b.Page, b.Parent, b.Position, b.Content, now, now)
	if err != nil {
		return b, fmt.Errorf("blockstore: insert block: %w", err)
	}
	if err := ftsUpsert(tx, b.UUID, page, content); err != nil {
		return b, err
	}
	if b.Left, err = leftOf(ctx, tx, b); err != nil {
		return b, err
	}
	return b, nil
}

func (s *Store) publishInsert(b models.Block) {
	s.publish(models.TxEvent{
		Op:   models.OpInsertBlocks,
		Page: b.Page,
		Blocks: []models.Entity{{
			UUID:    b.UUID,
			Content: b.Content,
			Left:    b.Left,
			Page:    b.Page,
		}},
	})
}

// UpdateBlock replaces the content of a block.
func (s *Store) UpdateBlock(ctx context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("blockstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	b, err := getBlock(ctx, tx, id)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE blocks SET content = ?, updated_at = ? WHERE uuid = ?`,
		content, s.timestamp(), id); err != nil {
		return fmt.Errorf("blockstore: update block: %w", err)
	}
	if err := ftsUpsert(tx, id, b.Page, content); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.publish(models.TxEvent{
		Op:     models.OpSaveBlock,
		Page:   b.Page,
		Blocks: []models.Entity{{UUID: id, Content: content, Page: b.Page}},
	})
	return nil
}

// DeleteBlock removes a block and its whole subtree.
func (s *Store) DeleteBlock(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("blockstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	b, err := getBlock(ctx, tx, id)
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `
		WITH RECURSIVE subtree(uuid) AS (
			SELECT ?
			UNION ALL
			SELECT blocks.uuid FROM blocks JOIN subtree ON blocks.parent = subtree.uuid
		)
		SELECT uuid FROM subtree
	`, id)
	if err != nil {
		return fmt.Errorf("blockstore: collect subtree: %w", err)
	}
	var ids []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	entities := make([]models.Entity, 0, len(ids))
	for _, u := range ids {
		ftsDelete(tx, u)
		if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE uuid = ?`, u); err != nil {
			return fmt.Errorf("blockstore: delete block: %w", err)
		}
		entities = append(entities, models.Entity{UUID: u, Page: b.Page})
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE blocks SET position = position - 1
		WHERE page = ? AND parent = ? AND position > ?
	`, b.Page, b.Parent, b.Position); err != nil {
		return fmt.Errorf("blockstore: close gap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.publish(models.TxEvent{Op: models.OpDeleteBlocks, Page: b.Page, Blocks: entities})
	return nil
}

//go:build sqlite_fts5

package blockstore

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS blocks_fts USING fts5(
			uuid UNINDEXED,
			page UNINDEXED,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, page, content string) error {
	_, _ = tx.Exec(`DELETE FROM blocks_fts WHERE uuid = ?`, id)
	_, err := tx.Exec(`INSERT INTO blocks_fts (uuid, page, content) VALUES (?, ?, ?)`, id, page, content)
	if err != nil {
		return fmt.Errorf("blockstore: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM blocks_fts WHERE uuid = ?`, id)
}

func ftsDeletePage(tx *sql.Tx, page string) {
	_, _ = tx.Exec(`DELETE FROM blocks_fts WHERE page = ?`, page)
}

// Search performs an FTS5 full-text search over block content.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT uuid,
		       page,
		       snippet(blocks_fts, 2, '<b>', '</b>', '...', 64)
		FROM blocks_fts
		WHERE blocks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("blockstore: search: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// Package blockstore keeps pages and their outline blocks in SQLite, with
// optional FTS5 full-text search over block content.
package blockstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/linktitle/internal/models"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS pages (
	name       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS blocks (
	uuid       TEXT PRIMARY KEY,
	page       TEXT NOT NULL REFERENCES pages(name) ON DELETE CASCADE,
	parent     TEXT NOT NULL DEFAULT '',
	position   INTEGER NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_blocks_siblings ON blocks(page, parent, position);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Publisher receives an event after every committed mutation.
type Publisher interface {
	Publish(ev models.TxEvent)
}

// Store wraps a sql.DB with page and block operations.
type Store struct {
	conn *sql.DB
	pub  Publisher
	now  func() time.Time

	// mu serialises writers so sibling positions stay dense.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher sets the event sink for committed mutations.
func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.pub = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, opts ...Option) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("blockstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("blockstore: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("blockstore: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("blockstore: apply fts schema: %w", err)
	}
	s := &Store{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *Store) publish(ev models.TxEvent) {
	if s.pub != nil {
		s.pub.Publish(ev)
	}
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

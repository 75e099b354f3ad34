package blockstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	settingFormat    = "preferred_format"
	settingSelection = "selection"
	settingFocus     = "focus"
)

func getSetting(ctx context.Context, q queryer, key string) (string, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("blockstore: get setting %s: %w", key, err)
	}
	return v, nil
}

func putSetting(ctx context.Context, q queryer, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("blockstore: put setting %s: %w", key, err)
	}
	return nil
}

// PreferredFormat returns the configured note syntax, or "" when unset.
func (s *Store) PreferredFormat(ctx context.Context) (string, error) {
	return getSetting(ctx, s.conn, settingFormat)
}

// SetPreferredFormat stores the note syntax used for rendering links.
func (s *Store) SetPreferredFormat(ctx context.Context, name string) error {
	return putSetting(ctx, s.conn, settingFormat, name)
}

// Selection returns the uuids of the currently selected blocks.
func (s *Store) Selection(ctx context.Context) ([]string, error) {
	raw, err := getSetting(ctx, s.conn, settingSelection)
	if err != nil || raw == "" {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("blockstore: decode selection: %w", err)
	}
	return ids, nil
}

// SetSelection replaces the current block selection.
func (s *Store) SetSelection(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return putSetting(ctx, s.conn, settingSelection, string(raw))
}

// FocusedBlock returns the uuid of the block that last received focus.
func (s *Store) FocusedBlock(ctx context.Context) (string, error) {
	return getSetting(ctx, s.conn, settingFocus)
}

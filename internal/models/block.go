// Package models defines the domain types shared by the store, the engine
// and the transports.
package models

import "time"

// Block is one outline item. Children is only populated by reads that load
// the subtree.
type Block struct {
	UUID      string    `json:"uuid"`
	Page      string    `json:"page"`
	Parent    string    `json:"parent,omitempty"`
	Left      string    `json:"left,omitempty"` // previous sibling, or parent for a first child
	Position  int       `json:"position"`
	Content   string    `json:"content"`
	Children  []Block   `json:"children,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FirstChild returns the first loaded child, if any.
func (b *Block) FirstChild() (Block, bool) {
	if len(b.Children) == 0 {
		return Block{}, false
	}
	return b.Children[0], true
}

// Page is a named outline.
type Page struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InsertOptions controls where InsertBlock places the new block relative to
// its target.
type InsertOptions struct {
	// Before places the block before the target (sibling) or as the first
	// child (non-sibling) instead of after / as the last child.
	Before bool `json:"before"`
	// Sibling makes the new block a sibling of the target instead of a child.
	Sibling bool `json:"sibling"`
	// Focus moves the editing cursor to the new block.
	Focus bool `json:"focus"`
}

package models

// Outliner operations carried by TxEvent.Op.
const (
	OpDeletePage   = "deletePage"
	OpImportPage   = "importPage"
	OpInsertBlocks = "insertBlocks"
	OpSaveBlock    = "saveBlock"
	OpDeleteBlocks = "deleteBlocks"
)

// TxEvent describes one committed store transaction.
type TxEvent struct {
	Op     string   `json:"op"`
	Page   string   `json:"page"`
	Blocks []Entity `json:"blocks"`
}

// Entity is a block or page touched by a transaction. Name is set only when
// the entity is a page.
type Entity struct {
	UUID    string `json:"uuid,omitempty"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
	Left    string `json:"left,omitempty"`
	Page    string `json:"page,omitempty"`
}

package api

import (
	"github.com/starford/linktitle/internal/blockstore"
	"github.com/starford/linktitle/internal/linkfmt"
	"github.com/starford/linktitle/internal/models"
	"github.com/starford/linktitle/internal/plugin"
)

// CreatePageRequest is the request body for creating a page.
type CreatePageRequest struct {
	Name  string `json:"name" example:"reading-list" validate:"required"`
	Title string `json:"title" example:"Reading list"`
}

// BlockContentRequest carries block text for append and update.
type BlockContentRequest struct {
	Content string `json:"content" example:"see https://go.dev"`
}

// InsertBlockRequest is the request body for inserting a block next to or
// under another one.
type InsertBlockRequest struct {
	Content string `json:"content" example:"[Go](https://go.dev)"`
	models.InsertOptions
}

// FormatRequest sets the preferred note syntax.
type FormatRequest struct {
	Format string `json:"format" example:"markdown" validate:"required"`
}

// FormatResponse reports the preferred note syntax; empty when unset.
type FormatResponse struct {
	Format    string   `json:"format" example:"markdown"`
	Supported []string `json:"supported"`
}

// SelectionRequest replaces the current selection.
type SelectionRequest struct {
	UUIDs []string `json:"uuids"`
}

// SelectionResponse lists the selected blocks.
type SelectionResponse struct {
	UUIDs []string `json:"uuids" validate:"required"`
}

// CommandsResponse lists the registered commands.
type CommandsResponse struct {
	Commands []plugin.CommandInfo `json:"commands" validate:"required"`
}

// RunCommandRequest optionally names the blocks to run on; the current
// selection is used otherwise.
type RunCommandRequest struct {
	UUIDs []string `json:"uuids"`
}

// FormatResult is the per-block outcome of a format run.
type FormatResult struct {
	UUID    string        `json:"uuid" validate:"required"`
	Written bool          `json:"written"`
	Stats   linkfmt.Stats `json:"stats"`
	Error   string        `json:"error,omitempty"`
}

// FormatRunResponse wraps a format run.
type FormatRunResponse struct {
	Results []FormatResult `json:"results" validate:"required"`
}

// RewriteRequest is the request body for rewriting free text.
type RewriteRequest struct {
	Text   string `json:"text" example:"see https://go.dev" validate:"required"`
	Syntax string `json:"syntax,omitempty" example:"org"`
}

// RewriteResponse is the rewritten text plus the links destined for child
// blocks.
type RewriteResponse struct {
	Text     string        `json:"text"`
	Children []string      `json:"children"`
	Stats    linkfmt.Stats `json:"stats"`
}

// TitleRequest asks for the title of one URL.
type TitleRequest struct {
	URL string `json:"url" example:"https://go.dev" validate:"required"`
}

// TitleResponse carries a resolved title; empty when none was found.
type TitleResponse struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []blockstore.SearchResult `json:"results" validate:"required"`
}

func toFormatResults(results []linkfmt.Result) []FormatResult {
	out := make([]FormatResult, 0, len(results))
	for _, r := range results {
		out = append(out, FormatResult{UUID: r.UUID, Written: r.Written, Stats: r.Stats, Error: r.ErrorText()})
	}
	return out
}

func toRewriteResponse(o linkfmt.Outcome) RewriteResponse {
	children := make([]string, 0, len(o.Children))
	for _, c := range o.Children {
		children = append(children, c.Content)
	}
	return RewriteResponse{Text: o.Text, Children: children, Stats: o.Stats}
}

// Package mcpserver exposes link formatting over MCP (Model Context
// Protocol) on a stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/linktitle/internal/apperr"
	"github.com/starford/linktitle/internal/noteservice"
)

// Server wraps the MCP server with the link tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates an MCP server with every tool registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"linktitle",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("format_blocks",
		mcp.WithDescription("Replace bare URLs in the given blocks with links titled after the target page, "+
			"using the preferred note syntax. Without uuids the current selection is used."),
		mcp.WithString("uuids", mcp.Description("Block UUIDs separated by commas or spaces")),
	), s.formatBlocks)

	s.mcp.AddTool(mcp.NewTool("rewrite_text",
		mcp.WithDescription("Rewrite bare URLs in free text without touching any block."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to rewrite")),
		mcp.WithString("syntax", mcp.Description("markdown or org; defaults to the preferred format")),
	), s.rewriteText)

	s.mcp.AddTool(mcp.NewTool("resolve_title",
		mcp.WithDescription("Fetch the display title of a URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute URL")),
	), s.resolveTitle)

	s.mcp.AddTool(mcp.NewTool("read_block",
		mcp.WithDescription("Read a block and its direct children."),
		mcp.WithString("uuid", mcp.Required(), mcp.Description("Block UUID")),
	), s.readBlock)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all page names."),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("search_blocks",
		mcp.WithDescription("Full-text search through block content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchBlocks)

	s.mcp.AddTool(mcp.NewTool("get_formats",
		mcp.WithDescription("Describe the supported link syntaxes and which URLs are left alone."),
	), s.getFormats)

	s.mcp.AddResource(
		mcp.NewResource(formatsURI, "Link formats",
			mcp.WithResourceDescription("Supported link syntaxes and rewrite rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) formatBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var uuids []string
	if raw, err := req.RequireString("uuids"); err == nil {
		uuids = splitIDs(raw)
	}
	if len(uuids) == 0 {
		sel, err := s.svc.Selection(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		uuids = sel
	}
	if len(uuids) == 0 {
		return mcp.NewToolResultError("no blocks given and nothing selected"), nil
	}

	results, err := s.svc.FormatBlocks(ctx, uuids)
	if errors.Is(err, apperr.ErrNoFormat) {
		return mcp.NewToolResultError("no preferred format set; expected markdown or org"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	lines := make([]string, 0, len(results))
	for _, r := range results {
		switch {
		case r.Err != nil:
			lines = append(lines, fmt.Sprintf("%s: error: %s", r.UUID, r.Err))
		case r.Written:
			lines = append(lines, fmt.Sprintf("%s: %d rewritten, %d child links, %d unresolved",
				r.UUID, r.Stats.Rewritten, r.Stats.Children, r.Stats.Unresolved))
		default:
			lines = append(lines, r.UUID+": no urls")
		}
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) rewriteText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	syntax := ""
	if v, err := req.RequireString("syntax"); err == nil {
		syntax = v
	}
	out, err := s.svc.RewriteText(ctx, text, syntax)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(out.Children) == 0 {
		return mcp.NewToolResultText(out.Text), nil
	}
	var b strings.Builder
	b.WriteString(out.Text)
	for _, c := range out.Children {
		b.WriteString("\n\t")
		b.WriteString(c.Content)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) resolveTitle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := s.svc.ResolveTitle(ctx, url)
	if title == "" {
		return mcp.NewToolResultError(fmt.Sprintf("no title found for %s", url)), nil
	}
	return mcp.NewToolResultText(title), nil
}

func (s *Server) readBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("uuid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	block, err := s.svc.GetBlock(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(block, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listPages(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.svc.ListPages(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names := make([]string, 0, len(pages))
	for _, p := range pages {
		names = append(names, p.Name)
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) searchBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getFormats(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatsGuide()), nil
}

func (s *Server) readFormatsResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatsURI,
			MIMEType: "text/markdown",
			Text:     FormatsGuide(),
		},
	}, nil
}

func splitIDs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
}

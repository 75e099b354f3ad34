package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/linktitle/internal/blockstore"
	"github.com/starford/linktitle/internal/linkfmt"
	"github.com/starford/linktitle/internal/noteservice"
	"github.com/starford/linktitle/internal/plugin"
	"github.com/starford/linktitle/internal/testutil"
)

type mapTitles map[string]string

func (m mapTitles) Resolve(_ context.Context, url string) string { return m[url] }

func testServer(t *testing.T) (*Server, *blockstore.Store) {
	t.Helper()
	store := testutil.TestStore(t)
	titles := mapTitles{"http://a.co": "A", "https://go.dev": "The Go Programming Language"}
	engine := linkfmt.NewEngine(store, titles, linkfmt.WithLogger(testutil.DiscardLogger()))
	svc := noteservice.NewService(store, engine, titles, plugin.NewRegistry())
	return New(svc, "test"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"format_blocks": srv.formatBlocks,
		"rewrite_text":  srv.rewriteText,
		"resolve_title": srv.resolveTitle,
		"read_block":    srv.readBlock,
		"list_pages":    srv.listPages,
		"search_blocks": srv.searchBlocks,
		"get_formats":   srv.getFormats,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestFormatBlocks(t *testing.T) {
	srv, store := testServer(t)
	ctx := context.Background()
	_, _ = store.CreatePage(ctx, "p", "")
	b, _ := store.AppendBlock(ctx, "p", "read https://go.dev")

	r := callTool(t, srv, "format_blocks", map[string]any{"uuids": b.UUID})
	if !r.IsError {
		t.Fatalf("expected error without a preferred format, got %q", resultText(r))
	}

	_ = store.SetPreferredFormat(ctx, "markdown")
	r = callTool(t, srv, "format_blocks", map[string]any{"uuids": b.UUID})
	if r.IsError {
		t.Fatalf("format_blocks: %s", resultText(r))
	}
	if want := b.UUID + ": 1 rewritten"; !strings.HasPrefix(resultText(r), want) {
		t.Errorf("result = %q, want prefix %q", resultText(r), want)
	}
	got, _ := store.GetBlock(ctx, b.UUID)
	if got.Content != "read [The Go Programming Language](https://go.dev)" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestFormatBlocks_UsesSelection(t *testing.T) {
	srv, store := testServer(t)
	ctx := context.Background()
	_, _ = store.CreatePage(ctx, "p", "")
	b, _ := store.AppendBlock(ctx, "p", "http://a.co")
	_ = store.SetPreferredFormat(ctx, "org")

	r := callTool(t, srv, "format_blocks", map[string]any{})
	if !r.IsError {
		t.Error("expected error with empty selection")
	}

	_ = store.SetSelection(ctx, []string{b.UUID})
	r = callTool(t, srv, "format_blocks", map[string]any{})
	if r.IsError {
		t.Fatalf("format_blocks: %s", resultText(r))
	}
	got, _ := store.GetBlock(ctx, b.UUID)
	if got.Content != "[[http://a.co][A]]" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestRewriteText(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "rewrite_text", map[string]any{
		"text":   "see http://a.co and `http://a.co`",
		"syntax": "markdown",
	})
	if got := resultText(r); got != "see [A](http://a.co) and `http://a.co`" {
		t.Errorf("rewrite = %q", got)
	}

	r = callTool(t, srv, "rewrite_text", map[string]any{"text": "http://a.co", "syntax": "rst"})
	if !r.IsError {
		t.Error("expected error for unsupported syntax")
	}
}

func TestResolveTitle(t *testing.T) {
	srv, _ := testServer(t)
	if got := resultText(callTool(t, srv, "resolve_title", map[string]any{"url": "http://a.co"})); got != "A" {
		t.Errorf("title = %q", got)
	}
	if r := callTool(t, srv, "resolve_title", map[string]any{"url": "http://unknown.example"}); !r.IsError {
		t.Error("expected error for unresolvable url")
	}
}

func TestReadBlockAndListPages(t *testing.T) {
	srv, store := testServer(t)
	ctx := context.Background()
	_, _ = store.CreatePage(ctx, "a", "")
	_, _ = store.CreatePage(ctx, "b", "")
	blk, _ := store.AppendBlock(ctx, "a", "hello")

	if got := resultText(callTool(t, srv, "list_pages", map[string]any{})); got != "a\nb" {
		t.Errorf("pages = %q", got)
	}
	if got := resultText(callTool(t, srv, "read_block", map[string]any{"uuid": blk.UUID})); !strings.Contains(got, `"content": "hello"`) {
		t.Errorf("block = %q", got)
	}
	if r := callTool(t, srv, "read_block", map[string]any{"uuid": "missing"}); !r.IsError {
		t.Error("expected error for missing block")
	}
}

func TestGetFormats(t *testing.T) {
	srv, _ := testServer(t)
	got := resultText(callTool(t, srv, "get_formats", nil))
	for _, want := range []string{"[Title](https://example.com)", "[[https://example.com][Title]]"} {
		if !strings.Contains(got, want) {
			t.Errorf("formats guide missing %q", want)
		}
	}
}

func TestSplitIDs(t *testing.T) {
	got := splitIDs("a, b\nc  ,d")
	if strings.Join(got, "|") != "a|b|c|d" {
		t.Errorf("splitIDs = %v", got)
	}
}

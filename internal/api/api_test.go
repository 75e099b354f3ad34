package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/linktitle/internal/blockstore"
	"github.com/starford/linktitle/internal/linkfmt"
	"github.com/starford/linktitle/internal/models"
	"github.com/starford/linktitle/internal/noteservice"
	"github.com/starford/linktitle/internal/plugin"
	"github.com/starford/linktitle/internal/testutil"
)

type mapTitles map[string]string

func (m mapTitles) Resolve(_ context.Context, url string) string { return m[url] }

var testTitles = mapTitles{
	"http://a.co":          "A",
	"http://bcdefg.com":    "B",
	"https://youtu.be/abc": "Clip",
}

// testEnv wires a temp block store, engine and command registry behind the
// router. An empty authToken disables auth.
func testEnv(t *testing.T, authToken string) (*blockstore.Store, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken, nil)
}

func testEnvWithSSE(t *testing.T, authToken string, sse http.Handler) (*blockstore.Store, http.Handler) {
	t.Helper()
	store := testutil.TestStore(t)
	engine := linkfmt.NewEngine(store, testTitles, linkfmt.WithLogger(testutil.DiscardLogger()))
	reg := plugin.NewRegistry()
	if err := plugin.New(engine, store, reg).Register(); err != nil {
		t.Fatal(err)
	}
	svc := noteservice.NewService(store, engine, testTitles, reg)
	return store, NewRouter(svc, authToken != "", authToken, sse)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestPagesAndBlocks(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/pages", CreatePageRequest{Name: "projects/go", Title: "Go"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	if w = do(t, router, http.MethodPost, "/pages", CreatePageRequest{Name: "projects/go"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/pages/projects/go", BlockContentRequest{Content: "parent"})
	if w.Code != http.StatusCreated {
		t.Fatalf("append status = %d, body = %s", w.Code, w.Body.String())
	}
	parent := decode[models.Block](t, w)

	w = do(t, router, http.MethodPost, "/blocks/"+parent.UUID+"/children", InsertBlockRequest{Content: "child"})
	if w.Code != http.StatusCreated {
		t.Fatalf("insert status = %d", w.Code)
	}
	child := decode[models.Block](t, w)
	if child.Parent != parent.UUID || child.Left != parent.UUID {
		t.Errorf("child = %+v", child)
	}

	w = do(t, router, http.MethodPut, "/blocks/"+child.UUID, BlockContentRequest{Content: "edited"})
	if w.Code != http.StatusOK || decode[models.Block](t, w).Content != "edited" {
		t.Errorf("update = %d %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/pages/projects%2Fgo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get page status = %d", w.Code)
	}
	page := decode[noteservice.PageDetail](t, w)
	if page.Title != "Go" || len(page.Blocks) != 1 || len(page.Blocks[0].Children) != 1 {
		t.Errorf("page = %+v", page)
	}

	if w = do(t, router, http.MethodDelete, "/blocks/"+parent.UUID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete block = %d", w.Code)
	}
	if w = do(t, router, http.MethodGet, "/blocks/"+child.UUID, nil); w.Code != http.StatusNotFound {
		t.Errorf("deleted child still readable: %d", w.Code)
	}

	if w = do(t, router, http.MethodDelete, "/pages/projects/go", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete page = %d", w.Code)
	}
	if w = do(t, router, http.MethodGet, "/pages/projects/go", nil); w.Code != http.StatusNotFound {
		t.Errorf("deleted page = %d", w.Code)
	}
}

func TestCreatePage_Validation(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/pages", CreatePageRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty name = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/pages", CreatePageRequest{Name: "../escape"}); w.Code != http.StatusBadRequest {
		t.Errorf("traversal name = %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/pages", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d", w.Code)
	}
}

func TestPreferredFormat(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/preferences/format", nil)
	if got := decode[FormatResponse](t, w); got.Format != "" || len(got.Supported) != 2 {
		t.Errorf("unset format = %+v", got)
	}
	if w = do(t, router, http.MethodPut, "/preferences/format", FormatRequest{Format: "asciidoc"}); w.Code != http.StatusBadRequest {
		t.Errorf("unsupported format = %d", w.Code)
	}
	w = do(t, router, http.MethodPut, "/preferences/format", FormatRequest{Format: "Org"})
	if w.Code != http.StatusOK || decode[FormatResponse](t, w).Format != "org" {
		t.Errorf("set format = %d %s", w.Code, w.Body.String())
	}
}

func TestFormatCommand(t *testing.T) {
	store, router := testEnv(t, "")
	ctx := context.Background()
	_, _ = store.CreatePage(ctx, "p", "")
	b, _ := store.AppendBlock(ctx, "p", "see http://a.co and http://bcdefg.com")

	// No preferred format yet: nothing is touched.
	w := do(t, router, http.MethodPost, "/commands/"+plugin.FormatCommandKey, RunCommandRequest{UUIDs: []string{b.UUID}})
	if w.Code != http.StatusConflict {
		t.Fatalf("no-format status = %d, body = %s", w.Code, w.Body.String())
	}

	_ = store.SetPreferredFormat(ctx, linkfmt.FormatMarkdown)
	_ = store.SetSelection(ctx, []string{b.UUID})

	w = do(t, router, http.MethodPost, "/commands/"+plugin.FormatCommandKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[FormatRunResponse](t, w)
	if len(resp.Results) != 1 || !resp.Results[0].Written || resp.Results[0].Stats.Rewritten != 2 {
		t.Errorf("results = %+v", resp.Results)
	}
	got, _ := store.GetBlock(ctx, b.UUID)
	if got.Content != "see [A](http://a.co) and [B](http://bcdefg.com)" {
		t.Errorf("content = %q", got.Content)
	}

	if w = do(t, router, http.MethodPost, "/commands/unknown", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown command = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/commands", nil)
	cmds := decode[CommandsResponse](t, w)
	if len(cmds.Commands) != 1 || cmds.Commands[0].Label != plugin.FormatCommandLabel {
		t.Errorf("commands = %+v", cmds)
	}
}

func TestFormatCommand_MissingBlockReported(t *testing.T) {
	store, router := testEnv(t, "")
	_ = store.SetPreferredFormat(context.Background(), "markdown")

	w := do(t, router, http.MethodPost, "/commands/"+plugin.FormatCommandKey, RunCommandRequest{UUIDs: []string{"gone"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[FormatRunResponse](t, w)
	if len(resp.Results) != 1 || resp.Results[0].Error == "" || resp.Results[0].Written {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestRewriteAndTitles(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/rewrite", RewriteRequest{Text: "{{video https://youtu.be/abc}} http://a.co", Syntax: "org"})
	if w.Code != http.StatusOK {
		t.Fatalf("rewrite status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[RewriteResponse](t, w)
	if got.Text != "{{video https://youtu.be/abc}} [[http://a.co][A]]" {
		t.Errorf("text = %q", got.Text)
	}
	if len(got.Children) != 1 || got.Children[0] != "[[https://youtu.be/abc][Clip]]" {
		t.Errorf("children = %v", got.Children)
	}

	if w = do(t, router, http.MethodPost, "/rewrite", RewriteRequest{Text: "http://a.co"}); w.Code != http.StatusConflict {
		t.Errorf("rewrite without format = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/titles", TitleRequest{URL: "http://a.co"})
	if decode[TitleResponse](t, w).Title != "A" {
		t.Errorf("title = %s", w.Body.String())
	}
	if w = do(t, router, http.MethodPost, "/titles", TitleRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty url = %d", w.Code)
	}
}

func TestSelection(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPut, "/selection", SelectionRequest{UUIDs: []string{"a", "b"}})
	if got := decode[SelectionResponse](t, w); len(got.UUIDs) != 2 {
		t.Errorf("selection = %+v", got)
	}
	w = do(t, router, http.MethodPut, "/selection", SelectionRequest{})
	if got := decode[SelectionResponse](t, w); got.UUIDs == nil || len(got.UUIDs) != 0 {
		t.Errorf("cleared selection = %s", w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	store, router := testEnv(t, "")
	ctx := context.Background()
	_, _ = store.CreatePage(ctx, "p", "")
	_, _ = store.AppendBlock(ctx, "p", "golang weekly")

	w := do(t, router, http.MethodGet, "/search?q=golang", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	if got := decode[SearchResponse](t, w); len(got.Results) != 1 {
		t.Errorf("results = %+v", got)
	}
	if w = do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing query = %d", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	if w := do(t, router, http.MethodGet, "/pages", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/pages", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	sse := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		<-r.Context().Done()
	})
	_, router := testEnvWithSSE(t, "tok", sse)

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d", w.Code)
	}
}

func TestSSEEvents_QueryToken(t *testing.T) {
	sse := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	_, router := testEnvWithSSE(t, "tok", sse)

	if w := do(t, router, http.MethodGet, "/events?token=tok", nil); w.Code != http.StatusOK {
		t.Errorf("SSE with query token = %d, want 200", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/events?token=nope", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE with wrong query token = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/pages?token=tok", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("query token outside /events = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/pages", nil); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestDecodeBody_TooLarge(t *testing.T) {
	_, router := testEnv(t, "")
	big := bytes.Repeat([]byte("a"), maxBodyBytes+10)
	body, _ := json.Marshal(RewriteRequest{Text: string(big), Syntax: "markdown"})
	req := httptest.NewRequest(http.MethodPost, "/rewrite", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

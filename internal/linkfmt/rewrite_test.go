package linkfmt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(m map[string]string) ResolveFunc {
	return func(_ context.Context, url string) string { return m[url] }
}

func TestRewrite_KeepsOffsetsAcrossSplices(t *testing.T) {
	resolve := titles(map[string]string{
		"http://a.co":       "A",
		"http://bcdefg.com": "B",
	})
	out := Rewrite(context.Background(), "see http://a.co and http://bcdefg.com", Markdown, resolve, nil)

	assert.Equal(t, "see [A](http://a.co) and [B](http://bcdefg.com)", out.Text)
	assert.Equal(t, Stats{Matched: 2, Rewritten: 2}, out.Stats)
}

func TestRewrite_OrgSplices(t *testing.T) {
	long := "http://example.com/a/very/long/path/that/is/longer/than/the/title"
	resolve := titles(map[string]string{long: "x", "http://b.io": "Bee"})
	out := Rewrite(context.Background(), long+" "+"http://b.io", Org, resolve, nil)
	assert.Equal(t, "[["+long+"][x]] [[http://b.io][Bee]]", out.Text)
}

func TestRewrite_Idempotent(t *testing.T) {
	resolve := titles(map[string]string{
		"http://a.co":         "A",
		"https://example.com": "Example",
	})
	for _, spec := range []FormatSpec{Markdown, Org} {
		t.Run(spec.Name, func(t *testing.T) {
			first := Rewrite(context.Background(), "http://a.co then https://example.com", spec, resolve, nil)
			second := Rewrite(context.Background(), first.Text, spec, resolve, nil)
			assert.Equal(t, first.Text, second.Text)
			assert.Zero(t, second.Stats.Rewritten)
		})
	}
}

func TestRewrite_UnresolvedLeftAlone(t *testing.T) {
	resolve := titles(map[string]string{"http://b.co": "B"})
	out := Rewrite(context.Background(), "http://a.co http://b.co", Markdown, resolve, nil)
	assert.Equal(t, "http://a.co [B](http://b.co)", out.Text)
	assert.Equal(t, 1, out.Stats.Unresolved)
	assert.Equal(t, 1, out.Stats.Rewritten)
}

func TestRewrite_SkipsAndChildren(t *testing.T) {
	resolve := titles(map[string]string{
		"https://youtu.be/abc": "Clip",
		"http://a.co":          "A",
	})
	text := "`http://code.com` {{video https://youtu.be/abc}} http://pic.com/x.png http://a.co"

	var seen []Decision
	out := Rewrite(context.Background(), text, Markdown, resolve, func(d Decision) { seen = append(seen, d) })

	assert.Equal(t, "`http://code.com` {{video https://youtu.be/abc}} http://pic.com/x.png [A](http://a.co)", out.Text)
	require.Len(t, out.Children, 1)
	assert.Equal(t, ChildLink{URL: "https://youtu.be/abc", Content: "[Clip](https://youtu.be/abc)"}, out.Children[0])
	assert.Equal(t, []Decision{Skip, RewriteAsChild, Skip, RewriteInline}, seen)
	assert.Equal(t, Stats{Matched: 4, Rewritten: 1, Skipped: 2, Children: 1}, out.Stats)
}

func TestRewrite_NoURLs(t *testing.T) {
	called := false
	out := Rewrite(context.Background(), "just words", Markdown, func(context.Context, string) string {
		called = true
		return "x"
	}, nil)
	assert.Equal(t, "just words", out.Text)
	assert.Zero(t, out.Stats.Matched)
	assert.False(t, called)
}

func TestRewrite_ExcludedTextUnchanged(t *testing.T) {
	always := func(context.Context, string) string { return "T" }
	cases := map[string]string{
		"images only":        "http://a.co/x.png and https://b.io/y.JPEG?w=2",
		"single tick":        "run `curl http://a.co` now",
		"triple ticks":       "```\nhttp://a.co\n```",
		"embed command":      "{{embed http://a.co/page}}",
		"embed across lines": "{{embed\nhttp://a.co/x}}",
		"tweet command":      "{{ tweet https://b.io/status/1 }}",
		"formatted md":       "[T](http://a.co)",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			out := Rewrite(context.Background(), text, Markdown, always, nil)
			assert.Equal(t, text, out.Text)
			assert.Zero(t, out.Stats.Rewritten)
		})
	}
}

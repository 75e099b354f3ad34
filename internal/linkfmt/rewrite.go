package linkfmt

import "context"

// ResolveFunc turns a URL into a display title. An empty title means the
// URL stays as it is.
type ResolveFunc func(ctx context.Context, url string) string

// ChildLink is a rendered link destined for a child block.
type ChildLink struct {
	URL     string
	Content string
}

// Stats counts what happened to the URLs of one text.
type Stats struct {
	Matched    int `json:"matched"`
	Rewritten  int `json:"rewritten"`
	Skipped    int `json:"skipped"`
	Unresolved int `json:"unresolved"`
	Children   int `json:"children"`
}

// Outcome is the result of rewriting one text.
type Outcome struct {
	Text     string
	Children []ChildLink
	Stats    Stats
}

// Observer is notified of every classification. It may be nil.
type Observer func(d Decision)

// Rewrite finds every URL in text, classifies it and replaces the eligible
// ones with spec.Render(title, url).
//
// Matches are taken once from the original text. Each splice lands at
// m.Start+delta, where delta is the total length change of the splices
// before it, so later matches keep pointing at the same URL.
func Rewrite(ctx context.Context, text string, spec FormatSpec, resolve ResolveFunc, observe Observer) Outcome {
	matches := FindURLs(text)
	out := Outcome{Text: text, Stats: Stats{Matched: len(matches)}}
	if len(matches) == 0 {
		return out
	}

	classifier := NewClassifier(text, spec)
	current := text
	delta := 0

	for _, found := range matches {
		decision, m := classifier.Classify(found)
		if observe != nil {
			observe(decision)
		}

		switch decision {
		case Skip:
			out.Stats.Skipped++

		case RewriteAsChild:
			title := resolve(ctx, m.URL)
			if title == "" {
				out.Stats.Unresolved++
				continue
			}
			out.Children = append(out.Children, ChildLink{URL: m.URL, Content: spec.Render(title, m.URL)})
			out.Stats.Children++

		case RewriteInline:
			title := resolve(ctx, m.URL)
			if title == "" {
				out.Stats.Unresolved++
				continue
			}
			link := spec.Render(title, m.URL)
			at := m.Start + delta
			current = current[:at] + link + current[at+len(m.URL):]
			delta += len(link) - len(m.URL)
			out.Stats.Rewritten++
		}
	}

	out.Text = current
	return out
}

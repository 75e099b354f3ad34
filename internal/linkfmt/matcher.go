// Package linkfmt finds bare URLs in block text and rewrites them into
// formatted links titled after the page they point to.
package linkfmt

import "regexp"

// urlRe accepts scheme-prefixed or bare www. URLs. The trailing run excludes
// whitespace (Unicode spaces included) and ')' so a URL never swallows the
// closing paren of the markup around it.
var urlRe = regexp.MustCompile(`(?i)` +
	`https?://(?:www\.)?[a-z0-9][a-z0-9-]+[a-z0-9]\.[^)\s\p{Z}]{2,}` +
	`|www\.[a-z0-9][a-z0-9-]+[a-z0-9]\.[^)\s\p{Z}]{2,}` +
	`|https?://(?:www\.)?[a-z0-9]+\.[^)\s\p{Z}]{2,}` +
	`|www\.[a-z0-9]+\.[^)\s\p{Z}]{2,}`)

// Match is a located URL. Start and End are byte offsets into the text the
// match was taken from; End == Start+len(URL).
type Match struct {
	URL   string
	Start int
	End   int
}

// FindURLs returns every URL in text, ordered by Start and non-overlapping.
func FindURLs(text string) []Match {
	locs := urlRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		out = append(out, Match{URL: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
	}
	return out
}

// trimmed returns m with suffix removed from its URL, if present.
func (m Match) trimmed(suffix string) Match {
	if n := len(suffix); len(m.URL) > n && m.URL[len(m.URL)-n:] == suffix {
		m.URL = m.URL[:len(m.URL)-n]
		m.End -= n
	}
	return m
}

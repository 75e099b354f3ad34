package title

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// titlePatterns are tried in order against the fetched document.
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<meta\s+(?:property|name)\s*=\s*"(?:og|twitter):title"\s+content\s*=\s*"([^"]*)"`),
	regexp.MustCompile(`(?i)<meta\s+content\s*=\s*"([^"]*)"\s+(?:property|name)\s*=\s*"(?:og|twitter):title"`),
	regexp.MustCompile(`(?i)<title\s?[^>]*>([^<]*)</title>`),
}

// PageProvider fetches any URL as HTML and extracts its title.
type PageProvider struct {
	fetcher *Fetcher
}

// NewPageProvider creates the generic page provider.
func NewPageProvider(f *Fetcher) *PageProvider {
	return &PageProvider{fetcher: f}
}

func (p *PageProvider) Name() string { return "page" }

// Match accepts every URL.
func (p *PageProvider) Match(string) bool { return true }

// Title fetches rawURL and returns ExtractTitle of the body.
func (p *PageProvider) Title(ctx context.Context, rawURL string) (string, error) {
	body, err := p.fetcher.Get(ctx, rawURL, "text/html,application/xhtml+xml")
	if err != nil {
		return "", err
	}
	return ExtractTitle(string(body)), nil
}

// ExtractTitle returns the first non-empty title found in document, with
// HTML entities decoded and surrounding whitespace trimmed.
func ExtractTitle(document string) string {
	for _, re := range titlePatterns {
		for _, m := range re.FindAllStringSubmatch(document, -1) {
			if t := cleanTitle(m[1]); t != "" {
				return t
			}
		}
	}
	return ""
}

func cleanTitle(raw string) string {
	t := html.UnescapeString(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(t), " ")
}

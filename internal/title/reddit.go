package title

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// DefaultRedditAPI is the base of the listing API.
	DefaultRedditAPI = "https://www.reddit.com"
	// DefaultRedditSeparator joins the subreddit label and the post title.
	DefaultRedditSeparator = " — "
)

var redditThreadRe = regexp.MustCompile(`(?i)reddit\.com/r/[^/]+/comments/([^/?#]+)`)

// RedditProvider resolves comment-thread URLs through reddit's info API,
// which works where the HTML page is served behind a consent wall.
type RedditProvider struct {
	fetcher   *Fetcher
	apiBase   string
	separator string
}

// NewRedditProvider creates the provider. Empty apiBase and separator select
// the defaults.
func NewRedditProvider(f *Fetcher, apiBase, separator string) *RedditProvider {
	if apiBase == "" {
		apiBase = DefaultRedditAPI
	}
	if separator == "" {
		separator = DefaultRedditSeparator
	}
	return &RedditProvider{fetcher: f, apiBase: strings.TrimRight(apiBase, "/"), separator: separator}
}

func (p *RedditProvider) Name() string { return "reddit" }

// Match accepts reddit comment-thread URLs.
func (p *RedditProvider) Match(rawURL string) bool {
	return redditThreadRe.MatchString(rawURL)
}

// ThreadID extracts the post id from a comment-thread URL.
func ThreadID(rawURL string) (string, bool) {
	m := redditThreadRe.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title                 string `json:"title"`
				SubredditNamePrefixed string `json:"subreddit_name_prefixed"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Title queries /api/info.json for the thread's post and returns
// "r/sub<separator>title", or just the title when the label is missing.
func (p *RedditProvider) Title(ctx context.Context, rawURL string) (string, error) {
	id, ok := ThreadID(rawURL)
	if !ok {
		return "", nil
	}
	api := p.apiBase + "/api/info.json?id=" + url.QueryEscape("t3_"+id)

	body, err := p.fetcher.Get(ctx, api, "application/json")
	if err != nil {
		return "", err
	}
	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return "", fmt.Errorf("reddit: decode listing: %w", err)
	}
	if len(listing.Data.Children) == 0 {
		return "", nil
	}
	post := listing.Data.Children[0].Data
	t := strings.TrimSpace(post.Title)
	if t == "" {
		return "", nil
	}
	if post.SubredditNamePrefixed != "" {
		return post.SubredditNamePrefixed + p.separator + t, nil
	}
	return t, nil
}

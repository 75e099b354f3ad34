package title

import (
	"net/http"
	"time"
)

// Config selects the built-in providers and their HTTP settings.
type Config struct {
	UserAgent       string
	MaxBodyBytes    int64
	Timeout         time.Duration // zero means no timeout
	RedditEnabled   bool
	RedditAPIBase   string
	RedditSeparator string
}

// DefaultProviders builds the standard provider chain: site-specific
// providers first, the generic page provider last.
func DefaultProviders(cfg Config, client *http.Client) []Provider {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	f := NewFetcher(client, cfg.UserAgent, cfg.MaxBodyBytes)
	var providers []Provider
	if cfg.RedditEnabled {
		providers = append(providers, NewRedditProvider(f, cfg.RedditAPIBase, cfg.RedditSeparator))
	}
	return append(providers, NewPageProvider(f))
}

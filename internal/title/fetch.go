package title

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultUserAgent is sent when none is configured.
const DefaultUserAgent = "Mozilla/5.0 (compatible; linktitle/1.0)"

// DefaultMaxBodyBytes caps how much of a response is read.
const DefaultMaxBodyBytes = 2 << 20

// FetchError describes a failed GET.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher performs plain GET requests.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// NewFetcher wraps client (http.DefaultClient when nil). Zero values for
// userAgent and maxBody select the defaults.
func NewFetcher(client *http.Client, userAgent string, maxBody int64) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Fetcher{client: client, userAgent: userAgent, maxBody: maxBody}
}

// Get fetches rawURL and returns at most maxBody bytes of the body. Any
// non-2xx status is an error.
func (f *Fetcher) Get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	target := FetchURL(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: target, Message: "build request", Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Message: "read body", Err: err}
	}
	return body, nil
}

// FetchURL adds an http:// scheme to bare www. URLs.
func FetchURL(rawURL string) string {
	lower := strings.ToLower(rawURL)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return rawURL
	}
	return "http://" + rawURL
}

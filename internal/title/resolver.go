// Package title turns URLs into human-readable page titles.
package title

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/linktitle/internal/metrics"
)

// Provider is one title strategy. Providers are tried in order; the first
// one that matches the URL and returns a non-empty title wins.
type Provider interface {
	Name() string
	Match(rawURL string) bool
	Title(ctx context.Context, rawURL string) (string, error)
}

// Resolver walks an ordered list of providers.
type Resolver struct {
	providers []Provider
	logger    *slog.Logger
	recorder  metrics.Recorder
	timeout   time.Duration
	group     singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithTimeout bounds one shared resolution. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver creates a resolver over providers, in priority order.
func NewResolver(providers []Provider, opts ...Option) *Resolver {
	r := &Resolver{
		providers: providers,
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Providers returns the provider names in resolution order.
func (r *Resolver) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Resolve returns the title for rawURL, or "" when no provider finds one.
// Provider errors are logged and never surface. Concurrent calls for the
// same URL share one resolution. The shared call outlives any single
// caller, so a cancelled caller gets "" without failing the others.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	ch := r.group.DoChan(rawURL, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		if r.timeout > 0 {
			var cancel context.CancelFunc
			shared, cancel = context.WithTimeout(shared, r.timeout)
			defer cancel()
		}
		return r.resolve(shared, rawURL), nil
	})
	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		return ""
	}
}

func (r *Resolver) resolve(ctx context.Context, rawURL string) string {
	for _, p := range r.providers {
		if !p.Match(rawURL) {
			continue
		}
		start := time.Now()
		t, err := p.Title(ctx, rawURL)
		elapsed := time.Since(start)
		if err != nil {
			r.recorder.ObserveResolve(p.Name(), elapsed, metrics.ResolveError)
			r.logger.Warn("title: provider failed",
				slog.String("provider", p.Name()),
				slog.String("url", rawURL),
				slog.String("error", err.Error()))
			continue
		}
		if t == "" {
			r.recorder.ObserveResolve(p.Name(), elapsed, metrics.ResolveEmpty)
			continue
		}
		r.recorder.ObserveResolve(p.Name(), elapsed, metrics.ResolveHit)
		return t
	}
	return ""
}

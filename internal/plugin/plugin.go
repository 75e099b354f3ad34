package plugin

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/starford/linktitle/internal/apperr"
	"github.com/starford/linktitle/internal/linkfmt"
	"github.com/starford/linktitle/internal/models"
)

// Command palette entry.
const (
	FormatCommandKey   = "format-url-titles"
	FormatCommandLabel = "Format url titles"
)

// Runner formats blocks by uuid.
type Runner interface {
	Run(ctx context.Context, uuids ...string) ([]linkfmt.Result, error)
}

// SelectionSource reports the blocks the user currently has selected.
type SelectionSource interface {
	Selection(ctx context.Context) ([]string, error)
}

// Feed is the change feed the listener subscribes to.
type Feed interface {
	Subscribe() chan models.TxEvent
	Unsubscribe(ch chan models.TxEvent)
}

// Plugin binds a Runner to the command registry and the change feed.
type Plugin struct {
	runner    Runner
	selection SelectionSource
	registry  *Registry
	logger    *slog.Logger

	wg sync.WaitGroup
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger sets the plugin logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a plugin. registry may be shared with other components.
func New(runner Runner, selection SelectionSource, registry *Registry, opts ...Option) *Plugin {
	p := &Plugin{
		runner:    runner,
		selection: selection,
		registry:  registry,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start registers the format command and then listens on feed until ctx
// is cancelled or the feed closes. A failed registration is logged and the
// listener still runs. In-flight rewrites are drained before Start returns.
func (p *Plugin) Start(ctx context.Context, feed Feed) error {
	if err := p.Register(); err != nil {
		p.logger.Error("plugin: register command failed", slog.String("error", err.Error()))
	}

	ch := feed.Subscribe()
	defer func() {
		feed.Unsubscribe(ch)
		p.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			p.HandleEvent(ctx, ev)
		}
	}
}

// Register adds the format command to the registry.
func (p *Plugin) Register() error {
	return p.registry.Register(Command{
		Key:     FormatCommandKey,
		Label:   FormatCommandLabel,
		Handler: p.FormatSelection,
	})
}

// FormatSelection formats uuids, or the current selection when uuids is
// empty.
func (p *Plugin) FormatSelection(ctx context.Context, uuids []string) (any, error) {
	if len(uuids) == 0 {
		sel, err := p.selection.Selection(ctx)
		if err != nil {
			return nil, err
		}
		uuids = sel
	}
	results, err := p.runner.Run(ctx, uuids...)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// HandleEvent dispatches a rewrite of the left neighbour of every freshly
// created empty block in an insertBlocks transaction. Page entities are
// ignored. Each rewrite runs in its own goroutine.
func (p *Plugin) HandleEvent(ctx context.Context, ev models.TxEvent) {
	if ev.Op != models.OpInsertBlocks {
		return
	}
	for _, ent := range ev.Blocks {
		if ent.Name != "" || ent.Content != "" || ent.Left == "" {
			continue
		}
		left := ent.Left
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runOne(ctx, left)
		}()
	}
}

func (p *Plugin) runOne(ctx context.Context, id string) {
	results, err := p.runner.Run(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNoFormat) {
			p.logger.Debug("plugin: no preferred format, skipping", slog.String("block", id))
			return
		}
		p.logger.Warn("plugin: format failed", slog.String("block", id), slog.String("error", err.Error()))
		return
	}
	for _, r := range results {
		if r.Written {
			p.logger.Info("plugin: block formatted",
				slog.String("block", r.UUID),
				slog.Int("rewritten", r.Stats.Rewritten),
				slog.Int("children", r.Stats.Children))
		}
	}
}

// Wait blocks until every dispatched rewrite has finished.
func (p *Plugin) Wait() {
	p.wg.Wait()
}

package linkfmt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/linktitle/internal/apperr"
	"github.com/starford/linktitle/internal/metrics"
	"github.com/starford/linktitle/internal/models"
)

// Host is the note store the engine reads from and writes to.
type Host interface {
	PreferredFormat(ctx context.Context) (string, error)
	GetBlock(ctx context.Context, uuid string) (*models.Block, error)
	UpdateBlock(ctx context.Context, uuid, content string) error
	InsertBlock(ctx context.Context, target, content string, opts models.InsertOptions) (*models.Block, error)
}

// TitleResolver produces a display title for a URL, or "" when none is found.
type TitleResolver interface {
	Resolve(ctx context.Context, rawURL string) string
}

// Result reports what a run did to one block.
type Result struct {
	UUID    string `json:"uuid"`
	Stats   Stats  `json:"stats"`
	Written bool   `json:"written"`
	Err     error  `json:"-"`
}

// ErrorText returns the error message, or "" on success.
func (r Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// childInsertOptions appends the child after existing children and focuses it.
var childInsertOptions = models.InsertOptions{Before: false, Sibling: false, Focus: true}

// Engine drives the matcher, classifier and resolver over host blocks.
type Engine struct {
	host     Host
	titles   TitleResolver
	logger   *slog.Logger
	recorder metrics.Recorder
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewEngine creates an engine bound to host and titles.
func NewEngine(host Host, titles TitleResolver, opts ...EngineOption) *Engine {
	e := &Engine{
		host:     host,
		titles:   titles,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Spec reads the host's preferred format. It returns apperr.ErrNoFormat when
// the preference is unset or names an unsupported syntax.
func (e *Engine) Spec(ctx context.Context) (FormatSpec, error) {
	name, err := e.host.PreferredFormat(ctx)
	if err != nil {
		return FormatSpec{}, fmt.Errorf("engine: read preferred format: %w", err)
	}
	spec, ok := LookupFormat(name)
	if !ok {
		return FormatSpec{}, fmt.Errorf("engine: format %q: %w", name, apperr.ErrNoFormat)
	}
	return spec, nil
}

// Run rewrites each block in uuids. The preferred format is read once; when
// it is missing nothing is scanned and the error wraps apperr.ErrNoFormat.
// Blocks are processed concurrently and independently: a failed block is
// reported in its Result and does not affect the others.
func (e *Engine) Run(ctx context.Context, uuids ...string) ([]Result, error) {
	spec, err := e.Spec(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(uuids))
	var g errgroup.Group
	for i, id := range uuids {
		g.Go(func() error {
			results[i] = e.FormatBlock(ctx, spec, id)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// FormatBlock rewrites a single block with spec. A missing block aborts
// with no write. Otherwise the final text is always written back, even when
// no URL changed.
func (e *Engine) FormatBlock(ctx context.Context, spec FormatSpec, uuid string) Result {
	res := Result{UUID: uuid}
	if uuid == "" {
		return res
	}
	log := e.logger.With(slog.String("block", uuid), slog.String("format", spec.Name))

	block, err := e.host.GetBlock(ctx, uuid)
	if err != nil {
		res.Err = err
		e.recordFailure(log, "engine: read block failed", err)
		return res
	}

	out := Rewrite(ctx, block.Content, spec, e.titles.Resolve, func(d Decision) {
		e.recorder.IncDecision(d.String())
	})
	res.Stats = out.Stats
	if out.Stats.Matched == 0 {
		e.recorder.IncBlockRun(metrics.BlockNoURLs)
		return res
	}

	inserted := 0
	for _, child := range out.Children {
		added, err := e.insertChild(ctx, uuid, child)
		if err != nil {
			res.Err = err
			e.recordFailure(log, "engine: insert child failed", err)
			return res
		}
		if added {
			inserted++
		}
	}
	res.Stats.Children = inserted

	if err := e.host.UpdateBlock(ctx, uuid, out.Text); err != nil {
		res.Err = err
		e.recordFailure(log, "engine: update block failed", err)
		return res
	}
	res.Written = true
	e.recorder.IncBlockRun(metrics.BlockWritten)
	log.Debug("engine: block formatted",
		slog.Int("matched", out.Stats.Matched),
		slog.Int("rewritten", out.Stats.Rewritten),
		slog.Int("skipped", out.Stats.Skipped),
		slog.Int("unresolved", out.Stats.Unresolved),
		slog.Int("children", inserted))
	return res
}

// insertChild adds link under parent unless the parent's first child
// already mentions the URL. Only the first child is inspected.
func (e *Engine) insertChild(ctx context.Context, parent string, link ChildLink) (bool, error) {
	block, err := e.host.GetBlock(ctx, parent)
	if err != nil {
		return false, err
	}
	if first, ok := block.FirstChild(); ok && strings.Contains(first.Content, link.URL) {
		e.recorder.IncChildInsert(true)
		return false, nil
	}
	if _, err := e.host.InsertBlock(ctx, parent, link.Content, childInsertOptions); err != nil {
		return false, err
	}
	e.recorder.IncChildInsert(false)
	return true, nil
}

func (e *Engine) recordFailure(log *slog.Logger, msg string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		e.recorder.IncBlockRun(metrics.BlockMissing)
		log.Debug(msg, slog.String("error", err.Error()))
		return
	}
	e.recorder.IncBlockRun(metrics.BlockFailed)
	log.Warn(msg, slog.String("error", err.Error()))
}

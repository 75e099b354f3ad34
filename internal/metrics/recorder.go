// Package metrics records title-resolution and rewrite counters.
//
// Components take a Recorder and default to NoopRecorder, so metrics stay
// optional. NewPrometheusRecorder is wired in by the server.
package metrics

import "time"

// Resolution outcomes.
const (
	ResolveHit   = "hit"
	ResolveEmpty = "empty"
	ResolveError = "error"
)

// Block run outcomes.
const (
	BlockWritten = "written"
	BlockNoURLs  = "no_urls"
	BlockMissing = "missing"
	BlockFailed  = "failed"
)

// Recorder defines the observability hooks used by the engine and the
// title resolver.
type Recorder interface {
	ObserveResolve(provider string, d time.Duration, outcome string)
	IncDecision(decision string)
	IncBlockRun(outcome string)
	IncChildInsert(skipped bool)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveResolve(string, time.Duration, string) {}
func (NoopRecorder) IncDecision(string)                           {}
func (NoopRecorder) IncBlockRun(string)                           {}
func (NoopRecorder) IncChildInsert(bool)                          {}

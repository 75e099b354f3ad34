package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linktitle"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	resolveDuration *prom.HistogramVec
	resolveResults  *prom.CounterVec
	decisions       *prom.CounterVec
	blockRuns       *prom.CounterVec
	childInserts    *prom.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		resolveDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "title_resolve_duration_seconds",
			Help:      "Time spent resolving a URL title, per provider",
			Buckets:   prom.DefBuckets,
		}, []string{"provider"}),
		resolveResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "title_resolve_total",
			Help:      "Title resolutions by provider and outcome",
		}, []string{"provider", "outcome"}),
		decisions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "url_decisions_total",
			Help:      "Eligibility decisions for matched URLs",
		}, []string{"decision"}),
		blockRuns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "block_runs_total",
			Help:      "Block rewrite runs by outcome",
		}, []string{"outcome"}),
		childInserts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "child_links_total",
			Help:      "Video embed child links, inserted or skipped as duplicates",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.resolveDuration, pr.resolveResults, pr.decisions, pr.blockRuns, pr.childInserts)
	return pr
}

func (p *PrometheusRecorder) ObserveResolve(provider string, d time.Duration, outcome string) {
	if p == nil {
		return
	}
	p.resolveDuration.WithLabelValues(provider).Observe(d.Seconds())
	p.resolveResults.WithLabelValues(provider, outcome).Inc()
}

func (p *PrometheusRecorder) IncDecision(decision string) {
	if p == nil {
		return
	}
	p.decisions.WithLabelValues(decision).Inc()
}

func (p *PrometheusRecorder) IncBlockRun(outcome string) {
	if p == nil {
		return
	}
	p.blockRuns.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncChildInsert(skipped bool) {
	if p == nil {
		return
	}
	res := "inserted"
	if skipped {
		res = "duplicate"
	}
	p.childInserts.WithLabelValues(res).Inc()
}

// RegisterFeedDropped exposes the count of feed events dropped for slow
// subscribers. dropped is read at scrape time.
func RegisterFeedDropped(reg *prom.Registry, dropped func() int64) {
	reg.MustRegister(prom.NewCounterFunc(prom.CounterOpts{
		Namespace: namespace,
		Name:      "feed_dropped_events_total",
		Help:      "Change feed events dropped because a subscriber buffer was full",
	}, func() float64 { return float64(dropped()) }))
}

// HTTPHandler serves the metrics gathered by reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

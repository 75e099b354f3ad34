package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveResolve("page", 120*time.Millisecond, ResolveHit)
	pr.IncDecision("inline")
	pr.IncBlockRun(BlockWritten)
	pr.IncChildInsert(true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 5 {
		t.Fatalf("expected 5 metric families, got %d", len(mfs))
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveResolve("page", time.Second, ResolveError)
	pr.IncDecision("skip")
	pr.IncBlockRun(BlockFailed)
	pr.IncChildInsert(false)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncBlockRun(BlockWritten)

	w := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "linktitle_block_runs_total") {
		t.Errorf("block run counter missing from scrape output")
	}
}

func TestRegisterFeedDropped(t *testing.T) {
	reg := prom.NewRegistry()
	var dropped int64 = 3
	RegisterFeedDropped(reg, func() int64 { return dropped })
	dropped = 7

	w := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "linktitle_feed_dropped_events_total 7") {
		t.Errorf("dropped counter missing or stale:\n%s", w.Body.String())
	}
}

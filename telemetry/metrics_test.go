package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsInitialized(t *testing.T) {
	Init()

	if CommandsTotal == nil || MemesSubmitted == nil || VotesCast == nil {
		t.Error("counters not initialized")
	}
	if UpstreamDuration == nil || StoreSaveDuration == nil {
		t.Error("histograms not initialized")
	}
	if TransportsConnected == nil {
		t.Error("gauges not initialized")
	}
}

func TestObserveCommandIncrements(t *testing.T) {
	Init()

	c := CommandsTotal.WithLabelValues("meme", "ok")
	before := counterValue(t, c)
	ObserveCommand("meme", "ok")
	ObserveCommand("meme", "ok")
	if got := counterValue(t, c) - before; got != 2 {
		t.Errorf("meme/ok delta = %v, want 2", got)
	}
}

func TestObserveUpstreamRecordsResult(t *testing.T) {
	Init()

	c := UpstreamRequests.WithLabelValues("imgur", "error")
	before := counterValue(t, c)
	ObserveUpstream("imgur", "error", 150*time.Millisecond)
	if got := counterValue(t, c) - before; got != 1 {
		t.Errorf("imgur/error delta = %v, want 1", got)
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()

	called := false
	d := TimeFunc(StoreSaveDuration, func() {
		called = true
		time.Sleep(5 * time.Millisecond)
	})
	if !called {
		t.Error("fn not called")
	}
	if d < 5*time.Millisecond {
		t.Errorf("duration = %v, want >= 5ms", d)
	}

	// nil observer is allowed
	TimeFunc(nil, func() {})
}

func TestCorrelationHelpers(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation(empty) = %q", got)
	}
	ctx = WithCorrelation(ctx, "abc")
	if got := GetCorrelation(ctx); got != "abc" {
		t.Errorf("GetCorrelation = %q, want abc", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}

// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommandsTotal      *prometheus.CounterVec
	MemesSubmitted     prometheus.Counter
	VotesCast          prometheus.Counter
	AnnouncementsTotal *prometheus.CounterVec
	UpstreamRequests   *prometheus.CounterVec

	// Histograms (seconds)
	UpstreamDuration  *prometheus.HistogramVec
	StoreSaveDuration prometheus.Observer

	// Gauges
	TransportsConnected *prometheus.GaugeVec
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "memebot_commands_total", Help: "Chat commands handled by command and outcome"}, []string{"command", "outcome"})
		MemesSubmitted = promauto.NewCounter(prometheus.CounterOpts{Name: "memebot_memes_submitted_total", Help: "Memes accepted into the registry"})
		VotesCast = promauto.NewCounter(prometheus.CounterOpts{Name: "memebot_votes_total", Help: "Votes recorded in the ledger"})
		AnnouncementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "memebot_announcements_total", Help: "Announcer ticks by result"}, []string{"result"})
		UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "memebot_upstream_requests_total", Help: "Third-party API calls by api and result"}, []string{"api", "result"})
		UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "memebot_upstream_duration_seconds", Help: "Third-party API call duration seconds", Buckets: prometheus.DefBuckets}, []string{"api"})
		StoreSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "memebot_store_save_duration_seconds", Help: "State persistence duration seconds", Buckets: prometheus.DefBuckets})
		TransportsConnected = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "memebot_transport_connected", Help: "Chat transport connected=1 disconnected=0"}, []string{"platform"})
	})
}

// ObserveCommand counts a handled command.
func ObserveCommand(command, outcome string) {
	if CommandsTotal != nil {
		CommandsTotal.WithLabelValues(command, outcome).Inc()
	}
}

// IncMemesSubmitted counts an accepted meme.
func IncMemesSubmitted() {
	if MemesSubmitted != nil {
		MemesSubmitted.Inc()
	}
}

// IncVotes counts a recorded vote.
func IncVotes() {
	if VotesCast != nil {
		VotesCast.Inc()
	}
}

// ObserveAnnouncement counts an announcer tick by result.
func ObserveAnnouncement(result string) {
	if AnnouncementsTotal != nil {
		AnnouncementsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveUpstream records one third-party call.
func ObserveUpstream(api, result string, d time.Duration) {
	if UpstreamRequests != nil {
		UpstreamRequests.WithLabelValues(api, result).Inc()
	}
	if UpstreamDuration != nil {
		UpstreamDuration.WithLabelValues(api).Observe(d.Seconds())
	}
}

// SetTransportConnected sets the gauge for platform.
func SetTransportConnected(platform string, connected bool) {
	if TransportsConnected == nil {
		return
	}
	if connected {
		TransportsConnected.WithLabelValues(platform).Set(1)
	} else {
		TransportsConnected.WithLabelValues(platform).Set(0)
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

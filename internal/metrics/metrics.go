// Package metrics provides Prometheus instrumentation for the campaign
// stream server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stream outcomes used as the "outcome" label of StreamsTotal.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

var (
	// ActiveStreams tracks streams currently being served, labeled by
	// transport: "sse" or "websocket".
	ActiveStreams = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "campaign_active_streams",
		Help: "Current number of open campaign streams",
	}, []string{"transport"})

	// StreamsTotal counts finished streams by transport and outcome.
	StreamsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_streams_total",
		Help: "Total number of campaign streams by outcome",
	}, []string{"transport", "outcome"})

	// ChunksEmitted counts partial chunks produced by the generator.
	ChunksEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campaign_chunks_emitted_total",
		Help: "Total number of partial chunks emitted",
	})

	// GeneratorTimers tracks live generator tickers. It must return to zero
	// once every stream has finished or been cancelled.
	GeneratorTimers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campaign_generator_active_timers",
		Help: "Current number of running generator tickers",
	})

	// StreamDuration records the wall time of a stream from open to close.
	StreamDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campaign_stream_duration_seconds",
		Help:    "Campaign stream duration in seconds",
		Buckets: []float64{.1, .5, 1, 2, 3, 5, 10, 30},
	})

	// RateLimited counts stream opens rejected by the rate limiter.
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campaign_rate_limited_total",
		Help: "Total number of stream requests rejected by rate limiting",
	})
)

func init() {
	prometheus.MustRegister(
		ActiveStreams,
		StreamsTotal,
		ChunksEmitted,
		GeneratorTimers,
		StreamDuration,
		RateLimited,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_gateway_events_total",
			Help: "Total number of inbound events by channel, kind and outcome",
		},
		[]string{"channel", "kind", "outcome"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutor_gateway_rate_limited_total",
			Help: "Total number of events rejected by the rate limiter",
		},
	)

	CompletionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "tutor_gateway_completion_latency_seconds",
			Help: "Completion provider latency in seconds",
		},
	)

	TranslationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutor_gateway_translation_failures_total",
			Help: "Total number of translation calls that fell back to the primary text",
		},
	)

	ToggleCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_gateway_toggles_total",
			Help: "Total number of translation toggles by outcome",
		},
		[]string{"outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tutor_gateway_active_sessions",
			Help: "Number of live user sessions",
		},
	)

	CachedReplies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tutor_gateway_cached_replies",
			Help: "Number of entries in the bilingual reply cache",
		},
	)

	SweptSessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutor_gateway_swept_sessions_total",
			Help: "Total number of idle sessions removed by the sweeper",
		},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RotationSelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_rotation_selections_total",
			Help: "Total number of creatives selected by the rotation engine",
		},
		[]string{"placement"},
	)

	RotationEmptyPools = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_rotation_empty_pool_total",
			Help: "Total number of rotation requests that found no eligible creative",
		},
		[]string{"placement"},
	)

	EventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_events_recorded_total",
			Help: "Total number of impression and click events persisted",
		},
		[]string{"event_type"},
	)

	EventsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_events_failed_total",
			Help: "Total number of events that could not be persisted",
		},
		[]string{"event_type"},
	)

	EventMirrorFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ads_event_mirror_failures_total",
			Help: "Total number of events that could not be mirrored to kafka",
		},
	)

	RollupsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ads_rollup_events_processed_total",
			Help: "Total number of mirrored events folded into daily rollups",
		},
	)

	RollupQueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ads_rollup_queue_size",
			Help: "Current size of the rollup processing queue",
		},
	)

	SuggestionsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seo_link_suggestions_written_total",
			Help: "Total number of link suggestions written by refresh runs",
		},
	)

	ResponseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)
)

func init() {
	prometheus.MustRegister(RotationSelections)
	prometheus.MustRegister(RotationEmptyPools)
	prometheus.MustRegister(EventsRecorded)
	prometheus.MustRegister(EventsFailed)
	prometheus.MustRegister(EventMirrorFailures)
	prometheus.MustRegister(RollupsProcessed)
	prometheus.MustRegister(RollupQueueSize)
	prometheus.MustRegister(SuggestionsWritten)
	prometheus.MustRegister(ResponseTime)
}

package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matches_total",
		Help: "Total number of rooms matched",
	}, []string{"room_type", "tier"})

	MatchesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matches_failed_total",
		Help: "Total number of room matches that returned an error",
	}, []string{"reason"})

	MatchSlotsUnmetTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "match_slots_unmet_total",
		Help: "Total number of required slots left without a product",
	}, []string{"room_type", "slot"})

	MatchSlotsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "match_slots_skipped_total",
		Help: "Total number of optional slots left out of a match",
	}, []string{"reason"})

	MatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_latency_seconds",
		Help:    "Latency of a single room match",
		Buckets: prometheus.DefBuckets,
	})

	MatchBudgetUtilization = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_budget_utilization_percent",
		Help:    "Share of the room budget spent by a match",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	CatalogQueryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_query_latency_seconds",
		Help:    "Latency of catalog search queries",
		Buckets: prometheus.DefBuckets,
	})

	CatalogQueryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_query_errors_total",
		Help: "Total number of failed catalog search queries",
	})

	DesignsRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "designs_requested_total",
		Help: "Total number of multi-room designs requested",
	})

	DesignsMatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "designs_matched_total",
		Help: "Total number of multi-room designs furnished",
	})

	DesignsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "designs_failed_total",
		Help: "Total number of failed designs",
	}, []string{"reason"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

// SlotMetrics feeds matcher slot outcomes into the prometheus counters
type SlotMetrics struct{}

func (SlotMetrics) SlotUnmet(roomType, slot, reason string) {
	MatchSlotsUnmetTotal.WithLabelValues(roomType, slot).Inc()
}

func (SlotMetrics) SlotSkipped(roomType, slot, reason string) {
	MatchSlotsSkippedTotal.WithLabelValues(reason).Inc()
}

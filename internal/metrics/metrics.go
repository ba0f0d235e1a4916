// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream metrics
	streamEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mora_stream_events_total",
		Help: "Session stream events received by type",
	}, []string{"type"})

	streamDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mora_stream_dropped_total",
		Help: "Stream events dropped without folding, by reason",
	}, []string{"reason"}) // reason=malformed|unknown

	streamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mora_streams_active",
		Help: "Number of open session event streams",
	})

	// Session metrics
	sessionsTerminal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mora_sessions_terminal_total",
		Help: "Sessions reaching a terminal status",
	}, []string{"status"}) // status=completed|error

	// Execution metrics
	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mora_executions_total",
		Help: "Code execution attempts by runner and outcome",
	}, []string{"runner", "outcome"}) // outcome=success|failure

	executionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mora_execution_duration_seconds",
		Help:    "Wall time of code execution calls",
		Buckets: prometheus.DefBuckets,
	})

	// REST client metrics
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mora_api_requests_total",
		Help: "Backend REST requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	// Cache metrics
	cacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mora_cache_requests_total",
		Help: "Session cache lookups by result",
	}, []string{"result"}) // result=hit|miss
)

func IncStreamEvent(eventType string)  { streamEventsTotal.WithLabelValues(eventType).Inc() }
func IncStreamDropped(reason string)   { streamDroppedTotal.WithLabelValues(reason).Inc() }
func IncActiveStreams()                { streamsActive.Inc() }
func DecActiveStreams()                { streamsActive.Dec() }
func IncSessionTerminal(status string) { sessionsTerminal.WithLabelValues(status).Inc() }

func IncExecution(runner, outcome string) { executionsTotal.WithLabelValues(runner, outcome).Inc() }
func ObserveExecutionDuration(d time.Duration) {
	executionDuration.Observe(d.Seconds())
}

func IncAPIRequest(endpoint, outcome string) {
	apiRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func IncCacheRequest(hit bool) {
	if hit {
		cacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheRequestsTotal.WithLabelValues("miss").Inc()
}

// Package metrics exposes the Prometheus gauges and counters the
// Auto-Scanner, LLM Gateway and Response Cache update as they run
// (spec.md §5, §6 "cache/cost accumulators").
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "devsentry_active_scans",
			Help: "Number of scan tasks currently running",
		},
	)

	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devsentry_scans_total",
			Help: "Total scans completed, by outcome",
		},
		[]string{"outcome"},
	)

	LLMInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "devsentry_llm_in_flight",
			Help: "Number of LLM Gateway calls currently awaiting a provider response",
		},
	)

	LLMCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devsentry_llm_calls_total",
			Help: "Total LLM Gateway invocations, by cache outcome and success",
		},
		[]string{"cache", "success"},
	)

	LLMLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devsentry_llm_latency_seconds",
			Help:    "LLM Gateway call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CacheHitRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "devsentry_cache_hit_ratio_1h",
			Help: "Rolling one-hour cache hit ratio",
		},
	)

	CostAccumulatedUSD = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devsentry_cost_accumulated_usd",
			Help: "Spend accumulated over the named window",
		},
		[]string{"window"},
	)

	TasksCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devsentry_tasks_created_total",
			Help: "Tasks created by the Task Generator, by source",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(
		ActiveScans,
		ScansTotal,
		LLMInFlight,
		LLMCallsTotal,
		LLMLatency,
		CacheHitRatio,
		CostAccumulatedUSD,
		TasksCreatedTotal,
	)
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's duration and records it into a
// histogram on Stop.
type Timer struct {
	start time.Time
	obs   prometheus.Observer
}

// NewTimer starts timing against the given histogram/summary.
func NewTimer(obs prometheus.Observer) *Timer {
	return &Timer{start: time.Now(), obs: obs}
}

// Stop records the elapsed duration.
func (t *Timer) Stop() {
	t.obs.Observe(time.Since(t.start).Seconds())
}

package telemetry

// Prometheus metrics for the hub API, served on /metrics from Registry.
//
// Naming follows Prometheus conventions: hub_ prefix, _total suffix for
// counters and _seconds for durations.

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every hub collector plus the Go runtime and process collectors.
var Registry = prometheus.NewRegistry()

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDurationSeconds is a histogram of request latency by route.
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// SessionResolutionsTotal counts resolver outcomes. Source is provider,
	// legacy or none; outcome is resolved, anonymous or error.
	SessionResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_session_resolutions_total",
			Help: "Total session resolutions by credential source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	// RoleCacheLookupsTotal counts role cache hits and misses.
	RoleCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_role_cache_lookups_total",
			Help: "Total resolved-role cache lookups by result.",
		},
		[]string{"result"},
	)

	// CalendarSyncAccountsTotal counts per-account sync results.
	CalendarSyncAccountsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_calendar_sync_accounts_total",
			Help: "Total calendar account syncs by status.",
		},
		[]string{"status"},
	)

	// CalendarSyncEventsTotal counts reconciled events by the action taken.
	CalendarSyncEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_calendar_sync_events_total",
			Help: "Total reconciled calendar events by action.",
		},
		[]string{"action"},
	)

	// CalendarSyncDurationSeconds is a histogram of per-account sync duration.
	CalendarSyncDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_calendar_sync_duration_seconds",
			Help:    "Duration of a single calendar account sync in seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		SessionResolutionsTotal,
		RoleCacheLookupsTotal,
		CalendarSyncAccountsTotal,
		CalendarSyncEventsTotal,
		CalendarSyncDurationSeconds,
	)
}

// RecordRequest records one finished HTTP request.
func RecordRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSessionResolution records one resolver outcome.
func RecordSessionResolution(source, outcome string) {
	SessionResolutionsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordRoleCacheLookup records a cache hit or miss.
func RecordRoleCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	RoleCacheLookupsTotal.WithLabelValues(result).Inc()
}

// CalendarSyncCounts is the event tally of one account sync.
type CalendarSyncCounts struct {
	Created, Updated, Unchanged, Unmatched, Removed int
}

// RecordCalendarSync records one account sync.
func RecordCalendarSync(success bool, counts CalendarSyncCounts, duration time.Duration) {
	status := "failure"
	if success {
		status = "success"
	}
	CalendarSyncAccountsTotal.WithLabelValues(status).Inc()
	CalendarSyncDurationSeconds.Observe(duration.Seconds())

	for action, n := range map[string]int{
		"created":   counts.Created,
		"updated":   counts.Updated,
		"unchanged": counts.Unchanged,
		"unmatched": counts.Unmatched,
		"removed":   counts.Removed,
	} {
		if n > 0 {
			CalendarSyncEventsTotal.WithLabelValues(action).Add(float64(n))
		}
	}
}

package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSessionResolution(t *testing.T) {
	before := testutil.ToFloat64(SessionResolutionsTotal.WithLabelValues("legacy", "resolved"))
	RecordSessionResolution("legacy", "resolved")
	after := testutil.ToFloat64(SessionResolutionsTotal.WithLabelValues("legacy", "resolved"))
	assert.Equal(t, before+1, after)
}

func TestRecordRoleCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(RoleCacheLookupsTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(RoleCacheLookupsTotal.WithLabelValues("miss"))

	RecordRoleCacheLookup(true)
	RecordRoleCacheLookup(false)
	RecordRoleCacheLookup(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(RoleCacheLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(RoleCacheLookupsTotal.WithLabelValues("miss")))
}

func TestRecordCalendarSync(t *testing.T) {
	created := testutil.ToFloat64(CalendarSyncEventsTotal.WithLabelValues("created"))
	failures := testutil.ToFloat64(CalendarSyncAccountsTotal.WithLabelValues("failure"))

	RecordCalendarSync(true, CalendarSyncCounts{Created: 3, Unmatched: 1}, 2*time.Second)
	RecordCalendarSync(false, CalendarSyncCounts{}, time.Second)

	assert.Equal(t, created+3, testutil.ToFloat64(CalendarSyncEventsTotal.WithLabelValues("created")))
	assert.Equal(t, failures+1, testutil.ToFloat64(CalendarSyncAccountsTotal.WithLabelValues("failure")))
}

func TestRegistryGathers(t *testing.T) {
	RecordRequest("GET", "/health", "200", 10*time.Millisecond)
	n, err := testutil.GatherAndCount(Registry, "hub_http_requests_total")
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementIssued("Tuition Fee")
	m.IncrementIssued("Tuition Fee")
	m.IncrementIssued("Admission Fee")
	m.IncrementIssueFailure("ledger")
	m.RecordStorage("local", true)
	m.RecordStorage("cloud", false)
	m.RecordLogoFailure()
	m.RecordMissingGlyphs()
	m.RecordMissingGlyphs()
	m.RecordCredentialRefresh(true)
	m.RecordCredentialRefresh(false)
	m.ObserveIssueDuration(120 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Issued.WithLabelValues("Tuition Fee")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Issued.WithLabelValues("Admission Fee")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IssueFailures.WithLabelValues("ledger")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Storage.WithLabelValues("local", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Storage.WithLabelValues("cloud", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LogoFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MissingGlyphs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CredentialRefresh.WithLabelValues(ResultFailure)))

	expected := `
# HELP receipts_logo_failures_total Receipts rendered without their configured logo
# TYPE receipts_logo_failures_total counter
receipts_logo_failures_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "receipts_logo_failures_total"))

	count, err := testutil.GatherAndCount(reg, "receipts_issue_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementIssued("Tuition Fee")
		m.IncrementIssueFailure("render")
		m.RecordStorage("local", true)
		m.RecordLogoFailure()
		m.RecordMissingGlyphs()
		m.RecordCredentialRefresh(true)
		m.ObserveIssueDuration(time.Second)
		m.ObserveHTTPRequest("GET", "/health", "2xx", time.Millisecond)
	})
}

func TestMetrics_HTTPRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTPRequest("POST", "/api/v1/receipts", "2xx", 40*time.Millisecond)
	m.ObserveHTTPRequest("POST", "/api/v1/receipts", "4xx", 2*time.Millisecond)
	m.ObserveHTTPRequest("POST", "/api/v1/receipts", "2xx", 30*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/v1/receipts", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/v1/receipts", "4xx")))

	count, err := testutil.GatherAndCount(reg, "receipts_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

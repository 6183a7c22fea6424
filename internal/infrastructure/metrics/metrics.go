// Package metrics exposes Prometheus metrics for receipt issuance.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the receipt pipeline metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Issued receipts by fee type
	Issued *prometheus.CounterVec

	// Failed issuance attempts by pipeline stage
	IssueFailures *prometheus.CounterVec

	// Storage outcomes by backend and result
	Storage *prometheus.CounterVec

	LogoFailures prometheus.Counter

	// Text elements drawn with characters the receipt font cannot print
	MissingGlyphs prometheus.Counter

	// Credential refresh attempts by result
	CredentialRefresh *prometheus.CounterVec

	IssueDuration prometheus.Histogram

	// HTTP requests by method, route pattern and status class
	HTTPRequests *prometheus.CounterVec

	HTTPDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receipts_issued_total",
			Help: "Total receipts issued by fee type",
		}, []string{"fee_type"}),

		IssueFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receipts_issue_failures_total",
			Help: "Total failed issuance attempts by stage",
		}, []string{"stage"}), // validation, render, ledger, storage

		Storage: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receipts_storage_total",
			Help: "Document storage outcomes by backend and result",
		}, []string{"backend", "result"}),

		LogoFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "receipts_logo_failures_total",
			Help: "Receipts rendered without their configured logo",
		}),

		MissingGlyphs: factory.NewCounter(prometheus.CounterOpts{
			Name: "receipts_missing_glyphs_total",
			Help: "Receipt text elements containing characters the font cannot print",
		}),

		CredentialRefresh: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receipts_credential_refresh_total",
			Help: "Access token refresh attempts by result",
		}, []string{"result"}),

		IssueDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "receipts_issue_duration_seconds",
			Help:    "Duration of a full issuance including storage",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receipts_http_requests_total",
			Help: "HTTP requests by method, route and status class",
		}, []string{"method", "route", "status"}),

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "receipts_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// IncrementIssued records an issued receipt
func (m *Metrics) IncrementIssued(feeType string) {
	if m != nil {
		m.Issued.WithLabelValues(feeType).Inc()
	}
}

// IncrementIssueFailure records a failed issuance at stage
func (m *Metrics) IncrementIssueFailure(stage string) {
	if m != nil {
		m.IssueFailures.WithLabelValues(stage).Inc()
	}
}

// RecordStorage records the outcome of persisting a document
func (m *Metrics) RecordStorage(backend string, ok bool) {
	if m != nil {
		m.Storage.WithLabelValues(backend, result(ok)).Inc()
	}
}

// RecordLogoFailure counts a receipt rendered without its logo
func (m *Metrics) RecordLogoFailure() {
	if m != nil {
		m.LogoFailures.Inc()
	}
}

// RecordMissingGlyphs counts a text element the font could not fully print
func (m *Metrics) RecordMissingGlyphs() {
	if m != nil {
		m.MissingGlyphs.Inc()
	}
}

// RecordCredentialRefresh records a token exchange attempt
func (m *Metrics) RecordCredentialRefresh(ok bool) {
	if m != nil {
		m.CredentialRefresh.WithLabelValues(result(ok)).Inc()
	}
}

// ObserveIssueDuration records the duration of an issuance
func (m *Metrics) ObserveIssueDuration(d time.Duration) {
	if m != nil {
		m.IssueDuration.Observe(d.Seconds())
	}
}

// ObserveHTTPRequest records a served HTTP request. status is the status
// class such as "2xx".
func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, route, status).Inc()
		m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Submission outcome labels.
const (
	StatusRelayed  = "relayed"
	StatusFailed   = "failed"
	StatusRejected = "rejected"
)

// Debug email result labels.
const (
	ResultSent  = "sent"
	ResultError = "error"
)

// Metric names.
const (
	metricSubmissions  = "formrelay_submissions_total"
	metricRelayLatency = "formrelay_relay_latency_seconds"
	metricDebugEmails  = "formrelay_debug_emails_total"
)

// latencyBuckets are in seconds.
var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds metric instruments for the relay, backed by any go-utils
// MetricFactory (the forge-managed metrics system via fapp.Metrics(), or
// NewStandaloneMetrics outside forge).
type Metrics struct {
	SubmissionsTotal gu.Counter
	RelayLatency     gu.Histogram
	DebugEmailsTotal gu.Counter

	// Labelled children are created once so every factory keeps their state.
	submissions map[string]gu.Counter
	debugEmails map[string]gu.Counter
}

// NewMetrics creates relay metric instruments using the supplied factory.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	m := &Metrics{
		SubmissionsTotal: factory.Counter(metricSubmissions,
			gu.WithDescription("Form submissions handled, by outcome.")),
		RelayLatency: factory.Histogram(metricRelayLatency,
			gu.WithDescription("Latency of the POST to the destination."),
			gu.WithUnit("seconds"),
			gu.WithBuckets(latencyBuckets...)),
		DebugEmailsTotal: factory.Counter(metricDebugEmails,
			gu.WithDescription("Debug notification attempts, by result.")),
	}
	m.submissions = labelled(m.SubmissionsTotal, "status", StatusRelayed, StatusFailed, StatusRejected)
	m.debugEmails = labelled(m.DebugEmailsTotal, "result", ResultSent, ResultError)
	return m
}

func labelled(c gu.Counter, key string, values ...string) map[string]gu.Counter {
	out := make(map[string]gu.Counter, len(values))
	for _, v := range values {
		out[v] = c.WithLabels(map[string]string{key: v})
	}
	return out
}

// RecordSubmission records one submission outcome. Latency is observed only
// when a POST was actually made.
func (m *Metrics) RecordSubmission(status string, latencySeconds float64, posted bool) {
	if c, ok := m.submissions[status]; ok {
		c.Inc()
	}
	if posted {
		m.RelayLatency.Observe(latencySeconds)
	}
}

// RecordDebugEmail records one debug email attempt.
func (m *Metrics) RecordDebugEmail(err error) {
	result := ResultSent
	if err != nil {
		result = ResultError
	}
	m.debugEmails[result].Inc()
}

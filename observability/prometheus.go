package observability

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	gu "github.com/xraph/go-utils/metrics"
)

// NewStandaloneMetrics creates instruments on a go-utils collector and
// exposes them through reg. A nil reg skips registration.
func NewStandaloneMetrics(reg prometheus.Registerer) *Metrics {
	m := NewMetrics(gu.NewMetricsCollector("formrelay"))
	if reg != nil {
		reg.MustRegister(m.Collector())
	}
	return m
}

// Collector returns a prometheus collector that reads the instruments at
// scrape time.
func (m *Metrics) Collector() prometheus.Collector {
	return &promCollector{
		m: m,
		submissions: prometheus.NewDesc(metricSubmissions,
			"Form submissions handled, by outcome.", []string{"status"}, nil),
		latency: prometheus.NewDesc(metricRelayLatency,
			"Latency of the POST to the destination.", nil, nil),
		debugEmails: prometheus.NewDesc(metricDebugEmails,
			"Debug notification attempts, by result.", []string{"result"}, nil),
	}
}

type promCollector struct {
	m           *Metrics
	submissions *prometheus.Desc
	latency     *prometheus.Desc
	debugEmails *prometheus.Desc
}

func (c *promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.submissions
	ch <- c.latency
	ch <- c.debugEmails
}

func (c *promCollector) Collect(ch chan<- prometheus.Metric) {
	for status, counter := range c.m.submissions {
		ch <- prometheus.MustNewConstMetric(c.submissions, prometheus.CounterValue, counter.Value(), status)
	}
	for result, counter := range c.m.debugEmails {
		ch <- prometheus.MustNewConstMetric(c.debugEmails, prometheus.CounterValue, counter.Value(), result)
	}

	h := c.m.RelayLatency
	ch <- prometheus.MustNewConstHistogram(c.latency, h.Count(), h.Sum(), cumulative(h.Buckets()))
}

// cumulative turns per-bucket counts into the running totals prometheus
// expects.
func cumulative(buckets map[float64]uint64) map[float64]uint64 {
	bounds := make([]float64, 0, len(buckets))
	for b := range buckets {
		bounds = append(bounds, b)
	}
	sort.Float64s(bounds)

	out := make(map[float64]uint64, len(buckets))
	var total uint64
	for _, b := range bounds {
		total += buckets[b]
		out[b] = total
	}
	return out
}

// Package metrics exposes Prometheus instrumentation for the probe engine.
//
// All methods are nil-safe so components can run without a collector.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "seca_recon"

// Fetch outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeTimeout    = "timeout"
	OutcomeConnection = "connection"
	OutcomeOther      = "other"
)

// Metrics groups the collectors registered for one process.
type Metrics struct {
	registry      *prometheus.Registry
	fetchAttempts *prometheus.CounterVec
	portProbes    *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	findings      *prometheus.CounterVec
}

// New creates collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "HTTP fetch attempts by outcome.",
		}, []string{"outcome"}),
		portProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "port_probes_total",
			Help:      "TCP connect probes by resulting state.",
		}, []string{"state"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of orchestrated checks.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"check", "status"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vulnerabilities_total",
			Help:      "Reported vulnerabilities by severity.",
		}, []string{"severity"}),
	}
	m.registry.MustRegister(m.fetchAttempts, m.portProbes, m.checkDuration, m.findings)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFetch counts one fetch attempt.
func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(outcome).Inc()
}

// ObservePort counts one TCP probe.
func (m *Metrics) ObservePort(open bool) {
	if m == nil {
		return
	}
	state := "closed"
	if open {
		state = "open"
	}
	m.portProbes.WithLabelValues(state).Inc()
}

// ObserveCheck records the duration of a named orchestrated check.
func (m *Metrics) ObserveCheck(check string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.checkDuration.WithLabelValues(check, status).Observe(d.Seconds())
}

// ObserveFinding counts one reported vulnerability.
func (m *Metrics) ObserveFinding(severity string) {
	if m == nil {
		return
	}
	m.findings.WithLabelValues(severity).Inc()
}

// WriteText dumps every metric family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

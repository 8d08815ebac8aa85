package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aegis"

// Result label values.
const (
	ResultOK            = "ok"
	ResultBadRequest    = "bad_request"
	ResultInvalidFormat = "invalid_format"
	ResultInvalidSig    = "invalid_signature"
	ResultNotConfigured = "not_configured"
	ResultInternalError = "error"
	ResultBodyTooLarge  = "body_too_large"
)

// Metrics holds the collectors exported by the HTTP service.
type Metrics struct {
	SealRequests    *prometheus.CounterVec
	VerifyRequests  *prometheus.CounterVec
	SealedBytes     prometheus.Histogram
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		SealRequests: MustRegisterCounterVec(reg, "seal", "requests_total",
			"Number of seal requests by result.", "result"),
		VerifyRequests: MustRegisterCounterVec(reg, "verify", "requests_total",
			"Number of verify requests by result.", "result"),
		SealedBytes: MustRegisterHistogram(reg, "", "sealed_bytes",
			"Size of sealed containers in bytes.", prometheus.ExponentialBuckets(1024, 4, 10)),
		RequestDuration: MustRegisterHistogramVec(reg, "", "request_duration_seconds",
			"HTTP request latency by route.", prometheus.DefBuckets, "route"),
	}
}

// MustRegisterCounterVec creates and registers a counter vector.
func MustRegisterCounterVec(reg prometheus.Registerer, component, name, help string, labelNames ...string) *prometheus.CounterVec {
	m := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: component,
		Name:      name,
		Help:      help,
	}, labelNames)
	reg.MustRegister(m)
	return m
}

// MustRegisterHistogram creates and registers a histogram.
func MustRegisterHistogram(reg prometheus.Registerer, component, name, help string, buckets []float64) prometheus.Histogram {
	m := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: component,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
	reg.MustRegister(m)
	return m
}

// MustRegisterHistogramVec creates and registers a histogram vector.
func MustRegisterHistogramVec(reg prometheus.Registerer, component, name, help string, buckets []float64, labelNames ...string) *prometheus.HistogramVec {
	m := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: component,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labelNames)
	reg.MustRegister(m)
	return m
}

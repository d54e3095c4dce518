package internal

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports pipeline timings to Prometheus.
type Metrics struct {
	stages   *prometheus.HistogramVec
	requests *prometheus.CounterVec
	slow     prometheus.Counter
}

// NewMetrics creates the dispatch collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil). Registering twice against the same
// registry reuses the collectors already there.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages by group",
			Buckets:   prometheus.DefBuckets,
		}, []string{"group"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "requests_total",
			Help:      "Dispatched requests by method and status code",
		}, []string{"method", "code"}),
		slow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "slow_requests_total",
			Help:      "Requests exceeding the slow request threshold",
		}),
	}

	var err error
	if m.stages, err = register(reg, m.stages); err != nil {
		return nil, err
	}
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.slow, err = register(reg, m.slow); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observeStage(group string, d time.Duration) {
	if group == "" {
		group = "total"
	}
	m.stages.WithLabelValues(group).Observe(d.Seconds())
}

func (m *Metrics) observeRequest(method string, code int, slow bool) {
	m.requests.WithLabelValues(methodLabel(method), strconv.Itoa(code)).Inc()
	if slow {
		m.slow.Inc()
	}
}

// methodLabel bounds the method label: declarable methods and OPTIONS keep
// their name, anything else is "OTHER".
func methodLabel(method string) string {
	switch Method(method) {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodHead:
		return method
	}
	if method == http.MethodOptions {
		return method
	}
	return "OTHER"
}

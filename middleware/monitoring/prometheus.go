package monitoring

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusSink struct {
	requests   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	violations *prometheus.CounterVec
}

var _ Sink = &PrometheusSink{}

// NewPrometheusSink registra os coletores em reg. Com reg nil usa o
// registry padrão.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitness_function_violations_total",
			Help: "Fitness function violations",
		}, []string{"function", "endpoint"}),
	}
	for _, c := range []prometheus.Collector{s.requests, s.durations, s.violations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return s, nil
}

func (s *PrometheusSink) IncRequest(method, endpoint string, status int) error {
	c, err := s.requests.GetMetricWithLabelValues(method, endpoint, strconv.Itoa(status))
	if err != nil {
		return err
	}
	c.Inc()
	return nil
}

func (s *PrometheusSink) ObserveDuration(method, endpoint string, d time.Duration) error {
	o, err := s.durations.GetMetricWithLabelValues(method, endpoint)
	if err != nil {
		return err
	}
	o.Observe(d.Seconds())
	return nil
}

func (s *PrometheusSink) IncViolation(function, endpoint string) error {
	c, err := s.violations.GetMetricWithLabelValues(function, endpoint)
	if err != nil {
		return err
	}
	c.Inc()
	return nil
}

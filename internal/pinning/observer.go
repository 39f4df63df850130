package pinning

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for gateway operations.
type Observer interface {
	RecordUpload(operation string, duration time.Duration, sizeBytes int64, err error)
}

// PrometheusObserver exports upload metrics to Prometheus.
type PrometheusObserver struct {
	duration    *prometheus.HistogramVec
	failures    *prometheus.CounterVec
	pinnedBytes *prometheus.CounterVec
}

// NewPrometheusObserver registers the gateway metrics on reg.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "pinning"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Latency of pinning service uploads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_errors_total",
			Help:      "Failed uploads by operation and error kind.",
		}, []string{"operation", "kind"}),
		pinnedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pinned_bytes_total",
			Help:      "Bytes reported pinned by the service.",
		}, []string{"operation"}),
	}

	if err := register(reg, &o.duration); err != nil {
		return nil, err
	}
	if err := register(reg, &o.failures); err != nil {
		return nil, err
	}
	if err := register(reg, &o.pinnedBytes); err != nil {
		return nil, err
	}
	return o, nil
}

// register reuses an already registered collector of the same shape so that
// several observers can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				*c = existing
				return nil
			}
		}
		return fmt.Errorf("register pinning metric: %w", err)
	}
	return nil
}

// RecordUpload tracks latency, pinned bytes and failures by kind.
func (o *PrometheusObserver) RecordUpload(operation string, duration time.Duration, sizeBytes int64, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		o.failures.WithLabelValues(operation, GetKind(err).String()).Inc()
		return
	}
	o.pinnedBytes.WithLabelValues(operation).Add(float64(sizeBytes))
}

type nopObserver struct{}

func (nopObserver) RecordUpload(string, time.Duration, int64, error) {}

// Package metrics exposes Prometheus collectors describing detection runs.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hed1ad/orbitguard/pkg/anomaly"
)

// Result label values for orbitguard_detection_runs_total.
const (
	ResultOK           = "ok"
	ResultEmpty        = "empty_dataset"
	ResultInsufficient = "insufficient_data"
	ResultFeature      = "feature_extraction"
	ResultConfig       = "config"
	ResultOther        = "other"
)

// Collector bundles the detection metrics and implements anomaly.Observer.
type Collector struct {
	gatherer prometheus.Gatherer

	Runs         *prometheus.CounterVec
	Duration     prometheus.Histogram
	Observations prometheus.Gauge
	Anomalies    prometheus.Gauge
	Threshold    prometheus.Gauge
}

var _ anomaly.Observer = (*Collector)(nil)

// NewCollector registers the detection metrics against reg, defaulting to the
// global Prometheus registry when nil. Registering twice on the same registry
// reuses the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitguard_detection_runs_total",
		Help: "Total number of anomaly detection runs, labeled by result.",
	}, []string{"result"}), "orbitguard_detection_runs_total")
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbitguard_detection_duration_seconds",
		Help:    "Wall time of successful detection runs in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}), "orbitguard_detection_duration_seconds")
	if err != nil {
		return nil, err
	}
	observations, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitguard_observations",
		Help: "Number of observations in the last successful run.",
	}), "orbitguard_observations")
	if err != nil {
		return nil, err
	}
	anomalies, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitguard_anomalies",
		Help: "Number of observations labeled Anomaly in the last successful run.",
	}), "orbitguard_anomalies")
	if err != nil {
		return nil, err
	}
	threshold, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitguard_decision_threshold",
		Help: "Anomaly score of the weakest observation labeled Anomaly in the last successful run.",
	}), "orbitguard_decision_threshold")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:     gatherer,
		Runs:         runs,
		Duration:     duration,
		Observations: observations,
		Anomalies:    anomalies,
		Threshold:    threshold,
	}, nil
}

// ObserveRun records a successful run.
func (c *Collector) ObserveRun(r anomaly.Report) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(ResultOK).Inc()
	c.Duration.Observe(r.Duration.Seconds())
	c.Observations.Set(float64(r.Observations))
	c.Anomalies.Set(float64(r.Anomalies))
	c.Threshold.Set(r.Threshold)
}

// ObserveFailure records a failed run, classified by error kind.
func (c *Collector) ObserveFailure(err error) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(Classify(err)).Inc()
}

// WriteTextfile dumps the gathered metrics in the node exporter textfile
// format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.gatherer)
}

// Classify maps a detection error to a result label value.
func Classify(err error) string {
	var (
		insufficient *anomaly.InsufficientDataError
		feature      *anomaly.FeatureExtractionError
		config       *anomaly.ConfigError
	)
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, anomaly.ErrEmptyDataset):
		return ResultEmpty
	case errors.As(err, &insufficient):
		return ResultInsufficient
	case errors.As(err, &feature):
		return ResultFeature
	case errors.As(err, &config):
		return ResultConfig
	default:
		return ResultOther
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}

// Package anomaly labels orbital observations as Normal or Anomaly with an
// Isolation Forest fitted over a fixed feature set.
//
// Every call fits a fresh model on the given dataset and discards it once
// the labels are assigned.
package anomaly

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hed1ad/orbitguard/pkg/detectors"
	"github.com/hed1ad/orbitguard/pkg/detectors/iforest"
	"github.com/hed1ad/orbitguard/pkg/orbit"
)

var log = logrus.WithField("component", "anomaly")

// MinSamples is the smallest dataset an isolation forest can be fitted on.
const MinSamples = 2

// Report summarizes a detection run.
type Report struct {
	Observations  int
	Anomalies     int
	Contamination float64
	Threshold     float64
	Features      []orbit.Feature
	Duration      time.Duration
}

// Observer is notified about every detection run.
type Observer interface {
	ObserveRun(r Report)
	ObserveFailure(err error)
}

type config struct {
	detectors.Config
	features   []orbit.Feature
	trees      int
	sampleSize int
	workers    int
	observer   Observer
}

// Option configures a detection run.
type Option func(*config)

// WithFeatures selects the feature columns, in order.
func WithFeatures(features ...orbit.Feature) Option {
	return func(c *config) {
		c.features = append([]orbit.Feature(nil), features...)
	}
}

// WithContamination sets the expected fraction of anomalous observations.
func WithContamination(v float64) Option {
	return func(c *config) {
		c.Contamination = v
	}
}

// WithSeed sets the random seed. The same seed and input always produce the
// same labels.
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.RandomSeed = seed
	}
}

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(c *config) {
		c.trees = n
	}
}

// WithSampleSize sets the per-tree subsample size.
func WithSampleSize(n int) Option {
	return func(c *config) {
		c.sampleSize = n
	}
}

// WithWorkers bounds the goroutines used while fitting.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithObserver registers an observer for run reports.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

func newConfig(opts []Option) config {
	c := config{
		Config:     detectors.DefaultConfig(),
		features:   append([]orbit.Feature(nil), orbit.DefaultFeatures...),
		trees:      100,
		sampleSize: 256,
		workers:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *config) validate() error {
	if math.IsNaN(c.Contamination) || c.Contamination <= 0 || c.Contamination >= 0.5 {
		return &ConfigError{Option: "contamination", Reason: fmt.Sprintf("%v is outside (0, 0.5)", c.Contamination)}
	}
	if c.trees < 1 {
		return &ConfigError{Option: "trees", Reason: fmt.Sprintf("%d must be at least 1", c.trees)}
	}
	if c.sampleSize < MinSamples {
		return &ConfigError{Option: "sample size", Reason: fmt.Sprintf("%d must be at least %d", c.sampleSize, MinSamples)}
	}
	if len(c.features) == 0 {
		return &ConfigError{Option: "features", Reason: "no features selected"}
	}
	seen := make(map[orbit.Feature]bool, len(c.features))
	for _, f := range c.features {
		if !f.Valid() {
			return &ConfigError{Option: "features", Reason: fmt.Sprintf("unknown feature %s", f)}
		}
		if seen[f] {
			return &ConfigError{Option: "features", Reason: fmt.Sprintf("duplicate feature %s", f)}
		}
		seen[f] = true
	}
	return nil
}

// Detect labels every observation of ds and returns a new dataset; ds is not
// modified. Labels already present on ds are ignored.
func Detect(ds *orbit.Dataset, opts ...Option) (*orbit.Dataset, error) {
	out, _, err := DetectWithReport(ds, opts...)
	return out, err
}

// DetectWithReport is Detect that also returns a summary of the run.
func DetectWithReport(ds *orbit.Dataset, opts ...Option) (*orbit.Dataset, Report, error) {
	cfg := newConfig(opts)
	out, report, err := detect(ds, cfg)
	if cfg.observer != nil {
		if err != nil {
			cfg.observer.ObserveFailure(err)
		} else {
			cfg.observer.ObserveRun(report)
		}
	}
	return out, report, err
}

func detect(ds *orbit.Dataset, cfg config) (*orbit.Dataset, Report, error) {
	start := time.Now()
	if err := cfg.validate(); err != nil {
		return nil, Report{}, err
	}

	n := ds.Len()
	if n == 0 {
		return nil, Report{}, ErrEmptyDataset
	}
	if n < MinSamples {
		return nil, Report{}, &InsufficientDataError{Have: n, Need: MinSamples}
	}

	matrix, err := FeatureMatrix(ds, cfg.features)
	if err != nil {
		return nil, Report{}, err
	}

	forest := iforest.New(
		iforest.WithTrees(cfg.trees),
		iforest.WithSampleSize(cfg.sampleSize),
		iforest.WithSeed(cfg.RandomSeed),
		iforest.WithWorkers(cfg.workers),
	)
	if err := forest.Fit(matrix); err != nil {
		return nil, Report{}, fmt.Errorf("fitting isolation forest: %w", err)
	}
	scores, err := forest.Predict(matrix)
	if err != nil {
		return nil, Report{}, fmt.Errorf("scoring observations: %w", err)
	}

	outliers, threshold := iforest.Outliers(scores, cfg.Contamination)

	out := ds.Clone()
	for i := range out.Observations {
		out.Observations[i].Score = scores[i]
		out.Observations[i].Label = orbit.LabelNormal
	}
	for _, i := range outliers {
		out.Observations[i].Label = orbit.LabelAnomaly
	}

	report := Report{
		Observations:  n,
		Anomalies:     len(outliers),
		Contamination: cfg.Contamination,
		Threshold:     threshold,
		Features:      cfg.features,
		Duration:      time.Since(start),
	}
	log.WithFields(logrus.Fields{
		"observations": report.Observations,
		"anomalies":    report.Anomalies,
		"threshold":    report.Threshold,
		"seed":         cfg.RandomSeed,
	}).Debug("detection finished")

	return out, report, nil
}

// FeatureMatrix builds one row per observation with the given features as
// columns. Absent or non-finite values fail the whole matrix.
func FeatureMatrix(ds *orbit.Dataset, features []orbit.Feature) ([][]float64, error) {
	matrix := make([][]float64, ds.Len())
	for i, obs := range ds.Observations {
		row := make([]float64, len(features))
		for j, f := range features {
			v, ok := obs.Value(f)
			if !ok {
				return nil, &FeatureExtractionError{Index: i, Feature: f, Reason: "value missing"}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &FeatureExtractionError{Index: i, Feature: f, Reason: fmt.Sprintf("non-finite value %v", v)}
			}
			row[j] = v
		}
		matrix[i] = row
	}
	return matrix, nil
}

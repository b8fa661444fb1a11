// Package detectors provides unsupervised outlier scoring models.
package detectors

import "errors"

var (
	// ErrNotTrained is returned when scoring with a model that has not been fit.
	ErrNotTrained = errors.New("model not trained")
	// ErrEmptyData is returned when fitting on zero samples.
	ErrEmptyData = errors.New("empty training data")
	// ErrDimensionMismatch is returned when a sample's width differs from the
	// training data.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
)

// Detector is the common interface for outlier scoring models.
type Detector interface {
	// Fit trains the detector on a feature matrix.
	// data is a 2D slice where each row is a sample and each column is a feature.
	Fit(data [][]float64) error

	// Predict returns anomaly scores for the given samples.
	// Scores lie in (0, 1] where higher values indicate anomalies.
	Predict(data [][]float64) ([]float64, error)

	// PredictOne returns the anomaly score for a single sample.
	PredictOne(sample []float64) (float64, error)
}

// Config holds common configuration for detectors.
type Config struct {
	// Contamination is the expected proportion of anomalies in the data.
	Contamination float64
	// RandomSeed for reproducibility.
	RandomSeed int64
}

// DefaultConfig returns the defaults used for orbital anomaly detection.
func DefaultConfig() Config {
	return Config{
		Contamination: 0.05,
		RandomSeed:    42,
	}
}

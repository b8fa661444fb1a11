package anomaly

import (
	"errors"
	"fmt"

	"github.com/hed1ad/orbitguard/pkg/orbit"
)

// ErrEmptyDataset is returned when detection is asked to run on zero
// observations.
var ErrEmptyDataset = errors.New("empty dataset")

// InsufficientDataError is returned when the dataset is too small to fit an
// isolation forest.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d observations, need at least %d", e.Have, e.Need)
}

// FeatureExtractionError reports an observation whose feature value cannot
// enter the feature matrix.
type FeatureExtractionError struct {
	Index   int
	Feature orbit.Feature
	Reason  string
}

func (e *FeatureExtractionError) Error() string {
	return fmt.Sprintf("observation %d: feature %s: %s", e.Index, e.Feature, e.Reason)
}

// ConfigError reports an invalid detector option.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Option, e.Reason)
}

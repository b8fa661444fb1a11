package orbit

import (
	"strconv"
	"strings"
)

// Feature identifies one numeric orbital parameter of an Observation.
type Feature int

const (
	Period Feature = iota
	Eccentricity
	MeanAnomaly
	Inclination
	Altitude

	numFeatures
)

// DefaultFeatures is the feature set used for anomaly detection unless the
// caller selects another one.
var DefaultFeatures = []Feature{Period, Eccentricity, MeanAnomaly, Inclination}

var featureNames = [numFeatures]string{
	Period:       "Period",
	Eccentricity: "Eccentricity",
	MeanAnomaly:  "Mean Anomaly",
	Inclination:  "Inclination",
	Altitude:     "Altitude",
}

var featureFields = [numFeatures]string{
	Period:       FieldPeriod,
	Eccentricity: FieldEccentricity,
	MeanAnomaly:  FieldMeanAnomaly,
	Inclination:  FieldInclination,
	Altitude:     FieldAltitude,
}

// String returns the display name, e.g. "Mean Anomaly".
func (f Feature) String() string {
	if !f.Valid() {
		return "Feature(" + strconv.Itoa(int(f)) + ")"
	}
	return featureNames[f]
}

// Field returns the upstream record field name, e.g. "MEAN_ANOMALY".
func (f Feature) Field() string {
	if !f.Valid() {
		return ""
	}
	return featureFields[f]
}

// Valid reports whether f is one of the known features.
func (f Feature) Valid() bool {
	return f >= 0 && f < numFeatures
}

// ParseFeature accepts either a display name ("Mean Anomaly") or a record
// field name ("MEAN_ANOMALY"). Matching is case-insensitive.
func ParseFeature(name string) (Feature, error) {
	s := strings.TrimSpace(name)
	for f := Feature(0); f < numFeatures; f++ {
		if strings.EqualFold(s, featureNames[f]) || strings.EqualFold(s, featureFields[f]) {
			return f, nil
		}
	}
	return 0, &UnknownFeatureError{Name: name}
}

// ParseFeatures parses a list of feature names, preserving order.
func ParseFeatures(names []string) ([]Feature, error) {
	out := make([]Feature, 0, len(names))
	for _, n := range names {
		f, err := ParseFeature(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

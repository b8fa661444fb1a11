// Package orbit holds the time-indexed orbital-element dataset and the loader
// that builds it from raw GP/TLE records.
package orbit

import "time"

// Label classifies an Observation after anomaly detection.
type Label string

const (
	// LabelNone marks an observation that has not been through detection.
	LabelNone    Label = ""
	LabelNormal  Label = "Normal"
	LabelAnomaly Label = "Anomaly"
)

// Observation is one row of the time series.
type Observation struct {
	Epoch time.Time

	Period       float64
	Eccentricity float64
	MeanAnomaly  float64
	Inclination  float64

	// Altitude is the mean geocentric altitude in km. Only meaningful when
	// HasAltitude is set.
	Altitude    float64
	HasAltitude bool

	// Score is the anomaly score assigned by the detector; higher is more
	// anomalous.
	Score float64
	Label Label
}

// Value returns the value of feature f and whether it is present.
func (o Observation) Value(f Feature) (float64, bool) {
	switch f {
	case Period:
		return o.Period, true
	case Eccentricity:
		return o.Eccentricity, true
	case MeanAnomaly:
		return o.MeanAnomaly, true
	case Inclination:
		return o.Inclination, true
	case Altitude:
		return o.Altitude, o.HasAltitude
	}
	return 0, false
}

// Dataset is an ordered sequence of observations.
type Dataset struct {
	Observations []Observation
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Observations)
}

// Clone returns a copy whose observations can be modified independently.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Observations: make([]Observation, d.Len())}
	if d != nil {
		copy(out.Observations, d.Observations)
	}
	return out
}

// Labeled reports whether every observation carries a label.
func (d *Dataset) Labeled() bool {
	if d.Len() == 0 {
		return false
	}
	for _, o := range d.Observations {
		if o.Label == LabelNone {
			return false
		}
	}
	return true
}

// CountLabel returns how many observations carry label l.
func (d *Dataset) CountLabel(l Label) int {
	n := 0
	if d == nil {
		return n
	}
	for _, o := range d.Observations {
		if o.Label == l {
			n++
		}
	}
	return n
}

// Point is a single sample of a one-feature series, ready for plotting.
type Point struct {
	Epoch time.Time `json:"epoch"`
	Value float64   `json:"value"`
	Label Label     `json:"anomaly_label"`
}

// Series extracts feature f as a time series. Observations lacking f are
// omitted.
func (d *Dataset) Series(f Feature) []Point {
	points := make([]Point, 0, d.Len())
	if d == nil {
		return points
	}
	for _, o := range d.Observations {
		v, ok := o.Value(f)
		if !ok {
			continue
		}
		points = append(points, Point{Epoch: o.Epoch, Value: v, Label: o.Label})
	}
	return points
}

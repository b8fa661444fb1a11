package json

import (
	"io"
	"time"

	"github.com/pkg/errors"

	orbitio "github.com/hed1ad/orbitguard/pkg/io"
	"github.com/hed1ad/orbitguard/pkg/orbit"
)

type observationJSON struct {
	Epoch        string      `json:"EPOCH"`
	Period       float64     `json:"PERIOD"`
	Eccentricity float64     `json:"ECCENTRICITY"`
	MeanAnomaly  float64     `json:"MEAN_ANOMALY"`
	Inclination  float64     `json:"INCLINATION"`
	Altitude     *float64    `json:"ALTITUDE_KM,omitempty"`
	Score        float64     `json:"SCORE"`
	Label        orbit.Label `json:"ANOMALY_LABEL"`
}

// Writer writes labeled results as an indented JSON array.
type Writer struct {
	w io.Writer
}

// NewWriter creates a writer on top of w. Closing the Writer does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteDataset writes every observation.
func (w *Writer) WriteDataset(ds *orbit.Dataset) error {
	rows := make([]observationJSON, 0, ds.Len())
	if ds != nil {
		for _, o := range ds.Observations {
			row := observationJSON{
				Epoch:        o.Epoch.UTC().Format(time.RFC3339Nano),
				Period:       o.Period,
				Eccentricity: o.Eccentricity,
				MeanAnomaly:  o.MeanAnomaly,
				Inclination:  o.Inclination,
				Score:        o.Score,
				Label:        o.Label,
			}
			if o.HasAltitude {
				alt := o.Altitude
				row.Altitude = &alt
			}
			rows = append(rows, row)
		}
	}
	return w.encode(rows)
}

// WriteSeries writes a single-feature series keyed by the feature's field
// name.
func (w *Writer) WriteSeries(f orbit.Feature, points []orbit.Point) error {
	rows := make([]map[string]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, map[string]any{
			orbit.FieldEpoch:    p.Epoch.UTC().Format(time.RFC3339Nano),
			f.Field():           p.Value,
			orbitio.ColumnLabel: p.Label,
		})
	}
	return w.encode(rows)
}

func (w *Writer) encode(v any) error {
	enc := jsonAPI.NewEncoder(w.w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encoding results")
}

// Close is a no-op; the underlying writer belongs to the caller.
func (w *Writer) Close() error {
	return nil
}

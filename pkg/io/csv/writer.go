package csv

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	orbitio "github.com/hed1ad/orbitguard/pkg/io"
	"github.com/hed1ad/orbitguard/pkg/orbit"
)

// Writer writes labeled results as CSV with a header row.
type Writer struct {
	w *csv.Writer
}

// NewWriter creates a writer on top of w. Closing the Writer flushes but does
// not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// WriteDataset writes every observation. The ALTITUDE_KM column is included
// only when some observation carries an altitude.
func (w *Writer) WriteDataset(ds *orbit.Dataset) error {
	withAltitude := false
	if ds != nil {
		for _, o := range ds.Observations {
			if o.HasAltitude {
				withAltitude = true
				break
			}
		}
	}

	header := []string{
		orbit.FieldEpoch,
		orbit.FieldPeriod,
		orbit.FieldEccentricity,
		orbit.FieldMeanAnomaly,
		orbit.FieldInclination,
	}
	if withAltitude {
		header = append(header, orbit.FieldAltitude)
	}
	header = append(header, orbitio.ColumnScore, orbitio.ColumnLabel)
	if err := w.w.Write(header); err != nil {
		return errors.Wrap(err, "writing csv header")
	}

	if ds != nil {
		for i, o := range ds.Observations {
			row := []string{
				formatEpoch(o.Epoch),
				formatFloat(o.Period),
				formatFloat(o.Eccentricity),
				formatFloat(o.MeanAnomaly),
				formatFloat(o.Inclination),
			}
			if withAltitude {
				alt := ""
				if o.HasAltitude {
					alt = formatFloat(o.Altitude)
				}
				row = append(row, alt)
			}
			row = append(row, formatFloat(o.Score), string(o.Label))
			if err := w.w.Write(row); err != nil {
				return errors.Wrapf(err, "writing csv row %d", i)
			}
		}
	}

	w.w.Flush()
	return errors.Wrap(w.w.Error(), "flushing csv")
}

// WriteSeries writes EPOCH, the feature column and ANOMALY_LABEL.
func (w *Writer) WriteSeries(f orbit.Feature, points []orbit.Point) error {
	if err := w.w.Write([]string{orbit.FieldEpoch, f.Field(), orbitio.ColumnLabel}); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for i, p := range points {
		if err := w.w.Write([]string{formatEpoch(p.Epoch), formatFloat(p.Value), string(p.Label)}); err != nil {
			return errors.Wrapf(err, "writing csv row %d", i)
		}
	}
	w.w.Flush()
	return errors.Wrap(w.w.Error(), "flushing csv")
}

// Close flushes buffered rows.
func (w *Writer) Close() error {
	w.w.Flush()
	return w.w.Error()
}

func formatEpoch(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

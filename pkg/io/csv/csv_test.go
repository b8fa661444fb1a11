package csv

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/orbitguard/pkg/orbit"
)

const hstCSV = `OBJECT_NAME,EPOCH,PERIOD,ECCENTRICITY,MEAN_ANOMALY,INCLINATION
HST,2024-03-02T18:44:49.398432,95.08,0.0002494,291.9534,28.4700
HST,2024-03-01T06:12:01.100000,95.09,0.0002501,10.5,28.4699
`

func TestReaderRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hst.csv")
	require.NoError(t, os.WriteFile(path, []byte(hstCSV), 0o600))

	r := NewReader(path)
	defer r.Close()

	records, err := r.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "HST", records[1]["OBJECT_NAME"])
	assert.Equal(t, "95.09", records[1]["PERIOD"])

	ds, err := orbit.Load(records)
	require.NoError(t, err)
	assert.Equal(t, 28.4699, ds.Observations[1].Inclination)
}

func TestReadRecordsSemicolon(t *testing.T) {
	src := "\ufeffEPOCH;PERIOD\n2024-01-01;95.1\n"
	records, err := ReadRecords(strings.NewReader(src), ';')
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-01-01", records[0]["EPOCH"])
	assert.Equal(t, "95.1", records[0]["PERIOD"])
}

func TestReadRecordsEmptyCellIsMissing(t *testing.T) {
	src := strings.Replace(hstCSV, ",0.0002501,", ",,", 1)
	records, err := ReadRecords(strings.NewReader(src), ',')
	require.NoError(t, err)

	_, err = orbit.Load(records)
	var target *orbit.MissingFieldError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, orbit.FieldEccentricity, target.Field)
	assert.Equal(t, 1, target.Index)
}

func TestReadRecordsErrors(t *testing.T) {
	_, err := ReadRecords(strings.NewReader("EPOCH,PERIOD\n2024-01-01\n"), ',')
	assert.Error(t, err)

	records, err := ReadRecords(strings.NewReader(""), ',')
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestWriterDataset(t *testing.T) {
	epoch := time.Date(2024, 3, 2, 18, 44, 49, 0, time.UTC)
	ds := &orbit.Dataset{Observations: []orbit.Observation{
		{Epoch: epoch, Period: 95.08, Eccentricity: 0.00025, MeanAnomaly: 291.95, Inclination: 28.47, Score: 0.5, Label: orbit.LabelNormal},
		{Epoch: epoch, Period: 120, Eccentricity: 0.00025, MeanAnomaly: 10, Inclination: 28.47, Score: 0.75, Label: orbit.LabelAnomaly},
	}}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteDataset(ds))
	require.NoError(t, w.Close())

	want := "EPOCH,PERIOD,ECCENTRICITY,MEAN_ANOMALY,INCLINATION,SCORE,ANOMALY_LABEL\n" +
		"2024-03-02T18:44:49Z,95.08,0.00025,291.95,28.47,0.5,Normal\n" +
		"2024-03-02T18:44:49Z,120,0.00025,10,28.47,0.75,Anomaly\n"
	assert.Equal(t, want, buf.String())

	// The output is itself a valid source.
	records, err := ReadRecords(&buf, ',')
	require.NoError(t, err)
	back, err := orbit.Load(records)
	require.NoError(t, err)
	assert.Equal(t, 120.0, back.Observations[1].Period)
}

func TestWriterAltitudeColumn(t *testing.T) {
	ds := &orbit.Dataset{Observations: []orbit.Observation{
		{Altitude: 512.5, HasAltitude: true, Label: orbit.LabelNormal},
		{Label: orbit.LabelNormal},
	}}
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteDataset(ds))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "ALTITUDE_KM")
	assert.Contains(t, lines[1], ",512.5,")
	assert.Contains(t, lines[2], ",,")
}

func TestWriterSeries(t *testing.T) {
	epoch := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := NewWriter(&buf).WriteSeries(orbit.MeanAnomaly, []orbit.Point{
		{Epoch: epoch, Value: 291.95, Label: orbit.LabelAnomaly},
	})
	require.NoError(t, err)
	assert.Equal(t, "EPOCH,MEAN_ANOMALY,ANOMALY_LABEL\n2024-03-02T00:00:00Z,291.95,Anomaly\n", buf.String())
}

package orbit

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hstRecord(epoch string, period any) Record {
	return Record{
		FieldEpoch:        epoch,
		FieldPeriod:       period,
		FieldEccentricity: "0.0002494",
		FieldMeanAnomaly:  "291.9534",
		FieldInclination:  "28.4700",
	}
}

func TestLoad(t *testing.T) {
	records := []Record{
		hstRecord("2024-03-02T18:44:49.398432", "95.08"),
		hstRecord("2024-03-01T06:12:01.100000", 95.07),
		hstRecord("2024-03-01T06:12:01.100000", json.Number("95.07")),
	}

	ds, err := Load(records)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	// Input order is kept, no sort, no dedup.
	first := ds.Observations[0]
	assert.Equal(t, time.Date(2024, 3, 2, 18, 44, 49, 398432000, time.UTC), first.Epoch)
	assert.Equal(t, 95.08, first.Period)
	assert.Equal(t, 0.0002494, first.Eccentricity)
	assert.Equal(t, 291.9534, first.MeanAnomaly)
	assert.Equal(t, 28.47, first.Inclination)
	assert.False(t, first.HasAltitude)
	assert.Equal(t, LabelNone, first.Label)

	assert.True(t, ds.Observations[1].Epoch.Before(first.Epoch))
	assert.Equal(t, ds.Observations[1], ds.Observations[2])
}

func TestLoadEmpty(t *testing.T) {
	ds, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
}

func TestLoadAltitude(t *testing.T) {
	rec := hstRecord("2024-03-02T18:44:49Z", "95.08")
	rec[FieldAltitude] = 512.3

	ds, err := Load([]Record{rec})
	require.NoError(t, err)

	v, ok := ds.Observations[0].Value(Altitude)
	assert.True(t, ok)
	assert.Equal(t, 512.3, v)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Record)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "missing eccentricity",
			mutate: func(r Record) { delete(r, FieldEccentricity) },
			check: func(t *testing.T, err error) {
				var target *MissingFieldError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, FieldEccentricity, target.Field)
				assert.Equal(t, 2, target.Index)
			},
		},
		{
			name:   "nil epoch counts as missing",
			mutate: func(r Record) { r[FieldEpoch] = nil },
			check: func(t *testing.T, err error) {
				var target *MissingFieldError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, FieldEpoch, target.Field)
			},
		},
		{
			name:   "malformed epoch",
			mutate: func(r Record) { r[FieldEpoch] = "yesterday" },
			check: func(t *testing.T, err error) {
				var target *MalformedTimestampError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, 2, target.Index)
				assert.Equal(t, "yesterday", target.Value)
			},
		},
		{
			name:   "numeric epoch",
			mutate: func(r Record) { r[FieldEpoch] = 1709405089 },
			check: func(t *testing.T, err error) {
				var target *MalformedTimestampError
				assert.True(t, errors.As(err, &target))
			},
		},
		{
			name:   "malformed inclination",
			mutate: func(r Record) { r[FieldInclination] = "28.47deg" },
			check: func(t *testing.T, err error) {
				var target *MalformedNumberError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, FieldInclination, target.Field)
				assert.Equal(t, 2, target.Index)
			},
		},
		{
			name:   "bool period",
			mutate: func(r Record) { r[FieldPeriod] = true },
			check: func(t *testing.T, err error) {
				var target *MalformedNumberError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, FieldPeriod, target.Field)
			},
		},
		{
			name:   "malformed altitude",
			mutate: func(r Record) { r[FieldAltitude] = "high" },
			check: func(t *testing.T, err error) {
				var target *MalformedNumberError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, FieldAltitude, target.Field)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []Record{
				hstRecord("2024-03-01T00:00:00", "95.0"),
				hstRecord("2024-03-02T00:00:00", "95.0"),
				hstRecord("2024-03-03T00:00:00", "95.0"),
			}
			tt.mutate(records[2])

			ds, err := Load(records)
			assert.Nil(t, ds)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestParseEpochLayouts(t *testing.T) {
	want := time.Date(2024, 3, 2, 18, 44, 49, 0, time.UTC)
	for _, s := range []string{
		"2024-03-02T18:44:49Z",
		"2024-03-02T18:44:49",
		"2024-03-02 18:44:49",
		" 2024-03-02T18:44:49.000 ",
	} {
		got, err := ParseEpoch(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	got, err := ParseEpoch("2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseEpoch("")
	assert.Error(t, err)
}

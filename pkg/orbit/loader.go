package orbit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record field names, fixed by the GP data convention.
const (
	FieldEpoch        = "EPOCH"
	FieldPeriod       = "PERIOD"
	FieldEccentricity = "ECCENTRICITY"
	FieldMeanAnomaly  = "MEAN_ANOMALY"
	FieldInclination  = "INCLINATION"
	FieldAltitude     = "ALTITUDE_KM"
)

// RequiredFields lists the fields every record must carry.
var RequiredFields = []string{FieldEpoch, FieldPeriod, FieldEccentricity, FieldMeanAnomaly, FieldInclination}

// Record is one raw element set as delivered by a source: field name to
// scalar value.
type Record map[string]any

var errNotNumeric = errors.New("value is not numeric")

// epochLayouts are tried in order. Layouts without a zone are read as UTC.
var epochLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Load converts raw records into a Dataset. Record order is preserved and no
// deduplication happens. The first invalid record aborts the load.
func Load(records []Record) (*Dataset, error) {
	ds := &Dataset{Observations: make([]Observation, 0, len(records))}
	for i, rec := range records {
		obs, err := loadRecord(i, rec)
		if err != nil {
			return nil, err
		}
		ds.Observations = append(ds.Observations, obs)
	}
	return ds, nil
}

func loadRecord(index int, rec Record) (Observation, error) {
	var obs Observation

	for _, field := range RequiredFields {
		if v, ok := rec[field]; !ok || v == nil {
			return obs, &MissingFieldError{Field: field, Index: index}
		}
	}

	epoch, err := ParseEpoch(rec[FieldEpoch])
	if err != nil {
		return obs, &MalformedTimestampError{Index: index, Value: rec[FieldEpoch], Err: err}
	}
	obs.Epoch = epoch

	targets := []struct {
		field string
		dst   *float64
	}{
		{FieldPeriod, &obs.Period},
		{FieldEccentricity, &obs.Eccentricity},
		{FieldMeanAnomaly, &obs.MeanAnomaly},
		{FieldInclination, &obs.Inclination},
	}
	for _, t := range targets {
		v, err := ParseNumber(rec[t.field])
		if err != nil {
			return obs, &MalformedNumberError{Field: t.field, Index: index, Value: rec[t.field], Err: err}
		}
		*t.dst = v
	}

	if raw, ok := rec[FieldAltitude]; ok && raw != nil {
		v, err := ParseNumber(raw)
		if err != nil {
			return obs, &MalformedNumberError{Field: FieldAltitude, Index: index, Value: raw, Err: err}
		}
		obs.Altitude = v
		obs.HasAltitude = true
	}

	return obs, nil
}

// ParseEpoch parses an EPOCH value. Strings are tried against RFC 3339 and
// the zone-less GP layout; time.Time values pass through.
func ParseEpoch(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, errors.New("empty timestamp")
		}
		var lastErr error
		for _, layout := range epochLayouts {
			ts, err := time.ParseInLocation(layout, s, time.UTC)
			if err == nil {
				return ts, nil
			}
			lastErr = err
		}
		return time.Time{}, lastErr
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// ParseNumber converts a scalar record value to float64.
func ParseNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case interface{ Float64() (float64, error) }:
		// json.Number and equivalents
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, errNotNumeric
	}
}

// Package tle reads two-line and three-line element sets and turns them into
// GP-style records, adding an SGP4-derived altitude.
package tle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	orbitio "github.com/hed1ad/orbitguard/pkg/io"
	"github.com/hed1ad/orbitguard/pkg/orbit"
)

var log = logrus.WithField("component", "tle")

// Extra record fields produced besides the loader's required ones.
const (
	FieldObjectName = "OBJECT_NAME"
	FieldNoradID    = "NORAD_CAT_ID"
	FieldMeanMotion = "MEAN_MOTION"
)

// wgs72Radius is the WGS72 equatorial radius in km, matching GravityWGS72.
const wgs72Radius = 6378.135

const lineLength = 69

// FormatError reports a malformed element set.
type FormatError struct {
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("tle line %d: %s", e.Line, e.Reason)
}

// Reader reads element sets from a file, stdin or URL.
type Reader struct {
	source        string
	checkChecksum bool
	withAltitude  bool
}

// Option configures a TLE reader.
type Option func(*Reader)

// WithChecksum toggles modulo-10 checksum verification (default on).
func WithChecksum(on bool) Option {
	return func(r *Reader) {
		r.checkChecksum = on
	}
}

// WithAltitude toggles SGP4 altitude derivation (default on).
func WithAltitude(on bool) Option {
	return func(r *Reader) {
		r.withAltitude = on
	}
}

// NewReader creates a reader for the given source name.
func NewReader(source string, opts ...Option) *Reader {
	r := &Reader{
		source:        source,
		checkChecksum: true,
		withAltitude:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read returns one record per element set, in file order.
func (r *Reader) Read(ctx context.Context) ([]orbit.Record, error) {
	rc, err := orbitio.Open(ctx, r.source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return r.parse(rc)
}

// Close releases resources.
func (r *Reader) Close() error {
	return nil
}

// ParseRecords parses TLE text with checksum verification and altitude
// derivation enabled.
func ParseRecords(src io.Reader) ([]orbit.Record, error) {
	return NewReader("").parse(src)
}

func (r *Reader) parse(src io.Reader) ([]orbit.Record, error) {
	var (
		records  []orbit.Record
		name     string
		nameLine int
		line1    string
		line1No  int
	)

	scanner := bufio.NewScanner(src)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		switch {
		case line1 != "":
			if !strings.HasPrefix(text, "2 ") {
				return nil, &FormatError{Line: lineNo, Reason: "expected line 2"}
			}
			rec, err := r.elementSet(name, line1, line1No, text, lineNo)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			name, line1 = "", ""
		case strings.HasPrefix(text, "1 "):
			line1, line1No = text, lineNo
		case strings.HasPrefix(text, "2 "):
			return nil, &FormatError{Line: lineNo, Reason: "line 2 without line 1"}
		default:
			if name != "" {
				return nil, &FormatError{Line: nameLine, Reason: "title line without element set"}
			}
			name = strings.TrimSpace(strings.TrimPrefix(text, "0 "))
			nameLine = lineNo
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading tle")
	}
	if line1 != "" {
		return nil, &FormatError{Line: line1No, Reason: "line 1 without line 2"}
	}
	if name != "" {
		return nil, &FormatError{Line: nameLine, Reason: "title line without element set"}
	}

	log.WithField("element_sets", len(records)).Debug("parsed tle")
	return records, nil
}

func (r *Reader) elementSet(name, l1 string, l1No int, l2 string, l2No int) (orbit.Record, error) {
	for _, l := range []struct {
		text string
		no   int
	}{{l1, l1No}, {l2, l2No}} {
		if len(l.text) != lineLength {
			return nil, &FormatError{Line: l.no, Reason: fmt.Sprintf("length %d, want %d", len(l.text), lineLength)}
		}
		if r.checkChecksum {
			if want, got := checksum(l.text), l.text[68]; got != byte('0'+want) {
				return nil, &FormatError{Line: l.no, Reason: fmt.Sprintf("checksum %c, want %d", got, want)}
			}
		}
	}

	cat1 := strings.TrimSpace(l1[2:7])
	cat2 := strings.TrimSpace(l2[2:7])
	if cat1 != cat2 {
		return nil, &FormatError{Line: l2No, Reason: fmt.Sprintf("catalog number %s does not match line 1 (%s)", cat2, cat1)}
	}
	noradID, err := strconv.Atoi(cat1)
	if err != nil {
		return nil, &FormatError{Line: l1No, Reason: "catalog number: " + err.Error()}
	}

	epoch, err := parseEpoch(l1[18:20], l1[20:32])
	if err != nil {
		return nil, &FormatError{Line: l1No, Reason: "epoch: " + err.Error()}
	}

	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{orbit.FieldInclination, l2[8:16], new(float64)},
		{orbit.FieldEccentricity, "0." + strings.TrimSpace(l2[26:33]), new(float64)},
		{orbit.FieldMeanAnomaly, l2[43:51], new(float64)},
		{FieldMeanMotion, l2[52:63], new(float64)},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
		if err != nil {
			return nil, &FormatError{Line: l2No, Reason: fmt.Sprintf("%s: %v", f.name, err)}
		}
		*f.dst = v
	}
	meanMotion := *fields[3].dst
	if meanMotion <= 0 {
		return nil, &FormatError{Line: l2No, Reason: "mean motion must be positive"}
	}

	rec := orbit.Record{
		FieldNoradID:            noradID,
		orbit.FieldEpoch:        epoch.Format(time.RFC3339Nano),
		orbit.FieldInclination:  *fields[0].dst,
		orbit.FieldEccentricity: *fields[1].dst,
		orbit.FieldMeanAnomaly:  *fields[2].dst,
		FieldMeanMotion:         meanMotion,
		orbit.FieldPeriod:       1440 / meanMotion,
	}
	if name != "" {
		rec[FieldObjectName] = name
	}
	if r.withAltitude {
		if alt, ok := altitudeAt(l1, l2, epoch); ok {
			rec[orbit.FieldAltitude] = alt
		}
	}
	return rec, nil
}

// altitudeAt propagates the element set to t with SGP4 and returns the height
// above the WGS72 equatorial radius in km.
func altitudeAt(l1, l2 string, t time.Time) (float64, bool) {
	sat := satellite.TLEToSat(l1, l2, satellite.GravityWGS72)

	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	pos, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)

	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if math.IsNaN(r) || r == 0 {
		return 0, false
	}
	return r - wgs72Radius, true
}

// parseEpoch decodes the two-digit year and fractional day of year.
func parseEpoch(yy, days string) (time.Time, error) {
	y, err := strconv.Atoi(strings.TrimSpace(yy))
	if err != nil {
		return time.Time{}, err
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(days), 64)
	if err != nil {
		return time.Time{}, err
	}
	if d < 1 || d >= 367 {
		return time.Time{}, fmt.Errorf("day of year %v out of range", d)
	}
	// Two-digit years follow the NORAD convention: 57-99 are 19xx.
	if y < 57 {
		y += 2000
	} else {
		y += 1900
	}
	offset := time.Duration(math.Round((d - 1) * 24 * float64(time.Hour) / float64(time.Microsecond)))
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC).Add(offset * time.Microsecond), nil
}

func checksum(line string) int {
	sum := 0
	for _, c := range line[:lineLength-1] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// Package csv provides CSV reading of element-set records and CSV output of
// labeled results.
package csv

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"

	orbitio "github.com/hed1ad/orbitguard/pkg/io"
	"github.com/hed1ad/orbitguard/pkg/orbit"
)

// Reader reads records from CSV data whose first row names the fields.
type Reader struct {
	source string
	comma  rune
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithComma sets the field delimiter.
func WithComma(r rune) Option {
	return func(rd *Reader) {
		rd.comma = r
	}
}

// NewReader creates a new CSV reader for a file path, stdin or URL.
func NewReader(source string, opts ...Option) *Reader {
	r := &Reader{
		source: source,
		comma:  ',',
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Read returns every data row as a record keyed by header name.
func (r *Reader) Read(ctx context.Context) ([]orbit.Record, error) {
	rc, err := orbitio.Open(ctx, r.source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return ReadRecords(rc, r.comma)
}

// ReadRecords parses CSV from src. Empty cells are left out of the record, so
// the loader reports them as missing fields. A row with the wrong number of
// columns is an error.
func ReadRecords(src io.Reader, comma rune) ([]orbit.Record, error) {
	reader := csv.NewReader(src)
	reader.Comma = comma

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading csv header")
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(headers[i], "\ufeff"))
	}

	var records []orbit.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading csv record %d", len(records))
		}

		records = append(records, parseRow(headers, row))
	}

	return records, nil
}

// parseRow converts a CSV row into a record.
func parseRow(headers, row []string) orbit.Record {
	rec := make(orbit.Record, len(headers))
	for i, val := range row {
		if strings.TrimSpace(val) == "" {
			continue
		}
		rec[headers[i]] = val
	}
	return rec
}

// Close releases resources.
func (r *Reader) Close() error {
	return nil
}

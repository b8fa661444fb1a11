// Package json reads GP element sets published as a JSON array and writes
// labeled results as JSON.
package json

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	orbitio "github.com/hed1ad/orbitguard/pkg/io"
	"github.com/hed1ad/orbitguard/pkg/orbit"
)

var jsonAPI = jsoniter.Config{
	EscapeHTML:             true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Reader reads a JSON array of GP records from a file, stdin or URL.
type Reader struct {
	source string
}

// NewReader creates a reader for the given source name.
func NewReader(source string) *Reader {
	return &Reader{source: source}
}

// Read returns all records in array order.
func (r *Reader) Read(ctx context.Context) ([]orbit.Record, error) {
	rc, err := orbitio.Open(ctx, r.source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var records []orbit.Record
	if err := jsonAPI.NewDecoder(rc).Decode(&records); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", r.source)
	}
	return records, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	return nil
}

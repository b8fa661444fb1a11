// Package io provides record sources and result writers around the
// orbital dataset.
package io

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/hed1ad/orbitguard/pkg/orbit"
)

// RecordReader is the interface for reading raw element-set records from
// various sources.
type RecordReader interface {
	// Read returns every record of the source, in source order.
	Read(ctx context.Context) ([]orbit.Record, error)

	// Close releases resources.
	Close() error
}

// Writer is the interface for writing labeled detection results.
type Writer interface {
	// WriteDataset outputs every observation with its score and label.
	WriteDataset(ds *orbit.Dataset) error

	// WriteSeries outputs a single-feature series.
	WriteSeries(f orbit.Feature, points []orbit.Point) error

	// Close flushes and releases resources.
	Close() error
}

// Format names a record or result encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTLE  Format = "tle"
)

// DetectFormat guesses the format from a file name or URL path. JSON is
// assumed when nothing matches.
func DetectFormat(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".tle", ".txt", ".3le", ".2le":
		return FormatTLE
	default:
		return FormatJSON
	}
}

// Result column names shared by the writers.
const (
	ColumnScore = "SCORE"
	ColumnLabel = "ANOMALY_LABEL"
)

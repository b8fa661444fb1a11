package io

import (
	"context"
	goio "io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"hst.json", FormatJSON},
		{"HST.CSV", FormatCSV},
		{"stations.tle", FormatTLE},
		{"stations.txt", FormatTLE},
		{"https://example.org/gp.php?CATNR=20580&FORMAT=json", FormatJSON},
		{"https://example.org/data.csv?x=1", FormatCSV},
		{"-", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.name))
		})
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gp.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	rc, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()

	b, err := goio.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	_, err = Open(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestOpenURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"EPOCH":"2024-01-01T00:00:00"}]`))
	}))
	defer srv.Close()

	rc, err := Open(context.Background(), srv.URL+"/gp")
	require.NoError(t, err)
	b, err := goio.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Contains(t, string(b), "EPOCH")

	_, err = Open(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

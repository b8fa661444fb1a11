package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHSTInput(t *testing.T, n, outlier int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("EPOCH,PERIOD,ECCENTRICITY,MEAN_ANOMALY,INCLINATION\n")
	for i := 0; i < n; i++ {
		incl := 28.47 + float64(i%5)*0.0002
		if i == outlier {
			incl = 999.0
		}
		fmt.Fprintf(&sb, "2024-03-%02dT00:00:00,%.4f,0.00025,%.1f,%.4f\n", i%28+1, 95.08+float64(i%3)*0.001, float64(i*17%360), incl)
	}
	path := filepath.Join(t.TempDir(), "hst.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func TestRunDetectCSV(t *testing.T) {
	opts := defaultDetectOptions()
	opts.Input = writeHSTInput(t, 40, 12)
	opts.MetricsFile = filepath.Join(t.TempDir(), "run.prom")

	var out bytes.Buffer
	require.NoError(t, runDetect(context.Background(), &opts, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 41)
	assert.Equal(t, "EPOCH,PERIOD,ECCENTRICITY,MEAN_ANOMALY,INCLINATION,SCORE,ANOMALY_LABEL", lines[0])
	assert.True(t, strings.HasSuffix(lines[13], ",Anomaly"), lines[13])
	assert.Equal(t, 2, strings.Count(out.String(), ",Anomaly\n"))

	prom, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `orbitguard_detection_runs_total{result="ok"} 1`)
}

func TestRunDetectSeriesJSON(t *testing.T) {
	opts := defaultDetectOptions()
	opts.Input = writeHSTInput(t, 20, 3)
	opts.Field = "Inclination"
	opts.OutputFormat = "json"
	opts.Output = filepath.Join(t.TempDir(), "series.json")

	var stdout bytes.Buffer
	require.NoError(t, runDetect(context.Background(), &opts, &stdout))
	assert.Empty(t, stdout.String())

	b, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Contains(t, string(b), "INCLINATION")
	assert.Contains(t, string(b), "Anomaly")
	assert.NotContains(t, string(b), "PERIOD")
}

func TestRunDetectErrors(t *testing.T) {
	input := writeHSTInput(t, 10, -1)

	tests := []struct {
		name    string
		mutate  func(*detectOptions)
		wantErr string
	}{
		{"unknown feature", func(o *detectOptions) { o.Features = []string{"RAAN"} }, "unknown feature"},
		{"unknown field", func(o *detectOptions) { o.Field = "Drag" }, "unknown feature"},
		{"unknown input format", func(o *detectOptions) { o.Format = "xml" }, "unknown input format"},
		{"unknown output format", func(o *detectOptions) { o.OutputFormat = "yaml" }, "unknown output format"},
		{"bad contamination", func(o *detectOptions) { o.Contamination = 0.9 }, "contamination"},
		{"missing input", func(o *detectOptions) { o.Input = filepath.Join(t.TempDir(), "none.csv") }, "opening"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultDetectOptions()
			opts.Input = input
			tt.mutate(&opts)

			err := runDetect(context.Background(), &opts, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDetectCmdFlags(t *testing.T) {
	cmd := newDetectCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--contamination", "0.1", "--features", "Period,Inclination", "--seed", "7"}))

	c, err := cmd.Flags().GetFloat64("contamination")
	require.NoError(t, err)
	assert.Equal(t, 0.1, c)
	f, err := cmd.Flags().GetStringSlice("features")
	require.NoError(t, err)
	assert.Equal(t, []string{"Period", "Inclination"}, f)
}

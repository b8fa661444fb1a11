package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hed1ad/orbitguard/pkg/anomaly"
	"github.com/hed1ad/orbitguard/pkg/detectors"
	orbitio "github.com/hed1ad/orbitguard/pkg/io"
	"github.com/hed1ad/orbitguard/pkg/io/csv"
	"github.com/hed1ad/orbitguard/pkg/io/json"
	"github.com/hed1ad/orbitguard/pkg/io/tle"
	"github.com/hed1ad/orbitguard/pkg/metrics"
	"github.com/hed1ad/orbitguard/pkg/orbit"
)

// detectOptions holds the detect command parameters.
type detectOptions struct {
	Input         string
	Format        string
	Contamination float64
	Seed          int64
	Trees         int
	SampleSize    int
	Workers       int
	Features      []string
	Field         string
	Output        string
	OutputFormat  string
	MetricsFile   string
}

func defaultDetectOptions() detectOptions {
	cfg := detectors.DefaultConfig()
	names := make([]string, 0, len(orbit.DefaultFeatures))
	for _, f := range orbit.DefaultFeatures {
		names = append(names, f.String())
	}
	return detectOptions{
		Input:         orbitio.Stdin,
		Contamination: cfg.Contamination,
		Seed:          cfg.RandomSeed,
		Trees:         100,
		SampleSize:    256,
		Features:      names,
		Output:        "-",
		OutputFormat:  string(orbitio.FormatCSV),
	}
}

func newDetectCmd() *cobra.Command {
	opts := defaultDetectOptions()
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Load element sets, fit an isolation forest and label every observation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDetect(cmd.Context(), &opts, cmd.OutOrStdout())
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&opts.Input, "input", "i", opts.Input, "Input file, http(s) URL, or - for stdin")
	fl.StringVar(&opts.Format, "format", "", "Input format: json, csv or tle (default: from the input extension)")
	fl.Float64Var(&opts.Contamination, "contamination", opts.Contamination, "Expected fraction of anomalous observations, in (0, 0.5)")
	fl.Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	fl.IntVar(&opts.Trees, "trees", opts.Trees, "Number of isolation trees")
	fl.IntVar(&opts.SampleSize, "sample-size", opts.SampleSize, "Subsample size per tree")
	fl.IntVar(&opts.Workers, "workers", 0, "Goroutines used to build trees (default: GOMAXPROCS)")
	fl.StringSliceVar(&opts.Features, "features", opts.Features, "Features used for detection")
	fl.StringVar(&opts.Field, "field", "", "Write only this feature as a labeled time series")
	fl.StringVarP(&opts.Output, "output", "o", opts.Output, "Output file, or - for stdout")
	fl.StringVar(&opts.OutputFormat, "output-format", opts.OutputFormat, "Output format: csv or json")
	fl.StringVar(&opts.MetricsFile, "metrics-file", "", "Write run metrics in Prometheus textfile format to this path")

	return cmd
}

func runDetect(ctx context.Context, opts *detectOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	features, err := orbit.ParseFeatures(opts.Features)
	if err != nil {
		return err
	}
	var field orbit.Feature
	if opts.Field != "" {
		if field, err = orbit.ParseFeature(opts.Field); err != nil {
			return err
		}
	}

	reader, err := newRecordReader(opts.Input, opts.Format)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, err := reader.Read(ctx)
	if err != nil {
		return err
	}
	log.WithField("records", len(records)).Debugf("read %s", opts.Input)

	ds, err := orbit.Load(records)
	if err != nil {
		return errors.Wrap(err, "loading records")
	}

	detectOpts := []anomaly.Option{
		anomaly.WithFeatures(features...),
		anomaly.WithContamination(opts.Contamination),
		anomaly.WithSeed(opts.Seed),
		anomaly.WithTrees(opts.Trees),
		anomaly.WithSampleSize(opts.SampleSize),
	}
	if opts.Workers > 0 {
		detectOpts = append(detectOpts, anomaly.WithWorkers(opts.Workers))
	}
	var collector *metrics.Collector
	if opts.MetricsFile != "" {
		if collector, err = metrics.NewCollector(prometheus.NewRegistry()); err != nil {
			return err
		}
		detectOpts = append(detectOpts, anomaly.WithObserver(collector))
	}

	labeled, report, err := anomaly.DetectWithReport(ds, detectOpts...)
	if collector != nil {
		if werr := collector.WriteTextfile(opts.MetricsFile); werr != nil {
			log.WithError(werr).Warn("could not write metrics file")
		}
	}
	if err != nil {
		return errors.Wrap(err, "detecting anomalies")
	}
	log.WithFields(log.Fields{
		"observations": report.Observations,
		"anomalies":    report.Anomalies,
		"threshold":    report.Threshold,
		"duration":     report.Duration,
	}).Info("detection complete")

	out, closeOut, err := openOutput(opts.Output, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	writer, err := newWriter(opts.OutputFormat, out)
	if err != nil {
		return err
	}
	if opts.Field != "" {
		err = writer.WriteSeries(field, labeled.Series(field))
	} else {
		err = writer.WriteDataset(labeled)
	}
	if err != nil {
		return err
	}
	return writer.Close()
}

func newRecordReader(input, format string) (orbitio.RecordReader, error) {
	f := orbitio.Format(format)
	if f == "" {
		f = orbitio.DetectFormat(input)
	}
	switch f {
	case orbitio.FormatJSON:
		return json.NewReader(input), nil
	case orbitio.FormatCSV:
		return csv.NewReader(input), nil
	case orbitio.FormatTLE:
		return tle.NewReader(input), nil
	default:
		return nil, errors.Errorf("unknown input format %q", format)
	}
}

func newWriter(format string, w io.Writer) (orbitio.Writer, error) {
	switch orbitio.Format(format) {
	case orbitio.FormatCSV:
		return csv.NewWriter(w), nil
	case orbitio.FormatJSON:
		return json.NewWriter(w), nil
	default:
		return nil, errors.Errorf("unknown output format %q", format)
	}
}

func openOutput(name string, stdout io.Writer) (io.Writer, func(), error) {
	if name == "" || name == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "creating %s", name)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warnf("closing %s", name)
		}
	}, nil
}

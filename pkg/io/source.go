package io

import (
	"context"
	goio "io"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "io")

// Stdin is the source name that reads from standard input.
const Stdin = "-"

// HTTPClient is used for http(s) sources.
var HTTPClient = http.DefaultClient

// Open returns a stream for a source name: a file path, Stdin, or an
// http(s) URL. A single attempt is made; failures are returned as is.
func Open(ctx context.Context, name string) (goio.ReadCloser, error) {
	switch {
	case name == Stdin:
		return goio.NopCloser(os.Stdin), nil
	case strings.HasPrefix(name, "http://"), strings.HasPrefix(name, "https://"):
		return openURL(ctx, name)
	default:
		f, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", name)
		}
		return f, nil
	}
}

func openURL(ctx context.Context, url string) (goio.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", url)
	}
	log.WithField("url", url).Debug("fetching records")

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, errors.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}

// Package fetcher retrieves the schedule page.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clambin/go-common/http/metrics"
	"github.com/clambin/go-common/http/roundtripper"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Timeout bounds the duration of a single fetch.
	Timeout   = 20 * time.Second
	UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	maxBodySize = 8 << 20
)

var ErrFetch = errors.New("fetch failed")

// FetchError reports a failed fetch: a network error, a timeout, a non-2xx status or a non-text response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	reason := "unknown reason"
	switch {
	case e.Err != nil:
		reason = e.Err.Error()
	case e.StatusCode != 0:
		reason = strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
	}
	return "fetch " + e.URL + ": " + reason
}

func (e *FetchError) Is(err error) bool {
	return err == ErrFetch
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher gets the schedule page over HTTP.
type Fetcher struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
}

// New returns a Fetcher using the default timeout and User-Agent. If requestMetrics is not nil, all requests are instrumented.
func New(requestMetrics metrics.RequestMetrics) *Fetcher {
	transport := http.DefaultTransport
	if requestMetrics != nil {
		transport = roundtripper.New(
			roundtripper.WithRequestMetrics(requestMetrics),
			roundtripper.WithRoundTripper(transport),
		)
	}
	return &Fetcher{
		HTTPClient: &http.Client{Transport: transport},
		Timeout:    Timeout,
		UserAgent:  UserAgent,
	}
}

// NewRequestMetrics returns the metrics recorded for each fetch.
func NewRequestMetrics(namespace, subsystem string, labels prometheus.Labels) metrics.RequestMetrics {
	return metrics.NewRequestMetrics(metrics.Options{
		Namespace:   namespace,
		Subsystem:   subsystem,
		ConstLabels: labels,
		LabelValues: func(request *http.Request, code int) (string, string, string) {
			path := request.URL.Path
			if path == "" {
				path = "/"
			}
			return request.Method, path, strconv.Itoa(code)
		},
	})
}

// Fetch returns the body of the page at url. All failures are returned as a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode}
	}
	if contentType := resp.Header.Get("Content-Type"); !isText(contentType) {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unsupported content type %q", contentType)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	return string(body), nil
}

func isText(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") ||
		mediaType == "application/xhtml+xml" ||
		mediaType == "application/xml" ||
		mediaType == "application/json"
}

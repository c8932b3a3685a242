// Package scrape holds the vendor HTTP clients the data-collection workers
// call: Firecrawl for website content, ScrapeOwl for Amazon listings, Reddit's
// public JSON API, and the YouTube Data API.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// Sentinel errors for vendor client failures.
var (
	ErrVendorUnreachable = errors.New("scrape vendor unreachable")
	ErrVendorTimeout     = errors.New("scrape vendor timeout")
	ErrVendorRequest     = errors.New("scrape vendor request failed")
)

// classifyError maps transport errors onto sentinel errors.
func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrVendorTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrVendorTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrVendorUnreachable, err)
}

// doWithRetry issues the request built by build, retrying transient transport
// failures and 5xx responses. 4xx responses are not retried. The caller owns
// the returned body.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	err := retry.Do(
		func() error {
			req, err := build()
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("building request: %w", err))
			}
			r, err := client.Do(req)
			if err != nil {
				return classifyError(err)
			}
			if r.StatusCode >= 500 {
				r.Body.Close()
				return fmt.Errorf("%w: status %d", ErrVendorRequest, r.StatusCode)
			}
			if r.StatusCode >= 400 {
				r.Body.Close()
				return retry.Unrecoverable(fmt.Errorf("%w: status %d", ErrVendorRequest, r.StatusCode))
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Package transport provides the timeout-bounded HTTP client used for all
// outbound calls to the remote provider and the workflow endpoint.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound call unless overridden.
const DefaultTimeout = 8 * time.Second

// TimeoutError reports that an outbound call exceeded its deadline. The
// in-flight request is cancelled; callers decide whether to fall back.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transport: %s timed out after %v", e.URL, e.Timeout)
}

// NetworkError reports a transport failure other than a timeout.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Client wraps an *http.Client with a fixed per-call deadline and error
// classification. It never retries; retry policy belongs to callers.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// Opts holds parameters for creating a Client.
type Opts struct {
	Timeout time.Duration // defaults to DefaultTimeout
	// HTTPClient lets callers inject a pre-configured client (e.g. one
	// carrying bearer-token auth). Its Timeout field is overwritten.
	HTTPClient *http.Client
}

// New creates a timeout-bounded Client.
func New(opts Opts) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	hc.Timeout = timeout
	return &Client{http: hc, timeout: timeout}
}

// Timeout returns the fixed per-call deadline.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Do executes the request bounded by the client's deadline. A deadline
// expiry cancels the in-flight request and returns a *TimeoutError; any
// other transport failure returns a *NetworkError wrapping the cause.
// Non-2xx responses are not errors at this layer.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, c.classify(req.URL.String(), err)
	}
	return resp, nil
}

// PostJSON marshals body and POSTs it to url with Content-Type application/json.
func (c *Client) PostJSON(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal body for %s: %w", url, err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("transport: build request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(ctx, req)
}

// classify maps a raw transport error to TimeoutError or NetworkError.
func (c *Client) classify(url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: url, Timeout: c.timeout}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{URL: url, Timeout: c.timeout}
	}
	return &NetworkError{URL: url, Err: err}
}

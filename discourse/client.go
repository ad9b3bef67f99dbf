// Package discourse is a thin client for the forum's JSON API. Reads are
// wrapped in a bounded retry loop; writes and streams are sent once.
package discourse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	// MaxAttempts bounds GetJSON, including the first try
	MaxAttempts = 3

	baseBackoff = 250 * time.Millisecond
	maxBackoff  = 4 * time.Second

	// maxErrorBody caps how much of a failed upstream body is kept for logging
	maxErrorBody = 4 << 10
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Client
type Options struct {
	BaseURL     string
	APIKey      string // Optional; sent as Api-Key when set
	APIUsername string // Sent as Api-Username with the key
	HTTPClient  *http.Client
	Sleep       SleepFunc
}

// Client talks to one forum instance
type Client struct {
	baseURL     string
	apiKey      string
	apiUsername string
	http        *http.Client
	stream      *http.Client // http without the overall timeout; streams end with ctx
	sleep       SleepFunc
}

// New returns ErrNotConfigured when the base URL is missing
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.Wrapf(errors.ErrNotConfigured, "discourse base url")
	}
	c := &Client{
		baseURL:     baseURL,
		apiKey:      opts.APIKey,
		apiUsername: opts.APIUsername,
		http:        opts.HTTPClient,
		sleep:       opts.Sleep,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	stream := *c.http
	stream.Timeout = 0
	c.stream = &stream
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.apiUsername == "" {
		c.apiUsername = "system"
	}
	return c, nil
}

// BaseURL returns the forum URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasAPIKey reports whether admin calls (AI, seeds) can be made
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// GetJSON performs a GET and returns the body verbatim. 429 and 5xx
// responses, as well as transport errors, are retried up to MaxAttempts
// with the Retry-After delay or an exponential backoff. Any other non-2xx
// status is returned immediately as *errors.UpstreamError.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.url(path, query)

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		body, retryAfter, err := c.getOnce(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == MaxAttempts {
			break
		}

		delay := retryAfter
		if delay <= 0 {
			delay = backoff(attempt)
		}
		log.Debug().Err(err).Str("path", path).Int("attempt", attempt).Dur("delay", delay).Msg("discourse: retrying")
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, errors.Wrapf(lastErr, "discourse GET %s failed after %d attempts", path, MaxAttempts)
}

func (c *Client) getOnce(ctx context.Context, target string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, parseRetryAfter(resp.Header, time.Now()), &errors.UpstreamError{Status: resp.StatusCode, Body: errBody}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &transportError{err: err}
	}
	return body, 0, nil
}

// PostJSON sends body as JSON once and returns the response body
func (c *Client) PostJSON(ctx context.Context, path string, body any) ([]byte, error) {
	resp, err := c.post(ctx, c.http, path, body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return nil, &errors.UpstreamError{Status: resp.StatusCode, Body: respBody}
	}
	return respBody, nil
}

// Stream POSTs body and returns the open response for piping. The caller
// must close the body. Non-2xx statuses are returned as *errors.UpstreamError.
func (c *Client) Stream(ctx context.Context, path string, body any) (*http.Response, error) {
	resp, err := c.post(ctx, c.stream, path, body, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &errors.UpstreamError{Status: resp.StatusCode, Body: errBody}
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, client *http.Client, path string, body any, accept string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path, nil), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUpstream, "%s", err.Error())
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
		req.Header.Set("Api-Username", c.apiUsername)
	}
}

func (c *Client) url(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

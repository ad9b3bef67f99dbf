package discourse

import (
	"net/http"
	"strconv"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
)

// transportError marks failures where no response was received
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return "discourse transport: " + e.err.Error()
}

func (e *transportError) Unwrap() []error {
	return []error{e.err, errors.ErrUpstream}
}

func isRetryable(err error) bool {
	var upstream *errors.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status == http.StatusTooManyRequests || upstream.Status >= 500
	}
	var transport *transportError
	return errors.As(err, &transport)
}

// backoff returns 250ms, 500ms, 1s, ... capped at maxBackoff
func backoff(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// parseRetryAfter reads Retry-After as seconds or an HTTP date, capped at maxBackoff.
func parseRetryAfter(header http.Header, now time.Time) time.Duration {
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	var d time.Duration
	if seconds, err := strconv.Atoi(v); err == nil {
		d = time.Duration(seconds) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = at.Sub(now)
	}
	if d <= 0 {
		return 0
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

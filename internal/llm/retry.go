package llm

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

// RetryConfig controls how failed analysis requests are repeated.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig retries three times, starting at one second.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// retryable reports whether the service may succeed on a later attempt.
func retryable(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status == http.StatusNotImplemented:
		return false
	default:
		return status >= 500
	}
}

// wait returns the delay before attempt+1. A Retry-After header in seconds
// takes precedence over the exponential schedule; both are capped.
func (r *RetryConfig) wait(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
			return min(time.Duration(secs)*time.Second, r.MaxBackoff)
		}
	}
	if attempt > 30 {
		return r.MaxBackoff
	}
	d := r.InitialBackoff << attempt
	if d <= 0 || d > r.MaxBackoff {
		return r.MaxBackoff
	}
	return d
}

// send performs the request built by newReq, repeating transport failures
// and retryable statuses. Other non-200 responses are returned unread.
func (c *Client) send(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusOK || !retryable(resp.StatusCode):
			return resp, nil
		default:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp.Body.Close()
		}

		if attempt >= c.retry.MaxRetries {
			break
		}

		delay := c.retry.wait(attempt, resp)
		c.log.Warn().
			Int("attempt", attempt+1).
			Int("max_retries", c.retry.MaxRetries).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("analysis request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, domain.APIError(fmt.Sprintf("gave up after %d attempts", c.retry.MaxRetries+1), lastErr)
}

package capture

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBackoffMs  = 500
	maxBackoff        = 30 * time.Second
)

// retryPolicy retries transport errors, 429 and 5xx with exponential backoff.
type retryPolicy struct {
	attempts int
	base     time.Duration
}

// policyFromEnv reads CAPTURE_MAX_RETRIES and CAPTURE_RETRY_BACKOFF_MS.
func policyFromEnv() retryPolicy {
	p := retryPolicy{attempts: defaultMaxRetries, base: defaultBackoffMs * time.Millisecond}
	if n := positiveEnv("CAPTURE_MAX_RETRIES"); n > 0 {
		p.attempts = n
	}
	if ms := positiveEnv("CAPTURE_RETRY_BACKOFF_MS"); ms > 0 {
		p.base = time.Duration(ms) * time.Millisecond
	}
	return p
}

func positiveEnv(key string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("WARN capture: ignoring %s=%q", key, raw)
		return 0
	}
	return n
}

// delay is the wait before retry number attempt (0-based). A server-provided
// Retry-After wins over the computed backoff.
func (p retryPolicy) delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	d := p.base
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// do sends the request built by newReq until it succeeds, fails with a
// non-retryable status, or runs out of attempts. newReq is called once per
// attempt so each try gets a fresh body.
func (p retryPolicy) do(ctx context.Context, client *http.Client, newReq func(context.Context) (*http.Request, error)) (*http.Response, error) {
	attempts := p.attempts
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("capture: request canceled: %w", err)
		}
		req, err := newReq(ctx)
		if err != nil {
			return nil, fmt.Errorf("capture: build request: %w", err)
		}

		// #nosec G107 -- URL is the operator-configured render service
		resp, err := client.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			return resp, err
		}

		if err != nil {
			lastErr = err
			log.Printf("WARN capture: attempt %d/%d failed: %v", attempt+1, attempts, err)
		} else {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			log.Printf("WARN capture: attempt %d/%d got status %d", attempt+1, attempts, resp.StatusCode)
			_ = resp.Body.Close()
		}
		if attempt == attempts-1 {
			break
		}
		if err := sleepWithContext(ctx, p.delay(attempt, retryAfter)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("capture: request failed after %d attempts: %w", attempts, lastErr)
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp.Header.Get("Retry-After")), true
	}
	return 0, false
}

// parseRetryAfter accepts both forms of the header: delta seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("capture: request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

package github

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior for transient errors.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     15 * time.Second,
		JitterFraction: 0.25,
	}
}

// RetryClient wraps an HTTPClient with automatic retry on transient
// failures: network errors, 5xx responses and 429s. Requests here are
// GETs without bodies, so replaying them is safe.
type RetryClient struct {
	inner  HTTPClient
	config *RetryConfig
}

// NewRetryClient creates a RetryClient around the given HTTPClient.
func NewRetryClient(inner HTTPClient, cfg *RetryConfig) *RetryClient {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	return &RetryClient{inner: inner, config: cfg}
}

// Do performs the request, retrying transient failures with
// exponential backoff and jitter.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = rc.inner.Do(req)
		if !rc.shouldRetry(resp, err) || attempt >= rc.config.MaxRetries {
			return resp, err
		}
		if resp != nil {
			resp.Body.Close()
		}
		if serr := sleep(req.Context(), rc.backoff(attempt)); serr != nil {
			if err != nil {
				return nil, err
			}
			return nil, serr
		}
	}
}

func (rc *RetryClient) shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		// Cancellation is not transient.
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

// backoff computes the delay for the given attempt with jitter.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	base := float64(rc.config.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(rc.config.MaxBackoff) {
		base = float64(rc.config.MaxBackoff)
	}
	jitter := base * rc.config.JitterFraction * (rand.Float64()*2 - 1) // +/- jitter
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
